package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Desk/internal/adapters/directory"
	"github.com/dkeye/Desk/internal/app/orch"
	"github.com/dkeye/Desk/internal/app/session"
	"github.com/dkeye/Desk/internal/core"
	"github.com/dkeye/Desk/internal/domain"
)

// DeviceDirectory is the device listing the API proxies.
type DeviceDirectory interface {
	ListDevices(ctx context.Context, opts directory.ListOptions) (*directory.DeviceList, error)
	GetDevice(ctx context.Context, id string) (*domain.Device, error)
}

type StartRequest struct {
	DeviceID string `json:"device_id"`
}

type ForwardingRequest struct {
	Enabled *bool `json:"enabled"`
}

type listQuery struct {
	Page          int    `form:"page"`
	PageSize      int    `form:"page_size"`
	Status        string `form:"status"`
	MyDevicesOnly bool   `form:"my_devices_only"`
}

type handlers struct {
	orch    *orch.Orchestrator
	devices DeviceDirectory
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.orch.Info())
}

func (h *handlers) startSession(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.DeviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid device_id"})
		return
	}
	if err := h.orch.Start(c.Request.Context(), req.DeviceID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.orch.Info())
}

func (h *handlers) stopSession(c *gin.Context) {
	h.orch.Stop()
	c.JSON(http.StatusOK, h.orch.Info())
}

func (h *handlers) setForwarding(c *gin.Context) {
	var req ForwardingRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid enabled"})
		return
	}
	h.orch.SetForwarding(*req.Enabled)
	c.JSON(http.StatusOK, h.orch.Info())
}

func (h *handlers) listDevices(c *gin.Context) {
	if h.devices == nil {
		writeError(c, orch.ErrNoDirectory)
		return
	}
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	list, err := h.devices.ListDevices(c.Request.Context(), directory.ListOptions{
		Page:          q.Page,
		PageSize:      q.PageSize,
		Status:        domain.DeviceStatus(q.Status),
		MyDevicesOnly: q.MyDevicesOnly,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handlers) getDevice(c *gin.Context) {
	if h.devices == nil {
		writeError(c, orch.ErrNoDirectory)
		return
	}
	d, err := h.devices.GetDevice(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *handlers) playDevice(c *gin.Context) {
	d, err := h.orch.Play(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"device": d, "session": h.orch.Info()})
}

func statusOf(err error) int {
	var apiErr *directory.APIError
	switch {
	case errors.Is(err, core.ErrSessionBusy), errors.Is(err, core.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, session.ErrNoDevice):
		return http.StatusBadRequest
	case errors.Is(err, directory.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, orch.ErrNoStreamID):
		return http.StatusUnprocessableEntity
	case errors.Is(err, orch.ErrNoDirectory):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrNetwork), errors.Is(err, core.ErrProtocol), errors.As(err, &apiErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusOf(err)
	log.Warn().Err(err).Str("module", "adapters.http").Int("status", status).Str("path", c.FullPath()).Msg("request failed")
	c.JSON(status, gin.H{"error": err.Error()})
}
