package control

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Desk/internal/adapters/directory"
	"github.com/dkeye/Desk/internal/app/orch"
	"github.com/dkeye/Desk/internal/app/session"
	"github.com/dkeye/Desk/internal/core"
)

// handleStart starts a session to device_id, or to the directory record id
// when only that is given. It answers asynchronously: the state broadcast
// reports progress, an error message reports a refused start.
func (ctl *ControlWSController) handleStart(v *viewer, data []byte) {
	type startPayload struct {
		Type     string `json:"type"`
		DeviceID string `json:"device_id"`
		ID       string `json:"id"`
	}
	var p startPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "control").Msg("bad start payload")
		ctl.sendError(v.conn, "bad_payload")
		return
	}
	if p.DeviceID == "" && p.ID == "" {
		ctl.sendError(v.conn, "device_required")
		return
	}
	if ctl.Limiter != nil && !ctl.Limiter.Allow(v.sid) {
		log.Warn().Str("module", "control").Str("sid", string(v.sid)).Msg("start rate limited")
		ctl.sendError(v.conn, "rate_limited")
		return
	}

	log.Info().Str("module", "control").Str("sid", string(v.sid)).Str("device", p.DeviceID).Str("id", p.ID).Msg("start")
	go func() {
		var err error
		if p.DeviceID != "" {
			err = ctl.Orch.Start(v.ctx, p.DeviceID)
		} else {
			_, err = ctl.Orch.Play(v.ctx, p.ID)
		}
		if err != nil {
			log.Warn().Err(err).Str("module", "control").Str("sid", string(v.sid)).Msg("start failed")
			ctl.sendError(v.conn, errorCode(err))
		}
	}()
}

func (ctl *ControlWSController) handleStop(sid core.SessionID) {
	log.Info().Str("module", "control").Str("sid", string(sid)).Msg("stop")
	ctl.Orch.Stop()
}

func (ctl *ControlWSController) handleForwarding(conn *WsViewerConn, data []byte) {
	var p struct {
		Type    string `json:"type"`
		Enabled *bool  `json:"enabled"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Enabled == nil {
		ctl.sendError(conn, "bad_payload")
		return
	}
	ctl.Orch.SetForwarding(*p.Enabled)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, core.ErrSessionBusy):
		return "session_busy"
	case errors.Is(err, core.ErrSuperseded):
		return "superseded"
	case errors.Is(err, core.ErrNetwork):
		return "network"
	case errors.Is(err, core.ErrProtocol):
		return "protocol"
	case errors.Is(err, session.ErrNoDevice):
		return "device_required"
	case errors.Is(err, orch.ErrNoStreamID):
		return "no_stream_id"
	case errors.Is(err, orch.ErrNoDirectory):
		return "no_directory"
	case errors.Is(err, directory.ErrUnauthorized):
		return "unauthorized"
	default:
		return "start_failed"
	}
}
