package control

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Desk/internal/app/orch"
	"github.com/dkeye/Desk/internal/app/viewport"
	"github.com/dkeye/Desk/internal/domain"
)

// Input messages are fire-and-forget; frames the session cannot take are
// dropped without a reply.

func (ctl *ControlWSController) handleSurface(v *viewer, data []byte) {
	var p struct {
		Type string `json:"type"`
		viewport.Rect
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(v.conn, "bad_payload")
		return
	}
	ctl.Orch.Surface(v.sid, p.Rect)
}

func (ctl *ControlWSController) handlePointer(v *viewer, data []byte) {
	var p struct {
		Type string `json:"type"`
		orch.PointerEvent
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(v.conn, "bad_payload")
		return
	}
	ctl.Orch.Pointer(v.sid, p.PointerEvent)
}

func (ctl *ControlWSController) handleWheel(v *viewer, data []byte) {
	var p struct {
		Type string `json:"type"`
		orch.WheelEvent
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(v.conn, "bad_payload")
		return
	}
	ctl.Orch.Wheel(v.sid, p.WheelEvent)
}

func (ctl *ControlWSController) handleKey(v *viewer, data []byte) {
	var p struct {
		Type string `json:"type"`
		Down bool   `json:"down"`
		domain.KeyDescriptor
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(v.conn, "bad_payload")
		return
	}
	ctl.Orch.Key(p.Down, p.KeyDescriptor)
}

func (ctl *ControlWSController) handleFullscreenToggle(v *viewer) {
	if err := ctl.Orch.ToggleFullscreen(v.sid); err != nil {
		log.Warn().Err(err).Str("module", "control").Str("sid", string(v.sid)).Msg("fullscreen toggle")
		ctl.sendError(v.conn, "fullscreen_unavailable")
	}
}

func (ctl *ControlWSController) handleFullscreenChange(v *viewer, data []byte) {
	var p struct {
		Type   string `json:"type"`
		Active bool   `json:"active"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(v.conn, "bad_payload")
		return
	}
	ctl.Orch.FullscreenChanged(v.sid, p.Active)
}
