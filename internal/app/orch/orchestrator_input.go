package orch

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Desk/internal/app/viewport"
	"github.com/dkeye/Desk/internal/core"
	"github.com/dkeye/Desk/internal/domain"
)

type PointerAction string

const (
	PointerDown PointerAction = "down"
	PointerUp   PointerAction = "up"
	PointerMove PointerAction = "move"
)

// PointerEvent is a pointer event in client pixels as the viewer saw it.
type PointerEvent struct {
	Action    PointerAction      `json:"action"`
	Button    domain.MouseButton `json:"button"`
	ClientX   float64            `json:"clientX"`
	ClientY   float64            `json:"clientY"`
	MovementX float64            `json:"movementX"`
	MovementY float64            `json:"movementY"`
}

type WheelEvent struct {
	ClientX float64 `json:"clientX"`
	ClientY float64 `json:"clientY"`
	DeltaX  float64 `json:"deltaX"`
	DeltaY  float64 `json:"deltaY"`
}

// Pointer encodes ev relative to the viewer's surface and reports whether
// the frame went out.
func (o *Orchestrator) Pointer(sid core.SessionID, ev PointerEvent) bool {
	x, y, ok := o.normalize(sid, ev.ClientX, ev.ClientY)
	if !ok {
		return false
	}
	switch ev.Action {
	case PointerDown:
		return o.Encoder.MouseDown(ev.Button, x, y)
	case PointerUp:
		return o.Encoder.MouseUp(ev.Button, x, y)
	case PointerMove:
		return o.Encoder.MouseMove(x, y, ev.MovementX, ev.MovementY)
	default:
		log.Debug().Str("module", "app.orch").Str("action", string(ev.Action)).Msg("unknown pointer action")
		return false
	}
}

func (o *Orchestrator) Wheel(sid core.SessionID, ev WheelEvent) bool {
	x, y, ok := o.normalize(sid, ev.ClientX, ev.ClientY)
	if !ok {
		return false
	}
	return o.Encoder.MouseWheel(x, y, ev.DeltaX, ev.DeltaY)
}

func (o *Orchestrator) Key(down bool, d domain.KeyDescriptor) bool {
	if down {
		return o.Encoder.KeyDown(d)
	}
	return o.Encoder.KeyUp(d)
}

func (o *Orchestrator) Surface(sid core.SessionID, r viewport.Rect) bool {
	vp, ok := o.Registry.Viewport(sid)
	if !ok {
		return false
	}
	vp.SetSurface(r)
	return true
}

// ToggleFullscreen asks the viewer to flip its fullscreen state.
func (o *Orchestrator) ToggleFullscreen(sid core.SessionID) error {
	vp, ok := o.Registry.Viewport(sid)
	if !ok {
		return viewport.ErrNoHost
	}
	return vp.ToggleFullscreen()
}

// FullscreenChanged records the fullscreen state the viewer reports.
func (o *Orchestrator) FullscreenChanged(sid core.SessionID, active bool) {
	if vp, ok := o.Registry.Viewport(sid); ok {
		vp.OnFullscreenChange(active)
	}
}

func (o *Orchestrator) normalize(sid core.SessionID, cx, cy float64) (float64, float64, bool) {
	vp, ok := o.Registry.Viewport(sid)
	if !ok {
		return 0, 0, false
	}
	x, y, ok := vp.Normalize(cx, cy)
	if !ok {
		log.Debug().Str("module", "app.orch").Str("sid", string(sid)).Msg("pointer before surface known")
	}
	return x, y, ok
}
