package orch

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Desk/internal/app"
	"github.com/dkeye/Desk/internal/app/viewport"
	"github.com/dkeye/Desk/internal/core"
	"github.com/dkeye/Desk/internal/domain"
)

// Attach registers a viewer connection. A previous connection of the same
// viewer is closed.
func (o *Orchestrator) Attach(sid core.SessionID, conn core.ViewerConnection, cancel context.CancelFunc) core.ViewerSession {
	sess := core.NewViewerSession(o.Registry.GetOrCreateViewer(sid), conn)
	vp := viewport.New(fullscreenHost{conn: conn})
	if prev := o.Registry.Bind(sid, sess, vp, cancel); prev != nil {
		log.Info().Str("module", "app.orch").Str("sid", string(sid)).Msg("replacing viewer connection")
		prev.Conn().Close()
	}
	return sess
}

// Detach forgets sess. The viewer's name is kept for a later reconnect.
func (o *Orchestrator) Detach(sid core.SessionID, sess core.ViewerSession) {
	o.Registry.Unbind(sid, sess)
}

func (o *Orchestrator) WhoAmI(sid core.SessionID) domain.Viewer {
	return o.Registry.Viewer(sid)
}

func (o *Orchestrator) Rename(sid core.SessionID, name string) (*domain.Viewer, error) {
	return o.Registry.Rename(sid, name)
}

func (o *Orchestrator) KickBySID(sid core.SessionID) {
	sess, ok := o.Registry.Get(sid)
	if !ok {
		return
	}
	o.kick(sid, sess)
}

func (o *Orchestrator) kick(sid core.SessionID, sess core.ViewerSession) {
	if cur, ok := o.Registry.Get(sid); ok && cur == sess {
		o.Registry.Cancel(sid)
	}
	o.Registry.Unbind(sid, sess)
	sess.Conn().Close()
	log.Info().Str("module", "app.orch").Str("sid", string(sid)).Msg("kicked viewer")
}

// broadcast sends v to every viewer. Slow viewers are handled by the policy.
func (o *Orchestrator) broadcast(v any, critical bool) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orch").Msg("broadcast marshal")
		return
	}
	for _, snap := range o.Registry.Snapshot() {
		err := snap.Session.Conn().TrySend(b)
		if err == nil || !errors.Is(err, core.ErrBackpressure) {
			continue
		}
		switch o.Policy.OnBackPressure(snap.Session, critical) {
		case app.KickViewer:
			o.kick(snap.SID, snap.Session)
		case app.DropFrame, app.NoAction:
			log.Debug().Str("module", "app.orch").Str("sid", string(snap.SID)).Msg("frame dropped for slow viewer")
		}
	}
}

// fullscreenHost forwards fullscreen requests to the viewer, which owns
// the actual display.
type fullscreenHost struct {
	conn core.ViewerConnection
}

func (h fullscreenHost) RequestFullscreen(enter bool) error {
	b, err := json.Marshal(FullscreenMessage{Type: TypeFullscreen, Enter: enter})
	if err != nil {
		return err
	}
	return h.conn.TrySend(b)
}
