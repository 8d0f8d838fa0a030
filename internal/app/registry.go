package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Desk/internal/app/viewport"
	"github.com/dkeye/Desk/internal/core"
	"github.com/dkeye/Desk/internal/domain"
)

type viewerEntry struct {
	Session  core.ViewerSession
	Viewport *viewport.Controller
	Cancel   context.CancelFunc
}

// Registry tracks the viewers attached to the control surface. Viewer
// metadata outlives a connection so a reconnecting viewer keeps its name.
type Registry struct {
	mu      sync.RWMutex
	entries map[core.SessionID]*viewerEntry
	viewers map[core.SessionID]*domain.Viewer
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[core.SessionID]*viewerEntry),
		viewers: make(map[core.SessionID]*domain.Viewer),
	}
}

func (r *Registry) GetOrCreateViewer(sid core.SessionID) *domain.Viewer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.viewers[sid]; ok {
		return v
	}
	v := domain.NewViewer(domain.ViewerID(sid))
	r.viewers[sid] = v
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("created new viewer")
	return v
}

// Viewer returns a copy of the viewer metadata.
func (r *Registry) Viewer(sid core.SessionID) domain.Viewer {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.viewers[sid]
	if !ok {
		v = domain.NewViewer(domain.ViewerID(sid))
		r.viewers[sid] = v
	}
	return *v
}

// Rename validates and applies a new display name.
func (r *Registry) Rename(sid core.SessionID, name string) (*domain.Viewer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.viewers[sid]
	if !ok {
		v = domain.NewViewer(domain.ViewerID(sid))
		r.viewers[sid] = v
	}
	if err := v.SetName(name); err != nil {
		return nil, err
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("name", name).Msg("renamed viewer")
	cp := *v
	return &cp, nil
}

// Bind attaches a live connection. A previous connection for the same sid
// is returned so the caller can close it.
func (r *Registry) Bind(
	sid core.SessionID,
	sess core.ViewerSession,
	vp *viewport.Controller,
	cancel context.CancelFunc,
) (prev core.ViewerSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[sid]; ok {
		prev = e.Session
	}
	r.entries[sid] = &viewerEntry{Session: sess, Viewport: vp, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Bool("replaced", prev != nil).Msg("bound viewer")
	return prev
}

func (r *Registry) Get(sid core.SessionID) (core.ViewerSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[sid]; ok {
		return e.Session, true
	}
	return nil, false
}

func (r *Registry) Viewport(sid core.SessionID) (*viewport.Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[sid]; ok && e.Viewport != nil {
		return e.Viewport, true
	}
	return nil, false
}

// Unbind removes sid only while it is still bound to sess, so a stale
// connection shutting down cannot evict its replacement.
func (r *Registry) Unbind(sid core.SessionID, sess core.ViewerSession) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sid]
	if !ok || e.Session != sess {
		return false
	}
	delete(r.entries, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind viewer")
	return true
}

type regSnap struct {
	SID     core.SessionID
	Session core.ViewerSession
}

func (r *Registry) Snapshot() []regSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]regSnap, 0, len(r.entries))
	for sid, e := range r.entries {
		out = append(out, regSnap{SID: sid, Session: e.Session})
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.entries[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled viewer")
	return true
}
