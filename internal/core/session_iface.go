package core

import "github.com/dkeye/Desk/internal/domain"

// SessionID identifies a viewer (its client token), not a streaming session.
type SessionID string

// ViewerSession binds domain.Viewer and its control-surface endpoint.
// This is what the registry stores and fans out to.
type ViewerSession interface {
	Meta() *domain.Viewer
	Conn() ViewerConnection
}
