// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const (
	MaxViewerIDLen   = 36
	MaxViewerNameLen = 36
)

var (
	ErrViewerNameTooLong = errors.New("viewer name too long")
	ErrViewerNameEmpty   = errors.New("viewer name empty")
)

type ViewerID string

// Viewer is a UI client attached to the control surface.
type Viewer struct {
	ID   ViewerID `json:"id"`
	Name string   `json:"name"`
}

const DefaultViewerName = "guest"

// NewViewer is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewViewer(id ViewerID) *Viewer {
	if len(id) > MaxViewerIDLen {
		id = id[:MaxViewerIDLen]
	}
	return &Viewer{ID: id, Name: DefaultViewerName}
}

func (v *Viewer) SetName(name string) error {
	if len(name) == 0 {
		return ErrViewerNameEmpty
	}
	if len(name) > MaxViewerNameLen {
		return ErrViewerNameTooLong
	}
	v.Name = name
	return nil
}
