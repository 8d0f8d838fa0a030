package core

import "github.com/dkeye/Desk/internal/domain"

// viewerSession implements ViewerSession by pairing meta + transport.
type viewerSession struct {
	meta *domain.Viewer
	conn ViewerConnection
}

func NewViewerSession(meta *domain.Viewer, conn ViewerConnection) ViewerSession {
	return &viewerSession{meta: meta, conn: conn}
}

func (v *viewerSession) Meta() *domain.Viewer   { return v.meta }
func (v *viewerSession) Conn() ViewerConnection { return v.conn }
