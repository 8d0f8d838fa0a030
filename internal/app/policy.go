package app

import "github.com/dkeye/Desk/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickViewer
)

// Policy decides what happens to a viewer whose send queue is full.
// Critical frames carry state the viewer cannot recover without.
type Policy interface {
	OnBackPressure(viewer core.ViewerSession, critical bool) BackpressureAction
}

// SimplePolicy drops lossy frames and kicks viewers that miss a critical one.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(viewer core.ViewerSession, critical bool) BackpressureAction {
	if critical {
		return KickViewer
	}
	return DropFrame
}
