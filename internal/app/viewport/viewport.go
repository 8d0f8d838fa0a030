// Package viewport maps pointer positions onto the video surface and
// tracks its fullscreen state.
package viewport

import (
	"errors"
	"math"
	"sync"
)

var ErrNoHost = errors.New("viewport: no fullscreen host")

// Rect is the on-screen bounding rectangle of the video surface in client pixels.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Empty() bool {
	return !(r.Width > 0) || !(r.Height > 0)
}

// FullscreenHost performs the actual enter/exit on the viewer side.
type FullscreenHost interface {
	RequestFullscreen(enter bool) error
}

type Controller struct {
	mu         sync.RWMutex
	surface    Rect
	fullscreen bool
	host       FullscreenHost
}

func New(host FullscreenHost) *Controller {
	return &Controller{host: host}
}

func (c *Controller) SetSurface(r Rect) {
	c.mu.Lock()
	c.surface = r
	c.mu.Unlock()
}

func (c *Controller) Surface() Rect {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.surface
}

// Normalize maps client coordinates into [0,1] relative to the surface,
// clamped to its edges. ok is false while no surface is known.
func (c *Controller) Normalize(clientX, clientY float64) (x, y float64, ok bool) {
	c.mu.RLock()
	r := c.surface
	c.mu.RUnlock()
	if r.Empty() {
		return 0, 0, false
	}
	x = unit((clientX - r.Left) / r.Width)
	y = unit((clientY - r.Top) / r.Height)
	return x, y, true
}

// ToggleFullscreen asks the host for the opposite of the tracked state.
// The tracked state only changes through OnFullscreenChange.
func (c *Controller) ToggleFullscreen() error {
	c.mu.RLock()
	host, enter := c.host, !c.fullscreen
	c.mu.RUnlock()
	if host == nil {
		return ErrNoHost
	}
	return host.RequestFullscreen(enter)
}

func (c *Controller) OnFullscreenChange(active bool) {
	c.mu.Lock()
	c.fullscreen = active
	c.mu.Unlock()
}

func (c *Controller) Fullscreen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fullscreen
}

func unit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}
