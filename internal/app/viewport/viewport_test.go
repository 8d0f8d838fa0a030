package viewport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hostRecorder struct {
	requests []bool
}

func (h *hostRecorder) RequestFullscreen(enter bool) error {
	h.requests = append(h.requests, enter)
	return nil
}

func TestNormalize(t *testing.T) {
	c := New(nil)

	_, _, ok := c.Normalize(10, 10)
	assert.False(t, ok, "no surface yet")

	c.SetSurface(Rect{Left: 100, Top: 50, Width: 800, Height: 600})

	tests := []struct {
		name   string
		cx, cy float64
		x, y   float64
	}{
		{name: "top left", cx: 100, cy: 50, x: 0, y: 0},
		{name: "center", cx: 500, cy: 350, x: 0.5, y: 0.5},
		{name: "bottom right", cx: 900, cy: 650, x: 1, y: 1},
		{name: "outside clamps", cx: -20, cy: 4000, x: 0, y: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, ok := c.Normalize(tt.cx, tt.cy)
			require.True(t, ok)
			assert.InDelta(t, tt.x, x, 1e-12)
			assert.InDelta(t, tt.y, y, 1e-12)
		})
	}
}

func TestNormalizeEmptySurface(t *testing.T) {
	c := New(nil)
	c.SetSurface(Rect{Width: 0, Height: 300})
	_, _, ok := c.Normalize(1, 1)
	assert.False(t, ok)
}

func TestFullscreenTracksNotifications(t *testing.T) {
	h := &hostRecorder{}
	c := New(h)

	require.NoError(t, c.ToggleFullscreen())
	assert.False(t, c.Fullscreen(), "toggle alone does not change tracked state")

	c.OnFullscreenChange(true)
	assert.True(t, c.Fullscreen())

	require.NoError(t, c.ToggleFullscreen())
	// exit via Escape on the viewer side
	c.OnFullscreenChange(false)
	assert.False(t, c.Fullscreen())

	assert.Equal(t, []bool{true, false}, h.requests)
}

func TestToggleWithoutHost(t *testing.T) {
	assert.ErrorIs(t, New(nil).ToggleFullscreen(), ErrNoHost)
}
