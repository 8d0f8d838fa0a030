package input

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Desk/internal/domain"
)

// SendFunc delivers one frame and reports whether it was accepted.
type SendFunc func(frame []byte) bool

// Encoder writes frames straight through send. It never buffers: a frame
// send rejects is gone.
type Encoder struct {
	send SendFunc
}

func NewEncoder(send SendFunc) *Encoder {
	return &Encoder{send: send}
}

func (e *Encoder) MouseDown(button domain.MouseButton, x, y float64) bool {
	return e.send(EncodeMouseButton(true, button, x, y))
}

func (e *Encoder) MouseUp(button domain.MouseButton, x, y float64) bool {
	return e.send(EncodeMouseButton(false, button, x, y))
}

func (e *Encoder) MouseMove(x, y, dx, dy float64) bool {
	return e.send(EncodeMouseMove(x, y, dx, dy))
}

func (e *Encoder) MouseWheel(x, y, dx, dy float64) bool {
	return e.send(EncodeMouseWheel(x, y, dx, dy))
}

func (e *Encoder) KeyDown(d domain.KeyDescriptor) bool {
	return e.key(true, d)
}

func (e *Encoder) KeyUp(d domain.KeyDescriptor) bool {
	return e.key(false, d)
}

func (e *Encoder) key(down bool, d domain.KeyDescriptor) bool {
	frame, err := EncodeKey(down, d)
	if err != nil {
		log.Debug().Str("module", "protocol.input").Err(err).Msg("key descriptor dropped")
		return false
	}
	return e.send(frame)
}
