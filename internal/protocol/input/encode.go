package input

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf16"

	"github.com/dkeye/Desk/internal/domain"
)

var (
	ErrDescriptorTooLong = errors.New("input: descriptor exceeds 65535 code units")
	ErrShortFrame        = errors.New("input: short frame")
	ErrUnknownOpcode     = errors.New("input: unknown opcode")
)

// EncodeMouseButton builds a MouseDown or MouseUp frame.
func EncodeMouseButton(down bool, button domain.MouseButton, x, y float64) []byte {
	op := OpMouseUp
	if down {
		op = OpMouseDown
	}
	b := make([]byte, mouseButtonFrameLen)
	b[0] = byte(op)
	b[1] = byte(button)
	binary.LittleEndian.PutUint16(b[2:], QuantizeUnsigned(x))
	binary.LittleEndian.PutUint16(b[4:], QuantizeUnsigned(y))
	return b
}

// EncodeMouseMove builds a MouseMove frame. dx and dy are raw pixel deltas.
func EncodeMouseMove(x, y, dx, dy float64) []byte {
	return encodeDelta(OpMouseMove, x, y, dx/MoveDeltaRange, dy/MoveDeltaRange)
}

// EncodeMouseWheel builds a MouseWheel frame. dx and dy are raw wheel deltas.
func EncodeMouseWheel(x, y, dx, dy float64) []byte {
	return encodeDelta(OpMouseWheel, x, y, dx/WheelDeltaRange, dy/WheelDeltaRange)
}

func encodeDelta(op Opcode, x, y, sdx, sdy float64) []byte {
	b := make([]byte, mouseDeltaFrameLen)
	b[0] = byte(op)
	binary.LittleEndian.PutUint16(b[1:], QuantizeUnsigned(x))
	binary.LittleEndian.PutUint16(b[3:], QuantizeUnsigned(y))
	binary.LittleEndian.PutUint16(b[5:], uint16(QuantizeSigned(sdx)))
	binary.LittleEndian.PutUint16(b[7:], uint16(QuantizeSigned(sdy)))
	return b
}

// EncodeKey builds a KeyDown or KeyUp descriptor frame.
func EncodeKey(down bool, d domain.KeyDescriptor) ([]byte, error) {
	op := OpKeyUp
	if down {
		op = OpKeyDown
	}
	return EncodeDescriptor(op, d)
}

// EncodeDescriptor serializes v as JSON and frames it as UTF-16LE code
// units behind the opcode and a code unit count.
func EncodeDescriptor(op Opcode, v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("input: encode descriptor: %w", err)
	}
	units := utf16.Encode([]rune(string(bytes.TrimRight(buf.Bytes(), "\n"))))
	if len(units) > 0xFFFF {
		return nil, ErrDescriptorTooLong
	}

	b := make([]byte, descriptorHeaderLen+2*len(units))
	b[0] = byte(op)
	binary.LittleEndian.PutUint16(b[1:], uint16(len(units)))
	for i, u := range units {
		binary.LittleEndian.PutUint16(b[descriptorHeaderLen+2*i:], u)
	}
	return b, nil
}

// Message is a decoded frame. Only the fields relevant to Op are set;
// coordinates and deltas are dequantized.
type Message struct {
	Op         Opcode
	Button     domain.MouseButton
	X, Y       float64
	DX, DY     float64
	Descriptor string
}

// Decode parses a single frame. Deltas are returned in their pre-scaled
// [-1,1] form.
func Decode(b []byte) (Message, error) {
	if len(b) == 0 {
		return Message{}, ErrShortFrame
	}
	m := Message{Op: Opcode(b[0])}
	switch m.Op {
	case OpMouseDown, OpMouseUp:
		if len(b) < mouseButtonFrameLen {
			return m, ErrShortFrame
		}
		m.Button = domain.MouseButton(b[1])
		m.X = DequantizeUnsigned(binary.LittleEndian.Uint16(b[2:]))
		m.Y = DequantizeUnsigned(binary.LittleEndian.Uint16(b[4:]))
	case OpMouseMove, OpMouseWheel:
		if len(b) < mouseDeltaFrameLen {
			return m, ErrShortFrame
		}
		m.X = DequantizeUnsigned(binary.LittleEndian.Uint16(b[1:]))
		m.Y = DequantizeUnsigned(binary.LittleEndian.Uint16(b[3:]))
		m.DX = DequantizeSigned(int16(binary.LittleEndian.Uint16(b[5:])))
		m.DY = DequantizeSigned(int16(binary.LittleEndian.Uint16(b[7:])))
	case OpKeyDown, OpKeyUp:
		if len(b) < descriptorHeaderLen {
			return m, ErrShortFrame
		}
		n := int(binary.LittleEndian.Uint16(b[1:]))
		if len(b) < descriptorHeaderLen+2*n {
			return m, ErrShortFrame
		}
		units := make([]uint16, n)
		for i := range units {
			units[i] = binary.LittleEndian.Uint16(b[descriptorHeaderLen+2*i:])
		}
		m.Descriptor = string(utf16.Decode(units))
	default:
		return m, fmt.Errorf("%w: %d", ErrUnknownOpcode, b[0])
	}
	return m, nil
}
