// Package input implements the binary wire format of the input channel.
//
// All multi-byte fields are little-endian with no padding. Pointer
// coordinates travel as unsigned 16-bit fractions of the video surface,
// deltas as signed 16-bit fractions of a fixed pixel range.
package input

import "fmt"

// Opcode is the first byte of every input frame.
type Opcode uint8

const (
	OpKeyDown    Opcode = 60
	OpKeyUp      Opcode = 61
	OpMouseDown  Opcode = 72
	OpMouseUp    Opcode = 73
	OpMouseMove  Opcode = 74
	OpMouseWheel Opcode = 75
)

func (o Opcode) String() string {
	switch o {
	case OpKeyDown:
		return "KeyDown"
	case OpKeyUp:
		return "KeyUp"
	case OpMouseDown:
		return "MouseDown"
	case OpMouseUp:
		return "MouseUp"
	case OpMouseMove:
		return "MouseMove"
	case OpMouseWheel:
		return "MouseWheel"
	default:
		return fmt.Sprintf("Opcode(%d)", uint8(o))
	}
}

// Frame sizes for the fixed-layout opcodes.
const (
	mouseButtonFrameLen = 1 + 1 + 2*2
	mouseDeltaFrameLen  = 1 + 2*2 + 2*2
	descriptorHeaderLen = 1 + 2
)

// Pre-scaling divisors applied to raw deltas before signed quantization.
const (
	MoveDeltaRange  = 500.0
	WheelDeltaRange = 120.0
)
