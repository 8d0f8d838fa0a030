package input

import "math"

const (
	unsignedMax = 65535
	signedMax   = 32767
)

// QuantizeUnsigned maps a normalized coordinate onto [0, 65535].
func QuantizeUnsigned(v float64) uint16 {
	q := math.Floor(clamp(v, 0, 1) * unsignedMax)
	return uint16(clamp(q, 0, unsignedMax))
}

// DequantizeUnsigned is the inverse of QuantizeUnsigned up to one step.
func DequantizeUnsigned(q uint16) float64 {
	return float64(q) / unsignedMax
}

// QuantizeSigned maps a pre-scaled value onto [-32767, 32767].
func QuantizeSigned(v float64) int16 {
	q := math.Floor(clamp(v, -1, 1) * signedMax)
	return int16(clamp(q, -signedMax, signedMax))
}

// DequantizeSigned is the inverse of QuantizeSigned up to one step.
func DequantizeSigned(q int16) float64 {
	return float64(q) / signedMax
}

// clamp also maps NaN to lo.
func clamp(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v), v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
