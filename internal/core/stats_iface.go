package core

import "time"

// RawStats are cumulative transport counters as reported at Timestamp.
// Durations are in seconds, bitrates in bits per second.
type RawStats struct {
	Timestamp time.Time

	PacketsLost     int64
	PacketsReceived uint64
	BytesReceived   uint64
	Jitter          float64

	FramesDecoded        uint64
	FramesDropped        uint64
	KeyFramesDecoded     uint64
	FramesPerSecond      float64
	TotalDecodeTime      float64
	TotalInterFrameDelay float64

	FIRCount  uint64
	PLICount  uint64
	NACKCount uint64
	QPSum     uint64

	Codec string

	RoundTripTime            float64
	AvailableIncomingBitrate float64
	AvailableOutgoingBitrate float64
}

// StatsSource is read by the sampler; it never mutates the transport.
type StatsSource interface {
	Stats() (RawStats, error)
}

// StatsRunner polls a StatsSource periodically while a session is connected.
type StatsRunner interface {
	Start(src StatsSource)
	Stop()
	Running() bool
}
