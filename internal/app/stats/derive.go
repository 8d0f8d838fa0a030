// Package stats turns raw transport counters into QualityMetrics snapshots.
package stats

import (
	"math"
	"time"

	"github.com/dkeye/Desk/internal/core"
	"github.com/dkeye/Desk/internal/domain"
)

const bytesPerMB = 1 << 20

// Deriver keeps the previous sample needed for rate computations.
// It is not safe for concurrent use.
type Deriver struct {
	hasPrev    bool
	prevAt     time.Time
	prevBytes  uint64
	prevFrames uint64

	bitrateKbps float64
	fps         float64
}

// Reset forgets the previous sample and the retained rates.
func (d *Deriver) Reset() {
	*d = Deriver{}
}

// Derive computes a full snapshot from raw and records raw as the previous
// sample. A sample whose byte counter is below the previous one keeps the
// last good rates and does not replace the previous sample.
func (d *Deriver) Derive(raw core.RawStats) domain.QualityMetrics {
	m := domain.QualityMetrics{
		Timestamp:        raw.Timestamp,
		PacketsLost:      raw.PacketsLost,
		PacketsReceived:  raw.PacketsReceived,
		PacketLossRate:   lossRate(raw.PacketsLost, raw.PacketsReceived),
		LatencyMs:        raw.RoundTripTime * 1000,
		JitterMs:         raw.Jitter * 1000,
		FramesDecoded:    raw.FramesDecoded,
		FramesDropped:    raw.FramesDropped,
		KeyFramesDecoded: raw.KeyFramesDecoded,
		FIRCount:         raw.FIRCount,
		PLICount:         raw.PLICount,
		NACKCount:        raw.NACKCount,
		QPSum:            raw.QPSum,
		Codec:            raw.Codec,
		TransferredMB:    float64(raw.BytesReceived) / bytesPerMB,

		AvailableIncomingBitrate: raw.AvailableIncomingBitrate / 1000,
		AvailableOutgoingBitrate: raw.AvailableOutgoingBitrate / 1000,
	}
	if raw.FramesDecoded > 0 {
		frames := float64(raw.FramesDecoded)
		m.DecodeLatencyMs = raw.TotalDecodeTime / frames * 1000
		m.RenderLatencyMs = raw.TotalInterFrameDelay / frames * 1000
	}

	if d.hasPrev && raw.BytesReceived < d.prevBytes {
		// sample without the inbound counters; keep the last rates and baseline
		m.BitrateKbps = d.bitrateKbps
		m.FramesPerSecond = d.fps
		return m
	}

	var elapsed float64
	if d.hasPrev {
		elapsed = raw.Timestamp.Sub(d.prevAt).Seconds()
	}
	if elapsed > 0 {
		delta := float64(raw.BytesReceived) - float64(d.prevBytes)
		d.bitrateKbps = math.Max(0, delta*8/1000/elapsed)
	}
	switch {
	case raw.FramesPerSecond > 0:
		d.fps = raw.FramesPerSecond
	case elapsed > 0:
		delta := float64(raw.FramesDecoded) - float64(d.prevFrames)
		d.fps = math.Max(0, delta/elapsed)
	}
	m.BitrateKbps = d.bitrateKbps
	m.FramesPerSecond = d.fps

	d.hasPrev = true
	d.prevAt = raw.Timestamp
	d.prevBytes = raw.BytesReceived
	d.prevFrames = raw.FramesDecoded
	return m
}

func lossRate(lost int64, received uint64) float64 {
	if lost < 0 {
		lost = 0
	}
	total := float64(lost) + float64(received)
	if total == 0 {
		return 0
	}
	return float64(lost) / total
}
