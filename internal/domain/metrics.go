package domain

import "time"

// QualityMetrics is one derived snapshot of transport health.
// It is recomputed wholesale on every sampling tick.
type QualityMetrics struct {
	Timestamp time.Time `json:"timestamp"`

	PacketsLost     int64   `json:"packets_lost"`
	PacketsReceived uint64  `json:"packets_received"`
	PacketLossRate  float64 `json:"packet_loss_rate"`

	BitrateKbps     float64 `json:"bitrate_kbps"`
	FramesPerSecond float64 `json:"frames_per_second"`

	LatencyMs       float64 `json:"latency_ms"`
	DecodeLatencyMs float64 `json:"decode_latency_ms"`
	RenderLatencyMs float64 `json:"render_latency_ms"`
	JitterMs        float64 `json:"jitter_ms"`

	FramesDecoded    uint64 `json:"frames_decoded"`
	FramesDropped    uint64 `json:"frames_dropped"`
	KeyFramesDecoded uint64 `json:"key_frames_decoded"`
	FIRCount         uint64 `json:"fir_count"`
	PLICount         uint64 `json:"pli_count"`
	NACKCount        uint64 `json:"nack_count"`
	QPSum            uint64 `json:"qp_sum"`

	Codec string `json:"codec"`

	TransferredMB            float64 `json:"transferred_mb"`
	AvailableIncomingBitrate float64 `json:"available_incoming_kbps"`
	AvailableOutgoingBitrate float64 `json:"available_outgoing_kbps"`
}
