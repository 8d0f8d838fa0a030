package rtc

import (
	"errors"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/dkeye/Desk/internal/core"
)

var ErrNoInboundStats = errors.New("rtc: no inbound rtp stats")

// rawStats flattens a pion stats report. Packet and byte counters are
// summed over every inbound stream; frame counters come from video.
// It reports false when the report holds no inbound stream.
func rawStats(report webrtc.StatsReport) (core.RawStats, bool) {
	var (
		raw       core.RawStats
		inbound   bool
		codecID   string
		selected  string
		pairs     []webrtc.ICECandidatePairStats
		codecs    = map[string]string{}
		timestamp time.Time
	)

	for _, s := range report {
		switch st := s.(type) {
		case webrtc.InboundRTPStreamStats:
			inbound = true
			raw.PacketsLost += int64(st.PacketsLost)
			raw.PacketsReceived += uint64(st.PacketsReceived)
			raw.BytesReceived += st.BytesReceived
			raw.NACKCount += uint64(st.NACKCount)
			if st.Kind != string(core.MediaVideo) {
				continue
			}
			raw.Jitter = st.Jitter
			raw.FramesDecoded = uint64(st.FramesDecoded)
			raw.FramesDropped = uint64(st.FramesDropped)
			raw.KeyFramesDecoded = uint64(st.KeyFramesDecoded)
			raw.TotalDecodeTime = st.TotalDecodeTime
			raw.TotalInterFrameDelay = st.TotalInterFrameDelay
			raw.FIRCount = uint64(st.FIRCount)
			raw.PLICount = uint64(st.PLICount)
			raw.QPSum = st.QPSum
			codecID = st.CodecID
			if t := st.Timestamp.Time(); t.After(timestamp) {
				timestamp = t
			}
		case webrtc.TransportStats:
			selected = st.SelectedCandidatePairID
		case webrtc.ICECandidatePairStats:
			pairs = append(pairs, st)
		case webrtc.CodecStats:
			codecs[st.ID] = st.MimeType
		}
	}

	if pair, ok := activePair(pairs, selected); ok {
		raw.RoundTripTime = pair.CurrentRoundTripTime
		raw.AvailableIncomingBitrate = pair.AvailableIncomingBitrate
		raw.AvailableOutgoingBitrate = pair.AvailableOutgoingBitrate
	}
	raw.Codec = codecs[codecID]
	raw.Timestamp = timestamp
	return raw, inbound
}

// activePair prefers the transport's selected pair and falls back to a
// nominated succeeded one.
func activePair(pairs []webrtc.ICECandidatePairStats, selected string) (webrtc.ICECandidatePairStats, bool) {
	if selected != "" {
		for _, p := range pairs {
			if p.ID == selected {
				return p, true
			}
		}
	}
	for _, p := range pairs {
		if p.Nominated && p.State == webrtc.StatsICECandidatePairStateSucceeded {
			return p, true
		}
	}
	return webrtc.ICECandidatePairStats{}, false
}
