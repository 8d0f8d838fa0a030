// Package metrics exports session quality and lifecycle metrics to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dkeye/Desk/internal/domain"
)

const namespace = "desk"

// stateValues gives every session state a stable gauge value.
var stateValues = map[domain.SessionState]float64{
	domain.StateIdle:         0,
	domain.StateNegotiating:  1,
	domain.StateConnected:    2,
	domain.StateDisconnected: 3,
	domain.StateFailed:       4,
	domain.StateClosed:       5,
}

// Exporter owns a private registry so tests and multiple instances never
// collide on the default one.
type Exporter struct {
	registry *prometheus.Registry

	packetsLost      prometheus.Gauge
	packetsReceived  prometheus.Gauge
	packetLossRate   prometheus.Gauge
	bitrate          prometheus.Gauge
	fps              prometheus.Gauge
	latency          prometheus.Gauge
	decodeLatency    prometheus.Gauge
	renderLatency    prometheus.Gauge
	jitter           prometheus.Gauge
	framesDecoded    prometheus.Gauge
	framesDropped    prometheus.Gauge
	keyFramesDecoded prometheus.Gauge
	fir              prometheus.Gauge
	pli              prometheus.Gauge
	nack             prometheus.Gauge
	qpSum            prometheus.Gauge
	transferred      prometheus.Gauge
	availableIn      prometheus.Gauge
	availableOut     prometheus.Gauge
	codec            *prometheus.GaugeVec

	state       prometheus.Gauge
	transitions *prometheus.CounterVec
	frames      *prometheus.CounterVec
}

func NewExporter() *Exporter {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	gauge := func(name, help string) prometheus.Gauge {
		return f.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Subsystem: "stream", Name: name, Help: help})
	}

	return &Exporter{
		registry: reg,

		packetsLost:      gauge("packets_lost", "Cumulative inbound packets lost."),
		packetsReceived:  gauge("packets_received", "Cumulative inbound packets received."),
		packetLossRate:   gauge("packet_loss_ratio", "Lost packets over lost plus received."),
		bitrate:          gauge("bitrate_kbps", "Instantaneous inbound bitrate."),
		fps:              gauge("frames_per_second", "Decoded frames per second."),
		latency:          gauge("latency_ms", "Round trip time of the selected candidate pair."),
		decodeLatency:    gauge("decode_latency_ms", "Average decode time per frame."),
		renderLatency:    gauge("render_latency_ms", "Average inter-frame delay."),
		jitter:           gauge("jitter_ms", "Inbound video jitter."),
		framesDecoded:    gauge("frames_decoded", "Cumulative frames decoded."),
		framesDropped:    gauge("frames_dropped", "Cumulative frames dropped."),
		keyFramesDecoded: gauge("key_frames_decoded", "Cumulative key frames decoded."),
		fir:              gauge("fir_count", "Full intra requests sent."),
		pli:              gauge("pli_count", "Picture loss indications sent."),
		nack:             gauge("nack_count", "Negative acknowledgements sent."),
		qpSum:            gauge("qp_sum", "Sum of quantization parameters of decoded frames."),
		transferred:      gauge("transferred_mb", "Cumulative bytes received in MiB."),
		availableIn:      gauge("available_incoming_kbps", "Estimated available incoming bitrate."),
		availableOut:     gauge("available_outgoing_kbps", "Estimated available outgoing bitrate."),
		codec: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "stream", Name: "codec_info",
			Help: "Set to 1 for the codec currently decoded.",
		}, []string{"codec"}),

		state: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "session", Name: "state",
			Help: "Session state: 0 idle, 1 negotiating, 2 connected, 3 disconnected, 4 failed, 5 closed.",
		}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "session", Name: "transitions_total",
			Help: "Session state transitions.",
		}, []string{"from", "to"}),
		frames: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "input", Name: "frames_total",
			Help: "Input frames by outcome.",
		}, []string{"result"}),
	}
}

// Observe publishes one quality snapshot.
func (e *Exporter) Observe(m domain.QualityMetrics) {
	e.packetsLost.Set(float64(m.PacketsLost))
	e.packetsReceived.Set(float64(m.PacketsReceived))
	e.packetLossRate.Set(m.PacketLossRate)
	e.bitrate.Set(m.BitrateKbps)
	e.fps.Set(m.FramesPerSecond)
	e.latency.Set(m.LatencyMs)
	e.decodeLatency.Set(m.DecodeLatencyMs)
	e.renderLatency.Set(m.RenderLatencyMs)
	e.jitter.Set(m.JitterMs)
	e.framesDecoded.Set(float64(m.FramesDecoded))
	e.framesDropped.Set(float64(m.FramesDropped))
	e.keyFramesDecoded.Set(float64(m.KeyFramesDecoded))
	e.fir.Set(float64(m.FIRCount))
	e.pli.Set(float64(m.PLICount))
	e.nack.Set(float64(m.NACKCount))
	e.qpSum.Set(float64(m.QPSum))
	e.transferred.Set(m.TransferredMB)
	e.availableIn.Set(m.AvailableIncomingBitrate)
	e.availableOut.Set(m.AvailableOutgoingBitrate)

	e.codec.Reset()
	if m.Codec != "" {
		e.codec.WithLabelValues(m.Codec).Set(1)
	}
}

// Reset zeroes the stream gauges, e.g. once a session ended.
func (e *Exporter) Reset() {
	e.Observe(domain.QualityMetrics{})
}

func (e *Exporter) Transition(from, to domain.SessionState) {
	e.transitions.WithLabelValues(from.String(), to.String()).Inc()
	e.state.Set(stateValues[to])
}

// InputFrame counts one frame handed to the session.
func (e *Exporter) InputFrame(sent bool) {
	result := "dropped"
	if sent {
		result = "sent"
	}
	e.frames.WithLabelValues(result).Inc()
}

func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{Registry: e.registry})
}
