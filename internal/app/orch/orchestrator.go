// Package orch wires the streaming session to the viewers of the control
// surface: session events fan out to every viewer, viewer input flows into
// the session.
package orch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Desk/internal/app"
	"github.com/dkeye/Desk/internal/app/session"
	"github.com/dkeye/Desk/internal/app/stats"
	"github.com/dkeye/Desk/internal/core"
	"github.com/dkeye/Desk/internal/domain"
	"github.com/dkeye/Desk/internal/metrics"
	"github.com/dkeye/Desk/internal/protocol/input"
)

var (
	ErrNoDirectory = errors.New("orch: device directory not configured")
	ErrNoStreamID  = errors.New("orch: device has no stream id")
)

// DeviceDirectory resolves directory records to streaming device ids.
type DeviceDirectory interface {
	GetDevice(ctx context.Context, id string) (*domain.Device, error)
}

type Options struct {
	// Session configures the controller; its Sampler is supplied by New.
	Session       session.Options
	StatsInterval time.Duration
	Registry      *app.Registry
	Policy        app.Policy
	Exporter      *metrics.Exporter
	Directory     DeviceDirectory
}

type Orchestrator struct {
	Registry  *app.Registry
	Session   *session.Controller
	Sampler   *stats.Sampler
	Encoder   *input.Encoder
	Policy    app.Policy
	Exporter  *metrics.Exporter
	Directory DeviceDirectory

	obsMu     sync.RWMutex
	onMetrics []func(domain.QualityMetrics)
}

func New(opts Options) *Orchestrator {
	if opts.Registry == nil {
		opts.Registry = app.NewRegistry()
	}
	if opts.Policy == nil {
		opts.Policy = app.SimplePolicy{}
	}
	if opts.Exporter == nil {
		opts.Exporter = metrics.NewExporter()
	}
	if opts.StatsInterval <= 0 {
		opts.StatsInterval = stats.DefaultInterval
	}

	o := &Orchestrator{
		Registry:  opts.Registry,
		Policy:    opts.Policy,
		Exporter:  opts.Exporter,
		Directory: opts.Directory,
	}
	o.Sampler = stats.NewSampler(opts.StatsInterval, o.handleMetrics)

	sopts := opts.Session
	sopts.Sampler = o.Sampler
	o.Session = session.New(sopts)
	o.Session.OnTransition(o.handleTransition)
	o.Session.OnStateChange(o.handleState)
	o.Session.OnFailure(o.handleFailure)

	o.Encoder = input.NewEncoder(func(frame []byte) bool {
		sent := o.Session.Send(frame)
		o.Exporter.InputFrame(sent)
		return sent
	})
	return o
}

// OnMetrics registers fn for every quality snapshot.
func (o *Orchestrator) OnMetrics(fn func(domain.QualityMetrics)) {
	o.obsMu.Lock()
	o.onMetrics = append(o.onMetrics, fn)
	o.obsMu.Unlock()
}

func (o *Orchestrator) Start(ctx context.Context, deviceID string) error {
	return o.Session.Start(ctx, deviceID)
}

// Play resolves a directory record and starts a session to its device.
func (o *Orchestrator) Play(ctx context.Context, id string) (*domain.Device, error) {
	if o.Directory == nil {
		return nil, ErrNoDirectory
	}
	d, err := o.Directory.GetDevice(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve device %s: %w", id, err)
	}
	if d.DeviceID == "" {
		return d, ErrNoStreamID
	}
	log.Info().Str("module", "app.orch").Str("id", id).Str("device", d.DeviceID).Msg("playing directory device")
	return d, o.Start(ctx, d.DeviceID)
}

func (o *Orchestrator) Stop() {
	o.Session.Stop()
}

func (o *Orchestrator) SetForwarding(enabled bool) {
	o.Session.SetForwarding(enabled)
	o.broadcast(NewStateMessage(o.Info()), true)
}

// Info is the session snapshot with the latest metrics while connected.
func (o *Orchestrator) Info() domain.SessionInfo {
	info := o.Session.Info()
	if info.State == domain.StateConnected {
		if m, ok := o.Sampler.Latest(); ok {
			info.Metrics = m
		}
	}
	return info
}

// Shutdown closes the session and disconnects every viewer.
func (o *Orchestrator) Shutdown() {
	o.Session.Close()
	for _, snap := range o.Registry.Snapshot() {
		o.kick(snap.SID, snap.Session)
	}
	log.Info().Str("module", "app.orch").Msg("orchestrator shut down")
}

func (o *Orchestrator) handleMetrics(m domain.QualityMetrics) {
	o.Exporter.Observe(m)
	o.broadcast(NewMetricsMessage(m), false)

	o.obsMu.RLock()
	fns := o.onMetrics
	o.obsMu.RUnlock()
	for _, fn := range fns {
		fn(m)
	}
}

func (o *Orchestrator) handleTransition(from, to domain.SessionState) {
	o.Exporter.Transition(from, to)
	if to.Resting() {
		o.Exporter.Reset()
	}
}

// handleState reports the state being entered, which may already be
// behind the controller's current one.
func (o *Orchestrator) handleState(s domain.SessionState) {
	info := o.Info()
	info.State = s
	o.broadcast(NewStateMessage(info), true)
}

func (o *Orchestrator) handleFailure(err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, core.ErrNetwork):
		msg = "cannot reach the streaming gateway"
	case errors.Is(err, core.ErrProtocol):
		msg = "streaming gateway returned no usable answer"
	case errors.Is(err, core.ErrTransportDisconnected), errors.Is(err, core.ErrTransportFailed):
		msg = "connection to the device was lost"
	}
	o.broadcast(NewNoticeMessage(domain.Notice{Level: "error", Message: msg}), true)
}
