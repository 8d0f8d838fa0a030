// Package session drives one streaming session to a remote device.
//
// The controller owns the transport and the input channel. All state lives
// behind a single mutex; every asynchronous continuation and transport
// handler captures the epoch it was issued under and drops its result once
// the epoch has moved on. The mutex is never held across offer creation
// or the gateway call.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Desk/internal/core"
	"github.com/dkeye/Desk/internal/domain"
)

const DefaultChannelLabel = "control"

var ErrNoDevice = errors.New("session: device id required")

type Options struct {
	NewTransport core.TransportFactory
	Signaler     core.Signaler
	Sampler      core.StatsRunner
	Sink         core.MediaSink
	// StreamHost is the host part of the stream locator.
	StreamHost   string
	ChannelLabel string
	// Forwarding is the initial value of the input forwarding flag.
	Forwarding bool
}

// StreamURL builds the locator the gateway resolves a device stream by.
func StreamURL(host, deviceID string) string {
	return fmt.Sprintf("webrtc://%s/live/%s", host, deviceID)
}

type Controller struct {
	opts Options

	mu         sync.Mutex
	fsm        *fsm.FSM
	epoch      uint64
	deviceID   string
	forwarding bool
	transport  core.Transport
	channel    core.InputChannel
	cancel     context.CancelFunc
	pending    []func()

	notifyMu sync.Mutex

	obsMu        sync.RWMutex
	onState      []func(domain.SessionState)
	onTransition []func(from, to domain.SessionState)
	onFailure    []func(error)
}

func New(opts Options) *Controller {
	if opts.ChannelLabel == "" {
		opts.ChannelLabel = DefaultChannelLabel
	}
	if opts.Sampler == nil {
		opts.Sampler = nopRunner{}
	}
	if opts.Sink == nil {
		opts.Sink = nopSink{}
	}
	c := &Controller{opts: opts, forwarding: opts.Forwarding}
	c.fsm = newStateMachine(c.enqueueTransition)
	return c
}

// OnStateChange registers fn for every state entered.
func (c *Controller) OnStateChange(fn func(domain.SessionState)) {
	c.obsMu.Lock()
	c.onState = append(c.onState, fn)
	c.obsMu.Unlock()
}

// OnTransition registers fn for every state transition.
func (c *Controller) OnTransition(fn func(from, to domain.SessionState)) {
	c.obsMu.Lock()
	c.onTransition = append(c.onTransition, fn)
	c.obsMu.Unlock()
}

// OnFailure registers fn for failures that ended a session.
func (c *Controller) OnFailure(fn func(error)) {
	c.obsMu.Lock()
	c.onFailure = append(c.onFailure, fn)
	c.obsMu.Unlock()
}

func (c *Controller) logger(epoch uint64) zerolog.Logger {
	return log.With().
		Str("module", "app.session").
		Str("device", c.deviceID).
		Uint64("epoch", epoch).
		Logger()
}

// Start opens a session to deviceID and returns once the gateway answer has
// been applied. The session becomes Connected when the transport reports so.
// A Stop while Start is in flight makes Start return ErrSuperseded.
func (c *Controller) Start(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return ErrNoDevice
	}

	c.mu.Lock()
	if st := c.stateLocked(); !st.Resting() {
		c.mu.Unlock()
		return fmt.Errorf("%w: state %s", core.ErrSessionBusy, st)
	}
	c.epoch++
	epoch := c.epoch
	c.deviceID = deviceID
	logger := c.logger(epoch)

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.fireLocked(evNegotiate)

	tr, ch, err := c.openLocked(runCtx, epoch)
	if err != nil {
		c.mu.Unlock()
		c.flush()
		c.fail(epoch, evFail, err)
		return err
	}
	c.mu.Unlock()
	c.flush()

	// The caller's ctx bounds the negotiation only; Stop cancels it too.
	opCtx, stopOp := context.WithCancel(ctx)
	defer stopOp()
	unlink := context.AfterFunc(runCtx, stopOp)
	defer unlink()

	offer, err := tr.CreateOffer(opCtx)
	if err != nil {
		return c.abort(epoch, fmt.Errorf("create offer: %w", err))
	}
	if !c.current(epoch) {
		return core.ErrSuperseded
	}

	signaler := c.opts.Signaler
	if r, ok := signaler.(core.SignalerRouter); ok {
		signaler = r.ForDevice(deviceID)
	}
	locator := StreamURL(c.opts.StreamHost, deviceID)
	logger.Info().Str("stream", locator).Msg("negotiating")

	answer, err := signaler.Negotiate(opCtx, offer, locator)
	if err != nil {
		return c.abort(epoch, err)
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		logger.Debug().Msg("stale answer discarded")
		return core.ErrSuperseded
	}
	err = tr.ApplyAnswer(answer)
	c.mu.Unlock()
	if err != nil {
		return c.abort(epoch, fmt.Errorf("%w: apply answer: %v", core.ErrProtocol, err))
	}

	logger.Info().Str("channel", ch.Label()).Msg("answer applied")
	return nil
}

// openLocked creates the transport and the input channel. Handlers are
// registered before anything else touches the transport.
func (c *Controller) openLocked(runCtx context.Context, epoch uint64) (core.Transport, core.InputChannel, error) {
	tr, err := c.opts.NewTransport()
	if err != nil {
		return nil, nil, fmt.Errorf("create transport: %w", err)
	}
	c.transport = tr

	tr.OnTrack(func(t core.RemoteTrack) { c.handleTrack(runCtx, epoch, t) })
	tr.OnConnectionStateChange(func(s core.ConnectionState) { c.handleConnectionState(epoch, s) })

	for _, kind := range []core.MediaKind{core.MediaAudio, core.MediaVideo} {
		if err := tr.AddReceiveOnly(kind); err != nil {
			return nil, nil, fmt.Errorf("add %s transceiver: %w", kind, err)
		}
	}
	ch, err := tr.CreateInputChannel(c.opts.ChannelLabel)
	if err != nil {
		return nil, nil, fmt.Errorf("create input channel: %w", err)
	}
	c.channel = ch
	return tr, ch, nil
}

// abort ends the session of epoch with err, unless Stop got there first.
func (c *Controller) abort(epoch uint64, err error) error {
	if !c.current(epoch) {
		return core.ErrSuperseded
	}
	if c.fail(epoch, evFail, err) {
		return err
	}
	return core.ErrSuperseded
}

func (c *Controller) current(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch == epoch
}

func (c *Controller) handleTrack(ctx context.Context, epoch uint64, t core.RemoteTrack) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		_ = t.Stop()
		return
	}
	c.opts.Sink.Attach(ctx, t)
}

func (c *Controller) handleConnectionState(epoch uint64, s core.ConnectionState) {
	switch s {
	case core.ConnectionConnected:
		c.mu.Lock()
		if c.epoch != epoch {
			c.mu.Unlock()
			return
		}
		if c.fireLocked(evConnect) {
			c.opts.Sampler.Start(c.transport)
			logger := c.logger(epoch)
			logger.Info().Msg("connected")
		}
		c.mu.Unlock()
		c.flush()
	case core.ConnectionDisconnected:
		c.fail(epoch, evDisconnect, core.ErrTransportDisconnected)
	case core.ConnectionFailed:
		c.fail(epoch, evFail, core.ErrTransportFailed)
	}
}

// fail moves the session of epoch through event, tears it down and
// reports err. It reports false when the epoch was already stale.
func (c *Controller) fail(epoch uint64, event string, err error) bool {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return false
	}
	logger := c.logger(epoch)
	c.fireLocked(event)
	res := c.releaseLocked()
	c.fireLocked(evReset)
	c.mu.Unlock()

	logger.Warn().Err(err).Msg("session failed")
	res.teardown(logger)

	c.obsMu.RLock()
	observers := slices.Clone(c.onFailure)
	c.obsMu.RUnlock()
	c.mu.Lock()
	c.pending = append(c.pending, func() {
		for _, fn := range observers {
			fn(err)
		}
	})
	c.mu.Unlock()
	c.flush()
	return true
}

// Stop ends the current session. It is idempotent and safe while Start is
// in flight.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.epoch++
	logger := c.logger(c.epoch)
	res := c.releaseLocked()
	if !c.stateLocked().Resting() {
		c.fireLocked(evReset)
	}
	c.mu.Unlock()
	c.flush()

	if res.teardown(logger) {
		logger.Info().Msg("session stopped")
	}
}

// Close stops the session and parks the controller in Closed.
func (c *Controller) Close() {
	c.Stop()
	c.mu.Lock()
	c.fireLocked(evClose)
	c.mu.Unlock()
	c.flush()
}

type resources struct {
	transport core.Transport
	channel   core.InputChannel
	cancel    context.CancelFunc
}

// releaseLocked takes ownership of the live resources and stops every
// component that must not outlive the session. Handlers are detached
// before anything is closed.
func (c *Controller) releaseLocked() resources {
	res := resources{transport: c.transport, channel: c.channel, cancel: c.cancel}
	c.transport, c.channel, c.cancel = nil, nil, nil

	if res.cancel != nil {
		res.cancel()
	}
	if res.channel != nil {
		res.channel.DetachHandlers()
	}
	if res.transport != nil {
		res.transport.DetachHandlers()
	}
	c.opts.Sampler.Stop()
	c.opts.Sink.Stop()
	return res
}

// teardown closes what releaseLocked took. Errors are logged and ignored.
func (r resources) teardown(logger zerolog.Logger) bool {
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			logger.Debug().Err(err).Msg("channel close error ignored")
		}
	}
	if r.transport != nil {
		if err := r.transport.Close(); err != nil {
			logger.Debug().Err(err).Msg("transport close error ignored")
		}
	}
	return r.channel != nil || r.transport != nil
}

// Send writes one input frame. It reports false and drops the frame unless
// the session is Connected, forwarding is enabled and the channel is open.
func (c *Controller) Send(frame []byte) bool {
	c.mu.Lock()
	ch := c.channel
	ok := c.forwarding && ch != nil && c.stateLocked() == domain.StateConnected
	c.mu.Unlock()
	if !ok || !ch.IsOpen() {
		return false
	}
	return ch.Send(frame) == nil
}

func (c *Controller) SetForwarding(enabled bool) {
	c.mu.Lock()
	c.forwarding = enabled
	c.mu.Unlock()
	log.Info().Str("module", "app.session").Bool("forwarding", enabled).Msg("input forwarding changed")
}

func (c *Controller) Forwarding() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forwarding
}

func (c *Controller) State() domain.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) DeviceID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deviceID
}

func (c *Controller) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// Info returns a snapshot without metrics.
func (c *Controller) Info() domain.SessionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.SessionInfo{
		DeviceID:   c.deviceID,
		State:      c.stateLocked(),
		Epoch:      c.epoch,
		Forwarding: c.forwarding,
	}
}

// enqueueTransition runs inside the state machine callback, with c.mu held.
func (c *Controller) enqueueTransition(from, to domain.SessionState) {
	c.obsMu.RLock()
	states := slices.Clone(c.onState)
	transitions := slices.Clone(c.onTransition)
	c.obsMu.RUnlock()

	c.pending = append(c.pending, func() {
		for _, fn := range transitions {
			fn(from, to)
		}
		for _, fn := range states {
			fn(to)
		}
	})
}

// flush delivers queued notifications in order, outside c.mu. Observers
// may call back into the controller; their notifications are delivered by
// whichever goroutine is already flushing.
func (c *Controller) flush() {
	for {
		if !c.notifyMu.TryLock() {
			return
		}
		for {
			c.mu.Lock()
			batch := c.pending
			c.pending = nil
			c.mu.Unlock()
			if len(batch) == 0 {
				break
			}
			for _, fn := range batch {
				fn()
			}
		}
		c.notifyMu.Unlock()

		c.mu.Lock()
		more := len(c.pending) > 0
		c.mu.Unlock()
		if !more {
			return
		}
	}
}

type nopRunner struct{}

func (nopRunner) Start(core.StatsSource) {}
func (nopRunner) Stop()                  {}
func (nopRunner) Running() bool          { return false }

type nopSink struct{}

func (nopSink) Attach(context.Context, core.RemoteTrack) {}
func (nopSink) Stop()                                    {}
