package session

import (
	"context"
	"errors"
	"sync"

	"github.com/pion/rtp"

	"github.com/dkeye/Desk/internal/core"
	"github.com/dkeye/Desk/internal/domain"
)

type fakeChannel struct {
	mu       sync.Mutex
	label    string
	open     bool
	sent     [][]byte
	closed   bool
	detached bool
}

func (f *fakeChannel) Label() string { return f.label }

func (f *fakeChannel) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open && !f.closed
}

func (f *fakeChannel) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open || f.closed {
		return core.ErrChannelClosed
	}
	f.sent = append(f.sent, append([]byte(nil), data...))
	return nil
}

func (f *fakeChannel) DetachHandlers() {
	f.mu.Lock()
	f.detached = true
	f.mu.Unlock()
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("already closed")
	}
	f.closed = true
	return nil
}

func (f *fakeChannel) frames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.sent...)
}

type fakeTransport struct {
	mu       sync.Mutex
	kinds    []core.MediaKind
	channel  *fakeChannel
	answers  []string
	offerErr error
	onTrack  func(core.RemoteTrack)
	onState  func(core.ConnectionState)
	closed   int
	detached bool
}

func (f *fakeTransport) Stats() (core.RawStats, error) { return core.RawStats{}, nil }

func (f *fakeTransport) AddReceiveOnly(kind core.MediaKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, kind)
	return nil
}

func (f *fakeTransport) CreateInputChannel(label string) (core.InputChannel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channel = &fakeChannel{label: label}
	return f.channel, nil
}

func (f *fakeTransport) CreateOffer(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offerErr != nil {
		return "", f.offerErr
	}
	if f.onTrack == nil || f.onState == nil || f.channel == nil {
		return "", errors.New("offer created before handlers and channel")
	}
	return "offer-sdp", nil
}

func (f *fakeTransport) ApplyAnswer(sdp string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, sdp)
	return nil
}

func (f *fakeTransport) OnTrack(fn func(core.RemoteTrack)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onTrack = fn
}

func (f *fakeTransport) OnConnectionStateChange(fn func(core.ConnectionState)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onState = fn
}

func (f *fakeTransport) DetachHandlers() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onTrack, f.onState = nil, nil
	f.detached = true
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

// emit simulates pion reporting a state change; detached handlers are not called.
func (f *fakeTransport) emit(s core.ConnectionState) {
	f.mu.Lock()
	fn := f.onState
	f.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

func (f *fakeTransport) stateHandler() func(core.ConnectionState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.onState
}

func (f *fakeTransport) trackHandler() func(core.RemoteTrack) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.onTrack
}

func (f *fakeTransport) appliedAnswers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.answers...)
}

type transportPool struct {
	mu    sync.Mutex
	made  []*fakeTransport
	err   error
	setup func(*fakeTransport)
}

func (p *transportPool) factory() (core.Transport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	t := &fakeTransport{}
	if p.setup != nil {
		p.setup(t)
	}
	p.made = append(p.made, t)
	return t, nil
}

func (p *transportPool) last() *fakeTransport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.made[len(p.made)-1]
}

type fakeSignaler struct {
	mu      sync.Mutex
	calls   []string
	answer  string
	err     error
	entered chan struct{}
	release chan struct{}
}

func (s *fakeSignaler) Negotiate(_ context.Context, offerSDP, streamURL string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, offerSDP+"|"+streamURL)
	entered, release := s.entered, s.release
	s.mu.Unlock()
	if entered != nil {
		close(entered)
	}
	if release != nil {
		<-release
	}
	return s.answer, s.err
}

type routedSignaler struct {
	fakeSignaler
	routes map[string]*fakeSignaler
}

func (r *routedSignaler) ForDevice(id string) core.Signaler {
	if s, ok := r.routes[id]; ok {
		return s
	}
	return &r.fakeSignaler
}

type fakeSampler struct {
	mu      sync.Mutex
	running bool
	src     core.StatsSource
	starts  int
}

func (f *fakeSampler) Start(src core.StatsSource) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running, f.src = true, src
	f.starts++
}

func (f *fakeSampler) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
}

func (f *fakeSampler) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

type fakeTrack struct {
	id      string
	stopped bool
}

func (t *fakeTrack) ID() string                    { return t.id }
func (t *fakeTrack) StreamID() string              { return "" }
func (t *fakeTrack) Kind() core.MediaKind          { return core.MediaVideo }
func (t *fakeTrack) Codec() string                 { return "video/H264" }
func (t *fakeTrack) ReadRTP() (*rtp.Packet, error) { return nil, errors.New("eof") }
func (t *fakeTrack) Stop() error                   { t.stopped = true; return nil }

type fakeSink struct {
	mu       sync.Mutex
	attached []core.RemoteTrack
	stops    int
}

func (s *fakeSink) Attach(_ context.Context, t core.RemoteTrack) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached = append(s.attached, t)
}

func (s *fakeSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached = nil
	s.stops++
}

type recorder struct {
	mu       sync.Mutex
	states   []domain.SessionState
	failures []error
}

func (r *recorder) state(s domain.SessionState) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *recorder) failure(err error) {
	r.mu.Lock()
	r.failures = append(r.failures, err)
	r.mu.Unlock()
}

func (r *recorder) seenStates() []domain.SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.SessionState(nil), r.states...)
}

func (r *recorder) seenFailures() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.failures...)
}
