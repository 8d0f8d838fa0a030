package orch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/dkeye/Desk/internal/core"
	"github.com/dkeye/Desk/internal/domain"
)

var errConnClosed = errors.New("connection closed")

type fakeChannel struct {
	mu   sync.Mutex
	open bool
	sent [][]byte
}

func (f *fakeChannel) Label() string { return "control" }

func (f *fakeChannel) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeChannel) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, append([]byte(nil), data...))
	return nil
}

func (f *fakeChannel) DetachHandlers() {}
func (f *fakeChannel) Close() error    { return nil }

func (f *fakeChannel) frames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.sent...)
}

type fakeTransport struct {
	mu      sync.Mutex
	channel *fakeChannel
	onState func(core.ConnectionState)
	bytes   uint64
}

func (f *fakeTransport) Stats() (core.RawStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bytes += 1 << 20
	return core.RawStats{Timestamp: time.Now(), BytesReceived: f.bytes, Codec: "video/H264"}, nil
}

func (f *fakeTransport) AddReceiveOnly(core.MediaKind) error { return nil }

func (f *fakeTransport) CreateInputChannel(string) (core.InputChannel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channel = &fakeChannel{}
	return f.channel, nil
}

func (f *fakeTransport) CreateOffer(context.Context) (string, error) { return "offer-sdp", nil }
func (f *fakeTransport) ApplyAnswer(string) error                    { return nil }
func (f *fakeTransport) OnTrack(func(core.RemoteTrack))              {}

func (f *fakeTransport) OnConnectionStateChange(fn func(core.ConnectionState)) {
	f.mu.Lock()
	f.onState = fn
	f.mu.Unlock()
}

func (f *fakeTransport) DetachHandlers() {
	f.mu.Lock()
	f.onState = nil
	f.mu.Unlock()
}

func (f *fakeTransport) Close() error { return nil }

// connect opens the channel and reports the transport connected.
func (f *fakeTransport) connect() {
	f.mu.Lock()
	f.channel.mu.Lock()
	f.channel.open = true
	f.channel.mu.Unlock()
	fn := f.onState
	f.mu.Unlock()
	if fn != nil {
		fn(core.ConnectionConnected)
	}
}

type fakeSignaler struct {
	err error
}

func (s fakeSignaler) Negotiate(context.Context, string, string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "answer-sdp", nil
}

type fakeDirectory struct {
	devices map[string]*domain.Device
	err     error
}

func (d fakeDirectory) GetDevice(_ context.Context, id string) (*domain.Device, error) {
	if d.err != nil {
		return nil, d.err
	}
	dev, ok := d.devices[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return dev, nil
}

type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	full   bool
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	if c.full {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, append([]byte(nil), f...))
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) ofType(typ string) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []map[string]any
	for _, f := range c.frames {
		var m map[string]any
		if json.Unmarshal(f, &m) == nil && m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

// states lists the session states carried by state messages, in order.
func (c *fakeConn) states() []string {
	var out []string
	for _, m := range c.ofType(TypeState) {
		sess, _ := m["session"].(map[string]any)
		s, _ := sess["state"].(string)
		out = append(out, s)
	}
	return out
}
