package control

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Desk/internal/app/orch"
	"github.com/dkeye/Desk/internal/app/session"
	"github.com/dkeye/Desk/internal/core"
	"github.com/dkeye/Desk/internal/protocol/input"
)

type stubChannel struct {
	mu   sync.Mutex
	open bool
	sent [][]byte
}

func (c *stubChannel) Label() string { return "control" }
func (c *stubChannel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}
func (c *stubChannel) Send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, append([]byte(nil), b...))
	return nil
}
func (c *stubChannel) DetachHandlers() {}
func (c *stubChannel) Close() error    { return nil }

func (c *stubChannel) frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sent...)
}

type stubTransport struct {
	mu      sync.Mutex
	channel *stubChannel
	onState func(core.ConnectionState)
}

func (t *stubTransport) Stats() (core.RawStats, error)       { return core.RawStats{}, nil }
func (t *stubTransport) AddReceiveOnly(core.MediaKind) error { return nil }
func (t *stubTransport) CreateOffer(context.Context) (string, error) {
	return "offer", nil
}
func (t *stubTransport) ApplyAnswer(string) error       { return nil }
func (t *stubTransport) OnTrack(func(core.RemoteTrack)) {}
func (t *stubTransport) DetachHandlers() {
	t.mu.Lock()
	t.onState = nil
	t.mu.Unlock()
}
func (t *stubTransport) Close() error { return nil }

func (t *stubTransport) CreateInputChannel(string) (core.InputChannel, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channel = &stubChannel{}
	return t.channel, nil
}

func (t *stubTransport) OnConnectionStateChange(fn func(core.ConnectionState)) {
	t.mu.Lock()
	t.onState = fn
	t.mu.Unlock()
}

func (t *stubTransport) connect() {
	t.mu.Lock()
	t.channel.mu.Lock()
	t.channel.open = true
	t.channel.mu.Unlock()
	fn := t.onState
	t.mu.Unlock()
	if fn != nil {
		fn(core.ConnectionConnected)
	}
}

type stubSignaler struct{}

func (stubSignaler) Negotiate(context.Context, string, string) (string, error) {
	return "answer", nil
}

type env struct {
	srv  *httptest.Server
	orch *orch.Orchestrator

	mu         sync.Mutex
	transports []*stubTransport
}

func newEnv(t *testing.T, limiter *StartRateLimiter) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	e := &env{}
	e.orch = orch.New(orch.Options{
		Session: session.Options{
			NewTransport: func() (core.Transport, error) {
				tr := &stubTransport{}
				e.mu.Lock()
				e.transports = append(e.transports, tr)
				e.mu.Unlock()
				return tr, nil
			},
			Signaler:   stubSignaler{},
			StreamHost: "127.0.0.1",
			Forwarding: true,
		},
		StatsInterval: time.Hour,
	})

	ctl := NewControlWSController(e.orch, limiter, Config{ReadLimit: 32768, PingPeriod: time.Minute})
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		c.Set("client_token", c.Query("sid"))
		ctl.HandleControl(context.Background(), c)
	})
	e.srv = httptest.NewServer(r)
	t.Cleanup(func() {
		e.orch.Shutdown()
		e.srv.Close()
	})
	return e
}

func (e *env) last() *stubTransport {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.transports) == 0 {
		return nil
	}
	return e.transports[len(e.transports)-1]
}

func (e *env) dial(t *testing.T, sid string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws?sid=" + sid
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

// expect reads until a message of typ arrives.
func expect(t *testing.T, ws *websocket.Conn, typ string) map[string]any {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var m map[string]any
		require.NoError(t, ws.ReadJSON(&m))
		if m["type"] == typ {
			return m
		}
	}
}

func send(t *testing.T, ws *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(v))
}

func TestGreetingAndViewerMessages(t *testing.T) {
	e := newEnv(t, nil)
	ws := e.dial(t, "viewer-1")

	who := expect(t, ws, "whoami")
	assert.Equal(t, "viewer-1", who["id"])
	assert.Equal(t, "guest", who["name"])
	state := expect(t, ws, "state")
	assert.Equal(t, "idle", state["session"].(map[string]any)["state"])

	send(t, ws, map[string]any{"type": "ping"})
	expect(t, ws, "pong")

	send(t, ws, map[string]any{"type": "rename", "name": "alice"})
	assert.Equal(t, "alice", expect(t, ws, "whoami")["name"])

	send(t, ws, map[string]any{"type": "rename", "name": ""})
	assert.Equal(t, "invalid_name", expect(t, ws, "error")["error"])

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{")))
	assert.Equal(t, "bad_payload", expect(t, ws, "error")["error"])

	send(t, ws, map[string]any{"type": "dance"})
	assert.Equal(t, "unknown_type", expect(t, ws, "error")["error"])
}

func TestStartStopBroadcastsState(t *testing.T) {
	e := newEnv(t, nil)
	a := e.dial(t, "a")
	b := e.dial(t, "b")
	expect(t, a, "state")
	expect(t, b, "state")

	send(t, a, map[string]any{"type": "start"})
	assert.Equal(t, "device_required", expect(t, a, "error")["error"])

	send(t, a, map[string]any{"type": "start", "device_id": "dev-42"})
	for _, ws := range []*websocket.Conn{a, b} {
		sess := expect(t, ws, "state")["session"].(map[string]any)
		assert.Equal(t, "negotiating", sess["state"])
		assert.Equal(t, "dev-42", sess["device_id"])
	}

	send(t, b, map[string]any{"type": "stop"})
	for _, ws := range []*websocket.Conn{a, b} {
		assert.Equal(t, "idle", expect(t, ws, "state")["session"].(map[string]any)["state"])
	}
}

func TestStartIsRateLimited(t *testing.T) {
	e := newEnv(t, NewStartRateLimiter(1, time.Minute))
	ws := e.dial(t, "a")
	expect(t, ws, "state")

	send(t, ws, map[string]any{"type": "start", "device_id": "dev-42"})
	expect(t, ws, "state")
	send(t, ws, map[string]any{"type": "start", "device_id": "dev-42"})
	assert.Equal(t, "rate_limited", expect(t, ws, "error")["error"])
}

func TestBusyStartReportsError(t *testing.T) {
	e := newEnv(t, nil)
	ws := e.dial(t, "a")
	expect(t, ws, "state")

	send(t, ws, map[string]any{"type": "start", "device_id": "dev-42"})
	expect(t, ws, "state")
	send(t, ws, map[string]any{"type": "start", "device_id": "dev-43"})
	assert.Equal(t, "session_busy", expect(t, ws, "error")["error"])
}

func TestInputReachesSession(t *testing.T) {
	e := newEnv(t, nil)
	ws := e.dial(t, "a")
	expect(t, ws, "state")

	send(t, ws, map[string]any{"type": "start", "device_id": "dev-42"})
	expect(t, ws, "state")
	require.Eventually(t, func() bool { return e.last() != nil }, time.Second, 5*time.Millisecond)
	tr := e.last()
	require.Eventually(t, func() bool {
		return e.orch.Session.State() == "negotiating"
	}, time.Second, 5*time.Millisecond)
	tr.connect()
	assert.Equal(t, "connected", expect(t, ws, "state")["session"].(map[string]any)["state"])

	send(t, ws, map[string]any{"type": "surface", "left": 0, "top": 0, "width": 200, "height": 100})
	send(t, ws, map[string]any{"type": "pointer", "action": "down", "button": 2, "clientX": 100, "clientY": 50})
	send(t, ws, map[string]any{"type": "key", "down": true, "key": "a", "code": "KeyA"})

	require.Eventually(t, func() bool { return len(tr.channel.frames()) == 2 }, time.Second, 5*time.Millisecond)
	frames := tr.channel.frames()

	msg, err := input.Decode(frames[0])
	require.NoError(t, err)
	assert.Equal(t, input.OpMouseDown, msg.Op)
	assert.EqualValues(t, 2, msg.Button)
	assert.InDelta(t, 0.5, msg.X, 1e-4)
	assert.InDelta(t, 0.5, msg.Y, 1e-4)

	msg, err = input.Decode(frames[1])
	require.NoError(t, err)
	assert.Equal(t, input.OpKeyDown, msg.Op)
	assert.Contains(t, msg.Descriptor, `"code":"KeyA"`)
}

func TestFullscreenToggleRoundTrip(t *testing.T) {
	e := newEnv(t, nil)
	ws := e.dial(t, "a")
	expect(t, ws, "state")

	send(t, ws, map[string]any{"type": "fullscreen_toggle"})
	assert.Equal(t, true, expect(t, ws, "fullscreen")["enter"])

	send(t, ws, map[string]any{"type": "fullscreenchange", "active": true})
	send(t, ws, map[string]any{"type": "fullscreen_toggle"})
	assert.Equal(t, false, expect(t, ws, "fullscreen")["enter"])
}

func TestForwardingToggle(t *testing.T) {
	e := newEnv(t, nil)
	ws := e.dial(t, "a")
	expect(t, ws, "state")

	send(t, ws, map[string]any{"type": "forwarding", "enabled": false})
	assert.Equal(t, false, expect(t, ws, "state")["session"].(map[string]any)["forwarding"])
	assert.False(t, e.orch.Session.Forwarding())

	send(t, ws, map[string]any{"type": "forwarding"})
	assert.Equal(t, "bad_payload", expect(t, ws, "error")["error"])
}

func TestReconnectReplacesConnection(t *testing.T) {
	e := newEnv(t, nil)
	first := e.dial(t, "a")
	expect(t, first, "state")
	second := e.dial(t, "a")
	expect(t, second, "state")

	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := first.ReadMessage(); err != nil {
			break
		}
	}
	assert.Eventually(t, func() bool { return e.orch.Registry.Len() == 1 }, time.Second, 5*time.Millisecond)

	send(t, second, map[string]any{"type": "ping"})
	expect(t, second, "pong")
}
