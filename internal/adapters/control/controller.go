// Package control serves the viewer control surface over a websocket.
package control

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Desk/internal/app/orch"
	"github.com/dkeye/Desk/internal/core"
)

var ErrConnClosed = errors.New("connection closed")

const (
	defaultSendBuffer = 32
	writeWait         = 5 * time.Second
)

type Config struct {
	ReadLimit  int64
	PingPeriod time.Duration
	SendBuffer int
}

type ControlWSController struct {
	Orch    *orch.Orchestrator
	Limiter *StartRateLimiter
	cfg     Config
}

func NewControlWSController(o *orch.Orchestrator, limiter *StartRateLimiter, cfg Config) *ControlWSController {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	return &ControlWSController{Orch: o, Limiter: limiter, cfg: cfg}
}

// WsViewerConn queues frames for the write pump. TrySend never blocks.
type WsViewerConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsViewerConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsViewerConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleControl upgrades the request and runs the viewer until either side
// goes away. ctx bounds session starts issued by this viewer.
func (ctl *ControlWSController) HandleControl(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(c.GetString("client_token"))
	log.Info().Str("module", "control").Str("sid", string(sid)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "control").Msg("ws upgrade")
		return
	}
	if ctl.cfg.ReadLimit > 0 {
		ws.SetReadLimit(ctl.cfg.ReadLimit)
	}

	conn := &WsViewerConn{
		conn: ws,
		send: make(chan core.Frame, ctl.cfg.SendBuffer),
	}

	connCtx, cancel := context.WithCancel(ctx)
	sess := ctl.Orch.Attach(sid, conn, cancel)
	ctl.handleWhoAmI(sid, conn)
	ctl.sendJSON(conn, orch.NewStateMessage(ctl.Orch.Info()))

	v := &viewer{sid: sid, sess: sess, conn: conn, ctx: ctx}
	go ctl.writePump(connCtx, conn)
	go ctl.readPump(connCtx, cancel, v)
}

// viewer is the per-connection state the read pump dispatches with.
type viewer struct {
	sid  core.SessionID
	sess core.ViewerSession
	conn *WsViewerConn
	// ctx outlives the connection; session starts run under it.
	ctx context.Context
}
