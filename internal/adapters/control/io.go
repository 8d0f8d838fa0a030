package control

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *ControlWSController) writePump(ctx context.Context, c *WsViewerConn) {
	var ping <-chan time.Time
	if ctl.cfg.PingPeriod > 0 {
		ticker := time.NewTicker(ctl.cfg.PingPeriod)
		defer ticker.Stop()
		ping = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "control").Msg("writePump ctx done")
			return
		case <-ping:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "control").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "control").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "control").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "control").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *ControlWSController) readPump(ctx context.Context, cancel context.CancelFunc, v *viewer) {
	defer func() {
		log.Info().Str("module", "control").Str("sid", string(v.sid)).Msg("readPump closing")
		cancel()
		v.conn.Close()
		ctl.Orch.Detach(v.sid, v.sess)
	}()

	if ctl.cfg.PingPeriod > 0 {
		pongWait := ctl.cfg.PingPeriod * 10 / 9
		_ = v.conn.conn.SetReadDeadline(time.Now().Add(pongWait))
		v.conn.conn.SetPongHandler(func(string) error {
			return v.conn.conn.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "control").Str("sid", string(v.sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := v.conn.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "control").Str("sid", string(v.sid)).Msg("readPump read error")
				}
				return
			}
			ctl.handleMessage(v, data)
		}
	}
}

func (ctl *ControlWSController) handleMessage(v *viewer, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "control").Msg("bad json")
		ctl.sendError(v.conn, "bad_payload")
		return
	}

	switch env.Type {
	case "ping":
		ctl.handlePing(v.conn)
	case "whoami":
		ctl.handleWhoAmI(v.sid, v.conn)
	case "rename":
		ctl.handleRename(v.sid, v.conn, data)
	case "start":
		ctl.handleStart(v, data)
	case "stop":
		ctl.handleStop(v.sid)
	case "forwarding":
		ctl.handleForwarding(v.conn, data)
	case "surface":
		ctl.handleSurface(v, data)
	case "pointer":
		ctl.handlePointer(v, data)
	case "wheel":
		ctl.handleWheel(v, data)
	case "key":
		ctl.handleKey(v, data)
	case "fullscreen_toggle":
		ctl.handleFullscreenToggle(v)
	case "fullscreenchange":
		ctl.handleFullscreenChange(v, data)
	default:
		log.Warn().Str("module", "control").Str("type", env.Type).Msg("unknown message")
		ctl.sendError(v.conn, "unknown_type")
	}
}

func (ctl *ControlWSController) sendJSON(c *WsViewerConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "control").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *ControlWSController) sendError(c *WsViewerConn, code string) {
	ctl.sendJSON(c, map[string]any{
		"type":  "error",
		"error": code,
	})
}
