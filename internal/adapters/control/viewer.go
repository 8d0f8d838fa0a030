package control

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Desk/internal/core"
)

func (ctl *ControlWSController) handleRename(
	sid core.SessionID,
	conn *WsViewerConn,
	data []byte,
) {
	type renamePayload struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	var p renamePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "control").Msg("bad rename payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	log.Info().Str("module", "control").Str("sid", string(sid)).Str("name", p.Name).Msg("rename")
	if _, err := ctl.Orch.Rename(sid, p.Name); err != nil {
		ctl.sendError(conn, "invalid_name")
		return
	}
	ctl.handleWhoAmI(sid, conn)
}

func (ctl *ControlWSController) handleWhoAmI(
	sid core.SessionID,
	conn *WsViewerConn,
) {
	v := ctl.Orch.WhoAmI(sid)

	resp := struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	}{
		Type: "whoami",
		ID:   string(v.ID),
		Name: v.Name,
	}
	ctl.sendJSON(conn, resp)
}
