package control

func (ctl *ControlWSController) handlePing(
	conn *WsViewerConn,
) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(conn, resp)
}
