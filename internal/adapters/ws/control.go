package ws

import "dmrelay/internal/app"

type pongEvent struct {
	Type string `json:"type"`
}

func (ctl *Controller) handlePing(c *wsConn) {
	ctl.sendFrame(c, app.Encode(pongEvent{Type: app.EvtPong}))
}
