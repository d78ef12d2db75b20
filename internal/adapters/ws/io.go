package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"dmrelay/internal/core"
	"dmrelay/internal/domain"
)

const writeTimeout = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, cancel context.CancelFunc, c *wsConn) {
	ticker := time.NewTicker(ctl.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		c.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump drains the socket and dispatches events. Its exit is the single
// termination path: cleanup here must run no matter how the connection died.
func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, cid domain.ConnID, uid domain.UserID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "ws").Str("conn", string(cid)).Msg("readPump closing")
		cancel()
		c.Close()
		ctl.Sup.Terminate(cid, uid)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				return
			}
			ctl.dispatch(ctx, cid, uid, c, data)
		}
	}
}

// Client->server event types.
const (
	evtAnnouncePresence = "announce-presence"
	evtLeavePresence    = "leave-presence"
	evtChannelJoin      = "channel-join"
	evtChannelLeave     = "channel-leave"
	evtMessageSend      = "message-send"
	evtTypingStart      = "typing-start"
	evtTypingStop       = "typing-stop"
	evtPing             = "ping"
)

func (ctl *Controller) dispatch(ctx context.Context, cid domain.ConnID, uid domain.UserID, c *wsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "ws").Str("conn", string(cid)).Msg("bad json, dropped")
		return
	}

	switch env.Type {
	case evtAnnouncePresence:
		ctl.Sup.AnnouncePresence(cid, uid)
	case evtLeavePresence:
		ctl.Sup.LeavePresence(cid, uid)
	case evtChannelJoin:
		ctl.handleChannelJoin(cid, uid, data)
	case evtChannelLeave:
		ctl.handleChannelLeave(cid, uid, data)
	case evtMessageSend:
		ctl.handleMessageSend(ctx, cid, uid, c, data)
	case evtTypingStart:
		ctl.handleTyping(cid, uid, data, true)
	case evtTypingStop:
		ctl.handleTyping(cid, uid, data, false)
	case evtPing:
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "ws").Str("type", env.Type).Msg("unknown event")
	}
}

func (ctl *Controller) sendFrame(c *wsConn, f core.Frame) {
	_ = c.TrySend(f)
}
