package ws

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"dmrelay/internal/app"
	"dmrelay/internal/domain"
)

type messagePayload struct {
	Type        string   `json:"type"`
	FromUserID  string   `json:"fromUserId" validate:"required"`
	ToUserID    string   `json:"toUserId" validate:"required"`
	Content     string   `json:"content"`
	Attachments []string `json:"attachments"`
}

// handleMessageSend is the only handler with a client-visible failure:
// a persistence error comes back as message:failed so the client may retry.
// Validation drops stay silent.
func (ctl *Controller) handleMessageSend(ctx context.Context, cid domain.ConnID, uid domain.UserID, c *wsConn, data []byte) {
	var p messagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "ws").Str("conn", string(cid)).Msg("bad message payload, dropped")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		log.Warn().Err(err).Str("module", "ws").Str("conn", string(cid)).Msg("invalid message payload, dropped")
		return
	}
	if !ctl.limiter.Allow(uid) {
		log.Warn().Str("module", "ws").Str("user", string(uid)).Msg("send rate limited, dropped")
		return
	}

	draft := domain.Draft{
		From:        domain.UserID(p.FromUserID),
		To:          domain.UserID(p.ToUserID),
		Content:     p.Content,
		Attachments: p.Attachments,
	}
	_, err := ctl.Messages.Send(ctx, cid, uid, draft)
	if err == nil {
		return
	}
	var dropped app.ErrDropped
	if errors.As(err, &dropped) {
		return
	}
	ctl.sendFrame(c, app.Encode(app.MessageFailedEvent{Type: app.EvtMessageFailed, Reason: "persistence_failed"}))
}
