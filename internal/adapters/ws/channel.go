package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"dmrelay/internal/domain"
)

type channelPayload struct {
	Type        string `json:"type"`
	OtherUserID string `json:"otherUserId" validate:"required"`
}

func (ctl *Controller) handleChannelJoin(cid domain.ConnID, uid domain.UserID, data []byte) {
	var p channelPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "ws").Msg("bad channel-join payload, dropped")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		log.Warn().Err(err).Str("module", "ws").Msg("invalid channel-join payload, dropped")
		return
	}
	if err := ctl.Sup.JoinChannel(cid, uid, domain.UserID(p.OtherUserID)); err != nil {
		log.Warn().Err(err).Str("module", "ws").Str("conn", string(cid)).Msg("channel-join dropped")
	}
}

func (ctl *Controller) handleChannelLeave(cid domain.ConnID, uid domain.UserID, data []byte) {
	var p channelPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "ws").Msg("bad channel-leave payload, dropped")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		log.Warn().Err(err).Str("module", "ws").Msg("invalid channel-leave payload, dropped")
		return
	}
	if err := ctl.Sup.LeaveChannel(cid, uid, domain.UserID(p.OtherUserID)); err != nil {
		log.Warn().Err(err).Str("module", "ws").Str("conn", string(cid)).Msg("channel-leave dropped")
	}
}

type typingPayload struct {
	Type        string `json:"type"`
	OtherUserID string `json:"otherUserId" validate:"required"`
	IsTyping    bool   `json:"isTyping"`
}

// handleTyping forwards an ephemeral signal. The sender identity is always
// the connection's bound user; the payload cannot speak for someone else.
func (ctl *Controller) handleTyping(cid domain.ConnID, uid domain.UserID, data []byte, isTyping bool) {
	var p typingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "ws").Msg("bad typing payload, dropped")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		log.Warn().Err(err).Str("module", "ws").Msg("invalid typing payload, dropped")
		return
	}
	_ = ctl.Typing.Signal(cid, uid, domain.UserID(p.OtherUserID), isTyping)
}
