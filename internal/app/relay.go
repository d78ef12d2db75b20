package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"dmrelay/internal/core"
	"dmrelay/internal/domain"
)

// DropReason tags a validation failure that is silently ignored on the wire
// but observable through the drop hook.
type DropReason string

const (
	DropSpoofedSender DropReason = "spoofed_sender"
	DropEmptyMessage  DropReason = "empty_message"
	DropBadChannel    DropReason = "bad_channel"
)

// ErrDropped marks a send that was discarded by validation. The ws adapter
// must not surface it to the client.
type ErrDropped struct {
	Reason DropReason
}

func (e ErrDropped) Error() string { return "message dropped: " + string(e.Reason) }

// DropHook lets tests and metrics observe silent drops.
type DropHook func(reason DropReason, uid domain.UserID)

// MessageRelay validates an outgoing message, persists it, then broadcasts
// to the channel's current subscribers. Persist-before-broadcast is the
// ordering guarantee: nothing reaches a client unless the store took it.
type MessageRelay struct {
	Store   core.MessageStore
	Members *core.Membership
	Roster  *Roster
	OnDrop  DropHook
}

func (r *MessageRelay) Send(ctx context.Context, cid domain.ConnID, bound domain.UserID, draft domain.Draft) (domain.Message, error) {
	if draft.From != bound {
		return domain.Message{}, r.drop(DropSpoofedSender, bound)
	}
	if err := draft.Normalize(); err != nil {
		return domain.Message{}, r.drop(DropEmptyMessage, bound)
	}
	ch, err := domain.NewChannelID(draft.From, draft.To)
	if err != nil {
		return domain.Message{}, r.drop(DropBadChannel, bound)
	}

	// A user sending a message is always a member of that message's channel.
	if !r.Members.IsMember(cid, ch) {
		r.Members.Join(cid, ch)
	}

	msg, err := r.Store.Append(ctx, ch, draft)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Str("channel", string(ch)).Msg("persist failed, no broadcast")
		return domain.Message{}, fmt.Errorf("persist message: %w", err)
	}

	frame := Encode(MessageEvent{Type: EvtMessageNew, Message: msg})
	sent := r.Roster.BroadcastTo(r.Members.Subscribers(ch), "", frame)
	log.Debug().Str("module", "app.relay").Str("channel", string(ch)).Str("id", string(msg.ID)).Int("sent_to", sent).Msg("message relayed")
	return msg, nil
}

func (r *MessageRelay) drop(reason DropReason, uid domain.UserID) error {
	log.Warn().Str("module", "app.relay").Str("reason", string(reason)).Str("user", string(uid)).Msg("message dropped")
	if r.OnDrop != nil {
		r.OnDrop(reason, uid)
	}
	return ErrDropped{Reason: reason}
}

// TypingRelay forwards ephemeral typing signals to the channel, excluding
// the origin connection. Nothing is persisted.
type TypingRelay struct {
	Members *core.Membership
	Roster  *Roster
	OnDrop  DropHook
}

func (r *TypingRelay) Signal(cid domain.ConnID, self, other domain.UserID, isTyping bool) error {
	ch, err := domain.NewChannelID(self, other)
	if err != nil {
		log.Warn().Str("module", "app.relay").Str("user", string(self)).Msg("typing signal dropped")
		if r.OnDrop != nil {
			r.OnDrop(DropBadChannel, self)
		}
		return ErrDropped{Reason: DropBadChannel}
	}
	sig := domain.TypingSignal{UserID: self, ChannelID: ch, IsTyping: isTyping}
	r.Roster.BroadcastTo(r.Members.Subscribers(ch), cid, Encode(TypingEvent{Type: EvtUserTyping, TypingSignal: sig}))
	return nil
}
