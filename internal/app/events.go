package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"dmrelay/internal/core"
	"dmrelay/internal/domain"
)

// Server->client event types.
const (
	EvtUserOnline    = "user:online"
	EvtUserOffline   = "user:offline"
	EvtPresenceState = "presence:state"
	EvtUserTyping    = "user:typing"
	EvtMessageNew    = "message:new"
	EvtMessageFailed = "message:failed"
	EvtPong          = "pong"
)

type PresenceEvent struct {
	Type   string        `json:"type"`
	UserID domain.UserID `json:"userId"`
}

type PresenceStateEvent struct {
	Type    string          `json:"type"`
	UserIDs []domain.UserID `json:"userIds"`
}

type TypingEvent struct {
	Type string `json:"type"`
	domain.TypingSignal
}

type MessageEvent struct {
	Type    string         `json:"type"`
	Message domain.Message `json:"message"`
}

type MessageFailedEvent struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// Encode marshals an event into a wire frame. Marshal of our own structs
// cannot fail; a nil frame is returned only on programmer error.
func Encode(v any) core.Frame {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.events").Msg("encode event")
		return nil
	}
	return core.Frame(b)
}
