package core

import (
	"context"

	"dmrelay/internal/domain"
)

// Frame is an encoded server->client event, ready for the wire.
type Frame []byte

// Conn abstracts the transport endpoint (WebSocket).
// Owned by the adapter; the adapter must Close() it.
type Conn interface {
	TrySend(Frame) error
	Close()
}

// MessageStore is the persistence collaborator. Append must assign the
// message id and timestamp; Query returns a channel's messages oldest first.
type MessageStore interface {
	Append(ctx context.Context, ch domain.ChannelID, draft domain.Draft) (domain.Message, error)
	Query(ctx context.Context, ch domain.ChannelID) ([]domain.Message, error)
}
