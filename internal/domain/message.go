package domain

import (
	"errors"
	"strings"
	"time"
)

const MaxContentLen = 4096

var ErrEmptyMessage = errors.New("message has no content and no attachments")

type MessageID string

// Message is one delivered chat message. Immutable once persisted;
// ID and CreatedAt are assigned by the store.
type Message struct {
	ID          MessageID `json:"id"`
	ChannelID   ChannelID `json:"channelId"`
	From        UserID    `json:"fromUserId"`
	To          UserID    `json:"toUserId"`
	Content     string    `json:"content"`
	Attachments []string  `json:"attachments,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Draft is what a client hands in; the relay derives the channel and the
// store fills in identity fields.
type Draft struct {
	From        UserID
	To          UserID
	Content     string
	Attachments []string
}

// Normalize trims the content and checks the draft carries anything at all.
// Content may be blank only when at least one attachment is present.
func (d *Draft) Normalize() error {
	d.Content = strings.TrimSpace(d.Content)
	if len(d.Content) > MaxContentLen {
		d.Content = d.Content[:MaxContentLen]
	}
	if d.Content == "" && len(d.Attachments) == 0 {
		return ErrEmptyMessage
	}
	return nil
}

// TypingSignal is ephemeral: it exists only in flight, never in storage.
type TypingSignal struct {
	UserID    UserID    `json:"userId"`
	ChannelID ChannelID `json:"-"`
	IsTyping  bool      `json:"isTyping"`
}
