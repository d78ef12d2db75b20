package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"dmrelay/internal/core"
	"dmrelay/internal/domain"
)

var errStoreDown = errors.New("store unavailable")

// fakeConn records every frame it is handed.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("closed")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// events decodes the recorded frames into generic maps.
func (c *fakeConn) events() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		if err := json.Unmarshal(f, &m); err != nil {
			panic(err)
		}
		out = append(out, m)
	}
	return out
}

// eventsOfType filters the recorded events by their type discriminator.
func (c *fakeConn) eventsOfType(typ string) []map[string]any {
	var out []map[string]any
	for _, e := range c.events() {
		if e["type"] == typ {
			out = append(out, e)
		}
	}
	return out
}

// fakeStore is an in-memory MessageStore with a failure switch.
type fakeStore struct {
	mu       sync.Mutex
	fail     bool
	seq      int
	appended []domain.Message
}

func (s *fakeStore) Append(_ context.Context, ch domain.ChannelID, draft domain.Draft) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return domain.Message{}, errStoreDown
	}
	s.seq++
	msg := domain.Message{
		ID:          domain.MessageID(fmt.Sprintf("m-%d", s.seq)),
		ChannelID:   ch,
		From:        draft.From,
		To:          draft.To,
		Content:     draft.Content,
		Attachments: draft.Attachments,
		CreatedAt:   time.Now().UTC(),
	}
	s.appended = append(s.appended, msg)
	return msg, nil
}

func (s *fakeStore) Query(_ context.Context, ch domain.ChannelID) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Message
	for _, m := range s.appended {
		if m.ChannelID == ch {
			out = append(out, m)
		}
	}
	return out, nil
}

// harness wires the app layer around fakes.
type harness struct {
	store    *fakeStore
	presence *core.Presence
	members  *core.Membership
	roster   *Roster
	sup      *Supervisor
	messages *MessageRelay
	typing   *TypingRelay
	drops    []DropReason
}

func newHarness() *harness {
	h := &harness{
		store:    &fakeStore{},
		presence: core.NewPresence(),
		members:  core.NewMembership(),
		roster:   NewRoster(),
	}
	hook := func(reason DropReason, _ domain.UserID) {
		h.drops = append(h.drops, reason)
	}
	h.sup = &Supervisor{Presence: h.presence, Members: h.members, Roster: h.roster}
	h.messages = &MessageRelay{Store: h.store, Members: h.members, Roster: h.roster, OnDrop: hook}
	h.typing = &TypingRelay{Members: h.members, Roster: h.roster, OnDrop: hook}
	return h
}

func (h *harness) connect(cid domain.ConnID, uid domain.UserID) *fakeConn {
	conn := &fakeConn{}
	h.sup.Activate(cid, uid, conn)
	return conn
}
