package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"dmrelay/internal/domain"
)

// Membership is a threadsafe in-memory subscription table.
// It relates live connections to channels, never users: a reconnect starts
// with zero memberships and must re-join explicitly.
type Membership struct {
	mu        sync.RWMutex
	byChannel map[domain.ChannelID]map[domain.ConnID]struct{}
	byConn    map[domain.ConnID]map[domain.ChannelID]struct{}
}

func NewMembership() *Membership {
	return &Membership{
		byChannel: make(map[domain.ChannelID]map[domain.ConnID]struct{}),
		byConn:    make(map[domain.ConnID]map[domain.ChannelID]struct{}),
	}
}

// Join is idempotent; it reports whether the connection was newly added.
func (m *Membership) Join(cid domain.ConnID, ch domain.ChannelID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byChannel[ch][cid]; ok {
		return false
	}
	if m.byChannel[ch] == nil {
		m.byChannel[ch] = make(map[domain.ConnID]struct{})
	}
	m.byChannel[ch][cid] = struct{}{}
	if m.byConn[cid] == nil {
		m.byConn[cid] = make(map[domain.ChannelID]struct{})
	}
	m.byConn[cid][ch] = struct{}{}
	log.Info().Str("module", "core.membership").Str("conn", string(cid)).Str("channel", string(ch)).Msg("joined channel")
	return true
}

// Leave is a no-op if the connection is not a member.
func (m *Membership) Leave(cid domain.ConnID, ch domain.ChannelID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drop(cid, ch)
}

// ReleaseAll drops every membership held by the connection and returns the
// channels it left. Invoked solely on the supervisor's termination path.
func (m *Membership) ReleaseAll(cid domain.ConnID) []domain.ChannelID {
	m.mu.Lock()
	defer m.mu.Unlock()
	channels := make([]domain.ChannelID, 0, len(m.byConn[cid]))
	for ch := range m.byConn[cid] {
		channels = append(channels, ch)
	}
	for _, ch := range channels {
		m.drop(cid, ch)
	}
	if len(channels) > 0 {
		log.Info().Str("module", "core.membership").Str("conn", string(cid)).Int("channels", len(channels)).Msg("released all memberships")
	}
	return channels
}

func (m *Membership) IsMember(cid domain.ConnID, ch domain.ChannelID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byChannel[ch][cid]
	return ok
}

// Subscribers returns the current subscriber set of a channel.
func (m *Membership) Subscribers(ch domain.ChannelID) []domain.ConnID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.ConnID, 0, len(m.byChannel[ch]))
	for cid := range m.byChannel[ch] {
		out = append(out, cid)
	}
	return out
}

// drop assumes m.mu is held for writing.
func (m *Membership) drop(cid domain.ConnID, ch domain.ChannelID) {
	if conns, ok := m.byChannel[ch]; ok {
		delete(conns, cid)
		if len(conns) == 0 {
			delete(m.byChannel, ch)
		}
	}
	if channels, ok := m.byConn[cid]; ok {
		delete(channels, ch)
		if len(channels) == 0 {
			delete(m.byConn, cid)
		}
	}
}
