package core

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"dmrelay/internal/domain"
)

// PresenceEntry records one user's current reachability.
type PresenceEntry struct {
	UserID     domain.UserID
	ConnID     domain.ConnID
	LastSeenAt time.Time
}

// Presence holds at most one entry per user. A new connection for the same
// user replaces the old entry (last writer wins); the replaced entry is
// returned so the caller can orphan the previous transport.
type Presence struct {
	mu     sync.RWMutex
	byUser map[domain.UserID]PresenceEntry
	now    func() time.Time
}

func NewPresence() *Presence {
	return &Presence{
		byUser: make(map[domain.UserID]PresenceEntry),
		now:    time.Now,
	}
}

func (p *Presence) MarkOnline(uid domain.UserID, cid domain.ConnID) (entry PresenceEntry, prev PresenceEntry, replaced bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prev, replaced = p.byUser[uid]
	entry = PresenceEntry{UserID: uid, ConnID: cid, LastSeenAt: p.now().UTC()}
	p.byUser[uid] = entry
	log.Info().Str("module", "core.presence").Str("user", string(uid)).Str("conn", string(cid)).Bool("replaced", replaced).Msg("marked online")
	return entry, prev, replaced
}

// MarkOffline removes the user's entry only when cid is the connection on
// record. A stale socket's late cleanup must not evict its replacement.
// No-op, not an error, if the user is absent.
func (p *Presence) MarkOffline(uid domain.UserID, cid domain.ConnID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.byUser[uid]
	if !ok || entry.ConnID != cid {
		return false
	}
	delete(p.byUser, uid)
	log.Info().Str("module", "core.presence").Str("user", string(uid)).Str("conn", string(cid)).Msg("marked offline")
	return true
}

func (p *Presence) IsOnline(uid domain.UserID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.byUser[uid]
	return ok
}

// Snapshot answers "who is online" at connection start.
func (p *Presence) Snapshot() []domain.UserID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.UserID, 0, len(p.byUser))
	for uid := range p.byUser {
		out = append(out, uid)
	}
	return out
}
