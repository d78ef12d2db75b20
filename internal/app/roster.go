package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"dmrelay/internal/core"
	"dmrelay/internal/domain"
)

type rosterEntry struct {
	UserID domain.UserID
	Conn   core.Conn
}

// Roster is the process-wide table of live connections. Presence broadcasts
// fan out through it, and channel broadcasts resolve ConnID -> Conn here.
type Roster struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]rosterEntry
}

func NewRoster() *Roster {
	return &Roster{conns: make(map[domain.ConnID]rosterEntry)}
}

func (r *Roster) Add(cid domain.ConnID, uid domain.UserID, conn core.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[cid] = rosterEntry{UserID: uid, Conn: conn}
	log.Info().Str("module", "app.roster").Str("conn", string(cid)).Str("user", string(uid)).Msg("connection added")
}

func (r *Roster) Remove(cid domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, cid)
	log.Info().Str("module", "app.roster").Str("conn", string(cid)).Msg("connection removed")
}

func (r *Roster) Get(cid domain.ConnID) (core.Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[cid]
	if !ok {
		return nil, false
	}
	return e.Conn, true
}

// Send delivers a frame to one connection; drops are counted by the conn.
func (r *Roster) Send(cid domain.ConnID, f core.Frame) {
	if conn, ok := r.Get(cid); ok {
		_ = conn.TrySend(f)
	}
}

// BroadcastAll sends a frame to every live connection except the origin.
func (r *Roster) BroadcastAll(from domain.ConnID, f core.Frame) {
	r.mu.RLock()
	snapshot := make([]core.Conn, 0, len(r.conns))
	for cid, e := range r.conns {
		if cid == from {
			continue
		}
		snapshot = append(snapshot, e.Conn)
	}
	r.mu.RUnlock()
	for _, conn := range snapshot {
		_ = conn.TrySend(f)
	}
}

// BroadcastTo sends a frame to the given connections, optionally skipping one.
func (r *Roster) BroadcastTo(cids []domain.ConnID, skip domain.ConnID, f core.Frame) int {
	sent := 0
	for _, cid := range cids {
		if cid == skip {
			continue
		}
		conn, ok := r.Get(cid)
		if !ok {
			continue
		}
		if err := conn.TrySend(f); err != nil {
			log.Warn().Str("module", "app.roster").Str("conn", string(cid)).Err(err).Msg("broadcast send dropped")
			continue
		}
		sent++
	}
	return sent
}
