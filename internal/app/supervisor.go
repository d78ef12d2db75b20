package app

import (
	"github.com/rs/zerolog/log"

	"dmrelay/internal/core"
	"dmrelay/internal/domain"
)

// Supervisor owns the lifecycle of live connections: activation after a
// verified handshake, explicit presence events, channel join/leave, and the
// unconditional cleanup path on transport termination.
type Supervisor struct {
	Presence *core.Presence
	Members  *core.Membership
	Roster   *Roster
}

// Activate registers an authenticated connection and performs the implicit
// presence announce, so a client never appears connected-but-invisible.
// The replaced connection of the same user, if any, is force-closed.
func (s *Supervisor) Activate(cid domain.ConnID, uid domain.UserID, conn core.Conn) {
	s.Roster.Add(cid, uid, conn)
	s.AnnouncePresence(cid, uid)

	// Who-is-online snapshot straight after activation.
	s.Roster.Send(cid, Encode(PresenceStateEvent{Type: EvtPresenceState, UserIDs: s.Presence.Snapshot()}))
}

// AnnouncePresence marks the user online and broadcasts availability to all
// other connections.
func (s *Supervisor) AnnouncePresence(cid domain.ConnID, uid domain.UserID) {
	_, prev, replaced := s.Presence.MarkOnline(uid, cid)
	if replaced && prev.ConnID != cid {
		// Last writer wins: orphan the previous transport instead of leaking it.
		if old, ok := s.Roster.Get(prev.ConnID); ok {
			old.Close()
		}
		s.Roster.Remove(prev.ConnID)
		s.Members.ReleaseAll(prev.ConnID)
		log.Info().Str("module", "app.supervisor").Str("user", string(uid)).Str("old_conn", string(prev.ConnID)).Msg("orphaned replaced connection")
	}
	s.Roster.BroadcastAll(cid, Encode(PresenceEvent{Type: EvtUserOnline, UserID: uid}))
}

// LeavePresence marks the user offline without dropping the connection.
func (s *Supervisor) LeavePresence(cid domain.ConnID, uid domain.UserID) {
	if s.Presence.MarkOffline(uid, cid) {
		s.Roster.BroadcastAll(cid, Encode(PresenceEvent{Type: EvtUserOffline, UserID: uid}))
	}
}

// JoinChannel subscribes the connection to the pair channel of the bound
// user and the counterpart. Idempotent.
func (s *Supervisor) JoinChannel(cid domain.ConnID, self, other domain.UserID) error {
	ch, err := domain.NewChannelID(self, other)
	if err != nil {
		return err
	}
	s.Members.Join(cid, ch)
	return nil
}

// LeaveChannel is a no-op if the connection is not a member.
func (s *Supervisor) LeaveChannel(cid domain.ConnID, self, other domain.UserID) error {
	ch, err := domain.NewChannelID(self, other)
	if err != nil {
		return err
	}
	s.Members.Leave(cid, ch)
	return nil
}

// Terminate runs on every transport close, graceful or not. It must not
// depend on a prior leave-presence event and must never be skipped.
func (s *Supervisor) Terminate(cid domain.ConnID, uid domain.UserID) {
	if s.Presence.MarkOffline(uid, cid) {
		s.Roster.BroadcastAll(cid, Encode(PresenceEvent{Type: EvtUserOffline, UserID: uid}))
	}
	s.Members.ReleaseAll(cid)
	s.Roster.Remove(cid)
	log.Info().Str("module", "app.supervisor").Str("conn", string(cid)).Str("user", string(uid)).Msg("connection terminated")
}
