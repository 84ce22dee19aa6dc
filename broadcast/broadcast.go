// broadcast/broadcast.go
package broadcast

import (
	"errors"

	"github.com/wfunc/betroom/session"
)

var (
	ErrSessionNotFound = errors.New("session not found")
)

// Broadcaster fans messages out to connected participants. The room
// package consumes the participant-set form through its own interface.
type Broadcaster interface {
	BroadcastToParticipants(participantIDs []string, msgID uint16, data []byte) error
	BroadcastToAll(msgID uint16, data []byte) error
	SendToParticipant(participantID string, msgID uint16, data []byte) error
}

// SessionBroadcaster resolves participant ids against the session manager.
// Participant ids are session ids, so delivery is a direct lookup; dead
// connections are skipped, not fatal.
type SessionBroadcaster struct {
	sessionManager *session.Manager
}

func NewSessionBroadcaster(sessionManager *session.Manager) *SessionBroadcaster {
	return &SessionBroadcaster{
		sessionManager: sessionManager,
	}
}

func (b *SessionBroadcaster) BroadcastToParticipants(participantIDs []string, msgID uint16, data []byte) error {
	for _, id := range participantIDs {
		s, exists := b.sessionManager.Get(id)
		if !exists {
			continue
		}
		if err := s.Send(msgID, data); err != nil {
			// The read loop notices broken connections; skip here.
			continue
		}
	}
	return nil
}

func (b *SessionBroadcaster) SendToParticipant(participantID string, msgID uint16, data []byte) error {
	s, exists := b.sessionManager.Get(participantID)
	if !exists {
		return ErrSessionNotFound
	}
	return s.Send(msgID, data)
}

func (b *SessionBroadcaster) BroadcastToAll(msgID uint16, data []byte) error {
	for _, s := range b.sessionManager.All() {
		if err := s.Send(msgID, data); err != nil {
			continue
		}
	}
	return nil
}
