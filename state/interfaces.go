// state/interfaces.go
package state

import (
	"github.com/wfunc/betroom/models"
)

// RoomContext defines the interface a Room must implement to host a game
// machine. This breaks the import cycle between room and state.
//
// Every method is invoked with the room's mutex already held; the room is
// the single serialization point for all mutations of its game.
type RoomContext interface {
	GetID() string
	GetName() string
	Rules() models.RoomRules

	// GetParticipants returns the live participant mapping. The machine
	// filters turn order against it at dispatch time, so departures take
	// effect on the very next turn.
	GetParticipants() map[string]*Participant

	// SetStatus mirrors the game phase onto the room's lifecycle state.
	SetStatus(phase Phase)

	// Broadcast marshals v and delivers it to every participant.
	Broadcast(msgID uint16, v interface{}) error

	// RecordResult hands a finished game to the persistence collaborator.
	RecordResult(record models.GameRecord)
}
