package room

// Broadcaster delivers a framed message to a set of participants. Defined
// here to break the import cycle between room and broadcast. The room
// resolves participant ids itself so the broadcaster never needs to take
// a room lock.
type Broadcaster interface {
	BroadcastToParticipants(participantIDs []string, msgID uint16, data []byte) error
}
