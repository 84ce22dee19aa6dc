// models/events.go
package models

// Broadcast payloads delivered to every participant of a room. Each maps
// to one outbound message type in the network package.

// MemberEvent announces a membership change.
type MemberEvent struct {
	RoomID        string `json:"room_id"`
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	Change        string `json:"change"` // joined/left/disconnected
	HostID        string `json:"host_id"`
	Count         int    `json:"count"`
}

// PhaseChangedEvent carries the full snapshot at every phase edge.
type PhaseChangedEvent struct {
	RoomID       string                `json:"room_id"`
	Phase        string                `json:"phase"`
	Game         GameSnapshot          `json:"game"`
	Participants []ParticipantSnapshot `json:"participants"`
}

// BetPlacedEvent announces an accepted bet.
type BetPlacedEvent struct {
	RoomID        string `json:"room_id"`
	ParticipantID string `json:"participant_id"`
	Amount        int64  `json:"amount"`
}

// TurnStartedEvent announces whose turn just began.
type TurnStartedEvent struct {
	RoomID        string `json:"room_id"`
	ParticipantID string `json:"participant_id"`
	TurnIndex     int    `json:"turn_index"`
}

// ActionResultEvent announces a resolved action.
type ActionResultEvent struct {
	RoomID        string      `json:"room_id"`
	ParticipantID string      `json:"participant_id"`
	Action        string      `json:"action"`
	Gain          int64       `json:"gain,omitempty"`
	Data          interface{} `json:"data,omitempty"`
}

// RoundResultEvent announces round settlement. WinnerID is empty when
// every participant folded and the pot went undistributed.
type RoundResultEvent struct {
	RoomID       string                `json:"room_id"`
	Round        int                   `json:"round"`
	WinnerID     string                `json:"winner_id,omitempty"`
	Pot          int64                 `json:"pot"`
	Participants []ParticipantSnapshot `json:"participants"`
}

// BetweenRoundsEvent announces the pause before the next betting window.
type BetweenRoundsEvent struct {
	RoomID       string `json:"room_id"`
	DelaySeconds int    `json:"delay_seconds"`
	NextRound    int    `json:"next_round"`
}

// GameFinishedEvent announces the terminal result of a game.
type GameFinishedEvent struct {
	RoomID       string                `json:"room_id"`
	WinnerID     string                `json:"winner_id"`
	Rounds       int                   `json:"rounds"`
	Participants []ParticipantSnapshot `json:"participants"`
}

// ReadyEvent announces a readiness toggle.
type ReadyEvent struct {
	RoomID        string `json:"room_id"`
	ParticipantID string `json:"participant_id"`
	Ready         bool   `json:"ready"`
}
