// models/models.go
package models

import (
	"time"
)

// ParticipantSnapshot is the wire view of a player's per-room state.
type ParticipantSnapshot struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Ready    bool      `json:"ready"`
	Score    int64     `json:"score"`
	Balance  int64     `json:"balance"`
	Bet      int64     `json:"bet"`
	Folded   bool      `json:"folded"`
	Host     bool      `json:"host"`
	JoinedAt time.Time `json:"joined_at"`
}

// GameSnapshot is the wire view of the active game.
type GameSnapshot struct {
	Round     int       `json:"round"`
	MaxRounds int       `json:"max_rounds"`
	Pot       int64     `json:"pot"`
	Phase     string    `json:"phase"`
	TurnOrder []string  `json:"turn_order"`
	TurnIndex int       `json:"turn_index"`
	StartedAt time.Time `json:"started_at"`
}

// RoomRules is the resolved configuration a room plays under.
type RoomRules struct {
	MaxRounds         int           `json:"max_rounds"`
	StartingBalance   int64         `json:"starting_balance"`
	MinBet            int64         `json:"min_bet"`
	MaxBet            int64         `json:"max_bet"`
	TurnTimeout       time.Duration `json:"turn_timeout"`
	BettingWindow     time.Duration `json:"betting_window"`
	BetweenRoundDelay time.Duration `json:"between_round_delay"`
	TargetScore       int64         `json:"target_score"`
	MaxPlayers        int           `json:"max_players"`
}

// RoomSummary is the listing view of a room.
type RoomSummary struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	State            string                 `json:"state"`
	ParticipantCount int                    `json:"participant_count"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	Rules            RoomRules              `json:"rules"`
	CreatedAt        time.Time              `json:"created_at"`
}

// RoomDetail is the full view of a room, served by the detail query.
type RoomDetail struct {
	RoomSummary
	HostID       string                `json:"host_id"`
	Participants []ParticipantSnapshot `json:"participants"`
	Game         *GameSnapshot         `json:"game,omitempty"`
}

// GameRecord is the historical result of a finished game, handed to the
// persistence layer once the game reaches its terminal phase.
type GameRecord struct {
	RoomID    string                `json:"room_id"`
	RoomName  string                `json:"room_name"`
	Rounds    int                   `json:"rounds"`
	WinnerID  string                `json:"winner_id"`
	Players   []ParticipantSnapshot `json:"players"`
	StartedAt time.Time             `json:"started_at"`
	EndedAt   time.Time             `json:"ended_at"`
}
