// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormGameRecord is the persisted row for one finished game.
type GormGameRecord struct {
	gorm.Model
	RoomID   string                 `gorm:"index;not null"`
	RoomName string                 `gorm:"not null"`
	WinnerID string                 `gorm:"index"`
	Rounds   int                    `gorm:"default:0"`
	Players  map[string]interface{} `gorm:"serializer:json;type:jsonb;not null"`
	Duration int                    `gorm:"default:0"` // seconds
}

// GormPlayerTally is the cumulative per-player record across games,
// backing the leaderboard query.
type GormPlayerTally struct {
	gorm.Model
	PlayerID   string `gorm:"uniqueIndex;not null"`
	Name       string `gorm:"not null"`
	GamesWon   int    `gorm:"default:0"`
	GamesTotal int    `gorm:"default:0"`
	BestScore  int64  `gorm:"default:0"`
}

// LeaderboardEntry is the query view of a tally row.
type LeaderboardEntry struct {
	PlayerID   string `json:"player_id"`
	Name       string `json:"name"`
	GamesWon   int    `json:"games_won"`
	GamesTotal int    `json:"games_total"`
	BestScore  int64  `json:"best_score"`
}
