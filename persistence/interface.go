// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/wfunc/betroom/models"
)

// Database is the boundary to the historical-results store. The core
// holds no durable state; finished games are handed over here and the
// store is never read back into live game state.
type Database interface {
	SaveGameRecord(record models.GameRecord) error
	UpdatePlayerTally(playerID, name string, won bool, score int64) error
	Leaderboard(limit int) ([]models.LeaderboardEntry, error)
	Close() error
}

var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
