// services/history_service.go
package services

import (
	"github.com/wfunc/betroom/logger"
	"github.com/wfunc/betroom/models"
	"github.com/wfunc/betroom/persistence"
)

// HistoryService records finished games and serves aggregate queries.
// It is wired to rooms through the OnGameFinished hook; failures are
// logged and swallowed so persistence problems never reach live games.
type HistoryService struct {
	db persistence.Database
}

func NewHistoryService(db persistence.Database) *HistoryService {
	return &HistoryService{db: db}
}

// RecordGame persists the game record and folds every player into the
// tally table.
func (s *HistoryService) RecordGame(record models.GameRecord) {
	if s.db == nil {
		return
	}

	if err := s.db.SaveGameRecord(record); err != nil {
		logger.Log.Errorw("failed to save game record", "room", record.RoomID, "err", err)
		return
	}

	for _, p := range record.Players {
		won := p.ID == record.WinnerID
		if err := s.db.UpdatePlayerTally(p.ID, p.Name, won, p.Score); err != nil {
			logger.Log.Errorw("failed to update player tally", "player", p.ID, "err", err)
		}
	}
}

// Leaderboard returns the top players by games won.
func (s *HistoryService) Leaderboard(limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if s.db == nil {
		return nil, nil
	}
	return s.db.Leaderboard(limit)
}
