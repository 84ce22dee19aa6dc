package services

import (
	"errors"
	"testing"
	"time"

	"github.com/wfunc/betroom/models"
)

// fakeDatabase records every persistence call.
type fakeDatabase struct {
	records     []models.GameRecord
	tallies     []tallyCall
	saveErr     error
	leaderboard []models.LeaderboardEntry
	lastLimit   int
}

type tallyCall struct {
	playerID string
	name     string
	won      bool
	score    int64
}

func (f *fakeDatabase) SaveGameRecord(record models.GameRecord) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakeDatabase) UpdatePlayerTally(playerID, name string, won bool, score int64) error {
	f.tallies = append(f.tallies, tallyCall{playerID: playerID, name: name, won: won, score: score})
	return nil
}

func (f *fakeDatabase) Leaderboard(limit int) ([]models.LeaderboardEntry, error) {
	f.lastLimit = limit
	return f.leaderboard, nil
}

func (f *fakeDatabase) Close() error { return nil }

func sampleRecord() models.GameRecord {
	now := time.Now()
	return models.GameRecord{
		RoomID:   "room-1",
		RoomName: "Test Room",
		Rounds:   3,
		WinnerID: "a",
		Players: []models.ParticipantSnapshot{
			{ID: "a", Name: "Alice", Score: 120},
			{ID: "b", Name: "Bob", Score: 80},
		},
		StartedAt: now.Add(-time.Minute),
		EndedAt:   now,
	}
}

func TestHistoryService_RecordGame(t *testing.T) {
	db := &fakeDatabase{}
	svc := NewHistoryService(db)

	svc.RecordGame(sampleRecord())

	if len(db.records) != 1 {
		t.Fatalf("Expected 1 saved record, got %d", len(db.records))
	}
	if len(db.tallies) != 2 {
		t.Fatalf("Expected 2 tally updates, got %d", len(db.tallies))
	}
	for _, call := range db.tallies {
		if call.playerID == "a" && !call.won {
			t.Error("Winner should be tallied as won")
		}
		if call.playerID == "b" && call.won {
			t.Error("Loser should not be tallied as won")
		}
	}
}

func TestHistoryService_SaveFailureSkipsTallies(t *testing.T) {
	db := &fakeDatabase{saveErr: errors.New("connection refused")}
	svc := NewHistoryService(db)

	svc.RecordGame(sampleRecord())

	if len(db.tallies) != 0 {
		t.Errorf("Expected no tally updates after a failed save, got %d", len(db.tallies))
	}
}

func TestHistoryService_NilDatabase(t *testing.T) {
	svc := NewHistoryService(nil)

	// Must not panic with persistence disabled.
	svc.RecordGame(sampleRecord())

	entries, err := svc.Leaderboard(5)
	if err != nil {
		t.Fatalf("Leaderboard with nil db should not error: %v", err)
	}
	if entries != nil {
		t.Errorf("Expected nil entries, got %v", entries)
	}
}

func TestHistoryService_LeaderboardLimitClamp(t *testing.T) {
	db := &fakeDatabase{}
	svc := NewHistoryService(db)

	svc.Leaderboard(0)
	if db.lastLimit != 10 {
		t.Errorf("Zero limit should clamp to 10, got %d", db.lastLimit)
	}
	svc.Leaderboard(500)
	if db.lastLimit != 10 {
		t.Errorf("Oversized limit should clamp to 10, got %d", db.lastLimit)
	}
	svc.Leaderboard(25)
	if db.lastLimit != 25 {
		t.Errorf("In-range limit should pass through, got %d", db.lastLimit)
	}
}
