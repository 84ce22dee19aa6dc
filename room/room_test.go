package room

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/wfunc/betroom/models"
	"github.com/wfunc/betroom/state"
	"github.com/wfunc/betroom/timer"
)

// MockBroadcaster is a test double for the Broadcaster interface.
type MockBroadcaster struct {
	sent []sentMessage
}

type sentMessage struct {
	ids   []string
	msgID uint16
	data  []byte
}

func (m *MockBroadcaster) BroadcastToParticipants(participantIDs []string, msgID uint16, data []byte) error {
	m.sent = append(m.sent, sentMessage{ids: participantIDs, msgID: msgID, data: data})
	return nil
}

func testRules() models.RoomRules {
	return models.RoomRules{
		MaxRounds:         3,
		StartingBalance:   1000,
		MinBet:            10,
		MaxBet:            500,
		TurnTimeout:       time.Hour,
		BettingWindow:     time.Hour,
		BetweenRoundDelay: time.Hour,
		MaxPlayers:        4,
	}
}

func newTestScheduler(t *testing.T) *timer.Scheduler {
	t.Helper()
	sched := timer.NewScheduler(5 * time.Millisecond)
	t.Cleanup(sched.Stop)
	return sched
}

func TestManager_CreateAndGetRoom(t *testing.T) {
	manager := NewManager()
	sched := newTestScheduler(t)

	r := manager.CreateRoom("room-1", "Test Room", testRules(), nil, sched, &MockBroadcaster{})
	if r == nil {
		t.Fatal("CreateRoom should not return nil")
	}
	if r.ID != "room-1" {
		t.Errorf("Expected room ID room-1, got %s", r.ID)
	}
	if r.Status != StatusWaiting {
		t.Errorf("Expected new room to be waiting, got %s", r.Status)
	}

	retrieved, exists := manager.GetRoom("room-1")
	if !exists {
		t.Fatal("GetRoom should find the created room")
	}
	if retrieved != r {
		t.Error("GetRoom should return the same room instance")
	}
	if manager.Count() != 1 {
		t.Errorf("Expected room count 1, got %d", manager.Count())
	}
}

func TestRoom_AddParticipant(t *testing.T) {
	r := NewRoom("room-2", "Add Test", testRules(), nil, newTestScheduler(t), &MockBroadcaster{})

	r.Lock()
	p, err := r.AddParticipant("p1", "Alice")
	r.Unlock()
	if err != nil {
		t.Fatalf("Failed to add first participant: %v", err)
	}

	if !p.Host {
		t.Error("First joiner should become host")
	}
	if r.HostID != "p1" {
		t.Errorf("Expected host p1, got %s", r.HostID)
	}
	if p.Balance != 1000 {
		t.Errorf("Expected starting balance 1000, got %d", p.Balance)
	}
	if len(r.Participants) != 1 {
		t.Errorf("Expected participant count 1, got %d", len(r.Participants))
	}
}

func TestRoom_AddParticipant_Full(t *testing.T) {
	rules := testRules()
	rules.MaxPlayers = 1
	r := NewRoom("room-3", "Full Test", rules, nil, newTestScheduler(t), &MockBroadcaster{})

	r.Lock()
	defer r.Unlock()

	if _, err := r.AddParticipant("p1", "Alice"); err != nil {
		t.Fatalf("Failed to add the first participant: %v", err)
	}
	if _, err := r.AddParticipant("p2", "Bob"); err != ErrRoomFull {
		t.Fatalf("Expected ErrRoomFull, got %v", err)
	}
	if len(r.Participants) != 1 {
		t.Errorf("Expected participant count 1 after full-room rejection, got %d", len(r.Participants))
	}
}

func TestRoom_RemoveParticipant_HostMigration(t *testing.T) {
	r := NewRoom("room-4", "Remove Test", testRules(), nil, newTestScheduler(t), &MockBroadcaster{})

	r.Lock()
	defer r.Unlock()

	p1, _ := r.AddParticipant("p1", "Alice")
	p2, _ := r.AddParticipant("p2", "Bob")
	p3, _ := r.AddParticipant("p3", "Carol")
	// Distinct join times so migration order is deterministic.
	base := time.Now()
	p1.JoinedAt = base
	p2.JoinedAt = base.Add(time.Millisecond)
	p3.JoinedAt = base.Add(2 * time.Millisecond)

	empty, err := r.RemoveParticipant("p1")
	if err != nil {
		t.Fatalf("RemoveParticipant failed: %v", err)
	}
	if empty {
		t.Error("Room should not report empty with two participants left")
	}
	if r.HostID != "p2" {
		t.Errorf("Host should migrate to earliest survivor p2, got %s", r.HostID)
	}
	if !r.Participants["p2"].Host {
		t.Error("Migrated host flag not set on p2")
	}

	if _, err := r.RemoveParticipant("p1"); err != ErrNotInRoom {
		t.Errorf("Expected ErrNotInRoom for a second removal, got %v", err)
	}

	r.RemoveParticipant("p2")
	empty, _ = r.RemoveParticipant("p3")
	if !empty {
		t.Error("Room should report empty after the last participant leaves")
	}
}

func TestManager_ParticipantBindings(t *testing.T) {
	manager := NewManager()
	sched := newTestScheduler(t)
	manager.CreateRoom("room-5", "Bind Test", testRules(), nil, sched, &MockBroadcaster{})

	manager.BindParticipant("p1", "room-5")
	roomID, exists := manager.RoomOf("p1")
	if !exists || roomID != "room-5" {
		t.Fatalf("Expected binding to room-5, got %q (exists=%v)", roomID, exists)
	}

	manager.UnbindParticipant("p1")
	if _, exists := manager.RoomOf("p1"); exists {
		t.Error("Binding should be gone after unbind")
	}
}

func TestManager_RemoveRoomDropsBindings(t *testing.T) {
	manager := NewManager()
	sched := newTestScheduler(t)
	r := manager.CreateRoom("room-6", "Drop Test", testRules(), nil, sched, &MockBroadcaster{})

	r.Lock()
	r.AddParticipant("p1", "Alice")
	r.Unlock()
	manager.BindParticipant("p1", "room-6")

	manager.RemoveRoom("room-6")

	if _, exists := manager.GetRoom("room-6"); exists {
		t.Error("Room should be gone after RemoveRoom")
	}
	if _, exists := manager.RoomOf("p1"); exists {
		t.Error("Participant binding should be dropped with the room")
	}
}

func TestManager_RemoveRoomIfEmpty(t *testing.T) {
	manager := NewManager()
	sched := newTestScheduler(t)
	r := manager.CreateRoom("room-7", "Empty Test", testRules(), nil, sched, &MockBroadcaster{})

	r.Lock()
	r.AddParticipant("p1", "Alice")
	r.Unlock()

	if manager.RemoveRoomIfEmpty("room-7") {
		t.Fatal("RemoveRoomIfEmpty should refuse an occupied room")
	}

	r.Lock()
	r.RemoveParticipant("p1")
	r.Unlock()

	if !manager.RemoveRoomIfEmpty("room-7") {
		t.Fatal("RemoveRoomIfEmpty should remove an empty room")
	}
	if manager.Count() != 0 {
		t.Errorf("Expected room count 0, got %d", manager.Count())
	}
}

func TestManager_SweepIdle(t *testing.T) {
	manager := NewManager()
	sched := newTestScheduler(t)

	stale := manager.CreateRoom("room-8", "Stale", testRules(), nil, sched, &MockBroadcaster{})
	manager.CreateRoom("room-9", "Fresh", testRules(), nil, sched, &MockBroadcaster{})

	stale.Lock()
	stale.LastActive = time.Now().Add(-2 * time.Hour)
	stale.Unlock()

	removed := manager.SweepIdle(time.Hour)
	if removed != 1 {
		t.Fatalf("Expected 1 room swept, got %d", removed)
	}
	if _, exists := manager.GetRoom("room-8"); exists {
		t.Error("Stale room should be swept")
	}
	if _, exists := manager.GetRoom("room-9"); !exists {
		t.Error("Fresh room should survive the sweep")
	}
}

// TestRoom_FullGameFlow drives a complete round through a real room and
// machine: two participants bet 50 and 30, the pot collects 80, the
// higher scorer takes it, and per-round fields reset.
func TestRoom_FullGameFlow(t *testing.T) {
	broadcaster := &MockBroadcaster{}
	r := NewRoom("room-10", "Flow Test", testRules(), nil, newTestScheduler(t), broadcaster)

	finished := make(chan models.GameRecord, 1)
	r.OnGameFinished = func(record models.GameRecord) { finished <- record }

	r.Lock()
	a, _ := r.AddParticipant("a", "Alice")
	b, _ := r.AddParticipant("b", "Bob")
	base := time.Now()
	a.JoinedAt = base
	b.JoinedAt = base.Add(time.Millisecond)

	if err := r.Machine.Begin("a"); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if r.Status != StatusBetting {
		t.Fatalf("Expected room status betting, got %s", r.Status)
	}

	if err := r.Machine.PlaceBet("a", 50); err != nil {
		t.Fatalf("PlaceBet(a) failed: %v", err)
	}
	if err := r.Machine.PlaceBet("b", 30); err != nil {
		t.Fatalf("PlaceBet(b) failed: %v", err)
	}

	if r.Status != StatusPlaying {
		t.Fatalf("All bets in should move the room to playing, got %s", r.Status)
	}
	if got := r.Machine.Game().Pot; got != 80 {
		t.Errorf("Expected pot 80, got %d", got)
	}
	if a.Balance != 950 || b.Balance != 970 {
		t.Errorf("Expected balances 950/970 after the sweep, got %d/%d", a.Balance, b.Balance)
	}

	if err := r.Machine.HandleAction("a", state.Action{Kind: state.ActionPlay}); err != nil {
		t.Fatalf("HandleAction(a) failed: %v", err)
	}
	if err := r.Machine.HandleAction("b", state.Action{Kind: state.ActionPass}); err != nil {
		t.Fatalf("HandleAction(b) failed: %v", err)
	}

	if a.Balance != 1030 {
		t.Errorf("Round winner should hold 1030, got %d", a.Balance)
	}
	if a.Bet != 0 || b.Bet != 0 || a.Folded || b.Folded {
		t.Error("Per-round fields should be cleared after settlement")
	}
	r.Unlock()

	// Broadcasts fan out through the injected broadcaster.
	if len(broadcaster.sent) == 0 {
		t.Fatal("Expected broadcasts during the game")
	}
	for _, msg := range broadcaster.sent {
		if len(msg.ids) != 2 {
			t.Errorf("Expected every broadcast to target 2 participants, got %d", len(msg.ids))
		}
		if !json.Valid(msg.data) {
			t.Error("Broadcast payload should be valid JSON")
		}
	}

	select {
	case <-finished:
		t.Fatal("Game should not be finished after one of three rounds")
	default:
	}
}

// TestRoom_FinishedGameRecord runs a single-round game to completion and
// checks the finished-game hook fires off the lock.
func TestRoom_FinishedGameRecord(t *testing.T) {
	rules := testRules()
	rules.MaxRounds = 1
	r := NewRoom("room-11", "Record Test", rules, nil, newTestScheduler(t), &MockBroadcaster{})

	finished := make(chan models.GameRecord, 1)
	r.OnGameFinished = func(record models.GameRecord) { finished <- record }

	r.Lock()
	a, _ := r.AddParticipant("a", "Alice")
	b, _ := r.AddParticipant("b", "Bob")
	a.JoinedAt = time.Now()
	b.JoinedAt = a.JoinedAt.Add(time.Millisecond)

	if err := r.Machine.Begin("a"); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	r.Machine.PlaceBet("a", 10)
	r.Machine.PlaceBet("b", 10)
	r.Machine.HandleAction("a", state.Action{Kind: state.ActionPlay})
	r.Machine.HandleAction("b", state.Action{Kind: state.ActionPass})

	if r.Status != StatusFinished {
		t.Fatalf("Expected room status finished, got %s", r.Status)
	}
	r.Unlock()

	select {
	case record := <-finished:
		if record.WinnerID != "a" {
			t.Errorf("Expected winner a, got %s", record.WinnerID)
		}
		if record.Rounds != 1 {
			t.Errorf("Expected 1 round, got %d", record.Rounds)
		}
		if record.RoomID != "room-11" {
			t.Errorf("Expected room id room-11, got %s", record.RoomID)
		}
	case <-time.After(time.Second):
		t.Fatal("OnGameFinished was never invoked")
	}
}

// TestManager_RemovalSilencesTimers tears a room down mid-betting and
// checks the pending window timer fires as a no-op.
func TestManager_RemovalSilencesTimers(t *testing.T) {
	manager := NewManager()
	sched := newTestScheduler(t)

	rules := testRules()
	rules.BettingWindow = 30 * time.Millisecond
	r := manager.CreateRoom("room-12", "Teardown Test", rules, nil, sched, &MockBroadcaster{})

	r.Lock()
	r.AddParticipant("a", "Alice")
	r.AddParticipant("b", "Bob")
	if err := r.Machine.Begin("a"); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	r.Unlock()

	manager.RemoveRoom("room-12")
	time.Sleep(150 * time.Millisecond)

	r.Lock()
	if r.Status != StatusBetting {
		t.Errorf("Closed room should not advance, got %s", r.Status)
	}
	r.Unlock()
}

func TestRoom_DetailView(t *testing.T) {
	r := NewRoom("room-13", "Detail Test", testRules(), nil, newTestScheduler(t), &MockBroadcaster{})

	r.Lock()
	a, _ := r.AddParticipant("a", "Alice")
	b, _ := r.AddParticipant("b", "Bob")
	a.JoinedAt = time.Now()
	b.JoinedAt = a.JoinedAt.Add(time.Millisecond)
	r.Unlock()

	detail := r.Detail()
	if detail.ID != "room-13" {
		t.Errorf("Expected id room-13, got %s", detail.ID)
	}
	if detail.HostID != "a" {
		t.Errorf("Expected host a, got %s", detail.HostID)
	}
	if len(detail.Participants) != 2 {
		t.Fatalf("Expected 2 participants, got %d", len(detail.Participants))
	}
	if detail.Participants[0].ID != "a" {
		t.Errorf("Participants should be ordered by join time, got %s first", detail.Participants[0].ID)
	}
	if detail.Game != nil {
		t.Error("Game snapshot should be nil before a start")
	}

	summaries := []models.RoomSummary{r.Summary()}
	if summaries[0].ParticipantCount != 2 {
		t.Errorf("Expected summary count 2, got %d", summaries[0].ParticipantCount)
	}
}
