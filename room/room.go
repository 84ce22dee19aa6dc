// room/room.go
package room

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/wfunc/betroom/logger"
	"github.com/wfunc/betroom/models"
	"github.com/wfunc/betroom/state"
	"github.com/wfunc/betroom/timer"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrNotInRoom    = errors.New("participant is not in this room")
	ErrRoomFull     = errors.New("room is full")
)

// Status is the room's lifecycle state, kept consistent with the game
// phase. The between-rounds stretch reads as scoring at room level.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusBetting  Status = "betting"
	StatusPlaying  Status = "playing"
	StatusScoring  Status = "scoring"
	StatusFinished Status = "finished"
)

// Room is a joinable session container holding participants and at most
// one active game. Its mutex serializes every mutation of the room and
// its game; handlers and timer callbacks alike run inside it.
type Room struct {
	ID           string
	Name         string
	HostID       string
	Status       Status
	Participants map[string]*state.Participant
	Machine      *state.Machine
	Metadata     map[string]interface{}
	GameRules    models.RoomRules
	CreatedAt    time.Time
	LastActive   time.Time

	// OnGameFinished receives the record of a finished game, typically
	// wired to the history service. Invoked on its own goroutine so the
	// room lock is never held across persistence calls.
	OnGameFinished func(record models.GameRecord)

	broadcaster Broadcaster
	mu          sync.Mutex
}

// NewRoom creates a room and its game machine. The room itself is the
// machine's lock: timer callbacks serialize through it.
func NewRoom(id, name string, rules models.RoomRules, metadata map[string]interface{}, sched *timer.Scheduler, broadcaster Broadcaster) *Room {
	now := time.Now()
	r := &Room{
		ID:           id,
		Name:         name,
		Status:       StatusWaiting,
		Participants: make(map[string]*state.Participant),
		Metadata:     metadata,
		GameRules:    rules,
		CreatedAt:    now,
		LastActive:   now,
		broadcaster:  broadcaster,
	}
	r.Machine = state.NewMachine(r, sched, r)
	return r
}

// Lock and Unlock expose the room's mutex; the room satisfies sync.Locker
// so the machine can hand it to timer callbacks.
func (r *Room) Lock()   { r.mu.Lock() }
func (r *Room) Unlock() { r.mu.Unlock() }

// --- state.RoomContext ---

func (r *Room) GetID() string {
	return r.ID
}

func (r *Room) GetName() string {
	return r.Name
}

func (r *Room) Rules() models.RoomRules {
	return r.GameRules
}

// GetParticipants returns the live participant mapping. Caller holds the
// room lock; the copy shares participant pointers so mutations stick.
func (r *Room) GetParticipants() map[string]*state.Participant {
	out := make(map[string]*state.Participant, len(r.Participants))
	for id, p := range r.Participants {
		out[id] = p
	}
	return out
}

func (r *Room) SetStatus(phase state.Phase) {
	switch phase {
	case state.PhaseBetting:
		r.Status = StatusBetting
	case state.PhasePlaying:
		r.Status = StatusPlaying
	case state.PhaseScoring, state.PhaseBetweenRounds:
		r.Status = StatusScoring
	case state.PhaseFinished:
		r.Status = StatusFinished
	default:
		r.Status = StatusWaiting
	}
}

// Broadcast marshals v and fans it out to every current participant.
// Called with the room lock held, so participant ids are resolved here
// rather than by the broadcaster.
func (r *Room) Broadcast(msgID uint16, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(r.Participants))
	for id := range r.Participants {
		ids = append(ids, id)
	}
	return r.broadcaster.BroadcastToParticipants(ids, msgID, data)
}

func (r *Room) RecordResult(record models.GameRecord) {
	if r.OnGameFinished == nil {
		return
	}
	go r.OnGameFinished(record)
}

// --- membership ---

// AddParticipant registers a player. The first joiner becomes host.
// Caller holds the room lock.
func (r *Room) AddParticipant(id, name string) (*state.Participant, error) {
	if r.GameRules.MaxPlayers > 0 && len(r.Participants) >= r.GameRules.MaxPlayers {
		return nil, ErrRoomFull
	}

	p := state.NewParticipant(id, name, r.GameRules.StartingBalance)
	if len(r.Participants) == 0 {
		p.Host = true
		r.HostID = id
	}
	r.Participants[id] = p
	r.LastActive = time.Now()
	return p, nil
}

// RemoveParticipant deregisters a player and migrates the host role to
// the earliest-joined survivor. Returns whether the room is now empty.
// Caller holds the room lock.
func (r *Room) RemoveParticipant(id string) (empty bool, err error) {
	p, exists := r.Participants[id]
	if !exists {
		return false, ErrNotInRoom
	}
	delete(r.Participants, id)
	r.LastActive = time.Now()

	if len(r.Participants) == 0 {
		return true, nil
	}

	if p.Host {
		next := r.earliestParticipant()
		next.Host = true
		r.HostID = next.ID
		logger.Log.Infow("host migrated", "room", r.ID, "host", next.ID)
	}
	return false, nil
}

func (r *Room) earliestParticipant() *state.Participant {
	var first *state.Participant
	for _, p := range r.Participants {
		if first == nil || p.JoinedAt.Before(first.JoinedAt) ||
			(p.JoinedAt.Equal(first.JoinedAt) && p.ID < first.ID) {
			first = p
		}
	}
	return first
}

// Touch refreshes the idle-sweep timestamp. Caller holds the room lock.
func (r *Room) Touch() {
	r.LastActive = time.Now()
}

// Close shuts the machine down; pending timers are cancelled and late
// firings bail out. Caller holds the room lock.
func (r *Room) Close() {
	r.Machine.Close()
}

// --- read views ---

// Summary builds the listing view. Takes the room lock itself.
func (r *Room) Summary() models.RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summaryLocked()
}

func (r *Room) summaryLocked() models.RoomSummary {
	return models.RoomSummary{
		ID:               r.ID,
		Name:             r.Name,
		State:            string(r.Status),
		ParticipantCount: len(r.Participants),
		Metadata:         r.Metadata,
		Rules:            r.GameRules,
		CreatedAt:        r.CreatedAt,
	}
}

// Detail builds the full view including participants and game. Takes the
// room lock itself.
func (r *Room) Detail() models.RoomDetail {
	r.mu.Lock()
	defer r.mu.Unlock()

	participants := make([]models.ParticipantSnapshot, 0, len(r.Participants))
	for _, p := range r.Participants {
		participants = append(participants, p.Snapshot())
	}
	sort.Slice(participants, func(i, j int) bool {
		if !participants[i].JoinedAt.Equal(participants[j].JoinedAt) {
			return participants[i].JoinedAt.Before(participants[j].JoinedAt)
		}
		return participants[i].ID < participants[j].ID
	})

	return models.RoomDetail{
		RoomSummary:  r.summaryLocked(),
		HostID:       r.HostID,
		Participants: participants,
		Game:         r.Machine.Snapshot(),
	}
}
