// room/manager.go
package room

import (
	"sync"
	"time"

	"github.com/wfunc/betroom/logger"
	"github.com/wfunc/betroom/models"
	"github.com/wfunc/betroom/timer"
)

// Manager is the registry of live rooms: room id to Room, participant id
// to room id. Pure lookup and lifecycle, no game logic. Lock ordering is
// manager before room, never the reverse.
type Manager struct {
	rooms           map[string]*Room
	participantRoom map[string]string
	mutex           sync.RWMutex
	stopSweep       chan struct{}
	sweepOnce       sync.Once
}

func NewManager() *Manager {
	return &Manager{
		rooms:           make(map[string]*Room),
		participantRoom: make(map[string]string),
		stopSweep:       make(chan struct{}),
	}
}

// CreateRoom builds a room and registers it.
func (m *Manager) CreateRoom(id, name string, rules models.RoomRules, metadata map[string]interface{}, sched *timer.Scheduler, broadcaster Broadcaster) *Room {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	r := NewRoom(id, name, rules, metadata, sched, broadcaster)
	m.rooms[id] = r
	logger.Log.Infow("room created", "room", id, "name", name)
	return r
}

func (m *Manager) GetRoom(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	r, exists := m.rooms[id]
	return r, exists
}

// RemoveRoom unconditionally closes and deregisters a room, dropping its
// participant bindings.
func (m *Manager) RemoveRoom(id string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if r, exists := m.rooms[id]; exists {
		m.removeLocked(r)
	}
}

// RemoveRoomIfEmpty deregisters a room only when its participant map is
// still empty. Leave handlers release the room lock before calling this,
// so a join may have raced in between.
func (m *Manager) RemoveRoomIfEmpty(id string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	r, exists := m.rooms[id]
	if !exists {
		return false
	}

	r.Lock()
	empty := len(r.Participants) == 0
	r.Unlock()
	if !empty {
		return false
	}

	m.removeLocked(r)
	return true
}

func (m *Manager) removeLocked(r *Room) {
	r.Lock()
	r.Close()
	for pid := range r.Participants {
		delete(m.participantRoom, pid)
	}
	r.Unlock()

	delete(m.rooms, r.ID)
	logger.Log.Infow("room removed", "room", r.ID)
}

// BindParticipant records which room a participant is in.
func (m *Manager) BindParticipant(participantID, roomID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.participantRoom[participantID] = roomID
}

func (m *Manager) UnbindParticipant(participantID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.participantRoom, participantID)
}

// RoomOf returns the room id a participant is bound to.
func (m *Manager) RoomOf(participantID string) (string, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	id, exists := m.participantRoom[participantID]
	return id, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// ListRooms returns summaries of every live room.
func (m *Manager) ListRooms() []models.RoomSummary {
	m.mutex.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mutex.RUnlock()

	summaries := make([]models.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		summaries = append(summaries, r.Summary())
	}
	return summaries
}

// SweepIdle removes rooms whose last activity is older than maxAge.
// Returns the number of rooms discarded.
func (m *Manager) SweepIdle(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	m.mutex.Lock()
	defer m.mutex.Unlock()

	removed := 0
	for _, r := range m.rooms {
		r.Lock()
		idle := r.LastActive.Before(cutoff)
		r.Unlock()
		if idle {
			m.removeLocked(r)
			removed++
		}
	}
	if removed > 0 {
		logger.Log.Infow("idle rooms swept", "removed", removed)
	}
	return removed
}

// StartSweeper runs the periodic age-based sweep until StopSweeper.
func (m *Manager) StartSweeper(interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.SweepIdle(maxAge)
			case <-m.stopSweep:
				return
			}
		}
	}()
}

func (m *Manager) StopSweeper() {
	m.sweepOnce.Do(func() {
		close(m.stopSweep)
	})
}
