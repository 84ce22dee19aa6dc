// state/participant.go
package state

import (
	"time"

	"github.com/wfunc/betroom/models"
)

// Participant is a player's per-room game state. Score and Balance persist
// across rounds within a game; Bet and Folded are per-round and cleared at
// settlement.
type Participant struct {
	ID       string
	Name     string
	Ready    bool
	Score    int64
	Balance  int64
	Bet      int64
	Folded   bool
	Host     bool
	JoinedAt time.Time
}

func NewParticipant(id, name string, balance int64) *Participant {
	return &Participant{
		ID:       id,
		Name:     name,
		Balance:  balance,
		JoinedAt: time.Now(),
	}
}

func (p *Participant) Snapshot() models.ParticipantSnapshot {
	return models.ParticipantSnapshot{
		ID:       p.ID,
		Name:     p.Name,
		Ready:    p.Ready,
		Score:    p.Score,
		Balance:  p.Balance,
		Bet:      p.Bet,
		Folded:   p.Folded,
		Host:     p.Host,
		JoinedAt: p.JoinedAt,
	}
}
