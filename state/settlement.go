// state/settlement.go
package state

import (
	"time"

	"github.com/wfunc/betroom/logger"
	"github.com/wfunc/betroom/models"
	"github.com/wfunc/betroom/network"
)

// settleRound runs exactly once per round, on the playing to scoring
// edge: winner determination, pot distribution, round cleanup, then
// either the between-rounds pause or the terminal phase.
func (m *Machine) settleRound() {
	g := m.game
	m.sched.Cancel(g.turnTimer)

	if err := m.changePhase(PhaseScoring); err != nil {
		logger.Log.Errorw("scoring transition rejected", "room", m.room.GetID(), "err", err)
		return
	}

	winner := m.roundWinner()
	if winner != nil {
		// Sole winner takes the full pot. When everyone folded the pot
		// is a sunk loss: not refunded, not carried forward.
		winner.Balance += g.Pot
	}

	winnerID := ""
	if winner != nil {
		winnerID = winner.ID
	}
	logger.Log.Infow("round settled",
		"room", m.room.GetID(), "round", g.Round, "winner", winnerID, "pot", g.Pot)

	m.room.Broadcast(network.MsgTypeRoundResult, models.RoundResultEvent{
		RoomID:       m.room.GetID(),
		Round:        g.Round,
		WinnerID:     winnerID,
		Pot:          g.Pot,
		Participants: m.participantSnapshots(),
	})

	for _, p := range m.room.GetParticipants() {
		p.Bet = 0
		p.Folded = false
	}

	if m.terminated() {
		m.finishGame()
	} else {
		m.enterBetweenRounds()
	}
}

// roundWinner picks the non-folded participant with the strictest-greatest
// cumulative score. Equal top scores resolve to the lowest participant id
// so the outcome never depends on map iteration order. Nil when every
// participant folded.
func (m *Machine) roundWinner() *Participant {
	var winner *Participant
	for _, p := range m.room.GetParticipants() {
		if p.Folded {
			continue
		}
		if winner == nil || p.Score > winner.Score ||
			(p.Score == winner.Score && p.ID < winner.ID) {
			winner = p
		}
	}
	return winner
}

// finalWinner applies the same greatest-score rule over all participants;
// fold flags were already cleared per round and are irrelevant here.
func (m *Machine) finalWinner() *Participant {
	var winner *Participant
	for _, p := range m.room.GetParticipants() {
		if winner == nil || p.Score > winner.Score ||
			(p.Score == winner.Score && p.ID < winner.ID) {
			winner = p
		}
	}
	return winner
}

// terminated reports whether the game has reached its end condition:
// the configured round count, or any participant at the target score.
func (m *Machine) terminated() bool {
	g := m.game
	if g.Round >= g.MaxRounds {
		return true
	}
	target := m.room.Rules().TargetScore
	if target > 0 {
		for _, p := range m.room.GetParticipants() {
			if p.Score >= target {
				return true
			}
		}
	}
	return false
}

func (m *Machine) enterBetweenRounds() {
	g := m.game
	if err := m.changePhase(PhaseBetweenRounds); err != nil {
		logger.Log.Errorw("between-rounds transition rejected", "room", m.room.GetID(), "err", err)
		return
	}

	delay := m.room.Rules().BetweenRoundDelay
	m.room.Broadcast(network.MsgTypeBetweenRounds, models.BetweenRoundsEvent{
		RoomID:       m.room.GetID(),
		DelaySeconds: int(delay.Seconds()),
		NextRound:    g.Round + 1,
	})

	round := g.Round
	g.betweenTimer = m.sched.Schedule(delay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if !m.valid(PhaseBetweenRounds, round) {
			return
		}
		m.enterBetting()
	})
}

func (m *Machine) finishGame() {
	g := m.game

	winnerID := ""
	if winner := m.finalWinner(); winner != nil {
		winnerID = winner.ID
	}

	if err := m.changePhase(PhaseFinished); err != nil {
		logger.Log.Errorw("finished transition rejected", "room", m.room.GetID(), "err", err)
		return
	}

	snapshots := m.participantSnapshots()
	logger.Log.Infow("game finished",
		"room", m.room.GetID(), "rounds", g.Round, "winner", winnerID)

	m.room.Broadcast(network.MsgTypeGameEnd, models.GameFinishedEvent{
		RoomID:       m.room.GetID(),
		WinnerID:     winnerID,
		Rounds:       g.Round,
		Participants: snapshots,
	})

	m.room.RecordResult(models.GameRecord{
		RoomID:    m.room.GetID(),
		RoomName:  m.room.GetName(),
		Rounds:    g.Round,
		WinnerID:  winnerID,
		Players:   snapshots,
		StartedAt: g.StartedAt,
		EndedAt:   time.Now(),
	})
}
