// state/resolver.go
package state

import (
	"encoding/json"

	"github.com/wfunc/betroom/logger"
	"github.com/wfunc/betroom/models"
	"github.com/wfunc/betroom/network"
)

// HandleAction resolves a participant's submitted action against the
// current turn. Validation precedes every mutation: a rejected action
// leaves the game untouched and the turn timer armed.
func (m *Machine) HandleAction(participantID string, action Action) error {
	if m.game == nil || m.game.Phase != PhasePlaying {
		return ErrInvalidState
	}

	current, ok := m.CurrentTurnID()
	if !ok || current != participantID {
		return ErrNotYourTurn
	}

	if action.Kind == ActionUnknown {
		return ErrUnknownAction
	}

	m.sched.Cancel(m.game.turnTimer)
	m.applyAction(participantID, action)
	return nil
}

// resolveTimeout resolves an automatic pass on behalf of the current turn
// holder. The holder may already have left the room; the round still
// advances past them.
func (m *Machine) resolveTimeout() {
	current := m.game.TurnOrder[m.game.TurnIndex]
	logger.Log.Debugw("turn timed out", "room", m.room.GetID(), "participant", current)
	m.applyAction(current, Action{Kind: ActionPass})
}

// applyAction applies an accepted action's semantics, broadcasts the
// result and advances the turn cursor. Exhaustive over the action kinds;
// unknown actions never reach this point.
func (m *Machine) applyAction(participantID string, action Action) {
	p := m.room.GetParticipants()[participantID]

	result := models.ActionResultEvent{
		RoomID:        m.room.GetID(),
		ParticipantID: participantID,
		Action:        action.Kind.String(),
	}

	switch action.Kind {
	case ActionPlay:
		if p != nil {
			gain := m.scoreGain(p.Bet)
			p.Score += gain
			result.Gain = gain
		}
	case ActionPass:
		// No state change beyond turn advancement.
	case ActionFold:
		if p != nil {
			p.Folded = true
		}
	case ActionCustom:
		// Extension point: payload passes through uninterpreted.
		if len(action.Data) > 0 {
			var data interface{}
			if err := json.Unmarshal(action.Data, &data); err == nil {
				result.Data = data
			}
		}
	}

	m.room.Broadcast(network.MsgTypeActionResult, result)

	m.game.TurnIndex++
	m.dispatchTurn()
}

// scoreGain computes a play's score delta: a bounded random base scaled
// by a bet-proportional multiplier of 1 + (bet/minBet)*0.1.
func (m *Machine) scoreGain(bet int64) int64 {
	base := int64(m.rng.Intn(91) + 10)
	minBet := m.room.Rules().MinBet
	if minBet <= 0 {
		return base
	}
	multiplier := 1 + float64(bet)/float64(minBet)*0.1
	return int64(float64(base) * multiplier)
}
