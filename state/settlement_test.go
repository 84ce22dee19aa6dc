package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/betroom/models"
	"github.com/wfunc/betroom/network"
)

func TestRoundWinner_TieBreaksOnLowestID(t *testing.T) {
	f := newFixture(t, defaultRules(), "a", "b")

	f.do(func() {
		toPlaying(t, f)

		// Equal cumulative scores: the lower id wins deterministically.
		f.room.participants["a"].Score = 40
		f.room.participants["b"].Score = 40

		require.NoError(t, f.m.HandleAction("a", Action{Kind: ActionPass}))
		require.NoError(t, f.m.HandleAction("b", Action{Kind: ActionPass}))

		results := f.room.eventsOf(network.MsgTypeRoundResult)
		require.Len(t, results, 1)
		assert.Equal(t, "a", results[0].(models.RoundResultEvent).WinnerID)
	})
}

func TestAllFolded_PotIsSunk(t *testing.T) {
	f := newFixture(t, defaultRules(), "a", "b")

	f.do(func() {
		require.NoError(t, f.m.Begin("a"))
		require.NoError(t, f.m.PlaceBet("a", 40))
		require.NoError(t, f.m.PlaceBet("b", 60))

		require.NoError(t, f.m.HandleAction("a", Action{Kind: ActionFold}))
		require.NoError(t, f.m.HandleAction("b", Action{Kind: ActionFold}))

		// Nobody wins; the pot is neither refunded nor carried.
		results := f.room.eventsOf(network.MsgTypeRoundResult)
		require.Len(t, results, 1)
		rr := results[0].(models.RoundResultEvent)
		assert.Empty(t, rr.WinnerID)
		assert.Equal(t, int64(100), rr.Pot)
		assert.Equal(t, int64(960), f.room.participants["a"].Balance)
		assert.Equal(t, int64(940), f.room.participants["b"].Balance)

		// Fold flags do not leak into the next round.
		assert.False(t, f.room.participants["a"].Folded)
		assert.False(t, f.room.participants["b"].Folded)
	})
}

func TestSettlement_ClearsRoundState(t *testing.T) {
	f := newFixture(t, defaultRules(), "a", "b")

	f.do(func() {
		toPlaying(t, f)
		require.NoError(t, f.m.HandleAction("a", Action{Kind: ActionPlay}))
		require.NoError(t, f.m.HandleAction("b", Action{Kind: ActionFold}))

		for _, p := range f.room.participants {
			assert.Equal(t, int64(0), p.Bet)
			assert.False(t, p.Folded)
		}
		// Scores persist across rounds.
		assert.Greater(t, f.room.participants["a"].Score, int64(0))
	})
}

func TestTermination_AfterMaxRounds(t *testing.T) {
	rules := defaultRules()
	rules.MaxRounds = 1
	f := newFixture(t, rules, "a", "b")

	f.do(func() {
		toPlaying(t, f)
		require.NoError(t, f.m.HandleAction("a", Action{Kind: ActionPlay}))
		require.NoError(t, f.m.HandleAction("b", Action{Kind: ActionPass}))

		assert.Equal(t, PhaseFinished, f.m.Game().Phase)
		assert.Equal(t, PhaseFinished, f.room.status)

		ends := f.room.eventsOf(network.MsgTypeGameEnd)
		require.Len(t, ends, 1)
		end := ends[0].(models.GameFinishedEvent)
		assert.Equal(t, "a", end.WinnerID)
		assert.Equal(t, 1, end.Rounds)

		require.Len(t, f.room.records, 1)
		rec := f.room.records[0]
		assert.Equal(t, "a", rec.WinnerID)
		assert.Equal(t, 1, rec.Rounds)
		assert.Len(t, rec.Players, 2)
	})
}

func TestTermination_EarlyOnTargetScore(t *testing.T) {
	rules := defaultRules()
	rules.MaxRounds = 100
	rules.TargetScore = 1
	f := newFixture(t, rules, "a", "b")

	f.do(func() {
		toPlaying(t, f)
		require.NoError(t, f.m.HandleAction("a", Action{Kind: ActionPlay}))
		require.NoError(t, f.m.HandleAction("b", Action{Kind: ActionPass}))

		// A's play cleared the target, so round 1 was the last.
		assert.Equal(t, PhaseFinished, f.m.Game().Phase)
	})
}

func TestBetweenRounds_ReentersBetting(t *testing.T) {
	rules := defaultRules()
	rules.MaxRounds = 2
	rules.BetweenRoundDelay = 30 * time.Millisecond
	f := newFixture(t, rules, "a", "b")

	f.do(func() {
		toPlaying(t, f)
		require.NoError(t, f.m.HandleAction("a", Action{Kind: ActionPass}))
		require.NoError(t, f.m.HandleAction("b", Action{Kind: ActionPass}))
		assert.Equal(t, PhaseBetweenRounds, f.m.Game().Phase)

		pauses := f.room.eventsOf(network.MsgTypeBetweenRounds)
		require.Len(t, pauses, 1)
		assert.Equal(t, 2, pauses[0].(models.BetweenRoundsEvent).NextRound)
	})

	time.Sleep(200 * time.Millisecond)

	f.do(func() {
		g := f.m.Game()
		assert.Equal(t, PhaseBetting, g.Phase)
		assert.Equal(t, 2, g.Round)
		assert.Equal(t, int64(0), g.Pot)
	})
}

func TestRestart_AfterFinishedGame(t *testing.T) {
	rules := defaultRules()
	rules.MaxRounds = 1
	f := newFixture(t, rules, "a", "b")

	f.do(func() {
		toPlaying(t, f)
		require.NoError(t, f.m.HandleAction("a", Action{Kind: ActionPass}))
		require.NoError(t, f.m.HandleAction("b", Action{Kind: ActionPass}))
		require.Equal(t, PhaseFinished, f.m.Game().Phase)

		// A finished game can be restarted; the fresh game starts clean.
		require.NoError(t, f.m.Begin("a"))
		g := f.m.Game()
		assert.Equal(t, PhaseBetting, g.Phase)
		assert.Equal(t, 1, g.Round)
		assert.Equal(t, int64(0), g.Pot)
		assert.Equal(t, int64(0), f.room.participants["a"].Score)
	})
}
