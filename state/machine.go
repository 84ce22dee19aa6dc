// state/machine.go
package state

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/wfunc/betroom/logger"
	"github.com/wfunc/betroom/models"
	"github.com/wfunc/betroom/network"
	"github.com/wfunc/betroom/timer"
)

// Phase is the current stage of a game.
type Phase string

const (
	PhaseWaiting       Phase = "waiting"
	PhaseBetting       Phase = "betting"
	PhasePlaying       Phase = "playing"
	PhaseScoring       Phase = "scoring"
	PhaseBetweenRounds Phase = "between_rounds"
	PhaseFinished      Phase = "finished"
)

// transitions is the allowed phase edge table. changePhase rejects
// anything not listed.
var transitions = map[Phase][]Phase{
	PhaseWaiting:       {PhaseBetting},
	PhaseBetting:       {PhasePlaying},
	PhasePlaying:       {PhaseScoring},
	PhaseScoring:       {PhaseBetweenRounds, PhaseFinished},
	PhaseBetweenRounds: {PhaseBetting},
}

// Game is one run of the round-based competition within a room. A fresh
// instance is created per start request; it spans all rounds until the
// termination condition is met.
type Game struct {
	Round     int
	MaxRounds int
	Pot       int64
	Phase     Phase
	TurnOrder []string
	TurnIndex int
	StartedAt time.Time

	bettingTimer int64
	turnTimer    int64
	betweenTimer int64
}

func (g *Game) Snapshot() models.GameSnapshot {
	order := make([]string, len(g.TurnOrder))
	copy(order, g.TurnOrder)
	return models.GameSnapshot{
		Round:     g.Round,
		MaxRounds: g.MaxRounds,
		Pot:       g.Pot,
		Phase:     string(g.Phase),
		TurnOrder: order,
		TurnIndex: g.TurnIndex,
		StartedAt: g.StartedAt,
	}
}

// Machine drives one room's game through its phases. All exported methods
// must be called with the owning room's mutex held; timer callbacks
// acquire it themselves and revalidate phase, round and turn cursor
// before acting, so tardy firings after supersession are no-ops.
type Machine struct {
	room  RoomContext
	sched *timer.Scheduler
	mu    sync.Locker
	rng   *rand.Rand

	game   *Game
	closed bool
}

func NewMachine(room RoomContext, sched *timer.Scheduler, mu sync.Locker) *Machine {
	return &Machine{
		room:  room,
		sched: sched,
		mu:    mu,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Game returns the active game, nil before the first start.
func (m *Machine) Game() *Game {
	return m.game
}

// Snapshot returns the wire view of the active game, nil if none.
func (m *Machine) Snapshot() *models.GameSnapshot {
	if m.game == nil {
		return nil
	}
	s := m.game.Snapshot()
	return &s
}

// Begin validates a start request and enters the first betting phase.
// A fresh Game replaces any previously finished one.
func (m *Machine) Begin(requesterID string) error {
	if m.game != nil && m.game.Phase != PhaseFinished {
		return ErrInvalidState
	}

	participants := m.room.GetParticipants()
	requester, ok := participants[requesterID]
	if !ok || !requester.Host {
		return ErrNotHost
	}
	if len(participants) < 2 {
		return ErrNotEnoughPlayers
	}

	// Scores are per game; a restart begins from zero.
	for _, p := range participants {
		p.Score = 0
		p.Bet = 0
		p.Folded = false
	}

	m.game = &Game{
		MaxRounds: m.room.Rules().MaxRounds,
		Phase:     PhaseWaiting,
		StartedAt: time.Now(),
	}
	logger.Log.Infow("game started", "room", m.room.GetID(), "players", len(participants))
	m.enterBetting()
	return nil
}

// Close marks the machine dead and cancels every pending timer. Firings
// already in flight bail out on the closed flag.
func (m *Machine) Close() {
	m.closed = true
	if m.game != nil {
		m.cancelTimers()
	}
}

func (m *Machine) cancelTimers() {
	m.sched.Cancel(m.game.bettingTimer)
	m.sched.Cancel(m.game.turnTimer)
	m.sched.Cancel(m.game.betweenTimer)
}

// valid reports whether a timer firing still matches the game it was
// armed for. Rooms can be torn down and rounds superseded between arming
// and firing.
func (m *Machine) valid(phase Phase, round int) bool {
	return !m.closed && m.game != nil && m.game.Phase == phase && m.game.Round == round
}

func (m *Machine) changePhase(to Phase) error {
	from := m.game.Phase
	allowed := false
	for _, p := range transitions[from] {
		if p == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return ErrTransitionNotAllowed
	}

	m.game.Phase = to
	m.room.SetStatus(to)
	m.room.Broadcast(network.MsgTypePhaseChanged, models.PhaseChangedEvent{
		RoomID:       m.room.GetID(),
		Phase:        string(to),
		Game:         m.game.Snapshot(),
		Participants: m.participantSnapshots(),
	})
	return nil
}

// enterBetting opens a new betting window: round counter up, pot zeroed,
// turn order resnapshotted, bets reset, window timer armed.
func (m *Machine) enterBetting() {
	g := m.game
	g.Round++
	g.Pot = 0
	g.TurnIndex = 0
	g.TurnOrder = m.snapshotTurnOrder()

	for _, p := range m.room.GetParticipants() {
		p.Bet = 0
	}

	if err := m.changePhase(PhaseBetting); err != nil {
		logger.Log.Errorw("betting transition rejected", "room", m.room.GetID(), "err", err)
		return
	}

	round := g.Round
	g.bettingTimer = m.sched.Schedule(m.room.Rules().BettingWindow, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if !m.valid(PhaseBetting, round) {
			return
		}
		logger.Log.Debugw("betting window expired", "room", m.room.GetID(), "round", round)
		m.enterPlaying()
	})
}

// snapshotTurnOrder fixes the round's turn sequence: every current
// participant, ordered by join time with id as tie-break so the sequence
// is deterministic regardless of map iteration.
func (m *Machine) snapshotTurnOrder() []string {
	participants := m.room.GetParticipants()
	order := make([]string, 0, len(participants))
	for id := range participants {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := participants[order[i]], participants[order[j]]
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.ID < b.ID
	})
	return order
}

// PlaceBet validates and records a bet during the betting window. The
// amount only moves from balance to pot when the playing phase begins;
// until then a re-bet simply replaces the previous amount.
func (m *Machine) PlaceBet(participantID string, amount int64) error {
	if m.game == nil || m.game.Phase != PhaseBetting {
		return ErrNotBettingPhase
	}

	p, ok := m.room.GetParticipants()[participantID]
	if !ok {
		return ErrPlayerNotFound
	}

	rules := m.room.Rules()
	if amount < rules.MinBet || amount > rules.MaxBet {
		return ErrInvalidBetAmount
	}
	if amount > p.Balance {
		return ErrInsufficientBalance
	}

	p.Bet = amount
	m.room.Broadcast(network.MsgTypeBetPlaced, models.BetPlacedEvent{
		RoomID:        m.room.GetID(),
		ParticipantID: participantID,
		Amount:        amount,
	})

	if m.allBetsIn() {
		m.sched.Cancel(m.game.bettingTimer)
		m.enterPlaying()
	}
	return nil
}

func (m *Machine) allBetsIn() bool {
	for _, p := range m.room.GetParticipants() {
		if p.Bet == 0 {
			return false
		}
	}
	return true
}

// enterPlaying sweeps every placed bet into the pot and dispatches the
// first turn. Participants who never bet play the round on a zero bet.
func (m *Machine) enterPlaying() {
	g := m.game
	m.sched.Cancel(g.bettingTimer)

	for _, p := range m.room.GetParticipants() {
		p.Balance -= p.Bet
		g.Pot += p.Bet
	}
	g.TurnIndex = 0

	if err := m.changePhase(PhasePlaying); err != nil {
		logger.Log.Errorw("playing transition rejected", "room", m.room.GetID(), "err", err)
		return
	}
	m.dispatchTurn()
}

// dispatchTurn filters departed participants out of the turn order, then
// either starts the turn at the cursor or ends the round when the order
// is exhausted or emptied.
func (m *Machine) dispatchTurn() {
	g := m.game
	participants := m.room.GetParticipants()

	filtered := g.TurnOrder[:0]
	for _, id := range g.TurnOrder {
		if _, ok := participants[id]; ok {
			filtered = append(filtered, id)
		}
	}
	g.TurnOrder = filtered

	if g.TurnIndex >= len(g.TurnOrder) {
		m.settleRound()
		return
	}

	current := g.TurnOrder[g.TurnIndex]
	m.room.Broadcast(network.MsgTypeTurnStarted, models.TurnStartedEvent{
		RoomID:        m.room.GetID(),
		ParticipantID: current,
		TurnIndex:     g.TurnIndex,
	})

	round, idx := g.Round, g.TurnIndex
	g.turnTimer = m.sched.Schedule(m.room.Rules().TurnTimeout, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if !m.valid(PhasePlaying, round) || m.game.TurnIndex != idx {
			return
		}
		m.resolveTimeout()
	})
}

// CurrentTurnID returns the participant whose turn is active.
func (m *Machine) CurrentTurnID() (string, bool) {
	if m.game == nil || m.game.Phase != PhasePlaying {
		return "", false
	}
	if m.game.TurnIndex >= len(m.game.TurnOrder) {
		return "", false
	}
	return m.game.TurnOrder[m.game.TurnIndex], true
}

func (m *Machine) participantSnapshots() []models.ParticipantSnapshot {
	participants := m.room.GetParticipants()
	out := make([]models.ParticipantSnapshot, 0, len(participants))
	for _, p := range participants {
		out = append(out, p.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
