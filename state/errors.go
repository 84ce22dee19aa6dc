// state/errors.go
package state

import (
	"errors"
)

// Closed set of game-level failure conditions. All are terminal,
// synchronously reported outcomes; none abort the room or affect other
// participants.
var (
	ErrTransitionNotAllowed = errors.New("state transition not allowed")
	ErrInvalidState         = errors.New("operation not valid in current phase")
	ErrNotHost              = errors.New("requester is not the room host")
	ErrNotEnoughPlayers     = errors.New("not enough players to start")
	ErrNotBettingPhase      = errors.New("bets are not being accepted")
	ErrPlayerNotFound       = errors.New("player not found in room")
	ErrInvalidBetAmount     = errors.New("bet amount outside allowed range")
	ErrInsufficientBalance  = errors.New("bet exceeds current balance")
	ErrNotYourTurn          = errors.New("not your turn")
	ErrUnknownAction        = errors.New("unknown action")
)
