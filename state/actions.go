// state/actions.go
package state

import (
	"encoding/json"
)

// ActionKind enumerates the fixed set of turn actions. Anything outside
// the set stays ActionUnknown and is rejected without touching game state.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionPlay
	ActionPass
	ActionFold
	ActionCustom
)

func (k ActionKind) String() string {
	switch k {
	case ActionPlay:
		return "play"
	case ActionPass:
		return "pass"
	case ActionFold:
		return "fold"
	case ActionCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// ParseActionKind maps a wire tag to its kind.
func ParseActionKind(s string) ActionKind {
	switch s {
	case "play":
		return ActionPlay
	case "pass":
		return ActionPass
	case "fold":
		return ActionFold
	case "custom":
		return ActionCustom
	default:
		return ActionUnknown
	}
}

// Action is one submitted turn action. Data is carried only by custom
// actions and passed through uninterpreted.
type Action struct {
	Kind ActionKind
	Data json.RawMessage
}
