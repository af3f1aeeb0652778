package policy

import "fmt"

// ActionType enumerates every mutation the optimizer can decide on. The
// execution layer switches over this exhaustively; adding a kind without
// teaching the executor about it is a runtime error, not a silent skip.
type ActionType string

const (
	ActionAdjustBudget ActionType = "ADJUST_BUDGET"
	ActionPauseEntity  ActionType = "PAUSE_ENTITY"
	ActionStartEntity  ActionType = "START_ENTITY"
	ActionNoop         ActionType = "NOOP"
)

// Action is the policy chain's verdict for one evaluation cycle. Exactly one
// is produced per cycle; NewBudget is meaningful only for ADJUST_BUDGET.
type Action struct {
	Type      ActionType `json:"type"`
	NewBudget float64    `json:"new_budget,omitempty"`
	Reason    string     `json:"reason"`
}

// IsNoop reports whether the action requires no platform call.
func (a Action) IsNoop() bool { return a.Type == ActionNoop }

func (a Action) String() string {
	if a.Type == ActionAdjustBudget {
		return fmt.Sprintf("%s(new_budget=%.2f, %s)", a.Type, a.NewBudget, a.Reason)
	}
	return fmt.Sprintf("%s(%s)", a.Type, a.Reason)
}

// Noop builds the explicit do-nothing action with a human-readable reason.
func Noop(format string, args ...any) Action {
	return Action{Type: ActionNoop, Reason: fmt.Sprintf(format, args...)}
}

// Pause builds a PAUSE_ENTITY action.
func Pause(format string, args ...any) Action {
	return Action{Type: ActionPauseEntity, Reason: fmt.Sprintf(format, args...)}
}

// Start builds a START_ENTITY action.
func Start(format string, args ...any) Action {
	return Action{Type: ActionStartEntity, Reason: fmt.Sprintf(format, args...)}
}

// AdjustBudget builds an ADJUST_BUDGET action.
func AdjustBudget(newBudget float64, format string, args ...any) Action {
	return Action{Type: ActionAdjustBudget, NewBudget: newBudget, Reason: fmt.Sprintf(format, args...)}
}
