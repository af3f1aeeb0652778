// Package policy holds the ordered decision chain that turns one entity's
// evaluation context into at most one action per cycle.
package policy

import (
	"context"

	"adpilot/internal/logger"
	"adpilot/internal/types"
)

// EvalContext is the read-only input a policy decides on.
type EvalContext struct {
	TraceID       string
	Summary       types.EntitySummary
	CurrentBudget float64
	TargetROAS    float64
	EntityType    types.EntityType
	EntityID      string
	AccountID     string
	// Suggestion is the last persisted advisory annotation, nil if none.
	Suggestion *types.AISuggestion
}

// Policy maps an evaluation context to one proposed action. Implementations
// must be side-effect-free with respect to the decision; the advisor policy's
// persisted annotation is the single sanctioned exception.
type Policy interface {
	Name() string
	Apply(ctx context.Context, ec EvalContext) Action
}

// Chain runs policies in fixed precedence order and stops at the first
// non-noop action, so safety policies can preempt growth policies and at most
// one action is ever dispatched per cycle.
type Chain struct {
	policies []Policy
}

func NewChain(policies ...Policy) *Chain {
	return &Chain{policies: policies}
}

// Decide returns the winning action and the name of the policy that produced
// it. When every policy declines, the last noop (with its reason) is returned
// so the caller still has something explainable to log.
func (c *Chain) Decide(ctx context.Context, ec EvalContext) (Action, string) {
	last := Noop("no policies configured")
	lastName := ""
	for _, p := range c.policies {
		action := p.Apply(ctx, ec)
		if !action.IsNoop() {
			logger.Infof("[%s] policy %s decided %s for %s %s",
				ec.TraceID, p.Name(), action, ec.EntityType, ec.EntityID)
			return action, p.Name()
		}
		logger.Debugf("[%s] policy %s noop for %s %s: %s",
			ec.TraceID, p.Name(), ec.EntityType, ec.EntityID, action.Reason)
		last = action
		lastName = p.Name()
	}
	return last, lastName
}
