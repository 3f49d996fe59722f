// Package planner defines the interface the learner feeds its
// domain-from-rules projection into, plus a bounded best-first planner
// used to evaluate learnt models.
package planner

import (
	"github.com/cognicore/actlearn/pkg/actlearn/logic"
	"github.com/cognicore/actlearn/pkg/actlearn/trace"
)

// Planner consumes a domain and produces the next action towards the
// goal. NextAction returns false when no action is available (goal
// reached, no plan found, or deadline hit with nothing to show).
type Planner interface {
	Init(domain *logic.Domain, instances []logic.Term, goal logic.Goal, ring *trace.Ring)
	UpdateProblem(instances []logic.Term, goal logic.Goal, headstart []logic.Literal)
	NextAction(state logic.State) (logic.Literal, bool)
}
