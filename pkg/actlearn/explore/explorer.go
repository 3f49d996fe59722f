// Package explore selects the next experiment to run: the Bayesian
// explorer hill-climbs a revision-probability utility over rolled-out
// random plans, the LGG explorer scores anticipated generalisations.
package explore

import (
	"strings"

	"github.com/cognicore/actlearn/pkg/actlearn/logic"
	"github.com/cognicore/actlearn/pkg/actlearn/rules"
)

// Explorer picks grounded actions for the learner to try.
type Explorer interface {
	// Init installs the (internal) domain and problem instances.
	Init(domain *logic.Domain, instances []logic.Term)
	// UpdateProblem resets per-problem bookkeeping for new instances.
	UpdateProblem(instances []logic.Term)
	// SetRules installs a read-only snapshot of the active rules.
	SetRules(rs []*rules.Rule)
	// SetActionLiterals installs the action vocabulary to ground over.
	SetActionLiterals(base logic.LiteralSet)
	// NextAction returns the next grounded action to execute.
	NextAction(state logic.State) logic.Literal
	// InformRevision tells the explorer whether the last observation
	// revised the model.
	InformRevision(revised bool)
	// ClearPlan drops any buffered plan.
	ClearPlan()
	// StartPu is the prior an example rule is born with.
	StartPu() float64
}

// Experiment is a (state, action) pair the explorer has tried or intends
// to try.
type Experiment struct {
	State  logic.State
	Action logic.Literal
}

// Key gives a canonical identity for set membership.
func (e Experiment) Key() string {
	facts := e.State.Facts.Slice()
	var b strings.Builder
	b.WriteString(e.Action.Key())
	b.WriteByte('|')
	for _, f := range facts {
		b.WriteString(f.Key())
		b.WriteByte(';')
	}
	return b.String()
}

// ExperimentSet deduplicates experiments.
type ExperimentSet map[string]Experiment

// NewExperimentSet creates an empty set.
func NewExperimentSet() ExperimentSet {
	return ExperimentSet{}
}

// Add inserts an experiment.
func (s ExperimentSet) Add(e Experiment) {
	s[e.Key()] = e
}

// Contains reports membership.
func (s ExperimentSet) Contains(e Experiment) bool {
	_, ok := s[e.Key()]
	return ok
}

// Len returns the number of distinct experiments.
func (s ExperimentSet) Len() int {
	return len(s)
}
