package belief

import (
	"math"

	"github.com/cognicore/actlearn/pkg/actlearn/logic"
	"github.com/cognicore/actlearn/pkg/actlearn/rules"
)

// UnknownRule models "some rule I have not seen yet exists and would fire
// here" for one grounded action literal. PAny is the prior that a generic
// fact must hold; PNfs tracks the facts specifically implicated by failed
// experiments. NAll counts the possible grounded literals of the domain.
type UnknownRule struct {
	GroundedAction logic.Literal
	PAny           float64
	NAll           int
	PNfs           *rules.LitProbs
}

// NewUnknownRule initialises the model: nAll sums |instances|^arity over
// the domain predicates and pAny = 1 − p₀^(1/nAll).
func NewUnknownRule(rawProb float64, domain *logic.Domain, instCount int, groundedAction logic.Literal) *UnknownRule {
	nAll := 0
	for _, pred := range domain.GetPredicates() {
		nAll += int(math.Pow(float64(instCount), float64(pred.Arity)))
	}

	return &UnknownRule{
		GroundedAction: groundedAction,
		PAny:           1.0 - math.Pow(rawProb, 1.0/float64(nAll)),
		NAll:           nAll,
		PNfs:           rules.NewLitProbs(),
	}
}

// emptyUnknownRule is the zero model used for action literals never
// registered: no specific facts, zero prior.
func emptyUnknownRule(action logic.Literal) *UnknownRule {
	return &UnknownRule{GroundedAction: action, PNfs: rules.NewLitProbs()}
}

// ComputeProb returns the probability that an unknown rule would fire in
// the state (no absent fact is one it needs), along with the expected
// information gain of trying.
func (u *UnknownRule) ComputeProb(state logic.State) (prob, expectedGain float64) {
	prob = 1.0
	falseAnyFacts := float64(u.NAll - state.Len())

	for _, e := range u.PNfs.Entries() {
		if !state.Contains(e.Lit) {
			// The fact has a specific belief, so it is not an "any" fact.
			falseAnyFacts--
			prob *= 1.0 - e.Prob
			expectedGain += e.Prob
		}
	}

	prob *= math.Pow(1.0-u.PAny, falseAnyFacts)

	expectedGain += falseAnyFacts * u.PAny
	if prob < 1.0 {
		expectedGain *= prob / (1.0 - prob)
	}

	return prob, expectedGain
}

// CorroborateFailure updates the model after an experiment in state did
// not behave as a known rule: facts present in the state gain a specific
// belief, absent facts and pAny are renormalised by the failure
// probability. PAny is monotonically non-decreasing under this update.
func (u *UnknownRule) CorroborateFailure(state logic.State) {
	prob, _ := u.ComputeProb(state)
	pFail := 1.0 - prob
	if pFail == 0.0 {
		return
	}

	for _, fact := range state.Facts.Slice() {
		if _, ok := u.PNfs.Get(fact); !ok {
			u.PNfs.Set(fact, u.PAny)
		}
	}

	for _, e := range u.PNfs.Entries() {
		if !state.Contains(e.Lit) {
			u.PNfs.Set(e.Lit, e.Prob/pFail)
		}
	}

	u.PAny /= pFail
}
