package belief

import (
	"math/rand"

	"github.com/cognicore/actlearn/pkg/actlearn/logic"
	"github.com/cognicore/actlearn/pkg/actlearn/rules"
)

// Corroborator owns the unknown-rule models and runs the necessity update
// over every matching rule when an observation arrives.
type Corroborator struct {
	EstimatedRulesPerAction int
	StartPu                 float64

	domain    *logic.Domain
	instances []logic.Term
	ruleSet   []*rules.Rule
	unknown   map[string]*UnknownRule
	rng       *rand.Rand
}

// NewCorroborator creates a corroborator over the domain.
func NewCorroborator(domain *logic.Domain, estimatedRulesPerAction int, startPu float64, rng *rand.Rand) *Corroborator {
	return &Corroborator{
		EstimatedRulesPerAction: estimatedRulesPerAction,
		StartPu:                 startPu,
		domain:                  domain,
		unknown:                 map[string]*UnknownRule{},
		rng:                     rng,
	}
}

// SetDomain swaps the domain the corroborator reasons over.
func (c *Corroborator) SetDomain(domain *logic.Domain) {
	c.domain = domain
}

// SetInstances installs the problem instances (constants excluded; they
// are appended internally).
func (c *Corroborator) SetInstances(instances []logic.Term) {
	c.instances = append([]logic.Term{}, instances...)
}

// SetRules installs the active rule snapshot.
func (c *Corroborator) SetRules(rs []*rules.Rule) {
	c.ruleSet = append([]*rules.Rule{}, rs...)
}

// Rules returns the active rule snapshot.
func (c *Corroborator) Rules() []*rules.Rule {
	return c.ruleSet
}

func (c *Corroborator) allInstances() []logic.Term {
	return append(append([]logic.Term{}, c.instances...), c.domain.GetConstants()...)
}

// RegisterAction creates the unknown-rule model for a grounded action
// literal if it does not exist yet.
func (c *Corroborator) RegisterAction(action logic.Literal) {
	key := action.Key()
	if _, ok := c.unknown[key]; !ok {
		c.unknown[key] = NewUnknownRule(c.StartPu, c.domain, len(c.allInstances()), action)
	}
}

// UnknownRuleFor returns the model of a grounded action literal, creating
// an empty one for literals never registered.
func (c *Corroborator) UnknownRuleFor(action logic.Literal) *UnknownRule {
	key := action.Key()
	if u, ok := c.unknown[key]; ok {
		return u
	}
	u := emptyUnknownRule(action)
	c.unknown[key] = u
	return u
}

// UnknownProb is the probability that an unknown rule would fire for the
// experiment, with the expected information gain.
func (c *Corroborator) UnknownProb(state logic.State, action logic.Literal) (prob, expectedGain float64) {
	if logic.IsMetaPredName(action.Pred.Name) {
		return 0, 0
	}
	return c.UnknownRuleFor(action).ComputeProb(state)
}

// CorroborateRules reweighs every necessity of every rule compatible with
// the observed action, and feeds the failure evidence to the unknown-rule
// model. Sticky necessities (exact 0 and exact 1) pass through unchanged;
// everything else is clamped to [0, 0.95].
func (c *Corroborator) CorroborateRules(trace logic.Trace) {
	if logic.IsMetaPredName(trace.Action.Pred.Name) {
		return
	}

	allInsts := c.allInstances()

	added, removed := trace.State.Difference(trace.NewState)
	effects := logic.StateFromSet(added.Union(removed))

	var matching []*rules.Rule
	posSigmas := map[*rules.Rule][]Unverified{}
	negSigmas := map[*rules.Rule][]Unverified{}
	protRTs := map[*rules.Rule]float64{}
	covRTs := map[*rules.Rule]float64{}

	covMT := 1.0
	for _, rule := range c.ruleSet {
		if !logic.Compatible(rule.ActionLiteral, trace.Action) {
			continue
		}
		matching = append(matching, rule)

		pos, neg := ProcessEffects(rule, trace.State, trace.Action, effects, allInsts, c.rng)
		posSigmas[rule] = pos
		negSigmas[rule] = neg

		protRTs[rule] = CdProb(rule.PrecondNecessities, rule.ConstNecessities, neg)
		if protRTs[rule] == 0.0 {
			return
		}

		nCovRT := 1.0
		conditionalCds := append([]Unverified{}, neg...)
		for _, disj := range pos {
			nCovRT *= DgcdProb(rule.PrecondNecessities, rule.ConstNecessities, disj, conditionalCds)
			conditionalCds = append(conditionalCds, disj)
		}
		covRTs[rule] = 1.0 - nCovRT

		covMT *= nCovRT
	}

	pUe, _ := c.UnknownProb(trace.State, trace.Action)

	k := float64(c.EstimatedRulesPerAction)
	l := float64(len(matching))
	pUeff := 1.0
	if l < k {
		pUeff = 1.0 / (k - l)
	}

	c.UnknownRuleFor(trace.Action).CorroborateFailure(trace.State)

	covMT *= 1.0 - pUe*pUeff
	covMT = 1.0 - covMT

	for _, rule := range matching {
		updatedPreconds := rules.NewLitProbs()
		updatedConsts := rules.NewTermProbs()

		update := func(isLit bool, niL logic.Literal, niT logic.Term, currentNec float64) float64 {
			if currentNec == 0.0 || currentNec == 1.0 || protRTs[rule] == 0.0 || covMT == 0.0 {
				return currentNec
			}

			var filteredNeg, filteredPos []Unverified
			for _, disj := range negSigmas[rule] {
				if (!isLit || !disj.containsPrecond(niL)) && (isLit || !disj.containsConst(niT)) {
					filteredNeg = append(filteredNeg, disj)
				}
			}
			for _, disj := range posSigmas[rule] {
				if (!isLit || !disj.containsPrecond(niL)) && (isLit || !disj.containsConst(niT)) {
					filteredPos = append(filteredPos, disj)
				}
			}

			protRTgivenNk := CdProb(rule.PrecondNecessities, rule.ConstNecessities, filteredNeg)

			nCovRTgivenNk := 1.0
			conditionalCds := append([]Unverified{}, filteredNeg...)
			for _, disj := range filteredPos {
				nCovRTgivenNk *= DgcdProb(rule.PrecondNecessities, rule.ConstNecessities, disj, conditionalCds)
				conditionalCds = append(conditionalCds, disj)
			}
			covRTgivenNk := 1.0 - nCovRTgivenNk

			covMTwithoutR := 1.0 - pUe*pUeff
			for _, other := range matching {
				if other != rule {
					covMTwithoutR *= 1.0 - covRTs[other]
				}
			}
			covMTwithoutR = 1.0 - covMTwithoutR

			updated := protRTgivenNk * (covRTgivenNk + nCovRTgivenNk*covMTwithoutR) /
				protRTs[rule] / covMT * currentNec
			return rules.Clamp(updated)
		}

		for _, e := range rule.PrecondNecessities.Entries() {
			updatedPreconds.Set(e.Lit, update(true, e.Lit, logic.Term{}, e.Prob))
		}
		for _, e := range rule.ConstNecessities.Entries() {
			updatedConsts.Set(e.Term, update(false, logic.Literal{}, e.Term, e.Prob))
		}

		rule.PrecondNecessities = updatedPreconds
		rule.ConstNecessities = updatedConsts
	}
}
