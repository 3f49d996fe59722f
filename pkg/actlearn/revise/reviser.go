// Package revise implements the revision loop: it consumes observations,
// classifies the active rules into prematching, contradicting and covering,
// and dispatches generalisation or specialisation so the rule set stays
// consistent with everything seen.
package revise

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/cognicore/actlearn/pkg/actlearn/belief"
	"github.com/cognicore/actlearn/pkg/actlearn/internalerr"
	"github.com/cognicore/actlearn/pkg/actlearn/logic"
	"github.com/cognicore/actlearn/pkg/actlearn/rules"
)

// Options configures a Reviser.
type Options struct {
	Domain                    *logic.Domain
	Corroborator              *belief.Corroborator
	StartPu                   float64
	GeneralizationTrials      int
	LeastGeneral              bool
	AlwaysGeneralizeConstants bool
	Rand                      *rand.Rand
	Logger                    *zap.Logger
}

// Reviser owns the active rule set and the counter-example sets.
type Reviser struct {
	Rules                 []*rules.Rule
	CounterExamples       []*rules.Rule
	FailedCounterExamples []*rules.Rule

	domain                    *logic.Domain
	corroborator              *belief.Corroborator
	startPu                   float64
	generalizationTrials      int
	leastGeneral              bool
	alwaysGeneralizeConstants bool
	rng                       *rand.Rand
	log                       *zap.Logger

	failedBeforeFirstSuccess map[string][]logic.Trace
}

// New creates a reviser.
func New(opts Options) *Reviser {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	trials := opts.GeneralizationTrials
	if trials <= 0 {
		trials = 1
	}
	return &Reviser{
		domain:                    opts.Domain,
		corroborator:              opts.Corroborator,
		startPu:                   opts.StartPu,
		generalizationTrials:      trials,
		leastGeneral:              opts.LeastGeneral,
		alwaysGeneralizeConstants: opts.AlwaysGeneralizeConstants,
		rng:                       opts.Rand,
		log:                       logger,
		failedBeforeFirstSuccess:  map[string][]logic.Trace{},
	}
}

// Reset clears all learnt knowledge.
func (v *Reviser) Reset() {
	v.Rules = nil
	v.CounterExamples = nil
	v.FailedCounterExamples = nil
	v.failedBeforeFirstSuccess = map[string][]logic.Trace{}
}

func (v *Reviser) hasRuleFor(pred logic.Predicate) bool {
	for _, r := range v.Rules {
		if r.ActionLiteral.Pred.Equal(pred) {
			return true
		}
	}
	return false
}

func (v *Reviser) removeRule(rule *rules.Rule) {
	kept := v.Rules[:0]
	for _, r := range v.Rules {
		if r != rule {
			kept = append(kept, r)
		}
	}
	v.Rules = kept
}

// UpdateKnowledge revises the rule set against one observation and reports
// whether the knowledge changed. Meta-actions and actions over deleted
// instances are ignored.
func (v *Reviser) UpdateKnowledge(trace logic.Trace) (bool, error) {
	if !trace.Action.Grounded() {
		return false, fmt.Errorf("%w: action literal %s is not grounded", internalerr.ErrMalformedRule, trace.Action)
	}
	if logic.IsMetaPredName(trace.Action.Pred.Name) {
		return false, nil
	}

	deletePred := v.domain.DeletePred()
	for _, param := range trace.Action.Params {
		if trace.State.Contains(deletePred.Lit(param)) {
			return false, nil
		}
	}

	// A failure on an action with no rule yet: remember it so the belief
	// engine can replay it once a first rule exists.
	if !trace.Authorized && !v.hasRuleFor(trace.Action.Pred) {
		name := trace.Action.Pred.Name
		v.failedBeforeFirstSuccess[name] = append(v.failedBeforeFirstSuccess[name], trace)
	}

	example := rules.RuleFromTrace(trace, v.startPu, true)
	if trace.Authorized && !example.WellFormed() {
		return false, fmt.Errorf("%w: example built from %s", internalerr.ErrMalformedRule, trace.Action)
	}

	modified := false

	var prematching, contradiction []*rules.Rule
	for _, rule := range v.Rules {
		prematchSubs := rule.PrematchingSubs(example, nil)
		if prematchSubs.Len() == 0 {
			continue
		}
		prematching = append(prematching, rule)

		if trace.Authorized {
			for _, sub := range prematchSubs.Slice() {
				if !rule.Postmatches(example, sub) {
					contradiction = append(contradiction, rule)
					break
				}
			}
		}
	}

	var uncovered []*rules.Rule

	switch {
	case len(prematching) == 0 && trace.Authorized:
		v.log.Debug("no rule covered example, generalizing", zap.Stringer("action", trace.Action))
		modified = true
		v.CounterExamples = append(v.CounterExamples, example)
		uncovered = append(uncovered, example)

	case len(prematching) > 0 && !trace.Authorized:
		v.log.Debug("rules covered a failed action, specializing",
			zap.Stringer("action", trace.Action), zap.Int("rules", len(prematching)))
		modified = true
		v.FailedCounterExamples = append(v.FailedCounterExamples, example)

		for _, rule := range prematching {
			for _, leaf := range v.specialize(rule, example) {
				for _, r := range v.Rules {
					r.RemoveParentRecursive(leaf)
				}
				uncovered = append(uncovered, leaf)
			}
		}

	case len(contradiction) > 0:
		v.log.Debug("rules contradicted example, specializing",
			zap.Stringer("action", trace.Action), zap.Int("rules", len(contradiction)))
		modified = true
		v.CounterExamples = append(v.CounterExamples, example)

		for _, rule := range contradiction {
			uncovered = append(uncovered, v.specialize(rule, example)...)
		}
	}

	for _, ex := range uncovered {
		if err := v.generalize(ex); err != nil {
			return modified, err
		}
	}

	return modified, nil
}

// specialize removes the rule from the active set and walks its parents:
// leaf parents come back as uncovered examples, still-contradicting
// parents are specialised recursively.
func (v *Reviser) specialize(rule, example *rules.Rule) []*rules.Rule {
	v.removeRule(rule)

	var uncovered []*rules.Rule
	for _, parent := range rule.Parents {
		if len(parent.Parents) == 0 {
			uncovered = append(uncovered, parent)
			v.removeRule(parent)
		} else if parent.Contradicts(example) {
			uncovered = append(uncovered, v.specialize(parent, example)...)
		}
	}
	return uncovered
}

// generalize makes the rule set cover the example: attach it under an
// already-covering node, compute an LGG with an existing rule, or insert
// it as a new root.
func (v *Reviser) generalize(example *rules.Rule) error {
	// Step 1: some sub-DAG node may already cover the example.
	leastGeneralityLevel := -1
	var leastGeneralRules []*rules.Rule
	for _, rule := range v.Rules {
		lgr := rule.LeastGeneralRuleCovering(example)
		if lgr == nil {
			continue
		}
		genLevel := lgr.GeneralityLevel()
		if genLevel < leastGeneralityLevel || leastGeneralityLevel == -1 {
			leastGeneralityLevel = genLevel
			leastGeneralRules = []*rules.Rule{lgr}
		} else if genLevel == leastGeneralityLevel {
			leastGeneralRules = append(leastGeneralRules, lgr)
		}
	}

	for _, rule := range leastGeneralRules {
		if rule == example {
			continue
		}
		rule.InsertParent(example)
		if rule.ReachableFrom(rule) {
			panic("action rule reachable from itself through the generalisation DAG")
		}
	}

	if len(leastGeneralRules) > 0 {
		return nil
	}

	// Step 2: look for an LGG with an existing rule.
	current := append([]*rules.Rule{}, v.Rules...)
	for _, rule := range current {
		gs := rules.NewGenState()
		if !rule.PostGeneralizes(example, gs, v.rng) {
			continue
		}

		var lggRule *rules.Rule
		for trial := 0; trial < v.generalizationTrials; trial++ {
			genRule := v.generalizationTrial(rule, example, gs.Clone())
			if genRule == nil {
				continue
			}

			better := lggRule == nil
			if !better {
				if v.leastGeneral {
					better = genRule.Preconditions.Len() > lggRule.Preconditions.Len()
				} else {
					better = genRule.Preconditions.Len() < lggRule.Preconditions.Len()
				}
			}
			if better {
				lggRule = genRule
			}
		}

		if lggRule != nil {
			v.removeRule(rule)
			v.Rules = append(v.Rules, lggRule)
			v.log.Debug("generalized rule", zap.Stringer("action", lggRule.ActionLiteral),
				zap.Int("preconditions", lggRule.Preconditions.Len()))
			return nil
		}
	}

	// Step 3: no generalisation worked, insert the example as a root.
	if v.alwaysGeneralizeConstants {
		v.Rules = append(v.Rules, example.MakeUseOfVariables())
	} else {
		v.Rules = append(v.Rules, example)
	}

	// Replay the failures recorded before this action's first success.
	name := example.ActionLiteral.Pred.Name
	if traces, ok := v.failedBeforeFirstSuccess[name]; ok {
		if v.corroborator != nil {
			for _, t := range traces {
				v.corroborator.CorroborateRules(t)
			}
		}
		delete(v.failedBeforeFirstSuccess, name)
	}

	return nil
}

// generalizationTrial runs one UNE-GEN pass and builds the candidate
// generalised rule, or nil when the candidate is rejected.
func (v *Reviser) generalizationTrial(rule, example *rules.Rule, gs *rules.GenState) *rules.Rule {
	genPreconds := rule.AnyGeneralizationOf(example, gs, v.rng)

	// Degeneralise the variables both substitutions ground identically.
	for _, pair := range gs.SubR.Pairs() {
		from, to := pair[0], pair[1]
		if img, ok := gs.SubX.Get(from); ok && img.Equal(to) {
			replace := logic.SubstitutionFromPairs([]logic.Term{from}, []logic.Term{to}, true)
			genPreconds = replace.ApplySet(genPreconds)
			gs.SubR.Remove(from)
			gs.SubX.Remove(from)
		}
		if from.Equal(to) {
			gs.SubR.Remove(from)
		}
	}

	removedPreconds := logic.NewLiteralSet()
	precondLists := map[string]*meanAcc{}
	constLists := map[string]*meanTermAcc{}

	invSubR := gs.SubR.Inverse()
	invSubX := gs.SubX.Inverse()

	collectPreconds := func(src *rules.LitProbs, inv *logic.Substitution) {
		for _, e := range src.Entries() {
			genVersion := inv.ApplyLiteral(e.Lit)
			if !genPreconds.Contains(genVersion) {
				removedPreconds.Add(genVersion)
			}
			key := genVersion.Key()
			if acc, ok := precondLists[key]; ok {
				acc.add(e.Prob)
			} else {
				precondLists[key] = &meanAcc{lit: genVersion, sum: e.Prob, n: 1}
			}
		}
	}
	collectPreconds(rule.PrecondNecessities, invSubR)
	collectPreconds(example.PrecondNecessities, invSubX)

	collectConsts := func(src *rules.TermProbs, inv *logic.Substitution) {
		for _, e := range src.Entries() {
			if !inv.Apply(e.Term).Equal(e.Term) {
				continue
			}
			if acc, ok := constLists[e.Term.Name]; ok {
				acc.add(e.Prob)
			} else {
				constLists[e.Term.Name] = &meanTermAcc{term: e.Term, sum: e.Prob, n: 1}
			}
		}
	}
	collectConsts(rule.ConstNecessities, invSubR)
	collectConsts(example.ConstNecessities, invSubX)

	precondMeans := rules.NewLitProbs()
	for _, acc := range precondLists {
		if acc.sum <= 0.01 && !genPreconds.Contains(acc.lit) {
			// A removed precondition nobody believed in disappears.
			removedPreconds.Remove(acc.lit)
			continue
		}
		precondMeans.Set(acc.lit, acc.mean())
	}
	constMeans := rules.NewTermProbs()
	for _, acc := range constLists {
		constMeans.Set(acc.term, acc.mean())
	}

	genRule := rules.NewRule(genPreconds,
		invSubR.ApplyLiteral(rule.ActionLiteral),
		invSubR.ApplySet(rule.Add),
		invSubR.ApplySet(rule.Del),
		[]*rules.Rule{rule, example}, v.startPu, true)
	genRule.RemovedPreconditions = removedPreconds

	for _, e := range precondMeans.Entries() {
		if genRule.Preconditions.Contains(e.Lit) || genRule.RemovedPreconditions.Contains(e.Lit) {
			genRule.PrecondNecessities.Set(e.Lit, e.Prob)
		}
	}
	for _, e := range constMeans.Entries() {
		if genRule.ConstNecessities.Contains(e.Term) {
			genRule.ConstNecessities.Set(e.Term, e.Prob)
		}
	}

	if !genRule.WellFormed() {
		return nil
	}
	for _, cx := range v.CounterExamples {
		if genRule.Contradicts(cx) {
			return nil
		}
	}
	for _, fcx := range v.FailedCounterExamples {
		if genRule.Prematches(fcx, nil) {
			return nil
		}
	}

	return genRule
}

type meanAcc struct {
	lit logic.Literal
	sum float64
	n   int
}

func (a *meanAcc) add(v float64) { a.sum += v; a.n++ }
func (a *meanAcc) mean() float64 { return a.sum / float64(a.n) }

type meanTermAcc struct {
	term logic.Term
	sum  float64
	n    int
}

func (a *meanTermAcc) add(v float64) { a.sum += v; a.n++ }
func (a *meanTermAcc) mean() float64 { return a.sum / float64(a.n) }
