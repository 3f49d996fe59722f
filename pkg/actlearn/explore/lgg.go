package explore

import (
	"math/rand"

	"go.uber.org/zap"

	"github.com/cognicore/actlearn/internal/randx"
	"github.com/cognicore/actlearn/pkg/actlearn/config"
	"github.com/cognicore/actlearn/pkg/actlearn/logic"
	"github.com/cognicore/actlearn/pkg/actlearn/rules"
)

// LGGExplorer predicts whether an action is likely to force a
// generalisation of the current model: for rules whose preconditions do
// not hold, it anticipates the example the action would produce and scores
// it by the size of the resulting least general generalisation. A share of
// actions stays uniformly random.
type LGGExplorer struct {
	epsilon float64
	startPu float64
	rng     *rand.Rand
	log     *zap.Logger

	domain    *logic.Domain
	instances []logic.Term

	ruleSet          []*rules.Rule
	actionLiterals   logic.LiteralSet
	actionPredicates map[string]logic.Predicate

	prevState          logic.State
	havePrevState      bool
	interestingActions []scoredAction
	iteration          int
}

type scoredAction struct {
	action logic.Literal
	size   int
}

// LGGOptions configures an LGGExplorer.
type LGGOptions struct {
	Config  config.LGGExplorerConfig
	StartPu float64
	Rand    *rand.Rand
	Logger  *zap.Logger
}

// NewLGGExplorer creates the explorer.
func NewLGGExplorer(opts LGGOptions) *LGGExplorer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LGGExplorer{
		epsilon:          opts.Config.Epsilon,
		startPu:          opts.StartPu,
		rng:              opts.Rand,
		log:              logger,
		actionLiterals:   logic.NewLiteralSet(),
		actionPredicates: map[string]logic.Predicate{},
	}
}

// Init installs the domain and instances.
func (e *LGGExplorer) Init(domain *logic.Domain, instances []logic.Term) {
	e.domain = domain
	e.instances = append([]logic.Term{}, instances...)
	e.havePrevState = false
}

// UpdateProblem resets per-problem bookkeeping.
func (e *LGGExplorer) UpdateProblem(instances []logic.Term) {
	e.instances = append([]logic.Term{}, instances...)
	e.havePrevState = false
	e.interestingActions = nil
}

// SetRules installs the active rule snapshot.
func (e *LGGExplorer) SetRules(rs []*rules.Rule) {
	e.ruleSet = append([]*rules.Rule{}, rs...)
}

// SetActionLiterals grounds the base action literals over the instances.
func (e *LGGExplorer) SetActionLiterals(base logic.LiteralSet) {
	e.actionLiterals = logic.NewLiteralSet()
	e.actionPredicates = map[string]logic.Predicate{}
	allInsts := append(append([]logic.Term{}, e.instances...), e.domain.GetConstants()...)

	for _, lit := range base.Slice() {
		e.actionPredicates[lit.Pred.Name] = lit.Pred
		for _, sub := range logic.NewSubstitution().ExpandUncovered(lit.Params, allInsts, true) {
			e.actionLiterals.Add(sub.ApplyLiteral(lit))
		}
	}
}

// ClearPlan is a no-op: the LGG explorer buffers no plan.
func (e *LGGExplorer) ClearPlan() {}

// InformRevision is a no-op for this explorer.
func (e *LGGExplorer) InformRevision(bool) {}

// StartPu is the example-rule prior.
func (e *LGGExplorer) StartPu() float64 {
	return e.startPu
}

// NextAction returns a random action with probability 1−epsilon, otherwise
// refreshes and consumes the anticipated-generalisation scores.
func (e *LGGExplorer) NextAction(state logic.State) logic.Literal {
	e.iteration++

	allInsts := append(append([]logic.Term{}, e.instances...), e.domain.GetConstants()...)

	if e.rng.Float64() > e.epsilon {
		return randx.Pick(e.rng, e.actionLiterals.Slice())
	}

	if !e.havePrevState || !state.Equal(e.prevState) {
		e.interestingActions = nil
		e.prevState = state.Clone()
		e.havePrevState = true

		for _, rule := range e.ruleSet {
			if len(logic.NewSubstitution().OISubsumeSet(rule.Preconditions, state.Facts)) > 0 {
				continue
			}
			e.anticipateGeneralizations(rule, state, allInsts)
		}
	}

	if len(e.interestingActions) > 0 {
		maxSize := 0
		var maxLits []logic.Literal
		for _, sa := range e.interestingActions {
			if sa.size > maxSize {
				maxLits = []logic.Literal{sa.action}
				maxSize = sa.size
			} else if sa.size == maxSize {
				maxLits = append(maxLits, sa.action)
			}
		}

		selected := randx.Pick(e.rng, maxLits)

		var remaining []scoredAction
		for _, sa := range e.interestingActions {
			if !sa.action.Equal(selected) {
				remaining = append(remaining, sa)
			}
		}
		e.interestingActions = remaining

		return selected
	}

	return randx.Pick(e.rng, e.actionLiterals.Slice())
}

// anticipateGeneralizations generalises the rule's effects and action
// literal away from their constants, grounds the delete effects into the
// state, and for every grounding whose add effects are absent builds the
// example the action would produce, scoring it by the size of the
// generalisation with the rule.
func (e *LGGExplorer) anticipateGeneralizations(rule *rules.Rule, state logic.State, allInsts []logic.Term) {
	subr := logic.NewSubstitution()
	genVars := logic.NewTermSet()
	genDels := logic.NewLiteralSet()
	genAdds := logic.NewLiteralSet()

	generalizeEffects := func(effects logic.LiteralSet, out logic.LiteralSet) {
		for _, eff := range effects.Slice() {
			for _, param := range eff.Params {
				if !param.IsVariable() {
					if _, ok := subr.GetInverse(param); !ok {
						v := rule.MakeNewVar(genVars, param)
						subr.Set(v, param)
					}
				}
			}
			out.Add(subr.Inverse().ApplyLiteral(eff))
		}
	}
	generalizeEffects(rule.Del, genDels)
	generalizeEffects(rule.Add, genAdds)

	for _, param := range rule.ActionLiteral.Params {
		if !param.IsVariable() {
			if _, ok := subr.GetInverse(param); !ok {
				v := rule.MakeNewVar(genVars, param)
				subr.Set(v, param)
			}
		}
	}
	genAct := subr.Inverse().ApplyLiteral(rule.ActionLiteral)

	uncovered := logic.NewTermSet()
	for _, group := range []logic.LiteralSet{genAdds, genDels} {
		for _, lit := range group {
			for _, p := range lit.Params {
				if p.IsVariable() {
					uncovered.Add(p)
				}
			}
		}
	}
	for _, p := range genAct.Params {
		if p.IsVariable() {
			uncovered.Add(p)
		}
	}

	// Every grounding of the delete effects found in the state is a spot
	// where the rule almost applies.
	for _, subx := range logic.NewSubstitution().OISubsumeSet(genDels, state.Facts) {
		if anyAddInState(genAdds, subx, state) {
			continue
		}

		for _, subxx := range subx.ExpandUncovered(uncovered.Slice(), allInsts, true) {
			if anyAddInState(genAdds, subxx, state) {
				continue
			}

			newState := state.Clone()
			newState.AddFacts(subxx.ApplySet(genAdds))
			newState.RemoveFacts(subxx.ApplySet(genDels))
			actLit := subxx.ApplyLiteral(genAct)
			if !actLit.Grounded() {
				continue
			}

			example := rules.RuleFromTrace(logic.Trace{
				State:      state,
				Action:     actLit,
				Authorized: true,
				NewState:   newState,
			}, e.startPu, true)

			gs := &rules.GenState{SubR: subr.Clone(), SubX: subxx.Clone(), GenVars: genVars.Clone()}
			genPreconds := rule.AnyGeneralizationOf(example, gs, e.rng)

			e.interestingActions = append(e.interestingActions, scoredAction{
				action: actLit,
				size:   genPreconds.Len(),
			})
		}
	}
}

func anyAddInState(genAdds logic.LiteralSet, sub *logic.Substitution, state logic.State) bool {
	for _, a := range genAdds {
		applied := sub.ApplyLiteral(a)
		if applied.Grounded() && state.Contains(applied) {
			return true
		}
	}
	return false
}
