package explore

import (
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/actlearn/internal/randx"
	"github.com/cognicore/actlearn/pkg/actlearn/belief"
	"github.com/cognicore/actlearn/pkg/actlearn/config"
	"github.com/cognicore/actlearn/pkg/actlearn/logic"
	"github.com/cognicore/actlearn/pkg/actlearn/rules"
	"github.com/cognicore/actlearn/pkg/actlearn/trace"
)

// BayesianExplorer selects experiments by hill-climbing the revision
// probability over short rolled-out plans, mixing in meta-actions to
// escape dead ends.
type BayesianExplorer struct {
	cfg          config.ExplorerConfig
	corroborator *belief.Corroborator
	rng          *rand.Rand
	log          *zap.Logger
	motivation   *trace.MotivationWriter

	domain    *logic.Domain
	instances []logic.Term

	plan          []logic.Literal
	revisionProbs []float64

	ruleSet          []*rules.Rule
	actionLiterals   logic.LiteralSet
	actionPredicates map[string]logic.Predicate
	deletedInstances logic.TermSet

	allExperiments       ExperimentSet
	experimentsPerAction map[string]ExperimentSet

	lastRevProb          float64
	positiveProbs        []float64
	negativeProbs        []float64
	revsNoProb           int
	revisions            int
	stepsWithoutRevision int
	iteration            int

	// Exposed per-tick stats.
	StatsRevProb float64
	StatsRevPos  bool
}

// BayesianOptions configures a BayesianExplorer.
type BayesianOptions struct {
	Config       config.ExplorerConfig
	Corroborator *belief.Corroborator
	Rand         *rand.Rand
	Logger       *zap.Logger
	Motivation   *trace.MotivationWriter
}

// NewBayesianExplorer creates the explorer.
func NewBayesianExplorer(opts BayesianOptions) *BayesianExplorer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BayesianExplorer{
		cfg:                  opts.Config,
		corroborator:         opts.Corroborator,
		rng:                  opts.Rand,
		log:                  logger,
		motivation:           opts.Motivation,
		actionLiterals:       logic.NewLiteralSet(),
		actionPredicates:     map[string]logic.Predicate{},
		deletedInstances:     logic.NewTermSet(),
		allExperiments:       NewExperimentSet(),
		experimentsPerAction: map[string]ExperimentSet{},
		lastRevProb:          -1,
		StatsRevProb:         -1,
	}
}

// Init installs the domain and instances and clears deletions.
func (e *BayesianExplorer) Init(domain *logic.Domain, instances []logic.Term) {
	e.domain = domain
	e.instances = append([]logic.Term{}, instances...)
	e.deletedInstances = logic.NewTermSet()
}

// UpdateProblem resets per-problem bookkeeping.
func (e *BayesianExplorer) UpdateProblem(instances []logic.Term) {
	e.instances = append([]logic.Term{}, instances...)
	e.plan = nil
	e.revisionProbs = nil
	e.allExperiments = NewExperimentSet()
	e.experimentsPerAction = map[string]ExperimentSet{}
	e.deletedInstances = logic.NewTermSet()
}

// SetRules installs the active rule snapshot.
func (e *BayesianExplorer) SetRules(rs []*rules.Rule) {
	e.ruleSet = append([]*rules.Rule{}, rs...)
}

// SetActionLiterals grounds the base action literals over the instances
// and registers an unknown-rule model for each grounded action.
func (e *BayesianExplorer) SetActionLiterals(base logic.LiteralSet) {
	e.actionLiterals = logic.NewLiteralSet()
	e.actionPredicates = map[string]logic.Predicate{}
	allInsts := e.allInstances()

	for _, lit := range base.Slice() {
		e.actionPredicates[lit.Pred.Name] = lit.Pred
		for _, sub := range logic.NewSubstitution().ExpandUncovered(lit.Params, allInsts, true) {
			e.actionLiterals.Add(sub.ApplyLiteral(lit))
		}
	}

	for _, action := range e.actionLiterals.Slice() {
		e.corroborator.RegisterAction(action)
	}
}

// ClearPlan drops the buffered plan.
func (e *BayesianExplorer) ClearPlan() {
	e.plan = nil
	e.revisionProbs = nil
}

// StartPu is the example-rule prior.
func (e *BayesianExplorer) StartPu() float64 {
	return e.cfg.StartPu
}

func (e *BayesianExplorer) allInstances() []logic.Term {
	return append(append([]logic.Term{}, e.instances...), e.domain.GetConstants()...)
}

// NextAction pops the buffered plan, generating a new one when empty. A
// pending remove-fact cleanup is emitted first.
func (e *BayesianExplorer) NextAction(state logic.State) logic.Literal {
	e.iteration++

	if e.iteration%50 == 0 && e.cfg.SaveMotivationTrace && e.motivation != nil {
		if err := e.motivation.Flush(); err != nil {
			e.log.Warn("flush motivation trace", zap.Error(err))
		}
	}

	if len(e.plan) == 0 && e.domain.RemovedFacts.Len() > 0 {
		e.domain.RemovedFacts = logic.NewLiteralSet()
		return e.domain.GetActionPredByName(logic.RemoveFactPredName).Lit()
	}

	if len(e.plan) == 0 {
		e.generateRandomPlan(state)
	}

	if len(e.plan) == 0 {
		return logic.Literal{}
	}

	nextAction := e.plan[len(e.plan)-1]
	e.plan = e.plan[:len(e.plan)-1]
	e.lastRevProb = e.revisionProbs[len(e.revisionProbs)-1]
	e.revisionProbs = e.revisionProbs[:len(e.revisionProbs)-1]

	switch nextAction.Pred.Name {
	case logic.ResetPredName:
		e.deletedInstances = logic.NewTermSet()
	case logic.DeletePredName:
		e.deletedInstances.Add(nextAction.Params[0])
	case logic.RemoveFactPredName:
	default:
		exp := Experiment{State: state, Action: nextAction}
		e.allExperiments.Add(exp)

		if len(e.plan) == 0 {
			set, ok := e.experimentsPerAction[exp.Action.Pred.Name]
			if !ok {
				set = NewExperimentSet()
				e.experimentsPerAction[exp.Action.Pred.Name] = set
			}
			set.Add(exp)
		}
	}

	return nextAction
}

// InformRevision records whether the executed experiment revised the
// model, feeding the running revision statistics and clearing the plan on
// revision.
func (e *BayesianExplorer) InformRevision(revised bool) {
	if revised {
		e.revisions++
		e.stepsWithoutRevision = 0
		e.plan = nil
		e.revisionProbs = nil
	} else {
		e.stepsWithoutRevision++
	}

	if e.lastRevProb != -1 {
		if revised {
			e.positiveProbs = append(e.positiveProbs, e.lastRevProb)
		} else {
			e.negativeProbs = append(e.negativeProbs, e.lastRevProb)
		}
	} else if revised {
		e.revsNoProb++
	}

	e.StatsRevProb = e.lastRevProb
	e.StatsRevPos = revised
}

func (e *BayesianExplorer) unknownProb(state logic.State, action logic.Literal) float64 {
	p, _ := e.corroborator.UnknownProb(state, action)
	return p
}

// RevisionProbability is the utility the explorer maximises: the
// probability that executing the action in the state yields an observation
// forcing a model revision.
func (e *BayesianExplorer) RevisionProbability(state logic.State, action logic.Literal) float64 {
	return e.revisionProbability(state, action, false)
}

func (e *BayesianExplorer) revisionProbability(state logic.State, action logic.Literal, makeTrace bool) float64 {
	allInsts := e.allInstances()

	puExp := e.unknownProb(state, action)

	type ruleResult struct {
		rule        *rules.Rule
		fulfilment  float64
		prematching bool
		subs        logic.SubstitutionSet
	}
	var results []ruleResult

	for _, r := range e.ruleSet {
		if !r.ActionLiteral.Pred.Equal(action.Pred) {
			continue
		}
		fulfilment, prematches, subs := belief.FulfilmentProbability(r, state, action, allInsts, e.rng)
		results = append(results, ruleResult{rule: r, fulfilment: fulfilment, prematching: prematches, subs: subs})
	}

	pRev := 1.0 - puExp
	for _, res := range results {
		if res.prematching {
			pRev *= res.fulfilment
		} else {
			pRev *= 1.0 - res.fulfilment
		}
	}
	pRev = 1.0 - pRev

	if makeTrace && e.motivation != nil {
		var snapshots []trace.RuleJSON
		for _, res := range results {
			snapshots = append(snapshots, trace.NewRuleJSON(res.rule, res.prematching, res.fulfilment, res.subs.Slice()))
		}
		e.motivation.Add(trace.NewMotivationRecord(state, action, pRev, snapshots))
	}

	return pRev
}

// ExpectedInformationGain is the alternative utility: the expected change
// of the necessity beliefs caused by the experiment.
func (e *BayesianExplorer) ExpectedInformationGain(state logic.State, action logic.Literal) float64 {
	allInsts := e.allInstances()
	sub := logic.NewSubstitution()

	type ruleGain struct {
		pr   float64
		nki  float64
		rule *rules.Rule
	}
	var gains []ruleGain

	prodPr := 1.0
	for _, r := range e.ruleSet {
		if !r.ActionLiteral.Pred.Equal(action.Pred) {
			continue
		}

		pr, _, _ := belief.FulfilmentProbability(r, state, action, allInsts, e.rng)
		prodPr *= 1.0 - pr

		sumNki := 0.0
		for _, precond := range r.Preconditions.Slice() {
			if !state.Contains(sub.ApplyLiteral(precond)) {
				sumNki += r.PrecondNecessities.Value(precond)
			}
		}
		for _, precond := range r.RemovedPreconditions.Slice() {
			if !state.Contains(sub.ApplyLiteral(precond)) {
				sumNki += r.PrecondNecessities.Value(precond)
			}
		}
		for _, entry := range r.ConstNecessities.Entries() {
			if img, ok := sub.Get(entry.Term); ok && !img.Equal(entry.Term) {
				sumNki += entry.Prob
			}
		}

		gains = append(gains, ruleGain{pr: pr, nki: sumNki, rule: r})
	}

	pu, _ := e.corroborator.UnknownProb(state, action)
	pp := 1.0 - (1.0-pu)*prodPr

	gain := 0.0
	for i, g := range gains {
		ppNki := 1.0 - pu
		for j, other := range gains {
			if j != i {
				ppNki *= 1.0 - other.pr
			}
		}
		ppNki = 1.0 - ppNki

		if pp > 0 && pp < 1 {
			gain += g.nki * (g.pr*math.Abs(1.0-ppNki/pp) +
				(1.0-g.pr)*math.Abs(1.0-(1.0-ppNki)/(1.0-pp)))
		}
	}

	return gain
}

// metaActionType draws the meta-action to mix in: 0 none, 1 reset,
// 2 delete. Delete probability decays with the deleted-instance count.
func (e *BayesianExplorer) metaActionType() int {
	if e.rng.Float64() >= e.cfg.MetaProbability {
		return 0
	}
	deleteProb := (1.0 - e.cfg.BaseResetProb) / (1.0 + float64(e.deletedInstances.Len()))
	if e.deletedInstances.Len() < len(e.instances) && e.rng.Float64() < deleteProb {
		return 2
	}
	return 1
}

func (e *BayesianExplorer) getAvailableExperiments(newDeleted logic.TermSet, state logic.State,
	actionPreds map[string]logic.Predicate) []logic.Literal {

	var available []logic.Literal
	for _, lit := range e.actionLiterals.Slice() {
		if _, ok := actionPreds[lit.Pred.Name]; !ok {
			continue
		}
		if e.allExperiments.Contains(Experiment{State: state, Action: lit}) {
			continue
		}

		valid := true
		for _, p := range lit.Params {
			if newDeleted.Contains(p) {
				valid = false
				break
			}
		}
		if valid {
			available = append(available, lit)
		}
	}
	return available
}

func (e *BayesianExplorer) getNotDeleted() []logic.Term {
	var notDeleted []logic.Term
	for _, inst := range e.allInstances() {
		if !e.deletedInstances.Contains(inst) {
			notDeleted = append(notDeleted, inst)
		}
	}
	return notDeleted
}

// generateRandomPlan fills the plan buffer: a random untried experiment by
// default, improved by rolling out candidate plans and keeping the one of
// highest discounted revision probability.
func (e *BayesianExplorer) generateRandomPlan(state logic.State) {
	startTime := time.Now()
	deadline := func() bool {
		return time.Since(startTime).Seconds() > e.cfg.ExplorationTimeLimit
	}

	allInsts := e.allInstances()
	e.plan = nil
	e.revisionProbs = nil

	experiments := e.getAvailableExperiments(e.deletedInstances, state, e.actionPredicates)

	var experiment logic.Literal
	if len(experiments) == 0 {
		experiment = e.domain.GetActionPredByName(logic.ResetPredName).Lit()
		e.plan = []logic.Literal{experiment}
		e.revisionProbs = []float64{-1}
		return
	}

	experiment = randx.Pick(e.rng, experiments)
	switch e.metaActionType() {
	case 1:
		experiment = e.domain.GetActionPredByName(logic.ResetPredName).Lit()
	case 2:
		notDeleted := e.getNotDeleted()
		if len(notDeleted) > 0 {
			toDelete := randx.Pick(e.rng, notDeleted)
			experiment = e.domain.GetActionPredByName(logic.DeletePredName).Lit(toDelete)
		}
	}
	e.plan = []logic.Literal{experiment}
	e.revisionProbs = []float64{-1}

	// Exploration floor: with no revisions yet, stay close to random.
	if e.cfg.Random || e.rng.Float64() < math.Pow(e.cfg.RandomDiscount, float64(e.revisions)) {
		return
	}

	if e.stepsWithoutRevision > e.cfg.StagnationThreshold && e.cfg.UseStagnation {
		e.stepsWithoutRevision = 0
		return
	}

	bestPlanUtility := e.revisionProbability(state, experiment, false)

	removeFactPred := e.domain.GetActionPredByName(logic.RemoveFactPredName)

	// Optionally narrow the rollout to the most specific rules' actions.
	specificPreds := map[string]logic.Predicate{}
	if len(e.ruleSet) > 0 {
		meanSpecif := 0.0
		for _, r := range e.ruleSet {
			meanSpecif += float64(r.Specificity())
		}
		meanSpecif /= float64(len(e.ruleSet))
		for _, r := range e.ruleSet {
			if float64(r.Specificity()) > 0.5*meanSpecif {
				specificPreds[r.ActionLiteral.Pred.Name] = r.ActionLiteral.Pred
			}
		}
	}
	limitToSpecifics := e.rng.Float64() < e.cfg.FocusSpecificRules

	foundBetterThanRandom := false

	for p := 0; p < e.cfg.RandomPlans; p++ {
		if deadline() {
			break
		}

		var currentPlan []logic.Literal
		var currentRevProbs []float64
		currentState := state
		newDeleted := e.deletedInstances.Clone()

		for a := 0; a < e.cfg.PlanDepth; a++ {
			if deadline() {
				break
			}

			var candidates []logic.Literal
			if limitToSpecifics {
				candidates = e.getAvailableExperiments(newDeleted, currentState, specificPreds)
			} else {
				candidates = e.getAvailableExperiments(newDeleted, currentState, e.actionPredicates)
			}

			for x := 0; x < e.cfg.RandomExperiments; x++ {
				if deadline() {
					break
				}
				if len(candidates) == 0 {
					break
				}

				removeFact := e.rng.Float64() > math.Pow(e.cfg.FactRemovalDiscount, float64(e.revisions)) &&
					currentState.Len() > 0
				var toRemove logic.Literal
				if currentState.Len() > 0 {
					toRemove = randx.Pick(e.rng, currentState.Facts.Slice())
				}

				candidate := randx.Pick(e.rng, candidates)

				if removeFact {
					toRemove = e.pickFactToRemove(candidate, toRemove, allInsts)
				}

				expPlan := append([]logic.Literal{}, currentPlan...)
				expProbs := append([]float64{}, currentRevProbs...)
				if removeFact {
					expPlan = append([]logic.Literal{removeFactPred.Lit(logic.Const(toRemove.Key()))}, expPlan...)
					expProbs = append([]float64{-1}, expProbs...)
				}

				expState := currentState.Clone()
				if removeFact {
					expState.RemoveFact(toRemove)
				}

				pRev := e.revisionProbability(expState, candidate, false)
				expPlan = append([]logic.Literal{candidate}, expPlan...)
				expProbs = append([]float64{pRev}, expProbs...)
				if removeFact {
					expPlan = append([]logic.Literal{removeFactPred.Lit()}, expPlan...)
					expProbs = append([]float64{-1}, expProbs...)
				}

				utility := math.Pow(e.cfg.Gamma, float64(a)+1.0) * pRev

				betterOrShorter := utility > bestPlanUtility ||
					(utility == bestPlanUtility && len(expPlan) < len(e.plan))
				if betterOrShorter {
					bestPlanUtility = utility
					e.plan = expPlan
					e.revisionProbs = expProbs
					foundBetterThanRandom = true
				}
			}

			if len(e.ruleSet) == 0 {
				break
			}
			if e.cfg.UsePassthrough && bestPlanUtility >= e.cfg.PassthroughThreshold {
				break
			}

			// Extend the rollout: a meta-action at the first step, a random
			// authorized action otherwise.
			var chosenAction logic.Literal
			pRev := -1.0
			var nextState logic.State
			authorized := false

			metaAction := e.metaActionType()
			if a == 0 && metaAction > 0 {
				switch metaAction {
				case 1:
					newDeleted = logic.NewTermSet()
					chosenAction = e.domain.GetActionPredByName(logic.ResetPredName).Lit()
					nextState, authorized = e.domain.TryAction(currentState, e.instances, chosenAction, false)
				case 2:
					notDeleted := e.getNotDeleted()
					if len(notDeleted) > 0 {
						toDelete := randx.Pick(e.rng, notDeleted)
						newDeleted.Add(toDelete)
						chosenAction = e.domain.GetActionPredByName(logic.DeletePredName).Lit(toDelete)
						nextState, authorized = e.domain.TryAction(currentState, e.instances, chosenAction, false)
					}
				}
			} else {
				var selectFrom []logic.Literal
				for name := range e.actionPredicates {
					covered := false
					for _, r := range e.ruleSet {
						if r.ActionLiteral.Pred.Name == name {
							covered = true
							break
						}
					}
					if !covered {
						continue
					}
					for _, lit := range e.actionLiterals.Slice() {
						if lit.Pred.Name == name {
							selectFrom = append(selectFrom, lit)
						}
					}
				}
				if len(selectFrom) == 0 {
					break
				}

				for trials := e.cfg.RandomActionTrials; !authorized && trials > 0; trials-- {
					chosenAction = randx.Pick(e.rng, selectFrom)
					nextState, authorized = e.domain.TryAction(currentState, e.instances, chosenAction, false)
				}

				pRev = e.revisionProbability(currentState, chosenAction, false)
			}

			if !authorized {
				break
			}
			currentPlan = append([]logic.Literal{chosenAction}, currentPlan...)
			currentRevProbs = append([]float64{pRev}, currentRevProbs...)
			currentState = nextState
		}

		if len(e.ruleSet) == 0 {
			break
		}
		if e.cfg.UsePassthrough && bestPlanUtility >= e.cfg.PassthroughThreshold {
			break
		}
	}

	if foundBetterThanRandom && len(e.plan) == 1 && e.cfg.SaveMotivationTrace {
		e.revisionProbability(state, e.plan[0], true)
	}

	if e.stepsWithoutRevision > e.cfg.StagnationThreshold && e.cfg.UseStagnation {
		e.stepsWithoutRevision = 0
		e.log.Debug("escaping current state after stagnation")
	}
}

// pickFactToRemove biases the removed fact towards a precondition of a
// rule matching the candidate experiment, grounded through the action
// binding.
func (e *BayesianExplorer) pickFactToRemove(experiment logic.Literal, fallback logic.Literal, allInsts []logic.Term) logic.Literal {
	var matchingRules []*rules.Rule
	for _, r := range e.ruleSet {
		if r.ActionLiteral.Unifies(experiment) {
			matchingRules = append(matchingRules, r)
		}
	}
	if len(matchingRules) == 0 {
		return fallback
	}

	rule := randx.Pick(e.rng, matchingRules)
	if rule.Preconditions.Len() == 0 {
		return fallback
	}
	precond := randx.Pick(e.rng, rule.Preconditions.Slice())

	params := make([]logic.Term, 0, len(precond.Params))
	for _, p := range precond.Params {
		if p.IsVariable() {
			found := false
			for rpi, ruleParam := range rule.ActionLiteral.Params {
				if ruleParam.Equal(p) {
					p = experiment.Params[rpi]
					found = true
					break
				}
			}
			if !found && len(allInsts) > 0 {
				p = randx.Pick(e.rng, allInsts)
			}
		}
		params = append(params, p)
	}

	return logic.Literal{Pred: precond.Pred, Params: params, Positive: true}
}
