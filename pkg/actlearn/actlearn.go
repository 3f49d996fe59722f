// Package actlearn is the incremental relational action-model learner: it
// watches (state, action, next-state, authorized) observations from an
// unknown STRIPS-like domain, keeps a rule set consistent with everything
// seen, and picks the next experiment expected to revise that model.
package actlearn

import (
	"encoding/json"
	"math/rand"

	"go.uber.org/zap"

	"github.com/cognicore/actlearn/pkg/actlearn/belief"
	"github.com/cognicore/actlearn/pkg/actlearn/config"
	"github.com/cognicore/actlearn/pkg/actlearn/explore"
	"github.com/cognicore/actlearn/pkg/actlearn/logic"
	"github.com/cognicore/actlearn/pkg/actlearn/planner"
	"github.com/cognicore/actlearn/pkg/actlearn/revise"
	"github.com/cognicore/actlearn/pkg/actlearn/rules"
	"github.com/cognicore/actlearn/pkg/actlearn/trace"
)

// Options configures a Learner.
type Options struct {
	Domain     *logic.Domain
	Config     config.Config
	Rand       *rand.Rand
	Logger     *zap.Logger
	Motivation *trace.MotivationWriter
	Planner    planner.Planner
}

// Learner is the facade over the reviser, the belief engine, the explorer
// and the internal planner.
type Learner struct {
	cfg config.Config
	rng *rand.Rand
	log *zap.Logger

	domain         *logic.Domain
	internalDomain *logic.Domain
	instances      []logic.Term
	goal           logic.Goal
	ring           *trace.Ring

	corroborator *belief.Corroborator
	reviser      *revise.Reviser
	explorer     explore.Explorer
	planner      planner.Planner

	learning         bool
	step             int
	lastRevisionStep int
}

// New creates a learner over the given environment domain. The domain is
// only used for its vocabulary and meta-actions; the learner never reads
// its action schemas.
func New(opts Options) *Learner {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	cfg := opts.Config
	belief.CdPrecision = cfg.CdPrecision

	corroborator := belief.NewCorroborator(opts.Domain,
		cfg.BayesianExplorer.EstimatedRulesPerAction, cfg.BayesianExplorer.StartPu, rng)

	var explorer explore.Explorer
	if cfg.IRALe.UseBayesianExplorer {
		explorer = explore.NewBayesianExplorer(explore.BayesianOptions{
			Config:       cfg.BayesianExplorer,
			Corroborator: corroborator,
			Rand:         rng,
			Logger:       logger,
			Motivation:   opts.Motivation,
		})
	} else {
		explorer = explore.NewLGGExplorer(explore.LGGOptions{
			Config:  cfg.IRALeExplorer,
			StartPu: cfg.BayesianExplorer.StartPu,
			Rand:    rng,
			Logger:  logger,
		})
	}

	reviser := revise.New(revise.Options{
		Domain:                    opts.Domain,
		Corroborator:              corroborator,
		StartPu:                   explorer.StartPu(),
		GeneralizationTrials:      cfg.IRALe.GeneralizationTrials,
		LeastGeneral:              cfg.IRALe.LeastGeneral,
		AlwaysGeneralizeConstants: cfg.IRALe.AlwaysGeneralizeConstants,
		Rand:                      rng,
		Logger:                    logger,
	})

	pl := opts.Planner
	if pl == nil {
		pl = planner.NewAStarPlanner(cfg.TimeLimit)
	}

	return &Learner{
		cfg:          cfg,
		rng:          rng,
		log:          logger,
		domain:       opts.Domain,
		ring:         trace.NewRing(cfg.TraceRing),
		corroborator: corroborator,
		reviser:      reviser,
		explorer:     explorer,
		planner:      pl,
		learning:     true,
	}
}

// Init installs the problem and wires the internal planner and explorer.
func (l *Learner) Init(instances []logic.Term, goal logic.Goal) {
	l.instances = append([]logic.Term{}, instances...)
	l.goal = goal
	l.step = 0
	l.lastRevisionStep = 0

	l.corroborator.SetInstances(l.instances)
	l.setupInternal()
	l.explorer.SetActionLiterals(l.domain.GetActionLiterals(false))
}

// Reset drops everything learnt so a fresh run can start.
func (l *Learner) Reset() {
	l.reviser.Reset()
	l.step = 0
	l.lastRevisionStep = 0
	l.explorer.UpdateProblem(l.instances)
	l.setupInternal()
	l.explorer.SetActionLiterals(l.domain.GetActionLiterals(false))
}

func (l *Learner) setupInternal() {
	l.internalDomain = revise.DomainFromRules(l.domain, l.reviser.Rules)
	l.planner.Init(l.internalDomain, l.instances, l.goal, l.ring)
	l.explorer.Init(l.internalDomain, l.instances)
	l.explorer.SetRules(l.reviser.Rules)
	l.corroborator.SetRules(l.reviser.Rules)
}

// UpdateProblem swaps instances and goal mid-run.
func (l *Learner) UpdateProblem(instances []logic.Term, goal logic.Goal, headstart []logic.Literal) {
	l.instances = append([]logic.Term{}, instances...)
	l.goal = goal
	l.step = 0
	l.corroborator.SetInstances(l.instances)
	l.explorer.UpdateProblem(l.instances)
	l.planner.UpdateProblem(l.instances, goal, headstart)
	l.setupInternal()
	l.explorer.SetActionLiterals(l.domain.GetActionLiterals(false))
}

// Observe consumes one observation: the belief engine corroborates the
// rules it matched, then the reviser generalises or specialises. Reports
// whether the model was revised.
func (l *Learner) Observe(tr logic.Trace) (bool, error) {
	l.ring.Push(tr)

	l.corroborator.CorroborateRules(tr)

	revised, err := l.reviser.UpdateKnowledge(tr)
	if err != nil {
		return false, err
	}

	if revised {
		l.lastRevisionStep = l.step
		l.setupInternal()
	}
	l.explorer.InformRevision(revised)

	return revised, nil
}

// NextAction picks the next action: the explorer while learning, the
// internal planner once learning is switched off. With stagnation resets
// enabled, a long spell without revision emits the reset meta-action.
func (l *Learner) NextAction(state logic.State) logic.Literal {
	l.step++

	if l.learning {
		if l.cfg.IRALe.ResetStateAfterStagnation &&
			l.step-l.lastRevisionStep >= l.cfg.IRALe.ResetStateAfter {
			l.lastRevisionStep = l.step
			l.explorer.ClearPlan()
			return l.domain.GetActionPredByName(logic.ResetPredName).Lit()
		}
		return l.explorer.NextAction(state)
	}

	action, ok := l.planner.NextAction(state)
	if !ok {
		return logic.Literal{}
	}
	return action
}

// SetLearning toggles between exploration and exploitation of the learnt
// model through the internal planner.
func (l *Learner) SetLearning(learning bool) {
	l.learning = learning
}

// Rules returns the active rule set.
func (l *Learner) Rules() []*rules.Rule {
	return l.reviser.Rules
}

// CounterExampleCount returns positive plus failed-action counter-example
// counts.
func (l *Learner) CounterExampleCount() int {
	return len(l.reviser.CounterExamples) + len(l.reviser.FailedCounterExamples)
}

// InternalDomain returns the current domain-from-rules projection.
func (l *Learner) InternalDomain() *logic.Domain {
	return l.internalDomain
}

// Ring returns the observation ring.
func (l *Learner) Ring() *trace.Ring {
	return l.ring
}

// Explorer returns the active explorer.
func (l *Learner) Explorer() explore.Explorer {
	return l.explorer
}

// MeanSpecificity averages rule specificity over the active set.
func (l *Learner) MeanSpecificity() float64 {
	rs := l.reviser.Rules
	if len(rs) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range rs {
		sum += float64(r.Specificity())
	}
	return sum / float64(len(rs))
}

// AverageUncertainty measures how undecided the necessities are: 0 when
// everything is pinned to 0 or 1, 1 when everything sits at 0.5.
func (l *Learner) AverageUncertainty() float64 {
	rs := l.reviser.Rules
	if len(rs) == 0 {
		return 0
	}

	total := 0.0
	for _, r := range rs {
		uncertainty := 0.0
		n := 0
		scale := func(nec float64) float64 {
			if nec < 0.5 {
				return nec / 0.5
			}
			return 1 - (nec-0.5)/0.5
		}
		for _, e := range r.PrecondNecessities.Entries() {
			uncertainty += scale(e.Prob)
			n++
		}
		for _, e := range r.ConstNecessities.Entries() {
			uncertainty += scale(e.Prob)
			n++
		}
		if n > 0 {
			total += uncertainty / float64(n)
		}
	}
	return total / float64(len(rs))
}

// SnapshotJSON serialises the active rules with their necessities, for
// the run store.
func (l *Learner) SnapshotJSON() (string, error) {
	var snapshots []trace.RuleJSON
	for _, r := range l.reviser.Rules {
		snapshots = append(snapshots, trace.NewRuleJSON(r, false, 0, nil))
	}
	data, err := json.Marshal(snapshots)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// VarDistance scores the learnt rules against a reference domain.
func (l *Learner) VarDistance(reference *logic.Domain) float64 {
	return revise.VarDistBetweenDomains(reference, l.reviser.Rules)
}
