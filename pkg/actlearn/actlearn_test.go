package actlearn

import (
	"math/rand"
	"testing"

	"github.com/cognicore/actlearn/pkg/actlearn/config"
	"github.com/cognicore/actlearn/pkg/actlearn/domains"
	"github.com/cognicore/actlearn/pkg/actlearn/logic"
	"github.com/cognicore/actlearn/pkg/actlearn/rules"
)

func smallConfig() config.Config {
	cfg := config.Default()
	cfg.BayesianExplorer.RandomPlans = 3
	cfg.BayesianExplorer.RandomExperiments = 3
	cfg.BayesianExplorer.PlanDepth = 2
	cfg.BayesianExplorer.ExplorationTimeLimit = 0.2
	cfg.IRALe.Steps = 40
	return cfg
}

func TestLearningLoopBlocksworld(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	domain := domains.Blocksworld(3)
	instances := domains.BlocksworldInstances(3)

	learner := New(Options{
		Domain: domain,
		Config: smallConfig(),
		Rand:   rng,
	})
	learner.Init(instances, logic.Goal{})

	state := domains.RandomBlocksworldState(rng, domain, instances)
	domain.SetResetState(state)

	revisions := 0
	for step := 0; step < 40; step++ {
		action := learner.NextAction(state)
		if action.Zero() {
			continue
		}
		if !action.Grounded() {
			t.Fatalf("expected grounded action, got %s", action)
		}

		newState, authorized := domain.TryAction(state, instances, action, false)
		revised, err := learner.Observe(logic.Trace{
			State:      state,
			Action:     action,
			Authorized: authorized,
			NewState:   newState,
		})
		if err != nil {
			t.Fatalf("step %d: %v", step, err)
		}
		if revised {
			revisions++
		}

		state = newState
	}

	if revisions == 0 {
		t.Errorf("expected at least one revision over 40 steps")
	}
	if learner.Ring().Len() == 0 {
		t.Errorf("expected observations buffered in the ring")
	}

	assertNecessitiesAreProbabilities(t, learner.Rules())

	if _, err := learner.SnapshotJSON(); err != nil {
		t.Errorf("unexpected snapshot error: %v", err)
	}
}

func assertNecessitiesAreProbabilities(t *testing.T, rs []*rules.Rule) {
	t.Helper()
	for _, r := range rs {
		for _, e := range r.PrecondNecessities.Entries() {
			if e.Prob < 0 || e.Prob > 1 {
				t.Errorf("necessity out of range for %s: %f", e.Lit, e.Prob)
			}
		}
		for _, e := range r.ConstNecessities.Entries() {
			if e.Prob < 0 || e.Prob > 1 {
				t.Errorf("constant necessity out of range for %s: %f", e.Term, e.Prob)
			}
		}
	}
}

func TestLearnerCoversItsObservations(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	domain := domains.Blocksworld(3)
	instances := domains.BlocksworldInstances(2)

	cfg := smallConfig()
	learner := New(Options{Domain: domain, Config: cfg, Rand: rng})
	learner.Init(instances, logic.Goal{})

	state := domains.RandomBlocksworldState(rng, domain, instances)
	domain.SetResetState(state)

	for step := 0; step < 30; step++ {
		action := learner.NextAction(state)
		if action.Zero() {
			continue
		}

		newState, authorized := domain.TryAction(state, instances, action, false)
		tr := logic.Trace{State: state, Action: action, Authorized: authorized, NewState: newState}

		// An authorized observation no rule contradicts must end up
		// covered; contradictions may legitimately leave the example
		// unexplained after specialisation.
		checkCoverage := authorized && !logic.IsMetaPredName(action.Pred.Name)
		if checkCoverage {
			example := rules.RuleFromTrace(tr, 0.5, true)
			for _, r := range learner.Rules() {
				if r.Contradicts(example) {
					checkCoverage = false
					break
				}
			}
		}

		if _, err := learner.Observe(tr); err != nil {
			t.Fatalf("step %d: %v", step, err)
		}

		if checkCoverage {
			example := rules.RuleFromTrace(tr, 0.5, true)
			if !dagCovers(learner.Rules(), example) {
				t.Errorf("step %d: expected %s to be covered after revision", step, tr.Action)
			}
		}

		state = newState
	}
}

// dagCovers reports whether any active rule or any node of its
// generalisation DAG covers the example.
func dagCovers(active []*rules.Rule, example *rules.Rule) bool {
	seen := map[*rules.Rule]bool{}
	stack := append([]*rules.Rule{}, active...)
	for len(stack) > 0 {
		r := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[r] {
			continue
		}
		seen[r] = true
		if r.Covers(example, nil) {
			return true
		}
		stack = append(stack, r.Parents...)
	}
	return false
}

func TestLGGExplorerLoop(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	domain := domains.Blocksworld(2)
	instances := domains.BlocksworldInstances(2)

	cfg := smallConfig()
	cfg.IRALe.UseBayesianExplorer = false

	learner := New(Options{Domain: domain, Config: cfg, Rand: rng})
	learner.Init(instances, logic.Goal{})

	state := domains.RandomBlocksworldState(rng, domain, instances)
	domain.SetResetState(state)

	for step := 0; step < 20; step++ {
		action := learner.NextAction(state)
		if action.Zero() {
			continue
		}
		newState, authorized := domain.TryAction(state, instances, action, false)
		if _, err := learner.Observe(logic.Trace{
			State: state, Action: action, Authorized: authorized, NewState: newState,
		}); err != nil {
			t.Fatalf("step %d: %v", step, err)
		}
		state = newState
	}
}
