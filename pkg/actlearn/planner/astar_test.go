package planner

import (
	"testing"

	"github.com/cognicore/actlearn/pkg/actlearn/logic"
)

var (
	onP    = logic.Predicate{Name: "on", Arity: 2}
	clearP = logic.Predicate{Name: "clear", Arity: 1}
	moveP  = logic.Predicate{Name: "move", Arity: 2}
)

func c(name string) logic.Term { return logic.Const(name) }

func plannerDomain() *logic.Domain {
	x, y, z := logic.Var("X"), logic.Var("Y"), logic.Var("Z")
	move := logic.NewAction(
		moveP.Lit(x, y),
		[]logic.Literal{clearP.Lit(x), clearP.Lit(y), onP.Lit(x, z)},
		nil,
		[]logic.Literal{onP.Lit(x, y), clearP.Lit(z)},
		[]logic.Literal{onP.Lit(x, z), clearP.Lit(y)},
	)
	return logic.NewDomain(nil,
		[]logic.Predicate{onP, clearP},
		[]logic.Term{c("f1"), c("f2")},
		[]logic.Action{move})
}

func TestAStarReachesGoal(t *testing.T) {
	domain := plannerDomain()
	instances := []logic.Term{c("a"), c("b")}

	state := logic.NewState(
		onP.Lit(c("a"), c("f1")),
		onP.Lit(c("b"), c("f2")),
		clearP.Lit(c("a")),
		clearP.Lit(c("b")),
	)
	goal := logic.Goal{TrueFacts: []logic.Literal{onP.Lit(c("a"), c("b"))}}

	p := NewAStarPlanner(5)
	p.Init(domain, instances, goal, nil)

	action, ok := p.NextAction(state)
	if !ok {
		t.Fatalf("expected a plan")
	}
	if !action.Equal(moveP.Lit(c("a"), c("b"))) {
		t.Fatalf("expected move(a,b), got %s", action)
	}

	next, authorized := domain.TryAction(state, instances, action, false)
	if !authorized || !goal.Reached(next) {
		t.Errorf("expected the planned action to reach the goal")
	}
}

func TestAStarMultiStep(t *testing.T) {
	domain := plannerDomain()
	instances := []logic.Term{c("a"), c("b")}

	// b is buried under a; reaching on(b,a) needs two moves.
	state := logic.NewState(
		onP.Lit(c("a"), c("b")),
		onP.Lit(c("b"), c("f1")),
		clearP.Lit(c("a")),
		clearP.Lit(c("f2")),
	)
	goal := logic.Goal{TrueFacts: []logic.Literal{onP.Lit(c("b"), c("a"))}}

	p := NewAStarPlanner(5)
	p.Init(domain, instances, goal, nil)

	current := state
	for i := 0; i < 4 && !goal.Reached(current); i++ {
		action, ok := p.NextAction(current)
		if !ok {
			t.Fatalf("expected a plan at step %d", i)
		}
		next, authorized := domain.TryAction(current, instances, action, false)
		if !authorized {
			t.Fatalf("planner emitted an illegal action %s", action)
		}
		current = next
	}

	if !goal.Reached(current) {
		t.Errorf("expected the goal reached, final state: %s", current)
	}
}

func TestHeadstartConsumedFirst(t *testing.T) {
	domain := plannerDomain()
	p := NewAStarPlanner(1)
	p.Init(domain, nil, logic.Goal{}, nil)
	p.UpdateProblem(nil, logic.Goal{}, []logic.Literal{moveP.Lit(c("a"), c("b"))})

	action, ok := p.NextAction(logic.NewState())
	if !ok || !action.Equal(moveP.Lit(c("a"), c("b"))) {
		t.Errorf("expected the headstart action first, got %s", action)
	}
}
