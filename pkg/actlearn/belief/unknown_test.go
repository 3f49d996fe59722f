package belief

import (
	"math"
	"testing"

	"github.com/cognicore/actlearn/pkg/actlearn/logic"
)

func unknownDomain() *logic.Domain {
	on := logic.Predicate{Name: "on", Arity: 2}
	clear := logic.Predicate{Name: "clear", Arity: 1}
	return logic.NewDomain(nil, []logic.Predicate{on, clear}, []logic.Term{logic.Const("f1")}, nil)
}

func TestNewUnknownRule(t *testing.T) {
	d := unknownDomain()
	action := logic.Predicate{Name: "move", Arity: 2}.Lit(logic.Const("a"), logic.Const("f1"))

	u := NewUnknownRule(0.5, d, 3, action)

	// on/2, clear/1 plus the synthesised reset/0, delete/1, remove-fact/1:
	// 9 + 3 + 1 + 3 + 3.
	if u.NAll != 19 {
		t.Errorf("expected nAll 19, got %d", u.NAll)
	}

	want := 1.0 - math.Pow(0.5, 1.0/19.0)
	if math.Abs(u.PAny-want) > 1e-9 {
		t.Errorf("expected pAny %f, got %f", want, u.PAny)
	}
}

func TestUnknownRuleComputeProb(t *testing.T) {
	d := unknownDomain()
	clear := d.GetPredByName("clear")
	action := logic.Predicate{Name: "move", Arity: 2}.Lit(logic.Const("a"), logic.Const("f1"))

	u := NewUnknownRule(0.5, d, 3, action)
	state := logic.NewState(clear.Lit(logic.Const("f1")))

	prob, gain := u.ComputeProb(state)
	if prob <= 0 || prob > 1 {
		t.Errorf("expected probability in (0,1], got %f", prob)
	}
	if gain < 0 {
		t.Errorf("expected non-negative expected gain, got %f", gain)
	}
}

func TestCorroborateFailureMonotonicity(t *testing.T) {
	d := unknownDomain()
	clear := d.GetPredByName("clear")
	action := logic.Predicate{Name: "move", Arity: 2}.Lit(logic.Const("a"), logic.Const("f1"))

	u := NewUnknownRule(0.5, d, 3, action)
	state := logic.NewState(clear.Lit(logic.Const("f1")), clear.Lit(logic.Const("a")))

	prev := u.PAny
	for i := 0; i < 5; i++ {
		u.CorroborateFailure(state)

		if u.PAny < prev {
			t.Fatalf("expected pAny monotonically non-decreasing, got %f after %f", u.PAny, prev)
		}
		prev = u.PAny

		for _, e := range u.PNfs.Entries() {
			if e.Prob < 0 || e.Prob > 1+1e-9 {
				t.Fatalf("expected pNfs within [0,1], got %f for %s", e.Prob, e.Lit)
			}
		}
	}

	// Facts seen in the failing state gained a specific belief.
	if _, ok := u.PNfs.Get(clear.Lit(logic.Const("f1"))); !ok {
		t.Errorf("expected state facts recorded in pNfs")
	}
}
