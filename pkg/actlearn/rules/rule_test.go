package rules

import (
	"math"
	"testing"

	"github.com/cognicore/actlearn/pkg/actlearn/logic"
)

var (
	onP    = logic.Predicate{Name: "on", Arity: 2}
	clearP = logic.Predicate{Name: "clear", Arity: 1}
	blockP = logic.Predicate{Name: "block", Arity: 1}
	moveP  = logic.Predicate{Name: "move", Arity: 2}
)

func c(name string) logic.Term { return logic.Const(name) }
func v(name string) logic.Term { return logic.Var(name) }

// moveTrace is the observation of move(a, f2) in the classic two-block
// state: a on b, b on the floor.
func moveTrace() logic.Trace {
	state := logic.NewState(
		onP.Lit(c("a"), c("b")),
		onP.Lit(c("b"), c("f1")),
		clearP.Lit(c("a")),
		clearP.Lit(c("f2")),
		blockP.Lit(c("a")),
		blockP.Lit(c("b")),
	)

	newState := state.Clone()
	newState.RemoveFact(onP.Lit(c("a"), c("b")))
	newState.RemoveFact(clearP.Lit(c("f2")))
	newState.AddFact(onP.Lit(c("a"), c("f2")))
	newState.AddFact(clearP.Lit(c("b")))

	return logic.Trace{
		State:      state,
		Action:     moveP.Lit(c("a"), c("f2")),
		Authorized: true,
		NewState:   newState,
	}
}

func TestRuleFromTrace(t *testing.T) {
	tr := moveTrace()
	r := RuleFromTrace(tr, 0.5, true)

	if !r.Preconditions.Equal(tr.State.Facts) {
		t.Errorf("expected preconditions to equal the state, got %v", r.Preconditions.Slice())
	}

	wantAdd := logic.NewLiteralSet(onP.Lit(c("a"), c("f2")), clearP.Lit(c("b")))
	if !r.Add.Equal(wantAdd) {
		t.Errorf("unexpected add effects: %v", r.Add.Slice())
	}

	wantDel := logic.NewLiteralSet(onP.Lit(c("a"), c("b")).Neg(), clearP.Lit(c("f2")).Neg())
	if !r.Del.Equal(wantDel) {
		t.Errorf("unexpected del effects: %v", r.Del.Slice())
	}

	for _, name := range []string{"a", "b", "f2"} {
		if !logic.TermIn(r.Parameters, c(name)) {
			t.Errorf("expected parameter %s", name)
		}
	}

	if !r.WellFormed() {
		t.Errorf("expected example rule to be well formed")
	}
}

func TestNecessityInitialisation(t *testing.T) {
	r := RuleFromTrace(moveTrace(), 0.5, true)

	// 6 preconditions + 4 constants − 2 delete effects.
	k := 8.0
	base := 1.0 - math.Pow(0.5, 1.0/k)

	if got := r.PrecondNecessities.Value(onP.Lit(c("a"), c("b"))); got != 1.0 {
		t.Errorf("expected delete-mirrored precondition pinned to 1, got %f", got)
	}
	if got := r.PrecondNecessities.Value(clearP.Lit(c("f2"))); got != 1.0 {
		t.Errorf("expected delete-mirrored precondition pinned to 1, got %f", got)
	}
	if got := r.PrecondNecessities.Value(clearP.Lit(c("a"))); math.Abs(got-base) > 1e-9 {
		t.Errorf("expected base necessity %f, got %f", base, got)
	}
	if got := r.ConstNecessities.Value(c("a")); math.Abs(got-base) > 1e-9 {
		t.Errorf("expected constant necessity %f, got %f", base, got)
	}
	if r.ConstNecessities.Len() != 4 {
		t.Errorf("expected 4 constant necessities, got %d", r.ConstNecessities.Len())
	}
}

func TestLinkedFilterDropsUnlinked(t *testing.T) {
	tr := moveTrace()
	tr.State.AddFact(clearP.Lit(c("f3")))
	tr.NewState.AddFact(clearP.Lit(c("f3")))

	r := RuleFromTrace(tr, 0.5, true)
	if r.Preconditions.Contains(clearP.Lit(c("f3"))) {
		t.Errorf("expected unlinked precondition to be filtered out")
	}
}

func TestWellFormedViolations(t *testing.T) {
	x, y, z := v("X"), v("Y"), v("Z")

	base := func() (logic.LiteralSet, logic.Literal, logic.LiteralSet, logic.LiteralSet) {
		preconds := logic.NewLiteralSet(clearP.Lit(x), clearP.Lit(y), onP.Lit(x, z))
		action := moveP.Lit(x, y)
		add := logic.NewLiteralSet(onP.Lit(x, y), clearP.Lit(z))
		del := logic.NewLiteralSet(onP.Lit(x, z).Neg(), clearP.Lit(y).Neg())
		return preconds, action, add, del
	}

	preconds, action, add, del := base()
	if !NewRule(preconds, action, add, del, nil, 0.5, false).WellFormed() {
		t.Fatalf("expected base rule to be well formed")
	}

	// Delete effect without its precondition.
	preconds, action, add, del = base()
	preconds.Remove(onP.Lit(x, z))
	if NewRule(preconds, action, add, del, nil, 0.5, false).WellFormed() {
		t.Errorf("expected missing delete precondition to fail")
	}

	// Add effect already in preconditions.
	preconds, action, add, del = base()
	preconds.Add(onP.Lit(x, y))
	if NewRule(preconds, action, add, del, nil, 0.5, false).WellFormed() {
		t.Errorf("expected add effect in preconditions to fail")
	}

	// Add-effect variable absent from preconditions.
	preconds, action, add, del = base()
	w := v("W")
	add.Add(clearP.Lit(w))
	if NewRule(preconds, action, add, del, nil, 0.5, false).WellFormed() {
		t.Errorf("expected free add variable to fail")
	}

	// Precondition variable disconnected from action and effects.
	preconds, action, add, del = base()
	preconds.Add(onP.Lit(v("U"), v("V")))
	if NewRule(preconds, action, add, del, nil, 0.5, false).WellFormed() {
		t.Errorf("expected disconnected precondition variable to fail")
	}
}

func TestSpecificity(t *testing.T) {
	x, y, z := v("X"), v("Y"), v("Z")
	preconds := logic.NewLiteralSet(clearP.Lit(x), onP.Lit(x, z), onP.Lit(z, c("f1")))
	r := NewRule(preconds, moveP.Lit(x, y), logic.NewLiteralSet(), logic.NewLiteralSet(), nil, 0.5, false)

	// 3 preconditions + 1 constant occurrence.
	if got := r.Specificity(); got != 4 {
		t.Errorf("expected specificity 4, got %d", got)
	}
}

func TestVarNameMint(t *testing.T) {
	x := v("X")
	preconds := logic.NewLiteralSet(clearP.Lit(v("_V1")), onP.Lit(x, v("_V1")))
	r := NewRule(preconds, moveP.Lit(x, v("Y")), logic.NewLiteralSet(), logic.NewLiteralSet(), nil, 0.5, false)

	genVars := logic.NewTermSet()
	fresh := r.MakeNewVar(genVars, c("a"))
	if fresh.Name != "_V2" {
		t.Errorf("expected mint to skip used names, got %s", fresh.Name)
	}
	fresh2 := r.MakeNewVar(genVars, c("b"))
	if fresh2.Name != "_V3" {
		t.Errorf("expected mint to skip genVars too, got %s", fresh2.Name)
	}
}
