package logic

import (
	"errors"
	"testing"

	"github.com/cognicore/actlearn/pkg/actlearn/internalerr"
)

func blocksDomain() *Domain {
	on := Predicate{Name: "on", Arity: 2}
	clear := Predicate{Name: "clear", Arity: 1}

	x, y, z := Var("X"), Var("Y"), Var("Z")
	move := NewAction(
		Predicate{Name: "move", Arity: 2}.Lit(x, y),
		[]Literal{clear.Lit(x), clear.Lit(y), on.Lit(x, z)},
		nil,
		[]Literal{on.Lit(x, y), clear.Lit(z)},
		[]Literal{on.Lit(x, z), clear.Lit(y)},
	)

	return NewDomain(nil, []Predicate{on, clear}, []Term{Const("f1"), Const("f2")}, []Action{move})
}

func TestDomainSynthesisesMetaPredicates(t *testing.T) {
	d := blocksDomain()

	for _, name := range []string{ResetPredName, DeletePredName, RemoveFactPredName} {
		if d.GetPredByName(name).Zero() {
			t.Errorf("expected synthesised predicate %q", name)
		}
		if d.GetActionPredByName(name).Zero() {
			t.Errorf("expected meta action predicate %q", name)
		}
	}

	actions := d.GetActions(true)
	if len(actions) != 4 {
		t.Errorf("expected move + 3 meta actions, got %d", len(actions))
	}
	if lits := d.GetActionLiterals(false); lits.Len() != 1 {
		t.Errorf("expected 1 base action literal, got %d", lits.Len())
	}
}

func TestTryActionMove(t *testing.T) {
	d := blocksDomain()
	on := d.GetPredByName("on")
	clear := d.GetPredByName("clear")
	move := d.GetActionPredByName("move")

	state := NewState(
		on.Lit(Const("a"), Const("f1")),
		clear.Lit(Const("a")),
		clear.Lit(Const("f2")),
	)
	instances := []Term{Const("a")}

	newState, ok := d.TryAction(state, instances, move.Lit(Const("a"), Const("f2")), false)
	if !ok {
		t.Fatalf("expected move to be authorized")
	}
	if !newState.Contains(on.Lit(Const("a"), Const("f2"))) || newState.Contains(on.Lit(Const("a"), Const("f1"))) {
		t.Errorf("unexpected state after move: %s", newState)
	}
	if !newState.Contains(clear.Lit(Const("f1"))) || newState.Contains(clear.Lit(Const("f2"))) {
		t.Errorf("unexpected clear facts after move: %s", newState)
	}

	// Moving a non-clear block is rejected and leaves the state alone.
	_, ok = d.TryAction(state, instances, move.Lit(Const("f1"), Const("f2")), false)
	if ok {
		t.Errorf("expected illegal move to be rejected")
	}
}

func TestTryActionReset(t *testing.T) {
	d := blocksDomain()
	clear := d.GetPredByName("clear")
	reset := d.GetActionPredByName(ResetPredName)

	state := NewState(clear.Lit(Const("f1")))

	if _, ok := d.TryAction(state, nil, reset.Lit(), false); ok {
		t.Errorf("expected reset without a reset state to be rejected")
	}

	resetState := NewState(clear.Lit(Const("f2")))
	d.SetResetState(resetState)

	restored, ok := d.TryAction(state, nil, reset.Lit(), false)
	if !ok || !restored.Equal(resetState) {
		t.Errorf("expected reset to restore the configured state")
	}
}

func TestTryActionDelete(t *testing.T) {
	d := blocksDomain()
	on := d.GetPredByName("on")
	clear := d.GetPredByName("clear")
	del := d.GetActionPredByName(DeletePredName)
	move := d.GetActionPredByName("move")

	state := NewState(
		on.Lit(Const("a"), Const("f1")),
		clear.Lit(Const("a")),
		clear.Lit(Const("f2")),
	)
	instances := []Term{Const("a")}

	masked, ok := d.TryAction(state, instances, del.Lit(Const("a")), false)
	if !ok {
		t.Fatalf("expected delete to be authorized")
	}
	if masked.Contains(on.Lit(Const("a"), Const("f1"))) {
		t.Errorf("expected facts naming the instance to be masked")
	}
	if !masked.Contains(del.Lit(Const("a"))) {
		t.Errorf("expected the delete marker in the state")
	}

	// Actions over a deleted instance are rejected.
	if _, ok := d.TryAction(masked, instances, move.Lit(Const("a"), Const("f2")), false); ok {
		t.Errorf("expected action over deleted instance to be rejected")
	}

	// Deleting twice is rejected.
	if _, ok := d.TryAction(masked, instances, del.Lit(Const("a")), false); ok {
		t.Errorf("expected double delete to be rejected")
	}
}

func TestTryActionRemoveFact(t *testing.T) {
	d := blocksDomain()
	clear := d.GetPredByName("clear")
	removeFact := d.GetActionPredByName(RemoveFactPredName)

	state := NewState(clear.Lit(Const("f1")), clear.Lit(Const("f2")))

	removed, ok := d.TryAction(state, nil, removeFact.Lit(Const("clear(f1)")), false)
	if !ok {
		t.Fatalf("expected remove-fact to be authorized")
	}
	if removed.Contains(clear.Lit(Const("f1"))) {
		t.Errorf("expected the fact to be removed")
	}
	if d.RemovedFacts.Len() != 1 {
		t.Errorf("expected the removed fact to be buffered")
	}

	restored, ok := d.TryAction(removed, nil, removeFact.Lit(), false)
	if !ok || !restored.Contains(clear.Lit(Const("f1"))) {
		t.Errorf("expected the no-argument form to restore removed facts")
	}
	if d.RemovedFacts.Len() != 0 {
		t.Errorf("expected the buffer to be cleared")
	}
}

func TestParseLiteral(t *testing.T) {
	d := blocksDomain()
	instances := []Term{Const("a"), Const("b")}

	lit, err := d.ParseLiteral("on(a, f1)", instances, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lit.Pred.Name != "on" || len(lit.Params) != 2 || !lit.Params[0].Equal(Const("a")) {
		t.Errorf("unexpected literal %s", lit)
	}

	neg, err := d.ParseLiteral("-clear(b)", instances, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if neg.Positive {
		t.Errorf("expected negative literal")
	}

	if _, err := d.ParseLiteral("flies(a)", instances, false); !errors.Is(err, internalerr.ErrParse) {
		t.Errorf("expected parse error for unknown predicate, got %v", err)
	}
	if _, err := d.ParseLiteral("on(a, zz)", instances, false); !errors.Is(err, internalerr.ErrParse) {
		t.Errorf("expected parse error for unknown object, got %v", err)
	}
	if _, err := d.ParseLiteral("on(a)", instances, false); !errors.Is(err, internalerr.ErrParse) {
		t.Errorf("expected arity error, got %v", err)
	}

	act, err := d.ParseLiteral("move(a, b)", instances, true)
	if err != nil || act.Pred.Name != "move" {
		t.Errorf("expected action literal, got %v (%v)", act, err)
	}
}
