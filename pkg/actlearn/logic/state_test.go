package logic

import (
	"math"
	"testing"
)

func testState() State {
	on := Predicate{Name: "on", Arity: 2}
	clear := Predicate{Name: "clear", Arity: 1}
	return NewState(
		on.Lit(Const("a"), Const("b")),
		on.Lit(Const("b"), Const("f1")),
		clear.Lit(Const("a")),
		clear.Lit(Const("f2")),
	)
}

func TestStateQuery(t *testing.T) {
	on := Predicate{Name: "on", Arity: 2}
	s := testState()

	all := s.Query(on.Lit(Var("X"), Var("Y")))
	if len(all) != 2 {
		t.Fatalf("expected 2 on-facts, got %d", len(all))
	}

	some := s.Query(on.Lit(Const("a"), Var("Y")))
	if len(some) != 1 || !some[0].Equal(on.Lit(Const("a"), Const("b"))) {
		t.Fatalf("expected on(a,b), got %v", some)
	}

	none := s.Query(on.Lit(Const("c"), Var("Y")))
	if len(none) != 0 {
		t.Fatalf("expected no match, got %v", none)
	}
}

func TestStateQueryRespectsTypes(t *testing.T) {
	block := NewType("block", nil)
	pile := NewType("pile", nil)

	on := Predicate{Name: "on", Arity: 2}
	s := NewState(on.Lit(TypedConst("a", block), TypedConst("f1", pile)))

	typed := s.Query(on.Lit(TypedVar("X", block), TypedVar("Y", pile)))
	if len(typed) != 1 {
		t.Fatalf("expected typed query to match, got %d", len(typed))
	}

	wrong := s.Query(on.Lit(TypedVar("X", pile), TypedVar("Y", pile)))
	if len(wrong) != 0 {
		t.Fatalf("expected mistyped query to fail, got %d", len(wrong))
	}
}

func TestStateAddRemoveAbs(t *testing.T) {
	clear := Predicate{Name: "clear", Arity: 1}
	s := NewState()

	s.AddFact(clear.Lit(Const("a")).Neg())
	if !s.Contains(clear.Lit(Const("a"))) {
		t.Errorf("expected facts to be stored positive")
	}

	s.RemoveFact(clear.Lit(Const("a")).Neg())
	if s.Len() != 0 {
		t.Errorf("expected fact removed whatever its polarity")
	}
}

func TestStateDifference(t *testing.T) {
	on := Predicate{Name: "on", Arity: 2}
	clear := Predicate{Name: "clear", Arity: 1}

	before := testState()
	after := before.Clone()
	after.RemoveFact(on.Lit(Const("a"), Const("b")))
	after.RemoveFact(clear.Lit(Const("f2")))
	after.AddFact(on.Lit(Const("a"), Const("f2")))
	after.AddFact(clear.Lit(Const("b")))

	added, removed := before.Difference(after)

	if added.Len() != 2 || !added.Contains(on.Lit(Const("a"), Const("f2"))) || !added.Contains(clear.Lit(Const("b"))) {
		t.Errorf("unexpected added set: %v", added.Slice())
	}
	if removed.Len() != 2 {
		t.Fatalf("expected 2 removed facts, got %d", removed.Len())
	}
	for _, r := range removed.Slice() {
		if r.Positive {
			t.Errorf("expected removed facts to be negated, got %s", r)
		}
	}
}

func TestSimilarity(t *testing.T) {
	s1 := testState()
	s2 := s1.Clone()

	if got := Similarity(s1, s2); got != 1.0 {
		t.Errorf("expected identical states to have similarity 1, got %f", got)
	}

	clear := Predicate{Name: "clear", Arity: 1}
	s2.AddFact(clear.Lit(Const("b")))

	want := 1.0 - 1.0/float64(s1.Len()+s2.Len()+1)
	if got := Similarity(s1, s2); math.Abs(got-want) > 1e-9 {
		t.Errorf("expected similarity %f, got %f", want, got)
	}
}

func TestUnifyActionOnState(t *testing.T) {
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

	subs := testState().UnifyAction(move)
	// clear(X): a or f2; clear(Y): the other; on(X,Z): only X=a works.
	if len(subs) != 1 {
		t.Fatalf("expected 1 grounding, got %d", len(subs))
	}
	sub := subs[0]
	if img, _ := sub.Get(x); !img.Equal(Const("a")) {
		t.Errorf("expected X->a, got %s", img)
	}
	if img, _ := sub.Get(y); !img.Equal(Const("f2")) {
		t.Errorf("expected Y->f2, got %s", img)
	}
	if img, _ := sub.Get(z); !img.Equal(Const("b")) {
		t.Errorf("expected Z->b, got %s", img)
	}
}
