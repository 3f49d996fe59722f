package logic

import "testing"

func TestTypeSubsumes(t *testing.T) {
	object := NewType("object", nil)
	block := NewType("block", object)
	cube := NewType("cube", block)

	if !object.Subsumes(cube) {
		t.Errorf("expected object to subsume cube")
	}
	if block.Subsumes(object) {
		t.Errorf("expected block not to subsume object")
	}
	if !TypeSubsumes(nil, block) {
		t.Errorf("expected nil type to subsume everything")
	}
	if TypeSubsumes(block, nil) {
		t.Errorf("expected typed to not subsume nil")
	}
	if !TypeSubsumes(nil, nil) {
		t.Errorf("expected nil to subsume nil")
	}

	if MostGeneralType(cube) != object {
		t.Errorf("expected most general type of cube to be object")
	}
}

func TestTermEquality(t *testing.T) {
	a := Const("a")
	a2 := Const("a")
	b := Const("b")
	x := Var("X")
	anyVar := AnyVar()

	if !a.Equal(a2) {
		t.Errorf("expected constants with the same name to be equal")
	}
	if a.Equal(b) {
		t.Errorf("expected a != b")
	}
	if !x.Equal(anyVar) || !anyVar.Equal(x) {
		t.Errorf("expected ANY to equal every variable")
	}
	if a.Equal(anyVar) {
		t.Errorf("expected ANY not to equal a constant")
	}
	if !a.Less(b) || b.Less(a) {
		t.Errorf("expected terms ordered by name")
	}
}

func TestLiteralBasics(t *testing.T) {
	on := Predicate{Name: "on", Arity: 2}
	clear := Predicate{Name: "clear", Arity: 1}

	lit := on.Lit(Const("a"), Const("b"))
	if !lit.Grounded() {
		t.Errorf("expected grounded literal")
	}
	if on.Lit(Var("X"), Const("b")).Grounded() {
		t.Errorf("expected non-grounded literal")
	}

	neg := lit.Neg()
	if neg.Positive {
		t.Errorf("expected flipped polarity")
	}
	if !neg.Abs().Positive {
		t.Errorf("expected abs to restore polarity")
	}
	if !neg.Abs().Equal(lit) {
		t.Errorf("expected abs(neg(l)) == l")
	}

	if !Compatible(lit, on.Lit(Const("c"), Const("d"))) {
		t.Errorf("expected same predicate and polarity to be compatible")
	}
	if Compatible(lit, neg) {
		t.Errorf("expected opposite polarities to be incompatible")
	}
	if Compatible(lit, clear.Lit(Const("a"))) {
		t.Errorf("expected different predicates to be incompatible")
	}
}

func TestLiteralUnifies(t *testing.T) {
	object := NewType("object", nil)
	block := NewType("block", object)

	on := Predicate{Name: "on", Arity: 2}
	fact := on.Lit(TypedConst("a", block), TypedConst("b", block))

	pattern := on.Lit(TypedVar("X", object), TypedConst("b", block))
	if !pattern.Unifies(fact) {
		t.Errorf("expected pattern with subsuming type to unify")
	}

	other := NewType("pile", nil)
	badPattern := on.Lit(TypedVar("X", other), TypedConst("b", block))
	if badPattern.Unifies(fact) {
		t.Errorf("expected pattern with foreign type to fail")
	}

	if on.Lit(Const("c"), Const("b")).Unifies(fact) {
		t.Errorf("expected constant mismatch to fail")
	}
}

func TestLiteralSet(t *testing.T) {
	on := Predicate{Name: "on", Arity: 2}
	clear := Predicate{Name: "clear", Arity: 1}

	s := NewLiteralSet(on.Lit(Const("a"), Const("b")), clear.Lit(Const("a")))
	if s.Len() != 2 {
		t.Fatalf("expected 2 literals, got %d", s.Len())
	}
	if !s.Contains(on.Lit(Const("a"), Const("b"))) {
		t.Errorf("expected membership")
	}

	s.Add(on.Lit(Const("a"), Const("b")))
	if s.Len() != 2 {
		t.Errorf("expected set semantics, got %d", s.Len())
	}

	clone := s.Clone()
	clone.Remove(clear.Lit(Const("a")))
	if s.Len() != 2 || clone.Len() != 1 {
		t.Errorf("expected clone to be independent")
	}

	slice := s.Slice()
	if len(slice) != 2 || slice[1].Less(slice[0]) {
		t.Errorf("expected sorted slice")
	}
}
