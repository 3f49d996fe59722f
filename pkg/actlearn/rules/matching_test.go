package rules

import (
	"testing"

	"github.com/cognicore/actlearn/pkg/actlearn/logic"
)

// schemaRule is the lifted move rule of the two-block domain:
// preconds {clear(X), clear(Y), on(X,Z)}, add {on(X,Y), clear(Z)},
// del {-on(X,Z), -clear(Y)}.
func schemaRule() *Rule {
	x, y, z := v("X"), v("Y"), v("Z")
	return NewRule(
		logic.NewLiteralSet(clearP.Lit(x), clearP.Lit(y), onP.Lit(x, z)),
		moveP.Lit(x, y),
		logic.NewLiteralSet(onP.Lit(x, y), clearP.Lit(z)),
		logic.NewLiteralSet(onP.Lit(x, z).Neg(), clearP.Lit(y).Neg()),
		nil, 0.5, false)
}

// schemaExample is the grounded example the schema covers:
// move(a, b) with a on c.
func schemaExample() *Rule {
	return NewRule(
		logic.NewLiteralSet(clearP.Lit(c("a")), clearP.Lit(c("b")), onP.Lit(c("a"), c("c"))),
		moveP.Lit(c("a"), c("b")),
		logic.NewLiteralSet(onP.Lit(c("a"), c("b")), clearP.Lit(c("c"))),
		logic.NewLiteralSet(onP.Lit(c("a"), c("c")).Neg(), clearP.Lit(c("b")).Neg()),
		nil, 0.5, false)
}

func TestPrematchingSubs(t *testing.T) {
	rule := schemaRule()
	example := schemaExample()

	subs := rule.PrematchingSubs(example, nil)
	if subs.Len() != 1 {
		t.Fatalf("expected exactly one prematching substitution, got %d", subs.Len())
	}

	sub := subs.Slice()[0]
	want := map[string]string{"X": "a", "Y": "b", "Z": "c"}
	if sub.Len() != len(want) {
		t.Fatalf("expected %d bindings, got %d (%s)", len(want), sub.Len(), sub)
	}
	for from, to := range want {
		img, ok := sub.Get(v(from))
		if !ok || img.Name != to {
			t.Errorf("expected %s->%s, got %s", from, to, img.Name)
		}
	}

	if !rule.Prematches(example, nil) {
		t.Errorf("expected prematches to hold")
	}
}

func TestCovers(t *testing.T) {
	rule := schemaRule()
	example := schemaExample()

	if !rule.Postmatches(example, nil) {
		t.Errorf("expected postmatch")
	}
	if !rule.Covers(example, nil) {
		t.Errorf("expected coverage")
	}
	if rule.Contradicts(example) {
		t.Errorf("expected no contradiction")
	}

	// Coverage implies both prematch and postmatch substitutions exist.
	if rule.PrematchingSubs(example, nil).Len() == 0 || rule.PostmatchingSubs(example, nil).Len() == 0 {
		t.Errorf("expected covering rule to prematch and postmatch")
	}
}

func TestPostmatchRejectsExtraAdd(t *testing.T) {
	rule := schemaRule()

	example := NewRule(
		logic.NewLiteralSet(clearP.Lit(c("a")), clearP.Lit(c("b")), onP.Lit(c("a"), c("c"))),
		moveP.Lit(c("a"), c("b")),
		logic.NewLiteralSet(onP.Lit(c("a"), c("b")), clearP.Lit(c("c")), clearP.Lit(c("a"))),
		logic.NewLiteralSet(onP.Lit(c("a"), c("c")).Neg(), clearP.Lit(c("b")).Neg()),
		nil, 0.5, false)

	if rule.Postmatches(example, nil) {
		t.Errorf("expected postmatch to fail on extra add effect")
	}
	if !rule.Prematches(example, nil) {
		t.Errorf("expected prematch to still hold")
	}
	if !rule.Contradicts(example) {
		t.Errorf("expected contradiction")
	}
}

func TestPrematchesRequiresExactlyOne(t *testing.T) {
	x := v("X")
	rule := NewRule(
		logic.NewLiteralSet(clearP.Lit(x)),
		logic.Predicate{Name: "tick", Arity: 0}.Lit(),
		logic.NewLiteralSet(), logic.NewLiteralSet(),
		nil, 0.5, false)

	example := NewRule(
		logic.NewLiteralSet(clearP.Lit(c("a")), clearP.Lit(c("b"))),
		logic.Predicate{Name: "tick", Arity: 0}.Lit(),
		logic.NewLiteralSet(), logic.NewLiteralSet(),
		nil, 0.5, false)

	subs := rule.PrematchingSubs(example, nil)
	if subs.Len() != 2 {
		t.Fatalf("expected 2 substitutions, got %d", subs.Len())
	}
	if rule.Prematches(example, nil) {
		t.Errorf("expected prematches to reject ambiguous matches")
	}
}

func TestPrematchConstantClash(t *testing.T) {
	// A grounded rule does not prematch an example over other objects.
	rule := schemaExample()
	other := NewRule(
		logic.NewLiteralSet(clearP.Lit(c("d")), clearP.Lit(c("e")), onP.Lit(c("d"), c("f"))),
		moveP.Lit(c("d"), c("e")),
		logic.NewLiteralSet(onP.Lit(c("d"), c("e")), clearP.Lit(c("f"))),
		logic.NewLiteralSet(onP.Lit(c("d"), c("f")).Neg(), clearP.Lit(c("e")).Neg()),
		nil, 0.5, false)

	if rule.PrematchingSubs(other, nil).Len() != 0 {
		t.Errorf("expected constant clash to prevent prematching")
	}
}

func TestPostmatchRequiresEffectCounts(t *testing.T) {
	rule := schemaRule()
	example := schemaExample()
	example.Del = logic.NewLiteralSet(onP.Lit(c("a"), c("c")).Neg())

	if rule.PostmatchingSubs(example, nil).Len() != 0 {
		t.Errorf("expected effect-count mismatch to fail postmatch")
	}
}
