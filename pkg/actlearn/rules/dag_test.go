package rules

import (
	"testing"

	"github.com/cognicore/actlearn/pkg/actlearn/logic"
)

func leafRule(name string) *Rule {
	return NewRule(
		logic.NewLiteralSet(clearP.Lit(c(name))),
		logic.Predicate{Name: "tick", Arity: 0}.Lit(),
		logic.NewLiteralSet(), logic.NewLiteralSet(),
		nil, 0.5, false)
}

func TestGeneralityAndLeaves(t *testing.T) {
	x1 := leafRule("a")
	x2 := leafRule("b")
	x3 := leafRule("c")

	g1 := leafRule("g1")
	g1.Parents = []*Rule{x1, x2}

	g2 := leafRule("g2")
	g2.Parents = []*Rule{g1, x3}

	if got := x1.GeneralityLevel(); got != 0 {
		t.Errorf("expected leaf generality 0, got %d", got)
	}
	if got := g1.GeneralityLevel(); got != 1 {
		t.Errorf("expected generality 1, got %d", got)
	}
	if got := g2.GeneralityLevel(); got != 2 {
		t.Errorf("expected generality 2, got %d", got)
	}

	if got := g2.CountLeaves(); got != 3 {
		t.Errorf("expected 3 leaves, got %d", got)
	}
}

func TestRemoveParentRecursive(t *testing.T) {
	x1 := leafRule("a")
	x2 := leafRule("b")

	g1 := leafRule("g1")
	g1.Parents = []*Rule{x1, x2}

	g2 := leafRule("g2")
	g2.Parents = []*Rule{g1}

	g2.RemoveParentRecursive(x1)

	if len(g1.Parents) != 1 || g1.Parents[0] != x2 {
		t.Errorf("expected x1 severed from the whole ancestor set")
	}
	if len(g2.Parents) != 1 {
		t.Errorf("expected g2's own parents untouched apart from x1")
	}
}

func TestInsertParentDedup(t *testing.T) {
	g := leafRule("g")
	x := leafRule("x")

	g.InsertParent(x)
	g.InsertParent(x)
	if len(g.Parents) != 1 {
		t.Errorf("expected parent inserted once, got %d", len(g.Parents))
	}
}

func TestReachableFrom(t *testing.T) {
	x := leafRule("x")
	g := leafRule("g")
	g.Parents = []*Rule{x}

	if !g.ReachableFrom(x) {
		t.Errorf("expected x reachable from g")
	}
	if x.ReachableFrom(g) {
		t.Errorf("expected g not reachable from x")
	}
}

func TestLeastGeneralRuleCovering(t *testing.T) {
	example := schemaExample()

	leaf := leafRule("other")
	covering := schemaRule()
	covering.Parents = []*Rule{leaf}
	moreGeneral := schemaRule()
	moreGeneral.Parents = []*Rule{covering}

	got := moreGeneral.LeastGeneralRuleCovering(example)
	if got != covering {
		t.Errorf("expected the least general covering node")
	}

	nonCovering := leafRule("other")
	if nonCovering.LeastGeneralRuleCovering(example) != nil {
		t.Errorf("expected nil when nothing covers the example")
	}
}
