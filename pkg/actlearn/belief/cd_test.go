package belief

import (
	"math"
	"testing"

	"github.com/cognicore/actlearn/pkg/actlearn/logic"
	"github.com/cognicore/actlearn/pkg/actlearn/rules"
)

var clearP = logic.Predicate{Name: "clear", Arity: 1}

func litProbs(pairs map[string]float64) *rules.LitProbs {
	probs := rules.NewLitProbs()
	for name, p := range pairs {
		probs.Set(clearP.Lit(logic.Const(name)), p)
	}
	return probs
}

func TestCdProbEmptyClauseSet(t *testing.T) {
	got := CdProb(rules.NewLitProbs(), rules.NewTermProbs(), nil)
	if got != 1.0 {
		t.Errorf("expected cd of no clauses to be 1, got %f", got)
	}
}

func TestCdProbEmptyClause(t *testing.T) {
	probs := litProbs(map[string]float64{"a": 0.4})
	got := CdProb(probs, rules.NewTermProbs(), []Unverified{{}})
	if got != 0.0 {
		t.Errorf("expected cd with an empty clause to be 0, got %f", got)
	}
}

func TestCdProbSingleClause(t *testing.T) {
	probs := litProbs(map[string]float64{"a": 0.4})
	cds := []Unverified{{Preconds: []logic.Literal{clearP.Lit(logic.Const("a"))}}}

	got := CdProb(probs, rules.NewTermProbs(), cds)
	if math.Abs(got-0.4) > 1e-9 {
		t.Errorf("expected 0.4, got %f", got)
	}
}

func TestCdProbIndependentClauses(t *testing.T) {
	probs := litProbs(map[string]float64{"a": 0.4, "b": 0.5})
	cds := []Unverified{
		{Preconds: []logic.Literal{clearP.Lit(logic.Const("a"))}},
		{Preconds: []logic.Literal{clearP.Lit(logic.Const("b"))}},
	}

	got := CdProb(probs, rules.NewTermProbs(), cds)
	if math.Abs(got-0.2) > 1e-2 {
		t.Errorf("expected about 0.2, got %f", got)
	}
}

func TestCdProbCertainty(t *testing.T) {
	probs := litProbs(map[string]float64{"a": 1.0})
	cds := []Unverified{{Preconds: []logic.Literal{clearP.Lit(logic.Const("a"))}}}

	got := CdProb(probs, rules.NewTermProbs(), cds)
	if got != 1.0 {
		t.Errorf("expected certain element to give 1, got %f", got)
	}
}

func TestCdProbSharedElement(t *testing.T) {
	// Both clauses hold the same single element: cd equals its necessity.
	probs := litProbs(map[string]float64{"a": 0.3})
	clause := Unverified{Preconds: []logic.Literal{clearP.Lit(logic.Const("a"))}}

	got := CdProb(probs, rules.NewTermProbs(), []Unverified{clause, clause})
	if math.Abs(got-0.3) > 1e-9 {
		t.Errorf("expected 0.3 for shared element, got %f", got)
	}
}

func TestCdProbConstants(t *testing.T) {
	consts := rules.NewTermProbs()
	consts.Set(logic.Const("a"), 0.6)
	cds := []Unverified{{Consts: []logic.Term{logic.Const("a")}}}

	got := CdProb(rules.NewLitProbs(), consts, cds)
	if math.Abs(got-0.6) > 1e-9 {
		t.Errorf("expected 0.6, got %f", got)
	}
}

func TestDgcdProbSimple(t *testing.T) {
	probs := litProbs(map[string]float64{"a": 0.4})
	disj := Unverified{Preconds: []logic.Literal{clearP.Lit(logic.Const("a"))}}

	got := DgcdProb(probs, rules.NewTermProbs(), disj, nil)
	if math.Abs(got-0.4) > 1e-9 {
		t.Errorf("expected 0.4, got %f", got)
	}
}

func TestDgcdProbTwoElements(t *testing.T) {
	// P(a or b necessary) = n_a + (1-n_a) n_b for independent
	// elements.
	probs := litProbs(map[string]float64{"a": 0.4, "b": 0.5})
	disj := Unverified{Preconds: []logic.Literal{
		clearP.Lit(logic.Const("a")),
		clearP.Lit(logic.Const("b")),
	}}

	got := DgcdProb(probs, rules.NewTermProbs(), disj, nil)
	want := 0.5 + (1-0.5)*0.4
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %f, got %f", want, got)
	}
}

func TestUnverifiedKeyDedup(t *testing.T) {
	a := clearP.Lit(logic.Const("a"))
	b := clearP.Lit(logic.Const("b"))

	u1 := Unverified{Preconds: []logic.Literal{a, b}}
	u2 := Unverified{Preconds: []logic.Literal{b, a}}
	if u1.Key() != u2.Key() {
		t.Errorf("expected order-insensitive keys")
	}

	deduped := dedupClauses([]Unverified{u1, u2})
	if len(deduped) != 1 {
		t.Errorf("expected deduplication, got %d", len(deduped))
	}
}
