// Package belief maintains the probabilistic side of the learner: per-rule
// necessity beliefs over preconditions and constants, the unknown-rule
// model, fulfilment and revision probabilities, and the corroboration
// update run on every observation.
package belief

import (
	"sort"
	"strings"

	"github.com/cognicore/actlearn/pkg/actlearn/logic"
	"github.com/cognicore/actlearn/pkg/actlearn/rules"
)

// CdPrecision prunes decision-tree branches whose probability mass falls
// below it. Load-bearing for the exponential traversal; configurable but
// never zero.
var CdPrecision = 1e-3

// Sampling budgets for substitution generation.
var (
	SubsForFulfilment    = 20
	SubsForCorroboration = 20
)

// Unverified is one disjunctive clause: preconditions and constants any of
// which being unverified kills that branch.
type Unverified struct {
	Preconds []logic.Literal
	Consts   []logic.Term
}

// Empty reports whether the clause has no element left.
func (u Unverified) Empty() bool {
	return len(u.Preconds)+len(u.Consts) == 0
}

// Key gives a canonical identity used to deduplicate clauses.
func (u Unverified) Key() string {
	precs := make([]string, len(u.Preconds))
	for i, p := range u.Preconds {
		precs[i] = p.Key()
	}
	sort.Strings(precs)
	csts := make([]string, len(u.Consts))
	for i, c := range u.Consts {
		csts[i] = c.Name
	}
	sort.Strings(csts)
	return strings.Join(precs, ";") + "|" + strings.Join(csts, ";")
}

func (u Unverified) containsPrecond(l logic.Literal) bool {
	for _, p := range u.Preconds {
		if p.Equal(l) {
			return true
		}
	}
	return false
}

func (u Unverified) containsConst(t logic.Term) bool {
	for _, c := range u.Consts {
		if c.Equal(t) {
			return true
		}
	}
	return false
}

// dedupClauses drops duplicate clauses, preserving first-seen order.
func dedupClauses(cds []Unverified) []Unverified {
	seen := map[string]bool{}
	var out []Unverified
	for _, cd := range cds {
		k := cd.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, cd)
	}
	return out
}

// choice is one decision-tree node: a precondition or constant with its
// necessity.
type choice struct {
	lit   logic.Literal
	term  logic.Term
	isLit bool
	prob  float64
}

// orderedChoices lays out the necessity entries with certainty-1 entries
// first, preconditions before constants, so the tree commits certain
// branches immediately.
func orderedChoices(precondNecs *rules.LitProbs, constNecs *rules.TermProbs) []choice {
	var certain, rest []choice
	for _, e := range precondNecs.Entries() {
		c := choice{lit: e.Lit, isLit: true, prob: e.Prob}
		if e.Prob == 1.0 {
			certain = append(certain, c)
		} else {
			rest = append(rest, c)
		}
	}
	lits := append(certain, rest...)

	certain, rest = nil, nil
	for _, e := range constNecs.Entries() {
		c := choice{term: e.Term, prob: e.Prob}
		if e.Prob == 1.0 {
			certain = append(certain, c)
		} else {
			rest = append(rest, c)
		}
	}
	return append(lits, append(certain, rest...)...)
}

// CdProb computes P(every clause has at least one necessary element) by
// a pruned binary decision tree over the necessity choices. The empty
// clause set yields 1; any empty clause yields 0.
func CdProb(precondNecs *rules.LitProbs, constNecs *rules.TermProbs, cds []Unverified) float64 {
	return cdProbTree(orderedChoices(precondNecs, constNecs), 0, 1.0, cds)
}

func cdProbTree(choices []choice, choiceIndex int, branchPower float64, cds []Unverified) float64 {
	if choiceIndex >= len(choices) {
		return branchPower
	}

	c := choices[choiceIndex]

	var cdsTrue, cdsFalse []Unverified
	pruneFalseBranch := false
	foundChoiceInDisjunction := false

	for _, disj := range cds {
		if disj.Empty() {
			return 0.0
		}

		inDisj := (c.isLit && disj.containsPrecond(c.lit)) || (!c.isLit && disj.containsConst(c.term))
		if inDisj {
			foundChoiceInDisjunction = true

			remaining := Unverified{}
			for _, p := range disj.Preconds {
				if !c.isLit || !p.Equal(c.lit) {
					remaining.Preconds = append(remaining.Preconds, p)
				}
			}
			for _, t := range disj.Consts {
				if c.isLit || !t.Equal(c.term) {
					remaining.Consts = append(remaining.Consts, t)
				}
			}
			if remaining.Empty() {
				pruneFalseBranch = true
			} else {
				cdsFalse = append(cdsFalse, remaining)
			}
		} else {
			cdsTrue = append(cdsTrue, disj)
			cdsFalse = append(cdsFalse, disj)
		}
	}

	if !foundChoiceInDisjunction {
		return cdProbTree(choices, choiceIndex+1, branchPower, cdsTrue)
	}

	// True branch: the element settles every clause it appears in, so only
	// the untouched clauses remain.
	trueBranchValue := c.prob * branchPower
	if trueBranchValue >= CdPrecision {
		trueBranchValue = cdProbTree(choices, choiceIndex+1, branchPower*c.prob, cdsTrue)
	}

	if pruneFalseBranch || branchPower*(1.0-c.prob) < CdPrecision {
		return trueBranchValue
	}

	return trueBranchValue + cdProbTree(choices, choiceIndex+1, branchPower*(1.0-c.prob), cdsFalse)
}

// DgcdProb computes P(at least one element of disj is necessary | every
// clause of conditionalCds holds a necessary element) by sequential
// factorisation.
func DgcdProb(precondNecs *rules.LitProbs, constNecs *rules.TermProbs, disj Unverified, conditionalCds []Unverified) float64 {
	dgcdVal := 0.0
	condFactor := 1.0

	preconds := append([]logic.Literal{}, disj.Preconds...)
	consts := append([]logic.Term{}, disj.Consts...)

	for len(preconds) > 0 || len(consts) > 0 {
		var niL logic.Literal
		var niT logic.Term
		var niVal float64
		isLit := len(preconds) > 0

		if isLit {
			niL = preconds[len(preconds)-1]
			preconds = preconds[:len(preconds)-1]
			niVal = precondNecs.Value(niL)
		} else {
			niT = consts[len(consts)-1]
			consts = consts[:len(consts)-1]
			niVal = constNecs.Value(niT)
		}

		cdVal := CdProb(precondNecs, constNecs, conditionalCds)
		ngcdVal := niVal
		if cdVal > 0 {
			var filtered []Unverified
			for _, p := range conditionalCds {
				if (!isLit || !p.containsPrecond(niL)) && (isLit || !p.containsConst(niT)) {
					filtered = append(filtered, p)
				}
			}
			ngcdVal *= CdProb(precondNecs, constNecs, filtered) / cdVal
		}

		dgcdVal += condFactor * ngcdVal
		condFactor *= 1 - ngcdVal

		// Condition the remaining clauses on the element being necessary.
		next := make([]Unverified, 0, len(conditionalCds))
		for _, p := range conditionalCds {
			filtered := Unverified{}
			if isLit {
				for _, prec := range p.Preconds {
					if !prec.Equal(niL) {
						filtered.Preconds = append(filtered.Preconds, prec)
					}
				}
				filtered.Consts = p.Consts
			} else {
				filtered.Preconds = p.Preconds
				for _, cst := range p.Consts {
					if !cst.Equal(niT) {
						filtered.Consts = append(filtered.Consts, cst)
					}
				}
			}
			next = append(next, filtered)
		}
		conditionalCds = next
	}

	return dgcdVal
}
