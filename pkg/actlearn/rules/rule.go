// Package rules implements Extended Deterministic STRIPS action rules: the
// central entity of the learner, with Object-Identity matching, least
// general generalisation and the generalisation DAG.
package rules

import (
	"math"
	"strconv"
	"strings"

	"github.com/cognicore/actlearn/pkg/actlearn/logic"
)

// Rule is an EDS action rule: preconditions, add and delete effects around
// an action literal, plus the necessity beliefs attached to each
// precondition and constant and the parent set of the generalisation DAG.
type Rule struct {
	StartPu    float64
	Parameters []logic.Term

	Preconditions        logic.LiteralSet
	RemovedPreconditions logic.LiteralSet

	ActionLiteral logic.Literal
	Add           logic.LiteralSet
	Del           logic.LiteralSet

	Parents []*Rule

	PrecondNecessities *LitProbs
	ConstNecessities   *TermProbs
}

// varLinks builds the undirected co-occurrence graph of the precondition
// parameters.
func varLinks(preconds logic.LiteralSet) map[string]logic.TermSet {
	links := map[string]logic.TermSet{}
	for _, precond := range preconds {
		for _, p1 := range precond.Params {
			if _, ok := links[p1.Name]; !ok {
				links[p1.Name] = logic.NewTermSet()
			}
			for _, p2 := range precond.Params {
				if !p1.Equal(p2) {
					links[p1.Name].Add(p2)
				}
			}
		}
	}
	return links
}

// linkedTo reports whether from reaches any element of to through links.
func linkedTo(links map[string]logic.TermSet, from logic.Term, to logic.TermSet) bool {
	if to.Contains(from) {
		return true
	}

	toVisit := logic.NewTermSet(from)
	visited := logic.NewTermSet()

	for toVisit.Len() > 0 {
		current := toVisit.Slice()[0]
		toVisit.Remove(current)
		visited.Add(current)

		for _, next := range links[current.Name].Slice() {
			if visited.Contains(next) {
				continue
			}
			if to.Contains(next) {
				return true
			}
			toVisit.Add(next)
		}
	}

	return false
}

// filterLinked keeps the preconditions whose every parameter is linked,
// through precondition co-occurrence, to an action-literal or effect
// parameter.
func filterLinked(preconds logic.LiteralSet, actionLiteral logic.Literal, add, del logic.LiteralSet) logic.LiteralSet {
	links := varLinks(preconds)

	targets := logic.NewTermSet(actionLiteral.Params...)
	for _, eff := range add {
		for _, p := range eff.Params {
			targets.Add(p)
		}
	}
	for _, eff := range del {
		for _, p := range eff.Params {
			targets.Add(p)
		}
	}

	kept := logic.NewLiteralSet()
	for _, precond := range preconds {
		allLinked := true
		for _, p := range precond.Params {
			if !linkedTo(links, p, targets) {
				allLinked = false
				break
			}
		}
		if allLinked {
			kept.Add(precond)
		}
	}
	return kept
}

// NewRule constructs a rule from its parts. With filter, preconditions not
// linked to the action literal or effects are dropped. Necessities start at
// 1 − startPu^(1/k) with k the number of preconditions plus constants minus
// delete effects; preconditions mirrored by a delete effect are pinned to 1.
func NewRule(preconds logic.LiteralSet, actionLiteral logic.Literal, add, del logic.LiteralSet,
	parents []*Rule, startPu float64, filter bool) *Rule {

	r := &Rule{
		StartPu:              startPu,
		ActionLiteral:        actionLiteral,
		Add:                  add.Clone(),
		Del:                  del.Clone(),
		Parents:              append([]*Rule{}, parents...),
		RemovedPreconditions: logic.NewLiteralSet(),
		PrecondNecessities:   NewLitProbs(),
		ConstNecessities:     NewTermProbs(),
	}

	if filter {
		r.Preconditions = filterLinked(preconds, actionLiteral, r.Add, r.Del)
	} else {
		r.Preconditions = preconds.Clone()
	}

	r.extractParameters()
	r.initNecessities()
	return r
}

// RuleFromTrace builds the example rule of an observation: preconditions
// are the state facts (linked-filtered when requested), effects the state
// difference.
func RuleFromTrace(trace logic.Trace, startPu float64, filter bool) *Rule {
	add, del := trace.State.Difference(trace.NewState)
	return NewRule(trace.State.Facts, trace.Action, add, del, nil, startPu, filter)
}

func (r *Rule) extractParameters() {
	params := logic.NewTermSet(r.ActionLiteral.Params...)
	for _, group := range []logic.LiteralSet{r.Preconditions, r.Add, r.Del} {
		for _, lit := range group {
			for _, p := range lit.Params {
				params.Add(p)
			}
		}
	}
	r.Parameters = params.Slice()
}

func (r *Rule) initNecessities() {
	constants := logic.NewTermSet()
	for _, precond := range r.Preconditions {
		for _, p := range precond.Params {
			if !p.IsVariable() {
				constants.Add(p)
			}
		}
	}
	components := float64(r.Preconditions.Len()+constants.Len()) - float64(r.Del.Len())

	base := 1.0 - math.Pow(r.StartPu, 1.0/components)
	for _, precond := range r.Preconditions.Slice() {
		// Delete effects must hold beforehand, so their preconditions are
		// known necessary.
		if r.Del.Contains(precond.Neg()) {
			r.PrecondNecessities.Set(precond, 1.0)
		} else {
			r.PrecondNecessities.Set(precond, base)
		}

		for _, p := range precond.Params {
			if !p.IsVariable() {
				r.ConstNecessities.Set(p, base)
			}
		}
	}
}

// Constants returns the non-variable parameters of the rule.
func (r *Rule) Constants() []logic.Term {
	consts := logic.NewTermSet()
	for _, p := range r.Parameters {
		if !p.IsVariable() {
			consts.Add(p)
		}
	}
	return consts.Slice()
}

// Specificity counts preconditions plus their constant occurrences.
func (r *Rule) Specificity() int {
	specificity := 0
	for _, precond := range r.Preconditions {
		specificity++
		for _, p := range precond.Params {
			if !p.IsVariable() {
				specificity++
			}
		}
	}
	return specificity
}

// SetRemovedPreconditions installs the removed-precondition set and folds
// its parameters into the rule parameters.
func (r *Rule) SetRemovedPreconditions(removed logic.LiteralSet) {
	r.RemovedPreconditions = removed.Clone()
	for _, lit := range removed {
		for _, p := range lit.Params {
			r.Parameters = logic.AppendUniqueTerm(r.Parameters, p)
		}
	}
}

// WellFormed checks the rule invariants: every delete effect has an inverse
// precondition, no add effect is already a precondition, every add-effect
// variable occurs in a precondition, and every precondition parameter is
// linked to the action literal or the effects.
func (r *Rule) WellFormed() bool {
	linkTarget := logic.NewTermSet(r.ActionLiteral.Params...)

	for _, deleff := range r.Del {
		if !r.Preconditions.Contains(deleff.Neg()) {
			return false
		}
		for _, p := range deleff.Params {
			linkTarget.Add(p)
		}
	}

	addVars := logic.NewTermSet()
	for _, addeff := range r.Add {
		if r.Preconditions.Contains(addeff) {
			return false
		}
		for _, p := range addeff.Params {
			addVars.Add(p)
			linkTarget.Add(p)
		}
	}

	for _, v := range addVars.Slice() {
		if !varOccurs(v, r.Preconditions) {
			return false
		}
	}

	links := varLinks(r.Preconditions)
	vars := logic.NewTermSet()
	for _, precond := range r.Preconditions {
		for _, p := range precond.Params {
			vars.Add(p)
		}
	}
	for _, v := range vars.Slice() {
		if !linkedTo(links, v, linkTarget) {
			return false
		}
	}

	return true
}

func varOccurs(v logic.Term, literals logic.LiteralSet) bool {
	for _, lit := range literals {
		if logic.TermIn(lit.Params, v) {
			return true
		}
	}
	return false
}

// FreeParameterID returns the first index i such that the variable name
// "_Vi" collides with neither a rule parameter nor the blacklist.
func (r *Rule) FreeParameterID(blacklist logic.TermSet) int {
	for id := 1; ; id++ {
		name := VarName(id)
		if termsHaveName(r.Parameters, name) || blacklist.Contains(logic.Var(name)) {
			continue
		}
		return id
	}
}

func termsHaveName(terms []logic.Term, name string) bool {
	for _, t := range terms {
		if t.Name == name {
			return true
		}
	}
	return false
}

// MakeNewVar mints a fresh generalisation variable named after the free
// parameter id, typed with the most general type of param, and records it
// in genVars.
func (r *Rule) MakeNewVar(genVars logic.TermSet, param logic.Term) logic.Term {
	id := r.FreeParameterID(genVars)
	v := logic.TypedVar(VarName(id), logic.MostGeneralType(param.Type))
	genVars.Add(v)
	return v
}

// VarName is the generalisation variable name mint.
func VarName(i int) string {
	return "_V" + strconv.Itoa(i)
}

func (r *Rule) String() string {
	var b strings.Builder
	b.WriteString("Preconds: ")
	first := true
	for _, precond := range r.Preconditions.Slice() {
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(precond.String())
	}
	if r.RemovedPreconditions.Len() > 0 {
		b.WriteString("\nRemoved preconds: ")
		b.WriteString(logic.JoinLiterals(", ", r.RemovedPreconditions.Slice()))
	}
	b.WriteString("\nAction: ")
	b.WriteString(r.ActionLiteral.String())
	b.WriteString("\nEffects: ")
	effects := append(r.Add.Slice(), r.Del.Slice()...)
	b.WriteString(logic.JoinLiterals(", ", effects))
	return b.String()
}
