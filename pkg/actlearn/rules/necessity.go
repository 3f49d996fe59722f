package rules

import (
	"sort"

	"github.com/cognicore/actlearn/pkg/actlearn/logic"
)

// Sticky necessity values: 1 means known necessary (delete effects seen in
// preconditions), 0 means known irrelevant. Everything else is clamped to
// MaxNecessity during corroboration.
const MaxNecessity = 0.95

// LitProbs maps literals to necessity probabilities, keeping the literal
// itself so callers can iterate deterministically.
type LitProbs struct {
	lits map[string]logic.Literal
	vals map[string]float64
}

// NewLitProbs creates an empty table.
func NewLitProbs() *LitProbs {
	return &LitProbs{lits: map[string]logic.Literal{}, vals: map[string]float64{}}
}

// Set stores the probability of a literal.
func (p *LitProbs) Set(l logic.Literal, v float64) {
	k := l.Key()
	p.lits[k] = l
	p.vals[k] = v
}

// Get returns the probability of a literal.
func (p *LitProbs) Get(l logic.Literal) (float64, bool) {
	v, ok := p.vals[l.Key()]
	return v, ok
}

// Value returns the probability, zero when absent.
func (p *LitProbs) Value(l logic.Literal) float64 {
	return p.vals[l.Key()]
}

// Delete removes a literal from the table.
func (p *LitProbs) Delete(l logic.Literal) {
	k := l.Key()
	delete(p.lits, k)
	delete(p.vals, k)
}

// Len returns the number of entries.
func (p *LitProbs) Len() int {
	return len(p.vals)
}

// Clone copies the table.
func (p *LitProbs) Clone() *LitProbs {
	out := NewLitProbs()
	for k, l := range p.lits {
		out.lits[k] = l
		out.vals[k] = p.vals[k]
	}
	return out
}

// Entries returns (literal, probability) pairs in canonical order.
func (p *LitProbs) Entries() []LitProb {
	keys := make([]string, 0, len(p.vals))
	for k := range p.vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]LitProb, 0, len(keys))
	for _, k := range keys {
		out = append(out, LitProb{Lit: p.lits[k], Prob: p.vals[k]})
	}
	return out
}

// LitProb is one necessity entry.
type LitProb struct {
	Lit  logic.Literal
	Prob float64
}

// TermProbs maps terms to necessity probabilities.
type TermProbs struct {
	terms map[string]logic.Term
	vals  map[string]float64
}

// NewTermProbs creates an empty table.
func NewTermProbs() *TermProbs {
	return &TermProbs{terms: map[string]logic.Term{}, vals: map[string]float64{}}
}

// Set stores the probability of a term.
func (p *TermProbs) Set(t logic.Term, v float64) {
	p.terms[t.Name] = t
	p.vals[t.Name] = v
}

// Get returns the probability of a term.
func (p *TermProbs) Get(t logic.Term) (float64, bool) {
	v, ok := p.vals[t.Name]
	return v, ok
}

// Value returns the probability, zero when absent.
func (p *TermProbs) Value(t logic.Term) float64 {
	return p.vals[t.Name]
}

// Contains reports whether the term has an entry.
func (p *TermProbs) Contains(t logic.Term) bool {
	_, ok := p.vals[t.Name]
	return ok
}

// Delete removes a term from the table.
func (p *TermProbs) Delete(t logic.Term) {
	delete(p.terms, t.Name)
	delete(p.vals, t.Name)
}

// Len returns the number of entries.
func (p *TermProbs) Len() int {
	return len(p.vals)
}

// Clone copies the table.
func (p *TermProbs) Clone() *TermProbs {
	out := NewTermProbs()
	for k, t := range p.terms {
		out.terms[k] = t
		out.vals[k] = p.vals[k]
	}
	return out
}

// Entries returns (term, probability) pairs in name order.
func (p *TermProbs) Entries() []TermProb {
	keys := make([]string, 0, len(p.vals))
	for k := range p.vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]TermProb, 0, len(keys))
	for _, k := range keys {
		out = append(out, TermProb{Term: p.terms[k], Prob: p.vals[k]})
	}
	return out
}

// TermProb is one constant-necessity entry.
type TermProb struct {
	Term logic.Term
	Prob float64
}

// Clamp bounds a necessity into [0, MaxNecessity].
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > MaxNecessity {
		return MaxNecessity
	}
	return v
}
