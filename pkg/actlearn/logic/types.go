// Package logic implements the first-order substrate the learner is built
// on: nominal types, terms, predicates, literals, substitutions with
// unification and Object-Identity subsumption, states, action schemas and
// observation traces.
package logic

import (
	"sort"
	"strings"
)

// Type is a nominal term type with an optional single parent.
type Type struct {
	Name   string
	Parent *Type
}

// NewType creates a type with the given parent (nil for a root type).
func NewType(name string, parent *Type) *Type {
	return &Type{Name: name, Parent: parent}
}

// Subsumes reports whether t subsumes other, walking other's parent chain.
func (t *Type) Subsumes(other *Type) bool {
	if other == nil {
		return false
	}
	if t.Name == other.Name {
		return true
	}
	return other.Parent != nil && t.Subsumes(other.Parent)
}

// TypeSubsumes reports whether a subsumes b. A nil type subsumes
// everything; nothing subsumes a nil type except nil itself.
func TypeSubsumes(a, b *Type) bool {
	if a == nil {
		return true
	}
	if b == nil {
		return false
	}
	return a.Subsumes(b)
}

// MostGeneralType walks up the parent chain to the root of t.
func MostGeneralType(t *Type) *Type {
	if t == nil {
		return nil
	}
	for t.Parent != nil {
		t = t.Parent
	}
	return t
}

// TermKind discriminates constants from variables.
type TermKind uint8

const (
	ConstantTerm TermKind = iota
	VariableTerm
)

// AnyVarName is the name of the distinguished variable that compares equal
// to every variable.
const AnyVarName = "ANY"

// Term is a named constant or variable, optionally typed.
type Term struct {
	Name string
	Kind TermKind
	Type *Type
}

// Var creates an untyped variable term.
func Var(name string) Term {
	return Term{Name: name, Kind: VariableTerm}
}

// TypedVar creates a typed variable term.
func TypedVar(name string, t *Type) Term {
	return Term{Name: name, Kind: VariableTerm, Type: t}
}

// Const creates an untyped constant term.
func Const(name string) Term {
	return Term{Name: name, Kind: ConstantTerm}
}

// TypedConst creates a typed constant term.
func TypedConst(name string, t *Type) Term {
	return Term{Name: name, Kind: ConstantTerm, Type: t}
}

// AnyVar returns the distinguished wildcard variable.
func AnyVar() Term {
	return Var(AnyVarName)
}

// IsVariable reports whether the term is a variable.
func (t Term) IsVariable() bool {
	return t.Kind == VariableTerm
}

// Zero reports whether the term is the zero value.
func (t Term) Zero() bool {
	return t.Name == ""
}

// Equal compares terms by name; the ANY variable equals every variable.
func (t Term) Equal(o Term) bool {
	if t.Name == o.Name {
		return true
	}
	return t.IsVariable() && o.IsVariable() &&
		(t.Name == AnyVarName || o.Name == AnyVarName)
}

// Less orders terms by name.
func (t Term) Less(o Term) bool {
	return t.Name < o.Name
}

func (t Term) String() string {
	var b strings.Builder
	if t.IsVariable() {
		b.WriteByte('?')
	}
	b.WriteString(t.Name)
	if t.Type != nil {
		b.WriteByte(':')
		b.WriteString(t.Type.Name)
	}
	return b.String()
}

// TermIn reports whether term occurs in terms, under Term.Equal.
func TermIn(terms []Term, term Term) bool {
	for _, t := range terms {
		if t.Equal(term) {
			return true
		}
	}
	return false
}

// AppendUniqueTerm appends term if no equal term is present yet.
func AppendUniqueTerm(terms []Term, term Term) []Term {
	if TermIn(terms, term) {
		return terms
	}
	return append(terms, term)
}

// SortTerms sorts terms by name, in place.
func SortTerms(terms []Term) {
	sort.Slice(terms, func(i, j int) bool { return terms[i].Less(terms[j]) })
}

// FilterByType keeps the terms whose type is subsumed by t.
func FilterByType(terms []Term, t *Type) []Term {
	var out []Term
	for _, term := range terms {
		if TypeSubsumes(t, term.Type) {
			out = append(out, term)
		}
	}
	return out
}

// Predicate is a named relation with a fixed arity. Equality and order are
// by name, matching literal comparison.
type Predicate struct {
	Name  string
	Arity int
}

// Zero reports whether the predicate is the zero value.
func (p Predicate) Zero() bool {
	return p.Name == ""
}

// Equal compares predicates by name.
func (p Predicate) Equal(o Predicate) bool {
	return p.Name == o.Name
}

// Less orders predicates by name.
func (p Predicate) Less(o Predicate) bool {
	return p.Name < o.Name
}

func (p Predicate) String() string {
	return p.Name
}

// Lit builds a positive literal of this predicate.
func (p Predicate) Lit(params ...Term) Literal {
	return Literal{Pred: p, Params: params, Positive: true}
}

// Literal is a possibly-negated application of a predicate to parameters.
type Literal struct {
	Pred     Predicate
	Params   []Term
	Positive bool
}

// NewLiteral builds a positive literal.
func NewLiteral(pred Predicate, params ...Term) Literal {
	return Literal{Pred: pred, Params: params, Positive: true}
}

// Zero reports whether the literal carries the zero predicate.
func (l Literal) Zero() bool {
	return l.Pred.Zero()
}

// Grounded reports whether the literal has no variable parameter.
func (l Literal) Grounded() bool {
	for _, p := range l.Params {
		if p.IsVariable() {
			return false
		}
	}
	return true
}

// RepeatsArg reports whether two parameter positions hold equal terms.
func (l Literal) RepeatsArg() bool {
	for i := 0; i < len(l.Params)-1; i++ {
		for j := i + 1; j < len(l.Params); j++ {
			if l.Params[i].Equal(l.Params[j]) {
				return true
			}
		}
	}
	return false
}

// Neg returns the literal with inverted polarity.
func (l Literal) Neg() Literal {
	return Literal{Pred: l.Pred, Params: l.Params, Positive: !l.Positive}
}

// Abs returns the positive version of the literal.
func (l Literal) Abs() Literal {
	return Literal{Pred: l.Pred, Params: l.Params, Positive: true}
}

// Equal compares polarity, predicate and parameters positionwise.
func (l Literal) Equal(o Literal) bool {
	if l.Positive != o.Positive || !l.Pred.Equal(o.Pred) {
		return false
	}
	if len(l.Params) != len(o.Params) {
		return false
	}
	for i := range l.Params {
		if !l.Params[i].Equal(o.Params[i]) {
			return false
		}
	}
	return true
}

// Less totally orders literals: positives first, then predicate, then
// parameters positionwise.
func (l Literal) Less(o Literal) bool {
	if l.Positive != o.Positive {
		return l.Positive
	}
	if !l.Pred.Equal(o.Pred) {
		return l.Pred.Less(o.Pred)
	}
	for i := range l.Params {
		if i >= len(o.Params) {
			return false
		}
		if !l.Params[i].Equal(o.Params[i]) {
			return l.Params[i].Less(o.Params[i])
		}
	}
	return len(l.Params) < len(o.Params)
}

// Unifies reports whether l, read as a pattern, matches the grounded
// literal other: constants must be equal, variables must type-subsume the
// matched parameter.
func (l Literal) Unifies(other Literal) bool {
	if !l.Pred.Equal(other.Pred) || len(l.Params) != len(other.Params) {
		return false
	}
	for i, p := range l.Params {
		o := other.Params[i]
		if !p.IsVariable() {
			if !p.Equal(o) {
				return false
			}
			continue
		}
		if !TypeSubsumes(p.Type, o.Type) {
			return false
		}
	}
	return true
}

// Key returns a canonical string identity for the literal, suitable as a
// map key. It mirrors Equal: polarity, predicate name and parameter names.
func (l Literal) Key() string {
	var b strings.Builder
	if !l.Positive {
		b.WriteByte('-')
	}
	b.WriteString(l.Pred.Name)
	b.WriteByte('(')
	for i, p := range l.Params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.Name)
	}
	b.WriteByte(')')
	return b.String()
}

func (l Literal) String() string {
	return l.Key()
}

// Compatible reports whether two literals share predicate and polarity.
func Compatible(l1, l2 Literal) bool {
	return l1.Pred.Equal(l2.Pred) && l1.Positive == l2.Positive
}

// LiteralSet is an unordered set of literals keyed by canonical identity.
type LiteralSet map[string]Literal

// NewLiteralSet builds a set from the given literals.
func NewLiteralSet(lits ...Literal) LiteralSet {
	s := make(LiteralSet, len(lits))
	for _, l := range lits {
		s.Add(l)
	}
	return s
}

// Add inserts a literal.
func (s LiteralSet) Add(l Literal) {
	s[l.Key()] = l
}

// AddAll inserts every literal of other.
func (s LiteralSet) AddAll(other LiteralSet) {
	for k, l := range other {
		s[k] = l
	}
}

// Remove drops a literal.
func (s LiteralSet) Remove(l Literal) {
	delete(s, l.Key())
}

// Contains reports membership.
func (s LiteralSet) Contains(l Literal) bool {
	_, ok := s[l.Key()]
	return ok
}

// Len returns the number of literals.
func (s LiteralSet) Len() int {
	return len(s)
}

// Clone returns a copy of the set.
func (s LiteralSet) Clone() LiteralSet {
	out := make(LiteralSet, len(s))
	for k, l := range s {
		out[k] = l
	}
	return out
}

// Slice returns the literals in canonical order.
func (s LiteralSet) Slice() []Literal {
	out := make([]Literal, 0, len(s))
	for _, l := range s {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Union returns a new set holding the literals of both sets.
func (s LiteralSet) Union(other LiteralSet) LiteralSet {
	out := s.Clone()
	out.AddAll(other)
	return out
}

// Equal reports whether both sets hold the same literals.
func (s LiteralSet) Equal(other LiteralSet) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if _, ok := other[k]; !ok {
			return false
		}
	}
	return true
}

// TermSet is a set of terms keyed by name.
type TermSet map[string]Term

// NewTermSet builds a set from the given terms.
func NewTermSet(terms ...Term) TermSet {
	s := make(TermSet, len(terms))
	for _, t := range terms {
		s.Add(t)
	}
	return s
}

// Add inserts a term.
func (s TermSet) Add(t Term) {
	s[t.Name] = t
}

// Remove drops a term.
func (s TermSet) Remove(t Term) {
	delete(s, t.Name)
}

// Contains reports membership by name.
func (s TermSet) Contains(t Term) bool {
	_, ok := s[t.Name]
	return ok
}

// Len returns the number of terms.
func (s TermSet) Len() int {
	return len(s)
}

// Clone copies the set.
func (s TermSet) Clone() TermSet {
	out := make(TermSet, len(s))
	for k, t := range s {
		out[k] = t
	}
	return out
}

// Slice returns the terms sorted by name.
func (s TermSet) Slice() []Term {
	out := make([]Term, 0, len(s))
	for _, t := range s {
		out = append(out, t)
	}
	SortTerms(out)
	return out
}

// JoinLiterals renders literals separated by sep.
func JoinLiterals(sep string, lits []Literal) string {
	parts := make([]string, len(lits))
	for i, l := range lits {
		parts[i] = l.String()
	}
	return strings.Join(parts, sep)
}
