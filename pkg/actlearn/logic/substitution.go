package logic

import (
	"sort"
	"strings"
)

// Substitution is a finite mapping from terms to terms. When injective, no
// two sources may share an image; the inverse is then a partial function.
type Substitution struct {
	injective bool
	from      map[string]Term
	to        map[string]Term
}

// NewSubstitution creates an empty injective substitution.
func NewSubstitution() *Substitution {
	return &Substitution{injective: true, from: map[string]Term{}, to: map[string]Term{}}
}

// NewFreeSubstitution creates an empty non-injective substitution.
func NewFreeSubstitution() *Substitution {
	s := NewSubstitution()
	s.injective = false
	return s
}

// SubstitutionFromPairs binds from[i] to to[i] for every differing pair.
// Both slices must have the same length.
func SubstitutionFromPairs(from, to []Term, injective bool) *Substitution {
	s := NewSubstitution()
	s.injective = injective
	for i := range from {
		if !from[i].Equal(to[i]) {
			s.Set(from[i], to[i])
		}
	}
	return s
}

// Injective reports whether the substitution enforces injectivity.
func (s *Substitution) Injective() bool {
	return s.injective
}

// Len returns the number of bindings.
func (s *Substitution) Len() int {
	return len(s.from)
}

// Clone copies the substitution, keeping the injective flag.
func (s *Substitution) Clone() *Substitution {
	out := &Substitution{
		injective: s.injective,
		from:      make(map[string]Term, len(s.from)),
		to:        make(map[string]Term, len(s.to)),
	}
	for k, v := range s.from {
		out.from[k] = v
	}
	for k, v := range s.to {
		out.to[k] = v
	}
	return out
}

// names returns the bound source names in sorted order, giving every
// iteration over the mapping a stable order.
func (s *Substitution) names() []string {
	names := make([]string, 0, len(s.from))
	for k := range s.from {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Pairs returns the (source, image) bindings in source-name order.
func (s *Substitution) Pairs() [][2]Term {
	out := make([][2]Term, 0, len(s.from))
	for _, n := range s.names() {
		out = append(out, [2]Term{s.from[n], s.to[n]})
	}
	return out
}

// Get returns the image of from, if bound.
func (s *Substitution) Get(from Term) (Term, bool) {
	t, ok := s.to[from.Name]
	return t, ok
}

// GetInverse returns the source mapped to the given image, if any.
func (s *Substitution) GetInverse(to Term) (Term, bool) {
	for _, n := range s.names() {
		if s.to[n].Equal(to) {
			return s.from[n], true
		}
	}
	return Term{}, false
}

// Contains reports whether from is bound.
func (s *Substitution) Contains(from Term) bool {
	_, ok := s.from[from.Name]
	return ok
}

// ContainsEither reports whether the term occurs as a source or an image.
func (s *Substitution) ContainsEither(t Term) bool {
	for _, n := range s.names() {
		if s.from[n].Equal(t) || s.to[n].Equal(t) {
			return true
		}
	}
	return false
}

// Set binds from to to, overwriting any previous binding of from.
func (s *Substitution) Set(from, to Term) {
	s.from[from.Name] = from
	s.to[from.Name] = to
}

// SetSafe binds from to to unless the binding would clash: a non-variable
// source (other than the identity), an existing disagreeing binding, or an
// image already taken when injective. Reports whether the binding holds.
func (s *Substitution) SetSafe(from, to Term) bool {
	if from.Equal(to) {
		return true
	}
	if !from.IsVariable() {
		return false
	}
	if cur, ok := s.Get(from); ok {
		return cur.Equal(to)
	}
	if s.injective {
		if _, ok := s.GetInverse(to); ok {
			return false
		}
	}
	s.Set(from, to)
	return true
}

// SetSafeAll applies SetSafe pairwise and reports whether every binding
// held. All pairs are attempted even after a clash.
func (s *Substitution) SetSafeAll(from, to []Term) bool {
	ok := true
	for i := range from {
		if !s.SetSafe(from[i], to[i]) {
			ok = false
		}
	}
	return ok
}

// Remove drops the binding of from, if any.
func (s *Substitution) Remove(from Term) {
	delete(s.from, from.Name)
	delete(s.to, from.Name)
}

// Extends reports whether s agrees with every binding of other.
func (s *Substitution) Extends(other *Substitution) bool {
	for _, n := range other.names() {
		val, ok := s.Get(other.from[n])
		if !ok || !val.Equal(other.to[n]) {
			return false
		}
	}
	return true
}

// CheckInjective verifies that no two sources share an image.
func (s *Substitution) CheckInjective() bool {
	seen := map[string]bool{}
	for _, n := range s.names() {
		img := s.to[n].Name
		if seen[img] {
			return false
		}
		seen[img] = true
	}
	return true
}

// Inverse returns the substitution mapping every image back to its source.
func (s *Substitution) Inverse() *Substitution {
	inv := NewSubstitution()
	for _, n := range s.names() {
		inv.Set(s.to[n], s.from[n])
	}
	return inv
}

// Apply resolves a term through the mapping; unbound terms pass through.
func (s *Substitution) Apply(t Term) Term {
	if img, ok := s.Get(t); ok {
		return img
	}
	return t
}

// ApplyLiteral rewrites every parameter through the mapping, single pass.
func (s *Substitution) ApplyLiteral(l Literal) Literal {
	params := make([]Term, len(l.Params))
	for i, p := range l.Params {
		params[i] = s.Apply(p)
	}
	return Literal{Pred: l.Pred, Params: params, Positive: l.Positive}
}

// ApplySet rewrites every literal of the set.
func (s *Substitution) ApplySet(lits LiteralSet) LiteralSet {
	out := make(LiteralSet, len(lits))
	for _, l := range lits {
		out.Add(s.ApplyLiteral(l))
	}
	return out
}

// ApplyGrounded rewrites an already grounded action.
func (s *Substitution) ApplyGrounded(act GroundedAction) GroundedAction {
	out := GroundedAction{ActionLiteral: s.ApplyLiteral(act.ActionLiteral)}
	for _, c := range act.PreConditions {
		out.PreConditions = append(out.PreConditions, Condition{Lit: s.ApplyLiteral(c.Lit), Truth: c.Truth})
	}
	for _, c := range act.PostConditions {
		out.PostConditions = append(out.PostConditions, Condition{Lit: s.ApplyLiteral(c.Lit), Truth: c.Truth})
	}
	return out
}

// Uncovered returns the given terms that have no binding yet, sorted.
func (s *Substitution) Uncovered(params []Term) []Term {
	var out []Term
	for _, p := range params {
		if !s.Contains(p) {
			out = AppendUniqueTerm(out, p)
		}
	}
	SortTerms(out)
	return out
}

// ExpandUncovered enumerates every injective extension of s assigning each
// uncovered element of from to an element of to whose type the source type
// subsumes. With skipConstants, non-variable sources are left unbound.
func (s *Substitution) ExpandUncovered(from, to []Term, skipConstants bool) []*Substitution {
	generated := []*Substitution{s.Clone()}

	uncovered := s.Uncovered(dedupTerms(from))
	targets := dedupTerms(to)
	SortTerms(targets)

	for _, src := range uncovered {
		if !src.IsVariable() && skipConstants {
			continue
		}
		prev := generated
		generated = nil
		for _, sub := range prev {
			for _, tgt := range targets {
				if _, taken := sub.GetInverse(tgt); taken {
					continue
				}
				if !TypeSubsumes(src.Type, tgt.Type) {
					continue
				}
				next := sub.Clone()
				next.Set(src, tgt)
				generated = append(generated, next)
			}
		}
	}

	return generated
}

func dedupTerms(terms []Term) []Term {
	var out []Term
	for _, t := range terms {
		out = AppendUniqueTerm(out, t)
	}
	return out
}

// Merge composes s with other, right-biased and with bridge closure: when
// s maps a to b and other maps b to c, the result maps a to c. The result
// is non-injective and keeps other's own bindings.
func (s *Substitution) Merge(other *Substitution) *Substitution {
	result := other.Clone()
	result.injective = false

	for _, n := range s.names() {
		from1, to1 := s.from[n], s.to[n]
		if bridge, ok := other.Get(to1); ok {
			if !bridge.Equal(from1) {
				result.Set(from1, bridge)
			}
		} else {
			result.Set(from1, to1)
		}
	}

	return result
}

// CleanConstants drops every identity binding.
func (s *Substitution) CleanConstants() {
	for _, n := range s.names() {
		if s.from[n].Equal(s.to[n]) {
			s.Remove(s.from[n])
		}
	}
}

// Unify extends s into a most-general unifier of the two literals and
// reports success. The substitution becomes non-injective.
func (s *Substitution) Unify(from, to Literal) bool {
	if !from.Pred.Equal(to.Pred) || len(from.Params) != len(to.Params) {
		return false
	}

	s.injective = false

	for i := range from.Params {
		fromAtom := from.Params[i]
		fromSave := fromAtom
		if conv, ok := s.Get(fromAtom); ok {
			fromAtom = conv
		}

		toAtom := to.Params[i]
		toSave := toAtom
		if conv, ok := s.Get(toAtom); ok {
			toAtom = conv
		}

		switch {
		case fromAtom.Equal(toAtom):
		case fromAtom.IsVariable() && !toAtom.IsVariable():
			s.Set(fromAtom, toAtom)
			s.Set(fromSave, toAtom)
		case toAtom.IsVariable() && !fromAtom.IsVariable():
			s.Set(toAtom, fromAtom)
			s.Set(toSave, fromAtom)
		case fromAtom.IsVariable() && toAtom.IsVariable():
			s.Set(fromAtom, toAtom)
			s.Set(fromSave, toAtom)
		default:
			return false
		}
	}
	return true
}

// OISubsume enumerates every injective extension of s mapping source into
// dst under Object Identity: no variable and no constant may be bound to an
// image already used, identity on constants permitted.
func (s *Substitution) OISubsume(source []Literal, dst LiteralSet) []*Substitution {
	ordered := make([]Literal, len(source))
	copy(ordered, source)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Less(ordered[j]) })
	return s.oiSubsume(ordered, dst.Slice())
}

// OISubsumeSet is OISubsume over a literal set source.
func (s *Substitution) OISubsumeSet(source, dst LiteralSet) []*Substitution {
	return s.oiSubsume(source.Slice(), dst.Slice())
}

func (s *Substitution) oiSubsume(source, dst []Literal) []*Substitution {
	if len(source) == 0 {
		return []*Substitution{s.Clone()}
	}

	first := s.ApplyLiteral(source[len(source)-1])
	rest := source[:len(source)-1]

	var subs []*Substitution
	for _, d := range dst {
		if !d.Pred.Equal(first.Pred) {
			continue
		}

		sub := s.Clone()
		couldMatch := true
		for pi := range first.Params {
			srcParam := first.Params[pi]
			dstParam := d.Params[pi]

			if srcParam.Equal(dstParam) {
				continue
			}

			_, bound := sub.Get(srcParam)
			_, taken := sub.GetInverse(dstParam)
			if srcParam.IsVariable() && !bound && !taken {
				sub.Set(srcParam, dstParam)
				continue
			}

			couldMatch = false
			break
		}
		if !couldMatch {
			continue
		}

		subs = append(subs, sub.oiSubsume(rest, dst)...)
	}

	return subs
}

// Equal reports identical injectivity and mapping.
func (s *Substitution) Equal(other *Substitution) bool {
	if s.injective != other.injective || len(s.from) != len(other.from) {
		return false
	}
	for _, n := range s.names() {
		img, ok := other.to[n]
		if !ok || !img.Equal(s.to[n]) {
			return false
		}
	}
	return true
}

// Key returns a canonical string identity for the substitution.
func (s *Substitution) Key() string {
	var b strings.Builder
	if s.injective {
		b.WriteString("i|")
	} else {
		b.WriteString("f|")
	}
	for _, n := range s.names() {
		b.WriteString(n)
		b.WriteByte('/')
		b.WriteString(s.to[n].Name)
		b.WriteByte(' ')
	}
	return b.String()
}

func (s *Substitution) String() string {
	var b strings.Builder
	for _, n := range s.names() {
		b.WriteString(s.from[n].Name)
		b.WriteByte('/')
		b.WriteString(s.to[n].Name)
		b.WriteByte(' ')
	}
	return b.String()
}

// SubstitutionSet deduplicates substitutions by canonical identity.
type SubstitutionSet map[string]*Substitution

// NewSubstitutionSet builds a set from the given substitutions.
func NewSubstitutionSet(subs ...*Substitution) SubstitutionSet {
	set := make(SubstitutionSet, len(subs))
	for _, s := range subs {
		set.Add(s)
	}
	return set
}

// Add inserts a substitution.
func (set SubstitutionSet) Add(s *Substitution) {
	set[s.Key()] = s
}

// AddAll inserts every substitution of other.
func (set SubstitutionSet) AddAll(other SubstitutionSet) {
	for k, s := range other {
		set[k] = s
	}
}

// Len returns the number of distinct substitutions.
func (set SubstitutionSet) Len() int {
	return len(set)
}

// Contains reports membership of an equal substitution.
func (set SubstitutionSet) Contains(s *Substitution) bool {
	_, ok := set[s.Key()]
	return ok
}

// Slice returns the substitutions in canonical key order.
func (set SubstitutionSet) Slice() []*Substitution {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Substitution, 0, len(keys))
	for _, k := range keys {
		out = append(out, set[k])
	}
	return out
}
