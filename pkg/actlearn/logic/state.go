package logic

// State is an unordered set of positive grounded literals.
type State struct {
	Facts LiteralSet
}

// NewState creates a state holding the given facts.
func NewState(facts ...Literal) State {
	s := State{Facts: NewLiteralSet()}
	for _, f := range facts {
		s.AddFact(f)
	}
	return s
}

// StateFromSet creates a state over a copy of the given fact set.
func StateFromSet(facts LiteralSet) State {
	s := State{Facts: NewLiteralSet()}
	for _, f := range facts {
		s.AddFact(f)
	}
	return s
}

// Clone copies the state.
func (s State) Clone() State {
	return State{Facts: s.Facts.Clone()}
}

// AddFact inserts the positive version of the fact.
func (s State) AddFact(f Literal) {
	s.Facts.Add(f.Abs())
}

// AddFacts inserts the positive versions of all facts.
func (s State) AddFacts(facts LiteralSet) {
	for _, f := range facts {
		s.AddFact(f)
	}
}

// RemoveFact drops the fact, whatever polarity it is given with.
func (s State) RemoveFact(f Literal) {
	s.Facts.Remove(f.Abs())
}

// RemoveFacts drops all the given facts.
func (s State) RemoveFacts(facts LiteralSet) {
	for _, f := range facts {
		s.RemoveFact(f)
	}
}

// Contains reports whether the state holds the fact.
func (s State) Contains(f Literal) bool {
	return s.Facts.Contains(f)
}

// Len returns the number of facts.
func (s State) Len() int {
	return s.Facts.Len()
}

// Query returns every fact matching the pattern: same predicate and arity,
// equal constants, and variable positions whose type subsumes the fact's
// parameter type.
func (s State) Query(pattern Literal) []Literal {
	var result LiteralSet = NewLiteralSet()
	for _, fact := range s.Facts {
		if !fact.Pred.Equal(pattern.Pred) || len(fact.Params) != len(pattern.Params) {
			continue
		}

		corresponds := true
		for pi := range fact.Params {
			pp := pattern.Params[pi]
			fp := fact.Params[pi]
			if !pp.IsVariable() {
				if !pp.Equal(fp) {
					corresponds = false
					break
				}
			} else if !TypeSubsumes(pp.Type, fp.Type) {
				corresponds = false
				break
			}
		}

		if corresponds {
			result.Add(fact)
		}
	}
	return result.Slice()
}

// UnifyAction enumerates every injective grounding of the schema's positive
// preconditions against the state that also falsifies every negative
// precondition.
func (s State) UnifyAction(action Action) []*Substitution {
	all := []*Substitution{NewSubstitution()}

	for _, precond := range action.TruePrecond {
		var next []*Substitution
		for _, sub := range all {
			subbed := sub.ApplyLiteral(precond)
			for _, fact := range s.Query(subbed) {
				candidate := sub.Clone()

				valid := true
				for i, p := range subbed.Params {
					if !p.IsVariable() {
						continue
					}
					if _, taken := candidate.GetInverse(fact.Params[i]); taken {
						valid = false
						break
					}
					candidate.Set(p, fact.Params[i])
				}
				if valid {
					next = append(next, candidate)
				}
			}
		}
		all = next
	}

	var valid []*Substitution
	for _, sub := range all {
		ok := true
		for _, precond := range action.FalsePrecond {
			if s.Contains(sub.ApplyLiteral(precond)) {
				ok = false
				break
			}
		}
		if ok {
			valid = append(valid, sub)
		}
	}

	return valid
}

// Difference splits the facts separating s from other into the literals
// added by other (positive) and removed from s (negated).
func (s State) Difference(other State) (added, removed LiteralSet) {
	added = NewLiteralSet()
	removed = NewLiteralSet()

	for _, f := range s.Facts {
		if !other.Contains(f) {
			removed.Add(f.Neg())
		}
	}
	for _, f := range other.Facts {
		if !s.Contains(f) {
			added.Add(f)
		}
	}
	return added, removed
}

// Distance is the size of the symmetric difference, normalised by the
// combined fact count.
func Distance(s1, s2 State) float64 {
	diff := 0
	for _, f := range s1.Facts {
		if !s2.Contains(f) {
			diff++
		}
	}
	for _, f := range s2.Facts {
		if !s1.Contains(f) {
			diff++
		}
	}
	return float64(diff) / float64(s1.Len()+s2.Len()+1)
}

// Similarity is 1 minus the normalised distance.
func Similarity(s1, s2 State) float64 {
	return 1.0 - Distance(s1, s2)
}

// Equal reports whether both states hold the same facts.
func (s State) Equal(other State) bool {
	return s.Facts.Equal(other.Facts)
}

func (s State) String() string {
	return JoinLiterals(", ", s.Facts.Slice())
}
