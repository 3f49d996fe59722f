package rules

import "github.com/cognicore/actlearn/pkg/actlearn/logic"

// unifyWithState narrows the substitution set so every literal of toUnify,
// once rewritten, matches a fact of s under Object Identity.
func unifyWithState(toUnify logic.LiteralSet, s logic.State, subs logic.SubstitutionSet) logic.SubstitutionSet {
	for _, lit := range toUnify.Slice() {
		next := logic.NewSubstitutionSet()

		for _, sub := range subs.Slice() {
			subbed := sub.ApplyLiteral(lit)
			matches := s.Query(subbed)
			if len(matches) == 0 {
				continue
			}

			if subbed.Grounded() {
				next.Add(sub)
				continue
			}

			for _, fact := range matches {
				extended := sub.Clone()
				if extended.SetSafeAll(subbed.Params, fact.Params) {
					next.Add(extended)
				}
			}
		}

		if next.Len() == 0 {
			return logic.NewSubstitutionSet()
		}
		subs = next
	}
	return subs
}

// selfMapConstants binds every listed constant to itself unless already
// bound (checkInverse also skips constants already used as an image).
func selfMapConstants(sub *logic.Substitution, constants logic.TermSet, checkInverse bool) {
	for _, c := range constants.Slice() {
		if _, ok := sub.Get(c); ok {
			continue
		}
		if checkInverse {
			if _, ok := sub.GetInverse(c); ok {
				continue
			}
		}
		sub.Set(c, c)
	}
}

// PrematchingSubs enumerates the substitutions under which the rule's
// preconditions hold in the example's precondition state: constants are
// self-mapped, action-literal parameters bound set-safe, preconditions
// OI-matched, and identity mappings stripped from the result.
func (r *Rule) PrematchingSubs(x *Rule, sub *logic.Substitution) logic.SubstitutionSet {
	if !logic.Compatible(r.ActionLiteral, x.ActionLiteral) {
		return logic.NewSubstitutionSet()
	}

	if sub == nil {
		sub = logic.NewSubstitution()
	} else {
		sub = sub.Clone()
	}

	constants := logic.NewTermSet()
	for _, p := range r.ActionLiteral.Params {
		if !p.IsVariable() {
			constants.Add(p)
		}
	}
	for _, precond := range r.Preconditions {
		for _, p := range precond.Params {
			if !p.IsVariable() {
				constants.Add(p)
			}
		}
	}
	selfMapConstants(sub, constants, false)

	if !sub.SetSafeAll(r.ActionLiteral.Params, x.ActionLiteral.Params) {
		return logic.NewSubstitutionSet()
	}

	subs := unifyWithState(r.Preconditions, logic.StateFromSet(x.Preconditions), logic.NewSubstitutionSet(sub))

	clean := logic.NewSubstitutionSet()
	for _, s := range subs.Slice() {
		c := s.Clone()
		c.CleanConstants()
		clean.Add(c)
	}
	return clean
}

// Prematches reports whether exactly one prematching substitution exists.
func (r *Rule) Prematches(x *Rule, sub *logic.Substitution) bool {
	return r.PrematchingSubs(x, sub).Len() == 1
}

// PostmatchingSubs enumerates the substitutions under which the rule's
// effects reproduce the example's effects exactly. Effect counts must
// match.
func (r *Rule) PostmatchingSubs(x *Rule, sub *logic.Substitution) logic.SubstitutionSet {
	if !logic.Compatible(r.ActionLiteral, x.ActionLiteral) {
		return logic.NewSubstitutionSet()
	}
	if r.Add.Len() != x.Add.Len() || r.Del.Len() != x.Del.Len() {
		return logic.NewSubstitutionSet()
	}

	if sub == nil {
		sub = logic.NewSubstitution()
	} else {
		sub = sub.Clone()
	}

	effectState := logic.StateFromSet(x.Add.Union(x.Del))

	constants := logic.NewTermSet()
	for _, p := range r.ActionLiteral.Params {
		if !p.IsVariable() {
			constants.Add(p)
		}
	}
	for _, group := range []logic.LiteralSet{r.Add, r.Del} {
		for _, eff := range group {
			for _, p := range eff.Params {
				if !p.IsVariable() {
					constants.Add(p)
				}
			}
		}
	}
	selfMapConstants(sub, constants, true)

	if !sub.SetSafeAll(r.ActionLiteral.Params, x.ActionLiteral.Params) {
		return logic.NewSubstitutionSet()
	}

	subs := unifyWithState(r.Add.Union(r.Del), effectState, logic.NewSubstitutionSet(sub))

	clean := logic.NewSubstitutionSet()
	for _, s := range subs.Slice() {
		c := s.Clone()
		c.CleanConstants()
		clean.Add(c)
	}
	return clean
}

// Postmatches reports whether at least one postmatching substitution
// exists.
func (r *Rule) Postmatches(x *Rule, sub *logic.Substitution) bool {
	return r.PostmatchingSubs(x, sub).Len() > 0
}

// CoveringSubs postmatches every prematching substitution and returns the
// union of the results.
func (r *Rule) CoveringSubs(x *Rule, sub *logic.Substitution) logic.SubstitutionSet {
	covering := logic.NewSubstitutionSet()
	for _, pre := range r.PrematchingSubs(x, sub).Slice() {
		covering.AddAll(r.PostmatchingSubs(x, pre))
	}
	return covering
}

// Covers reports whether some substitution both prematches and postmatches.
func (r *Rule) Covers(x *Rule, sub *logic.Substitution) bool {
	return r.CoveringSubs(x, sub).Len() > 0
}

// Contradicts reports whether some prematching substitution fails to
// postmatch: the rule fires on the example's state but predicts the wrong
// effects.
func (r *Rule) Contradicts(x *Rule) bool {
	for _, sub := range r.PrematchingSubs(x, nil).Slice() {
		if !r.Postmatches(x, sub) {
			return true
		}
	}
	return false
}
