package rules

import "github.com/cognicore/actlearn/pkg/actlearn/logic"

// SigmaTheta pairs the action-literal binding sigma with a grounding theta
// of the remaining rule parameters; ST is their merge.
type SigmaTheta struct {
	Sigma *logic.Substitution
	Theta *logic.Substitution
	ST    *logic.Substitution
}

// NewSigmaTheta merges the two substitutions.
func NewSigmaTheta(sigma, theta *logic.Substitution) SigmaTheta {
	return SigmaTheta{Sigma: sigma, Theta: theta, ST: sigma.Merge(theta)}
}

// Applies enumerates the groundings of the rule whose preconditions all
// hold in the state, for the given grounded action literal. With onlyFirst
// the search stops at the first valid grounding.
func (r *Rule) Applies(state logic.State, instances []logic.Term, actionLiteral logic.Literal, onlyFirst bool) []SigmaTheta {
	if !r.ActionLiteral.Equal(actionLiteral) {
		return nil
	}

	sigma := logic.SubstitutionFromPairs(r.ActionLiteral.Params, actionLiteral.Params, true)
	uncovered := sigma.Uncovered(r.Parameters)
	thetas := logic.NewSubstitution().ExpandUncovered(uncovered, instances, true)

	var validated []SigmaTheta
	for _, theta := range thetas {
		st := NewSigmaTheta(sigma, theta)

		verified := true
		for _, precond := range r.Preconditions {
			if !state.Contains(st.ST.ApplyLiteral(precond)) {
				verified = false
				break
			}
		}

		if verified {
			validated = append(validated, st)
			if onlyFirst {
				break
			}
		}
	}

	return validated
}

// Apply executes the rule's effects on the state under the grounding.
func (r *Rule) Apply(state logic.State, st SigmaTheta) logic.State {
	newState := state.Clone()
	newState.AddFacts(st.ST.ApplySet(r.Add))
	newState.RemoveFacts(st.ST.ApplySet(r.Del))
	return newState
}
