package revise

import (
	"github.com/cognicore/actlearn/pkg/actlearn/logic"
	"github.com/cognicore/actlearn/pkg/actlearn/rules"
)

// DomainFromRules projects the learnt rule set into a planning domain the
// internal planner can consume, keeping the source domain's vocabulary.
func DomainFromRules(initial *logic.Domain, edsRules []*rules.Rule) *logic.Domain {
	var actions []logic.Action
	for _, r := range edsRules {
		actions = append(actions, logic.NewAction(
			r.ActionLiteral,
			r.Preconditions.Slice(),
			nil,
			r.Add.Slice(),
			r.Del.Slice(),
		))
	}

	domain := logic.NewDomain(initial.GetTypes(), initial.GetPredicates(), initial.GetConstants(), actions)
	domain.RemovedFacts = initial.RemovedFacts
	if initial.ResetState != nil {
		domain.SetResetState(*initial.ResetState)
	}
	return domain
}

// VarDistBetweenDomains measures, per reference action, the minimum
// precondition edit distance to a learnt rule with identical effects,
// averaged over the reference actions. Used to score a learnt model
// against the true domain.
func VarDistBetweenDomains(domain *logic.Domain, edsRules []*rules.Rule) float64 {
	actions := domain.GetActions(false)
	if len(actions) == 0 {
		return 0
	}

	total := 0
	for _, act := range actions {
		minDist := 100

		for _, rule := range edsRules {
			if !rule.ActionLiteral.Pred.Equal(act.ActionLiteral.Pred) {
				continue
			}

			sigma := logic.NewSubstitution()
			for pi, sourceParam := range act.ActionLiteral.Params {
				if sourceParam.IsVariable() {
					sigma.Set(sourceParam, rule.ActionLiteral.Params[pi])
				}
			}

			for _, sub := range sigma.ExpandUncovered(act.Parameters, rule.Parameters, true) {
				invSub := sub.Inverse()

				if !sameEffects(act, rule, sub, invSub) {
					continue
				}

				dist := 0
				for _, precond := range act.TruePrecond {
					if !rule.Preconditions.Contains(sub.ApplyLiteral(precond)) {
						dist++
					}
				}
				for _, precond := range rule.Preconditions {
					if !literalIn(act.TruePrecond, invSub.ApplyLiteral(precond)) {
						dist++
					}
				}

				if dist < minDist {
					minDist = dist
				}
			}
		}

		total += minDist
	}

	return float64(total) / float64(len(actions))
}

func sameEffects(act logic.Action, rule *rules.Rule, sub, invSub *logic.Substitution) bool {
	for _, eff := range act.Add {
		if !rule.Add.Contains(sub.ApplyLiteral(eff)) {
			return false
		}
	}
	for _, eff := range act.Del {
		if !rule.Del.Contains(sub.ApplyLiteral(eff).Neg()) && !rule.Del.Contains(sub.ApplyLiteral(eff)) {
			return false
		}
	}
	for _, eff := range rule.Add {
		if !literalIn(act.Add, invSub.ApplyLiteral(eff)) {
			return false
		}
	}
	for _, eff := range rule.Del {
		neg := invSub.ApplyLiteral(eff)
		if !literalIn(act.Del, neg) && !literalIn(act.Del, neg.Abs()) {
			return false
		}
	}
	return true
}

func literalIn(lits []logic.Literal, l logic.Literal) bool {
	for _, candidate := range lits {
		if candidate.Equal(l) {
			return true
		}
	}
	return false
}
