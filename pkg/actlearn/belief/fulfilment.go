package belief

import (
	"math/rand"
	"sort"

	"github.com/cognicore/actlearn/internal/randx"
	"github.com/cognicore/actlearn/pkg/actlearn/logic"
	"github.com/cognicore/actlearn/pkg/actlearn/rules"
)

// GenerateRandomSubs samples up to maxRandomSubs substitutions consistent
// with binding the rule's action literal to action. Effect constants are
// generalised through rho; the remaining variables are mapped to instances
// in order of decreasing necessity impact, weighting instances that
// falsify fewer high-necessity preconditions more heavily. When the full
// substitution space is smaller than the budget it is enumerated instead.
// Sampled substitutions are added to subs.
func GenerateRandomSubs(r *rules.Rule, state logic.State, action logic.Literal, instances []logic.Term,
	rho, sigma *logic.Substitution, maxRandomSubs int, subs logic.SubstitutionSet, rng *rand.Rand) {

	genVars := logic.NewTermSet()
	varsToMap := logic.NewTermSet()
	remainConstants := logic.NewTermSet()

	// First, bind the action-literal parameters onto the grounded action.
	preSubbedActLit := sigma.ApplyLiteral(rho.ApplyLiteral(r.ActionLiteral))
	for i, t1 := range preSubbedActLit.Params {
		t2 := action.Params[i]

		if t1.Equal(t2) {
			if t1.Equal(r.ActionLiteral.Params[i]) {
				remainConstants.Add(t1)
			}
			continue
		}

		if _, taken := sigma.GetInverse(t2); taken {
			return
		}

		if t1.IsVariable() {
			sigma.Set(t1, t2)
		} else {
			v := r.MakeNewVar(genVars, t1)
			rho.Set(t1, v)
			sigma.Set(v, t2)
		}
	}

	// Second, collect the effect parameters still to map, generalising
	// constants that are free to vary.
	collectEffect := func(eff logic.Literal) {
		gen := rho.ApplyLiteral(eff)
		for _, param := range gen.Params {
			if sigma.Apply(param).IsVariable() {
				varsToMap.Add(param)
			} else if !param.IsVariable() && !remainConstants.Contains(param) {
				v := r.MakeNewVar(genVars, param)
				rho.Set(param, v)
				varsToMap.Add(v)
			}
		}
	}
	for _, eff := range r.Add.Slice() {
		collectEffect(eff)
	}
	for _, eff := range r.Del.Slice() {
		collectEffect(eff)
	}

	// Third, the remaining rule parameters. Constants that appear neither
	// in the action literal nor in the effects are left as constants: only
	// a few substitutions get sampled, so generalisation is saved for the
	// terms that matter most.
	for _, p := range r.Parameters {
		gen := rho.Apply(p)
		if !sigma.Apply(gen).Equal(gen) {
			continue
		}
		if remainConstants.Contains(gen) {
			continue
		}
		if gen.IsVariable() {
			varsToMap.Add(gen)
		}
	}

	// Fourth, removed-precondition parameters that still need a value.
	for _, remPrec := range r.RemovedPreconditions.Slice() {
		for _, param := range remPrec.Params {
			gen := rho.Apply(param)
			if !sigma.Apply(gen).Equal(gen) {
				continue
			}
			if remainConstants.Contains(gen) {
				continue
			}
			if gen.IsVariable() {
				varsToMap.Add(gen)
			}
		}
	}

	// Fifth, the instances still assignable.
	available := logic.NewTermSet()
	for _, inst := range instances {
		if remainConstants.Contains(inst) {
			continue
		}
		if _, taken := sigma.GetInverse(inst); taken {
			continue
		}
		available.Add(inst)
	}

	maxSubs := 1
	for i := 0; i < varsToMap.Len(); i++ {
		n := available.Len() - i
		if n < 0 {
			n = 0
		}
		maxSubs *= n
	}

	if maxSubs <= maxRandomSubs {
		for _, sig := range sigma.ExpandUncovered(varsToMap.Slice(), available.Slice(), true) {
			subs.Add(rho.Merge(sig))
		}
		return
	}

	// Rank the variables by necessity impact: the summed necessities of the
	// preconditions they appear in, plus the necessity of the constant they
	// generalise, if any.
	type rankedVar struct {
		impact float64
		term   logic.Term
	}
	var ranked []rankedVar
	for _, v := range varsToMap.Slice() {
		impact := 0.0
		for _, prec := range r.Preconditions.Slice() {
			if logic.TermIn(rho.ApplyLiteral(prec).Params, v) {
				impact += r.PrecondNecessities.Value(prec)
			}
		}
		if original, ok := rho.GetInverse(v); ok && !original.IsVariable() {
			impact += r.ConstNecessities.Value(original)
		}
		ranked = append(ranked, rankedVar{impact: impact, term: v})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].impact != ranked[j].impact {
			return ranked[i].impact > ranked[j].impact
		}
		return ranked[i].term.Less(ranked[j].term)
	})

	for i := subs.Len(); i < maxRandomSubs; i++ {
		randomSigma := sigma.Clone()
		instancesLeft := available.Clone()

		for _, rv := range ranked {
			if instancesLeft.Len() == 0 {
				break
			}

			candidates := instancesLeft.Slice()
			losses := make([]float64, len(candidates))
			maxLoss := 0.0

			for ci, inst := range candidates {
				loss := 0.0

				tempSigma := randomSigma.Clone()
				tempSigma.Set(rv.term, inst)

				for _, prec := range r.Preconditions.Slice() {
					subbed := tempSigma.ApplyLiteral(rho.ApplyLiteral(prec))

					if subbed.Grounded() {
						if !state.Contains(subbed) {
							loss += r.PrecondNecessities.Value(prec)
						}
						continue
					}

					// A non-grounded precondition only counts as lost when
					// no matching fact can still be reached with the
					// remaining instances.
					found := false
					for _, q := range state.Query(subbed) {
						valid := true
						for pi, sp := range subbed.Params {
							if !sp.IsVariable() {
								continue
							}
							if instancesLeft.Contains(q.Params[pi]) {
								continue
							}
							valid = false
							break
						}
						if valid {
							found = true
							break
						}
					}
					if !found {
						loss += r.PrecondNecessities.Value(prec)
					}
				}

				original, hasOriginal := rho.GetInverse(rv.term)
				if hasOriginal && !original.IsVariable() && !original.Equal(inst) {
					loss += r.ConstNecessities.Value(original)
				}
				if (!hasOriginal || !original.Equal(inst)) && r.ConstNecessities.Contains(inst) {
					loss += r.ConstNecessities.Value(inst)
				}

				losses[ci] = loss
				if loss > maxLoss {
					maxLoss = loss
				}
			}

			var selected logic.Term
			if maxLoss == 0 {
				selected = randx.Pick(rng, candidates)
			} else {
				maxLoss *= 2.0
				weights := make([]float64, len(losses))
				for wi, loss := range losses {
					weights[wi] = maxLoss - loss
				}
				selected = randx.PickWeighted(rng, candidates, weights)
			}

			randomSigma.Set(rv.term, selected)
			instancesLeft.Remove(selected)
		}

		subs.Add(rho.Merge(randomSigma))
	}
}

// unverifiedFor collects the preconditions not holding and the constants
// not preserved under the substitution.
func unverifiedFor(r *rules.Rule, state logic.State, sub *logic.Substitution) Unverified {
	var u Unverified
	for _, e := range r.PrecondNecessities.Entries() {
		if !state.Contains(sub.ApplyLiteral(e.Lit)) {
			u.Preconds = append(u.Preconds, e.Lit)
		}
	}
	for _, e := range r.ConstNecessities.Entries() {
		moved := !sub.Apply(e.Term).Equal(e.Term)
		if !moved {
			if inv, ok := sub.GetInverse(e.Term); ok && !inv.Equal(e.Term) {
				moved = true
			}
		}
		if moved {
			u.Consts = append(u.Consts, e.Term)
		}
	}
	return u
}

// ComputeCdProb builds the unverified clauses of each substitution and
// folds them through CdProb.
func ComputeCdProb(r *rules.Rule, state logic.State, action logic.Literal, subs []*logic.Substitution) float64 {
	if !logic.Compatible(r.ActionLiteral, action) {
		return 1.0
	}

	var cds []Unverified
	for _, sub := range subs {
		cds = append(cds, unverifiedFor(r, state, sub))
	}

	return CdProb(r.PrecondNecessities, r.ConstNecessities, dedupClauses(cds))
}

// FulfilmentProbability estimates the probability that the rule would fire
// with the observed binding at (state, action): one minus the cd
// probability over the prematching and sampled substitutions. It also
// reports whether the rule prematches and the substitutions considered.
func FulfilmentProbability(r *rules.Rule, state logic.State, action logic.Literal, instances []logic.Term,
	rng *rand.Rand) (prob float64, prematches bool, subs logic.SubstitutionSet) {

	example := rules.RuleFromTrace(logic.Trace{State: state, Action: action, Authorized: true, NewState: state},
		r.StartPu, false)
	subs = r.PrematchingSubs(example, nil)
	prematches = subs.Len() > 0

	GenerateRandomSubs(r, state, action, instances,
		logic.NewSubstitution(), logic.NewSubstitution(), SubsForFulfilment, subs, rng)

	return 1.0 - ComputeCdProb(r, state, action, subs.Slice()), prematches, subs
}

// ProcessEffects samples substitutions for the rule at (state, action) and
// splits their unverified clauses into those reproducing the observed
// effects exactly (sigmaPos) and those yielding the wrong effects
// (sigmaNeg).
func ProcessEffects(r *rules.Rule, state logic.State, action logic.Literal, effects logic.State,
	instances []logic.Term, rng *rand.Rand) (sigmaPos, sigmaNeg []Unverified) {

	subs := logic.NewSubstitutionSet()
	GenerateRandomSubs(r, state, action, instances,
		logic.NewSubstitution(), logic.NewSubstitution(), SubsForCorroboration, subs, rng)

	for _, sub := range subs.Slice() {
		disj := unverifiedFor(r, state, sub)

		producedEffects := logic.StateFromSet(sub.ApplySet(r.Add.Union(r.Del)))
		if action.Equal(sub.ApplyLiteral(r.ActionLiteral)) && effects.Equal(producedEffects) {
			sigmaPos = append(sigmaPos, disj)
		} else {
			sigmaNeg = append(sigmaNeg, disj)
		}
	}

	return dedupClauses(sigmaPos), dedupClauses(sigmaNeg)
}
