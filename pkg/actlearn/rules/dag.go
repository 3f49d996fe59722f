package rules

import "github.com/cognicore/actlearn/pkg/actlearn/logic"

// InsertParent adds a parent to the generalisation DAG.
func (r *Rule) InsertParent(parent *Rule) {
	for _, p := range r.Parents {
		if p == parent {
			return
		}
	}
	r.Parents = append(r.Parents, parent)
}

// RemoveParentRecursive severs the parent from the whole ancestor set of
// the rule, used when a counter-example is specialised away.
func (r *Rule) RemoveParentRecursive(parent *Rule) {
	kept := r.Parents[:0]
	for _, p := range r.Parents {
		if p != parent {
			kept = append(kept, p)
		}
	}
	r.Parents = kept

	for _, p := range r.Parents {
		p.RemoveParentRecursive(parent)
	}
}

// ReachableFrom reports whether target is reachable through the parent
// DAG, the self-parenting check of the revision loop.
func (r *Rule) ReachableFrom(target *Rule) bool {
	for _, p := range r.Parents {
		if p == target || p.ReachableFrom(target) {
			return true
		}
	}
	return false
}

// GeneralityLevel is 1 plus the maximum parent generality; leaves (raw
// examples) are level 0.
func (r *Rule) GeneralityLevel() int {
	maxGenerality := 0
	for _, p := range r.Parents {
		if g := p.GeneralityLevel() + 1; g > maxGenerality {
			maxGenerality = g
		}
	}
	return maxGenerality
}

// CountLeaves counts the example leaves under the rule.
func (r *Rule) CountLeaves() int {
	if len(r.Parents) == 0 {
		return 1
	}
	sum := 0
	for _, p := range r.Parents {
		sum += p.CountLeaves()
	}
	return sum
}

// MaxLeafSimilarity returns the best similarity between the state and any
// leaf example's precondition state.
func (r *Rule) MaxLeafSimilarity(state logic.State) float64 {
	if len(r.Parents) == 0 {
		return logic.Similarity(state, logic.StateFromSet(r.Preconditions))
	}
	maxSim := 0.0
	for _, p := range r.Parents {
		if sim := p.MaxLeafSimilarity(state); sim > maxSim {
			maxSim = sim
		}
	}
	return maxSim
}

// LeastGeneralRuleCovering walks the sub-DAG and returns the covering node
// of minimum generality level, or nil. Ties keep the first found in parent
// insertion order.
func (r *Rule) LeastGeneralRuleCovering(example *Rule) *Rule {
	var result *Rule
	if r.Covers(example, nil) {
		result = r
	}

	minGenerality := -1
	for _, p := range r.Parents {
		lgr := p.LeastGeneralRuleCovering(example)
		if lgr == nil {
			continue
		}
		genLevel := lgr.GeneralityLevel()
		if minGenerality > genLevel || minGenerality == -1 {
			minGenerality = genLevel
			result = lgr
		}
	}

	return result
}
