package rules

import (
	"math/rand"

	"github.com/cognicore/actlearn/internal/randx"
	"github.com/cognicore/actlearn/pkg/actlearn/logic"
)

// GenState carries the growing substitutions and minted variables of a
// generalisation in progress: SubR maps generalised literals back onto the
// rule, SubX onto the example.
type GenState struct {
	SubR    *logic.Substitution
	SubX    *logic.Substitution
	GenVars logic.TermSet
}

// NewGenState creates an empty generalisation state.
func NewGenState() *GenState {
	return &GenState{
		SubR:    logic.NewSubstitution(),
		SubX:    logic.NewSubstitution(),
		GenVars: logic.NewTermSet(),
	}
}

// Clone copies the state.
func (g *GenState) Clone() *GenState {
	return &GenState{
		SubR:    g.SubR.Clone(),
		SubX:    g.SubX.Clone(),
		GenVars: g.GenVars.Clone(),
	}
}

func (g *GenState) commit(other *GenState) {
	g.SubR = other.SubR
	g.SubX = other.SubX
	g.GenVars = other.GenVars
}

// GeneralizeLiteralsOI computes the most specific single literal g with
// extended substitutions such that SubR(g) = l1 and SubX(g) = l2 under
// Object Identity. The state is only advanced on success.
func (r *Rule) GeneralizeLiteralsOI(l1, l2 logic.Literal, gs *GenState) (logic.Literal, bool) {
	if !logic.Compatible(l1, l2) {
		return logic.Literal{}, false
	}

	tmp := gs.Clone()
	params := make([]logic.Term, 0, len(l1.Params))

	for i := range l1.Params {
		term1 := l1.Params[i]
		term2 := l2.Params[i]
		genTerm1, genTerm2 := term1, term2

		invTerm1, haveInv1 := tmp.SubR.GetInverse(term1)
		if haveInv1 {
			genTerm1 = invTerm1
		}
		invTerm2, haveInv2 := tmp.SubX.GetInverse(term2)
		if haveInv2 {
			genTerm2 = invTerm2
		}

		if genTerm1.Equal(genTerm2) {
			if !genTerm1.IsVariable() {
				v := r.MakeNewVar(tmp.GenVars, term1)
				params = append(params, v)
				tmp.SubR.Set(v, term1)
				tmp.SubX.Set(v, term2)
			} else {
				params = append(params, genTerm1)
			}
			continue
		}

		switch {
		case (haveInv1 && invTerm1.Equal(term1)) || (haveInv2 && invTerm2.Equal(term2)):
			return logic.Literal{}, false

		case genTerm1.IsVariable() && genTerm2.IsVariable():
			return logic.Literal{}, false

		case genTerm1.IsVariable():
			if _, bound := tmp.SubX.Get(genTerm1); bound {
				return logic.Literal{}, false
			}
			params = append(params, genTerm1)
			if _, ok := tmp.SubR.Get(genTerm1); !ok {
				tmp.SubR.Set(genTerm1, genTerm1)
			}
			tmp.SubX.Set(genTerm1, term2)

		case genTerm2.IsVariable():
			if _, bound := tmp.SubR.Get(genTerm2); bound {
				return logic.Literal{}, false
			}
			params = append(params, genTerm2)
			if _, ok := tmp.SubX.Get(genTerm2); !ok {
				tmp.SubX.Set(genTerm2, genTerm2)
			}
			tmp.SubR.Set(genTerm2, term1)

		default:
			v := r.MakeNewVar(tmp.GenVars, term1)
			params = append(params, v)
			tmp.SubR.Set(v, term1)
			tmp.SubX.Set(v, term2)
		}
	}

	gs.commit(tmp)
	return logic.Literal{Pred: l1.Pred, Params: params, Positive: l1.Positive}, true
}

// Selection draws a rule literal and a compatible example literal, runs
// LIT-GEN-OI, and commits the first choice under which the tentative
// generalised rule still prematches the example. It returns the chosen
// literals; on failure chosenLr is the last rule literal tried, so the
// caller can drop it.
func (r *Rule) Selection(lr, lx logic.LiteralSet, x *Rule, gs *GenState, genLits logic.LiteralSet,
	rng *rand.Rand) (chosenLr, chosenLx logic.Literal, ok bool) {

	invSubR := gs.SubR.Inverse()
	genAct := invSubR.ApplyLiteral(r.ActionLiteral)
	genAdd := invSubR.ApplySet(r.Add)
	genDel := invSubR.ApplySet(r.Del)

	for _, candidateLr := range randx.Shuffle(rng, lr.Slice()) {
		chosenLr = candidateLr

		var compatible []logic.Literal
		for _, l := range lx.Slice() {
			if logic.Compatible(candidateLr, l) {
				compatible = append(compatible, l)
			}
		}

		for _, candidateLx := range randx.Shuffle(rng, compatible) {
			tmp := gs.Clone()

			genLit, generalized := r.GeneralizeLiteralsOI(candidateLr, candidateLx, tmp)
			if !generalized {
				continue
			}

			newGenLits := genLits.Clone()
			newGenLits.Add(genLit)
			candidate := NewRule(newGenLits, genAct, genAdd, genDel, r.Parents, r.StartPu, false)

			if candidate.Prematches(x, tmp.SubX) {
				genLits.Add(genLit)
				gs.commit(tmp)
				return candidateLr, candidateLx, true
			}
		}
	}

	return chosenLr, logic.Literal{}, false
}

// AnyGeneralization runs SELECTION until the rule literal pool is
// exhausted (UNE-GEN-OI). A failed selection drops the rule literal only,
// giving up that precondition.
func (r *Rule) AnyGeneralization(lr, lx logic.LiteralSet, x *Rule, gs *GenState, rng *rand.Rand) logic.LiteralSet {
	lr = lr.Clone()
	lx = lx.Clone()
	genLits := logic.NewLiteralSet()

	for lr.Len() > 0 && lx.Len() > 0 {
		chosenLr, chosenLx, ok := r.Selection(lr, lx, x, gs, genLits, rng)
		if ok {
			lx.Remove(chosenLx)
		}
		lr.Remove(chosenLr)
	}

	return genLits
}

// AnyGeneralizationOf generalises the rule's preconditions against the
// example's, both pulled back through the current substitutions.
func (r *Rule) AnyGeneralizationOf(x *Rule, gs *GenState, rng *rand.Rand) logic.LiteralSet {
	lr := gs.SubR.Inverse().ApplySet(r.Preconditions)
	lx := gs.SubX.Inverse().ApplySet(x.Preconditions)
	return r.AnyGeneralization(lr, lx, x, gs, rng)
}

// exactGenLxChoice tries every compatible example literal for chosenLr in
// shuffled order, recursing over the remaining rule literals. Unlike
// SELECTION, a failed leaf fails the whole branch.
func (r *Rule) exactGenLxChoice(chosenLr logic.Literal, lr, lx logic.LiteralSet,
	gs *GenState, genLits logic.LiteralSet, rng *rand.Rand) bool {

	var compatible []logic.Literal
	for _, l := range randx.Shuffle(rng, lx.Slice()) {
		if logic.Compatible(l, chosenLr) {
			compatible = append(compatible, l)
		}
	}

	for _, chosenLx := range compatible {
		tmp := gs.Clone()
		tmpLx := lx.Clone()
		tmpLx.Remove(chosenLx)

		genLit, generalized := r.GeneralizeLiteralsOI(chosenLr, chosenLx, tmp)
		if !generalized {
			continue
		}

		tmpGenLits := genLits.Clone()
		tmpGenLits.Add(genLit)

		if r.exactGenLrChoice(lr, tmpLx, tmp, tmpGenLits, rng) {
			for k, l := range tmpGenLits {
				genLits[k] = l
			}
			gs.commit(tmp)
			return true
		}
	}

	return false
}

// exactGenLrChoice is the rule-literal side of the exact generalisation
// DFS: shuffle the pool, pick a literal, and require the rest of the tree
// to succeed.
func (r *Rule) exactGenLrChoice(lr, lx logic.LiteralSet, gs *GenState, genLits logic.LiteralSet, rng *rand.Rand) bool {
	if lr.Len() == 0 {
		return true
	}

	for _, chosenLr := range randx.Shuffle(rng, lr.Slice()) {
		tmp := gs.Clone()
		tmpLr := lr.Clone()
		tmpLr.Remove(chosenLr)
		tmpGenLits := genLits.Clone()

		if r.exactGenLxChoice(chosenLr, tmpLr, lx, tmp, tmpGenLits, rng) {
			for k, l := range tmpGenLits {
				genLits[k] = l
			}
			gs.commit(tmp)
			return true
		}
	}

	return false
}

// PostGeneralizes attempts POST-GENERALIZATION: effect counts must match,
// the action literals generalise via LIT-GEN-OI, the effects via the exact
// DFS, and the substitutions are closed over every action-literal and
// effect parameter.
func (r *Rule) PostGeneralizes(x *Rule, gs *GenState, rng *rand.Rand) bool {
	if r.Add.Len() != x.Add.Len() || r.Del.Len() != x.Del.Len() {
		return false
	}

	if _, ok := r.GeneralizeLiteralsOI(r.ActionLiteral, x.ActionLiteral, gs); !ok {
		return false
	}

	effGen := logic.NewLiteralSet()
	success := r.exactGenLrChoice(r.Add.Union(r.Del), x.Add.Union(x.Del), gs, effGen, rng)

	gs.SubR.CleanConstants()

	closeOver := func(sub *logic.Substitution, actionLiteral logic.Literal, add, del logic.LiteralSet) {
		for _, p := range actionLiteral.Params {
			if _, ok := sub.GetInverse(p); !ok {
				sub.Set(p, p)
			}
		}
		for _, group := range []logic.LiteralSet{add, del} {
			for _, eff := range group {
				for _, p := range eff.Params {
					if _, ok := sub.GetInverse(p); !ok {
						sub.Set(p, p)
					}
				}
			}
		}
	}
	closeOver(gs.SubR, r.ActionLiteral, r.Add, r.Del)
	closeOver(gs.SubX, x.ActionLiteral, x.Add, x.Del)

	return success
}

// MakeUseOfVariables returns a copy of the rule with every constant
// replaced by a fresh variable, parented on the original.
func (r *Rule) MakeUseOfVariables() *Rule {
	genVars := logic.NewTermSet()
	genSub := logic.NewSubstitution()

	for _, p := range r.ActionLiteral.Params {
		if !p.IsVariable() {
			genSub.Set(p, r.MakeNewVar(genVars, p))
		}
	}
	newActionLit := genSub.ApplyLiteral(r.ActionLiteral)

	generalizeSet := func(lits logic.LiteralSet) logic.LiteralSet {
		out := logic.NewLiteralSet()
		for _, lit := range lits.Slice() {
			for _, p := range lit.Params {
				if !p.IsVariable() {
					if _, ok := genSub.Get(p); !ok {
						genSub.Set(p, r.MakeNewVar(genVars, p))
					}
				}
			}
			out.Add(genSub.ApplyLiteral(lit))
		}
		return out
	}

	newPreconds := generalizeSet(r.Preconditions)
	newAdd := generalizeSet(r.Add)
	newDel := generalizeSet(r.Del)

	return NewRule(newPreconds, newActionLit, newAdd, newDel, []*Rule{r}, r.StartPu, true)
}
