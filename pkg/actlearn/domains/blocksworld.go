package domains

import (
	"fmt"
	"math/rand"

	"github.com/cognicore/actlearn/pkg/actlearn/logic"
)

// Blocksworld builds the classic blocksworld: blocks stacked on floor
// positions, one move action. Floor positions f1..fPiles are constants.
func Blocksworld(piles int) *logic.Domain {
	onPred := logic.Predicate{Name: "on", Arity: 2}
	clearPred := logic.Predicate{Name: "clear", Arity: 1}
	blockPred := logic.Predicate{Name: "block", Arity: 1}

	var consts []logic.Term
	for i := 1; i <= piles; i++ {
		consts = append(consts, logic.Const(fmt.Sprintf("f%d", i)))
	}

	x := logic.Var("X")
	y := logic.Var("Y")
	z := logic.Var("Z")

	movePred := logic.Predicate{Name: "move", Arity: 2}
	move := logic.NewAction(
		movePred.Lit(x, y),
		[]logic.Literal{clearPred.Lit(x), clearPred.Lit(y), onPred.Lit(x, z), blockPred.Lit(x)},
		nil,
		[]logic.Literal{onPred.Lit(x, y), clearPred.Lit(z)},
		[]logic.Literal{onPred.Lit(x, z), clearPred.Lit(y)},
	)

	return logic.NewDomain(nil,
		[]logic.Predicate{onPred, clearPred, blockPred},
		consts,
		[]logic.Action{move})
}

// BlocksworldInstances names the blocks a..z of a problem.
func BlocksworldInstances(blocks int) []logic.Term {
	var out []logic.Term
	for i := 0; i < blocks; i++ {
		out = append(out, logic.Const(string(rune('a'+i))))
	}
	return out
}

// RandomBlocksworldState stacks the blocks onto random piles: every block
// sits on a floor position or another block, tops are clear.
func RandomBlocksworldState(rng *rand.Rand, domain *logic.Domain, blocks []logic.Term) logic.State {
	onPred := domain.GetPredByName("on")
	clearPred := domain.GetPredByName("clear")
	blockPred := domain.GetPredByName("block")

	piles := domain.GetConstants()
	tops := append([]logic.Term{}, piles...)

	state := logic.NewState()

	for _, b := range blocks {
		idx := rng.Intn(len(tops))
		state.AddFact(onPred.Lit(b, tops[idx]))
		tops[idx] = b
		state.AddFact(blockPred.Lit(b))
	}

	for _, top := range tops {
		state.AddFact(clearPred.Lit(top))
	}

	return state
}
