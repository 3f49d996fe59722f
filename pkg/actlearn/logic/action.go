package logic

import "strings"

// Action is a STRIPS-style schema: an action literal with positive and
// negative preconditions, add effects and delete effects, all sharing
// variables.
type Action struct {
	ActionLiteral Literal
	TruePrecond   []Literal
	FalsePrecond  []Literal
	Add           []Literal
	Del           []Literal
	Parameters    []Term
}

// NewAction builds a schema and collects its distinct parameters.
func NewAction(actionLiteral Literal, truePrecond, falsePrecond, add, del []Literal) Action {
	a := Action{
		ActionLiteral: actionLiteral,
		TruePrecond:   truePrecond,
		FalsePrecond:  falsePrecond,
		Add:           add,
		Del:           del,
	}
	a.initParams()
	return a
}

func (a *Action) initParams() {
	a.Parameters = nil
	for _, p := range a.ActionLiteral.Params {
		a.Parameters = AppendUniqueTerm(a.Parameters, p)
	}
	for _, group := range [][]Literal{a.TruePrecond, a.FalsePrecond, a.Add, a.Del} {
		for _, lit := range group {
			for _, p := range lit.Params {
				a.Parameters = AppendUniqueTerm(a.Parameters, p)
			}
		}
	}
}

// Equal compares schemas structurally.
func (a Action) Equal(other Action) bool {
	if !a.ActionLiteral.Equal(other.ActionLiteral) {
		return false
	}
	groups := [][2][]Literal{
		{a.TruePrecond, other.TruePrecond},
		{a.FalsePrecond, other.FalsePrecond},
		{a.Add, other.Add},
		{a.Del, other.Del},
	}
	for _, g := range groups {
		if len(g[0]) != len(g[1]) {
			return false
		}
		for i := range g[0] {
			if !g[0][i].Equal(g[1][i]) {
				return false
			}
		}
	}
	return true
}

func (a Action) String() string {
	var b strings.Builder
	b.WriteString("action ")
	b.WriteString(a.ActionLiteral.String())
	if len(a.TruePrecond) > 0 {
		b.WriteString(" pre: " + JoinLiterals(", ", a.TruePrecond))
	}
	if len(a.FalsePrecond) > 0 {
		b.WriteString(" pre-not: " + JoinLiterals(", ", a.FalsePrecond))
	}
	if len(a.Add) > 0 {
		b.WriteString(" add: " + JoinLiterals(", ", a.Add))
	}
	if len(a.Del) > 0 {
		b.WriteString(" del: " + JoinLiterals(", ", a.Del))
	}
	return b.String()
}

// Condition pairs a literal with its required truth value.
type Condition struct {
	Lit   Literal
	Truth bool
}

// Ground rewrites the condition's literal through the substitution.
func (c Condition) Ground(sub *Substitution) Condition {
	return Condition{Lit: sub.ApplyLiteral(c.Lit), Truth: c.Truth}
}

// Reached reports whether the grounded condition holds in the state.
// Non-grounded conditions never hold.
func (c Condition) Reached(state State) bool {
	if !c.Lit.Grounded() {
		return false
	}
	return state.Contains(c.Lit) == c.Truth
}

func (c Condition) String() string {
	if c.Truth {
		return c.Lit.String()
	}
	return "!" + c.Lit.String()
}

// InstantiatedAction is a schema paired with the substitution grounding it.
type InstantiatedAction struct {
	Action       Action
	Substitution *Substitution
	Empty        bool
}

// GroundedAction is a schema instantiated through a substitution:
// pre-conditions carry truth values and post-conditions record the effects.
type GroundedAction struct {
	ActionLiteral  Literal
	PreConditions  []Condition
	PostConditions []Condition
}

// GroundAction instantiates the schema with the substitution.
func GroundAction(action Action, sub *Substitution) GroundedAction {
	out := GroundedAction{ActionLiteral: sub.ApplyLiteral(action.ActionLiteral)}
	for _, p := range action.TruePrecond {
		out.PreConditions = append(out.PreConditions, Condition{Lit: sub.ApplyLiteral(p), Truth: true})
	}
	for _, p := range action.FalsePrecond {
		out.PreConditions = append(out.PreConditions, Condition{Lit: sub.ApplyLiteral(p), Truth: false})
	}
	for _, e := range action.Add {
		out.PostConditions = append(out.PostConditions, Condition{Lit: sub.ApplyLiteral(e), Truth: true})
	}
	for _, e := range action.Del {
		out.PostConditions = append(out.PostConditions, Condition{Lit: sub.ApplyLiteral(e), Truth: false})
	}
	return out
}

// Variables collects every variable occurring in the grounded action.
func (g GroundedAction) Variables() []Term {
	var vars []Term
	collect := func(lit Literal) {
		for _, p := range lit.Params {
			if p.IsVariable() {
				vars = AppendUniqueTerm(vars, p)
			}
		}
	}
	collect(g.ActionLiteral)
	for _, c := range g.PreConditions {
		collect(c.Lit)
	}
	for _, c := range g.PostConditions {
		collect(c.Lit)
	}
	return vars
}

func (g GroundedAction) String() string {
	return g.ActionLiteral.String()
}

// Goal is a conjunction of facts to reach and facts to avoid.
type Goal struct {
	TrueFacts  []Literal
	FalseFacts []Literal
}

// Reached reports whether the state satisfies the goal.
func (g Goal) Reached(state State) bool {
	for _, f := range g.TrueFacts {
		if !state.Contains(f) {
			return false
		}
	}
	for _, f := range g.FalseFacts {
		if state.Contains(f) {
			return false
		}
	}
	return true
}

func (g Goal) String() string {
	return "goal: " + JoinLiterals(", ", g.TrueFacts) + " and not " + JoinLiterals(", ", g.FalseFacts)
}

// Trace is one observation: the action attempted in state, whether the
// domain authorized it, and the resulting state.
type Trace struct {
	State      State
	Action     Literal
	Authorized bool
	NewState   State
}

// Equal compares traces componentwise.
func (t Trace) Equal(other Trace) bool {
	return t.State.Equal(other.State) &&
		t.Action.Equal(other.Action) &&
		t.Authorized == other.Authorized &&
		t.NewState.Equal(other.NewState)
}

func (t Trace) String() string {
	status := "illegal"
	if t.Authorized {
		status = "authorized"
	}
	return t.Action.String() + " [" + status + "]"
}
