package logic

import (
	"fmt"
	"strings"

	"github.com/cognicore/actlearn/pkg/actlearn/internalerr"
)

// Meta-predicate names every domain carries, synthesised when absent.
const (
	ResetPredName      = "reset"
	DeletePredName     = "delete"
	RemoveFactPredName = "remove-fact"
)

// IsMetaPredName reports whether the name is one of the reserved
// meta-predicates.
func IsMetaPredName(name string) bool {
	return name == ResetPredName || name == DeletePredName || name == RemoveFactPredName
}

// Domain holds the vocabulary of a planning domain: types, predicates,
// constants and action schemas, plus the three meta-actions the explorer
// relies on.
type Domain struct {
	Types      []*Type
	Predicates []Predicate
	Constants  []Term
	Actions    []Action

	ResetAction      Action
	DeleteAction     Action
	RemoveFactAction Action

	ResetState   *State
	RemovedFacts LiteralSet
}

// NewDomain builds a domain, synthesising the reset, delete and
// remove-fact meta-predicates when the caller did not declare them.
func NewDomain(types []*Type, preds []Predicate, consts []Term, actions []Action) *Domain {
	d := &Domain{
		Types:        types,
		Constants:    consts,
		Actions:      actions,
		RemovedFacts: NewLiteralSet(),
	}

	var resetPred, deletePred, removeFactPred Predicate
	for _, p := range preds {
		switch p.Name {
		case ResetPredName:
			resetPred = p
		case DeletePredName:
			deletePred = p
		case RemoveFactPredName:
			removeFactPred = p
		}
		d.Predicates = append(d.Predicates, p)
	}

	if resetPred.Zero() {
		resetPred = Predicate{Name: ResetPredName, Arity: 0}
		d.Predicates = append(d.Predicates, resetPred)
	}
	if deletePred.Zero() {
		deletePred = Predicate{Name: DeletePredName, Arity: 1}
		d.Predicates = append(d.Predicates, deletePred)
	}
	if removeFactPred.Zero() {
		removeFactPred = Predicate{Name: RemoveFactPredName, Arity: 1}
		d.Predicates = append(d.Predicates, removeFactPred)
	}

	obj := Var("obj")
	d.ResetAction = NewAction(resetPred.Lit(), nil, nil, nil, nil)
	d.DeleteAction = NewAction(deletePred.Lit(obj), nil, nil, nil, nil)
	d.RemoveFactAction = NewAction(removeFactPred.Lit(obj), nil, nil, nil, nil)

	return d
}

// DeletePred returns the delete meta-predicate.
func (d *Domain) DeletePred() Predicate {
	return d.DeleteAction.ActionLiteral.Pred
}

// GetActions returns the schemas; with meta set, the three meta-actions are
// appended (the set offered to the learner).
func (d *Domain) GetActions(meta bool) []Action {
	if !meta {
		return d.Actions
	}
	out := make([]Action, 0, len(d.Actions)+3)
	out = append(out, d.Actions...)
	return append(out, d.ResetAction, d.DeleteAction, d.RemoveFactAction)
}

// GetActionLiterals returns the distinct action literals.
func (d *Domain) GetActionLiterals(meta bool) LiteralSet {
	out := NewLiteralSet()
	for _, a := range d.GetActions(meta) {
		out.Add(a.ActionLiteral)
	}
	return out
}

// GetPredicates returns the declared predicates.
func (d *Domain) GetPredicates() []Predicate {
	return d.Predicates
}

// GetConstants returns the domain constants.
func (d *Domain) GetConstants() []Term {
	return d.Constants
}

// GetTypes returns the declared types.
func (d *Domain) GetTypes() []*Type {
	return d.Types
}

// GetPredByName looks up a predicate; the zero predicate when unknown.
func (d *Domain) GetPredByName(name string) Predicate {
	for _, p := range d.Predicates {
		if p.Name == name {
			return p
		}
	}
	return Predicate{}
}

// GetConstantByName looks up a constant.
func (d *Domain) GetConstantByName(name string) (Term, bool) {
	for _, c := range d.Constants {
		if c.Name == name {
			return c, true
		}
	}
	return Term{}, false
}

// GetTypeByName looks up a type; nil when unknown.
func (d *Domain) GetTypeByName(name string) *Type {
	for _, t := range d.Types {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// GetActionPredByName looks up an action predicate, meta-actions included.
func (d *Domain) GetActionPredByName(name string) Predicate {
	switch name {
	case d.ResetAction.ActionLiteral.Pred.Name:
		return d.ResetAction.ActionLiteral.Pred
	case d.DeleteAction.ActionLiteral.Pred.Name:
		return d.DeleteAction.ActionLiteral.Pred
	case d.RemoveFactAction.ActionLiteral.Pred.Name:
		return d.RemoveFactAction.ActionLiteral.Pred
	}
	for _, a := range d.Actions {
		if a.ActionLiteral.Pred.Name == name {
			return a.ActionLiteral.Pred
		}
	}
	return Predicate{}
}

// AddType registers a type.
func (d *Domain) AddType(t *Type) {
	d.Types = append(d.Types, t)
}

// AddPredicate registers a predicate.
func (d *Domain) AddPredicate(p Predicate) {
	for _, existing := range d.Predicates {
		if existing.Equal(p) {
			return
		}
	}
	d.Predicates = append(d.Predicates, p)
}

// AddConstant registers a constant.
func (d *Domain) AddConstant(c Term) {
	d.Constants = AppendUniqueTerm(d.Constants, c)
}

// AddAction registers an action schema.
func (d *Domain) AddAction(a Action) {
	d.Actions = append(d.Actions, a)
}

// SetResetState configures the state the reset meta-action restores.
func (d *Domain) SetResetState(s State) {
	clone := s.Clone()
	d.ResetState = &clone
}

// unifyFacts grounds the given facts against the state, extending sub in
// every possible injective way; with truth false the facts must be absent.
func unifyFacts(state State, instances []Term, facts []Literal, sub *Substitution, truth bool) []*Substitution {
	if len(facts) == 0 {
		return []*Substitution{sub}
	}
	fact := facts[len(facts)-1]
	rest := facts[:len(facts)-1]

	var result []*Substitution
	for _, next := range sub.ExpandUncovered(fact.Params, instances, true) {
		found := state.Contains(next.ApplyLiteral(fact))
		if found == truth {
			result = append(result, unifyFacts(state, instances, rest, next, truth)...)
		}
	}
	return result
}

// TryAction attempts to apply the grounded action literal to the state.
// It returns the resulting state and whether the domain authorized the
// action; rejected actions return the state unchanged. Meta-actions are
// handled here: reset restores the configured reset state, delete masks an
// instance until reset, remove-fact transiently removes a fact (and with no
// argument restores everything removed since the last restore).
func (d *Domain) TryAction(state State, instances []Term, actionLiteral Literal, onlyAdd bool) (State, bool) {
	allInsts := append(append([]Term{}, instances...), d.Constants...)

	switch actionLiteral.Pred.Name {
	case d.ResetAction.ActionLiteral.Pred.Name:
		if d.ResetState != nil {
			return d.ResetState.Clone(), true
		}
		return state, false

	case d.DeleteAction.ActionLiteral.Pred.Name:
		if state.Contains(actionLiteral) {
			return state, false
		}
		newState := NewState()
		for _, fact := range state.Facts {
			if !TermIn(fact.Params, actionLiteral.Params[0]) {
				newState.AddFact(fact)
			}
		}
		newState.AddFact(actionLiteral)
		return newState, true

	case d.RemoveFactAction.ActionLiteral.Pred.Name:
		if len(actionLiteral.Params) == 0 {
			newState := state.Clone()
			newState.AddFacts(d.RemovedFacts)
			d.RemovedFacts = NewLiteralSet()
			return newState, true
		}
		toRemove, err := d.ParseLiteral(actionLiteral.Params[0].Name, instances, false)
		if err != nil {
			return state, false
		}
		if state.Contains(toRemove) {
			d.RemovedFacts.Add(toRemove)
		}
		newState := state.Clone()
		newState.RemoveFact(toRemove)
		return newState, true
	}

	for _, p := range actionLiteral.Params {
		if state.Contains(d.DeletePred().Lit(p)) {
			return state, false
		}
	}

	for _, act := range d.Actions {
		if !act.ActionLiteral.Pred.Equal(actionLiteral.Pred) {
			continue
		}

		sub := NewSubstitution()
		valid := true
		for pi, actParam := range act.ActionLiteral.Params {
			litParam := actionLiteral.Params[pi]

			if !TypeSubsumes(actParam.Type, litParam.Type) {
				valid = false
				break
			}
			if actParam.Equal(litParam) {
				continue
			}
			if _, taken := sub.GetInverse(litParam); taken {
				continue
			}
			sub.Set(actParam, litParam)
		}
		if !valid {
			continue
		}

		positive := unifyFacts(state, allInsts, act.TruePrecond, sub, true)
		if len(positive) == 0 {
			continue
		}
		var all []*Substitution
		for _, pSub := range positive {
			all = append(all, unifyFacts(state, allInsts, act.FalsePrecond, pSub, false)...)
		}
		if len(all) == 0 {
			continue
		}

		applied := all[len(all)-1]

		newState := state.Clone()
		newState.AddFacts(applied.ApplySet(NewLiteralSet(act.Add...)))
		if !onlyAdd {
			newState.RemoveFacts(applied.ApplySet(NewLiteralSet(act.Del...)))
		}
		return newState, true
	}

	return state, false
}

// ParseLiteral parses "pred(a, b)" or "-pred(a b)" against the domain
// vocabulary and the given problem instances. With isAction, the predicate
// is resolved among action predicates instead.
func (d *Domain) ParseLiteral(text string, instances []Term, isAction bool) (Literal, error) {
	allInsts := append(append([]Term{}, instances...), d.Constants...)

	var pred Predicate
	var params []Term
	positive := true
	first := true

	flush := func(token string) error {
		if token == "" {
			return nil
		}
		if first {
			first = false
			if isAction {
				pred = d.GetActionPredByName(token)
			} else {
				pred = d.GetPredByName(token)
			}
			if pred.Zero() {
				return fmt.Errorf("%w: unknown predicate %q", internalerr.ErrParse, token)
			}
			return nil
		}
		for _, inst := range allInsts {
			if inst.Name == token {
				params = append(params, inst)
				return nil
			}
		}
		return fmt.Errorf("%w: unknown object %q", internalerr.ErrParse, token)
	}

	var token strings.Builder
	for _, c := range text {
		switch c {
		case ' ', '(', ')', ',':
			if err := flush(token.String()); err != nil {
				return Literal{}, err
			}
			token.Reset()
		case '-':
			if token.Len() == 0 && first {
				positive = false
			} else {
				token.WriteRune(c)
			}
		default:
			token.WriteRune(c)
		}
	}
	if err := flush(token.String()); err != nil {
		return Literal{}, err
	}

	if len(params) != pred.Arity {
		return Literal{}, fmt.Errorf("%w: predicate %s requires %d arguments, got %d",
			internalerr.ErrParse, pred.Name, pred.Arity, len(params))
	}

	return Literal{Pred: pred, Params: params, Positive: positive}, nil
}

// Problem is a domain instantiated with objects, an initial state and a
// goal, plus optional headstart actions.
type Problem struct {
	Domain           *Domain
	Instances        []Term
	InitialState     State
	Goal             Goal
	HeadstartActions []Literal
}

// GetInstByName resolves a name among constants then instances.
func (p *Problem) GetInstByName(name string) (Term, bool) {
	if c, ok := p.Domain.GetConstantByName(name); ok {
		return c, true
	}
	for _, inst := range p.Instances {
		if inst.Name == name {
			return inst, true
		}
	}
	return Term{}, false
}

// FilterDeleted keeps the terms not currently masked by the delete
// meta-action in the state.
func FilterDeleted(terms []Term, state State, deletePred Predicate) []Term {
	var out []Term
	for _, t := range terms {
		if !state.Contains(deletePred.Lit(t)) {
			out = append(out, t)
		}
	}
	return out
}
