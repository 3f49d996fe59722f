// Package domains loads planning domains and problems from YAML files and
// ships the built-in blocksworld used by tests and the demo driver.
package domains

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/actlearn/pkg/actlearn/internalerr"
	"github.com/cognicore/actlearn/pkg/actlearn/logic"
)

// TypeSpec declares one type.
type TypeSpec struct {
	Name   string `yaml:"name"`
	Parent string `yaml:"parent"`
}

// TermSpec declares a constant or instance.
type TermSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// PredicateSpec declares one predicate.
type PredicateSpec struct {
	Name  string `yaml:"name"`
	Arity int    `yaml:"arity"`
}

// ActionSpec declares one action schema. Parameters are variable names,
// optionally typed as "X:block"; the literal strings reference them.
type ActionSpec struct {
	Name             string   `yaml:"name"`
	Params           []string `yaml:"params"`
	Preconditions    []string `yaml:"preconditions"`
	NegPreconditions []string `yaml:"neg_preconditions"`
	Add              []string `yaml:"add"`
	Del              []string `yaml:"del"`
}

// DomainSpec is the YAML shape of a domain file.
type DomainSpec struct {
	Name       string          `yaml:"name"`
	Types      []TypeSpec      `yaml:"types"`
	Constants  []TermSpec      `yaml:"constants"`
	Predicates []PredicateSpec `yaml:"predicates"`
	Actions    []ActionSpec    `yaml:"actions"`
}

// ProblemSpec is the YAML shape of a problem file.
type ProblemSpec struct {
	Instances []TermSpec `yaml:"instances"`
	Init      []string   `yaml:"init"`
	Goal      struct {
		True  []string `yaml:"true"`
		False []string `yaml:"false"`
	} `yaml:"goal"`
	Headstart []string `yaml:"headstart"`
}

// LoadDomain reads and builds a domain from a YAML file.
func LoadDomain(path string) (*logic.Domain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read domain: %w", err)
	}

	var spec DomainSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse domain: %w", err)
	}

	return BuildDomain(spec)
}

// BuildDomain turns a spec into a domain.
func BuildDomain(spec DomainSpec) (*logic.Domain, error) {
	types := map[string]*logic.Type{}
	var typeList []*logic.Type
	for _, ts := range spec.Types {
		t := logic.NewType(ts.Name, nil)
		types[ts.Name] = t
		typeList = append(typeList, t)
	}
	for _, ts := range spec.Types {
		if ts.Parent == "" {
			continue
		}
		parent, ok := types[ts.Parent]
		if !ok {
			return nil, fmt.Errorf("%w: unknown parent type %q", internalerr.ErrParse, ts.Parent)
		}
		types[ts.Name].Parent = parent
	}

	var consts []logic.Term
	for _, cs := range spec.Constants {
		consts = append(consts, logic.TypedConst(cs.Name, types[cs.Type]))
	}

	var preds []logic.Predicate
	predByName := map[string]logic.Predicate{}
	for _, ps := range spec.Predicates {
		p := logic.Predicate{Name: ps.Name, Arity: ps.Arity}
		preds = append(preds, p)
		predByName[ps.Name] = p
	}

	var actions []logic.Action
	for _, as := range spec.Actions {
		vars := map[string]logic.Term{}
		var params []logic.Term
		for _, raw := range as.Params {
			name, typeName := splitTyped(raw)
			v := logic.TypedVar(name, types[typeName])
			vars[name] = v
			params = append(params, v)
		}

		resolve := func(texts []string) ([]logic.Literal, error) {
			var out []logic.Literal
			for _, text := range texts {
				lit, err := parseSchemaLiteral(text, predByName, vars, consts)
				if err != nil {
					return nil, fmt.Errorf("action %s: %w", as.Name, err)
				}
				out = append(out, lit)
			}
			return out, nil
		}

		preconds, err := resolve(as.Preconditions)
		if err != nil {
			return nil, err
		}
		negPreconds, err := resolve(as.NegPreconditions)
		if err != nil {
			return nil, err
		}
		add, err := resolve(as.Add)
		if err != nil {
			return nil, err
		}
		del, err := resolve(as.Del)
		if err != nil {
			return nil, err
		}

		actionPred := logic.Predicate{Name: as.Name, Arity: len(params)}
		actions = append(actions, logic.NewAction(actionPred.Lit(params...), preconds, negPreconds, add, del))
	}

	return logic.NewDomain(typeList, preds, consts, actions), nil
}

// LoadProblem reads and builds a problem over the given domain.
func LoadProblem(path string, domain *logic.Domain) (*logic.Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read problem: %w", err)
	}

	var spec ProblemSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse problem: %w", err)
	}

	return BuildProblem(spec, domain)
}

// BuildProblem turns a spec into a problem.
func BuildProblem(spec ProblemSpec, domain *logic.Domain) (*logic.Problem, error) {
	var instances []logic.Term
	for _, is := range spec.Instances {
		var t *logic.Type
		if is.Type != "" {
			t = domain.GetTypeByName(is.Type)
			if t == nil {
				return nil, fmt.Errorf("%w: unknown instance type %q", internalerr.ErrParse, is.Type)
			}
		}
		instances = append(instances, logic.TypedConst(is.Name, t))
	}

	initState := logic.NewState()
	for _, text := range spec.Init {
		lit, err := domain.ParseLiteral(text, instances, false)
		if err != nil {
			return nil, err
		}
		initState.AddFact(lit)
	}

	var goal logic.Goal
	for _, text := range spec.Goal.True {
		lit, err := domain.ParseLiteral(text, instances, false)
		if err != nil {
			return nil, err
		}
		goal.TrueFacts = append(goal.TrueFacts, lit)
	}
	for _, text := range spec.Goal.False {
		lit, err := domain.ParseLiteral(text, instances, false)
		if err != nil {
			return nil, err
		}
		goal.FalseFacts = append(goal.FalseFacts, lit)
	}

	var headstart []logic.Literal
	for _, text := range spec.Headstart {
		lit, err := domain.ParseLiteral(text, instances, true)
		if err != nil {
			return nil, err
		}
		headstart = append(headstart, lit)
	}

	return &logic.Problem{
		Domain:           domain,
		Instances:        instances,
		InitialState:     initState,
		Goal:             goal,
		HeadstartActions: headstart,
	}, nil
}

func splitTyped(raw string) (name, typeName string) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return parts[0], ""
}

// parseSchemaLiteral parses "pred(X, a)" against the declared variables
// and constants; "-pred(...)" flips the polarity.
func parseSchemaLiteral(text string, preds map[string]logic.Predicate,
	vars map[string]logic.Term, consts []logic.Term) (logic.Literal, error) {

	text = strings.TrimSpace(text)
	positive := true
	if strings.HasPrefix(text, "-") {
		positive = false
		text = text[1:]
	}

	open := strings.IndexByte(text, '(')
	if open < 0 || !strings.HasSuffix(text, ")") {
		return logic.Literal{}, fmt.Errorf("%w: literal %q", internalerr.ErrParse, text)
	}

	predName := strings.TrimSpace(text[:open])
	pred, ok := preds[predName]
	if !ok {
		return logic.Literal{}, fmt.Errorf("%w: unknown predicate %q", internalerr.ErrParse, predName)
	}

	var params []logic.Term
	inner := strings.TrimSpace(text[open+1 : len(text)-1])
	if inner != "" {
		for _, tok := range strings.Split(inner, ",") {
			tok = strings.TrimSpace(tok)
			if v, ok := vars[tok]; ok {
				params = append(params, v)
				continue
			}
			found := false
			for _, c := range consts {
				if c.Name == tok {
					params = append(params, c)
					found = true
					break
				}
			}
			if !found {
				// An undeclared token is a free variable of the schema.
				v := logic.Var(tok)
				vars[tok] = v
				params = append(params, v)
			}
		}
	}

	if len(params) != pred.Arity {
		return logic.Literal{}, fmt.Errorf("%w: predicate %s requires %d arguments, got %d",
			internalerr.ErrParse, pred.Name, pred.Arity, len(params))
	}

	return logic.Literal{Pred: pred, Params: params, Positive: positive}, nil
}
