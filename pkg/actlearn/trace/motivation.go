package trace

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cognicore/actlearn/pkg/actlearn/logic"
	"github.com/cognicore/actlearn/pkg/actlearn/rules"
)

// LiteralJSON renders a literal as [name, params] or, with a necessity,
// [name, params, necessity]. Negative literals carry a leading dash on the
// name.
type LiteralJSON []any

// NewLiteralJSON encodes a literal; pass a negative necessity to omit it.
func NewLiteralJSON(lit logic.Literal, necessity float64) LiteralJSON {
	name := lit.Pred.Name
	if !lit.Positive {
		name = "-" + name
	}
	params := make([]string, len(lit.Params))
	for i, p := range lit.Params {
		params[i] = p.Name
	}
	if necessity >= 0 {
		return LiteralJSON{name, params, necessity}
	}
	return LiteralJSON{name, params}
}

// RuleJSON is the per-rule snapshot of a motivation record.
type RuleJSON struct {
	Preconditions        []LiteralJSON `json:"preconditions"`
	RemovedPreconditions []LiteralJSON `json:"removed_preconditions"`
	Constants            [][]any       `json:"constants"`
	Action               LiteralJSON   `json:"action"`
	Effects              []LiteralJSON `json:"effects"`
	Prematching          bool          `json:"prematching"`
	Fulfilment           float64       `json:"fulfilment"`
	Substitutions        [][][2]string `json:"substitutions"`
}

// MotivationRecord is one tick of the motivation trace: the state, the
// chosen action, its revision probability and a necessity snapshot of
// every rule considered.
type MotivationRecord struct {
	State    []LiteralJSON `json:"state"`
	Action   LiteralJSON   `json:"action"`
	Revision float64       `json:"revision"`
	Rules    []RuleJSON    `json:"rules"`
}

// NewRuleJSON snapshots one rule with its matching outcome.
func NewRuleJSON(r *rules.Rule, prematching bool, fulfilment float64, subs []*logic.Substitution) RuleJSON {
	out := RuleJSON{
		Action:      NewLiteralJSON(r.ActionLiteral, -1),
		Prematching: prematching,
		Fulfilment:  fulfilment,
	}

	for _, e := range r.PrecondNecessities.Entries() {
		encoded := NewLiteralJSON(e.Lit, e.Prob)
		if r.Preconditions.Contains(e.Lit) {
			out.Preconditions = append(out.Preconditions, encoded)
		} else {
			out.RemovedPreconditions = append(out.RemovedPreconditions, encoded)
		}
	}

	for _, e := range r.ConstNecessities.Entries() {
		out.Constants = append(out.Constants, []any{e.Term.Name, e.Prob})
	}

	for _, eff := range r.Add.Slice() {
		out.Effects = append(out.Effects, NewLiteralJSON(eff, -1))
	}
	for _, eff := range r.Del.Slice() {
		out.Effects = append(out.Effects, NewLiteralJSON(eff, -1))
	}

	for _, sub := range subs {
		var pairs [][2]string
		for _, pair := range sub.Pairs() {
			pairs = append(pairs, [2]string{pair[0].Name, pair[1].Name})
		}
		out.Substitutions = append(out.Substitutions, pairs)
	}

	return out
}

// NewMotivationRecord builds a record for one tick.
func NewMotivationRecord(state logic.State, action logic.Literal, revision float64, ruleSnapshots []RuleJSON) MotivationRecord {
	rec := MotivationRecord{
		Action:   NewLiteralJSON(action, -1),
		Revision: revision,
		Rules:    ruleSnapshots,
	}
	for _, f := range state.Facts.Slice() {
		rec.State = append(rec.State, NewLiteralJSON(f, -1))
	}
	return rec
}

// MotivationWriter buffers motivation records and rewrites the target file
// on every flush.
type MotivationWriter struct {
	path    string
	records []MotivationRecord
}

// NewMotivationWriter creates a writer targeting path.
func NewMotivationWriter(path string) *MotivationWriter {
	return &MotivationWriter{path: path}
}

// Add buffers one record.
func (w *MotivationWriter) Add(rec MotivationRecord) {
	w.records = append(w.records, rec)
}

// Len returns the number of buffered records.
func (w *MotivationWriter) Len() int {
	return len(w.records)
}

// Flush writes the whole trace as a JSON array.
func (w *MotivationWriter) Flush() error {
	data, err := json.MarshalIndent(w.records, "", " ")
	if err != nil {
		return fmt.Errorf("encode motivation trace: %w", err)
	}
	if err := os.WriteFile(w.path, data, 0o644); err != nil {
		return fmt.Errorf("write motivation trace: %w", err)
	}
	return nil
}
