package trace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/actlearn/pkg/actlearn/logic"
	"github.com/cognicore/actlearn/pkg/actlearn/rules"
)

func TestMotivationWriterSchema(t *testing.T) {
	onP := logic.Predicate{Name: "on", Arity: 2}
	clearP := logic.Predicate{Name: "clear", Arity: 1}
	moveP := logic.Predicate{Name: "move", Arity: 2}

	a, b := logic.Const("a"), logic.Const("b")

	state := logic.NewState(onP.Lit(a, b), clearP.Lit(a))
	rule := rules.NewRule(
		logic.NewLiteralSet(clearP.Lit(a)),
		moveP.Lit(a, b),
		logic.NewLiteralSet(onP.Lit(a, b)),
		logic.NewLiteralSet(),
		nil, 0.5, false)

	sub := logic.NewSubstitution()
	sub.Set(logic.Var("X"), a)

	rec := NewMotivationRecord(state, moveP.Lit(a, b), 0.42,
		[]RuleJSON{NewRuleJSON(rule, true, 0.9, []*logic.Substitution{sub})})

	path := filepath.Join(t.TempDir(), "motivation.json")
	w := NewMotivationWriter(path)
	w.Add(rec)
	if err := w.Flush(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("expected valid JSON: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("expected 1 record, got %d", len(decoded))
	}

	record := decoded[0]
	for _, key := range []string{"state", "action", "revision", "rules"} {
		if _, ok := record[key]; !ok {
			t.Errorf("expected key %q in record", key)
		}
	}

	ruleObjs, ok := record["rules"].([]any)
	if !ok || len(ruleObjs) != 1 {
		t.Fatalf("expected 1 rule snapshot")
	}
	ruleObj := ruleObjs[0].(map[string]any)
	for _, key := range []string{"preconditions", "removed_preconditions", "constants",
		"action", "effects", "prematching", "fulfilment", "substitutions"} {
		if _, ok := ruleObj[key]; !ok {
			t.Errorf("expected key %q in rule snapshot", key)
		}
	}

	if record["revision"].(float64) != 0.42 {
		t.Errorf("expected revision probability preserved")
	}
}
