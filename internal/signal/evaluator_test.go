package signal

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"kdj-monitor/internal/model"
)

func point(k, j float64) model.IndicatorPoint {
	return model.IndicatorPoint{TS: 1700000000000, RSV: 50, K: k, D: 50, J: j}
}

func TestEvaluateDefaults(t *testing.T) {
	table := DefaultConditions()

	cases := []struct {
		name string
		k, j float64
		want []string
	}{
		{"overbought", 92, 100, []string{"cond2"}},
		{"strong breakout", 92, 110, []string{"cond3"}},
		{"oversold", 18, -12, []string{"cond4"}},
		{"deep oversold", 10, -20, []string{"cond4", "cond5"}},
		{"neutral", 55, 50, nil},
		{"boundary not matched", 90, 100, nil}, // K>90 is strict
	}

	for _, c := range cases {
		got := Evaluate(point(c.k, c.j), table)
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("%s: Evaluate(K=%v, J=%v) = %v, want %v", c.name, c.k, c.j, got, c.want)
		}
	}
}

func TestEvaluateNarrowTable(t *testing.T) {
	// With only cond2 configured, K=92/J=110 matches nothing: J<105 fails
	// and no broader condition exists to cover it.
	table := []Condition{{Name: "cond2", KGt: f(90), JLt: f(105)}}

	if got := Evaluate(point(92, 100), table); len(got) != 1 || got[0] != "cond2" {
		t.Errorf("K=92 J=100: got %v, want [cond2]", got)
	}
	if got := Evaluate(point(92, 110), table); got != nil {
		t.Errorf("K=92 J=110: got %v, want no match", got)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	table := DefaultConditions()
	p := point(92, 100)
	first := Evaluate(p, table)
	for i := 0; i < 10; i++ {
		if got := Evaluate(p, table); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: Evaluate returned %v, first run returned %v", i, got, first)
		}
	}
}

func TestMatchUsesOnlySetBounds(t *testing.T) {
	cond := Condition{Name: "k-only", KGt: f(80)}
	if !cond.Match(85, -999) {
		t.Error("k-only condition must ignore J entirely")
	}
	if cond.Match(75, 999) {
		t.Error("k-only condition must fail on K<=80")
	}
}

func TestLoadConditionsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conditions.yaml")
	data := `conditions:
  - name: overbought
    k_gt: 90
    j_lt: 105
  - name: oversold
    k_lt: 20
    j_lt: -10
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadConditions(path)
	if err != nil {
		t.Fatalf("LoadConditions: %v", err)
	}
	if len(table) != 2 {
		t.Fatalf("expected 2 conditions, got %d", len(table))
	}
	if table[0].Name != "overbought" || *table[0].KGt != 90 || *table[0].JLt != 105 {
		t.Errorf("first condition parsed wrong: %+v", table[0])
	}
	if got := Evaluate(point(95, 100), table); len(got) != 1 || got[0] != "overbought" {
		t.Errorf("loaded table did not match as configured: %v", got)
	}
}

func TestLoadConditionsRejectsEmptyPredicate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("conditions:\n  - name: nothing\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConditions(path); err == nil {
		t.Error("expected error for a condition with no bounds")
	}
}

func TestLoadConditionsEmptyPathIsDefault(t *testing.T) {
	table, err := LoadConditions("")
	if err != nil {
		t.Fatalf("LoadConditions(\"\"): %v", err)
	}
	if len(table) != 4 {
		t.Errorf("default table has %d conditions, want 4", len(table))
	}
}
