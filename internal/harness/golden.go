package harness

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot is the golden-file view of a run.
// Field order and map key order are fixed by encoding/json, so equal runs
// marshal to equal bytes.
type TraceSnapshot struct {
	ScenarioName string         `json:"scenario_name"`
	Junction     string         `json:"junction"`
	Pass         bool           `json:"pass"`
	Firings      []FiringEvent  `json:"firings"`
	Steps        []StepEvent    `json:"steps"`
	Pending      map[string]int `json:"pending"`
	Errors       []string       `json:"errors,omitempty"`
}

// Snapshot renders a result for golden comparison.
func Snapshot(name string, r *Result) ([]byte, error) {
	return json.MarshalIndent(TraceSnapshot{
		ScenarioName: name,
		Junction:     r.Junction,
		Pass:         r.Pass,
		Firings:      r.Firings,
		Steps:        r.Steps,
		Pending:      r.Pending,
		Errors:       r.Errors,
	}, "", "  ")
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
