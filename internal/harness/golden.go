package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tapdance/internal/ir"
)

// GoldenTrace renders a result as the text stored in golden files: a
// header naming the scenario and table, then one trace entry per line.
func GoldenTrace(scenarioName string, result *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# scenario: %s\n", scenarioName)
	fmt.Fprintf(&b, "# table: %s\n", result.Session.TableName)
	fmt.Fprintf(&b, "# tapping_term_ms: %d settle_ms: %d\n", result.Session.TappingTermMs, result.Session.SettleMs)
	b.WriteString(ir.FormatTrace(result.Trace))
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an already-run result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, GoldenTrace(scenarioName, result))
}
