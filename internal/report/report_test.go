package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeconform/conform/internal/baseline"
	"github.com/codeconform/conform/internal/conformance"
	"github.com/codeconform/conform/internal/contract"
	"github.com/codeconform/conform/internal/violation"
)

func sampleViolations() []*violation.Violation {
	return []*violation.Violation{
		{
			ID:         "abcd1234abcd1234",
			ContractID: "api-standards",
			CheckID:    "no-print",
			File:       "src/cli.py",
			Line:       12,
			Severity:   contract.SeverityError,
			Message:    "print call in library code",
			FixHint:    "use the logger",
		},
		{
			ID:         "ffff0000ffff0000",
			ContractID: "api-standards",
			CheckID:    "max-complexity",
			File:       "src/big.py",
			Line:       0,
			Severity:   contract.SeverityInfo,
			Message:    "complexity 14 exceeds threshold 10",
		},
	}
}

func TestSARIF(t *testing.T) {
	data, err := SARIF(sampleViolations())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "2.1.0", doc["version"])

	runs := doc["runs"].([]any)
	require.Len(t, runs, 1)
	run := runs[0].(map[string]any)
	driver := run["tool"].(map[string]any)["driver"].(map[string]any)
	assert.Equal(t, "conform", driver["name"])
	assert.Len(t, driver["rules"].([]any), 2)

	results := run["results"].([]any)
	require.Len(t, results, 2)

	first := results[0].(map[string]any)
	assert.Equal(t, "no-print", first["ruleId"])
	assert.Equal(t, "error", first["level"])
	fps := first["partialFingerprints"].(map[string]any)
	assert.Equal(t, "abcd1234abcd1234", fps["conformance/v1"])

	loc := first["locations"].([]any)[0].(map[string]any)["physicalLocation"].(map[string]any)
	assert.Equal(t, "src/cli.py", loc["artifactLocation"].(map[string]any)["uri"])
	assert.EqualValues(t, 12, loc["region"].(map[string]any)["startLine"])
	require.Len(t, first["fixes"].([]any), 1)

	// Info severity maps to "note"; line 0 omits the region.
	second := results[1].(map[string]any)
	assert.Equal(t, "note", second["level"])
	secondLoc := second["locations"].([]any)[0].(map[string]any)["physicalLocation"].(map[string]any)
	_, hasRegion := secondLoc["region"]
	assert.False(t, hasRegion)
	_, hasFixes := second["fixes"]
	assert.False(t, hasFixes)
}

func TestJUnit(t *testing.T) {
	data, err := JUnit(sampleViolations())
	require.NoError(t, err)
	out := string(data)

	assert.True(t, strings.HasPrefix(out, xmlHeaderPrefix))
	assert.Contains(t, out, `<testsuite name="api-standards" tests="2" failures="2">`)
	assert.Contains(t, out, `name="no-print@src/cli.py:12"`)
	assert.Contains(t, out, `classname="api-standards"`)
	assert.Contains(t, out, `message="print call in library code"`)
}

const xmlHeaderPrefix = `<?xml version="1.0" encoding="UTF-8"?>`

func sampleReport() *conformance.Report {
	return &conformance.Report{
		Summary: conformance.Summary{
			Total: 10, Passed: 7, Failed: 2, Exempted: 1,
			ComplianceRate: 0.7,
			BySeverity:     map[string]int{"error": 2},
			ByContract:     map[string]int{"api-standards": 2},
		},
		Trend:      &baseline.Delta{Failed: -3, Passed: 3},
		Violations: sampleViolations(),
	}
}

func TestMarkdown(t *testing.T) {
	out := Markdown(sampleReport())

	assert.Contains(t, out, "## Conformance Report")
	assert.Contains(t, out, "| Checks passed | 7 |")
	assert.Contains(t, out, "| Violations | 2 |")
	assert.Contains(t, out, "| Compliance | 70.0% |")
	assert.Contains(t, out, "-3 failed, +3 passed")
	assert.Contains(t, out, "src/cli.py:12")
}

func TestMarkdownEscapesPipes(t *testing.T) {
	r := &conformance.Report{
		Summary: conformance.Summary{BySeverity: map[string]int{}, ByContract: map[string]int{}},
		Violations: []*violation.Violation{{
			CheckID: "c", File: "f.py", Severity: contract.SeverityError,
			Message: "a || b",
		}},
	}
	out := Markdown(r)
	assert.Contains(t, out, `a \|\| b`)
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	cmp := &baseline.Comparison{Existing: sampleViolations(), NetChange: 0}
	Console(&buf, sampleReport(), cmp)
	out := buf.String()

	assert.Contains(t, out, "10 checked")
	assert.Contains(t, out, "70.0% compliant")
	assert.Contains(t, out, "src/cli.py:12")
	assert.Contains(t, out, "hint: use the logger")
	assert.Contains(t, out, "Baseline: 0 new, 2 existing, 0 fixed (net 0)")
}
