package conformance

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeconform/conform/internal/checks"
	"github.com/codeconform/conform/internal/contract"
	"github.com/codeconform/conform/internal/violation"
)

func initRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, Initialize(root, false))
	return root
}

func openManager(t *testing.T, root string, opts ...Option) *Manager {
	t.Helper()
	opts = append(opts, WithWarnFunc(func(string, ...any) {}))
	m, err := NewManager(root, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func failResult(file string, line int) checks.Result {
	return checks.Result{
		ContractID: "api-standards",
		CheckID:    "no-print",
		File:       file,
		Line:       line,
		Severity:   contract.SeverityError,
		Message:    "print call in library code",
	}
}

func TestInitialize(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, Initialize(root, false))

	for _, sub := range []string{"violations", "exemptions", "history", "reports", "cache"} {
		info, err := os.Stat(filepath.Join(root, StateDirName, sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	ignore, err := os.ReadFile(filepath.Join(root, StateDirName, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(ignore), "violations/")
	assert.Contains(t, string(ignore), "cache/")

	err = Initialize(root, false)
	assert.True(t, errors.Is(err, ErrAlreadyInitialized))
	assert.NoError(t, Initialize(root, true))
}

func TestNewManagerRequiresInit(t *testing.T) {
	_, err := NewManager(t.TempDir())
	assert.True(t, errors.Is(err, ErrNotInitialized))
}

func TestRunRecordsViolations(t *testing.T) {
	root := initRepo(t)
	m := openManager(t, root)
	ctx := context.Background()

	results := []checks.Result{
		failResult("src/cli.py", 2),
		{ContractID: "api-standards", CheckID: "no-print", File: "src/ok.py", Passed: true},
	}
	report, err := m.RunConformanceCheck(ctx, results, 1, 2, true)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Summary.Failed)
	assert.Equal(t, 1, report.Summary.Passed)
	assert.Equal(t, 2, report.Summary.Total)
	assert.InDelta(t, 0.5, report.Summary.ComplianceRate, 1e-9)
	assert.Equal(t, 1, report.Summary.BySeverity["error"])
	assert.Equal(t, 1, report.Summary.ByContract["api-standards"])
	require.Len(t, report.Violations, 1)
	assert.Equal(t, violation.StatusOpen, report.Violations[0].Status)

	// The report is persisted as latest.json.
	latest, err := m.LatestReport()
	require.NoError(t, err)
	assert.Equal(t, report.RunID, latest.RunID)
}

func TestFullRunResolvesAbsent(t *testing.T) {
	root := initRepo(t)
	m := openManager(t, root)
	ctx := context.Background()

	_, err := m.RunConformanceCheck(ctx, []checks.Result{failResult("src/cli.py", 2)}, 1, 1, true)
	require.NoError(t, err)

	report, err := m.RunConformanceCheck(ctx, nil, 1, 1, true)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Summary.Failed)

	vs, err := m.ListViolations(ctx, violation.Filter{Status: violation.StatusResolved})
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, "not detected in full run", vs[0].ResolvedReason)
}

func TestIncrementalRunGoesStale(t *testing.T) {
	root := initRepo(t)
	m := openManager(t, root)
	ctx := context.Background()

	_, err := m.RunConformanceCheck(ctx, []checks.Result{failResult("src/cli.py", 2)}, 1, 1, true)
	require.NoError(t, err)

	// An incremental run that did not reproduce the violation cannot
	// prove it fixed.
	report, err := m.RunConformanceCheck(ctx, nil, 1, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.Stale)

	vs, err := m.ListViolations(ctx, violation.Filter{Status: violation.StatusStale})
	require.NoError(t, err)
	assert.Len(t, vs, 1)
}

func TestRedetectionReopens(t *testing.T) {
	root := initRepo(t)
	m := openManager(t, root)
	ctx := context.Background()

	_, err := m.RunConformanceCheck(ctx, []checks.Result{failResult("src/cli.py", 2)}, 1, 1, true)
	require.NoError(t, err)
	_, err = m.RunConformanceCheck(ctx, nil, 1, 1, true)
	require.NoError(t, err)

	// Same location, new message: the identity hash ignores wording.
	r := failResult("src/cli.py", 2)
	r.Message = "reworded diagnostic"
	_, err = m.RunConformanceCheck(ctx, []checks.Result{r}, 1, 1, true)
	require.NoError(t, err)

	vs, err := m.ListViolations(ctx, violation.Filter{Status: violation.StatusOpen})
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, "reworded diagnostic", vs[0].Message)
	assert.Empty(t, vs[0].ResolvedReason)
}

func TestActiveExemptionLinks(t *testing.T) {
	root := initRepo(t)
	expiry := time.Now().UTC().AddDate(0, 1, 0).Format(time.RFC3339)
	writeExemption(t, root, `
exemptions:
  - id: EX-1
    contract: api-standards
    check: no-print
    reason: legacy CLI
    expires: `+expiry+`
    scope:
      files: ["src/**"]
`)
	m := openManager(t, root)
	ctx := context.Background()

	report, err := m.RunConformanceCheck(ctx, []checks.Result{failResult("src/cli.py", 2)}, 1, 1, true)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Summary.Failed)
	assert.Equal(t, 1, report.Summary.Exempted)
	require.Len(t, report.Violations, 1)
	assert.True(t, report.Violations[0].Exempted)
	assert.Equal(t, "EX-1", report.Violations[0].ExemptionID)
	assert.Equal(t, violation.StatusOpen, report.Violations[0].Status)
}

func TestExpiredExemptionSurfaces(t *testing.T) {
	root := initRepo(t)
	writeExemption(t, root, `
exemptions:
  - id: EX-old
    contract: api-standards
    check: no-print
    reason: long lapsed
    expires: 2020-01-01T00:00:00Z
    scope:
      global: true
`)
	m := openManager(t, root)
	ctx := context.Background()

	report, err := m.RunConformanceCheck(ctx, []checks.Result{failResult("src/cli.py", 2)}, 1, 1, true)
	require.NoError(t, err)

	// The lapsed waiver no longer shields the violation.
	assert.Equal(t, 1, report.Summary.Failed)
	assert.Equal(t, 0, report.Summary.Exempted)
	require.Len(t, report.Violations, 1)
	assert.False(t, report.Violations[0].Exempted)
	assert.Equal(t, violation.StatusExemptionExpired, report.Violations[0].Status)
	assert.Equal(t, "EX-old", report.Violations[0].ExemptionID)

	// The flipped exemption status persists via the overlay, not by
	// rewriting the YAML.
	_, err = os.Stat(filepath.Join(root, StateDirName, "exemptions", "state.json"))
	assert.NoError(t, err)
}

func TestTrendAcrossDays(t *testing.T) {
	root := initRepo(t)
	current := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m := openManager(t, root, WithClock(func() time.Time { return current }))
	ctx := context.Background()

	report, err := m.RunConformanceCheck(ctx, []checks.Result{failResult("a.py", 1), failResult("b.py", 2)}, 1, 2, true)
	require.NoError(t, err)
	assert.Nil(t, report.Trend, "first run has nothing to compare against")

	current = current.AddDate(0, 0, 1)
	report, err = m.RunConformanceCheck(ctx, []checks.Result{failResult("a.py", 1)}, 1, 2, true)
	require.NoError(t, err)
	require.NotNil(t, report.Trend)
	assert.Equal(t, -1, report.Trend.Failed)
}

func TestGetSummaryStats(t *testing.T) {
	root := initRepo(t)
	m := openManager(t, root)
	ctx := context.Background()

	_, err := m.RunConformanceCheck(ctx, []checks.Result{failResult("a.py", 1)}, 1, 1, true)
	require.NoError(t, err)

	stats, err := m.GetSummaryStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats["status:open"])
	assert.Equal(t, 1, stats["severity:error"])
	assert.Equal(t, 1, stats["total"])
}

func TestPruneViolations(t *testing.T) {
	root := initRepo(t)
	m := openManager(t, root)
	ctx := context.Background()

	_, err := m.RunConformanceCheck(ctx, []checks.Result{failResult("a.py", 1)}, 1, 1, true)
	require.NoError(t, err)
	_, err = m.RunConformanceCheck(ctx, nil, 1, 1, true)
	require.NoError(t, err)

	// Freshly resolved, so a 30-day cutoff keeps it.
	n, err := m.PruneViolations(ctx, 30, false)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = m.PruneViolations(ctx, 0, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func writeExemption(t *testing.T, root, body string) {
	t.Helper()
	dir := filepath.Join(root, StateDirName, "exemptions")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "waivers.yaml"), []byte(body), 0o644))
}
