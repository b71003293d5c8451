package checks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeconform/conform/internal/contract"
)

func runCommandCheck(t *testing.T, cfg map[string]any) []Result {
	t.Helper()
	check := &contract.Check{ID: "cmd", Type: contract.CheckCommand, Config: cfg}
	results, err := NewCommandHandler().Execute(context.Background(), check, t.TempDir(), nil)
	require.NoError(t, err)
	return results
}

func TestCommandSuccess(t *testing.T) {
	results := runCommandCheck(t, map[string]any{"command": "true"})
	require.Len(t, results, 1)
	assert.True(t, results[0].Passed)
}

func TestCommandFailure(t *testing.T) {
	results := runCommandCheck(t, map[string]any{"command": "echo broken; exit 1"})
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Contains(t, results[0].Message, "command failed")
	assert.Contains(t, results[0].Message, "broken")
}

func TestCommandFailureIndicatorOverridesExitCode(t *testing.T) {
	results := runCommandCheck(t, map[string]any{
		"command":            "echo 'error: something'",
		"failure_indicators": []any{"error:"},
	})
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
}

func TestCommandSuccessIndicatorOverridesExitCode(t *testing.T) {
	results := runCommandCheck(t, map[string]any{
		"command":            "echo 'all checks passed'; exit 1",
		"success_indicators": []any{"all checks passed"},
	})
	require.Len(t, results, 1)
	assert.True(t, results[0].Passed)
}

func TestCommandErrorPattern(t *testing.T) {
	results := runCommandCheck(t, map[string]any{
		"command": `printf 'src/a.py:10: undefined name\nsrc/b.py:3: unused import\nnoise\n'; exit 1`,
		"pattern": `(?P<file>[^:\s]+):(?P<line>\d+): (?P<message>.+)`,
	})
	require.Len(t, results, 2)
	assert.Equal(t, "src/a.py", results[0].File)
	assert.Equal(t, 10, results[0].Line)
	assert.Equal(t, "undefined name", results[0].Message)
	assert.Equal(t, "src/b.py", results[1].File)
	assert.Equal(t, 3, results[1].Line)
}

func TestCommandTimeout(t *testing.T) {
	check := &contract.Check{ID: "slow", Config: map[string]any{"command": "sleep 5"}}
	h := &CommandHandler{DefaultTimeout: 100 * time.Millisecond}

	start := time.Now()
	results, err := h.Execute(context.Background(), check, t.TempDir(), nil)
	elapsed := time.Since(start)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Contains(t, results[0].Message, "timed out")
	// The deadline bounds wall clock even though sleep outlives sh.
	assert.Less(t, elapsed, 3*time.Second)
}

func TestCommandTimeoutIsErrorSeverity(t *testing.T) {
	check := &contract.Check{
		ID:       "slow-info",
		Type:     contract.CheckCommand,
		Severity: contract.SeverityInfo,
		Config:   map[string]any{"command": "sleep 5", "timeout_seconds": 1},
	}
	h := &CommandHandler{DefaultTimeout: 100 * time.Millisecond}

	results, err := h.Execute(context.Background(), check, t.TempDir(), nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, contract.SeverityError, results[0].Severity)

	// The executor must not backfill the check's own severity over it.
	reg := NewHandlerRegistry()
	reg.Register(contract.CheckCommand, h)
	got := NewExecutor(reg).Run(context.Background(), "c", check, t.TempDir(), nil)
	require.Len(t, got, 1)
	assert.Equal(t, contract.SeverityError, got[0].Severity)
}

func TestCommandMissingCommand(t *testing.T) {
	check := &contract.Check{ID: "empty", Config: map[string]any{}}
	_, err := NewCommandHandler().Execute(context.Background(), check, ".", nil)
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	long := truncate("abcdefghij", 4)
	assert.Contains(t, long, "abcd")
	assert.Contains(t, long, "truncated")
}
