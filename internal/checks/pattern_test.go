package checks

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeconform/conform/internal/contract"
)

func writeRepoFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

func TestPatternForbidden(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "src/cli.py", "x = 1\nprint(x)\ny = 2\nprint(y)\n")
	writeRepoFile(t, root, "src/clean.py", "x = 1\n")

	check := &contract.Check{ID: "no-print", Type: contract.CheckPattern, Config: map[string]any{
		"patterns": []any{
			map[string]any{"name": "print-call", "regex": `print\(`, "message": "use the logger"},
		},
	}}
	results, err := NewPatternHandler().Execute(context.Background(), check, root, []string{"src/cli.py", "src/clean.py"})
	require.NoError(t, err)

	bad := failed(results)
	require.Len(t, bad, 2)
	assert.Equal(t, "src/cli.py", bad[0].File)
	assert.Equal(t, 2, bad[0].Line)
	assert.Equal(t, 4, bad[1].Line)
	assert.Equal(t, "use the logger", bad[0].Message)
	assert.Equal(t, "print-call", bad[0].RuleID)

	// The clean file reports a passed evaluation.
	var passes int
	for _, r := range results {
		if r.Passed {
			passes++
			assert.Equal(t, "src/clean.py", r.File)
		}
	}
	assert.Equal(t, 1, passes)
}

func TestPatternNegativeMatch(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "a.py", "import logging\n")
	writeRepoFile(t, root, "b.py", "x = 1\n")

	check := &contract.Check{ID: "needs-logging", Type: contract.CheckPattern, Config: map[string]any{
		"pattern":        `import logging`,
		"negative_match": true,
	}}
	results, err := NewPatternHandler().Execute(context.Background(), check, root, []string{"a.py", "b.py"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].Passed, "file containing the required pattern passes")
	assert.False(t, results[1].Passed)
	assert.Contains(t, results[1].Message, "not found")
}

func TestPatternSingleForm(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "a.py", "eval(code)\n")

	check := &contract.Check{ID: "no-eval", Type: contract.CheckPattern, Config: map[string]any{
		"pattern": `\beval\(`,
	}}
	results, err := NewPatternHandler().Execute(context.Background(), check, root, []string{"a.py"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Equal(t, "pattern-0", results[0].RuleID)
}

func TestPatternConfigErrors(t *testing.T) {
	h := NewPatternHandler()
	ctx := context.Background()

	_, err := h.Execute(ctx, &contract.Check{ID: "empty", Config: map[string]any{}}, ".", nil)
	assert.Error(t, err)

	_, err = h.Execute(ctx, &contract.Check{ID: "bad", Config: map[string]any{"pattern": `[unclosed`}}, ".", nil)
	assert.Error(t, err)
}

func TestPatternUnreadableFile(t *testing.T) {
	check := &contract.Check{ID: "x", Config: map[string]any{"pattern": "y"}}
	results, err := NewPatternHandler().Execute(context.Background(), check, t.TempDir(), []string{"missing.py"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Contains(t, results[0].Message, "unreadable")
}

func TestFileExists(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "README.md", "# hi\n")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))

	check := &contract.Check{ID: "layout", Type: contract.CheckFileExists, Config: map[string]any{
		"files": []any{
			"README.md",
			"docs",
			map[string]any{"path": "CHANGELOG.md", "message": "keep a changelog"},
		},
	}}
	results, err := NewFileExistsHandler().Execute(context.Background(), check, root, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].Passed)
	assert.True(t, results[1].Passed)
	assert.False(t, results[2].Passed)
	assert.Equal(t, "CHANGELOG.md", results[2].File)
	assert.Equal(t, "keep a changelog", results[2].Message)
}

func TestFileExistsNoFiles(t *testing.T) {
	check := &contract.Check{ID: "empty", Config: map[string]any{}}
	_, err := NewFileExistsHandler().Execute(context.Background(), check, ".", nil)
	assert.Error(t, err)
}
