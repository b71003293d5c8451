package checks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeconform/conform/internal/contract"
	"github.com/codeconform/conform/internal/lang"
)

const complexPy = `def tangled(a, b, c, d, e):
    if a:
        for x in b:
            if x and c:
                while d:
                    e = 1
    return e


def simple(a):
    return a + 1
`

func runStructural(t *testing.T, root string, files []string, cfg map[string]any) []Result {
	t.Helper()
	check := &contract.Check{ID: "metric", Type: contract.CheckStructuralMetric, Config: cfg}
	h := NewStructuralHandler(lang.NewRegistry())
	results, err := h.Execute(context.Background(), check, root, files)
	require.NoError(t, err)
	return results
}

func TestStructuralCyclomatic(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "mod.py", complexPy)

	// tangled: 1 + if + for + if + while + one 2-way boolop = 6.
	results := runStructural(t, root, []string{"mod.py"}, map[string]any{
		"metric": "cyclomatic_complexity", "threshold": 5,
	})
	bad := failed(results)
	require.Len(t, bad, 1)
	assert.Equal(t, "tangled", bad[0].RuleID)
	assert.Contains(t, bad[0].Message, "cyclomatic complexity")
	assert.Contains(t, bad[0].Message, "exceeds threshold")
	assert.Contains(t, bad[0].Message, "codebase mean", "distribution context appended")
}

func TestStructuralNestingDepth(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "mod.py", complexPy)

	results := runStructural(t, root, []string{"mod.py"}, map[string]any{
		"metric": "nesting_depth", "threshold": 3,
	})
	bad := failed(results)
	require.Len(t, bad, 1)
	assert.Equal(t, "tangled", bad[0].RuleID, "if > for > if > while is depth 4")
}

func TestStructuralParameterCount(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "mod.py", complexPy)

	results := runStructural(t, root, []string{"mod.py"}, map[string]any{
		"metric": "parameter_count", "threshold": 4,
	})
	bad := failed(results)
	require.Len(t, bad, 1)
	assert.Equal(t, "tangled", bad[0].RuleID)
}

func TestStructuralFileImportCount(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "many.py", "import a\nimport b\nimport c\n")
	writeRepoFile(t, root, "few.py", "import a\n")

	results := runStructural(t, root, []string{"many.py", "few.py"}, map[string]any{
		"metric": "file_import_count", "threshold": 2,
	})
	bad := failed(results)
	require.Len(t, bad, 1)
	assert.Equal(t, "many.py", bad[0].File)
}

func TestStructuralSkipsUnparseable(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "broken.go", "package\n")
	writeRepoFile(t, root, "notes.txt", "not code\n")

	results := runStructural(t, root, []string{"broken.go", "notes.txt"}, map[string]any{
		"metric": "cyclomatic_complexity", "threshold": 5,
	})
	assert.Empty(t, results)
}

func TestStructuralConfigError(t *testing.T) {
	h := NewStructuralHandler(lang.NewRegistry())
	check := &contract.Check{ID: "x", Config: map[string]any{"metric": "cyclomatic_complexity"}}
	_, err := h.Execute(context.Background(), check, ".", nil)
	assert.Error(t, err, "threshold is required")
}

func TestCyclomaticAndNesting(t *testing.T) {
	fn := &lang.Function{Nodes: []lang.Node{
		{Kind: lang.NodeBranch, Depth: 1},
		{Kind: lang.NodeLoop, Depth: 2},
		{Kind: lang.NodeBoolOp, Operands: 3},
		{Kind: lang.NodeComprehension},
		{Kind: lang.NodeAssert, Depth: 1},
	}}
	assert.Equal(t, 1+4+2, Cyclomatic(fn))
	assert.Equal(t, 2, NestingDepth(fn), "assert and comprehension do not nest")
}
