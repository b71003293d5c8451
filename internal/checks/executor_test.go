package checks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeconform/conform/internal/contract"
)

func newTestExecutor(t *testing.T, typ contract.CheckType, h Handler) *Executor {
	t.Helper()
	hr := NewHandlerRegistry()
	hr.Register(typ, h)
	return NewExecutor(hr)
}

func TestRunUnknownType(t *testing.T) {
	e := NewExecutor(NewHandlerRegistry())
	check := &contract.Check{ID: "mystery", Type: "telepathy"}

	results := e.Run(context.Background(), "c1", check, ".", nil)
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Equal(t, contract.SeverityError, results[0].Severity)
	assert.Contains(t, results[0].Message, "telepathy")
}

func TestRunDisabledCheck(t *testing.T) {
	off := false
	e := newTestExecutor(t, "t", HandlerFunc(func(context.Context, *contract.Check, string, []string) ([]Result, error) {
		t.Fatal("disabled check must not dispatch")
		return nil, nil
	}))
	check := &contract.Check{ID: "x", Type: "t", Enabled: &off}
	assert.Nil(t, e.Run(context.Background(), "c1", check, ".", nil))
}

func TestRunScopeFilter(t *testing.T) {
	var got []string
	e := newTestExecutor(t, "t", HandlerFunc(func(_ context.Context, _ *contract.Check, _ string, files []string) ([]Result, error) {
		got = files
		return nil, nil
	}))
	check := &contract.Check{
		ID: "x", Type: "t",
		AppliesTo: contract.PathScope{Paths: []string{"src/**/*.py"}, ExcludePaths: []string{"**/test_*.py"}},
	}
	e.Run(context.Background(), "c1", check, ".", []string{
		"src/api/views.py", "src/api/test_views.py", "docs/readme.md",
	})
	assert.Equal(t, []string{"src/api/views.py"}, got)
}

func TestRunFillsDefaults(t *testing.T) {
	e := newTestExecutor(t, "t", HandlerFunc(func(context.Context, *contract.Check, string, []string) ([]Result, error) {
		return []Result{
			{File: "a.py", Message: "plain"},
			{ContractID: "child", CheckID: "child-check", File: "b.py", Message: "pre-attributed"},
		}, nil
	}))
	check := &contract.Check{ID: "x", Type: "t", Severity: contract.SeverityWarning, FixHint: "fix it"}

	results := e.Run(context.Background(), "parent", check, ".", nil)
	require.Len(t, results, 2)

	assert.Equal(t, "parent", results[0].ContractID)
	assert.Equal(t, "x", results[0].CheckID)
	assert.Equal(t, contract.SeverityWarning, results[0].Severity)
	assert.Equal(t, "fix it", results[0].FixHint)

	// Results arriving attributed keep their attribution.
	assert.Equal(t, "child", results[1].ContractID)
	assert.Equal(t, "child-check", results[1].CheckID)
}

func TestRunHandlerError(t *testing.T) {
	e := newTestExecutor(t, "t", HandlerFunc(func(context.Context, *contract.Check, string, []string) ([]Result, error) {
		return nil, errors.New("boom")
	}))
	check := &contract.Check{ID: "x", Type: "t"}

	results := e.Run(context.Background(), "c1", check, ".", nil)
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Contains(t, results[0].Message, "boom")
}

func TestRunHandlerPanic(t *testing.T) {
	e := newTestExecutor(t, "t", HandlerFunc(func(context.Context, *contract.Check, string, []string) ([]Result, error) {
		panic("handler bug")
	}))
	check := &contract.Check{ID: "x", Type: "t"}

	results := e.Run(context.Background(), "c1", check, ".", nil)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Message, "handler bug")
	assert.Equal(t, contract.SeverityError, results[0].Severity)
}

func TestSortResults(t *testing.T) {
	results := []Result{
		{Severity: contract.SeverityInfo, CheckID: "a", File: "f", Line: 1},
		{Severity: contract.SeverityError, CheckID: "b", File: "g", Line: 9},
		{Severity: contract.SeverityError, CheckID: "b", File: "f", Line: 3},
		{Severity: contract.SeverityError, CheckID: "a", File: "z", Line: 1},
		{Severity: contract.SeverityWarning, CheckID: "a", File: "f", Line: 1},
	}
	SortResults(results)

	assert.Equal(t, contract.SeverityError, results[0].Severity)
	assert.Equal(t, "a", results[0].CheckID)
	assert.Equal(t, "f", results[1].File, "same check sorts by file")
	assert.Equal(t, "g", results[2].File)
	assert.Equal(t, contract.SeverityWarning, results[3].Severity)
	assert.Equal(t, contract.SeverityInfo, results[4].Severity)
}
