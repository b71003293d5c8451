// Package checks dispatches check definitions to type-specific handlers
// and normalizes their results. Handlers register by type name; adding a
// check type never modifies the dispatcher.
package checks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/codeconform/conform/internal/contract"
)

// Result is one normalized finding from a handler. Passed results exist
// so callers can count evaluations; only failed results become
// violations.
type Result struct {
	ContractID string
	CheckID    string
	File       string
	Line       int
	Severity   contract.Severity
	Passed     bool
	Message    string
	FixHint    string
	// RuleID distinguishes sub-rules of one check (e.g. a named pattern),
	// keeping violation identities stable per rule.
	RuleID string
}

// Handler evaluates one check type over a resolved file set.
// files are repo-relative paths already filtered to the check's scope.
type Handler interface {
	Execute(ctx context.Context, check *contract.Check, repoRoot string, files []string) ([]Result, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, check *contract.Check, repoRoot string, files []string) ([]Result, error)

func (f HandlerFunc) Execute(ctx context.Context, check *contract.Check, repoRoot string, files []string) ([]Result, error) {
	return f(ctx, check, repoRoot, files)
}

// HandlerRegistry maps check type names to handlers.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[contract.CheckType]Handler
}

// NewHandlerRegistry returns an empty registry. DefaultRegistry wires
// the built-in handlers.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[contract.CheckType]Handler)}
}

// Register installs a handler for a check type, replacing any existing one.
func (r *HandlerRegistry) Register(t contract.CheckType, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[t] = h
}

// Get returns the handler for a check type.
func (r *HandlerRegistry) Get(t contract.CheckType) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[t]
	return h, ok
}

// Executor runs checks through the handler registry.
type Executor struct {
	registry *HandlerRegistry
}

// NewExecutor creates an executor over the given handler registry.
func NewExecutor(registry *HandlerRegistry) *Executor {
	return &Executor{registry: registry}
}

// Run evaluates one check. Scope filtering happens here: the candidate
// file list is narrowed to the check's applies_to globs before dispatch.
// Handler errors and panics degrade to a single error-severity result;
// an unknown check type does the same, naming the offending type. Run
// never returns an error to the caller.
func (e *Executor) Run(ctx context.Context, contractID string, check *contract.Check, repoRoot string, files []string) (results []Result) {
	defer func() {
		if r := recover(); r != nil {
			results = []Result{errorResult(contractID, check, fmt.Sprintf("check handler panicked: %v", r))}
		}
	}()

	if !check.IsEnabled() {
		return nil
	}

	handler, ok := e.registry.Get(check.Type)
	if !ok {
		return []Result{errorResult(contractID, check, fmt.Sprintf("unknown check type %q", check.Type))}
	}

	scoped := make([]string, 0, len(files))
	for _, f := range files {
		if check.AppliesTo.Matches(f) {
			scoped = append(scoped, f)
		}
	}

	raw, err := handler.Execute(ctx, check, repoRoot, scoped)
	if err != nil {
		return []Result{errorResult(contractID, check, fmt.Sprintf("check execution failed: %v", err))}
	}

	for i := range raw {
		// Nested-contract results arrive already attributed.
		if raw[i].ContractID == "" {
			raw[i].ContractID = contractID
		}
		if raw[i].CheckID == "" {
			raw[i].CheckID = check.ID
		}
		if raw[i].Severity == "" {
			raw[i].Severity = check.Severity
		}
		if raw[i].FixHint == "" {
			raw[i].FixHint = check.FixHint
		}
	}
	return raw
}

func errorResult(contractID string, check *contract.Check, msg string) Result {
	return Result{
		ContractID: contractID,
		CheckID:    check.ID,
		Severity:   contract.SeverityError,
		Passed:     false,
		Message:    msg,
	}
}

// SortResults orders results deterministically: severity rank, then
// check ID, then file, then line. Concurrent execution produces an
// unordered multiset; every report path sorts first.
func SortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() < b.Severity.Rank()
		}
		if a.CheckID != b.CheckID {
			return a.CheckID < b.CheckID
		}
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})
}
