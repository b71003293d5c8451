// Package ci is the top-level orchestrator: it selects files and
// contracts for the configured mode, runs checks (optionally in
// parallel and cached), applies the gating policies and derives the
// process exit code.
package ci

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/codeconform/conform/internal/baseline"
	"github.com/codeconform/conform/internal/checks"
	"github.com/codeconform/conform/internal/conformance"
	"github.com/codeconform/conform/internal/contract"
	"github.com/codeconform/conform/internal/gitdiff"
	"github.com/codeconform/conform/internal/violation"
)

// defaultExcludeDirs are never scanned.
var defaultExcludeDirs = []string{
	".git", ".conform", "vendor", "node_modules", "__pycache__",
	".venv", "venv", "dist", "build", "testdata",
}

// Runner executes one CI conformance run.
type Runner struct {
	cfg       Config
	repoRoot  string
	contracts *contract.Registry
	executor  *checks.Executor
	manager   *conformance.Manager
	cache     *CheckCache
	warn      func(format string, args ...any)
}

// NewRunner wires a runner from its collaborators. cache may be nil
// when caching is disabled.
func NewRunner(cfg Config, repoRoot string, contracts *contract.Registry, executor *checks.Executor, manager *conformance.Manager) *Runner {
	if cfg.Mode == "" {
		cfg.Mode = ModeFull
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.FailOn == "" {
		cfg.FailOn = contract.SeverityError
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	r := &Runner{
		cfg:       cfg,
		repoRoot:  repoRoot,
		contracts: contracts,
		executor:  executor,
		manager:   manager,
		warn: func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
		},
	}
	if cfg.CacheEnabled {
		r.cache = NewCheckCache(filepath.Join(repoRoot, conformance.StateDirName, "cache"), cfg.CacheTTL)
	}
	return r
}

// Run executes the configured conformance run end-to-end. Failures are
// contained: a broken check degrades to an error-severity violation, a
// missing required baseline or any runtime fault short-circuits into
// the matching exit code with zero violations reported.
func (r *Runner) Run(ctx context.Context) *Result {
	start := time.Now()
	result, err := r.run(ctx)
	if err != nil {
		code := ExitRuntimeError
		if errors.Is(err, baseline.ErrNotFound) {
			code = ExitBaselineNotFound
		} else if errors.Is(err, conformance.ErrNotInitialized) {
			code = ExitConfigError
		}
		result = &Result{ExitCode: code, Errors: []string{err.Error()}}
	}
	result.Duration = time.Since(start)
	return result
}

func (r *Runner) run(ctx context.Context) (*Result, error) {
	allFiles, err := r.scanTree()
	if err != nil {
		return nil, fmt.Errorf("scanning repository: %w", err)
	}

	candidates, narrowed, err := r.filesToCheck(ctx, allFiles)
	if err != nil {
		return nil, err
	}

	contracts := r.contracts.Applicable(r.cfg.Language, r.cfg.RepoType)
	if narrowed {
		contracts = filterContracts(r.contracts, contracts, candidates)
	}

	results := r.executeChecks(ctx, contracts, candidates)
	checks.SortResults(results)

	fullRun := r.cfg.Mode == ModeFull || (!narrowed && r.cfg.Mode != ModePR)
	report, err := r.manager.RunConformanceCheck(ctx, results, len(contracts), len(candidates), fullRun)
	if err != nil {
		return nil, fmt.Errorf("recording conformance results: %w", err)
	}

	failing := failingViolations(report.Violations)

	var comparison *baseline.Comparison
	if r.cfg.BaselinePath != "" {
		base, err := baseline.Load(r.cfg.BaselinePath)
		if err != nil {
			if r.cfg.RequireBaseline {
				return nil, err
			}
			r.warn("baseline unavailable, skipping comparison: %v", err)
		} else {
			comparison = baseline.Compare(failing, base)
		}
	}

	return &Result{
		ExitCode:     r.determineExitCode(failing, comparison),
		Violations:   failing,
		Comparison:   comparison,
		ContractsRun: len(contracts),
		FilesChecked: len(candidates),
	}, nil
}

// scanTree enumerates repo-relative candidate files.
func (r *Runner) scanTree() ([]string, error) {
	exclude := append(append([]string(nil), defaultExcludeDirs...), r.cfg.ExcludeDirs...)
	var files []string
	err := filepath.WalkDir(r.repoRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		name := d.Name()
		if d.IsDir() {
			for _, ex := range exclude {
				if name == ex {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		rel, err := filepath.Rel(r.repoRoot, path)
		if err != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	return files, err
}

// filesToCheck applies the mode's file selection. narrowed reports
// whether the candidate set is a strict subset of the tree, which
// controls contract filtering and full-run semantics.
func (r *Runner) filesToCheck(ctx context.Context, allFiles []string) (files []string, narrowed bool, err error) {
	switch r.cfg.Mode {
	case ModeFull:
		return allFiles, false, nil
	case ModeIncremental, ModePR:
		if len(r.cfg.Paths) > 0 {
			return intersect(allFiles, r.cfg.Paths), true, nil
		}
		if r.cfg.BaseRef != "" && r.cfg.HeadRef != "" {
			git, err := gitdiff.New(ctx)
			if err == nil {
				changed, diffErr := git.ChangedFiles(ctx, r.repoRoot, r.cfg.BaseRef, r.cfg.HeadRef)
				if diffErr == nil {
					return intersect(allFiles, changed), true, nil
				}
				r.warn("diff %s...%s failed, falling back to full scan: %v", r.cfg.BaseRef, r.cfg.HeadRef, diffErr)
			} else {
				r.warn("git unavailable, falling back to full scan: %v", err)
			}
		}
		return allFiles, false, nil
	default:
		return nil, false, fmt.Errorf("unknown run mode %q", r.cfg.Mode)
	}
}

func intersect(allFiles, wanted []string) []string {
	present := make(map[string]bool, len(allFiles))
	for _, f := range allFiles {
		present[f] = true
	}
	var out []string
	for _, w := range wanted {
		w = filepath.ToSlash(w)
		if present[w] {
			out = append(out, w)
		}
	}
	return out
}

// filterContracts keeps contracts with at least one check whose
// applies_to globs match at least one candidate file.
func filterContracts(registry *contract.Registry, contracts []*contract.Contract, files []string) []*contract.Contract {
	var kept []*contract.Contract
	for _, c := range contracts {
		for _, chk := range registry.Resolve(c) {
			if !chk.IsEnabled() {
				continue
			}
			matched := false
			for _, f := range files {
				if chk.AppliesTo.Matches(f) {
					matched = true
					break
				}
			}
			// file-exists checks assert absolute paths and stay
			// applicable regardless of the candidate set.
			if matched || chk.Type == contract.CheckFileExists {
				kept = append(kept, c)
				break
			}
		}
	}
	return kept
}

type checkJob struct {
	contractID string
	check      *contract.Check
}

func (r *Runner) executeChecks(ctx context.Context, contracts []*contract.Contract, files []string) []checks.Result {
	var jobs []checkJob
	for _, c := range contracts {
		for _, chk := range r.contracts.Resolve(c) {
			jobs = append(jobs, checkJob{contractID: c.Name, check: chk})
		}
	}

	if !r.cfg.Parallel {
		var results []checks.Result
		for _, job := range jobs {
			results = append(results, r.runOne(ctx, job, files)...)
		}
		return results
	}

	// Bounded worker pool. Result collection is the only shared state
	// and is mutex-guarded; result order is restored by sorting later.
	sem := semaphore.NewWeighted(int64(r.cfg.MaxWorkers))
	var mu sync.Mutex
	var wg sync.WaitGroup
	var results []checks.Result

	for _, job := range jobs {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(job checkJob) {
			defer wg.Done()
			defer sem.Release(1)
			out := r.runOne(ctx, job, files)
			mu.Lock()
			results = append(results, out...)
			mu.Unlock()
		}(job)
	}
	wg.Wait()
	return results
}

// runOne executes a single check, consulting the cache outside full
// mode. Executor.Run already degrades handler faults to error results.
func (r *Runner) runOne(ctx context.Context, job checkJob, files []string) []checks.Result {
	useCache := r.cache != nil && r.cfg.Mode != ModeFull
	var key string
	if useCache {
		key = r.cache.Key(job.contractID+"/"+job.check.ID, r.repoRoot, files)
		if cached := r.cache.Get(key); cached != nil {
			return cached
		}
	}
	results := r.executor.Run(ctx, job.contractID, job.check, r.repoRoot, files)
	if useCache {
		r.cache.Put(key, results)
	}
	return results
}

// failingViolations filters the report to non-exempt open violations.
func failingViolations(all []*violation.Violation) []*violation.Violation {
	var failing []*violation.Violation
	for _, v := range all {
		if !v.Exempted {
			failing = append(failing, v)
		}
	}
	return failing
}

// determineExitCode applies gating policies in fixed priority order:
// absolute error threshold, then ratchet, then PR baseline comparison,
// then the severity floor over the raw list.
func (r *Runner) determineExitCode(failing []*violation.Violation, comparison *baseline.Comparison) int {
	if r.cfg.TotalErrorsThreshold > 0 {
		errCount := 0
		for _, v := range failing {
			if v.Severity == contract.SeverityError {
				errCount++
			}
		}
		if errCount > r.cfg.TotalErrorsThreshold {
			return ExitViolations
		}
	}

	if r.cfg.RatchetEnabled && comparison != nil {
		if comparison.ShouldFailRatchet() {
			return ExitViolations
		}
		return ExitSuccess
	}

	if comparison != nil {
		if comparison.ShouldFail(r.cfg.FailOnNewErrors, r.cfg.FailOnNewWarnings) {
			return ExitViolations
		}
		return ExitSuccess
	}

	floor := r.cfg.FailOn.Rank()
	for _, v := range failing {
		if v.Severity.Rank() <= floor {
			return ExitViolations
		}
	}
	return ExitSuccess
}
