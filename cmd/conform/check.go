package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/codeconform/conform/internal/atomicfile"
	"github.com/codeconform/conform/internal/ci"
	"github.com/codeconform/conform/internal/conformance"
	"github.com/codeconform/conform/internal/contract"
	"github.com/codeconform/conform/internal/report"
)

var checkOpts struct {
	mode              string
	language          string
	repoType          string
	paths             []string
	baseRef           string
	headRef           string
	parallel          bool
	workers           int
	cache             bool
	cacheTTL          time.Duration
	baselinePath      string
	requireBaseline   bool
	failOnNewErrors   bool
	failOnNewWarnings bool
	ratchet           bool
	errorsThreshold   int
	failOn            string
	sarifOut          string
	junitOut          string
	markdownOut       string
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run conformance checks and gate on the result",
	Long: `Run the applicable contracts against the repository, update the
violation store, and exit with the CI gating policy's verdict:

  0  success
  1  violations found
  2  configuration error
  3  runtime error
  4  baseline required but not found`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runCheck())
	},
}

func runCheck() int {
	manager, err := conformance.NewManager(repoRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ci.ExitConfigError
	}
	defer func() { _ = manager.Close() }()

	contracts, executor := loadRegistries(repoRoot)

	cfg := ci.Config{
		Mode:                 ci.Mode(checkOpts.mode),
		Language:             checkOpts.language,
		RepoType:             checkOpts.repoType,
		Paths:                checkOpts.paths,
		BaseRef:              checkOpts.baseRef,
		HeadRef:              checkOpts.headRef,
		Parallel:             checkOpts.parallel,
		MaxWorkers:           checkOpts.workers,
		CacheEnabled:         checkOpts.cache,
		CacheTTL:             checkOpts.cacheTTL,
		BaselinePath:         checkOpts.baselinePath,
		RequireBaseline:      checkOpts.requireBaseline,
		FailOnNewErrors:      checkOpts.failOnNewErrors,
		FailOnNewWarnings:    checkOpts.failOnNewWarnings,
		RatchetEnabled:       checkOpts.ratchet,
		TotalErrorsThreshold: checkOpts.errorsThreshold,
		FailOn:               contract.Severity(checkOpts.failOn),
	}

	runner := ci.NewRunner(cfg, repoRoot, contracts, executor, manager)
	result := runner.Run(context.Background())

	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "Error: %s\n", e)
	}

	if latest, err := manager.LatestReport(); err == nil {
		report.Console(os.Stdout, latest, result.Comparison)
		writeOutputs(latest, result)
	}
	fmt.Printf("\nChecked %d contracts over %d files in %s\n",
		result.ContractsRun, result.FilesChecked, result.Duration.Round(time.Millisecond))
	return result.ExitCode
}

func writeOutputs(latest *conformance.Report, result *ci.Result) {
	if checkOpts.sarifOut != "" {
		if data, err := report.SARIF(result.Violations); err == nil {
			if err := atomicfile.Write(checkOpts.sarifOut, data, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "warning: writing SARIF: %v\n", err)
			}
		}
	}
	if checkOpts.junitOut != "" {
		if data, err := report.JUnit(result.Violations); err == nil {
			if err := atomicfile.Write(checkOpts.junitOut, data, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "warning: writing JUnit report: %v\n", err)
			}
		}
	}
	if checkOpts.markdownOut != "" {
		if err := atomicfile.Write(checkOpts.markdownOut, []byte(report.Markdown(latest)), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "warning: writing markdown summary: %v\n", err)
		}
	}
}

func init() {
	f := checkCmd.Flags()
	f.StringVar(&checkOpts.mode, "mode", "full", "run mode: full, incremental, pr")
	f.StringVar(&checkOpts.language, "language", "", "language filter for contract selection")
	f.StringVar(&checkOpts.repoType, "repo-type", "", "repo-type filter for contract selection")
	f.StringSliceVar(&checkOpts.paths, "path", nil, "explicit file list for incremental mode")
	f.StringVar(&checkOpts.baseRef, "base", "", "base ref for PR-mode changed-file detection")
	f.StringVar(&checkOpts.headRef, "head", "HEAD", "head ref for PR-mode changed-file detection")
	f.BoolVar(&checkOpts.parallel, "parallel", false, "run checks on a bounded worker pool")
	f.IntVar(&checkOpts.workers, "workers", 4, "worker pool size")
	f.BoolVar(&checkOpts.cache, "cache", false, "cache check results (ignored in full mode)")
	f.DurationVar(&checkOpts.cacheTTL, "cache-ttl", 15*time.Minute, "check cache TTL")
	f.StringVar(&checkOpts.baselinePath, "baseline", "", "baseline file for comparison")
	f.BoolVar(&checkOpts.requireBaseline, "require-baseline", false, "fail with exit 4 when the baseline is missing")
	f.BoolVar(&checkOpts.failOnNewErrors, "fail-on-new-errors", true, "fail when new error-severity violations appear")
	f.BoolVar(&checkOpts.failOnNewWarnings, "fail-on-new-warnings", false, "fail when new warning-severity violations appear")
	f.BoolVar(&checkOpts.ratchet, "ratchet", false, "fail only when net violations increase vs baseline")
	f.IntVar(&checkOpts.errorsThreshold, "max-errors", 0, "absolute error-count threshold (0 disables)")
	f.StringVar(&checkOpts.failOn, "fail-on", "error", "severity floor for the fallback policy")
	f.StringVar(&checkOpts.sarifOut, "sarif", "", "write SARIF 2.1.0 output to file")
	f.StringVar(&checkOpts.junitOut, "junit", "", "write JUnit XML output to file")
	f.StringVar(&checkOpts.markdownOut, "markdown", "", "write markdown summary to file")
	rootCmd.AddCommand(checkCmd)
}
