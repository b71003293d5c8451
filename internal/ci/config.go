package ci

import (
	"time"

	"github.com/codeconform/conform/internal/baseline"
	"github.com/codeconform/conform/internal/contract"
	"github.com/codeconform/conform/internal/violation"
)

// Mode selects how much of the tree a CI run scans.
type Mode string

const (
	// ModeFull scans everything and may resolve absent violations.
	ModeFull Mode = "full"
	// ModeIncremental scans an explicit or derived file subset.
	ModeIncremental Mode = "incremental"
	// ModePR scans the base...head diff and gates on a baseline.
	ModePR Mode = "pr"
)

// Process exit codes.
const (
	ExitSuccess          = 0
	ExitViolations       = 1
	ExitConfigError      = 2
	ExitRuntimeError     = 3
	ExitBaselineNotFound = 4
)

// Config holds the knobs for one CI run.
type Config struct {
	Mode Mode

	// Language/repo-type filters passed to contract selection.
	Language string
	RepoType string

	// Paths, when set on an incremental run, is the explicit file list.
	Paths []string
	// BaseRef/HeadRef drive changed-file detection when Paths is empty.
	BaseRef string
	HeadRef string

	Parallel   bool
	MaxWorkers int

	CacheEnabled bool
	CacheTTL     time.Duration

	// BaselinePath, when set, enables baseline comparison.
	BaselinePath    string
	RequireBaseline bool

	FailOnNewErrors   bool
	FailOnNewWarnings bool
	RatchetEnabled    bool

	// TotalErrorsThreshold, when > 0, caps absolute error-severity
	// violations; exceeding it fails regardless of any other policy.
	TotalErrorsThreshold int

	// FailOn is the severity floor for the fallback policy. Empty
	// means error.
	FailOn contract.Severity

	// ExcludeDirs are tree-walk exclusions beyond the defaults.
	ExcludeDirs []string
}

// Result is the outcome of one CI run.
type Result struct {
	ExitCode     int
	Violations   []*violation.Violation
	Comparison   *baseline.Comparison
	ContractsRun int
	FilesChecked int
	Duration     time.Duration
	Errors       []string
}
