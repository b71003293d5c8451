package conformance

import (
	"time"

	"github.com/codeconform/conform/internal/baseline"
	"github.com/codeconform/conform/internal/violation"
)

// Summary aggregates one conformance run.
type Summary struct {
	Total    int `json:"total"`
	Passed   int `json:"passed"`
	Failed   int `json:"failed"`
	Exempted int `json:"exempted"`
	Stale    int `json:"stale"`
	// ComplianceRate = passed/total, defined as 1.0 when total is 0.
	ComplianceRate float64        `json:"compliance_rate"`
	BySeverity     map[string]int `json:"by_severity"`
	ByContract     map[string]int `json:"by_contract"`
}

// Report is the persisted outcome of one conformance run.
type Report struct {
	RunID            string                 `json:"run_id"`
	GeneratedAt      time.Time              `json:"generated_at"`
	FullRun          bool                   `json:"full_run"`
	ContractsChecked int                    `json:"contracts_checked"`
	FilesChecked     int                    `json:"files_checked"`
	Summary          Summary                `json:"summary"`
	// Trend is the delta versus the previous day's snapshot, nil on the
	// first recorded day.
	Trend      *baseline.Delta        `json:"trend,omitempty"`
	Violations []*violation.Violation `json:"violations"`
}
