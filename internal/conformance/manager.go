// Package conformance orchestrates one check run end-to-end: it feeds
// executor results through the violation lifecycle, links exemptions,
// computes the summary and trend, and persists the report.
package conformance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/codeconform/conform/internal/atomicfile"
	"github.com/codeconform/conform/internal/baseline"
	"github.com/codeconform/conform/internal/checks"
	"github.com/codeconform/conform/internal/exemption"
	"github.com/codeconform/conform/internal/violation"
)

// StateDirName is the repo-local state directory.
const StateDirName = ".conform"

// ErrAlreadyInitialized reports an Initialize on an existing state dir.
var ErrAlreadyInitialized = errors.New("conformance state already initialized")

// ErrNotInitialized reports a missing state dir.
var ErrNotInitialized = errors.New("conformance state not initialized (run init first)")

// Manager owns the on-disk conformance state for one repository.
type Manager struct {
	repoRoot string
	stateDir string

	store      *violation.Store
	exemptions *exemption.Resolver
	history    *baseline.History

	now  func() time.Time
	warn func(format string, args ...any)
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock substitutes the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithWarnFunc overrides where warnings go.
func WithWarnFunc(warn func(format string, args ...any)) Option {
	return func(m *Manager) { m.warn = warn }
}

// Initialize creates the on-disk layout under repoRoot:
//
//	.conform/violations/  sqlite violation store (local-only)
//	.conform/exemptions/  exemption YAML files (committed)
//	.conform/history/     daily snapshots
//	.conform/reports/     run reports (local-only)
//	.conform/cache/       CI check-result cache (local-only)
//
// plus a .gitignore covering the local-only state and an empty initial
// report. Fails with ErrAlreadyInitialized unless force is set.
func Initialize(repoRoot string, force bool) error {
	stateDir := filepath.Join(repoRoot, StateDirName)
	if _, err := os.Stat(stateDir); err == nil && !force {
		return fmt.Errorf("%w: %s", ErrAlreadyInitialized, stateDir)
	}

	for _, sub := range []string{"violations", "exemptions", "history", "reports", "cache"} {
		if err := os.MkdirAll(filepath.Join(stateDir, sub), 0755); err != nil {
			return fmt.Errorf("creating state layout: %w", err)
		}
	}

	ignore := "violations/\nreports/\ncache/\n"
	if err := atomicfile.Write(filepath.Join(stateDir, ".gitignore"), []byte(ignore), 0644); err != nil {
		return fmt.Errorf("writing ignore rules: %w", err)
	}

	empty := &Report{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Summary:     Summary{ComplianceRate: 1.0, BySeverity: map[string]int{}, ByContract: map[string]int{}},
	}
	return atomicfile.WriteJSON(filepath.Join(stateDir, "reports", "latest.json"), empty)
}

// NewManager opens the state under repoRoot. The state must exist.
func NewManager(repoRoot string, opts ...Option) (*Manager, error) {
	stateDir := filepath.Join(repoRoot, StateDirName)
	if _, err := os.Stat(stateDir); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, stateDir)
	}

	m := &Manager{
		repoRoot: repoRoot,
		stateDir: stateDir,
		now:      time.Now,
		warn: func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
		},
	}
	for _, opt := range opts {
		opt(m)
	}

	store, err := violation.Open(filepath.Join(stateDir, "violations", "violations.db"))
	if err != nil {
		return nil, err
	}
	m.store = store

	m.exemptions = exemption.NewResolver(
		exemption.WithClock(m.now),
		exemption.WithWarnFunc(m.warn),
	)
	m.exemptions.Load(filepath.Join(stateDir, "exemptions"))
	m.applyExemptionOverlay()

	m.history = baseline.NewHistory(filepath.Join(stateDir, "history"))
	return m, nil
}

// Close releases the violation store.
func (m *Manager) Close() error { return m.store.Close() }

// Store exposes the violation store to the CI runner.
func (m *Manager) Store() *violation.Store { return m.store }

// Exemptions exposes the exemption resolver.
func (m *Manager) Exemptions() *exemption.Resolver { return m.exemptions }

// RunConformanceCheck feeds one run's executor results through the
// violation lifecycle and persists the resulting report.
func (m *Manager) RunConformanceCheck(ctx context.Context, results []checks.Result, contractsChecked, filesChecked int, fullRun bool) (*Report, error) {
	now := m.now().UTC()
	seen := make(map[string]bool)
	passed := 0

	// Step 1: record or refresh each failure.
	for i := range results {
		r := &results[i]
		if r.Passed {
			passed++
			continue
		}
		id := violation.Identity(r.ContractID, r.CheckID, r.File, r.Line, r.RuleID)
		seen[id] = true

		existing, err := m.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			existing.LastSeen = now
			existing.Message = r.Message
			existing.Severity = r.Severity
			existing.FixHint = r.FixHint
			if existing.Status != violation.StatusOpen {
				existing.Status = violation.StatusOpen
				existing.ResolvedReason = ""
			}
			if err := m.store.Save(ctx, existing); err != nil {
				return nil, err
			}
			continue
		}
		v := &violation.Violation{
			ID:            id,
			ContractID:    r.ContractID,
			CheckID:       r.CheckID,
			File:          filepath.ToSlash(r.File),
			Line:          r.Line,
			RuleID:        r.RuleID,
			Severity:      r.Severity,
			Message:       r.Message,
			FixHint:       r.FixHint,
			Status:        violation.StatusOpen,
			FirstDetected: now,
			LastSeen:      now,
		}
		if err := m.store.Save(ctx, v); err != nil {
			return nil, err
		}
	}

	// Step 2: sweep previously open/stale violations not reproduced this
	// run. A full run proves absence; an incremental run only proves we
	// didn't look, so the violation goes stale instead of resolved.
	tracked, err := m.store.ListByStatuses(ctx, violation.StatusOpen, violation.StatusStale, violation.StatusExemptionExpired)
	if err != nil {
		return nil, err
	}
	for _, v := range tracked {
		if seen[v.ID] {
			continue
		}
		if fullRun {
			if err := m.store.SetStatus(ctx, v.ID, violation.StatusResolved, "not detected in full run"); err != nil {
				return nil, err
			}
		} else if v.Status == violation.StatusOpen {
			if err := m.store.SetStatus(ctx, v.ID, violation.StatusStale, ""); err != nil {
				return nil, err
			}
		}
	}

	// Step 3: link exemptions for every open violation. An expired
	// match flips the exemption's own status; the violation stays open.
	var expiredExemptions []string
	open, err := m.store.ListByStatuses(ctx, violation.StatusOpen, violation.StatusExemptionExpired)
	if err != nil {
		return nil, err
	}
	for _, v := range open {
		match, active := m.exemptions.Find(v.ContractID, v.CheckID, v.ID, v.File, v.Line)
		switch {
		case active:
			v.Exempted = true
			v.ExemptionID = match.ID
			v.Status = violation.StatusOpen
		case match != nil:
			// The exemption's own status flips to expired; the violation
			// is not forcibly reopened, it moves to exemption_expired so
			// the lapse stays visible.
			match.Status = exemption.StatusExpired
			expiredExemptions = append(expiredExemptions, match.ID)
			v.Exempted = false
			v.ExemptionID = match.ID
			v.Status = violation.StatusExemptionExpired
		default:
			v.Exempted = false
			v.ExemptionID = ""
		}
		if err := m.store.Save(ctx, v); err != nil {
			return nil, err
		}
	}
	if len(expiredExemptions) > 0 {
		m.saveExemptionOverlay()
	}

	// Step 4: summary, trend, persistence.
	report, err := m.buildReport(ctx, passed, contractsChecked, filesChecked, fullRun)
	if err != nil {
		return nil, err
	}
	if err := m.persistReport(report); err != nil {
		return nil, err
	}
	return report, nil
}

func (m *Manager) buildReport(ctx context.Context, passed, contractsChecked, filesChecked int, fullRun bool) (*Report, error) {
	open, err := m.store.ListByStatuses(ctx, violation.StatusOpen, violation.StatusExemptionExpired)
	if err != nil {
		return nil, err
	}
	staleCounts, err := m.store.Counts(ctx, "status")
	if err != nil {
		return nil, err
	}

	summary := Summary{
		Passed:     passed,
		Stale:      staleCounts[string(violation.StatusStale)],
		BySeverity: make(map[string]int),
		ByContract: make(map[string]int),
	}
	for _, v := range open {
		if v.Exempted {
			summary.Exempted++
		} else {
			summary.Failed++
			summary.BySeverity[string(v.Severity)]++
			summary.ByContract[v.ContractID]++
		}
	}
	summary.Total = summary.Passed + summary.Failed + summary.Exempted
	if summary.Total == 0 {
		summary.ComplianceRate = 1.0
	} else {
		summary.ComplianceRate = float64(summary.Passed) / float64(summary.Total)
	}

	report := &Report{
		RunID:            uuid.NewString(),
		GeneratedAt:      m.now().UTC(),
		FullRun:          fullRun,
		ContractsChecked: contractsChecked,
		FilesChecked:     filesChecked,
		Summary:          summary,
		Violations:       open,
	}

	today := report.GeneratedAt.Format("2006-01-02")
	snapshot := &baseline.HistorySnapshot{
		Date:           today,
		Total:          summary.Total,
		Passed:         summary.Passed,
		Failed:         summary.Failed,
		Exempted:       summary.Exempted,
		Stale:          summary.Stale,
		ComplianceRate: summary.ComplianceRate,
	}
	previous, err := m.history.Latest(today)
	if err != nil {
		m.warn("reading history: %v", err)
	} else if previous != nil {
		delta := snapshot.DeltaFrom(previous)
		report.Trend = &delta
	}
	if err := m.history.Record(snapshot); err != nil {
		m.warn("recording history snapshot: %v", err)
	}
	return report, nil
}

func (m *Manager) persistReport(report *Report) error {
	return atomicfile.WriteJSON(filepath.Join(m.stateDir, "reports", "latest.json"), report)
}

// LatestReport reads the most recently persisted report.
func (m *Manager) LatestReport() (*Report, error) {
	data, err := os.ReadFile(filepath.Join(m.stateDir, "reports", "latest.json"))
	if err != nil {
		return nil, fmt.Errorf("reading latest report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing latest report: %w", err)
	}
	return &r, nil
}

// ListViolations returns violations matching the filter, most severe
// first.
func (m *Manager) ListViolations(ctx context.Context, f violation.Filter) ([]*violation.Violation, error) {
	return m.store.List(ctx, f)
}

// ResolveViolation marks one violation resolved with a reason.
func (m *Manager) ResolveViolation(ctx context.Context, id, reason string) error {
	return m.store.SetStatus(ctx, id, violation.StatusResolved, reason)
}

// PruneViolations deletes resolved/stale violations older than the
// given age. Open violations are never pruned. Returns the count
// affected; with dryRun, nothing is deleted.
func (m *Manager) PruneViolations(ctx context.Context, olderThanDays int, dryRun bool) (int, error) {
	return m.store.Prune(ctx, time.Duration(olderThanDays)*24*time.Hour, dryRun)
}

// GetSummaryStats recomputes aggregate counts from the store.
func (m *Manager) GetSummaryStats(ctx context.Context) (map[string]int, error) {
	byStatus, err := m.store.Counts(ctx, "status")
	if err != nil {
		return nil, err
	}
	bySeverity, err := m.store.Counts(ctx, "severity")
	if err != nil {
		return nil, err
	}
	stats := make(map[string]int)
	total := 0
	for k, n := range byStatus {
		stats["status:"+k] = n
		total += n
	}
	for k, n := range bySeverity {
		stats["severity:"+k] = n
	}
	stats["total"] = total
	return stats, nil
}

// Exemption status changes (lazy expiry) are persisted as an overlay
// rather than rewriting the user's exemption files.
type exemptionOverlay struct {
	Statuses map[string]exemption.Status `json:"statuses"`
}

func (m *Manager) overlayPath() string {
	return filepath.Join(m.stateDir, "exemptions", "state.json")
}

func (m *Manager) applyExemptionOverlay() {
	data, err := os.ReadFile(m.overlayPath())
	if err != nil {
		return
	}
	var overlay exemptionOverlay
	if err := json.Unmarshal(data, &overlay); err != nil {
		m.warn("ignoring malformed exemption overlay: %v", err)
		return
	}
	for _, e := range m.exemptions.All() {
		if st, ok := overlay.Statuses[e.ID]; ok {
			e.Status = st
		}
	}
}

func (m *Manager) saveExemptionOverlay() {
	overlay := exemptionOverlay{Statuses: make(map[string]exemption.Status)}
	for _, e := range m.exemptions.All() {
		if e.Status != exemption.StatusActive {
			overlay.Statuses[e.ID] = e.Status
		}
	}
	if err := atomicfile.WriteJSON(m.overlayPath(), overlay); err != nil {
		m.warn("persisting exemption statuses: %v", err)
	}
}
