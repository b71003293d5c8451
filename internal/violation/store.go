package violation

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/codeconform/conform/internal/contract"
	"github.com/codeconform/conform/internal/pathmatch"
)

// Store is the sqlite-backed violation store. WAL mode gives safe
// single-writer behavior for the repo-local state model; concurrent
// runs against the same repository must be serialized by the caller.
type Store struct {
	db *sql.DB
}

// Open creates or opens the violation database at path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Save inserts or fully replaces a violation record by identity.
func (s *Store) Save(ctx context.Context, v *Violation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO violations (
			id, contract_id, check_id, file, line, rule_id, severity,
			message, fix_hint, status, exempted, exemption_id,
			resolved_reason, first_detected, last_seen
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			severity = excluded.severity,
			message = excluded.message,
			fix_hint = excluded.fix_hint,
			status = excluded.status,
			exempted = excluded.exempted,
			exemption_id = excluded.exemption_id,
			resolved_reason = excluded.resolved_reason,
			last_seen = excluded.last_seen`,
		v.ID, v.ContractID, v.CheckID, v.File, v.Line, v.RuleID, string(v.Severity),
		v.Message, v.FixHint, string(v.Status), v.Exempted, nullable(v.ExemptionID),
		nullable(v.ResolvedReason), v.FirstDetected.UTC(), v.LastSeen.UTC())
	if err != nil {
		return fmt.Errorf("failed to save violation %s: %w", v.ID, err)
	}
	return nil
}

// Get returns a violation by identity, or nil when unknown.
func (s *Store) Get(ctx context.Context, id string) (*Violation, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" FROM violations WHERE id = ?", id)
	v, err := scanViolation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get violation %s: %w", id, err)
	}
	return v, nil
}

// Filter narrows List results. Zero values mean "any".
type Filter struct {
	Status      Status
	Severity    contract.Severity
	ContractID  string
	FilePattern string
	Limit       int
}

// List returns violations matching the filter, ordered most severe
// first, then by identity for determinism. The file pattern is a glob
// applied in-process since sqlite has no ** matching.
func (s *Store) List(ctx context.Context, f Filter) ([]*Violation, error) {
	query := selectColumns + " FROM violations"
	var conds []string
	var args []any
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Severity != "" {
		conds = append(conds, "severity = ?")
		args = append(args, string(f.Severity))
	}
	if f.ContractID != "" {
		conds = append(conds, "contract_id = ?")
		args = append(args, f.ContractID)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY CASE severity
		WHEN 'error' THEN 0 WHEN 'warning' THEN 1 WHEN 'info' THEN 2 ELSE 3 END, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list violations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Violation
	for rows.Next() {
		v, err := scanViolation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan violation: %w", err)
		}
		if f.FilePattern != "" && !pathmatch.Match(f.FilePattern, v.File) {
			continue
		}
		out = append(out, v)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, rows.Err()
}

// ListByStatuses returns every violation in any of the given statuses.
func (s *Store) ListByStatuses(ctx context.Context, statuses ...Status) ([]*Violation, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
	args := make([]any, len(statuses))
	for i, st := range statuses {
		args[i] = string(st)
	}
	rows, err := s.db.QueryContext(ctx,
		selectColumns+" FROM violations WHERE status IN ("+placeholders+") ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list violations by status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Violation
	for rows.Next() {
		v, err := scanViolation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// SetStatus transitions a violation's status, recording a reason for
// resolved transitions.
func (s *Store) SetStatus(ctx context.Context, id string, status Status, reason string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE violations SET status = ?, resolved_reason = ? WHERE id = ?",
		string(status), nullable(reason), id)
	if err != nil {
		return fmt.Errorf("failed to update violation %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("violation %s not found", id)
	}
	return nil
}

// Prune deletes resolved and stale violations whose last_seen is older
// than the cutoff. Open violations are never pruned regardless of age.
// With dryRun set it only counts.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration, dryRun bool) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	where := "status IN ('resolved', 'stale') AND last_seen < ?"

	if dryRun {
		var n int
		err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM violations WHERE "+where, cutoff).Scan(&n)
		if err != nil {
			return 0, fmt.Errorf("failed to count prunable violations: %w", err)
		}
		return n, nil
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM violations WHERE "+where, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune violations: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Counts aggregates violations by a column.
func (s *Store) Counts(ctx context.Context, column string) (map[string]int, error) {
	switch column {
	case "status", "severity", "contract_id":
	default:
		return nil, fmt.Errorf("unsupported count column %q", column)
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+column+", COUNT(*) FROM violations GROUP BY "+column)
	if err != nil {
		return nil, fmt.Errorf("failed to count violations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, rows.Err()
}

const selectColumns = `SELECT id, contract_id, check_id, file, line, rule_id,
	severity, message, fix_hint, status, exempted, exemption_id,
	resolved_reason, first_detected, last_seen`

type scannable interface {
	Scan(dest ...any) error
}

func scanViolation(row scannable) (*Violation, error) {
	var v Violation
	var severity, status string
	var exemptionID, resolvedReason sql.NullString
	err := row.Scan(&v.ID, &v.ContractID, &v.CheckID, &v.File, &v.Line, &v.RuleID,
		&severity, &v.Message, &v.FixHint, &status, &v.Exempted,
		&exemptionID, &resolvedReason, &v.FirstDetected, &v.LastSeen)
	if err != nil {
		return nil, err
	}
	v.Severity = contract.Severity(severity)
	v.Status = Status(status)
	v.ExemptionID = exemptionID.String
	v.ResolvedReason = resolvedReason.String
	return &v, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
