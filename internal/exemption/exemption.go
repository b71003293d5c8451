// Package exemption implements documented, scoped, optionally
// time-limited waivers for conformance checks.
package exemption

import (
	"time"

	"github.com/codeconform/conform/internal/pathmatch"
)

// Status of an exemption record.
type Status string

const (
	StatusActive   Status = "active"
	StatusExpired  Status = "expired"
	StatusResolved Status = "resolved"
)

// Scope limits which violations an exemption covers. Exactly one of the
// three forms is normally set; precedence at match time is violation-ID
// list, then file patterns, then global.
type Scope struct {
	Global       bool     `yaml:"global"`
	Files        []string `yaml:"files"`
	LineStart    int      `yaml:"line_start"`
	LineEnd      int      `yaml:"line_end"`
	ViolationIDs []string `yaml:"violation_ids"`
}

// Exemption is a waiver for specific checks of a contract.
type Exemption struct {
	ID           string     `yaml:"id"`
	Contract     string     `yaml:"contract"`
	Checks       []string   `yaml:"checks"` // "*" covers every check
	Reason       string     `yaml:"reason"`
	ApprovedBy   string     `yaml:"approved_by"`
	ApprovedDate *time.Time `yaml:"approved_date"`
	Expires      *time.Time `yaml:"expires"`
	ReviewDate   *time.Time `yaml:"review_date"`
	Ticket       string     `yaml:"ticket"`
	Status       Status     `yaml:"status"`
	Scope        Scope      `yaml:"scope"`
}

// IsExpired reports whether the exemption's expiry has passed. Expiry is
// evaluated lazily at match time or during an explicit audit; it is never
// swept eagerly.
func (e *Exemption) IsExpired(now time.Time) bool {
	return e.Expires != nil && now.After(*e.Expires)
}

// CoversCheck reports whether the exemption applies to the given
// contract and check.
func (e *Exemption) CoversCheck(contractID, checkID string) bool {
	if e.Contract != "" && e.Contract != contractID {
		return false
	}
	if len(e.Checks) == 0 {
		return false
	}
	for _, c := range e.Checks {
		if c == "*" || c == checkID {
			return true
		}
	}
	return false
}

// CoversLocation reports whether the exemption's scope covers a violation
// at the given file/line, identified by violationID. Checked in order:
// explicit violation-id match, then file-pattern match (with line
// containment when a range is set), then global scope.
func (e *Exemption) CoversLocation(violationID, file string, line int) bool {
	for _, id := range e.Scope.ViolationIDs {
		if id == violationID {
			return true
		}
	}
	if len(e.Scope.Files) > 0 {
		for _, pattern := range e.Scope.Files {
			if pathmatch.Match(pattern, file) {
				if e.Scope.LineStart > 0 || e.Scope.LineEnd > 0 {
					return line >= e.Scope.LineStart && (e.Scope.LineEnd == 0 || line <= e.Scope.LineEnd)
				}
				return true
			}
		}
		return false
	}
	return e.Scope.Global
}
