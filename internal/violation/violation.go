// Package violation persists check failures across runs, keyed by a
// stable identity hash, and manages their status lifecycle.
package violation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/codeconform/conform/internal/contract"
)

// Status of a tracked violation.
type Status string

const (
	// StatusOpen: detected and not yet fixed.
	StatusOpen Status = "open"
	// StatusResolved: absent from a full run, or explicitly resolved.
	StatusResolved Status = "resolved"
	// StatusStale: absent from an incremental run, which did not scan
	// enough of the tree to prove it is fixed.
	StatusStale Status = "stale"
	// StatusExemptionExpired: the linked exemption lapsed.
	StatusExemptionExpired Status = "exemption_expired"
)

// Violation is one persisted check failure at one location.
type Violation struct {
	ID             string            `json:"id"`
	ContractID     string            `json:"contract_id"`
	CheckID        string            `json:"check_id"`
	File           string            `json:"file"`
	Line           int               `json:"line"`
	RuleID         string            `json:"rule_id,omitempty"`
	Severity       contract.Severity `json:"severity"`
	Message        string            `json:"message"`
	FixHint        string            `json:"fix_hint,omitempty"`
	Status         Status            `json:"status"`
	Exempted       bool              `json:"exempted"`
	ExemptionID    string            `json:"exemption_id,omitempty"`
	ResolvedReason string            `json:"resolved_reason,omitempty"`
	FirstDetected  time.Time         `json:"first_detected"`
	LastSeen       time.Time         `json:"last_seen"`
}

// Identity computes the stable tracking hash for a violation location:
// contract, check, normalized file path, line, and optional rule id.
// The message is excluded so the identity survives wording changes in
// check output between tool versions. The CI baseline fingerprint in
// the baseline package is a separate, message-sensitive computation.
func Identity(contractID, checkID, file string, line int, ruleID string) string {
	normalized := strings.TrimPrefix(filepath.ToSlash(file), "./")
	input := fmt.Sprintf("%s|%s|%s|%d|%s", contractID, checkID, normalized, line, ruleID)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:16]
}
