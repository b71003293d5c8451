// Package baseline snapshots violation fingerprints so CI can
// distinguish new findings from pre-existing ones, and keeps daily
// history snapshots for trend reporting.
package baseline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codeconform/conform/internal/atomicfile"
	"github.com/codeconform/conform/internal/contract"
	"github.com/codeconform/conform/internal/violation"
)

// SchemaVersion of the baseline file format.
const SchemaVersion = 1

// ErrNotFound reports a required baseline that is missing or unreadable.
// The CI runner maps it to a dedicated exit code.
var ErrNotFound = errors.New("baseline not found")

// Entry is one baselined violation fingerprint.
type Entry struct {
	CheckID        string    `json:"check_id"`
	FilePath       string    `json:"file_path"`
	Line           int       `json:"line"`
	MessagePreview string    `json:"message_preview"`
	FirstSeen      time.Time `json:"first_seen"`
	LastSeen       time.Time `json:"last_seen"`
}

// Baseline is a saved snapshot of violation fingerprints.
type Baseline struct {
	SchemaVersion int              `json:"schema_version"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	CommitSHA     string           `json:"commit_sha,omitempty"`
	Entries       map[string]Entry `json:"entries"`
}

// messagePreviewLen bounds how much of the message participates in the
// fingerprint and is stored in the entry.
const messagePreviewLen = 120

// Fingerprint computes the CI baseline hash for a violation. Unlike the
// tracking identity (violation.Identity), it includes a prefix of the
// message: a materially different diagnostic at the same location must
// not hide behind an old baseline entry. The two hashes diverge on
// purpose; see DESIGN.md.
func Fingerprint(checkID, file string, line int, message string) string {
	normalized := strings.TrimPrefix(filepath.ToSlash(file), "./")
	input := fmt.Sprintf("%s|%s|%d|%s", checkID, normalized, line, preview(message))
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:16]
}

func preview(message string) string {
	if len(message) > messagePreviewLen {
		return message[:messagePreviewLen]
	}
	return message
}

// New creates an empty baseline stamped with the current time.
func New(commitSHA string) *Baseline {
	now := time.Now().UTC()
	return &Baseline{
		SchemaVersion: SchemaVersion,
		CreatedAt:     now,
		UpdatedAt:     now,
		CommitSHA:     commitSHA,
		Entries:       make(map[string]Entry),
	}
}

// FromViolations builds a baseline from the current violation set.
func FromViolations(violations []*violation.Violation, commitSHA string) *Baseline {
	b := New(commitSHA)
	now := time.Now().UTC()
	for _, v := range violations {
		fp := Fingerprint(v.CheckID, v.File, v.Line, v.Message)
		b.Entries[fp] = Entry{
			CheckID:        v.CheckID,
			FilePath:       filepath.ToSlash(v.File),
			Line:           v.Line,
			MessagePreview: preview(v.Message),
			FirstSeen:      now,
			LastSeen:       now,
		}
	}
	return b
}

// Load reads a baseline file. A missing or unreadable file returns
// ErrNotFound (wrapped) so callers can map it to the dedicated exit code.
func Load(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, path, err)
	}
	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrNotFound, path, err)
	}
	if b.Entries == nil {
		b.Entries = make(map[string]Entry)
	}
	return &b, nil
}

// Save writes the baseline atomically.
func (b *Baseline) Save(path string) error {
	b.UpdatedAt = time.Now().UTC()
	return atomicfile.WriteJSON(path, b)
}

// Comparison partitions a current violation list against a baseline.
// New and Existing are disjoint subsets of the current list; Fixed are
// baseline entries whose fingerprint is absent from the current set.
type Comparison struct {
	New      []*violation.Violation
	Existing []*violation.Violation
	Fixed    []Entry
	// NetChange = |New| - |Fixed|; positive means the change introduced
	// more violations than it fixed.
	NetChange int
}

// Compare partitions current violations by fingerprint membership.
func Compare(current []*violation.Violation, b *Baseline) *Comparison {
	cmp := &Comparison{}
	currentFPs := make(map[string]bool, len(current))
	for _, v := range current {
		fp := Fingerprint(v.CheckID, v.File, v.Line, v.Message)
		currentFPs[fp] = true
		if _, ok := b.Entries[fp]; ok {
			cmp.Existing = append(cmp.Existing, v)
		} else {
			cmp.New = append(cmp.New, v)
		}
	}
	for fp, entry := range b.Entries {
		if !currentFPs[fp] {
			cmp.Fixed = append(cmp.Fixed, entry)
		}
	}
	cmp.NetChange = len(cmp.New) - len(cmp.Fixed)
	return cmp
}

// ShouldFail reports whether the new violations include any severity
// the gating policy fails on.
func (c *Comparison) ShouldFail(failOnNewErrors, failOnNewWarnings bool) bool {
	for _, v := range c.New {
		switch v.Severity {
		case contract.SeverityError:
			if failOnNewErrors {
				return true
			}
		case contract.SeverityWarning:
			if failOnNewWarnings {
				return true
			}
		}
	}
	return false
}

// ShouldFailRatchet reports whether strictly more violations were
// introduced than fixed.
func (c *Comparison) ShouldFailRatchet() bool {
	return c.NetChange > 0
}
