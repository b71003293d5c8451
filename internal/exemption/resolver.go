package exemption

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// exemptionFile mirrors the on-disk YAML layout:
//
//	exemptions:
//	  - id: EX-001
//	    contract: api-standards
//	    check: no-print
type exemptionFile struct {
	Exemptions []*record `yaml:"exemptions"`
}

// record accepts both the single-check "check" key and the list form.
type record struct {
	Exemption `yaml:",inline"`
	Check     string `yaml:"check"`
}

// Resolver loads exemption declarations and answers, per violation,
// whether an active exemption covers it.
type Resolver struct {
	exemptions []*Exemption
	now        func() time.Time
	warn       func(format string, args ...any)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock substitutes the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithWarnFunc overrides where load warnings go.
func WithWarnFunc(warn func(format string, args ...any)) Option {
	return func(r *Resolver) { r.warn = warn }
}

// NewResolver creates an empty resolver. Call Load to populate it.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		now: time.Now,
		warn: func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load scans dir for exemption YAML files, sorted by filename so the
// first-match-wins resolution order is deterministic. Malformed files
// are skipped with a warning. Returns the number of exemptions loaded.
func (r *Resolver) Load(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	r.exemptions = nil
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			r.warn("skipping unreadable exemption file %s: %v", path, err)
			continue
		}
		var f exemptionFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			r.warn("skipping malformed exemption file %s: %v", path, err)
			continue
		}
		for _, rec := range f.Exemptions {
			ex := rec.Exemption
			if rec.Check != "" {
				ex.Checks = append(ex.Checks, rec.Check)
			}
			if ex.ID == "" {
				ex.ID = "EX-" + uuid.NewString()[:8]
			}
			if ex.Status == "" {
				ex.Status = StatusActive
			}
			e := ex
			r.exemptions = append(r.exemptions, &e)
		}
	}
	return len(r.exemptions)
}

// Add registers an exemption directly, bypassing file loading.
func (r *Resolver) Add(e *Exemption) {
	r.exemptions = append(r.exemptions, e)
}

// All returns every loaded exemption in load order.
func (r *Resolver) All() []*Exemption {
	return r.exemptions
}

// Find returns the first active exemption, in load order, whose check set
// and scope cover the violation. The second return distinguishes "covered
// by an exemption that has since expired": when the best match is expired
// rather than active, it is returned with active=false so the caller can
// flip its status without treating the violation as exempt.
func (r *Resolver) Find(contractID, checkID, violationID, file string, line int) (match *Exemption, active bool) {
	now := r.now()
	var expiredMatch *Exemption
	for _, e := range r.exemptions {
		if e.Status == StatusResolved {
			continue
		}
		if !e.CoversCheck(contractID, checkID) || !e.CoversLocation(violationID, file, line) {
			continue
		}
		if e.Status == StatusExpired || e.IsExpired(now) {
			if expiredMatch == nil {
				expiredMatch = e
			}
			continue
		}
		return e, true
	}
	return expiredMatch, false
}

// AuditResult summarizes an explicit exemption audit.
type AuditResult struct {
	Active     []*Exemption
	Expired    []*Exemption // status flipped to expired during this audit
	NeedReview []*Exemption // active but past their review date
}

// Audit evaluates every exemption's expiry and review date, flipping
// newly expired exemptions to StatusExpired. This is the only place an
// expiry changes persisted status outside of match time.
func (r *Resolver) Audit() *AuditResult {
	now := r.now()
	result := &AuditResult{}
	for _, e := range r.exemptions {
		if e.Status == StatusResolved {
			continue
		}
		if e.Status != StatusExpired && e.IsExpired(now) {
			e.Status = StatusExpired
		}
		if e.Status == StatusExpired {
			result.Expired = append(result.Expired, e)
			continue
		}
		result.Active = append(result.Active, e)
		if e.ReviewDate != nil && now.After(*e.ReviewDate) {
			result.NeedReview = append(result.NeedReview, e)
		}
	}
	return result
}
