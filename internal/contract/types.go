package contract

import "github.com/codeconform/conform/internal/pathmatch"

// Severity classifies how serious a check failure is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Rank orders severities for sorting, most severe first.
// Unknown severities sort last.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	default:
		return 3
	}
}

// CheckType identifies which handler evaluates a check.
type CheckType string

const (
	CheckPattern              CheckType = "pattern"
	CheckCommand              CheckType = "command"
	CheckFileExists           CheckType = "file-exists"
	CheckStructuralMetric     CheckType = "structural-metric"
	CheckCustom               CheckType = "custom"
	CheckLayerImport          CheckType = "layer-import"
	CheckConstructorInjection CheckType = "constructor-injection"
	CheckDomainPurity         CheckType = "domain-purity"
	CheckCircularImport       CheckType = "circular-import"
	CheckNestedContract       CheckType = "nested-contract"
)

// PathScope restricts a check to matching files.
// Empty Paths means every file is in scope.
type PathScope struct {
	Paths        []string `yaml:"paths"`
	ExcludePaths []string `yaml:"exclude_paths"`
}

// Matches reports whether the repo-relative path is in scope:
// it must match at least one include glob (or the include list must be
// empty) and no exclude glob.
func (s PathScope) Matches(relPath string) bool {
	if !pathmatch.MatchAny(s.Paths, relPath) {
		return false
	}
	for _, ex := range s.ExcludePaths {
		if pathmatch.Match(ex, relPath) {
			return false
		}
	}
	return true
}

// Check is a single rule definition inside a contract.
type Check struct {
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name"`
	Type      CheckType      `yaml:"type"`
	Severity  Severity       `yaml:"severity"`
	Enabled   *bool          `yaml:"enabled"`
	AppliesTo PathScope      `yaml:"applies_to"`
	FixHint   string         `yaml:"fix_hint"`
	Config    map[string]any `yaml:",inline"`
}

// IsEnabled treats a missing enabled flag as enabled.
func (c *Check) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// AppliesFilter restricts which repositories a contract applies to.
// An empty list matches everything.
type AppliesFilter struct {
	Languages []string `yaml:"languages"`
	RepoTypes []string `yaml:"repo_types"`
}

// Contract is a named, versioned bundle of checks, optionally
// inheriting checks from parent contracts via Extends.
type Contract struct {
	Name        string        `yaml:"name"`
	Type        string        `yaml:"type"`
	Description string        `yaml:"description"`
	Version     string        `yaml:"version"`
	Enabled     *bool         `yaml:"enabled"`
	Extends     []string      `yaml:"extends"`
	AppliesTo   AppliesFilter `yaml:"applies_to"`
	Tags        []string      `yaml:"tags"`

	// Checks declared directly on this contract.
	Checks []*Check `yaml:"-"`

	// Tier the contract was loaded from; later tiers override earlier ones.
	Tier Tier `yaml:"-"`

	// resolvedChecks caches the inheritance-merged check list.
	resolvedChecks []*Check
}

// IsEnabled treats a missing enabled flag as enabled.
func (c *Contract) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// IsAbstract reports whether this contract exists only to be extended.
// Abstract contracts are a naming convention, not a type flag: either the
// name carries an "abstract-" prefix or the tags include "abstract".
func (c *Contract) IsAbstract() bool {
	if len(c.Name) > 9 && c.Name[:9] == "abstract-" {
		return true
	}
	for _, t := range c.Tags {
		if t == "abstract" {
			return true
		}
	}
	return false
}

// Matches reports whether the contract applies to the given language and
// repository type. Empty filter lists match anything.
func (c *Contract) Matches(language, repoType string) bool {
	return matchesFilter(c.AppliesTo.Languages, language) &&
		matchesFilter(c.AppliesTo.RepoTypes, repoType)
}

func matchesFilter(allowed []string, value string) bool {
	if len(allowed) == 0 || value == "" {
		return true
	}
	for _, a := range allowed {
		if a == value || a == "*" {
			return true
		}
	}
	return false
}

// Tier identifies where a contract was loaded from.
// Later tiers override earlier tiers by contract name.
type Tier int

const (
	TierBuiltin Tier = iota
	TierGlobal
	TierWorkspace
	TierRepo
)

func (t Tier) String() string {
	switch t {
	case TierBuiltin:
		return "builtin"
	case TierGlobal:
		return "global"
	case TierWorkspace:
		return "workspace"
	case TierRepo:
		return "repo"
	default:
		return "unknown"
	}
}
