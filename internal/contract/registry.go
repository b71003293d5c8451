package contract

import (
	"fmt"
	"os"
	"sort"
	"sync"
)

// TierDirs names the contract directory for each loading tier.
// Empty entries are skipped.
type TierDirs struct {
	Builtin   string
	Global    string
	Workspace string
	Repo      string
}

// Registry loads contracts from tiered directories and resolves
// their inheritance chains. Construct with NewRegistry and pass by
// reference; there is no package-level instance.
type Registry struct {
	mu        sync.RWMutex
	dirs      TierDirs
	contracts map[string]*Contract
	warn      func(format string, args ...any)
}

// Option configures a Registry.
type Option func(*Registry)

// WithWarnFunc overrides where load warnings go. The default writes
// to stderr.
func WithWarnFunc(warn func(format string, args ...any)) Option {
	return func(r *Registry) { r.warn = warn }
}

// NewRegistry creates a registry over the given tier directories.
// Call Discover before querying.
func NewRegistry(dirs TierDirs, opts ...Option) *Registry {
	r := &Registry{
		dirs:      dirs,
		contracts: make(map[string]*Contract),
		warn: func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Discover loads every tier in order builtin, global, workspace, repo.
// A contract loaded in a later tier replaces any earlier contract with
// the same name. Malformed files are skipped with a warning. Repeated
// calls reload from scratch.
func (r *Registry) Discover() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.contracts = make(map[string]*Contract)
	tiers := []struct {
		tier Tier
		dir  string
	}{
		{TierBuiltin, r.dirs.Builtin},
		{TierGlobal, r.dirs.Global},
		{TierWorkspace, r.dirs.Workspace},
		{TierRepo, r.dirs.Repo},
	}
	for _, t := range tiers {
		if t.dir == "" {
			continue
		}
		for _, c := range loadDir(t.dir, r.warn) {
			c.Tier = t.tier
			r.contracts[c.Name] = c
		}
	}
	return len(r.contracts)
}

// Add registers a contract directly, bypassing the tier directories.
// Used by tests and by embedded builtin contracts.
func (r *Registry) Add(c *Contract) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contracts[c.Name] = c
}

// Get returns a contract by name.
func (r *Registry) Get(name string) (*Contract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contracts[name]
	return c, ok
}

// Names returns all loaded contract names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.contracts))
	for name := range r.contracts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the contract's full check list with inheritance applied:
// a depth-first walk of Extends merges each ancestor's checks, de-duplicated
// by check ID with the contract's own checks taking precedence. A name
// already on the current walk path is a cycle and is skipped with a warning,
// as are unknown parents. Only the contract Resolve was called on caches
// its merged list; mid-walk ancestors are recomputed each time, so cyclic
// chains resolve the same regardless of which member resolves first.
func (r *Registry) Resolve(c *Contract) []*Check {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.resolvedChecks != nil {
		return c.resolvedChecks
	}
	c.resolvedChecks = r.resolveLocked(c, map[string]bool{c.Name: true})
	return c.resolvedChecks
}

func (r *Registry) resolveLocked(c *Contract, path map[string]bool) []*Check {
	seen := make(map[string]bool, len(c.Checks))
	merged := make([]*Check, 0, len(c.Checks))
	for _, chk := range c.Checks {
		if !seen[chk.ID] {
			seen[chk.ID] = true
			merged = append(merged, chk)
		}
	}

	for _, parentName := range c.Extends {
		if path[parentName] {
			r.warn("contract %s: inheritance cycle through %s, skipping", c.Name, parentName)
			continue
		}
		parent, ok := r.contracts[parentName]
		if !ok {
			r.warn("contract %s: unknown parent %s, skipping", c.Name, parentName)
			continue
		}
		path[parentName] = true
		for _, chk := range r.resolveLocked(parent, path) {
			if !seen[chk.ID] {
				seen[chk.ID] = true
				merged = append(merged, chk)
			}
		}
		delete(path, parentName)
	}
	return merged
}

// Applicable returns the enabled, non-abstract contracts whose applies_to
// filters match the given language and repository type, with inheritance
// resolved. Results are sorted by name for deterministic runs.
func (r *Registry) Applicable(language, repoType string) []*Contract {
	r.mu.RLock()
	var candidates []*Contract
	for _, c := range r.contracts {
		if c.IsEnabled() && !c.IsAbstract() && c.Matches(language, repoType) {
			candidates = append(candidates, c)
		}
	}
	r.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Name < candidates[j].Name
	})
	for _, c := range candidates {
		r.Resolve(c)
	}
	return candidates
}

// ResolvedChecks returns the cached inheritance-merged checks, resolving
// them on first use.
func (r *Registry) ResolvedChecks(c *Contract) []*Check {
	return r.Resolve(c)
}
