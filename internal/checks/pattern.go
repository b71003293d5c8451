package checks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/codeconform/conform/internal/contract"
)

// PatternHandler evaluates named regular expressions per file.
//
// Config:
//
//	patterns:
//	  - name: no-print
//	    regex: 'print\('
//	    message: use the logger instead of print
//	negative_match: false
//
// By default finding a pattern is the failure. With negative_match set,
// the pattern is required: its absence from a file is the failure.
type PatternHandler struct {
	mu    sync.Mutex
	cache map[string]*regexp.Regexp
}

// NewPatternHandler returns a pattern handler with a compiled-regex cache.
func NewPatternHandler() *PatternHandler {
	return &PatternHandler{cache: make(map[string]*regexp.Regexp)}
}

func (h *PatternHandler) compile(expr string) (*regexp.Regexp, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if re, ok := h.cache[expr]; ok {
		return re, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	h.cache[expr] = re
	return re, nil
}

type namedPattern struct {
	name    string
	re      *regexp.Regexp
	message string
}

// Execute implements Handler.
func (h *PatternHandler) Execute(ctx context.Context, check *contract.Check, repoRoot string, files []string) ([]Result, error) {
	specs := cfgMapSlice(check.Config, "patterns")
	if len(specs) == 0 {
		if expr := cfgString(check.Config, "pattern", ""); expr != "" {
			specs = []map[string]any{{"regex": expr}}
		}
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("pattern check %s has no patterns", check.ID)
	}

	var patterns []namedPattern
	for i, spec := range specs {
		expr := cfgString(spec, "regex", cfgString(spec, "pattern", ""))
		if expr == "" {
			return nil, fmt.Errorf("pattern check %s: pattern %d has no regex", check.ID, i)
		}
		re, err := h.compile(expr)
		if err != nil {
			return nil, fmt.Errorf("pattern check %s: invalid regex %q: %w", check.ID, expr, err)
		}
		name := cfgString(spec, "name", "")
		if name == "" {
			name = fmt.Sprintf("pattern-%d", i)
		}
		patterns = append(patterns, namedPattern{name: name, re: re, message: cfgString(spec, "message", "")})
	}
	negative := cfgBool(check.Config, "negative_match", false)

	var results []Result
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		data, err := os.ReadFile(filepath.Join(repoRoot, file))
		if err != nil {
			results = append(results, Result{
				File:    file,
				Message: fmt.Sprintf("unreadable file: %v", err),
			})
			continue
		}
		lines := strings.Split(string(data), "\n")

		for _, p := range patterns {
			found := false
			for i, line := range lines {
				if !p.re.MatchString(line) {
					continue
				}
				found = true
				if negative {
					break
				}
				msg := p.message
				if msg == "" {
					msg = fmt.Sprintf("forbidden pattern %q matched", p.name)
				}
				results = append(results, Result{
					File:    file,
					Line:    i + 1,
					Message: msg,
					RuleID:  p.name,
				})
			}
			switch {
			case negative && !found:
				msg := p.message
				if msg == "" {
					msg = fmt.Sprintf("required pattern %q not found", p.name)
				}
				results = append(results, Result{File: file, Message: msg, RuleID: p.name})
			case negative && found, !negative && !found:
				results = append(results, Result{File: file, Passed: true, RuleID: p.name})
			}
		}
	}
	return results, nil
}
