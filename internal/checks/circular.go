package checks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codeconform/conform/internal/contract"
	"github.com/codeconform/conform/internal/lang"
)

// CircularImportHandler builds a module graph restricted to in-project
// imports and reports each distinct cycle once, as an unordered module
// set. Imports inside a type-checking-only guard can be ignored.
//
// Config:
//
//	local_prefixes: ["myapp"]  # optional; defaults to modules found in the file set
//	ignore_type_checking: true
//	max_depth: 25
type CircularImportHandler struct {
	langs *lang.Registry
}

// NewCircularImportHandler returns the circular-import handler.
func NewCircularImportHandler(langs *lang.Registry) *CircularImportHandler {
	return &CircularImportHandler{langs: langs}
}

// Execute implements Handler.
func (h *CircularImportHandler) Execute(ctx context.Context, check *contract.Check, repoRoot string, files []string) ([]Result, error) {
	ignoreGuarded := cfgBool(check.Config, "ignore_type_checking", true)
	maxDepth := cfgInt(check.Config, "max_depth", 25)
	localPrefixes := cfgStrings(check.Config, "local_prefixes")
	if goModule := lang.ModulePath(repoRoot); goModule != "" {
		localPrefixes = append(localPrefixes, goModule)
	}

	// Module name for a file: extension stripped, separators dotted.
	// "app/orders/model.py" becomes "app.orders.model".
	moduleOf := func(file string) string {
		trimmed := strings.TrimSuffix(file, filepath.Ext(file))
		trimmed = strings.TrimSuffix(trimmed, "/__init__")
		return strings.ReplaceAll(filepath.ToSlash(trimmed), "/", ".")
	}

	fileOf := make(map[string]string)
	for _, f := range files {
		fileOf[moduleOf(f)] = f
	}

	isLocal := func(module string) (string, bool) {
		if _, ok := fileOf[module]; ok {
			return module, true
		}
		// "from app.orders import model" records the package; try to
		// deepen one level toward a known module.
		for known := range fileOf {
			if strings.HasPrefix(known, module+".") {
				return module, true
			}
		}
		for _, p := range localPrefixes {
			if module == p || strings.HasPrefix(module, p+".") || strings.HasPrefix(module, p+"/") {
				return module, true
			}
		}
		return "", false
	}

	// Build the graph.
	graph := make(map[string][]string)
	importLine := make(map[string]int) // "from|to" → line, for reporting
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		adapter := h.langs.ForPath(file)
		if adapter == nil {
			continue
		}
		src, err := os.ReadFile(filepath.Join(repoRoot, file))
		if err != nil {
			continue
		}
		parsed, err := adapter.Parse(file, src)
		if err != nil {
			continue
		}
		from := moduleOf(file)
		for _, imp := range parsed.Imports {
			if ignoreGuarded && imp.TypeCheckingOnly {
				continue
			}
			target, ok := isLocal(normalizeModule(imp.Module, localPrefixes))
			if !ok || target == from {
				continue
			}
			graph[from] = append(graph[from], target)
			if _, seen := importLine[from+"|"+target]; !seen {
				importLine[from+"|"+target] = imp.Line
			}
		}
	}

	// Bounded-depth DFS from each unvisited module; each cycle is
	// canonicalized as a sorted module set and reported once.
	seenCycles := make(map[string]bool)
	var results []Result
	visited := make(map[string]bool)

	var modules []string
	for m := range graph {
		modules = append(modules, m)
	}
	sort.Strings(modules)

	var dfs func(module string, path []string)
	dfs = func(module string, path []string) {
		if len(path) > maxDepth {
			return
		}
		for i, on := range path {
			if on == module {
				cycle := append([]string(nil), path[i:]...)
				key := cycleKey(cycle)
				if !seenCycles[key] {
					seenCycles[key] = true
					start := cycle[0]
					file := fileOf[start]
					if file == "" {
						file = start
					}
					results = append(results, Result{
						File:    file,
						Line:    importLine[start+"|"+cycle[(1)%len(cycle)]],
						Message: fmt.Sprintf("circular import: %s", strings.Join(append(cycle, cycle[0]), " -> ")),
						RuleID:  key,
					})
				}
				return
			}
		}
		path = append(path, module)
		for _, next := range graph[module] {
			dfs(next, path)
		}
		visited[module] = true
	}

	for _, m := range modules {
		if !visited[m] {
			dfs(m, nil)
		}
	}
	if len(results) == 0 && len(modules) > 0 {
		results = append(results, Result{File: "", Passed: true, Message: "no circular imports"})
	}
	return results, nil
}

// normalizeModule strips a leading local prefix written in path form.
func normalizeModule(module string, prefixes []string) string {
	for _, p := range prefixes {
		if strings.HasPrefix(module, p+"/") {
			return strings.ReplaceAll(module, "/", ".")
		}
	}
	return module
}

// cycleKey canonicalizes a cycle as its sorted member set, so rotations
// of the same cycle collapse to one report.
func cycleKey(cycle []string) string {
	sorted := append([]string(nil), cycle...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
