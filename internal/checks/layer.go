package checks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/codeconform/conform/internal/contract"
	"github.com/codeconform/conform/internal/lang"
	"github.com/codeconform/conform/internal/pathmatch"
)

// layerDef is one architecture layer: files belong to it by path
// pattern, imports resolve to it by module pattern or by the module's
// path form matching the same path patterns.
type layerDef struct {
	name    string
	paths   []string
	modules []string
}

func parseLayers(cfg map[string]any) []layerDef {
	var layers []layerDef
	for _, m := range cfgMapSlice(cfg, "layers") {
		layers = append(layers, layerDef{
			name:    cfgString(m, "name", ""),
			paths:   cfgStrings(m, "paths"),
			modules: cfgStrings(m, "modules"),
		})
	}
	return layers
}

// layerOfFile returns the layer a repo-relative file belongs to.
func layerOfFile(layers []layerDef, file string) string {
	for _, l := range layers {
		if pathmatch.MatchAny(l.paths, file) && len(l.paths) > 0 {
			return l.name
		}
	}
	return ""
}

// layerOfImport resolves an imported module to a layer. The dotted
// module is also tried in slash form against the layer's path patterns
// so "app.infra.db" lands in a layer declared over "app/infra/**".
func layerOfImport(layers []layerDef, module string) string {
	asPath := strings.ReplaceAll(module, ".", "/")
	for _, l := range layers {
		for _, pat := range l.modules {
			if pathmatch.Match(pat, module) || strings.HasPrefix(module, strings.TrimSuffix(pat, "*")) {
				return l.name
			}
		}
		for _, pat := range l.paths {
			if pathmatch.Match(pat, asPath) || pathmatch.Match(pat, asPath+".py") || pathmatch.Match(pat, asPath+".go") {
				return l.name
			}
		}
	}
	return ""
}

// LayerImportHandler enforces architecture layering: each source file's
// layer is derived from path rules, its imports are walked, and any
// import resolving to a layer forbidden for the source layer is a
// violation.
//
// Config:
//
//	layers:
//	  - name: domain
//	    paths: ["app/domain/**"]
//	  - name: infrastructure
//	    paths: ["app/infra/**"]
//	rules:
//	  - layer: domain
//	    forbidden: [infrastructure, api]
type LayerImportHandler struct {
	langs *lang.Registry
}

// NewLayerImportHandler returns the layer-import handler.
func NewLayerImportHandler(langs *lang.Registry) *LayerImportHandler {
	return &LayerImportHandler{langs: langs}
}

// Execute implements Handler.
func (h *LayerImportHandler) Execute(ctx context.Context, check *contract.Check, repoRoot string, files []string) ([]Result, error) {
	layers := parseLayers(check.Config)
	if len(layers) == 0 {
		return nil, fmt.Errorf("layer-import check %s defines no layers", check.ID)
	}
	forbidden := make(map[string]map[string]bool)
	for _, rule := range cfgMapSlice(check.Config, "rules") {
		src := cfgString(rule, "layer", "")
		if src == "" {
			continue
		}
		set := make(map[string]bool)
		for _, f := range cfgStrings(rule, "forbidden") {
			set[f] = true
		}
		forbidden[src] = set
	}

	var results []Result
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		srcLayer := layerOfFile(layers, file)
		if srcLayer == "" || len(forbidden[srcLayer]) == 0 {
			continue
		}
		parsed := h.parse(repoRoot, file)
		if parsed == nil {
			continue
		}
		clean := true
		for _, imp := range parsed.Imports {
			target := layerOfImport(layers, imp.Module)
			if target != "" && forbidden[srcLayer][target] {
				clean = false
				results = append(results, Result{
					File: file,
					Line: imp.Line,
					Message: fmt.Sprintf("layer %q must not import layer %q (import %s)",
						srcLayer, target, imp.Module),
					RuleID: target,
				})
			}
		}
		if clean {
			results = append(results, Result{File: file, Passed: true})
		}
	}
	return results, nil
}

func (h *LayerImportHandler) parse(repoRoot, file string) *lang.File {
	adapter := h.langs.ForPath(file)
	if adapter == nil {
		return nil
	}
	src, err := os.ReadFile(filepath.Join(repoRoot, file))
	if err != nil {
		return nil
	}
	parsed, err := adapter.Parse(file, src)
	if err != nil {
		return nil
	}
	return parsed
}
