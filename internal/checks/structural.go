package checks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/codeconform/conform/internal/contract"
	"github.com/codeconform/conform/internal/lang"
)

// Structural metric names accepted in check config.
const (
	MetricCyclomatic   = "cyclomatic_complexity"
	MetricFuncLength   = "function_length"
	MetricNestingDepth = "nesting_depth"
	MetricParamCount   = "parameter_count"
	MetricClassMembers = "class_member_count"
	MetricFileImports  = "file_import_count"
)

// StructuralHandler computes parse-tree-based metrics over the
// normalized language stream and flags values above a threshold.
//
// Config:
//
//	metric: cyclomatic_complexity
//	threshold: 10
//
// The metric algorithms are language-agnostic; per-language adapters in
// internal/lang produce the node stream they consume.
type StructuralHandler struct {
	langs *lang.Registry
}

// NewStructuralHandler returns a structural-metric handler over the
// given adapter registry.
func NewStructuralHandler(langs *lang.Registry) *StructuralHandler {
	return &StructuralHandler{langs: langs}
}

type metricValue struct {
	file    string
	line    int
	subject string
	value   float64
}

// Execute implements Handler.
func (h *StructuralHandler) Execute(ctx context.Context, check *contract.Check, repoRoot string, files []string) ([]Result, error) {
	metric := cfgString(check.Config, "metric", "")
	threshold := float64(cfgInt(check.Config, "threshold", 0))
	if metric == "" || threshold <= 0 {
		return nil, fmt.Errorf("structural-metric check %s needs metric and threshold", check.ID)
	}

	var values []metricValue
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
			// A file the adapter cannot parse is skipped, not fatal.
			continue
		}
		values = append(values, measure(metric, parsed)...)
	}

	dist := summarize(values)
	var results []Result
	for _, v := range values {
		if v.value > threshold {
			results = append(results, Result{
				File: v.file,
				Line: v.line,
				Message: fmt.Sprintf("%s of %s is %.0f, exceeds threshold %.0f%s",
					metricLabel(metric), v.subject, v.value, threshold, dist),
				RuleID: v.subject,
			})
		} else {
			results = append(results, Result{File: v.file, Line: v.line, Passed: true, RuleID: v.subject})
		}
	}
	return results, nil
}

func measure(metric string, f *lang.File) []metricValue {
	var out []metricValue
	switch metric {
	case MetricCyclomatic:
		for _, fn := range f.Functions {
			out = append(out, metricValue{f.Path, fn.StartLine, funcLabel(fn), float64(Cyclomatic(fn))})
		}
	case MetricFuncLength:
		for _, fn := range f.Functions {
			out = append(out, metricValue{f.Path, fn.StartLine, funcLabel(fn), float64(fn.CodeLines)})
		}
	case MetricNestingDepth:
		for _, fn := range f.Functions {
			out = append(out, metricValue{f.Path, fn.StartLine, funcLabel(fn), float64(NestingDepth(fn))})
		}
	case MetricParamCount:
		for _, fn := range f.Functions {
			out = append(out, metricValue{f.Path, fn.StartLine, funcLabel(fn), float64(fn.Params)})
		}
	case MetricClassMembers:
		for _, cls := range f.Classes {
			out = append(out, metricValue{f.Path, cls.StartLine, cls.Name, float64(cls.Members)})
		}
	case MetricFileImports:
		out = append(out, metricValue{f.Path, 1, f.Path, float64(len(f.Imports))})
	}
	return out
}

// Cyclomatic complexity is 1 plus one per branch, loop, exception
// handler, context manager and assert, plus n-1 per n-way boolean
// combinator, plus one per comprehension clause.
func Cyclomatic(fn *lang.Function) int {
	c := 1
	for _, n := range fn.Nodes {
		switch n.Kind {
		case lang.NodeBranch, lang.NodeLoop, lang.NodeExcept, lang.NodeWith, lang.NodeAssert, lang.NodeComprehension:
			c++
		case lang.NodeBoolOp:
			if n.Operands > 1 {
				c += n.Operands - 1
			}
		}
	}
	return c
}

// NestingDepth is the maximum lexical depth of branching, loop,
// exception and context constructs inside the function.
func NestingDepth(fn *lang.Function) int {
	max := 0
	for _, n := range fn.Nodes {
		switch n.Kind {
		case lang.NodeBranch, lang.NodeLoop, lang.NodeExcept, lang.NodeWith:
			if n.Depth > max {
				max = n.Depth
			}
		}
	}
	return max
}

func funcLabel(fn *lang.Function) string {
	if fn.Class != "" {
		return fn.Class + "." + fn.Name
	}
	return fn.Name
}

func metricLabel(metric string) string {
	switch metric {
	case MetricCyclomatic:
		return "cyclomatic complexity"
	case MetricFuncLength:
		return "function length"
	case MetricNestingDepth:
		return "nesting depth"
	case MetricParamCount:
		return "parameter count"
	case MetricClassMembers:
		return "class member count"
	case MetricFileImports:
		return "import count"
	default:
		return metric
	}
}

// summarize renders distribution context for violation messages so a
// reader can tell an outlier from a uniformly bad codebase.
func summarize(values []metricValue) string {
	if len(values) < 2 {
		return ""
	}
	xs := make([]float64, len(values))
	for i, v := range values {
		xs[i] = v.value
	}
	sort.Float64s(xs)
	mean, std := stat.MeanStdDev(xs, nil)
	p95 := stat.Quantile(0.95, stat.Empirical, xs, nil)
	return fmt.Sprintf(" (codebase mean %.1f, stddev %.1f, p95 %.1f)", mean, std, p95)
}
