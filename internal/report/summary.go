package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/codeconform/conform/internal/baseline"
	"github.com/codeconform/conform/internal/conformance"
	"github.com/codeconform/conform/internal/violation"
)

// Markdown renders a report summary suitable for a PR comment.
func Markdown(r *conformance.Report) string {
	var b strings.Builder
	b.WriteString("## Conformance Report\n\n")
	fmt.Fprintf(&b, "| Metric | Count |\n|---|---|\n")
	fmt.Fprintf(&b, "| Checks passed | %d |\n", r.Summary.Passed)
	fmt.Fprintf(&b, "| Violations | %d |\n", r.Summary.Failed)
	fmt.Fprintf(&b, "| Exempted | %d |\n", r.Summary.Exempted)
	fmt.Fprintf(&b, "| Stale | %d |\n", r.Summary.Stale)
	fmt.Fprintf(&b, "| Compliance | %.1f%% |\n", r.Summary.ComplianceRate*100)

	if r.Trend != nil {
		fmt.Fprintf(&b, "\nTrend vs previous day: %s failed, %s passed, %s exempted\n",
			signed(r.Trend.Failed), signed(r.Trend.Passed), signed(r.Trend.Exempted))
	}

	var failing []*violation.Violation
	for _, v := range r.Violations {
		if !v.Exempted {
			failing = append(failing, v)
		}
	}
	if len(failing) > 0 {
		b.WriteString("\n### Violations\n\n")
		b.WriteString("| Severity | Check | Location | Message |\n|---|---|---|---|\n")
		for _, v := range failing {
			fmt.Fprintf(&b, "| %s | %s | %s:%d | %s |\n",
				v.Severity, v.CheckID, v.File, v.Line, strings.ReplaceAll(v.Message, "|", "\\|"))
		}
	}
	return b.String()
}

func signed(n int) string {
	if n > 0 {
		return fmt.Sprintf("+%d", n)
	}
	return fmt.Sprintf("%d", n)
}

// Console writes a colored summary to w.
func Console(w io.Writer, r *conformance.Report, comparison *baseline.Comparison) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Fprintf(w, "\nConformance: %d checked, %s passed, %s failed, %s exempted, %d stale (%.1f%% compliant)\n",
		r.Summary.Total,
		green(fmt.Sprintf("%d", r.Summary.Passed)),
		red(fmt.Sprintf("%d", r.Summary.Failed)),
		yellow(fmt.Sprintf("%d", r.Summary.Exempted)),
		r.Summary.Stale,
		r.Summary.ComplianceRate*100)

	if r.Trend != nil {
		fmt.Fprintf(w, "Trend vs previous day: failed %s\n", signed(r.Trend.Failed))
	}

	for _, v := range r.Violations {
		if v.Exempted {
			continue
		}
		marker := red("✗")
		if v.Severity != "error" {
			marker = yellow("!")
		}
		fmt.Fprintf(w, "  %s [%s] %s %s\n", marker, v.Severity, cyan(fmt.Sprintf("%s:%d", v.File, v.Line)), v.Message)
		if v.FixHint != "" {
			fmt.Fprintf(w, "      hint: %s\n", v.FixHint)
		}
	}

	if comparison != nil {
		fmt.Fprintf(w, "\nBaseline: %d new, %d existing, %d fixed (net %s)\n",
			len(comparison.New), len(comparison.Existing), len(comparison.Fixed), signed(comparison.NetChange))
	}
}
