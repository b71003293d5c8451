package checks

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"regexp"

	"github.com/codeconform/conform/internal/contract"
)

// CommandHandler runs a shell command and judges success by exit code,
// optionally overridden by substring indicators and refined by an
// error-line pattern that extracts structured sub-violations.
//
// Config:
//
//	command: "ruff check ."
//	timeout_seconds: 120
//	success_indicators: ["All checks passed"]
//	failure_indicators: ["error"]
//	pattern: '(?P<file>[^:]+):(?P<line>\d+): (?P<message>.+)'
type CommandHandler struct {
	// DefaultTimeout applies when the check sets none. A timed-out
	// command yields an error result for this check only; sibling
	// checks keep running.
	DefaultTimeout time.Duration
}

// NewCommandHandler returns a command handler with a 2 minute default
// timeout.
func NewCommandHandler() *CommandHandler {
	return &CommandHandler{DefaultTimeout: 2 * time.Minute}
}

// Execute implements Handler.
func (h *CommandHandler) Execute(ctx context.Context, check *contract.Check, repoRoot string, files []string) ([]Result, error) {
	command := cfgString(check.Config, "command", "")
	if command == "" {
		return nil, fmt.Errorf("command check %s has no command", check.ID)
	}

	timeout := h.DefaultTimeout
	if secs := cfgInt(check.Config, "timeout_seconds", 0); secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = repoRoot
	// sh's children inherit the output pipe and would hold it open past
	// the deadline; kill the whole process group on cancellation and cap
	// the pipe wait so the timeout bounds wall clock.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = time.Second
	output, runErr := cmd.CombinedOutput()
	text := string(output)

	if ctx.Err() == context.DeadlineExceeded {
		return []Result{{
			Severity: contract.SeverityError,
			Message:  fmt.Sprintf("command timed out after %s: %s", timeout, command),
		}}, nil
	}

	passed := runErr == nil
	// Indicator substrings override the exit code.
	for _, ind := range cfgStrings(check.Config, "failure_indicators") {
		if strings.Contains(text, ind) {
			passed = false
		}
	}
	if indicators := cfgStrings(check.Config, "success_indicators"); len(indicators) > 0 {
		for _, ind := range indicators {
			if strings.Contains(text, ind) {
				passed = true
			}
		}
	}

	if passed {
		return []Result{{Passed: true, Message: "command succeeded"}}, nil
	}

	// Without an error-line pattern the whole command output is one
	// violation; with one, each matching line becomes a sub-violation.
	errPattern := cfgString(check.Config, "pattern", "")
	if errPattern == "" {
		return []Result{{
			Message: fmt.Sprintf("command failed: %s\n%s", command, truncate(text, 1000)),
		}}, nil
	}

	re, err := regexp.Compile(errPattern)
	if err != nil {
		return nil, fmt.Errorf("command check %s: invalid error pattern: %w", check.ID, err)
	}

	var results []Result
	for _, line := range strings.Split(text, "\n") {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		r := Result{Message: strings.TrimSpace(line)}
		for i, name := range re.SubexpNames() {
			if i == 0 || i >= len(m) {
				continue
			}
			switch name {
			case "file":
				r.File = m[i]
			case "line":
				if n, err := strconv.Atoi(m[i]); err == nil {
					r.Line = n
				}
			case "message":
				r.Message = m[i]
			}
		}
		results = append(results, r)
	}
	if len(results) == 0 {
		results = []Result{{
			Message: fmt.Sprintf("command failed: %s\n%s", command, truncate(text, 1000)),
		}}
	}
	return results, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n... (truncated)"
}
