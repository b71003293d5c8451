// Package gitdiff shells out to the git CLI to enumerate the files
// changed between two refs, which drives PR-mode file selection.
package gitdiff

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Git wraps the git executable.
type Git struct {
	gitPath string
}

// New verifies git is available and returns a wrapper.
func New(ctx context.Context) (*Git, error) {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("git not found in PATH: %w", err)
	}
	cmd := exec.CommandContext(ctx, gitPath, "version")
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git command failed: %w", err)
	}
	return &Git{gitPath: gitPath}, nil
}

// ChangedFiles returns repo-relative paths changed between baseRef and
// headRef, excluding deletions (a deleted file has nothing to check).
func (g *Git) ChangedFiles(ctx context.Context, repoPath, baseRef, headRef string) ([]string, error) {
	cmd := exec.CommandContext(ctx, g.gitPath, "-C", repoPath,
		"diff", "--name-only", "--diff-filter=d", baseRef+"..."+headRef)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff %s...%s failed in %s: %w", baseRef, headRef, repoPath, err)
	}

	var files []string
	scanner := bufio.NewScanner(strings.NewReader(string(output)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			files = append(files, line)
		}
	}
	return files, scanner.Err()
}

// HeadSHA returns the current HEAD commit, for stamping baselines.
func (g *Git) HeadSHA(ctx context.Context, repoPath string) (string, error) {
	cmd := exec.CommandContext(ctx, g.gitPath, "-C", repoPath, "rev-parse", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse failed in %s: %w", repoPath, err)
	}
	return strings.TrimSpace(string(output)), nil
}
