package gitdiff

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initGitRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}
	run("init", "-q", "-b", "main")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "kept.py"), []byte("x = 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doomed.py"), []byte("y = 2\n"), 0o644))
	run("add", ".")
	run("commit", "-q", "-m", "initial")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "kept.py"), []byte("x = 99\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "added.py"), []byte("z = 3\n"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(dir, "doomed.py")))
	run("add", "-A")
	run("commit", "-q", "-m", "changes")
	return dir
}

func TestChangedFiles(t *testing.T) {
	dir := initGitRepo(t)
	ctx := context.Background()

	git, err := New(ctx)
	require.NoError(t, err)

	files, err := git.ChangedFiles(ctx, dir, "HEAD~1", "HEAD")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"kept.py", "added.py"}, files, "deleted files are excluded")
}

func TestHeadSHA(t *testing.T) {
	dir := initGitRepo(t)
	ctx := context.Background()

	git, err := New(ctx)
	require.NoError(t, err)

	sha, err := git.HeadSHA(ctx, dir)
	require.NoError(t, err)
	assert.Len(t, sha, 40)
}

func TestChangedFilesBadRef(t *testing.T) {
	dir := initGitRepo(t)
	ctx := context.Background()

	git, err := New(ctx)
	require.NoError(t, err)

	_, err = git.ChangedFiles(ctx, dir, "nonexistent", "HEAD")
	assert.Error(t, err)
}
