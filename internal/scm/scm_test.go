package scm

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMergeTreeOutputSplitsFilesAndConflicts(t *testing.T) {
	out := "a.go\nb.go\n\nCONFLICT (content): Merge conflict in a.go"
	conflicts, files := parseMergeTreeOutput(out)
	require.Equal(t, []string{"a.go", "b.go"}, files)
	require.Equal(t, []string{"a.go"}, conflicts)
}

func TestParseMergeTreeOutputNoConflictSection(t *testing.T) {
	conflicts, files := parseMergeTreeOutput("a.go\nb.go")
	require.Equal(t, []string{"a.go", "b.go"}, files)
	require.Empty(t, conflicts)
}

func TestExtractConflictPath(t *testing.T) {
	require.Equal(t, "a.go", extractConflictPath("CONFLICT (content): Merge conflict in a.go"))
	require.Equal(t, "", extractConflictPath("no marker here"))
}

func TestIsTransientDetectsLockWording(t *testing.T) {
	require.True(t, isTransient("fatal: Unable to create '.git/index.lock': File exists"))
	require.True(t, isTransient("resource temporarily unavailable"))
	require.False(t, isTransient("fatal: not a git repository"))
}

func TestIsMergeConflictExit(t *testing.T) {
	cmd := exec.Command("sh", "-c", "exit 1")
	err := cmd.Run()
	require.True(t, isMergeConflictExit(err))

	cmd2 := exec.Command("sh", "-c", "exit 2")
	err2 := cmd2.Run()
	require.False(t, isMergeConflictExit(err2))
}

// setupRepo creates a bare-enough working-tree git repo with a target
// branch "main" one commit ahead of a divergent source branch.
func setupRepo(t *testing.T) (repoDir string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	run("init", "-b", "main")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	writeFile(t, dir, "README.md", "root\n")
	run("add", ".")
	run("commit", "-m", "initial")
	run("checkout", "-b", "feature")
	writeFile(t, dir, "feature.go", "package feature\n")
	run("add", ".")
	run("commit", "-m", "add feature file")
	run("checkout", "main")
	return dir
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestGitPortSimulateCleanMerge(t *testing.T) {
	repo := setupRepo(t)
	port := New(repo, t.TempDir())
	sim, err := port.Simulate(context.Background(), "feature", "main")
	require.NoError(t, err)
	require.True(t, sim.Mergeable)
	require.Contains(t, sim.FilesChanged, "feature.go")
	require.NotEmpty(t, sim.BaseCommit)
	require.NotEmpty(t, sim.HeadCommit)
}

func TestGitPortExecuteMergeAndLogBetween(t *testing.T) {
	repo := setupRepo(t)
	port := New(repo, t.TempDir())

	sha, err := port.ExecuteMerge(context.Background(), "feature", "main")
	require.NoError(t, err)
	require.NotEmpty(t, sha)

	commits, err := port.LogBetween(context.Background(), "main~1", "main")
	require.NoError(t, err)
	require.NotEmpty(t, commits)
}
