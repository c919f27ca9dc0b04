package scm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ghmbegerez/converge/internal/cerr"
	"github.com/ghmbegerez/converge/internal/types"
)

// GitPort implements Port by shelling out to the git binary, in the style
// of the teacher's internal/git package (os/exec, worktree-aware, no
// library git client). repoDir is the bare or working-tree repository the
// Intent's refs live in; scratchDir is a directory under which isolated
// git worktrees are created for ExecuteMerge, so the caller's own working
// tree is never mutated.
type GitPort struct {
	repoDir    string
	scratchDir string
}

// New returns a GitPort operating on the repository at repoDir, using
// scratchDir (created if absent) for isolated merge execution worktrees.
func New(repoDir, scratchDir string) *GitPort {
	return &GitPort{repoDir: repoDir, scratchDir: scratchDir}
}

func (g *GitPort) run(ctx context.Context, dir string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Simulate uses `git merge-tree` (the plumbing command introduced for this
// exact purpose) so no working tree is touched, and takes the changed-file
// list from a merge-base diff. Needs git 2.38+ for merge-tree's write-tree
// mode; there is no fallback for older git.
func (g *GitPort) Simulate(ctx context.Context, source, target string) (*types.Simulation, error) {
	headOut, _, err := g.run(ctx, g.repoDir, "rev-parse", target)
	if err != nil {
		return nil, cerr.New(cerr.KindSCM, false, fmt.Errorf("resolve target %q: %w", target, err))
	}
	baseOut, _, err := g.run(ctx, g.repoDir, "rev-parse", source)
	if err != nil {
		return nil, cerr.New(cerr.KindSCM, false, fmt.Errorf("resolve source %q: %w", source, err))
	}
	headCommit := strings.TrimSpace(headOut)
	baseCommit := strings.TrimSpace(baseOut)

	stdout, stderr, err := g.run(ctx, g.repoDir, "merge-tree", "--name-only", target, source)
	if err != nil && !isMergeConflictExit(err) {
		if isTransient(stderr) {
			return nil, cerr.New(cerr.KindSCM, true, fmt.Errorf("merge-tree: %s", stderr))
		}
		return nil, cerr.New(cerr.KindSCM, false, fmt.Errorf("merge-tree: %s", stderr))
	}

	conflicts, _ := parseMergeTreeOutput(stdout)

	// merge-tree's first section is the result tree ID plus conflicted paths
	// only, so the files the source changes come from a merge-base diff.
	diffOut, diffErr, err := g.run(ctx, g.repoDir, "diff", "--name-only", target+"..."+source)
	if err != nil {
		return nil, cerr.New(cerr.KindSCM, false, fmt.Errorf("diff: %s", diffErr))
	}
	var filesChanged []string
	for _, line := range strings.Split(strings.TrimSpace(diffOut), "\n") {
		if line != "" {
			filesChanged = append(filesChanged, line)
		}
	}
	return &types.Simulation{
		Mergeable:    len(conflicts) == 0,
		Conflicts:    conflicts,
		FilesChanged: filesChanged,
		BaseCommit:   baseCommit,
		HeadCommit:   headCommit,
	}, nil
}

// isMergeConflictExit reports whether err is git's non-zero exit status
// for "merge-tree completed, with conflicts" rather than a real failure.
func isMergeConflictExit(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == 1
}

func isTransient(stderr string) bool {
	lower := strings.ToLower(stderr)
	return strings.Contains(lower, "lock") || strings.Contains(lower, "resource temporarily unavailable")
}

// parseMergeTreeOutput splits `git merge-tree --name-only`'s output at the
// first blank line: the lines before it are returned as the second result
// (for real merge-tree output, the result tree ID followed by the
// conflicted paths), and the paths named by the conflict messages after it
// as the first. Simulate uses only the conflict paths; conservative path
// extraction keeps this a thin wrapper rather than a full parser of git's
// internal format.
func parseMergeTreeOutput(out string) (conflicts, filesChanged []string) {
	sections := strings.SplitN(out, "\n\n", 2)
	if len(sections) > 0 {
		for _, line := range strings.Split(strings.TrimSpace(sections[0]), "\n") {
			if line != "" {
				filesChanged = append(filesChanged, line)
			}
		}
	}
	if len(sections) > 1 {
		for _, line := range strings.Split(sections[1], "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if path := extractConflictPath(line); path != "" {
				conflicts = append(conflicts, path)
			}
		}
	}
	return conflicts, filesChanged
}

func extractConflictPath(line string) string {
	idx := strings.LastIndex(line, " in ")
	if idx == -1 {
		return ""
	}
	return strings.TrimSpace(line[idx+4:])
}

// ExecuteMerge creates an isolated worktree under scratchDir, merges
// source into a throwaway branch off target, commits, captures the SHA,
// and removes the worktree — the caller's own working tree is never
// touched.
func (g *GitPort) ExecuteMerge(ctx context.Context, source, target string) (string, error) {
	if err := os.MkdirAll(g.scratchDir, 0o750); err != nil {
		return "", cerr.New(cerr.KindMerge, false, fmt.Errorf("create scratch dir: %w", err))
	}
	worktree, err := os.MkdirTemp(g.scratchDir, "merge-*")
	if err != nil {
		return "", cerr.New(cerr.KindMerge, false, fmt.Errorf("create scratch worktree dir: %w", err))
	}
	defer func() {
		_, _, _ = g.run(ctx, g.repoDir, "worktree", "remove", "--force", worktree)
		_ = os.RemoveAll(worktree)
	}()

	branch := "converge-merge-" + filepath.Base(worktree)
	if _, stderr, err := g.run(ctx, g.repoDir, "worktree", "add", "-b", branch, worktree, target); err != nil {
		return "", cerr.New(cerr.KindMerge, false, fmt.Errorf("worktree add: %s", stderr))
	}
	defer g.run(ctx, g.repoDir, "branch", "-D", branch)

	if _, stderr, err := g.run(ctx, worktree, "merge", "--no-ff", "-m",
		fmt.Sprintf("merge %s into %s", source, target), source); err != nil {
		return "", cerr.New(cerr.KindMerge, false, fmt.Errorf("merge: %s", stderr))
	}

	shaOut, _, err := g.run(ctx, worktree, "rev-parse", "HEAD")
	if err != nil {
		return "", cerr.New(cerr.KindMerge, false, fmt.Errorf("rev-parse after merge: %w", err))
	}
	sha := strings.TrimSpace(shaOut)

	if _, stderr, err := g.run(ctx, g.repoDir, "update-ref", "refs/heads/"+target, sha); err != nil {
		return "", cerr.New(cerr.KindMerge, false, fmt.Errorf("update-ref: %s", stderr))
	}
	return sha, nil
}

// LogBetween enumerates commits reachable from head but not base, most
// recent first, each with its changed file list.
func (g *GitPort) LogBetween(ctx context.Context, base, head string) ([]types.Commit, error) {
	const sep = "\x1f"
	format := "%H" + sep + "%an" + sep + "%s"
	stdout, stderr, err := g.run(ctx, g.repoDir, "log", "--name-only", "--format="+format, base+".."+head)
	if err != nil {
		return nil, cerr.New(cerr.KindSCM, false, fmt.Errorf("log: %s", stderr))
	}

	var commits []types.Commit
	var cur *types.Commit
	for _, line := range strings.Split(stdout, "\n") {
		if line == "" {
			continue
		}
		if strings.Contains(line, sep) {
			if cur != nil {
				commits = append(commits, *cur)
			}
			parts := strings.SplitN(line, sep, 3)
			cur = &types.Commit{SHA: parts[0], Author: parts[1], Message: parts[2]}
			continue
		}
		if cur != nil {
			cur.Files = append(cur.Files, line)
		}
	}
	if cur != nil {
		commits = append(commits, *cur)
	}
	return commits, nil
}

var _ Port = (*GitPort)(nil)
