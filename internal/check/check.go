// Package check implements the check port (spec §4.3): named command
// execution with a hard timeout and bounded output capture. Grounded on
// the teacher's internal/hooks package (os/exec-based external command
// runner with a fixed timeout), retargeted from fire-and-forget lifecycle
// hooks to a synchronous pass/fail CheckResult.
package check

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"time"

	"github.com/ghmbegerez/converge/internal/types"
)

// Timeout is the hard ceiling on a single check run (spec §4.3).
const Timeout = 300 * time.Second

// TruncateBytes is the capture limit applied to stdout and to stderr
// separately; Details reports stderr whenever it is non-empty, since that's
// what a failing check needs (spec §4.3).
const TruncateBytes = 2000

// Port is the abstract check-execution interface the orchestrator depends on.
type Port interface {
	// Run executes the named check. An unknown check name returns
	// (nil, false) rather than an error — the pipeline must silently skip it.
	Run(ctx context.Context, checkName string) (*types.CheckResult, bool)
}

// Registry maps check names to the shell command that implements them
// (spec §4.3: "each check is a named command"). Grounded on the teacher's
// hooks.Runner, which resolves a fixed event name to an executable path;
// here the resolution is name -> argv rather than name -> script path,
// since checks are operator-configured commands, not repo-local scripts.
type Registry struct {
	commands map[string][]string
}

// NewRegistry builds a Registry from a name -> argv map, e.g.
// {"lint": {"golangci-lint", "run"}, "unit_tests": {"go", "test", "./..."}}.
func NewRegistry(commands map[string][]string) *Registry {
	cp := make(map[string][]string, len(commands))
	for k, v := range commands {
		cp[k] = v
	}
	return &Registry{commands: cp}
}

// Run executes the named check with Timeout and captures up to
// TruncateBytes each of stdout and stderr. Details is the stderr capture,
// or the stdout capture when stderr is empty.
func (r *Registry) Run(ctx context.Context, checkName string) (*types.CheckResult, bool) {
	argv, ok := r.commands[checkName]
	if !ok || len(argv) == 0 {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	var stdout, stderr truncatingBuffer
	stdout.limit = TruncateBytes
	stderr.limit = TruncateBytes
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(start).Milliseconds()

	if ctx.Err() == context.DeadlineExceeded {
		return &types.CheckResult{Name: checkName, Passed: false, Details: "timeout", DurationMS: duration}, true
	}

	details := stderr.String()
	if details == "" {
		details = stdout.String()
	}
	return &types.CheckResult{Name: checkName, Passed: err == nil, Details: details, DurationMS: duration}, true
}

var _ Port = (*Registry)(nil)

// truncatingBuffer caps total written bytes at limit, keeping the earliest
// bytes written (typically the most diagnostic lines of failure output).
type truncatingBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (t *truncatingBuffer) Write(p []byte) (int, error) {
	n := len(p)
	remaining := t.limit - t.buf.Len()
	if remaining <= 0 {
		return n, nil
	}
	if len(p) > remaining {
		p = p[:remaining]
	}
	_, err := t.buf.Write(p)
	return n, err
}

func (t *truncatingBuffer) String() string { return t.buf.String() }

var _ io.Writer = (*truncatingBuffer)(nil)
