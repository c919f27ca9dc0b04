// Package scm defines the version-control port (spec §4.2): merge
// simulation against a target ref, real merge execution in an isolated
// scratch area, and commit log enumeration. The core never talks to git
// directly outside this package, so alternative SCM backends (a different
// VCS, a mocked port for tests) can be substituted without touching the
// orchestrator.
package scm

import (
	"context"

	"github.com/ghmbegerez/converge/internal/types"
)

// Port is the abstract SCM interface the orchestrator depends on.
type Port interface {
	// Simulate reports whether source can merge cleanly into target
	// without mutating the working tree.
	Simulate(ctx context.Context, source, target string) (*types.Simulation, error)

	// ExecuteMerge performs the real merge in an isolated scratch area and
	// returns the resulting commit SHA. Returns a *cerr.Error{Kind: KindMerge}
	// on failure.
	ExecuteMerge(ctx context.Context, source, target string) (string, error)

	// LogBetween enumerates commits reachable from head but not base.
	LogBetween(ctx context.Context, base, head string) ([]types.Commit, error)
}
