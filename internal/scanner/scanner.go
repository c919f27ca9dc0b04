// Package scanner defines the security-scanner port (spec §4.4): pluggable
// external scanners producing a normalized SecurityFinding model. Grounded
// on the teacher's internal/hooks subprocess-invocation idiom and the
// check port's timeout/truncation pattern, category-specific here since
// spec §4.4 gives SAST and SCA scanners different timeouts.
package scanner

import (
	"context"
	"time"

	"github.com/ghmbegerez/converge/internal/types"
)

// Timeouts per scanner category (spec §8's suspension-point list).
const (
	TimeoutSAST    = 120 * time.Second
	TimeoutSCA     = 180 * time.Second
	TimeoutSecrets = 60 * time.Second
)

// Options configures a single Scan call.
type Options struct {
	IntentID string
	TenantID string
}

// Scanner is the abstract security-scanner interface the orchestrator
// depends on. A scanner whose IsAvailable reports false is skipped, never
// treated as a pipeline fault; the orchestrator emits no event for a
// skipped scanner, so the event log shows only the scanners that ran.
type Scanner interface {
	Name() string
	Category() types.SecurityCategory
	IsAvailable(ctx context.Context) bool
	Scan(ctx context.Context, path string, opts Options) ([]*types.SecurityFinding, error)
}

// TimeoutFor returns the category-specific timeout for cat.
func TimeoutFor(cat types.SecurityCategory) time.Duration {
	switch cat {
	case types.CategorySAST:
		return TimeoutSAST
	case types.CategorySCA:
		return TimeoutSCA
	case types.CategorySecrets:
		return TimeoutSecrets
	default:
		return TimeoutSAST
	}
}
