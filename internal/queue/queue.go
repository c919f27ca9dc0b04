// Package queue implements the queue processor of spec §4.10: under the
// exclusive advisory lock, it walks VALIDATED Intents in priority order,
// skips those blocked on unmerged dependencies, revalidates each against
// the current target state (Invariant 2), bounds retries (Invariant 3),
// and executes the merge for everything that still passes. Grounded on
// internal/orchestrator's step-sequence style (one mutable Decision/Result
// threaded through named steps, each step able to short-circuit) and on
// steveyegge-beads/internal/rpc/server_lifecycle_conn.go's lock-then-defer-
// release pattern for the exclusive-holder discipline.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ghmbegerez/converge/internal/cerr"
	"github.com/ghmbegerez/converge/internal/lockfile"
	"github.com/ghmbegerez/converge/internal/obsv"
	"github.com/ghmbegerez/converge/internal/orchestrator"
	"github.com/ghmbegerez/converge/internal/review"
	"github.com/ghmbegerez/converge/internal/scm"
	"github.com/ghmbegerez/converge/internal/store"
	"github.com/ghmbegerez/converge/internal/types"
)

// DefaultBatchSize bounds how many VALIDATED Intents one RunOnce pass
// considers, keeping a single pass bounded under lock.
const DefaultBatchSize = 50

// Processor drives one queue pass. LockName scopes the advisory lock to one
// logical queue when a store is shared across tenants or target branches.
type Processor struct {
	Store        store.Store
	SCM          scm.Port
	Orchestrator *orchestrator.Orchestrator

	LockName    string
	Holder      string
	LockTTL     time.Duration
	BatchSize   int
	AutoConfirm bool

	// FileLockPath additionally guards RunOnce with a flock(2) advisory
	// lock (internal/lockfile) for the single-node embedded deployment,
	// layered in front of the DB-row TTL lock rather than replacing it —
	// cheap to check, and avoids even opening a transaction when a
	// same-host sibling process already holds it. Unset in the networked
	// deployment, where the DB lock alone is the cross-process mechanism.
	FileLockPath string

	// IntakeMode gates admission of non-critical Intents under external
	// pressure (spec §4.10). Nil means types.IntakeOpen.
	IntakeMode func() types.IntakeMode

	Now func() time.Time
}

func (p *Processor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Processor) lockName() string {
	if p.LockName != "" {
		return p.LockName
	}
	return "default"
}

func (p *Processor) lockTTL() time.Duration {
	if p.LockTTL > 0 {
		return p.LockTTL
	}
	return types.DefaultQueueLockTTL
}

func (p *Processor) batchSize() int {
	if p.BatchSize > 0 {
		return p.BatchSize
	}
	return DefaultBatchSize
}

func (p *Processor) intakeMode() types.IntakeMode {
	if p.IntakeMode != nil {
		if m := p.IntakeMode(); m.IsValid() {
			return m
		}
	}
	return types.IntakeOpen
}

// Result summarizes one RunOnce pass.
type Result struct {
	Processed         int
	Merged            []string
	Requeued          []string
	Rejected          []string
	DependencyBlocked []string
	Skipped           []string
}

// RunOnce executes one queue pass (spec §4.10's pseudocode). It acquires
// the advisory lock, processes up to BatchSize VALIDATED Intents in
// priority/created_at order, and releases the lock on the way out — even
// on error, so a process killed mid-pass still lets the TTL do its job,
// and a clean exit never leaves the lock held past this call. Returns
// cerr.ErrLockHeld (Kind=lock) if another holder currently has the lock.
func (p *Processor) RunOnce(ctx context.Context) (*Result, error) {
	started := p.now()

	if p.FileLockPath != "" {
		fl, err := lockfile.TryLock(p.FileLockPath)
		if err != nil {
			if errors.Is(err, lockfile.ErrHeld) {
				return nil, cerr.New(cerr.KindLock, true, cerr.ErrLockHeld)
			}
			return nil, fmt.Errorf("queue: file lock: %w", err)
		}
		defer fl.Release()
	}

	lock, acquired, err := p.Store.AcquireQueueLock(ctx, p.lockName(), p.Holder, p.lockTTL())
	if err != nil {
		return nil, fmt.Errorf("queue: acquire lock: %w", err)
	}
	if !acquired {
		return nil, cerr.New(cerr.KindLock, true, cerr.ErrLockHeld)
	}
	defer func() {
		_ = p.Store.ReleaseQueueLock(ctx, lock.Name, lock.Holder)
	}()

	res := &Result{}
	intents, err := p.Store.ListIntents(ctx, store.IntentFilter{
		Status:  types.StatusValidated,
		OrderBy: store.OrderPriorityCreated,
		Limit:   p.batchSize(),
	})
	if err != nil {
		return nil, fmt.Errorf("queue: list validated intents: %w", err)
	}

	for _, intent := range intents {
		if err := ctx.Err(); err != nil {
			// Graceful shutdown: stop admitting new Intents to this pass,
			// but the lock release above still runs via defer (spec §5).
			break
		}
		if err := p.processOne(ctx, intent, res); err != nil {
			return res, fmt.Errorf("queue: processing intent %s: %w", intent.ID, err)
		}
	}

	p.emitProcessed(ctx, res)
	obsv.ObserveQueueCycle(p.now().Sub(started), len(res.Merged), len(res.Requeued), len(res.Rejected), len(res.DependencyBlocked), len(res.Skipped))
	return res, nil
}

func (p *Processor) processOne(ctx context.Context, intent *types.Intent, res *Result) error {
	res.Processed++
	traceID := fmt.Sprintf("queue-%s-%d", intent.ID, p.now().UnixNano())

	if blocked, depID, err := p.dependencyBlocked(ctx, intent); err != nil {
		return err
	} else if blocked {
		p.emit(ctx, traceID, intent.ID, types.EventIntentDependencyBlocked, map[string]any{"depends_on": depID})
		res.DependencyBlocked = append(res.DependencyBlocked, intent.ID)
		return nil
	}

	if !p.intakeMode().AdmitsNonCritical(intent.RiskLevel) {
		p.emit(ctx, traceID, intent.ID, types.EventIntakeThrottled, map[string]any{"risk_level": intent.RiskLevel})
		res.Skipped = append(res.Skipped, intent.ID)
		return nil
	}

	if intent.Retries >= types.DefaultMaxRetries {
		return p.reject(ctx, traceID, intent, res, "max_retries")
	}

	pending, err := review.HasPending(ctx, p.Store, intent.ID)
	if err != nil {
		return err
	}
	if pending {
		res.Skipped = append(res.Skipped, intent.ID)
		return nil
	}
	rejected, err := review.HasRejected(ctx, p.Store, intent.ID)
	if err != nil {
		return err
	}
	if rejected {
		return p.reject(ctx, traceID, intent, res, "review_rejected")
	}

	dec, err := p.Orchestrator.Validate(ctx, intent.ID)
	if err != nil {
		// Store/SCM errors abort this Intent's pass without counting
		// against retries (spec §4.9); the next pass tries again.
		return nil
	}

	if dec.Blocked {
		return p.requeueOrReject(ctx, intent, res, dec.BlockReason)
	}

	if err := p.setStatus(ctx, intent.ID, types.StatusQueued); err != nil {
		return err
	}

	if !p.AutoConfirm {
		return nil
	}
	return p.executeMerge(ctx, dec.TraceID, intent, res)
}

func (p *Processor) dependencyBlocked(ctx context.Context, intent *types.Intent) (bool, string, error) {
	for _, dep := range intent.Dependencies {
		dependency, err := p.Store.GetIntent(ctx, dep)
		if err != nil {
			return false, "", fmt.Errorf("loading dependency %s: %w", dep, err)
		}
		if dependency.Status != types.StatusMerged {
			return true, dep, nil
		}
	}
	return false, "", nil
}

func (p *Processor) requeueOrReject(ctx context.Context, intent *types.Intent, res *Result, reason string) error {
	retries := intent.Retries + 1
	if _, err := p.Store.UpdateIntent(ctx, intent.ID, func(i *types.Intent) error {
		i.Retries = retries
		return nil
	}); err != nil {
		return fmt.Errorf("bumping retries: %w", err)
	}

	traceID := fmt.Sprintf("queue-%s-%d", intent.ID, p.now().UnixNano())
	if retries >= types.DefaultMaxRetries {
		return p.reject(ctx, traceID, intent, res, "max_retries")
	}
	if err := p.setStatus(ctx, intent.ID, types.StatusReady); err != nil {
		return err
	}
	p.emit(ctx, traceID, intent.ID, types.EventIntentRequeued, map[string]any{
		"retries": retries,
		"reason":  reason,
	})
	res.Requeued = append(res.Requeued, intent.ID)
	return nil
}

func (p *Processor) reject(ctx context.Context, traceID string, intent *types.Intent, res *Result, reason string) error {
	if err := p.setStatus(ctx, intent.ID, types.StatusRejected); err != nil {
		return err
	}
	p.emit(ctx, traceID, intent.ID, types.EventIntentRejected, map[string]any{"reason": reason})
	res.Rejected = append(res.Rejected, intent.ID)
	return nil
}

func (p *Processor) executeMerge(ctx context.Context, traceID string, intent *types.Intent, res *Result) error {
	sha, err := p.SCM.ExecuteMerge(ctx, intent.Source, intent.Target)
	if err != nil {
		if _, updateErr := p.Store.UpdateIntent(ctx, intent.ID, func(i *types.Intent) error {
			i.Retries++
			return nil
		}); updateErr != nil {
			return fmt.Errorf("bumping retries after merge failure: %w", updateErr)
		}
		p.emit(ctx, traceID, intent.ID, types.EventIntentMergeFailed, map[string]any{"error": err.Error()})
		return nil
	}
	if err := p.setStatus(ctx, intent.ID, types.StatusMerged); err != nil {
		return err
	}
	p.emit(ctx, traceID, intent.ID, types.EventIntentMerged, map[string]any{"sha": sha})
	res.Merged = append(res.Merged, intent.ID)
	return nil
}

func (p *Processor) setStatus(ctx context.Context, intentID string, next types.Status) error {
	_, err := p.Store.UpdateIntent(ctx, intentID, func(i *types.Intent) error {
		if !types.CanTransition(i.Status, next) {
			return fmt.Errorf("%w: %s -> %s", cerr.ErrInvalidTransition, i.Status, next)
		}
		i.Status = next
		return nil
	})
	return err
}

func (p *Processor) emit(ctx context.Context, traceID, intentID string, eventType types.EventType, payload map[string]any) {
	_, _ = p.Store.AppendEvent(ctx, &types.Event{
		TraceID:   traceID,
		Timestamp: p.now(),
		EventType: eventType,
		IntentID:  intentID,
		Payload:   payload,
	})
}

func (p *Processor) emitProcessed(ctx context.Context, res *Result) {
	traceID := fmt.Sprintf("queue-run-%d", p.now().UnixNano())
	p.emit(ctx, traceID, "", types.EventQueueProcessed, map[string]any{
		"processed":          res.Processed,
		"merged":             len(res.Merged),
		"requeued":           len(res.Requeued),
		"rejected":           len(res.Rejected),
		"dependency_blocked": len(res.DependencyBlocked),
		"skipped":            len(res.Skipped),
	})
}
