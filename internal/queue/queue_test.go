package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ghmbegerez/converge/internal/check"
	"github.com/ghmbegerez/converge/internal/orchestrator"
	"github.com/ghmbegerez/converge/internal/store/sqlite"
	"github.com/ghmbegerez/converge/internal/types"
)

// fakeSCM is a scripted scm.Port that always simulates and merges cleanly,
// used by tests that need a full revalidate-then-merge pass without a real
// repository.
type fakeSCM struct{}

func (fakeSCM) Simulate(ctx context.Context, source, target string) (*types.Simulation, error) {
	return &types.Simulation{Mergeable: true, FilesChanged: []string{"docs/readme.md"}}, nil
}
func (fakeSCM) ExecuteMerge(ctx context.Context, source, target string) (string, error) {
	return "deadbeef", nil
}
func (fakeSCM) LogBetween(ctx context.Context, base, head string) ([]types.Commit, error) {
	return nil, nil
}

func permissivePolicy() types.PolicyConfig {
	return types.PolicyConfig{
		Profiles: map[types.RiskLevel]types.PolicyProfile{
			types.RiskLow: {
				EntropyBudget:  1000,
				ContainmentMin: 0,
				BlastLimit:     1000,
				Checks:         nil,
				CoherencePass:  0,
				CoherenceWarn:  0,
				Security:       types.SecurityThresholds{MaxCritical: 0, MaxHigh: 999},
			},
		},
		Risk: types.RiskGateConfig{
			Mode:         types.RiskGateShadow,
			EnforceRatio: 0,
			Thresholds: types.RiskThresholds{
				MaxRiskScore:        1000,
				MaxDamageScore:      1000,
				MaxPropagationScore: 1000,
			},
		},
	}
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedValidatedIntent(t *testing.T, st *sqlite.Store, id string, mutate func(*types.Intent)) {
	t.Helper()
	now := time.Now().UTC()
	intent := types.NewIntent(id, "feature/"+id, "main", types.OriginHuman, "tester", now)
	intent.Status = types.StatusValidated
	if mutate != nil {
		mutate(intent)
	}
	require.NoError(t, st.CreateIntent(context.Background(), intent))
}

func TestRunOnceSkipsDependencyBlockedIntent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedValidatedIntent(t, st, "dep-1", func(i *types.Intent) { i.Status = types.StatusReady })
	seedValidatedIntent(t, st, "main-1", func(i *types.Intent) { i.Dependencies = []string{"dep-1"} })

	p := &Processor{Store: st}
	res, err := p.RunOnce(ctx)
	require.NoError(t, err)
	require.Contains(t, res.DependencyBlocked, "main-1")
	require.Empty(t, res.Merged)
}

func TestRunOnceRejectsIntentAtMaxRetries(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedValidatedIntent(t, st, "retries-1", func(i *types.Intent) {
		i.Retries = types.DefaultMaxRetries
	})

	p := &Processor{Store: st}
	res, err := p.RunOnce(ctx)
	require.NoError(t, err)
	require.Contains(t, res.Rejected, "retries-1")

	got, err := st.GetIntent(ctx, "retries-1")
	require.NoError(t, err)
	require.Equal(t, types.StatusRejected, got.Status)
}

func TestRunOnceSkipsIntentWithPendingReview(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedValidatedIntent(t, st, "review-1", nil)
	require.NoError(t, st.CreateReview(ctx, &types.ReviewTask{
		ID:          "review-1-task",
		IntentID:    "review-1",
		Status:      types.ReviewPending,
		Reason:      "coherence_downgrade",
		RequestedAt: time.Now().UTC(),
	}))

	p := &Processor{Store: st}
	res, err := p.RunOnce(ctx)
	require.NoError(t, err)
	require.Contains(t, res.Skipped, "review-1")
}

func TestRunOnceRejectsIntentWithRejectedReview(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedValidatedIntent(t, st, "review-2", nil)
	require.NoError(t, st.CreateReview(ctx, &types.ReviewTask{
		ID:          "review-2-task",
		IntentID:    "review-2",
		Status:      types.ReviewRejected,
		Reason:      "not mergeable",
		RequestedAt: time.Now().UTC(),
	}))

	p := &Processor{Store: st}
	res, err := p.RunOnce(ctx)
	require.NoError(t, err)
	require.Contains(t, res.Rejected, "review-2")
}

func TestRunOnceThrottlesNonCriticalIntentUnderPauseCriticalOnly(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedValidatedIntent(t, st, "throttle-1", func(i *types.Intent) { i.RiskLevel = types.RiskMedium })

	p := &Processor{
		Store:      st,
		IntakeMode: func() types.IntakeMode { return types.IntakePauseCriticalOnly },
	}
	res, err := p.RunOnce(ctx)
	require.NoError(t, err)
	require.Contains(t, res.Skipped, "throttle-1")
}

func TestRunOnceReturnsLockHeldWhenAlreadyAcquired(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, acquired, err := st.AcquireQueueLock(ctx, "default", "someone-else", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	p := &Processor{Store: st, Holder: "me"}
	_, err = p.RunOnce(ctx)
	require.Error(t, err)
}

func TestRunOnceIsNoopOnEmptyQueue(t *testing.T) {
	st := newTestStore(t)
	p := &Processor{Store: st}
	res, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, res.Processed)
}

// The INTENT_MERGED event for an Intent must share its trace_id with the
// INTENT_VALIDATED event from the revalidation that immediately preceded
// it — the queue must never merge on a stale validation.
func TestRunOnceMergedEventSharesTraceIDWithPrecedingValidation(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedValidatedIntent(t, st, "fresh-1", func(i *types.Intent) { i.RiskLevel = types.RiskLow })

	o := &orchestrator.Orchestrator{
		Store:        st,
		SCM:          fakeSCM{},
		Checks:       check.NewRegistry(nil),
		PolicyConfig: permissivePolicy(),
	}
	p := &Processor{Store: st, SCM: fakeSCM{}, Orchestrator: o, AutoConfirm: true}

	res, err := p.RunOnce(ctx)
	require.NoError(t, err)
	require.Contains(t, res.Merged, "fresh-1")

	events, err := st.QueryEvents(ctx, types.EventQuery{IntentID: "fresh-1"})
	require.NoError(t, err)
	require.NotEmpty(t, events)

	merged := events[len(events)-1]
	require.Equal(t, types.EventIntentMerged, merged.EventType)

	var precedingValidated *types.Event
	for i := len(events) - 2; i >= 0; i-- {
		if events[i].EventType == types.EventIntentValidated {
			precedingValidated = events[i]
			break
		}
	}
	require.NotNil(t, precedingValidated, "expected an INTENT_VALIDATED event before INTENT_MERGED")
	require.Equal(t, precedingValidated.TraceID, merged.TraceID)
}
