package auditchain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ghmbegerez/converge/internal/store/sqlite"
	"github.com/ghmbegerez/converge/internal/types"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestAppendBatchChainsFromGenesis(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := st.AppendEvent(ctx, &types.Event{TraceID: "trace-1", Timestamp: now, EventType: types.EventIntentValidated, IntentID: "intent-1"})
	require.NoError(t, err)

	hash, err := AppendBatch(ctx, st, "trace-1", now)
	require.NoError(t, err)
	require.NotEqual(t, GenesisHash, hash)

	head, err := st.GetChainHead(ctx)
	require.NoError(t, err)
	require.Equal(t, hash, head)
}

func TestAppendBatchNoEventsErrors(t *testing.T) {
	st := newTestStore(t)
	_, err := AppendBatch(context.Background(), st, "missing-trace", time.Now().UTC())
	require.Error(t, err)
}

func TestVerifyChainOKAcrossMultipleBatches(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, trace := range []string{"trace-a", "trace-b", "trace-c"} {
		_, err := st.AppendEvent(ctx, &types.Event{TraceID: trace, Timestamp: now, EventType: types.EventIntentValidated, IntentID: "intent"})
		require.NoError(t, err)
		_, err = AppendBatch(ctx, st, trace, now.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	result, err := VerifyChain(ctx, st)
	require.NoError(t, err)
	require.True(t, result.OK)
	require.Equal(t, 3, result.BatchCount)
	require.Equal(t, -1, result.TamperedAt)
}

func TestVerifyChainDetectsTamperedEvent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := st.AppendEvent(ctx, &types.Event{TraceID: "trace-1", Timestamp: now, EventType: types.EventIntentValidated, IntentID: "intent-1", Payload: map[string]any{"verdict": "ALLOW"}})
	require.NoError(t, err)
	_, err = AppendBatch(ctx, st, "trace-1", now)
	require.NoError(t, err)

	// A post-checkpoint mutation of the trace's event set (tampering, or any
	// out-of-band insert) changes what VerifyChain recomputes for this batch.
	_, err = st.AppendEvent(ctx, &types.Event{TraceID: "trace-1", Timestamp: now, EventType: types.EventIntentValidated, IntentID: "intent-1", Payload: map[string]any{"verdict": "BLOCK"}})
	require.NoError(t, err)

	result, err := VerifyChain(ctx, st)
	require.NoError(t, err)
	require.False(t, result.OK)
	require.Equal(t, 0, result.TamperedAt)
}

func TestReinitializeResetsHeadToGenesis(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := st.AppendEvent(ctx, &types.Event{TraceID: "trace-1", Timestamp: now, EventType: types.EventIntentValidated, IntentID: "intent-1"})
	require.NoError(t, err)
	_, err = AppendBatch(ctx, st, "trace-1", now)
	require.NoError(t, err)

	require.NoError(t, Reinitialize(ctx, st))
	head, err := st.GetChainHead(ctx)
	require.NoError(t, err)
	require.Equal(t, GenesisHash, head)
}

func TestCanonicalBytesDeterministicAcrossMapOrder(t *testing.T) {
	now := time.Now().UTC()
	b1 := Batch{TraceID: "t", Events: []*types.Event{{TraceID: "t", Timestamp: now, Payload: map[string]any{"a": 1, "b": 2}}}}
	b2 := Batch{TraceID: "t", Events: []*types.Event{{TraceID: "t", Timestamp: now, Payload: map[string]any{"b": 2, "a": 1}}}}

	c1, err := CanonicalBytes(b1)
	require.NoError(t, err)
	c2, err := CanonicalBytes(b2)
	require.NoError(t, err)
	require.Equal(t, c1, c2)
}
