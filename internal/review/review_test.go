package review

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

func seedReview(t *testing.T, st *sqlite.Store, intentID string, status types.ReviewStatus) string {
	t.Helper()
	ctx := context.Background()
	r := &types.ReviewTask{
		ID:          intentID + "-review",
		IntentID:    intentID,
		Status:      status,
		Reason:      "coherence_downgrade",
		RequestedAt: time.Now().UTC(),
	}
	require.NoError(t, st.CreateReview(ctx, r))
	return r.ID
}

func TestServiceAssignThenComplete(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	id := seedReview(t, st, "intent-1", types.ReviewPending)

	svc := &Service{Store: st}
	require.NoError(t, svc.Assign(ctx, id, "alice"))

	reviews, err := st.GetReviewsForIntent(ctx, "intent-1")
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	require.Equal(t, types.ReviewAssigned, reviews[0].Status)
	require.Equal(t, "alice", reviews[0].Assignee)

	require.NoError(t, svc.Complete(ctx, id))
	reviews, err = st.GetReviewsForIntent(ctx, "intent-1")
	require.NoError(t, err)
	require.Equal(t, types.ReviewCompleted, reviews[0].Status)
	require.NotNil(t, reviews[0].ResolvedAt)
}

func TestServiceRejectFromPending(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	id := seedReview(t, st, "intent-2", types.ReviewPending)

	svc := &Service{Store: st}
	require.NoError(t, svc.Reject(ctx, id, "not mergeable"))

	reviews, err := st.GetReviewsForIntent(ctx, "intent-2")
	require.NoError(t, err)
	require.Equal(t, types.ReviewRejected, reviews[0].Status)
	require.Equal(t, "not mergeable", reviews[0].Reason)
}

func TestServiceRejectsInvalidTransition(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	id := seedReview(t, st, "intent-3", types.ReviewCompleted)

	svc := &Service{Store: st}
	err := svc.Complete(ctx, id)
	require.Error(t, err)
}

func TestHasPendingAndHasRejected(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedReview(t, st, "intent-4", types.ReviewPending)

	pending, err := HasPending(ctx, st, "intent-4")
	require.NoError(t, err)
	require.True(t, pending)

	rejected, err := HasRejected(ctx, st, "intent-4")
	require.NoError(t, err)
	require.False(t, rejected)
}
