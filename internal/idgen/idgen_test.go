package idgen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIntentIDDeterministic(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := IntentID("feature/x", "main", "alice", now, 0)
	b := IntentID("feature/x", "main", "alice", now, 0)
	require.Equal(t, a, b)
	require.Len(t, a, DefaultLength)
}

func TestIntentIDNonceResolvesCollision(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := IntentID("feature/x", "main", "alice", now, 0)
	b := IntentID("feature/x", "main", "alice", now, 1)
	require.NotEqual(t, a, b)
}

func TestEventIDVariesBySeq(t *testing.T) {
	a := EventID("trace-1", 1, 0)
	b := EventID("trace-1", 2, 0)
	require.NotEqual(t, a, b)
}

func TestReviewIDDeterministic(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := ReviewID("intent-1", "coherence_downgrade", now, 0)
	b := ReviewID("intent-1", "coherence_downgrade", now, 0)
	require.Equal(t, a, b)
}

func TestTraceIDIsUnique(t *testing.T) {
	a := TraceID()
	b := TraceID()
	require.NotEqual(t, a, b)
}
