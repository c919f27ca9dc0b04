package cerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorUnwrapsToUnderlyingCause(t *testing.T) {
	base := errors.New("disk full")
	err := New(KindStore, true, base)
	require.ErrorIs(t, err, base)
}

func TestErrorMessageIncludesRetryableSuffix(t *testing.T) {
	err := New(KindSCM, true, errors.New("boom"))
	require.Contains(t, err.Error(), "(retryable)")

	err2 := New(KindSCM, false, errors.New("boom"))
	require.NotContains(t, err2.Error(), "(retryable)")
}

func TestIsRetryableReflectsWrappedError(t *testing.T) {
	retryable := fmt.Errorf("wrapped: %w", New(KindLock, true, errors.New("held")))
	require.True(t, IsRetryable(retryable))

	notRetryable := New(KindConfig, false, errors.New("bad"))
	require.False(t, IsRetryable(notRetryable))

	require.False(t, IsRetryable(errors.New("plain")))
}

func TestKindOfExtractsKindFromWrappedError(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", New(KindChain, false, errors.New("tampered")))
	require.Equal(t, KindChain, KindOf(wrapped))
	require.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrAlreadyExists, ErrCyclicDependency, ErrInvalidTransition,
		ErrRetriesExhausted, ErrLockHeld, ErrNotMergeable, ErrScannerMissing, ErrConfig,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				require.False(t, errors.Is(a, b), "sentinels %v and %v must be distinct", a, b)
			}
		}
	}
}
