package semantic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCosineConflictIdentical(t *testing.T) {
	v := Vector{1, 2, 3}
	require.InDelta(t, 1.0, CosineConflict(v, v), 1e-9)
}

func TestCosineConflictOrthogonal(t *testing.T) {
	require.Equal(t, 0.0, CosineConflict(Vector{1, 0}, Vector{0, 1}))
}

func TestCosineConflictMismatchedDims(t *testing.T) {
	require.Equal(t, 0.0, CosineConflict(Vector{1, 2}, Vector{1, 2, 3}))
}

func TestCosineConflictEmpty(t *testing.T) {
	require.Equal(t, 0.0, CosineConflict(nil, Vector{1}))
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	p := NewOpenAIProvider("test-key", "")

	require.NoError(t, r.Register("openai", p))
	require.Error(t, r.Register("openai", p))
	require.Same(t, p, r.Get("openai").(*OpenAIProvider))
	require.Nil(t, r.Get("missing"))
	require.ElementsMatch(t, []string{"openai"}, r.Names())
}
