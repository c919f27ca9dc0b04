package types

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validIntent() *Intent {
	return NewIntent("intent-1", "feature/x", "main", OriginHuman, "alice", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestValidateAcceptsWellFormedIntent(t *testing.T) {
	require.NoError(t, validIntent().Validate())
}

func TestValidateRejectsEmptyID(t *testing.T) {
	i := validIntent()
	i.ID = ""
	require.Error(t, i.Validate())
}

func TestValidateRejectsMissingSourceOrTarget(t *testing.T) {
	i := validIntent()
	i.Source = ""
	require.Error(t, i.Validate())

	i = validIntent()
	i.Target = ""
	require.Error(t, i.Validate())
}

func TestValidateRejectsInvalidStatus(t *testing.T) {
	i := validIntent()
	i.Status = Status("BOGUS")
	require.Error(t, i.Validate())
}

func TestValidateRejectsInvalidRiskLevel(t *testing.T) {
	i := validIntent()
	i.RiskLevel = RiskLevel("BOGUS")
	require.Error(t, i.Validate())
}

func TestValidateRejectsInvalidOriginType(t *testing.T) {
	i := validIntent()
	i.OriginType = OriginType("BOGUS")
	require.Error(t, i.Validate())
}

func TestValidateRejectsPriorityOutOfRange(t *testing.T) {
	i := validIntent()
	i.Priority = 0
	require.Error(t, i.Validate())

	i = validIntent()
	i.Priority = 6
	require.Error(t, i.Validate())
}

func TestValidateRejectsRetriesOutOfRange(t *testing.T) {
	i := validIntent()
	i.Retries = -1
	require.Error(t, i.Validate())

	i = validIntent()
	i.Retries = DefaultMaxRetries + 1
	require.Error(t, i.Validate())
}

func TestValidateRejectsSelfReferentialDependency(t *testing.T) {
	i := validIntent()
	i.Dependencies = []string{i.ID}
	require.Error(t, i.Validate())
}

func TestValidateRejectsDuplicateDependency(t *testing.T) {
	i := validIntent()
	i.Dependencies = []string{"intent-0", "intent-0"}
	require.Error(t, i.Validate())
}

func TestDetectCycleNoCycle(t *testing.T) {
	depsOf := func(id string) ([]string, error) {
		switch id {
		case "b":
			return []string{"c"}, nil
		case "c":
			return nil, nil
		}
		return nil, nil
	}
	cyc, err := DetectCycle("a", []string{"b"}, depsOf)
	require.NoError(t, err)
	require.Nil(t, cyc)
}

func TestDetectCycleDirect(t *testing.T) {
	depsOf := func(id string) ([]string, error) {
		if id == "b" {
			return []string{"a"}, nil
		}
		return nil, nil
	}
	cyc, err := DetectCycle("a", []string{"b"}, depsOf)
	require.NoError(t, err)
	require.NotNil(t, cyc)
	require.Equal(t, "a", cyc[len(cyc)-1])
}

func TestDetectCycleMultiHop(t *testing.T) {
	graph := map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
	}
	depsOf := func(id string) ([]string, error) {
		return graph[id], nil
	}
	cyc, err := DetectCycle("a", graph["a"], depsOf)
	require.NoError(t, err)
	require.NotNil(t, cyc)
	require.Equal(t, "a", cyc[len(cyc)-1])
}

func TestDetectCyclePropagatesDepsOfError(t *testing.T) {
	depsOf := func(id string) ([]string, error) {
		return nil, fmt.Errorf("store unavailable")
	}
	cyc, err := DetectCycle("a", []string{"b"}, depsOf)
	require.Error(t, err)
	require.Nil(t, cyc)
}
