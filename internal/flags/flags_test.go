package flags

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ghmbegerez/converge/internal/types"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	reg, err := Load()
	require.NoError(t, err)

	require.True(t, reg.IsEnabled("intent_links"))
	require.False(t, reg.IsEnabled("code_ownership"))
	require.Equal(t, types.FlagShadow, reg.Mode("semantic_conflicts"))
}

func TestUnknownFlagDefaultsEnabled(t *testing.T) {
	t.Chdir(t.TempDir())

	reg, err := Load()
	require.NoError(t, err)
	require.True(t, reg.IsEnabled("nonexistent_flag"))
	require.Equal(t, types.FlagOff, reg.Mode("nonexistent_flag"))
}

func TestConfigFileOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".converge"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".converge", "flags.json"),
		[]byte(`{"code_ownership": {"enabled": true, "mode": "enforce"}}`), 0o644))

	reg, err := Load()
	require.NoError(t, err)
	require.True(t, reg.IsEnabled("code_ownership"))
	require.Equal(t, types.FlagEnforce, reg.Mode("code_ownership"))

	state, ok := reg.Get("code_ownership")
	require.True(t, ok)
	require.Equal(t, "config", state.Source)
}

func TestEnvOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "flags.json"),
		[]byte(`{"audit_chain": false}`), 0o644))
	t.Setenv("CONVERGE_FF_AUDIT_CHAIN", "true")

	reg, err := Load()
	require.NoError(t, err)

	state, ok := reg.Get("audit_chain")
	require.True(t, ok)
	require.True(t, state.Enabled)
	require.Equal(t, "env", state.Source)
}

func TestSetOverridesAtRuntime(t *testing.T) {
	t.Chdir(t.TempDir())
	reg, err := Load()
	require.NoError(t, err)

	require.True(t, reg.Set("audit_chain", false, types.FlagOff))
	require.False(t, reg.IsEnabled("audit_chain"))
	require.False(t, reg.Set("nonexistent_flag", true, types.FlagOff))
}

func TestListIsSortedByName(t *testing.T) {
	t.Chdir(t.TempDir())
	reg, err := Load()
	require.NoError(t, err)

	states := reg.List()
	for i := 1; i < len(states); i++ {
		require.LessOrEqual(t, states[i-1].Name, states[i].Name)
	}
}
