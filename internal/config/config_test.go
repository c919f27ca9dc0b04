package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ghmbegerez/converge/internal/types"
)

func TestLoadAppDefaults(t *testing.T) {
	cfg, err := LoadApp(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.StoreKind)
	require.Equal(t, "converge.db", cfg.StoreDSN)
	require.Equal(t, "converge", cfg.Actor)
}

func TestLoadAppFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "converge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store-kind: dolt
store-dsn: /tmp/converge
actor: ci-bot
lock-timeout: 30s
checks-path: checks.json
`), 0o644))

	cfg, err := LoadApp(path)
	require.NoError(t, err)
	require.Equal(t, "dolt", cfg.StoreKind)
	require.Equal(t, "/tmp/converge", cfg.StoreDSN)
	require.Equal(t, "ci-bot", cfg.Actor)
	require.Equal(t, 30*time.Second, cfg.LockTimeout)
	require.Equal(t, "checks.json", cfg.ChecksPath)
}

func TestLoadAppEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "converge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("actor: from-file\n"), 0o644))
	t.Setenv("CONVERGE_ACTOR", "from-env")

	cfg, err := LoadApp(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Actor)
}

func TestLoadPolicyNoCandidates(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	_, _, err = LoadPolicy("")
	require.Error(t, err)
}

func TestLoadPolicyExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"profiles": {
			"LOW": {"entropy_budget": 0.5, "containment_min": 0.2, "blast_limit": 0.8, "coherence_pass": 0.9, "coherence_warn": 0.7}
		},
		"risk": {"mode": "shadow", "enforce_ratio": 0.1}
	}`), 0o644))

	cfg, gotPath, err := LoadPolicy(path)
	require.NoError(t, err)
	require.Equal(t, path, gotPath)
	require.Contains(t, cfg.Profiles, types.RiskLow)
}

func TestLoadChecksEmptyPath(t *testing.T) {
	out, err := LoadChecks("")
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestLoadChecksMissingFile(t *testing.T) {
	out, err := LoadChecks(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestLoadChecksFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checks.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"unit_tests": ["go", "test", "./..."]}`), 0o644))

	out, err := LoadChecks(path)
	require.NoError(t, err)
	require.Equal(t, []string{"go", "test", "./..."}, out["unit_tests"])
}

func TestLoadChecksMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checks.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o644))

	_, err := LoadChecks(path)
	require.Error(t, err)
}

func TestLoadHarnessMissingFile(t *testing.T) {
	_, err := LoadHarness(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
