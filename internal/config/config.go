// Package config loads the two configuration surfaces spec §6 names: a
// YAML startup file for process-level settings (store backend, DSN, actor
// identity, lock timeout — the things read before any store is opened),
// and the JSON policy/harness files that become types.PolicyConfig /
// types.HarnessConfig. Grounded on steveyegge-beads/internal/config's
// LocalConfig (plain gopkg.in/yaml.v3 struct + env-override layering) for
// the startup file, generalized from the teacher's single BEADS_SYNC_BRANCH
// override to a CONVERGE_* prefix via spf13/viper, matching SPEC_FULL's
// ambient-stack choice of viper for free-form env/CLI config while keeping
// the JSON policy/harness decoding on stdlib encoding/json (the wire
// contract spec §6 defines).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ghmbegerez/converge/internal/cerr"
	"github.com/ghmbegerez/converge/internal/policy/schema"
	"github.com/ghmbegerez/converge/internal/types"
)

// App is the startup-only process configuration (spec §6's implicit
// "everything read before the store opens").
type App struct {
	StoreKind   string        `yaml:"store-kind"`
	StoreDSN    string        `yaml:"store-dsn"`
	Actor       string        `yaml:"actor"`
	LockTimeout time.Duration `yaml:"lock-timeout"`
	PolicyPath  string        `yaml:"policy-path"`
	HarnessPath string        `yaml:"harness-path"`
	ChecksPath  string        `yaml:"checks-path"`
	OTelEnabled bool          `yaml:"otel-enabled"`
}

// defaultApp mirrors the teacher's pattern of defaulting before any file
// or env override is applied.
func defaultApp() App {
	return App{
		StoreKind:   "sqlite",
		StoreDSN:    "converge.db",
		Actor:       "converge",
		LockTimeout: types.DefaultQueueLockTTL,
	}
}

// LoadApp reads path (converge.yaml-shaped) if it exists, then applies
// CONVERGE_* environment overrides (env wins), matching
// LoadLocalConfigWithEnv's file-then-env layering in the teacher.
func LoadApp(path string) (App, error) {
	cfg := defaultApp()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return App{}, cerr.New(cerr.KindConfig, false, fmt.Errorf("parsing %s: %w", path, err))
		}
	} else if !os.IsNotExist(err) {
		return App{}, cerr.New(cerr.KindConfig, false, fmt.Errorf("reading %s: %w", path, err))
	}

	v := viper.New()
	v.SetEnvPrefix("CONVERGE")
	v.AutomaticEnv()
	applyStringEnv(v, "STORE_KIND", &cfg.StoreKind)
	applyStringEnv(v, "STORE_DSN", &cfg.StoreDSN)
	applyStringEnv(v, "ACTOR", &cfg.Actor)
	applyStringEnv(v, "POLICY_PATH", &cfg.PolicyPath)
	applyStringEnv(v, "HARNESS_PATH", &cfg.HarnessPath)
	applyStringEnv(v, "CHECKS_PATH", &cfg.ChecksPath)
	if s := v.GetString("LOCK_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.LockTimeout = d
		}
	}
	if s := v.GetString("OTEL_ENABLED"); s != "" {
		cfg.OTelEnabled = s == "1" || s == "true"
	}

	return cfg, nil
}

func applyStringEnv(v *viper.Viper, key string, dst *string) {
	if s := v.GetString(key); s != "" {
		*dst = s
	}
}

// policyCandidates is the load order of spec §6: explicit path →
// .converge/policy.json → policy.json → policy.default.json.
func policyCandidates(explicit string) []string {
	out := []string{}
	if explicit != "" {
		out = append(out, explicit)
	}
	return append(out, ".converge/policy.json", "policy.json", "policy.default.json")
}

// LoadPolicy reads and validates the first existing candidate from
// explicit (if non-empty) and the standard fallback chain, then decodes it
// into types.PolicyConfig. A malformed or schema-invalid file is a
// ConfigError: fatal at load, per spec §7.
func LoadPolicy(explicit string) (types.PolicyConfig, string, error) {
	var cfg types.PolicyConfig
	for _, path := range policyCandidates(explicit) {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return cfg, "", cerr.New(cerr.KindConfig, false, fmt.Errorf("reading %s: %w", path, err))
		}
		if err := schema.ValidatePolicy(data); err != nil {
			return cfg, "", cerr.New(cerr.KindConfig, false, fmt.Errorf("validating %s: %w", path, err))
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, "", cerr.New(cerr.KindConfig, false, fmt.Errorf("decoding %s: %w", path, err))
		}
		return cfg, path, nil
	}
	return cfg, "", cerr.New(cerr.KindConfig, false, fmt.Errorf("no policy file found in %v", policyCandidates(explicit)))
}

// LoadChecks reads path as a JSON object mapping check name to the argv
// that runs it (e.g. {"unit_tests": ["go", "test", "./..."]}), the
// name->command table internal/check.Registry wraps. An empty path
// returns an empty table rather than an error — a deployment with no
// named checks configured still validates, just with ChecksRequired
// entries silently skipped per internal/check.Port's contract.
func LoadChecks(path string) (map[string][]string, error) {
	if path == "" {
		return map[string][]string{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]string{}, nil
		}
		return nil, cerr.New(cerr.KindConfig, false, fmt.Errorf("reading %s: %w", path, err))
	}
	var out map[string][]string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, cerr.New(cerr.KindConfig, false, fmt.Errorf("decoding %s: %w", path, err))
	}
	return out, nil
}

// LoadHarness reads and validates path (no fallback chain — the harness
// file is always explicit, spec §6) and decodes it into
// types.HarnessConfig.
func LoadHarness(path string) (types.HarnessConfig, error) {
	var cfg types.HarnessConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, cerr.New(cerr.KindConfig, false, fmt.Errorf("reading %s: %w", path, err))
	}
	if err := schema.ValidateHarness(data); err != nil {
		return cfg, cerr.New(cerr.KindConfig, false, fmt.Errorf("validating %s: %w", path, err))
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, cerr.New(cerr.KindConfig, false, fmt.Errorf("decoding %s: %w", path, err))
	}
	return cfg, nil
}
