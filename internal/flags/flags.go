// Package flags implements the three-tier feature-flag resolver of spec
// §6: defaults → config file → environment, environment wins. Each flag
// carries the full {enabled, mode} shape, not a bare boolean, so a
// capability can be rolled out shadow-then-enforce rather than flipped on
// all at once. Grounded on original_source/src/converge/feature_flags.py's
// _load_flags precedence order and CONVERGE_FF_<NAME>[_MODE] env naming,
// reworked onto spf13/viper for the env/config merge (the teacher's own
// config loading pulls in viper for exactly this layered-override job) in
// place of the original's hand-rolled os.environ/json.load walk.
package flags

import (
	"encoding/json"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/ghmbegerez/converge/internal/types"
)

// Default carries the unresolved default for one flag.
type Default struct {
	Enabled     bool
	Mode        types.FlagMode
	Description string
}

// Defaults is the built-in flag catalog (spec §6's flag set), seeded from
// the phases the original implementation gated. Unknown flag names
// resolve to enabled=true with no mode, matching the original's "unknown
// flags default to enabled" fallback.
var Defaults = map[string]Default{
	"intent_links":        {Enabled: true, Description: "track commit-to-intent links"},
	"archaeology_enhanced": {Enabled: true, Description: "enhanced git history analysis"},
	"intent_semantics":    {Enabled: true, Description: "semantic embeddings and similarity"},
	"origin_policy":       {Enabled: true, Description: "origin-type policy overrides"},
	"verification_debt":   {Enabled: true, Description: "verification debt tracking"},
	"review_tasks":        {Enabled: true, Description: "human review task workflow"},
	"security_adapters":   {Enabled: true, Description: "security scanner integration"},
	"intake_control":      {Enabled: true, Description: "adaptive intake throttling"},
	"semantic_conflicts":  {Enabled: true, Mode: types.FlagShadow, Description: "semantic conflict detection"},
	"plan_coordination":   {Enabled: true, Description: "plan-based dependency enforcement"},
	"audit_chain":         {Enabled: true, Description: "event tamper-evidence chain"},
	"code_ownership":       {Enabled: false, Description: "code-area ownership separation of duties"},
	"pre_eval_harness":    {Enabled: true, Mode: types.FlagShadow, Description: "pre-merge evaluation harness"},
}

// configEntry is the on-disk shape of one flags.json override. Enabled is
// a pointer so "key present but only mode set" doesn't clobber the default
// enabled value with JSON's false zero value.
type configEntry struct {
	Enabled *bool  `json:"enabled,omitempty"`
	Mode    string `json:"mode,omitempty"`
}

// Registry holds the resolved state of every known flag, loaded once and
// safe for concurrent reads. It is the spec §6/§9 "process-wide global
// mutable state" for the feature-flag registry: one Registry is expected
// to be constructed at process start and shared.
type Registry struct {
	mu              sync.RWMutex
	flags           map[string]*types.FlagState
	lastConfigFound bool
}

// Load resolves the registry from defaults, then the first of
// .converge/flags.json or flags.json that exists, then environment
// variables (CONVERGE_FF_<NAME>, CONVERGE_FF_<NAME>_MODE) — environment
// wins over config, config wins over defaults (spec §6).
func Load() (*Registry, error) {
	r := &Registry{flags: make(map[string]*types.FlagState, len(Defaults))}
	for name, d := range Defaults {
		r.flags[name] = &types.FlagState{
			Name:        name,
			Enabled:     d.Enabled,
			Mode:        d.Mode,
			Description: d.Description,
			Source:      "default",
		}
	}

	if err := r.applyConfigFile(".converge/flags.json"); err != nil {
		return nil, err
	} else if !r.lastConfigFound {
		if err := r.applyConfigFile("flags.json"); err != nil {
			return nil, err
		}
	}

	r.applyEnv()
	return r, nil
}

// applyConfigFile merges one candidate flags.json path into the registry.
// lastConfigFound records whether it existed, so Load tries the fallback
// path only when .converge/flags.json is absent (first-match-wins, as in
// the original).
func (r *Registry) applyConfigFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		r.lastConfigFound = false
		if os.IsNotExist(err) {
			return nil
		}
		return nil // malformed/unreadable config is ignored, same as the original's bare except
	}
	r.lastConfigFound = true

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for name, msg := range raw {
		state, known := r.flags[name]
		if !known {
			continue
		}
		var asBool bool
		if err := json.Unmarshal(msg, &asBool); err == nil {
			state.Enabled = asBool
			state.Source = "config"
			continue
		}
		var entry configEntry
		if err := json.Unmarshal(msg, &entry); err != nil {
			continue
		}
		if entry.Enabled != nil {
			state.Enabled = *entry.Enabled
		}
		if entry.Mode != "" {
			state.Mode = types.FlagMode(entry.Mode)
		}
		state.Source = "config"
	}
	return nil
}

func (r *Registry) applyEnv() {
	v := viper.New()
	v.SetEnvPrefix("CONVERGE_FF")
	v.AutomaticEnv()

	r.mu.Lock()
	defer r.mu.Unlock()
	for name, state := range r.flags {
		envKey := strings.ToUpper(name)
		if val := v.GetString(envKey); val != "" {
			state.Enabled = parseBool(val)
			state.Source = "env"
		}
		if mode := v.GetString(envKey + "_MODE"); mode != "" {
			state.Mode = types.FlagMode(strings.ToLower(mode))
		}
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// IsEnabled reports whether name is enabled. Unknown flag names default
// to enabled, matching the original's fail-open fallback.
func (r *Registry) IsEnabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.flags[name]; ok {
		return s.Enabled
	}
	return true
}

// Mode returns the rollout mode of name, or FlagOff if unset/unknown.
func (r *Registry) Mode(name string) types.FlagMode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.flags[name]; ok && s.Mode != "" {
		return s.Mode
	}
	return types.FlagOff
}

// Get returns the full resolved state of name.
func (r *Registry) Get(name string) (types.FlagState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.flags[name]
	if !ok {
		return types.FlagState{}, false
	}
	return *s, true
}

// List returns every flag's resolved state, sorted by name.
func (r *Registry) List() []types.FlagState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.FlagState, 0, len(r.flags))
	for _, s := range r.flags {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Set overrides a flag's state at runtime (spec §6's "api" source),
// e.g. from an admin CLI command. Returns false if name is unknown.
func (r *Registry) Set(name string, enabled bool, mode types.FlagMode) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.flags[name]
	if !ok {
		return false
	}
	s.Enabled = enabled
	if mode != "" {
		s.Mode = mode
	}
	s.Source = "api"
	return true
}
