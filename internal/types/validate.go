package types

import "fmt"

// Validate checks the static invariants of an Intent that can be checked
// without consulting the store (spec §3, invariants 1-3). Acyclicity of the
// dependency *closure* (transitive) requires the store's dependency graph
// and is checked by the caller at write time (spec §9).
func (i *Intent) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("intent: id is required")
	}
	if i.Source == "" || i.Target == "" {
		return fmt.Errorf("intent: source and target are required")
	}
	if !i.Status.IsValid() {
		return fmt.Errorf("intent: invalid status %q", i.Status)
	}
	if !i.RiskLevel.IsValid() {
		return fmt.Errorf("intent: invalid risk_level %q", i.RiskLevel)
	}
	if !i.OriginType.IsValid() {
		return fmt.Errorf("intent: invalid origin_type %q", i.OriginType)
	}
	if i.Priority < 1 || i.Priority > 5 {
		return fmt.Errorf("intent: priority must be in [1,5], got %d", i.Priority)
	}
	if i.Retries < 0 || i.Retries > DefaultMaxRetries {
		return fmt.Errorf("intent: retries %d exceeds MAX_RETRIES %d", i.Retries, DefaultMaxRetries)
	}
	if err := validateDependencies(i.ID, i.Dependencies); err != nil {
		return err
	}
	return nil
}

// validateDependencies enforces Invariant 3's self-reference and
// uniqueness constraints. Transitive cycle detection happens against the
// full dependency graph held by the store (see internal/store).
func validateDependencies(id string, deps []string) error {
	seen := make(map[string]bool, len(deps))
	for _, d := range deps {
		if d == id {
			return fmt.Errorf("intent: dependency %q is self-referential", d)
		}
		if seen[d] {
			return fmt.Errorf("intent: duplicate dependency %q", d)
		}
		seen[d] = true
	}
	return nil
}

// DependenciesOfFunc resolves the outbound dependency set of an Intent ID,
// used by DetectCycle to walk the full dependency closure held in storage.
// The caller closes over its context and store handle.
type DependenciesOfFunc func(id string) ([]string, error)

// DetectCycle walks the dependency closure starting from rootID (whose
// declared dependencies are newDeps, not yet persisted) and reports the
// first cycle found, if any, as a slice of Intent IDs forming the cycle.
func DetectCycle(rootID string, newDeps []string, depsOf DependenciesOfFunc) ([]string, error) {
	visiting := map[string]bool{rootID: true}
	path := []string{rootID}

	var walk func(id string, deps []string) ([]string, error)
	walk = func(id string, deps []string) ([]string, error) {
		for _, d := range deps {
			if visiting[d] {
				return append(append([]string{}, path...), d), nil
			}
			visiting[d] = true
			path = append(path, d)
			next, err := depsOf(d)
			if err != nil {
				return nil, err
			}
			cyc, err := walk(d, next)
			if err != nil {
				return nil, err
			}
			if cyc != nil {
				return cyc, nil
			}
			path = path[:len(path)-1]
			visiting[d] = false
		}
		return nil, nil
	}
	return walk(rootID, newDeps)
}
