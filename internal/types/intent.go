package types

import "time"

// DefaultMaxRetries is the default bound on Intent.Retries (Invariant 2).
const DefaultMaxRetries = 3

// DefaultPriority is assigned to an Intent when none is specified.
const DefaultPriority = 3

// Intent is a structured proposal to merge a source ref into a target ref.
// See spec §3 for the full invariant set.
type Intent struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`
	Target     string     `json:"target"`
	Status     Status     `json:"status"`
	RiskLevel  RiskLevel  `json:"risk_level"`
	Priority   int        `json:"priority"`
	OriginType OriginType `json:"origin_type"`
	CreatedAt  time.Time  `json:"created_at"`
	CreatedBy  string     `json:"created_by"`
	UpdatedAt  time.Time  `json:"updated_at"`

	Semantic  map[string]any `json:"semantic,omitempty"`
	Technical Technical      `json:"technical,omitempty"`

	ChecksRequired []string `json:"checks_required,omitempty"`
	Dependencies   []string `json:"dependencies,omitempty"`

	Retries  int    `json:"retries"`
	TenantID string `json:"tenant_id,omitempty"`
	PlanID   string `json:"plan_id,omitempty"`
}

// Technical carries technical context for an Intent. Only ScopeHint feeds
// automated decisions (spec §3); AffectedModules is informational.
type Technical struct {
	ScopeHint       []string       `json:"scope_hint,omitempty"`
	AffectedModules []string       `json:"affected_modules,omitempty"`
	Extra           map[string]any `json:"extra,omitempty"`
}

// NewIntent constructs an Intent with spec-mandated defaults: status READY,
// priority 3, and a fresh timestamp pair. The caller still owns ID
// assignment (see idgen).
func NewIntent(id, source, target string, origin OriginType, createdBy string, now time.Time) *Intent {
	return &Intent{
		ID:         id,
		Source:     source,
		Target:     target,
		Status:     StatusReady,
		RiskLevel:  RiskMedium,
		Priority:   DefaultPriority,
		OriginType: origin,
		CreatedAt:  now,
		CreatedBy:  createdBy,
		UpdatedAt:  now,
		Semantic:   map[string]any{},
	}
}

// HasDependency reports whether depID appears in i.Dependencies.
func (i *Intent) HasDependency(depID string) bool {
	for _, d := range i.Dependencies {
		if d == depID {
			return true
		}
	}
	return false
}

// EffectiveChecks computes the effective required-checks set per the
// Open Question resolution in spec §9: profile checks union intent
// checks_required.
func EffectiveChecks(profileChecks, intentChecks []string) []string {
	seen := make(map[string]bool, len(profileChecks)+len(intentChecks))
	var out []string
	for _, c := range profileChecks {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, c := range intentChecks {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
