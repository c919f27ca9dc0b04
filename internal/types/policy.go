package types

// SecurityThresholds bounds security-finding counts for the security gate
// (spec §4.8). MaxCritical is always 0 for every profile.
type SecurityThresholds struct {
	MaxCritical int `json:"max_critical"`
	MaxHigh     int `json:"max_high"`
}

// PolicyProfile is the per-risk-level gate configuration (spec §3, §6).
type PolicyProfile struct {
	EntropyBudget    float64            `json:"entropy_budget"`
	ContainmentMin   float64            `json:"containment_min"`
	BlastLimit       float64            `json:"blast_limit"`
	Checks           []string           `json:"checks"`
	CoherencePass    float64            `json:"coherence_pass"`
	CoherenceWarn    float64            `json:"coherence_warn"`
	Security         SecurityThresholds `json:"security"`
}

// RiskThresholds are the global risk-gate limits (spec §3).
type RiskThresholds struct {
	MaxRiskScore        float64 `json:"max_risk_score"`
	MaxDamageScore       float64 `json:"max_damage_score"`
	MaxPropagationScore float64 `json:"max_propagation_score"`
}

// RiskGateConfig configures canary rollout of the risk gate (spec §4.8).
type RiskGateConfig struct {
	Thresholds   RiskThresholds `json:"thresholds"`
	Mode         RiskGateMode   `json:"mode"`
	EnforceRatio float64        `json:"enforce_ratio"`
}

// QueueConfig configures queue-processor behavior (spec §6).
type QueueConfig struct {
	MaxRetries    int    `json:"max_retries"`
	DefaultTarget string `json:"default_target"`
}

// PolicyConfig is the fully loaded policy configuration (spec §6).
type PolicyConfig struct {
	Profiles        map[RiskLevel]PolicyProfile                `json:"profiles"`
	OriginOverrides map[OriginType]map[string]PolicyProfileDiff `json:"origin_overrides"`
	Queue           QueueConfig                                 `json:"queue"`
	Risk            RiskGateConfig                              `json:"risk"`
}

// PolicyProfileDiff is a partial profile override: zero-valued fields are
// treated as "not overridden" by policy.MergeProfile.
type PolicyProfileDiff struct {
	EntropyBudget  *float64            `json:"entropy_budget,omitempty"`
	ContainmentMin *float64            `json:"containment_min,omitempty"`
	BlastLimit     *float64            `json:"blast_limit,omitempty"`
	Checks         []string            `json:"checks,omitempty"`
	CoherencePass  *float64            `json:"coherence_pass,omitempty"`
	CoherenceWarn  *float64            `json:"coherence_warn,omitempty"`
	Security       *SecurityThresholds `json:"security,omitempty"`
}

// GateResult is the outcome of evaluating one policy gate (spec §4.8).
type GateResult struct {
	Gate      GateName `json:"gate"`
	Passed    bool     `json:"passed"`
	Reason    string   `json:"reason"`
	Value     float64  `json:"value"`
	Threshold float64  `json:"threshold"`
}

// PolicyEvaluation is the full five-gate decision (spec §4.8).
type PolicyEvaluation struct {
	Verdict     PolicyVerdict `json:"verdict"`
	Gates       []GateResult  `json:"gates"`
	RiskLevel   RiskLevel     `json:"risk_level"`
	ProfileUsed string        `json:"profile_used"`
}

// FirstFailingGate returns the first gate that did not pass, or nil if all
// passed.
func (p *PolicyEvaluation) FirstFailingGate() *GateResult {
	for i := range p.Gates {
		if !p.Gates[i].Passed {
			return &p.Gates[i]
		}
	}
	return nil
}

// RiskGateBreach records one threshold breach (spec §4.8).
type RiskGateBreach struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
	Limit  float64 `json:"limit"`
}

// RiskGateEvaluation is the outcome of the separate risk gate (spec §4.8).
type RiskGateEvaluation struct {
	WouldBlock        bool             `json:"would_block"`
	Enforced          bool             `json:"enforced"`
	Mode              RiskGateMode     `json:"mode"`
	EnforceRatio      float64          `json:"enforce_ratio"`
	RolloutBucket     float64          `json:"rollout_bucket"`
	InEnforcementGroup bool            `json:"in_enforcement_group"`
	Breaches          []RiskGateBreach `json:"breaches"`
}

// CoherenceResult is the outcome of one harness run (spec §4.7).
type CoherenceResult struct {
	Score           float64          `json:"score"`
	Verdict         CoherenceVerdict `json:"verdict"`
	QuestionResults []QuestionResult `json:"question_results"`
	Downgraded      bool             `json:"downgraded"`
	DowngradeReason string           `json:"downgrade_reason,omitempty"`
}

// QuestionResult is the per-question outcome of a coherence probe.
type QuestionResult struct {
	QuestionID string   `json:"question_id"`
	Passed     bool     `json:"passed"`
	Result     float64  `json:"result"`
	Baseline   *float64 `json:"baseline,omitempty"`
	Severity   Severity `json:"severity"`
	Error      string   `json:"error,omitempty"`
}

// Question describes one coherence probe (spec §4.7).
type Question struct {
	ID        string   `json:"id"`
	Question  string   `json:"question"`
	Check     string   `json:"check"`
	Assertion string   `json:"assertion"`
	Severity  Severity `json:"severity"`
	Category  string   `json:"category"`
	Enabled   bool     `json:"enabled"`
}

// HarnessConfig is the full loaded coherence harness configuration (spec §6).
type HarnessConfig struct {
	Version   int        `json:"version"`
	Questions []Question `json:"questions"`
}
