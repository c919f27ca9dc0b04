// Package schema validates the policy and coherence-harness JSON files of
// spec §6 against CUE schemas before they're decoded into config structs,
// grounded on reusee-tai/configs.Loader's compile-then-unify pattern
// (cuecontext.New, CompileBytes against a schema, Unify+Validate).
package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// policySchema constrains policy.json's shape: a profile table keyed by
// risk level plus the queue and risk-gate sections (spec §4.8, §6).
const policySchema = `
profiles?: [string]: {
	entropy_budget?:   number
	containment_min?:  number
	blast_limit?:      number
	checks?:           [...string]
	coherence_pass?:   number
	coherence_warn?:   number
	security?: {
		max_critical?: int
		max_high?:     int
	}
}
origin_overrides?: [string]: [string]: {
	entropy_budget?:  number
	containment_min?: number
	blast_limit?:     number
	checks?:          [...string]
	coherence_pass?:  number
	coherence_warn?:  number
	security?: {
		max_critical?: int
		max_high?:     int
	}
}
queue?: {
	max_retries?:    int
	default_target?: string
}
risk?: {
	thresholds?: {
		max_risk_score?:        number
		max_damage_score?:      number
		max_propagation_score?: number
	}
	mode?:          "shadow" | "enforce"
	enforce_ratio?: number
}
`

// harnessSchema constrains harness.json's shape: a versioned list of
// coherence questions (spec §4.7, §6).
const harnessSchema = `
version: int
questions: [...{
	id:        string
	question:  string
	check:     string
	assertion: string
	severity:  "CRITICAL" | "HIGH" | "MEDIUM" | "LOW"
	category?: string
	enabled:   bool
}]
`

// ValidatePolicy checks raw policy.json bytes against policySchema.
func ValidatePolicy(data []byte) error {
	return validateAgainst(policySchema, data)
}

// ValidateHarness checks raw harness.json bytes against harnessSchema.
func ValidateHarness(data []byte) error {
	return validateAgainst(harnessSchema, data)
}

func validateAgainst(schemaSrc string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString("close({" + schemaSrc + "})")
	if err := schema.Err(); err != nil {
		return fmt.Errorf("schema: internal schema failed to compile: %w", err)
	}

	value := ctx.CompileBytes(data)
	if err := value.Err(); err != nil {
		return fmt.Errorf("schema: invalid JSON: %w", err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return fmt.Errorf("schema: does not conform: %w", err)
	}
	return nil
}
