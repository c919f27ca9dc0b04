// Package orchestrator implements the validation pipeline of spec §4.9:
// simulate, verify, risk, coherence, policy gates, risk gate, finalize,
// with strict short-circuit semantics and one shared trace_id per run.
// Grounded on steveyegge-beads/internal/formula's LoadAndResolve pipeline
// style — a linear sequence of named steps, each able to abort the whole
// run, threading a single mutable result forward — generalized here from
// formula resolution to Intent validation.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ghmbegerez/converge/internal/auditchain"
	"github.com/ghmbegerez/converge/internal/cerr"
	"github.com/ghmbegerez/converge/internal/check"
	"github.com/ghmbegerez/converge/internal/coherence"
	"github.com/ghmbegerez/converge/internal/graph"
	"github.com/ghmbegerez/converge/internal/idgen"
	"github.com/ghmbegerez/converge/internal/obsv"
	"github.com/ghmbegerez/converge/internal/policy"
	"github.com/ghmbegerez/converge/internal/risk"
	"github.com/ghmbegerez/converge/internal/scanner"
	"github.com/ghmbegerez/converge/internal/scm"
	"github.com/ghmbegerez/converge/internal/store"
	"github.com/ghmbegerez/converge/internal/types"
)

// CoChangeLookup returns historical co-change pairs for a set of changed
// files, feeding graph builder step 5 (spec §4.5).
type CoChangeLookup func(ctx context.Context, files []string) ([]graph.CoChangePair, error)

// Orchestrator wires the ports and configuration the validation pipeline
// needs. All fields are required except CoChangeLookup, Scanners and Now
// (nil means time.Now).
type Orchestrator struct {
	Store          store.Store
	SCM            scm.Port
	Checks         check.Port
	Scanners       []scanner.Scanner
	PolicyConfig   types.PolicyConfig
	HarnessConfig  types.HarnessConfig
	CoChangeLookup CoChangeLookup
	Now            func() time.Time
}

// Decision is the outcome of one validate() invocation (spec §4.9).
type Decision struct {
	TraceID      string
	Blocked      bool
	BlockReason  string
	Simulation   *types.Simulation
	ChecksPassed []string
	RiskEval     *types.RiskEval
	Coherence    *types.CoherenceResult
	Policy       *types.PolicyEvaluation
	RiskGate     *types.RiskGateEvaluation
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Validate runs the full pipeline for one Intent (spec §4.9). Every step's
// events share one trace_id; a short-circuit emits only the terminating
// block event, not any later step's events. Store/SCM errors abort with
// VALIDATION_ERROR and are returned as errors rather than a blocked
// Decision, and do not count against the Intent's retry budget.
func (o *Orchestrator) Validate(ctx context.Context, intentID string) (*Decision, error) {
	traceID := idgen.TraceID()
	dec, err := o.validate(ctx, traceID, intentID)
	// Fold this run's events into the audit chain regardless of outcome:
	// every return path above emits at least one event for traceID, so a
	// chain batch always exists to record (spec §4.11).
	if chainErr := o.appendChain(ctx, traceID); chainErr != nil && err == nil {
		err = chainErr
	}
	return dec, err
}

func (o *Orchestrator) appendChain(ctx context.Context, traceID string) error {
	if _, err := auditchain.AppendBatch(ctx, o.Store, traceID, o.now()); err != nil {
		return cerr.New(cerr.KindChain, false, err)
	}
	return nil
}

func (o *Orchestrator) validate(ctx context.Context, traceID, intentID string) (*Decision, error) {
	dec := &Decision{TraceID: traceID}

	intent, err := o.Store.GetIntent(ctx, intentID)
	if err != nil {
		return nil, o.validationError(ctx, traceID, intentID, "loading intent", err)
	}

	// Step 1: simulation.
	sim, err := o.SCM.Simulate(ctx, intent.Source, intent.Target)
	if err != nil {
		return nil, o.validationError(ctx, traceID, intentID, "simulating merge", err)
	}
	dec.Simulation = sim
	o.emit(ctx, traceID, intentID, types.EventSimulationCompleted, map[string]any{
		"mergeable":     sim.Mergeable,
		"conflicts":     sim.Conflicts,
		"files_changed": sim.FilesChanged,
	})
	if !sim.Mergeable {
		return o.block(ctx, dec, traceID, intentID, "conflicts")
	}

	// Step 2: verification.
	preProfile := policy.ProfileFor(o.PolicyConfig, intent.RiskLevel, intent.OriginType)
	checksPassed := o.runChecks(ctx, traceID, intentID, types.EffectiveChecks(preProfile.Checks, intent.ChecksRequired))
	dec.ChecksPassed = checksPassed

	// Step 3: risk evaluation.
	g, impactEdgeWeight, err := o.buildGraph(ctx, intent, sim)
	if err != nil {
		return nil, o.validationError(ctx, traceID, intentID, "building graph", err)
	}
	evalInput := risk.Input{
		Graph:            g,
		FilesChanged:     sim.FilesChanged,
		Conflicts:        sim.Conflicts,
		Dependencies:     intent.Dependencies,
		ScopeHints:       intent.Technical.ScopeHint,
		TargetBranch:     intent.Target,
		CurrentRisk:      intent.RiskLevel,
		ImpactEdgeWeight: impactEdgeWeight,
	}
	re := risk.Evaluate(evalInput)
	dec.RiskEval = &re
	o.emit(ctx, traceID, intentID, types.EventRiskEvaluated, map[string]any{
		"risk_score": re.RiskScore,
		"risk_level": re.RiskLevel,
		"bombs":      re.Bombs,
	})
	for _, b := range re.Bombs {
		obsv.ObserveBomb(b.Kind)
	}
	if re.RiskLevel != intent.RiskLevel {
		if _, err := o.Store.UpdateIntent(ctx, intentID, func(i *types.Intent) error {
			i.RiskLevel = re.RiskLevel
			return nil
		}); err != nil {
			return nil, o.validationError(ctx, traceID, intentID, "reclassifying risk level", err)
		}
		o.emit(ctx, traceID, intentID, types.EventRiskLevelReclassified, map[string]any{
			"from": intent.RiskLevel,
			"to":   re.RiskLevel,
		})
		intent.RiskLevel = re.RiskLevel
	}

	// Step 4: coherence.
	cres, err := o.runCoherence(ctx, re, intent.OriginType, intent.Technical.ScopeHint)
	if err != nil {
		return nil, o.validationError(ctx, traceID, intentID, "running coherence harness", err)
	}
	dec.Coherence = cres
	o.emit(ctx, traceID, intentID, types.EventCoherenceEvaluated, map[string]any{
		"score":      cres.Score,
		"verdict":    cres.Verdict,
		"downgraded": cres.Downgraded,
	})
	if cres.Downgraded {
		o.emit(ctx, traceID, intentID, types.EventCoherenceInconsistency, map[string]any{
			"reason": cres.DowngradeReason,
		})
		if err := o.requestReview(ctx, traceID, intentID, cres.DowngradeReason); err != nil {
			return nil, o.validationError(ctx, traceID, intentID, "requesting review", err)
		}
		obsv.ObserveCoherenceDowngrade(cres.DowngradeReason)
	}
	if cres.Verdict == types.CoherenceFail {
		return o.block(ctx, dec, traceID, intentID, "coherence_fail")
	}

	// Step 5: policy gates.
	findings, err := o.runScanners(ctx, traceID, intentID, intent, sim)
	if err != nil {
		return nil, o.validationError(ctx, traceID, intentID, "running scanners", err)
	}
	re.Findings = findings
	critical, high := countBySeverity(findings)
	profile := policy.ProfileFor(o.PolicyConfig, intent.RiskLevel, intent.OriginType)
	pe := policy.Evaluate(profile, intent.ChecksRequired, intent.RiskLevel, policy.Evidence{
		ChecksPassed:     checksPassed,
		ContainmentScore: re.ContainmentScore,
		EntropyScore:     re.EntropyScore,
		CriticalFindings: critical,
		HighFindings:     high,
		CoherenceScore:   cres.Score,
	})
	dec.Policy = &pe
	o.emit(ctx, traceID, intentID, types.EventPolicyEvaluated, map[string]any{
		"verdict": pe.Verdict,
		"gates":   pe.Gates,
	})
	for _, g := range pe.Gates {
		obsv.ObserveGate(g.Gate, g.Passed)
	}
	if pe.Verdict == types.VerdictBlock {
		reason := "policy_gate"
		if g := pe.FirstFailingGate(); g != nil {
			reason = string(g.Gate)
		}
		return o.block(ctx, dec, traceID, intentID, reason)
	}

	// Step 6: risk gate.
	rg := policy.EvaluateRiskGate(o.PolicyConfig.Risk, intentID, re.RiskScore, re.DamageScore, re.PropagationScore)
	dec.RiskGate = &rg
	obsv.ObserveRiskGate(rg)
	if rg.Enforced {
		return o.block(ctx, dec, traceID, intentID, "risk_gate")
	}

	// Step 7: finalize.
	if _, err := o.Store.UpdateIntent(ctx, intentID, func(i *types.Intent) error {
		i.Status = types.StatusValidated
		return nil
	}); err != nil {
		return nil, o.validationError(ctx, traceID, intentID, "finalizing intent", err)
	}
	o.emit(ctx, traceID, intentID, types.EventIntentValidated, map[string]any{
		"policy_verdict": pe.Verdict,
		"risk_gate":      rg,
	})
	return dec, nil
}

func (o *Orchestrator) block(ctx context.Context, dec *Decision, traceID, intentID, reason string) (*Decision, error) {
	dec.Blocked = true
	dec.BlockReason = reason
	o.emit(ctx, traceID, intentID, types.EventIntentBlocked, map[string]any{"reason": reason})
	return dec, nil
}

func (o *Orchestrator) validationError(ctx context.Context, traceID, intentID, stage string, cause error) error {
	o.emit(ctx, traceID, intentID, types.EventValidationError, map[string]any{
		"stage": stage,
		"error": cause.Error(),
	})
	return cerr.New(cerr.KindValidation, false, fmt.Errorf("%s: %w", stage, cause))
}

func (o *Orchestrator) emit(ctx context.Context, traceID, intentID string, eventType types.EventType, payload map[string]any) {
	_, _ = o.Store.AppendEvent(ctx, &types.Event{
		TraceID:   traceID,
		Timestamp: o.now(),
		EventType: eventType,
		IntentID:  intentID,
		Payload:   payload,
	})
}

// runChecks fans the named checks out concurrently, each bounded by its own
// context.WithTimeout so one hung check can't stall its siblings, and folds
// the per-check CHECK_COMPLETED events back in caller order so a run stays
// reproducible regardless of goroutine scheduling.
func (o *Orchestrator) runChecks(ctx context.Context, traceID, intentID string, names []string) []string {
	results := make([]*types.CheckResult, len(names))
	known := make([]bool, len(names))

	g, gCtx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(gCtx, check.Timeout)
			defer cancel()
			result, ok := o.Checks.Run(checkCtx, name)
			results[i], known[i] = result, ok
			return nil
		})
	}
	_ = g.Wait() // Run never returns an error; an unknown check is just (nil, false).

	var passed []string
	for i, name := range names {
		if !known[i] {
			continue
		}
		result := results[i]
		o.emit(ctx, traceID, intentID, types.EventCheckCompleted, map[string]any{
			"name":        result.Name,
			"passed":      result.Passed,
			"duration_ms": result.DurationMS,
		})
		if result.Passed {
			passed = append(passed, name)
		}
	}
	return passed
}

// scanJob is one (scanner, file) pair, the unit runScanners fans out.
type scanJob struct {
	scanner scanner.Scanner
	file    string
}

// runScanners runs every available scanner against every changed file
// concurrently, each call bounded by the scanner category's own timeout
// (spec §4.4), and records the full SECURITY_SCAN_STARTED / ..._COMPLETED /
// SECURITY_FINDING_DETECTED event trail for audit replay.
func (o *Orchestrator) runScanners(ctx context.Context, traceID, intentID string, intent *types.Intent, sim *types.Simulation) ([]types.SecurityFinding, error) {
	var available []scanner.Scanner
	var jobs []scanJob
	for _, s := range o.Scanners {
		if !s.IsAvailable(ctx) {
			continue
		}
		available = append(available, s)
		o.emit(ctx, traceID, intentID, types.EventSecurityScanStarted, map[string]any{
			"scanner":  s.Name(),
			"category": s.Category(),
		})
		for _, f := range sim.FilesChanged {
			jobs = append(jobs, scanJob{scanner: s, file: f})
		}
	}

	results := make([][]*types.SecurityFinding, len(jobs))
	g, gCtx := errgroup.WithContext(ctx)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			scanCtx, cancel := context.WithTimeout(gCtx, scanner.TimeoutFor(j.scanner.Category()))
			defer cancel()
			found, err := j.scanner.Scan(scanCtx, j.file, scanner.Options{IntentID: intent.ID, TenantID: intent.TenantID})
			if err != nil {
				return err
			}
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var findings []types.SecurityFinding
	for _, found := range results {
		for _, ff := range found {
			findings = append(findings, *ff)
			o.emit(ctx, traceID, intentID, types.EventSecurityFindingDetected, map[string]any{
				"scanner":  ff.Scanner,
				"severity": ff.Severity,
				"file":     ff.File,
				"rule":     ff.Rule,
			})
		}
	}
	for _, s := range available {
		o.emit(ctx, traceID, intentID, types.EventSecurityScanCompleted, map[string]any{"scanner": s.Name()})
	}

	if len(findings) > 0 {
		ptrs := make([]*types.SecurityFinding, len(findings))
		for i := range findings {
			ptrs[i] = &findings[i]
		}
		if err := o.Store.UpsertFindings(ctx, ptrs); err != nil {
			return nil, err
		}
	}
	return findings, nil
}

func (o *Orchestrator) buildGraph(ctx context.Context, intent *types.Intent, sim *types.Simulation) (*graph.Graph, float64, error) {
	var coChanges []graph.CoChangePair
	if o.CoChangeLookup != nil {
		var err error
		coChanges, err = o.CoChangeLookup(ctx, sim.FilesChanged)
		if err != nil {
			return nil, 0, err
		}
	}
	g := graph.Build(graph.BuildInput{
		IntentID:     intent.ID,
		Branch:       intent.Target,
		FilesChanged: sim.FilesChanged,
		ScopeHints:   intent.Technical.ScopeHint,
		Dependencies: intent.Dependencies,
		CoChanges:    coChanges,
	})

	var impactWeight float64
	for _, f := range sim.FilesChanged {
		for _, e := range g.Out(graph.Node{Kind: types.NodeFile, Key: f}) {
			impactWeight += e.Weight
		}
	}
	return g, impactWeight, nil
}

func (o *Orchestrator) runCoherence(ctx context.Context, re types.RiskEval, origin types.OriginType, scopeHints []string) (*types.CoherenceResult, error) {
	profile := policy.ProfileFor(o.PolicyConfig, re.RiskLevel, origin)
	lookup := coherence.BaselineLookup(func(questionID string) (float64, bool, error) {
		return o.Store.GetBaseline(ctx, questionID)
	})
	result, err := coherence.Run(ctx, o.HarnessConfig, profile.CoherencePass, profile.CoherenceWarn, lookup)
	if err != nil {
		return nil, err
	}

	coherence.CrossValidate(result, coherence.CrossValidateInput{
		RiskScore:        re.RiskScore,
		PropagationScore: re.PropagationScore,
		Bombs:            re.Bombs,
		ScopeHints:       scopeHints,
	})
	return result, nil
}

func (o *Orchestrator) requestReview(ctx context.Context, traceID, intentID, reason string) error {
	now := o.now()
	task := &types.ReviewTask{
		ID:          idgen.ReviewID(intentID, reason, now, 0),
		IntentID:    intentID,
		Status:      types.ReviewPending,
		Reason:      reason,
		RequestedAt: now,
	}
	if err := o.Store.CreateReview(ctx, task); err != nil {
		return err
	}
	o.emit(ctx, traceID, intentID, types.EventReviewRequested, map[string]any{
		"review_id": task.ID,
		"reason":    reason,
	})
	return nil
}

func countBySeverity(findings []types.SecurityFinding) (critical, high int) {
	for _, f := range findings {
		switch f.Severity {
		case types.SeverityCritical:
			critical++
		case types.SeverityHigh:
			high++
		}
	}
	return
}
