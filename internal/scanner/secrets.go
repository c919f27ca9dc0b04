package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/ghmbegerez/converge/internal/idgen"
	"github.com/ghmbegerez/converge/internal/types"
)

// GitleaksScanner wraps the gitleaks CLI (detect --report-format json),
// normalizing its findings per spec §4.4. Secrets findings are always
// HIGH severity and their evidence is truncated to the rule name plus the
// first 8 bytes of the match, never the full secret.
type GitleaksScanner struct {
	binary string
}

// NewGitleaksScanner returns a scanner that shells out to binary (default
// "gitleaks" if empty).
func NewGitleaksScanner(binary string) *GitleaksScanner {
	if binary == "" {
		binary = "gitleaks"
	}
	return &GitleaksScanner{binary: binary}
}

func (g *GitleaksScanner) Name() string                      { return "gitleaks" }
func (g *GitleaksScanner) Category() types.SecurityCategory   { return types.CategorySecrets }

func (g *GitleaksScanner) IsAvailable(ctx context.Context) bool {
	return exec.CommandContext(ctx, g.binary, "version").Run() == nil
}

type gitleaksFinding struct {
	RuleID      string `json:"RuleID"`
	File        string `json:"File"`
	StartLine   int    `json:"StartLine"`
	Match       string `json:"Match"`
	Description string `json:"Description"`
}

func (g *GitleaksScanner) Scan(ctx context.Context, path string, opts Options) ([]*types.SecurityFinding, error) {
	ctx, cancel := context.WithTimeout(ctx, TimeoutFor(types.CategorySecrets))
	defer cancel()

	cmd := exec.CommandContext(ctx, g.binary, "detect", "--source", path, "--report-format", "json",
		"--report-path", "-", "--no-banner", "--exit-code", "0")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("scanner: gitleaks: %w", err)
	}

	var raw []gitleaksFinding
	if stdout.Len() > 0 {
		if err := json.Unmarshal(stdout.Bytes(), &raw); err != nil {
			return nil, fmt.Errorf("scanner: parse gitleaks output: %w", err)
		}
	}

	now := time.Now().UTC()
	findings := make([]*types.SecurityFinding, 0, len(raw))
	for i, f := range raw {
		findings = append(findings, &types.SecurityFinding{
			ID:         idgen.ReviewID(opts.IntentID, f.RuleID+f.File, now, i),
			Scanner:    g.Name(),
			Category:   types.CategorySecrets,
			Severity:   types.SeverityHigh,
			File:       f.File,
			Line:       f.StartLine,
			Rule:       f.RuleID,
			Evidence:   truncateEvidence(f.RuleID, f.Match),
			Confidence: 1.0,
			IntentID:   opts.IntentID,
			TenantID:   opts.TenantID,
			Timestamp:  now,
		})
	}
	return findings, nil
}

// truncateEvidence keeps the rule name plus the first 8 bytes of the
// matched secret, never the full secret (spec §4.4).
func truncateEvidence(rule, match string) string {
	if len(match) > 8 {
		match = match[:8]
	}
	return fmt.Sprintf("%s:%s...", rule, match)
}

var _ Scanner = (*GitleaksScanner)(nil)
