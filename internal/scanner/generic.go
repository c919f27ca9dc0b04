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

// genericFinding is the normalized shape an adapter's command line is
// expected to emit on stdout as a JSON array, one element per finding.
// semgrep (SAST) and osv-scanner (SCA) can both be wrapped by a thin
// jq/template step upstream that reshapes their native output to this;
// this adapter stays free of either tool's specific schema.
type genericFinding struct {
	Rule       string  `json:"rule"`
	File       string  `json:"file"`
	Line       int     `json:"line"`
	Severity   string  `json:"severity"`
	Evidence   string  `json:"evidence"`
	Confidence float64 `json:"confidence"`
}

// CommandScanner runs an arbitrary command producing genericFinding JSON
// on stdout, for SAST/SCA tools normalized upstream of this process.
type CommandScanner struct {
	name     string
	category types.SecurityCategory
	argv     []string
}

// NewCommandScanner wraps argv[0] (argv[1:] as arguments) as a Scanner of
// the given name/category. The process must print a JSON array of
// genericFinding on stdout and exit 0 whether or not findings were found.
func NewCommandScanner(name string, category types.SecurityCategory, argv []string) *CommandScanner {
	return &CommandScanner{name: name, category: category, argv: argv}
}

func (c *CommandScanner) Name() string                    { return c.name }
func (c *CommandScanner) Category() types.SecurityCategory { return c.category }

func (c *CommandScanner) IsAvailable(ctx context.Context) bool {
	if len(c.argv) == 0 {
		return false
	}
	_, err := exec.LookPath(c.argv[0])
	return err == nil
}

func (c *CommandScanner) Scan(ctx context.Context, path string, opts Options) ([]*types.SecurityFinding, error) {
	if len(c.argv) == 0 {
		return nil, fmt.Errorf("scanner: %s: no command configured", c.name)
	}
	ctx, cancel := context.WithTimeout(ctx, TimeoutFor(c.category))
	defer cancel()

	args := append(append([]string{}, c.argv[1:]...), path)
	cmd := exec.CommandContext(ctx, c.argv[0], args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("scanner: %s: %w", c.name, err)
	}

	var raw []genericFinding
	if stdout.Len() > 0 {
		if err := json.Unmarshal(stdout.Bytes(), &raw); err != nil {
			return nil, fmt.Errorf("scanner: %s: parse output: %w", c.name, err)
		}
	}

	now := time.Now().UTC()
	findings := make([]*types.SecurityFinding, 0, len(raw))
	for i, f := range raw {
		findings = append(findings, &types.SecurityFinding{
			ID:         idgen.ReviewID(opts.IntentID, f.Rule+f.File, now, i),
			Scanner:    c.name,
			Category:   c.category,
			Severity:   types.Severity(f.Severity),
			File:       f.File,
			Line:       f.Line,
			Rule:       f.Rule,
			Evidence:   f.Evidence,
			Confidence: f.Confidence,
			IntentID:   opts.IntentID,
			TenantID:   opts.TenantID,
			Timestamp:  now,
		})
	}
	return findings, nil
}

var _ Scanner = (*CommandScanner)(nil)
