package coherence

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/ghmbegerez/converge/internal/types"
)

// Timeout is the hard ceiling on a single question's probe command
// (spec §4.7).
const Timeout = 60 * time.Second

var severityWeight = map[types.Severity]float64{
	types.SeverityCritical: 30,
	types.SeverityHigh:     20,
	types.SeverityMedium:   10,
}

// BaselineLookup resolves the last stored baseline value for a question ID.
type BaselineLookup func(questionID string) (float64, bool, error)

// Run executes every enabled question in cfg, scores the result, and
// returns the full CoherenceResult (spec §4.7). Questions run in isolation:
// one question's command failure does not prevent the others from running.
// Verdict is set from pass/warn thresholds; the cross-validation downgrade
// is applied separately by the caller via CrossValidate, once risk-engine
// output is available.
func Run(ctx context.Context, cfg types.HarnessConfig, pass, warn float64, lookup BaselineLookup) (*types.CoherenceResult, error) {
	var results []types.QuestionResult
	var failedWeight float64

	for _, q := range cfg.Questions {
		if !q.Enabled {
			continue
		}
		qr := runQuestion(ctx, q, lookup)
		results = append(results, qr)
		if !qr.Passed {
			failedWeight += severityWeight[q.Severity]
		}
	}

	score := clampScore(100 - failedWeight)
	return &types.CoherenceResult{
		Score:           score,
		Verdict:         Verdict(score, pass, warn),
		QuestionResults: results,
	}, nil
}

func runQuestion(ctx context.Context, q types.Question, lookup BaselineLookup) types.QuestionResult {
	qr := types.QuestionResult{QuestionID: q.ID, Severity: q.Severity}

	result, err := executeProbe(ctx, q.Check)
	if err != nil {
		qr.Error = err.Error()
		qr.Passed = false
		return qr
	}
	qr.Result = result

	clause, err := ParseAssertion(q.Assertion)
	if err != nil {
		qr.Error = err.Error()
		qr.Passed = false
		return qr
	}

	baseline, haveBaseline := 0.0, false
	if lookup != nil {
		b, have, err := lookup(q.ID)
		if err != nil {
			qr.Error = err.Error()
			qr.Passed = false
			return qr
		}
		baseline, haveBaseline = b, have
	}
	qr.Baseline = baselinePtr(baseline, haveBaseline)
	qr.Passed = clause.Eval(result, baseline, haveBaseline)
	return qr
}

func baselinePtr(v float64, have bool) *float64 {
	if !have {
		return nil
	}
	return &v
}

// executeProbe runs the check command with Timeout and parses the last
// non-empty line of stdout as a float (spec §4.7).
func executeProbe(ctx context.Context, command string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	fields := strings.Fields(command)
	if len(fields) == 0 {
		return 0, fmt.Errorf("coherence: empty check command")
	}

	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("coherence: probe command failed: %w", err)
	}

	line := lastNonEmptyLine(stdout.String())
	if line == "" {
		return 0, fmt.Errorf("coherence: probe produced no output")
	}
	v, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return 0, fmt.Errorf("coherence: probe output %q is not a float: %w", line, err)
	}
	return v, nil
}

func lastNonEmptyLine(s string) string {
	scanner := bufio.NewScanner(strings.NewReader(s))
	var last string
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			last = line
		}
	}
	return last
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Verdict classifies score against the profile's pass/warn thresholds
// (spec §4.7).
func Verdict(score, pass, warn float64) types.CoherenceVerdict {
	switch {
	case score >= pass:
		return types.CoherencePass
	case score >= warn:
		return types.CoherenceWarn
	default:
		return types.CoherenceFail
	}
}
