// Package coherence implements the coherence harness (spec §4.7): a
// configured set of probe commands, each paired with a baseline-relative
// assertion evaluated by an explicit hand-written parser rather than any
// general expression evaluator — spec §4.7 is emphatic on this point, and
// no pack repo imports an expression-evaluation library for anything
// resembling this, so a small recursive-descent parser over a closed
// grammar is the only grounded option.
package coherence

import (
	"fmt"
	"strconv"
	"strings"
)

// Op is a comparison operator in the assertion grammar.
type Op string

const (
	OpEq  Op = "=="
	OpNeq Op = "!="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
)

// Comparison is one `result OP rhs` clause, where rhs is either a numeric
// literal or the `baseline` keyword.
type Comparison struct {
	Op         Op
	RHSLiteral float64
	RHSBaseline bool
}

// Clause is a single comparison or a compound AND/OR of two clauses.
type Clause struct {
	Comparison *Comparison
	And        *BinaryClause
	Or         *BinaryClause
}

// BinaryClause holds the two operands of an AND/OR compound.
type BinaryClause struct {
	Left, Right *Clause
}

// ParseAssertion parses the closed grammar of spec §4.7:
//
//	assertion := clause (("AND" | "OR") clause)?
//	clause    := "result" OP rhs
//	rhs       := "baseline" | number
//
// Only a single level of AND/OR is supported (spec gives no grammar for
// nesting or operator precedence beyond "Compound A AND B, A OR B").
func ParseAssertion(expr string) (*Clause, error) {
	tokens := tokenize(expr)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("coherence: empty assertion")
	}

	if idx := findTopLevelConnective(tokens); idx >= 0 {
		left, err := parseComparison(tokens[:idx])
		if err != nil {
			return nil, err
		}
		right, err := parseComparison(tokens[idx+1:])
		if err != nil {
			return nil, err
		}
		bc := &BinaryClause{Left: &Clause{Comparison: left}, Right: &Clause{Comparison: right}}
		if strings.EqualFold(tokens[idx], "AND") {
			return &Clause{And: bc}, nil
		}
		return &Clause{Or: bc}, nil
	}

	cmp, err := parseComparison(tokens)
	if err != nil {
		return nil, err
	}
	return &Clause{Comparison: cmp}, nil
}

func tokenize(expr string) []string {
	return strings.Fields(expr)
}

func findTopLevelConnective(tokens []string) int {
	for i, t := range tokens {
		if strings.EqualFold(t, "AND") || strings.EqualFold(t, "OR") {
			return i
		}
	}
	return -1
}

// parseComparison expects exactly ["result", OP, rhs].
func parseComparison(tokens []string) (*Comparison, error) {
	if len(tokens) != 3 {
		return nil, fmt.Errorf("coherence: malformed comparison %q", strings.Join(tokens, " "))
	}
	if tokens[0] != "result" {
		return nil, fmt.Errorf("coherence: comparison must start with 'result', got %q", tokens[0])
	}
	op := Op(tokens[1])
	switch op {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
	default:
		return nil, fmt.Errorf("coherence: unknown operator %q", tokens[1])
	}

	rhs := tokens[2]
	if strings.EqualFold(rhs, "baseline") {
		return &Comparison{Op: op, RHSBaseline: true}, nil
	}
	v, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return nil, fmt.Errorf("coherence: rhs %q is neither 'baseline' nor a number", rhs)
	}
	return &Comparison{Op: op, RHSLiteral: v}, nil
}

// Eval evaluates the clause against result, substituting baseline for a
// `baseline` reference. If the clause references baseline and haveBaseline
// is false, the comparison passes (first-run permissive, spec §4.7).
func (c *Clause) Eval(result float64, baseline float64, haveBaseline bool) bool {
	switch {
	case c.Comparison != nil:
		return evalComparison(c.Comparison, result, baseline, haveBaseline)
	case c.And != nil:
		return c.And.Left.Eval(result, baseline, haveBaseline) && c.And.Right.Eval(result, baseline, haveBaseline)
	case c.Or != nil:
		return c.Or.Left.Eval(result, baseline, haveBaseline) || c.Or.Right.Eval(result, baseline, haveBaseline)
	default:
		return false
	}
}

func evalComparison(c *Comparison, result, baseline float64, haveBaseline bool) bool {
	rhs := c.RHSLiteral
	if c.RHSBaseline {
		if !haveBaseline {
			return true
		}
		rhs = baseline
	}
	switch c.Op {
	case OpEq:
		return result == rhs
	case OpNeq:
		return result != rhs
	case OpLt:
		return result < rhs
	case OpLte:
		return result <= rhs
	case OpGt:
		return result > rhs
	case OpGte:
		return result >= rhs
	default:
		return false
	}
}
