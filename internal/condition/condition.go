// Package condition implements the transition condition mini-language:
// a single comparison of the form `path operator literal`, evaluated
// against the run's execution state, e.g.
//
//	results.generate_copy.confidence >= 0.8
package condition

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/axonworks/axon/internal/state"
)

var (
	// ErrInvalid marks a condition that does not split into exactly
	// three tokens. A malformed condition is a configuration error and
	// fatal to the run.
	ErrInvalid = errors.New("invalid condition")

	// ErrUnsupportedOperator marks an operator outside the supported set.
	ErrUnsupportedOperator = errors.New("unsupported operator")

	// ErrComparison marks operands that cannot be ordered against each
	// other (e.g. string vs number). Fatal: silently treating it as
	// false could route execution down the wrong branch.
	ErrComparison = errors.New("cannot compare values")
)

var operators = map[string]bool{
	"==": true,
	"!=": true,
	">":  true,
	"<":  true,
	">=": true,
	"<=": true,
}

// Expr is a parsed condition: a state path on the left, a literal on the
// right. Right is either a float64 or an unquoted string.
type Expr struct {
	Left  string
	Op    string
	Right any
}

// Parse tokenizes a condition on whitespace and validates its shape.
func Parse(cond string) (*Expr, error) {
	tokens := strings.Fields(cond)
	if len(tokens) != 3 {
		return nil, fmt.Errorf("%w: expected 3 tokens, got %d in %q", ErrInvalid, len(tokens), cond)
	}

	left, op, right := tokens[0], tokens[1], tokens[2]
	if !operators[op] {
		return nil, fmt.Errorf("%w: %q in %q", ErrUnsupportedOperator, op, cond)
	}

	return &Expr{Left: left, Op: op, Right: castLiteral(right)}, nil
}

// Evaluate parses and evaluates a condition against the state map.
func Evaluate(cond string, st map[string]any) (bool, error) {
	expr, err := Parse(cond)
	if err != nil {
		return false, err
	}
	return expr.Evaluate(st)
}

// Evaluate resolves the left path against the state and compares it to
// the literal. An absent (or present-nil) left value is never equal to
// any literal and orders as false; a string/number mix under an ordering
// operator is an ErrComparison.
func (e *Expr) Evaluate(st map[string]any) (bool, error) {
	left, present := state.Resolve(e.Left, st)
	if left == nil {
		present = false
	}

	switch e.Op {
	case "==":
		return present && equal(left, e.Right), nil
	case "!=":
		return !present || !equal(left, e.Right), nil
	}

	if !present {
		return false, nil
	}

	cmp, err := compare(left, e.Right)
	if err != nil {
		return false, fmt.Errorf("%s %s %v: %w", e.Left, e.Op, e.Right, err)
	}

	switch e.Op {
	case ">":
		return cmp > 0, nil
	case "<":
		return cmp < 0, nil
	case ">=":
		return cmp >= 0, nil
	case "<=":
		return cmp <= 0, nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnsupportedOperator, e.Op)
}

// castLiteral converts the right-hand token: base-10 numbers (optional
// leading minus, at most one dot) become float64, anything else is a
// string with one level of surrounding quotes stripped.
func castLiteral(token string) any {
	if isNumeric(token) {
		if f, err := strconv.ParseFloat(token, 64); err == nil {
			return f
		}
	}

	s := token
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			s = s[1 : len(s)-1]
		}
	}
	return s
}

func isNumeric(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	dots := 0
	for _, r := range s {
		if r == '.' {
			dots++
			if dots > 1 {
				return false
			}
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != "."
}

func equal(left, right any) bool {
	if lf, ok := toFloat(left); ok {
		if rf, ok := toFloat(right); ok {
			return lf == rf
		}
		return false
	}
	ls, lok := left.(string)
	rs, rok := right.(string)
	if lok && rok {
		return ls == rs
	}
	if lb, ok := left.(bool); ok {
		// Literals are never booleans, so compare against the words.
		if rs, ok := right.(string); ok {
			return (lb && rs == "true") || (!lb && rs == "false")
		}
	}
	return false
}

// compare returns -1, 0 or 1 for orderable operand pairs: two numbers
// numerically, two strings lexicographically.
func compare(left, right any) (int, error) {
	if lf, lok := toFloat(left); lok {
		rf, rok := toFloat(right)
		if !rok {
			return 0, fmt.Errorf("%w: number vs %T", ErrComparison, right)
		}
		switch {
		case lf < rf:
			return -1, nil
		case lf > rf:
			return 1, nil
		}
		return 0, nil
	}

	if ls, lok := left.(string); lok {
		rs, rok := right.(string)
		if !rok {
			return 0, fmt.Errorf("%w: string vs %T", ErrComparison, right)
		}
		return strings.Compare(ls, rs), nil
	}

	return 0, fmt.Errorf("%w: %T is not orderable", ErrComparison, left)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f, true
		}
	}
	return 0, false
}
