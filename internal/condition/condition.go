// Package condition implements the boolean expression language used by
// reward rules: comparisons over named activity metrics combined with
// case-sensitive `and` / `or` keywords and parentheses.
package condition

import (
	"fmt"

	"github.com/kaushiksai711/Karma-AI/internal/domain"
)

// Expr is an immutable expression tree node. Trees are built once by
// Parse and never mutated, so they are safe for concurrent evaluation.
type Expr interface {
	// Eval reports whether the expression holds for the given metrics.
	// Missing metrics read as 0. An error means the tree is malformed;
	// callers treat that as "not satisfied".
	Eval(metrics domain.MetricSet) (bool, error)

	// Leaves returns the number of leaf comparisons in the tree.
	// Rule specificity is defined as this count.
	Leaves() int

	// String renders the expression in canonical source form.
	String() string
}

// Comparison is a leaf node: METRIC OP VALUE.
type Comparison struct {
	Metric string
	Op     string
	Value  int
}

// Eval applies the operator with integer semantics.
func (c *Comparison) Eval(metrics domain.MetricSet) (bool, error) {
	v := metrics.Value(c.Metric)
	switch c.Op {
	case ">=":
		return v >= c.Value, nil
	case "<=":
		return v <= c.Value, nil
	case "==":
		return v == c.Value, nil
	case "<":
		return v < c.Value, nil
	case ">":
		return v > c.Value, nil
	}
	return false, fmt.Errorf("unknown operator %q", c.Op)
}

// Leaves returns 1.
func (c *Comparison) Leaves() int { return 1 }

func (c *Comparison) String() string {
	return fmt.Sprintf("%s %s %d", c.Metric, c.Op, c.Value)
}

// Logical is an inner node combining two subtrees with `and` or `or`.
type Logical struct {
	Op    string // "and" or "or"
	Left  Expr
	Right Expr
}

// Eval short-circuits: `and` skips the right side on a false left,
// `or` skips it on a true left.
func (l *Logical) Eval(metrics domain.MetricSet) (bool, error) {
	left, err := l.Left.Eval(metrics)
	if err != nil {
		return false, err
	}
	switch l.Op {
	case "and":
		if !left {
			return false, nil
		}
		return l.Right.Eval(metrics)
	case "or":
		if left {
			return true, nil
		}
		return l.Right.Eval(metrics)
	}
	return false, fmt.Errorf("unknown logical operator %q", l.Op)
}

// Leaves sums both subtrees.
func (l *Logical) Leaves() int { return l.Left.Leaves() + l.Right.Leaves() }

func (l *Logical) String() string {
	return fmt.Sprintf("%s %s %s", grouped(l.Left), l.Op, grouped(l.Right))
}

// grouped parenthesizes logical children so the rendered form parses
// back to the same tree.
func grouped(e Expr) string {
	if _, ok := e.(*Logical); ok {
		return "(" + e.String() + ")"
	}
	return e.String()
}
