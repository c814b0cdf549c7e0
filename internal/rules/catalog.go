// Package rules compiles reward rule configurations into an immutable
// catalog and resolves the best-matching category for a user's metrics.
package rules

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/kaushiksai711/Karma-AI/internal/condition"
	"github.com/kaushiksai711/Karma-AI/internal/domain"
)

// Rule is one compiled catalog entry.
type Rule struct {
	Category    string
	Description string
	Expr        condition.Expr
	Specificity int // leaf comparisons in Expr
}

// Catalog holds the compiled rule set in a fixed order. It is
// immutable after construction; hot reload builds a new Catalog and
// swaps it in whole.
type Catalog struct {
	rules   []*Rule
	index   map[string]*Rule
	dropped int
}

// NewCatalog compiles configs into a catalog. A rule with no
// conditions or with an unparseable condition is dropped with a
// warning rather than failing the load. Rules are ordered by category
// name so feature vector positions stay stable across restarts.
func NewCatalog(configs map[string]domain.RuleConfig, metrics []string) *Catalog {
	c := &Catalog{index: make(map[string]*Rule, len(configs))}

	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cfg := configs[name]
		expr, err := compile(cfg.Conditions, metrics)
		if err != nil {
			slog.Warn("dropping rule", "category", name, "error", err)
			c.dropped++
			continue
		}
		rule := &Rule{
			Category:    name,
			Description: cfg.Description,
			Expr:        expr,
			Specificity: expr.Leaves(),
		}
		c.rules = append(c.rules, rule)
		c.index[name] = rule
	}

	return c
}

// compile parses each condition and joins them with `and`: a rule
// matches only when every one of its conditions holds.
func compile(conditions []string, metrics []string) (condition.Expr, error) {
	if len(conditions) == 0 {
		return nil, fmt.Errorf("no conditions")
	}

	var expr condition.Expr
	for _, text := range conditions {
		parsed, err := condition.Parse(text, metrics)
		if err != nil {
			return nil, err
		}
		if expr == nil {
			expr = parsed
		} else {
			expr = &condition.Logical{Op: "and", Left: expr, Right: parsed}
		}
	}
	return expr, nil
}

// Rules returns all compiled rules in catalog order. Callers must not
// modify the returned slice.
func (c *Catalog) Rules() []*Rule { return c.rules }

// Rule returns the compiled rule for a category.
func (c *Catalog) Rule(category string) (*Rule, bool) {
	r, ok := c.index[category]
	return r, ok
}

// Len returns the number of loaded rules.
func (c *Catalog) Len() int { return len(c.rules) }

// Dropped returns the number of configured rules that failed to
// compile and were left out of the catalog.
func (c *Catalog) Dropped() int { return c.dropped }

// Categories returns category names in catalog order.
func (c *Catalog) Categories() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Category
	}
	return names
}

// Match records one rule's evaluation against a metric set.
type Match struct {
	Rule      *Rule
	Satisfied bool
}

// Evaluate runs every rule against metrics, in catalog order. An
// evaluation error counts as not satisfied; a rule never partially
// matches.
func (c *Catalog) Evaluate(metrics domain.MetricSet) []Match {
	matches := make([]Match, len(c.rules))
	for i, rule := range c.rules {
		ok, err := rule.Expr.Eval(metrics)
		if err != nil {
			ok = false
		}
		matches[i] = Match{Rule: rule, Satisfied: ok}
	}
	return matches
}
