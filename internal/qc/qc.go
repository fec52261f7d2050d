// Package qc runs declarative quality checks over downloaded rows.
// Violations are reported, never enforced.
package qc

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/epa-data-etl/internal/domain"
	"github.com/couchcryptid/epa-data-etl/internal/observability"
)

//go:embed airnow.yaml
var defaultAirNowRules []byte

// Rule checks one column. Required means the column must exist and be
// non-null; Min and Max bound numeric values.
type Rule struct {
	Name     string   `yaml:"name"`
	Column   string   `yaml:"column"`
	Required bool     `yaml:"required"`
	Min      *float64 `yaml:"min"`
	Max      *float64 `yaml:"max"`
}

// RuleSet is a named list of rules.
type RuleSet struct {
	Rules []Rule `yaml:"rules"`
}

// Violation is one failed rule on one row.
type Violation struct {
	Rule   string
	Row    int
	Column string
	Value  any
	Reason string
}

// ParseRules decodes and validates a YAML rule set.
func ParseRules(data []byte) (RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, domain.ConfigError("parse qc rules: %v", err)
	}
	for i, r := range rs.Rules {
		if r.Column == "" {
			return RuleSet{}, domain.ConfigError("qc rule %d has no column", i)
		}
		if r.Name == "" {
			rs.Rules[i].Name = r.Column
		}
		if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			return RuleSet{}, domain.ConfigError("qc rule %q: min %v > max %v", r.Name, *r.Min, *r.Max)
		}
	}
	return rs, nil
}

// LoadRules reads a rule file, or the embedded AirNow defaults when path is
// empty.
func LoadRules(path string) (RuleSet, error) {
	if path == "" {
		return ParseRules(defaultAirNowRules)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("read qc rules %s: %w", path, err)
	}
	return ParseRules(data)
}

// Check returns every violation in rows.
func (rs RuleSet) Check(rows []domain.Record) []Violation {
	var out []Violation
	for i, row := range rows {
		for _, r := range rs.Rules {
			if v, ok := r.check(row); !ok {
				v.Row = i
				out = append(out, v)
			}
		}
	}
	return out
}

func (r Rule) check(row domain.Record) (Violation, bool) {
	v, present := row.Get(r.Column)
	fail := func(reason string) (Violation, bool) {
		return Violation{Rule: r.Name, Column: r.Column, Value: v, Reason: reason}, false
	}
	if !present || domain.IsNull(v) {
		if r.Required {
			return fail("missing value")
		}
		return Violation{}, true
	}
	if r.Min == nil && r.Max == nil {
		return Violation{}, true
	}
	f, ok := domain.ToFloat(v)
	if !ok {
		return fail("not numeric")
	}
	if r.Min != nil && f < *r.Min {
		return fail(fmt.Sprintf("below minimum %v", *r.Min))
	}
	if r.Max != nil && f > *r.Max {
		return fail(fmt.Sprintf("above maximum %v", *r.Max))
	}
	return Violation{}, true
}

// Checker logs and counts violations.
type Checker struct {
	rules   RuleSet
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewChecker creates a checker over a rule set.
func NewChecker(rules RuleSet, metrics *observability.Metrics, logger *slog.Logger) *Checker {
	return &Checker{rules: rules, metrics: metrics, logger: logger}
}

// Inspect checks rows, reporting each violation. It returns the number of
// violations found.
func (c *Checker) Inspect(label string, rows []domain.Record) int {
	violations := c.rules.Check(rows)
	for _, v := range violations {
		c.metrics.QCViolations.WithLabelValues(v.Rule).Inc()
		c.logger.Warn("quality check failed",
			"batch", label,
			"rule", v.Rule,
			"row", v.Row,
			"column", v.Column,
			"value", v.Value,
			"reason", v.Reason,
		)
	}
	return len(violations)
}
