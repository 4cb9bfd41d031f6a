// Package signal evaluates a static condition table against the latest
// indicator point of each instrument.
package signal

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"kdj-monitor/internal/model"
)

// Condition is one named predicate over K and J. Bounds are optional;
// every bound that is set must hold for the condition to match. A condition
// with no bounds at all is a configuration error.
type Condition struct {
	Name string   `yaml:"name"`
	KGt  *float64 `yaml:"k_gt,omitempty"`
	KLt  *float64 `yaml:"k_lt,omitempty"`
	JGt  *float64 `yaml:"j_gt,omitempty"`
	JLt  *float64 `yaml:"j_lt,omitempty"`
}

// Match reports whether the point's K and J satisfy every set bound.
func (c *Condition) Match(k, j float64) bool {
	if c.KGt != nil && !(k > *c.KGt) {
		return false
	}
	if c.KLt != nil && !(k < *c.KLt) {
		return false
	}
	if c.JGt != nil && !(j > *c.JGt) {
		return false
	}
	if c.JLt != nil && !(j < *c.JLt) {
		return false
	}
	return true
}

func (c *Condition) validate() error {
	if c.Name == "" {
		return fmt.Errorf("signal: condition without a name")
	}
	if c.KGt == nil && c.KLt == nil && c.JGt == nil && c.JLt == nil {
		return fmt.Errorf("signal: condition %q has no bounds", c.Name)
	}
	return nil
}

// Evaluate returns the names of every condition the point matches, in table
// order. Pure function: same point and table, same result.
func Evaluate(point model.IndicatorPoint, conditions []Condition) []string {
	var matched []string
	for i := range conditions {
		if conditions[i].Match(point.K, point.J) {
			matched = append(matched, conditions[i].Name)
		}
	}
	return matched
}

func f(v float64) *float64 { return &v }

// DefaultConditions is the built-in table: overbought, strong breakout,
// oversold, deep oversold.
func DefaultConditions() []Condition {
	return []Condition{
		{Name: "cond2", KGt: f(90), JLt: f(105)},
		{Name: "cond3", KGt: f(85), JGt: f(105)},
		{Name: "cond4", KLt: f(20), JLt: f(-10)},
		{Name: "cond5", KLt: f(15), JLt: f(-5)},
	}
}

type conditionsFile struct {
	Conditions []Condition `yaml:"conditions"`
}

// LoadConditions reads a condition table from a YAML file. An empty path
// returns the default table.
func LoadConditions(path string) ([]Condition, error) {
	if path == "" {
		return DefaultConditions(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("signal: read conditions: %w", err)
	}
	var file conditionsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("signal: parse conditions: %w", err)
	}
	if len(file.Conditions) == 0 {
		return nil, fmt.Errorf("signal: %s defines no conditions", path)
	}
	for i := range file.Conditions {
		if err := file.Conditions[i].validate(); err != nil {
			return nil, err
		}
	}
	return file.Conditions, nil
}
