package store

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Decimal reads a yaml scalar straight into a decimal, so 0.1 in a config
// file is exactly 0.1.
type Decimal struct {
	decimal.Decimal
}

func NewDecimal(s string) Decimal {
	return Decimal{decimal.RequireFromString(s)}
}

func (d *Decimal) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", node.Line)
	}
	v, err := decimal.NewFromString(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %q is not a decimal: %w", node.Line, node.Value, err)
	}
	d.Decimal = v
	return nil
}

func (d Decimal) MarshalYAML() (any, error) {
	return d.String(), nil
}
