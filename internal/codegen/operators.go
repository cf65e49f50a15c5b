// internal/codegen/operators.go
package codegen

import (
	"fmt"

	"github.com/solatis/extgen/internal/types"
)

/*
 * Condition operators.
 *
 * Implements the 13 operators the platform's condition editor offers.
 * Operators arrive as wire strings in exported definitions and are parsed
 * into a closed enum before rendering, so an unknown operator fails at
 * parse time and never reaches the emitter.
 *
 * Operators:
 *   - equals/does_not_equal: loose equality against a quoted literal
 *   - equals_ignore_case/contains_ignore_case: lower-cased string comparison
 *   - starts_with: anchored regular expression test
 *   - less_than/less_than_equal_to/greater_than: parseFloat on both sides
 *   - defined/notdefined: typeof checks
 *   - contains/does_not_contain: indexOf on the string-coerced field
 *   - notpopulated: comparison against the empty string
 */

// Operator identifies a condition comparison.
type Operator int

const (
	OpUnspecified Operator = iota
	OpEquals
	OpDoesNotEqual
	OpEqualsIgnoreCase
	OpContainsIgnoreCase
	OpStartsWith
	OpLessThan
	OpLessThanEqualTo
	OpGreaterThan
	OpDefined
	OpNotDefined
	OpContains
	OpDoesNotContain
	OpNotPopulated
)

var operatorNames = map[Operator]string{
	OpEquals:             "equals",
	OpDoesNotEqual:       "does_not_equal",
	OpEqualsIgnoreCase:   "equals_ignore_case",
	OpContainsIgnoreCase: "contains_ignore_case",
	OpStartsWith:         "starts_with",
	OpLessThan:           "less_than",
	OpLessThanEqualTo:    "less_than_equal_to",
	OpGreaterThan:        "greater_than",
	OpDefined:            "defined",
	OpNotDefined:         "notdefined",
	OpContains:           "contains",
	OpDoesNotContain:     "does_not_contain",
	OpNotPopulated:       "notpopulated",
}

var operatorsByName = func() map[string]Operator {
	m := make(map[string]Operator, len(operatorNames))
	for op, name := range operatorNames {
		m[name] = op
	}
	return m
}()

// String returns the wire name of the operator.
func (op Operator) String() string {
	if name, ok := operatorNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Operator(%d)", int(op))
}

// Operators returns every supported operator in declaration order.
func Operators() []Operator {
	ops := make([]Operator, 0, len(operatorNames))
	for op := OpEquals; op <= OpNotPopulated; op++ {
		ops = append(ops, op)
	}
	return ops
}

// ParseOperator converts a wire name to an Operator.
// Matching is exact: the platform exports lower-case names only.
func ParseOperator(name string) (Operator, error) {
	if op, ok := operatorsByName[name]; ok {
		return op, nil
	}
	return OpUnspecified, &UnsupportedOperatorError{Operator: name}
}

// UnsupportedOperatorError reports an operator outside the supported set.
type UnsupportedOperatorError struct {
	Operator string
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("unsupported operator %q", e.Operator)
}

// Is matches types.ErrUnsupportedOperator.
func (e *UnsupportedOperatorError) Is(target error) bool {
	return target == types.ErrUnsupportedOperator
}
