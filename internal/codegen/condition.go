// internal/codegen/condition.go
package codegen

import (
	"strings"

	"github.com/solatis/extgen/internal/types"
)

/*
 * Condition compilation.
 *
 * Renders a ConditionMatrix (OR of AND groups) into one JavaScript boolean
 * expression. Output must match the platform's existing snippets byte for
 * byte, so spacing and parenthesisation follow fixed rules:
 *
 *   - conditions in a group join with " && ", groups join with " || "
 *   - a group is wrapped in one pair of parentheses only when it has two
 *     or more conditions; a single condition is emitted bare
 *   - the OR of groups gets no outer parentheses: the template already
 *     places the guard inside if (...)
 *   - an empty matrix renders as the literal 1 (always true)
 *
 * Rendering is deterministic: input order is kept, nothing is sorted or
 * deduplicated. An unsupported operator aborts rendering; a condition is
 * never silently dropped.
 */

const alwaysTrue = "1"

// RenderCondition renders a single condition with legacy (unescaped) starts_with.
func RenderCondition(c types.Condition) (string, error) {
	return renderCondition(c, Options{})
}

// RenderGroup renders an AND group.
func RenderGroup(group types.ConditionGroup) (string, error) {
	return renderGroup(group, Options{})
}

// RenderMatrix renders the full guard expression.
func RenderMatrix(matrix types.ConditionMatrix) (string, error) {
	return renderMatrix(matrix, Options{})
}

func renderCondition(c types.Condition, opts Options) (string, error) {
	op, err := ParseOperator(c.Operator)
	if err != nil {
		return "", err
	}

	field := FieldRef(StripNamespace(c.Variable, prefixUDO))
	value := quote(c.Value)

	switch op {
	case OpEquals:
		return field + " == " + value, nil
	case OpDoesNotEqual:
		return field + " != " + value, nil
	case OpEqualsIgnoreCase:
		return field + ".toString().toLowerCase() == " + value + ".toLowerCase()", nil
	case OpContainsIgnoreCase:
		return field + ".toString().toLowerCase().indexOf(" + value + ".toLowerCase()) > -1", nil
	case OpStartsWith:
		pattern := c.Value
		if opts.EscapeStartsWith {
			pattern = escapeRegex(pattern)
		}
		return "/^" + pattern + "/.test(" + field + ")", nil
	case OpLessThan:
		return "parseFloat(" + field + ") < parseFloat(" + value + ")", nil
	case OpLessThanEqualTo:
		return "parseFloat(" + field + ") <= parseFloat(" + value + ")", nil
	case OpGreaterThan:
		return "parseFloat(" + field + ") > parseFloat(" + value + ")", nil
	case OpDefined:
		return "typeof " + field + " != 'undefined'", nil
	case OpNotDefined:
		return "typeof " + field + " == 'undefined'", nil
	case OpContains:
		return field + ".toString().indexOf(" + value + ") > -1", nil
	case OpDoesNotContain:
		return field + ".toString().indexOf(" + value + ") < 0", nil
	case OpNotPopulated:
		return field + " == ''", nil
	default:
		return "", &UnsupportedOperatorError{Operator: c.Operator}
	}
}

func renderGroup(group types.ConditionGroup, opts Options) (string, error) {
	// An empty AND is vacuously true; "" would leave `if ()` in the output.
	if len(group) == 0 {
		return alwaysTrue, nil
	}
	parts := make([]string, 0, len(group))
	for _, c := range group {
		s, err := renderCondition(c, opts)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return wrapJoined(parts, " && "), nil
}

func renderMatrix(matrix types.ConditionMatrix, opts Options) (string, error) {
	if len(matrix) == 0 {
		return alwaysTrue, nil
	}
	parts := make([]string, 0, len(matrix))
	for _, group := range matrix {
		s, err := renderGroup(group, opts)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " || "), nil
}

// wrapJoined joins parts and parenthesises only multi-member results.
func wrapJoined(parts []string, sep string) string {
	joined := strings.Join(parts, sep)
	if len(parts) >= 2 {
		return "(" + joined + ")"
	}
	return joined
}

// escapeRegex escapes JavaScript regular expression metacharacters and the
// literal delimiter.
func escapeRegex(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(`\^$.|?*+()[]{}/`, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
