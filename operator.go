package checklist

import (
	"fmt"
	"strings"
)

// Operator is the predicate kind of a Condition. The set is closed: every
// operator has its own evaluation branch in the evaluator, and templates
// naming any other operator are rejected when the engine is built.
type Operator string

const (
	// The value equals Condition.Value. For list values, any element equals it.
	OpEquals Operator = "eq"

	// The value is present and does not equal Condition.Value.
	OpNotEquals Operator = "neq"

	// The value (or, for lists, any element) is one of Condition.Values.
	OpIn Operator = "in"

	// The value is present and neither it nor any element is in Condition.Values.
	OpNotIn Operator = "not_in"

	// A list value contains Condition.Value, or a text value contains it as a substring.
	OpContains Operator = "contains"

	OpGreater        Operator = "gt"
	OpGreaterOrEqual Operator = "gte"
	OpLess           Operator = "lt"
	OpLessOrEqual    Operator = "lte"

	// The value is nil, blank, or an empty list.
	OpEmpty Operator = "empty"

	// The value is anything but empty.
	OpNotEmpty Operator = "not_empty"

	// Condition.Expr is compiled by the engine's Compiler and evaluated
	// against the value.
	OpExpr Operator = "expr"
)

var operatorAliases = map[string]Operator{
	"eq": OpEquals, "==": OpEquals, "=": OpEquals, "equals": OpEquals, "is": OpEquals,
	"neq": OpNotEquals, "!=": OpNotEquals, "ne": OpNotEquals, "not_equals": OpNotEquals,
	"in": OpIn, "one_of": OpIn,
	"not_in": OpNotIn, "none_of": OpNotIn,
	"contains": OpContains, "includes": OpContains,
	"gt": OpGreater, ">": OpGreater,
	"gte": OpGreaterOrEqual, ">=": OpGreaterOrEqual,
	"lt": OpLess, "<": OpLess,
	"lte": OpLessOrEqual, "<=": OpLessOrEqual,
	"empty": OpEmpty, "is_empty": OpEmpty,
	"not_empty": OpNotEmpty, "is_not_empty": OpNotEmpty, "answered": OpNotEmpty,
	"expr": OpExpr, "expression": OpExpr,
}

// ParseOperator parses an operator name or one of its aliases.
func ParseOperator(s string) (Operator, error) {
	op, ok := operatorAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unrecognized operator: %q", s)
	}
	return op, nil
}

// Numeric reports whether the operator compares numbers.
func (o Operator) Numeric() bool {
	switch o {
	case OpGreater, OpGreaterOrEqual, OpLess, OpLessOrEqual:
		return true
	}
	return false
}

func (o Operator) String() string { return string(o) }
