package checklist

import (
	"fmt"
	"strings"
)

// Evaluate decides whether condition c of rule ruleID holds for value, the
// value of the triggering field f. It has no side effects: the caller records
// the outcome in a State.
//
// Empty values (nil, blank text, empty lists) satisfy nothing except the empty
// operator. Expressions see the empty value as null and decide for themselves.
func (e *Engine) Evaluate(value any, f *Field, ruleID string, c *Condition) (bool, error) {
	var p Predicate
	if c.Operator == OpExpr {
		p = e.predicates[conditionKey(ruleID, c.ID)]
		if p == nil {
			return false, &SchemaError{Kind: SchemaExpression, RuleID: ruleID, ConditionID: c.ID, Err: fmt.Errorf("expression %q was not compiled", c.Expr)}
		}
	}
	ok, err := evaluate(value, f, c, p)
	if se, isSchema := err.(*SchemaError); isSchema {
		se.RuleID = ruleID
	}
	return ok, err
}

func evaluate(value any, f *Field, c *Condition, p Predicate) (bool, error) {
	present := !isEmpty(value)

	switch c.Operator {
	case OpEmpty:
		return !present, nil

	case OpNotEmpty:
		return present, nil

	case OpExpr:
		ok, err := p.Eval(value, f)
		if err != nil {
			return false, fmt.Errorf("evaluating condition %s: %w", c.ID, err)
		}
		return ok, nil

	case OpEquals:
		return present && anyElement(value, func(v any) bool {
			return valuesEqual(v, c.Value)
		}), nil

	case OpNotEquals:
		return present && !anyElement(value, func(v any) bool {
			return valuesEqual(v, c.Value)
		}), nil

	case OpIn:
		return present && anyElement(value, func(v any) bool {
			return inValues(v, c.Values)
		}), nil

	case OpNotIn:
		return present && !anyElement(value, func(v any) bool {
			return inValues(v, c.Values)
		}), nil

	case OpContains:
		if !present {
			return false, nil
		}
		if l, ok := toList(value); ok {
			return inValues(c.Value, l), nil
		}
		return strings.Contains(
			strings.ToLower(fmt.Sprint(value)),
			strings.ToLower(fmt.Sprint(c.Value)),
		), nil

	case OpGreater, OpGreaterOrEqual, OpLess, OpLessOrEqual:
		if !present {
			return false, nil
		}
		a, ok := toFloat(value)
		if !ok {
			return false, nil
		}
		b, ok := toFloat(c.Value)
		if !ok {
			return false, nil
		}
		switch c.Operator {
		case OpGreater:
			return a > b, nil
		case OpGreaterOrEqual:
			return a >= b, nil
		case OpLess:
			return a < b, nil
		default:
			return a <= b, nil
		}

	default:
		return false, &SchemaError{Kind: SchemaOperator, ConditionID: c.ID, Err: fmt.Errorf("unrecognized operator: %q", c.Operator)}
	}
}

// anyElement applies fn to each element of a list value, or to a scalar value.
func anyElement(value any, fn func(any) bool) bool {
	l, ok := toList(value)
	if !ok {
		return fn(value)
	}
	for _, v := range l {
		if fn(v) {
			return true
		}
	}
	return false
}

func inValues(v any, values []any) bool {
	for _, r := range values {
		if valuesEqual(v, r) {
			return true
		}
	}
	return false
}
