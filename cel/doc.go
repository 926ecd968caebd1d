// Package cel compiles the expressions of expr conditions with Google's
// Common Expression Language.
//
// See https://github.com/google/cel-go and https://opensource.google/projects/cel for more information
// about CEL. Expressions must conform to the CEL spec: https://github.com/google/cel-spec.
//
// Variables
//
// An expression can refer to these variables:
//
//	value   the new value of the triggering field (dyn; null if unanswered)
//	field   the triggering field: id, type, label and options (map of string to dyn)
//	now     the time of evaluation (timestamp)
//
// Numbers of different types compare as numbers, so value > 3 holds for both
// the integer 4 and the float 3.5.
//
// The expression must return a bool. Expressions whose type can only be
// known at run time (such as the bare expression value) are accepted when
// compiled and fail when evaluated if they do not produce a bool.
//
// Examples:
//
//	value > 3 && value <= 10
//	value in field.options && value != "other"
//	size(value) >= 2
//	value == null || value == ""
//	timestamp(value) < now - duration("720h")
package cel
