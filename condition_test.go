package checklist_test

import (
	"errors"
	"testing"

	"github.com/ezachrisen/checklist"
	"github.com/matryer/is"
)

func TestEvaluate(t *testing.T) {
	e := mustEngine(t, fireSafety())
	f := &checklist.Field{ID: "q", Type: checklist.FieldText}

	cases := []struct {
		name  string
		cond  checklist.Condition
		value any
		want  bool
	}{
		{name: "eq bool", cond: checklist.Condition{Operator: checklist.OpEquals, Value: true}, value: true, want: true},
		{name: "eq bool as text", cond: checklist.Condition{Operator: checklist.OpEquals, Value: true}, value: "true", want: true},
		{name: "eq bool as number", cond: checklist.Condition{Operator: checklist.OpEquals, Value: float64(1)}, value: true, want: true},
		{name: "eq bool as zero", cond: checklist.Condition{Operator: checklist.OpEquals, Value: float64(0)}, value: false, want: true},
		{name: "eq bool as zero mismatch", cond: checklist.Condition{Operator: checklist.OpEquals, Value: 0}, value: true, want: false},
		{name: "eq bool as other number", cond: checklist.Condition{Operator: checklist.OpEquals, Value: float64(2)}, value: true, want: false},
		{name: "eq bool mismatch", cond: checklist.Condition{Operator: checklist.OpEquals, Value: true}, value: false, want: false},
		{name: "eq number", cond: checklist.Condition{Operator: checklist.OpEquals, Value: 3}, value: 3.0, want: true},
		{name: "eq text", cond: checklist.Condition{Operator: checklist.OpEquals, Value: "no"}, value: "no", want: true},
		{name: "eq list element", cond: checklist.Condition{Operator: checklist.OpEquals, Value: "b"}, value: []any{"a", "b"}, want: true},
		{name: "eq nil", cond: checklist.Condition{Operator: checklist.OpEquals, Value: "no"}, value: nil, want: false},
		{name: "neq", cond: checklist.Condition{Operator: checklist.OpNotEquals, Value: "no"}, value: "yes", want: true},
		{name: "neq same", cond: checklist.Condition{Operator: checklist.OpNotEquals, Value: "no"}, value: "no", want: false},
		{name: "neq nil", cond: checklist.Condition{Operator: checklist.OpNotEquals, Value: "no"}, value: nil, want: false},
		{name: "in", cond: checklist.Condition{Operator: checklist.OpIn, Values: []any{"a", "b"}}, value: "b", want: true},
		{name: "in list", cond: checklist.Condition{Operator: checklist.OpIn, Values: []any{"a", "b"}}, value: []string{"c", "b"}, want: true},
		{name: "in miss", cond: checklist.Condition{Operator: checklist.OpIn, Values: []any{"a", "b"}}, value: "c", want: false},
		{name: "in blank", cond: checklist.Condition{Operator: checklist.OpIn, Values: []any{"a", ""}}, value: "", want: false},
		{name: "not_in", cond: checklist.Condition{Operator: checklist.OpNotIn, Values: []any{"a", "b"}}, value: "c", want: true},
		{name: "not_in hit", cond: checklist.Condition{Operator: checklist.OpNotIn, Values: []any{"a", "b"}}, value: "a", want: false},
		{name: "not_in nil", cond: checklist.Condition{Operator: checklist.OpNotIn, Values: []any{"a"}}, value: nil, want: false},
		{name: "contains list", cond: checklist.Condition{Operator: checklist.OpContains, Value: "gas"}, value: []any{"gas", "oil"}, want: true},
		{name: "contains text", cond: checklist.Condition{Operator: checklist.OpContains, Value: "door"}, value: "Back Door", want: true},
		{name: "contains miss", cond: checklist.Condition{Operator: checklist.OpContains, Value: "window"}, value: "Back Door", want: false},
		{name: "gt", cond: checklist.Condition{Operator: checklist.OpGreater, Value: 5}, value: 6, want: true},
		{name: "gt text number", cond: checklist.Condition{Operator: checklist.OpGreater, Value: 5}, value: "6", want: true},
		{name: "gt not a number", cond: checklist.Condition{Operator: checklist.OpGreater, Value: 5}, value: "six", want: false},
		{name: "gt equal", cond: checklist.Condition{Operator: checklist.OpGreater, Value: 5}, value: 5, want: false},
		{name: "gte equal", cond: checklist.Condition{Operator: checklist.OpGreaterOrEqual, Value: 5}, value: 5, want: true},
		{name: "lt", cond: checklist.Condition{Operator: checklist.OpLess, Value: 5}, value: 4.5, want: true},
		{name: "lte nil", cond: checklist.Condition{Operator: checklist.OpLessOrEqual, Value: 5}, value: nil, want: false},
		{name: "empty nil", cond: checklist.Condition{Operator: checklist.OpEmpty}, value: nil, want: true},
		{name: "empty blank", cond: checklist.Condition{Operator: checklist.OpEmpty}, value: "  ", want: true},
		{name: "empty list", cond: checklist.Condition{Operator: checklist.OpEmpty}, value: []any{}, want: true},
		{name: "empty false", cond: checklist.Condition{Operator: checklist.OpEmpty}, value: false, want: false},
		{name: "not_empty", cond: checklist.Condition{Operator: checklist.OpNotEmpty}, value: "x", want: true},
		{name: "not_empty nil", cond: checklist.Condition{Operator: checklist.OpNotEmpty}, value: nil, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.cond.ID = "c"
			got, err := e.Evaluate(tc.value, f, "r", &tc.cond)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("%s %v against %v: got %t, wanted %t", tc.cond.Operator, tc.cond.Value, tc.value, got, tc.want)
			}
		})
	}
}

func TestEvaluateIsPure(t *testing.T) {
	is := is.New(t)
	e := mustEngine(t, fireSafety())

	c := &checklist.Condition{ID: "c", Operator: checklist.OpEquals, Value: true}
	ok, err := e.Evaluate(true, nil, "r", c)
	is.NoErr(err)
	is.True(ok)
	is.True(!c.Applied) // the caller decides what to record
}

func TestEvaluateUnknownOperator(t *testing.T) {
	is := is.New(t)
	e := mustEngine(t, fireSafety())

	for _, v := range []any{"x", nil} {
		_, err := e.Evaluate(v, nil, "r_smoke", &checklist.Condition{ID: "c", Operator: "approximately"})
		var se *checklist.SchemaError
		is.True(errors.As(err, &se))
		is.Equal(se.Kind, checklist.SchemaOperator)
		is.Equal(se.RuleID, "r_smoke")
	}

	// expr conditions must have been compiled by the engine
	_, err := e.Evaluate("x", nil, "r_smoke", &checklist.Condition{ID: "nope", Operator: checklist.OpExpr, Expr: "true"})
	is.Equal(schemaKind(t, err), checklist.SchemaExpression)
}

func TestEvaluateExpr(t *testing.T) {
	is := is.New(t)

	c := oneGroup(
		&checklist.Field{ID: "q", Type: checklist.FieldBoolean, Conditions: []string{"c"}},
		rule("r", []string{"a"}, &checklist.Condition{ID: "c", Operator: checklist.OpExpr, Expr: "value"}),
		&checklist.Field{ID: "a", Type: checklist.FieldText},
	)
	e := mustEngine(t, c, checklist.WithCompiler(&mockCompiler{}))
	r, _ := e.Rule("r")
	q, _ := e.Field("q")

	ok, err := e.Evaluate(true, q, "r", r.Conditions[0])
	is.NoErr(err)
	is.True(ok)

	// expressions see empty values
	ok, err = e.Evaluate(nil, q, "r", r.Conditions[0])
	is.NoErr(err)
	is.True(!ok)

	// run-time failures are errors, not schema errors
	_, err = e.Evaluate("maybe", q, "r", r.Conditions[0])
	is.True(err != nil)
	var se *checklist.SchemaError
	is.True(!errors.As(err, &se))
}

func TestParseOperator(t *testing.T) {
	is := is.New(t)

	for in, want := range map[string]checklist.Operator{
		"eq": checklist.OpEquals, "==": checklist.OpEquals, " NEQ ": checklist.OpNotEquals,
		">=": checklist.OpGreaterOrEqual, "one_of": checklist.OpIn, "is_empty": checklist.OpEmpty,
	} {
		got, err := checklist.ParseOperator(in)
		is.NoErr(err)
		is.Equal(got, want)
	}
	_, err := checklist.ParseOperator("~")
	is.True(err != nil)
}
