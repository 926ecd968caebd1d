package cel_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ezachrisen/checklist"
	"github.com/ezachrisen/checklist/cel"
	"github.com/matryer/is"
)

func TestCompileAndEval(t *testing.T) {
	is := is.New(t)

	c, err := cel.NewCompiler()
	is.NoErr(err)

	f := &checklist.Field{
		ID:      "extinguisher_type",
		Type:    checklist.FieldSelect,
		Options: []string{"water", "foam", "co2"},
	}

	cases := []struct {
		expr  string
		value any
		want  bool
	}{
		{expr: `value > 3`, value: 4, want: true},
		{expr: `value > 3`, value: 3.5, want: true},
		{expr: `value > 3`, value: 2, want: false},
		{expr: `value == "foam"`, value: "foam", want: true},
		{expr: `value in field.options`, value: "co2", want: true},
		{expr: `value in field.options`, value: "powder", want: false},
		{expr: `field.id == "extinguisher_type"`, value: nil, want: true},
		{expr: `value == null`, value: nil, want: true},
		{expr: `value == null`, value: "water", want: false},
		{expr: `size(value) >= 2`, value: []any{"a", "b"}, want: true},
		{expr: `"b" in value`, value: []string{"a", "b"}, want: true},
	}

	for _, tc := range cases {
		p, err := c.Compile(tc.expr, f)
		is.NoErr(err)
		got, err := p.Eval(tc.value, f)
		is.NoErr(err)
		if got != tc.want {
			t.Errorf("%s with value %v: got %t, wanted %t", tc.expr, tc.value, got, tc.want)
		}
	}
}

func TestCompileErrors(t *testing.T) {
	is := is.New(t)

	c, err := cel.NewCompiler()
	is.NoErr(err)

	_, err = c.Compile(`value >`, nil)
	is.True(err != nil) // syntax error

	_, err = c.Compile(`"not a bool"`, nil)
	is.True(err != nil) // string output

	_, err = c.Compile(`unknown_var == 1`, nil)
	is.True(err != nil) // undeclared variable
}

func TestEvalErrors(t *testing.T) {
	is := is.New(t)

	c, err := cel.NewCompiler()
	is.NoErr(err)

	// dyn output is accepted at compile time, rejected at run time
	p, err := c.Compile(`value`, nil)
	is.NoErr(err)
	_, err = p.Eval("yes", nil)
	is.True(err != nil)

	ok, err := p.Eval(true, nil)
	is.NoErr(err)
	is.True(ok)

	p, err = c.Compile(`value > 3`, nil)
	is.NoErr(err)
	_, err = p.Eval("many", nil)
	is.True(err != nil) // no such overload
}

func TestClock(t *testing.T) {
	is := is.New(t)

	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c, err := cel.NewCompiler(cel.WithClock(func() time.Time { return fixed }))
	is.NoErr(err)

	p, err := c.Compile(`timestamp(value) < now - duration("720h")`, nil)
	is.NoErr(err)

	old, err := p.Eval("2024-01-01T00:00:00Z", nil)
	is.NoErr(err)
	is.True(old)

	recent, err := p.Eval("2024-02-25T00:00:00Z", nil)
	is.NoErr(err)
	is.True(!recent)
}

func TestEngineIntegration(t *testing.T) {
	is := is.New(t)

	c, err := cel.NewCompiler()
	is.NoErr(err)

	tmpl := &checklist.Checklist{
		Name: "Kitchen",
		Groups: []*checklist.Group{
			{
				ID: "equipment",
				Fields: []*checklist.Field{
					{ID: "fryers", Type: checklist.FieldNumber, Conditions: []string{"many"}},
					{
						ID:   "r_fryers",
						Type: checklist.FieldConditionalRule,
						ConditionalRule: &checklist.ConditionalRule{
							ConditionalQuestions: []string{"hood_cleaning"},
							Conditions: []*checklist.Condition{
								{ID: "many", Operator: checklist.OpExpr, Expr: `value >= 2`},
							},
						},
					},
					{ID: "hood_cleaning", Type: checklist.FieldDate, Hidden: true},
				},
			},
		},
	}

	_, err = checklist.NewEngine(tmpl)
	var se *checklist.SchemaError
	is.True(errors.As(err, &se)) // no compiler configured
	is.Equal(se.Kind, checklist.SchemaExpression)

	e, err := checklist.NewEngine(tmpl, checklist.WithCompiler(c))
	is.NoErr(err)

	st := e.NewState()
	rules, err := e.Resolve(st, "fryers", 3)
	is.NoErr(err)
	is.Equal(rules, []string{"r_fryers"})
	_, err = e.Apply(st, "r_fryers")
	is.NoErr(err)
	is.True(!st.Hidden["hood_cleaning"])

	// text in a number field fails at run time and counts as not applied
	_, err = e.Resolve(st, "fryers", "lots")
	is.NoErr(err)
	_, err = e.Apply(st, "r_fryers")
	is.NoErr(err)
	is.True(st.Hidden["hood_cleaning"])
}
