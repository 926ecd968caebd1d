package cel

import (
	"fmt"
	"time"

	"github.com/ezachrisen/checklist"
	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
)

// Compiler implements checklist.Compiler with CEL. A Compiler is safe for
// concurrent use.
type Compiler struct {
	env *celgo.Env
	now func() time.Time
}

type CompilerOption func(c *Compiler)

// WithClock sets the source of the now variable.
// Default: time.Now.
func WithClock(now func() time.Time) CompilerOption {
	return func(c *Compiler) {
		c.now = now
	}
}

// NewCompiler creates the CEL environment shared by every expression.
func NewCompiler(opts ...CompilerOption) (*Compiler, error) {
	c := &Compiler{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}

	env, err := celgo.NewEnv(
		celgo.Variable("value", celgo.DynType),
		celgo.Variable("field", celgo.MapType(celgo.StringType, celgo.DynType)),
		celgo.Variable("now", celgo.TimestampType),
		celgo.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("creating CEL environment: %w", err)
	}
	c.env = env
	return c, nil
}

// Compile parses and type-checks the expression.
func (c *Compiler) Compile(expr string, f *checklist.Field) (checklist.Predicate, error) {
	ast, iss := c.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compiling %q: %w", expr, iss.Err())
	}

	out := ast.OutputType()
	if !out.IsExactType(celgo.BoolType) && !out.IsExactType(celgo.DynType) {
		return nil, fmt.Errorf("expression %q returns %s, want bool", expr, out)
	}

	prg, err := c.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("generating program for %q: %w", expr, err)
	}
	return &predicate{expr: expr, program: prg, now: c.now}, nil
}

type predicate struct {
	expr    string
	program celgo.Program
	now     func() time.Time
}

func (p *predicate) Eval(value any, f *checklist.Field) (bool, error) {
	out, _, err := p.program.Eval(map[string]any{
		"value": celValue(value),
		"field": fieldVars(f),
		"now":   types.Timestamp{Time: p.now()},
	})
	if err != nil {
		return false, fmt.Errorf("evaluating %q: %w", p.expr, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression %q returned %T, want bool", p.expr, out.Value())
	}
	return b, nil
}

// celValue converts a field value to one the CEL type adapter accepts.
func celValue(v any) any {
	switch x := v.(type) {
	case nil:
		return types.NullValue
	case time.Time:
		return types.Timestamp{Time: x}
	case []any:
		l := make([]any, len(x))
		for i := range x {
			l[i] = celValue(x[i])
		}
		return l
	}
	return v
}

func fieldVars(f *checklist.Field) map[string]any {
	if f == nil {
		return map[string]any{}
	}
	options := f.Options
	if options == nil {
		options = []string{}
	}
	return map[string]any{
		"id":      f.ID,
		"type":    string(f.Type),
		"label":   f.Label,
		"options": options,
	}
}
