package checklist_test

import (
	"errors"
	"fmt"

	"github.com/ezachrisen/checklist"
)

// mockCompiler understands three expressions: `true`, `false`, and `value`,
// which requires a bool value. Anything else fails to compile.
type mockCompiler struct {
	compiled []string
	fields   []string
}

func (m *mockCompiler) Compile(expr string, f *checklist.Field) (checklist.Predicate, error) {
	switch expr {
	case "true", "false", "value":
	default:
		return nil, fmt.Errorf("mock compiler does not understand %q", expr)
	}
	m.compiled = append(m.compiled, expr)
	if f != nil {
		m.fields = append(m.fields, f.ID)
	}
	return mockPredicate(expr), nil
}

type mockPredicate string

func (p mockPredicate) Eval(value any, f *checklist.Field) (bool, error) {
	switch p {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	if value == nil {
		return false, nil
	}
	b, ok := value.(bool)
	if !ok {
		return false, errors.New("value is not a bool")
	}
	return b, nil
}
