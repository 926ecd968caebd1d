package checklist

// Compiler is the interface implemented by types that can compile the
// expression of an expr condition. The engine compiles every expression once,
// when it is built, and keeps the resulting Predicate for evaluation.
//
// See the cel package for an implementation backed by Google's CEL.
type Compiler interface {
	// Compile checks the expression and returns an evaluable predicate.
	// The field is the condition's triggering field, or nil if the
	// condition is only referenced through Field.Conditions lists.
	Compile(expr string, f *Field) (Predicate, error)
}

// Predicate is a compiled expression.
type Predicate interface {
	// Eval tests the value of field f. The value may be nil.
	Eval(value any, f *Field) (bool, error)
}
