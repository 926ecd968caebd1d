package checklist

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// Engine is the conditional-rule visibility engine for one checklist template.
//
// The engine indexes the template by ID once, when it is built, validating
// operators, reference values and expressions, and rejecting cyclic rule
// graphs. After that the template is never modified; the live answers and
// visibility flags are kept in a State, which the engine's methods update.
//
// An Engine is safe for concurrent use as long as each State is used by one
// goroutine at a time.
type Engine struct {
	// Private copy of the template
	template *Checklist

	groups     map[string]*Group
	fields     map[string]*Field
	fieldGroup map[string]string
	fieldOrder []string

	// Rules are keyed by the ID of their wrapping field, in document order
	rules     map[string]*ConditionalRule
	ruleOrder []string

	// Rule ID to the fields it controls, stale IDs removed
	controls map[string][]*Field

	// Field ID to the rules controlling it, in document order
	controllers map[string][]string

	// Rule ID to the rules whose controlled fields include it
	parents map[string][]string

	// Field ID to the conditions its value feeds
	triggers map[string][]conditionRef

	// Condition key to its first triggering field; used when compiling
	condField map[string]*Field

	// Condition key to compiled expr predicate
	predicates map[string]Predicate

	stale []*StaleReferenceError

	opts EngineOptions
}

// conditionRef identifies a condition through its owning rule, since
// condition IDs are only unique within a rule.
type conditionRef struct {
	ruleID string
	cond   *Condition
}

func (c conditionRef) key() string {
	return conditionKey(c.ruleID, c.cond.ID)
}

const idPathSeparator = "/"

func conditionKey(ruleID, conditionID string) string {
	return ruleID + idPathSeparator + conditionID
}

// See the functional definitions below for the meaning.
type EngineOptions struct {
	Logger   *zap.Logger
	Compiler Compiler
	Metrics  *Metrics
}

type EngineOption func(f *EngineOptions)

// Given an array of EngineOption functions, apply their effect
// on the EngineOptions struct.
func applyEngineOptions(o *EngineOptions, opts ...EngineOption) {
	for _, opt := range opts {
		opt(o)
	}
}

// WithLogger sets the logger for stale references and evaluation failures.
// Default: no logging.
func WithLogger(l *zap.Logger) EngineOption {
	return func(f *EngineOptions) {
		f.Logger = l
	}
}

// WithCompiler sets the compiler for expr conditions. Templates containing
// expr conditions are rejected if no compiler is set.
// Default: none.
func WithCompiler(c Compiler) EngineOption {
	return func(f *EngineOptions) {
		f.Compiler = c
	}
}

// WithMetrics records engine and session activity.
// Default: off.
func WithMetrics(m *Metrics) EngineOption {
	return func(f *EngineOptions) {
		f.Metrics = m
	}
}

// NewEngine indexes and validates the template. Structural problems are
// returned as a *SchemaError; stale references are logged and skipped.
// The checklist is copied; later changes to it do not affect the engine.
func NewEngine(c *Checklist, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		groups:      map[string]*Group{},
		fields:      map[string]*Field{},
		fieldGroup:  map[string]string{},
		rules:       map[string]*ConditionalRule{},
		controls:    map[string][]*Field{},
		controllers: map[string][]string{},
		parents:     map[string][]string{},
		triggers:    map[string][]conditionRef{},
		condField:   map[string]*Field{},
		predicates:  map[string]Predicate{},
	}
	applyEngineOptions(&e.opts, opts...)
	if e.opts.Logger == nil {
		e.opts.Logger = zap.NewNop()
	}

	if c == nil || len(c.Groups) == 0 {
		return nil, &SchemaError{Kind: SchemaEmpty}
	}
	e.template = c.Clone()

	if err := e.indexFields(); err != nil {
		return nil, err
	}
	if err := e.indexRules(); err != nil {
		return nil, err
	}
	e.indexTriggers()
	if err := e.compileExpressions(); err != nil {
		return nil, err
	}
	if err := e.checkCycles(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) indexFields() error {
	for _, g := range e.template.Groups {
		if g == nil {
			return &SchemaError{Kind: SchemaEmpty, Err: errors.New("nil group")}
		}
		if g.ID == "" {
			return &SchemaError{Kind: SchemaMissingID, Err: fmt.Errorf("group %q has no id", g.Label)}
		}
		if _, dup := e.groups[g.ID]; dup {
			return &SchemaError{Kind: SchemaDuplicateID, Err: fmt.Errorf("group %s", g.ID)}
		}
		e.groups[g.ID] = g

		for _, f := range g.Fields {
			if f == nil {
				return &SchemaError{Kind: SchemaEmpty, Err: fmt.Errorf("nil field in group %s", g.ID)}
			}
			if f.ID == "" {
				return &SchemaError{Kind: SchemaMissingID, Err: fmt.Errorf("field %q in group %s has no id", f.Label, g.ID)}
			}
			if _, dup := e.fields[f.ID]; dup {
				return &SchemaError{Kind: SchemaDuplicateID, FieldID: f.ID}
			}
			t, err := ParseFieldType(string(f.Type))
			if err != nil {
				return &SchemaError{Kind: SchemaFieldType, FieldID: f.ID, Err: err}
			}
			f.Type = t
			if (t == FieldConditionalRule) != (f.ConditionalRule != nil) {
				return &SchemaError{
					Kind:    SchemaRuleMismatch,
					FieldID: f.ID,
					Err:     fmt.Errorf("a conditional rule requires a field of type %s, got %s", FieldConditionalRule, t),
				}
			}

			e.fields[f.ID] = f
			e.fieldGroup[f.ID] = g.ID
			e.fieldOrder = append(e.fieldOrder, f.ID)
			if f.ConditionalRule != nil {
				e.rules[f.ID] = f.ConditionalRule
				e.ruleOrder = append(e.ruleOrder, f.ID)
			}
		}
	}
	return nil
}

func (e *Engine) indexRules() error {
	for _, id := range e.ruleOrder {
		r := e.rules[id]
		if r.GroupID == "" {
			r.GroupID = e.fieldGroup[id]
		}

		switch r.Combine {
		case "":
			r.Combine = CombineAny
		case CombineAny:
		case CombineAll:
			// The source data has only ever used "any"; make "all" visible.
			e.opts.Logger.Info("rule requires all conditions", zap.String("rule", id))
		default:
			return &SchemaError{Kind: SchemaCombine, RuleID: id, Err: fmt.Errorf("unrecognized combine policy: %q", r.Combine)}
		}

		seen := map[string]bool{}
		for _, c := range r.Conditions {
			if c == nil || c.ID == "" {
				return &SchemaError{Kind: SchemaMissingID, RuleID: id, Err: errors.New("condition has no id")}
			}
			if seen[c.ID] {
				return &SchemaError{Kind: SchemaDuplicateID, RuleID: id, ConditionID: c.ID}
			}
			seen[c.ID] = true

			op, err := ParseOperator(string(c.Operator))
			if err != nil {
				return &SchemaError{Kind: SchemaOperator, RuleID: id, ConditionID: c.ID, Err: err}
			}
			c.Operator = op
			if err := checkReference(c); err != nil {
				return &SchemaError{Kind: SchemaReference, RuleID: id, ConditionID: c.ID, Err: err}
			}
		}

		g, ok := e.groups[r.GroupID]
		if !ok {
			e.staleRef(&StaleReferenceError{Kind: "group", ID: r.GroupID, From: "rule " + id})
			continue
		}
		for _, q := range r.ConditionalQuestions {
			f, ok := g.Field(q)
			if !ok {
				e.staleRef(&StaleReferenceError{Kind: "field", ID: q, From: "rule " + id})
				continue
			}
			if slices.ContainsFunc(e.controls[id], func(c *Field) bool { return c.ID == f.ID }) {
				continue
			}
			e.controls[id] = append(e.controls[id], f)
			e.controllers[f.ID] = append(e.controllers[f.ID], id)
			if f.Type == FieldConditionalRule && !slices.Contains(e.parents[f.ID], id) {
				e.parents[f.ID] = append(e.parents[f.ID], id)
			}
		}
	}
	return nil
}

// checkReference makes sure the condition carries the reference values its
// operator needs.
func checkReference(c *Condition) error {
	switch c.Operator {
	case OpGreater, OpGreaterOrEqual, OpLess, OpLessOrEqual:
		if _, ok := toFloat(c.Value); !ok {
			return fmt.Errorf("operator %s needs a numeric value, got %v", c.Operator, c.Value)
		}
	case OpIn, OpNotIn:
		if len(c.Values) == 0 {
			l, ok := toList(c.Value)
			if !ok || len(l) == 0 {
				return fmt.Errorf("operator %s needs a list of values", c.Operator)
			}
			c.Values = l
		}
	case OpEquals, OpNotEquals, OpContains:
		if c.Value == nil {
			return fmt.Errorf("operator %s needs a value", c.Operator)
		}
	case OpExpr:
		if c.Expr == "" {
			return errors.New("operator expr needs an expression")
		}
	}
	return nil
}

// indexTriggers maps every field to the conditions its value feeds: those
// listed in the field's Conditions, and those naming the field in FieldID.
func (e *Engine) indexTriggers() {
	byID := map[string][]conditionRef{}
	explicit := map[string][]conditionRef{}
	for _, rid := range e.ruleOrder {
		for _, c := range e.rules[rid].Conditions {
			ref := conditionRef{ruleID: rid, cond: c}
			byID[c.ID] = append(byID[c.ID], ref)
			if c.FieldID == "" {
				continue
			}
			if _, ok := e.fields[c.FieldID]; !ok {
				e.staleRef(&StaleReferenceError{Kind: "field", ID: c.FieldID, From: "condition " + ref.key()})
				continue
			}
			explicit[c.FieldID] = append(explicit[c.FieldID], ref)
		}
	}

	for _, fid := range e.fieldOrder {
		f := e.fields[fid]
		seen := map[string]bool{}
		add := func(ref conditionRef) {
			k := ref.key()
			if seen[k] {
				return
			}
			seen[k] = true
			e.triggers[fid] = append(e.triggers[fid], ref)
			if _, ok := e.condField[k]; !ok {
				e.condField[k] = f
			}
		}

		for _, cid := range f.Conditions {
			matched := false
			for _, ref := range byID[cid] {
				if ref.cond.FieldID != "" && ref.cond.FieldID != fid {
					continue
				}
				add(ref)
				matched = true
			}
			if !matched {
				e.staleRef(&StaleReferenceError{Kind: "condition", ID: cid, From: "field " + fid})
			}
		}
		for _, ref := range explicit[fid] {
			add(ref)
		}
	}
}

func (e *Engine) compileExpressions() error {
	for _, rid := range e.ruleOrder {
		for _, c := range e.rules[rid].Conditions {
			if c.Operator != OpExpr {
				continue
			}
			if e.opts.Compiler == nil {
				return &SchemaError{Kind: SchemaExpression, RuleID: rid, ConditionID: c.ID, Err: errors.New("no expression compiler configured")}
			}
			k := conditionKey(rid, c.ID)
			p, err := e.opts.Compiler.Compile(c.Expr, e.condField[k])
			if err != nil {
				return &SchemaError{Kind: SchemaExpression, RuleID: rid, ConditionID: c.ID, Err: err}
			}
			e.predicates[k] = p
		}
	}
	return nil
}

// checkCycles walks the graph of rules controlling conditionalRule fields and
// rejects the template if a rule can reach itself.
func (e *Engine) checkCycles() error {
	const (
		unvisited = iota
		inProgress
		done
	)
	state := map[string]int{}
	var stack []string

	var visit func(id string) error
	visit = func(id string) error {
		state[id] = inProgress
		stack = append(stack, id)
		for _, f := range e.controls[id] {
			if f.Type != FieldConditionalRule {
				continue
			}
			switch state[f.ID] {
			case inProgress:
				start := slices.Index(stack, f.ID)
				path := append(slices.Clone(stack[start:]), f.ID)
				return &SchemaError{Kind: SchemaCycle, RuleID: f.ID, Path: path}
			case unvisited:
				if err := visit(f.ID); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
		return nil
	}

	for _, id := range e.ruleOrder {
		if state[id] == unvisited {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) staleRef(err *StaleReferenceError) {
	e.stale = append(e.stale, err)
	e.opts.Metrics.staleReference()
	e.opts.Logger.Warn("skipping stale reference", zap.Error(err))
}

// Template returns a copy of the template the engine was built from, with
// field types and operators normalized.
func (e *Engine) Template() *Checklist {
	return e.template.Clone()
}

// Field returns the template field with the id.
// CAUTION: the field belongs to the engine and must not be modified.
func (e *Engine) Field(id string) (*Field, bool) {
	f, ok := e.fields[id]
	return f, ok
}

// Rule returns the rule wrapped by the conditionalRule field with the id.
// CAUTION: the rule belongs to the engine and must not be modified.
func (e *Engine) Rule(id string) (*ConditionalRule, bool) {
	r, ok := e.rules[id]
	return r, ok
}

// RuleIDs lists the rules in document order.
func (e *Engine) RuleIDs() []string {
	return slices.Clone(e.ruleOrder)
}

// StaleReferences lists the stale references found when the engine was built.
func (e *Engine) StaleReferences() []*StaleReferenceError {
	return slices.Clone(e.stale)
}
