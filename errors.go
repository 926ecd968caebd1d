package checklist

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConcurrentMutation is matched by every error returned when a
	// checklist that is not editable is asked to change. Receiving it is a
	// programming error in the caller.
	ErrConcurrentMutation = errors.New("mutation rejected")

	ErrLocked     = fmt.Errorf("checklist is locked: %w", ErrConcurrentMutation)
	ErrFinalized  = fmt.Errorf("checklist is finalized: %w", ErrConcurrentMutation)
	ErrSubmitting = fmt.Errorf("checklist is being submitted: %w", ErrConcurrentMutation)

	ErrFieldNotFound    = errors.New("field not found")
	ErrRuleNotFound     = errors.New("rule not found")
	ErrNotAnswerable    = errors.New("field does not take a value")
	ErrIncongruent      = errors.New("render props do not match the checklist")
	ErrAssigneeNotFound = errors.New("assignee not found")
	ErrNoSubmitter      = errors.New("no submission sink configured")
)

// SchemaErrorKind classifies structural problems in a template.
type SchemaErrorKind string

const (
	SchemaMissingID    SchemaErrorKind = "missing id"
	SchemaDuplicateID  SchemaErrorKind = "duplicate id"
	SchemaFieldType    SchemaErrorKind = "field type"
	SchemaRuleMismatch SchemaErrorKind = "rule mismatch"
	SchemaOperator     SchemaErrorKind = "operator"
	SchemaReference    SchemaErrorKind = "reference value"
	SchemaExpression   SchemaErrorKind = "expression"
	SchemaCombine      SchemaErrorKind = "combine policy"
	SchemaCycle        SchemaErrorKind = "cycle"
	SchemaEmpty        SchemaErrorKind = "empty template"
)

// A SchemaError reports a malformed template: an unknown operator, an
// expression that does not compile, a cyclic rule graph and so on. It is
// fatal: NewEngine refuses to build an engine for the template.
type SchemaError struct {
	Kind        SchemaErrorKind
	RuleID      string
	ConditionID string
	FieldID     string

	// For cycles, the chain of rule IDs, ending with the repeated rule.
	Path []string

	Err error
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("checklist template is misconfigured: ")
	b.WriteString(string(e.Kind))
	if e.RuleID != "" {
		b.WriteString(" in rule " + e.RuleID)
	}
	if e.ConditionID != "" {
		b.WriteString(" condition " + e.ConditionID)
	}
	if e.FieldID != "" {
		b.WriteString(" field " + e.FieldID)
	}
	if len(e.Path) > 0 {
		b.WriteString(" (" + strings.Join(e.Path, " -> ") + ")")
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *SchemaError) Unwrap() error { return e.Err }

// A StaleReferenceError reports an ID in the template that points at nothing.
// Stale references are logged and skipped; a missing condition counts as
// not applied.
type StaleReferenceError struct {
	// What the ID should name: "condition", "field", "group" or "rule".
	Kind string
	ID   string

	// Where the reference was found.
	From string
}

func (e *StaleReferenceError) Error() string {
	return fmt.Sprintf("stale %s reference %q from %s", e.Kind, e.ID, e.From)
}

// A ValidationError describes one field that blocks submission.
type ValidationError struct {
	GroupID string `json:"group_id"`
	FieldID string `json:"field_id"`
	Number  int    `json:"number,omitempty"`
	Text    string `json:"text"`
}

func (v ValidationError) Error() string { return v.Text }
