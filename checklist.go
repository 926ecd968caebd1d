package checklist

// A Checklist is a filled-or-fillable instance of a checklist template.
// It is an ordered list of groups, each holding an ordered list of fields.
//
// A Checklist handed to NewEngine is treated as an immutable template: the
// engine keeps its own copy, and the live answers and visibility flags are
// held in a State overlay. Session.Snapshot materializes the overlay back
// into a Checklist for persistence and submission.
type Checklist struct {
	// Assigned by the submission sink. Zero until the checklist is submitted.
	ID int64 `json:"id,omitempty" yaml:"id,omitempty"`

	// The template version the checklist was created from.
	VersionID int64 `json:"version_id,omitempty" yaml:"version_id,omitempty"`

	Name         string `json:"name" yaml:"name" validate:"required"`
	TemplateName string `json:"template_name,omitempty" yaml:"template_name,omitempty"`
	Date         string `json:"date,omitempty" yaml:"date,omitempty"`

	// Present groups as tabs rather than one long page.
	UseTabs            bool `json:"use_tabs,omitempty" yaml:"use_tabs,omitempty"`
	HideGroupPhotos    bool `json:"hide_group_photos,omitempty" yaml:"hide_group_photos,omitempty"`
	HideQuestionNumber bool `json:"hide_question_number,omitempty" yaml:"hide_question_number,omitempty"`

	// A locked checklist rejects every value change.
	Locked bool `json:"locked,omitempty" yaml:"locked,omitempty"`

	// The franchisee or site the checklist is filled out for.
	Assignee *Assignee `json:"assignee,omitempty" yaml:"assignee,omitempty"`

	Groups []*Group `json:"groups" yaml:"groups" validate:"required,min=1,dive,required"`
}

// A Group is a named section of fields.
type Group struct {
	// Unique within the checklist. (required)
	ID     string   `json:"id" yaml:"id" validate:"required"`
	Label  string   `json:"label,omitempty" yaml:"label,omitempty"`
	Fields []*Field `json:"fields" yaml:"fields" validate:"dive,required"`
}

// A Field is a single question (or a structural element such as a label or
// a conditional rule) in a group.
type Field struct {
	// Unique within the checklist. (required)
	ID string `json:"id" yaml:"id" validate:"required"`

	Type  FieldType `json:"type" yaml:"type" validate:"required"`
	Label string    `json:"label,omitempty" yaml:"label,omitempty"`

	// The current answer. nil means unanswered.
	Value any `json:"value,omitempty" yaml:"value,omitempty"`

	// Set by the visibility propagator only.
	Hidden bool `json:"hidden,omitempty" yaml:"hidden,omitempty"`

	// Optional fields may be left blank at submission.
	Optional bool `json:"optional,omitempty" yaml:"optional,omitempty"`

	// Allowed answers for select and multiselect fields.
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`

	// IDs of the conditions whose outcome depends on this field's value.
	Conditions []string `json:"conditions,omitempty" yaml:"conditions,omitempty"`

	// Set if and only if Type is FieldConditionalRule.
	ConditionalRule *ConditionalRule `json:"conditional_rule,omitempty" yaml:"conditional_rule,omitempty"`

	// Limits the field to some assignees. A nil scope applies to everyone.
	Scope *Scope `json:"scope,omitempty" yaml:"scope,omitempty"`
}

// A ConditionalRule shows or hides a set of fields in a group based on its
// conditions. A rule is identified by the ID of the conditionalRule field that
// wraps it.
//
// Rules can nest: a controlled field may itself be a conditionalRule field.
// The graph of rules controlling rules must be acyclic; NewEngine rejects
// templates where it is not.
type ConditionalRule struct {
	// The group holding the controlled fields. Defaults to the group of the
	// wrapping field.
	GroupID string `json:"group_id,omitempty" yaml:"group_id,omitempty"`

	// IDs of the fields this rule shows or hides.
	ConditionalQuestions []string `json:"conditional_questions" yaml:"conditional_questions"`

	Conditions []*Condition `json:"conditions" yaml:"conditions" validate:"dive,required"`

	// How condition outcomes combine into the show decision. Defaults to CombineAny.
	Combine Combine `json:"combine,omitempty" yaml:"combine,omitempty"`
}

// A Condition is a single predicate over a triggering field's value.
type Condition struct {
	// Unique within the owning rule. (required)
	ID string `json:"id" yaml:"id" validate:"required"`

	// The field whose value the condition tests. Optional; when empty the
	// condition is triggered by every field listing its ID in Field.Conditions.
	FieldID string `json:"field_id,omitempty" yaml:"field_id,omitempty"`

	Operator Operator `json:"operator" yaml:"operator" validate:"required"`

	// Reference value for the comparison operators.
	Value any `json:"value,omitempty" yaml:"value,omitempty"`

	// Reference set for in and not_in.
	Values []any `json:"values,omitempty" yaml:"values,omitempty"`

	// Expression for the expr operator.
	Expr string `json:"expr,omitempty" yaml:"expr,omitempty"`

	// Outcome of the last evaluation. In a template this is the initial state;
	// the live value is kept in State.
	Applied bool `json:"applied,omitempty" yaml:"applied,omitempty"`
}

// Combine is the policy for folding condition outcomes into a show decision.
type Combine string

const (
	// Show the controlled fields if any condition is applied.
	CombineAny Combine = "any"

	// Show the controlled fields only if every condition is applied.
	CombineAll Combine = "all"
)

// Scope restricts a field to certain assignees.
type Scope struct {
	// Assignee types the field applies to. Empty means all types.
	AssigneeTypes []AssigneeType `json:"assignee_types,omitempty" yaml:"assignee_types,omitempty"`

	// The field applies if the assignee carries at least one of these
	// attributes. An attribute with an empty Value matches on ID alone.
	// Empty means no attribute restriction.
	Attributes []Attribute `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Group returns the group with the id.
func (c *Checklist) Group(id string) (*Group, bool) {
	for _, g := range c.Groups {
		if g != nil && g.ID == id {
			return g, true
		}
	}
	return nil, false
}

// Field returns the field with the id, searching all groups in order.
func (c *Checklist) Field(id string) (*Field, bool) {
	for _, g := range c.Groups {
		if g == nil {
			continue
		}
		if f, ok := g.Field(id); ok {
			return f, true
		}
	}
	return nil, false
}

// Field returns the field with the id in the group.
func (g *Group) Field(id string) (*Field, bool) {
	for _, f := range g.Fields {
		if f != nil && f.ID == id {
			return f, true
		}
	}
	return nil, false
}

// Clone makes a deep copy of the checklist.
func (c *Checklist) Clone() *Checklist {
	if c == nil {
		return nil
	}
	cc := *c
	if c.Assignee != nil {
		a := c.Assignee.clone()
		cc.Assignee = &a
	}
	cc.Groups = make([]*Group, len(c.Groups))
	for i, g := range c.Groups {
		cc.Groups[i] = g.Clone()
	}
	return &cc
}

// Clone makes a deep copy of the group.
func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	gg := *g
	gg.Fields = make([]*Field, len(g.Fields))
	for i, f := range g.Fields {
		gg.Fields[i] = f.Clone()
	}
	return &gg
}

// Clone makes a deep copy of the field, including its conditional rule.
func (f *Field) Clone() *Field {
	if f == nil {
		return nil
	}
	ff := *f
	ff.Value = cloneValue(f.Value)
	ff.Options = cloneStrings(f.Options)
	ff.Conditions = cloneStrings(f.Conditions)
	if f.ConditionalRule != nil {
		ff.ConditionalRule = f.ConditionalRule.Clone()
	}
	if f.Scope != nil {
		s := Scope{
			AssigneeTypes: append([]AssigneeType(nil), f.Scope.AssigneeTypes...),
			Attributes:    append([]Attribute(nil), f.Scope.Attributes...),
		}
		ff.Scope = &s
	}
	return &ff
}

// Clone makes a deep copy of the rule.
func (r *ConditionalRule) Clone() *ConditionalRule {
	if r == nil {
		return nil
	}
	rr := *r
	rr.ConditionalQuestions = cloneStrings(r.ConditionalQuestions)
	rr.Conditions = make([]*Condition, len(r.Conditions))
	for i, c := range r.Conditions {
		if c == nil {
			continue
		}
		cc := *c
		cc.Value = cloneValue(c.Value)
		if c.Values != nil {
			cc.Values = make([]any, len(c.Values))
			for j := range c.Values {
				cc.Values[j] = cloneValue(c.Values[j])
			}
		}
		rr.Conditions[i] = &cc
	}
	return &rr
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
