package checklist

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderProps is the renderable view of a checklist: per-group tab and
// completion flags and per-field visibility and question numbers.
//
// RenderProps is derived. It has the same groups and fields, in the same
// order, as the checklist it was projected from, and it is never a source of
// truth: Engine.Project and Engine.Renumber recompute it from a State.
type RenderProps struct {
	// The assignee the relevance flags were computed for.
	Assignee Assignee `json:"assignee"`

	Groups []GroupProps `json:"groups"`
}

type GroupProps struct {
	ID string `json:"id"`

	// The group has at least one visible, relevant question.
	ShowTab bool `json:"show_tab"`

	// Some visible, required field is unanswered or holds an invalid value.
	IncompleteFields bool `json:"incomplete_fields"`

	// Set by the validator after each save.
	Errors []ValidationError `json:"errors,omitempty"`

	Fields []FieldProps `json:"fields"`
}

type FieldProps struct {
	ID string `json:"id"`

	// The field's scope matches the assignee.
	Relevant bool `json:"relevant"`

	// Relevant and not hidden by a rule.
	Visible bool `json:"visible"`

	// Question number, from 1. Zero for fields that are not numbered.
	Number int `json:"number,omitempty"`
}

// QuestionLabel returns the display label of the question number ("Q3"),
// or "" if the field is not numbered.
func (f FieldProps) QuestionLabel() string {
	if f.Number == 0 {
		return ""
	}
	return "Q" + strconv.Itoa(f.Number)
}

// Project computes the render props for the state, scoping fields to the
// assignee.
func (e *Engine) Project(st *State, a Assignee) *RenderProps {
	rp := &RenderProps{
		Assignee: a.clone(),
		Groups:   make([]GroupProps, len(e.template.Groups)),
	}
	for gi, g := range e.template.Groups {
		gp := &rp.Groups[gi]
		gp.ID = g.ID
		gp.Fields = make([]FieldProps, len(g.Fields))
		for fi, f := range g.Fields {
			gp.Fields[fi] = FieldProps{
				ID:       f.ID,
				Relevant: f.Scope.Matches(a),
			}
		}
	}
	e.fill(st, rp)
	return rp
}

// Renumber recomputes visibility, numbering and the group flags of rp for
// the state, keeping rp's relevance flags. rp is not modified.
func (e *Engine) Renumber(st *State, rp *RenderProps) (*RenderProps, error) {
	if err := e.congruent(rp); err != nil {
		return nil, err
	}
	out := rp.Clone()
	e.fill(st, out)
	return out, nil
}

func (e *Engine) congruent(rp *RenderProps) error {
	if rp == nil {
		return fmt.Errorf("%w: no render props", ErrIncongruent)
	}
	if len(rp.Groups) != len(e.template.Groups) {
		return fmt.Errorf("%w: %d groups, checklist has %d", ErrIncongruent, len(rp.Groups), len(e.template.Groups))
	}
	for gi, g := range e.template.Groups {
		gp := rp.Groups[gi]
		if gp.ID != g.ID || len(gp.Fields) != len(g.Fields) {
			return fmt.Errorf("%w: group %d is %s, checklist has %s", ErrIncongruent, gi, gp.ID, g.ID)
		}
		for fi, f := range g.Fields {
			if gp.Fields[fi].ID != f.ID {
				return fmt.Errorf("%w: field %d of group %s is %s, checklist has %s", ErrIncongruent, fi, g.ID, gp.Fields[fi].ID, f.ID)
			}
		}
	}
	return nil
}

// fill recomputes everything in rp except relevance. Numbering always starts
// over, since one hidden field shifts every number after it.
func (e *Engine) fill(st *State, rp *RenderProps) {
	n := 0
	for gi, g := range e.template.Groups {
		gp := &rp.Groups[gi]
		gp.ShowTab = false
		gp.IncompleteFields = false
		for fi, f := range g.Fields {
			fp := &gp.Fields[fi]
			fp.Visible = fp.Relevant && !st.Hidden[f.ID]
			fp.Number = 0
			if !fp.Visible {
				continue
			}
			if !f.Type.Structural() {
				gp.ShowTab = true
			}
			if f.Type.Numbered() {
				n++
				fp.Number = n
			}
			if f.Type.Answerable() && !f.Optional {
				if v := st.Values[f.ID]; isEmpty(v) || !validValue(f, v) {
					gp.IncompleteFields = true
				}
			}
		}
	}
}

// Group returns the props of the group with the id.
func (rp *RenderProps) Group(id string) (*GroupProps, bool) {
	for i := range rp.Groups {
		if rp.Groups[i].ID == id {
			return &rp.Groups[i], true
		}
	}
	return nil, false
}

// Field returns the props of the field with the id.
func (rp *RenderProps) Field(id string) (FieldProps, bool) {
	for _, g := range rp.Groups {
		for _, f := range g.Fields {
			if f.ID == id {
				return f, true
			}
		}
	}
	return FieldProps{}, false
}

// Tabs lists the IDs of the groups to present as tabs.
func (rp *RenderProps) Tabs() []string {
	var tabs []string
	for _, g := range rp.Groups {
		if g.ShowTab {
			tabs = append(tabs, g.ID)
		}
	}
	return tabs
}

// Incomplete reports whether any group has incomplete fields.
func (rp *RenderProps) Incomplete() bool {
	for _, g := range rp.Groups {
		if g.IncompleteFields {
			return true
		}
	}
	return false
}

// Numbers lists the question numbers in document order.
func (rp *RenderProps) Numbers() []int {
	var nums []int
	for _, g := range rp.Groups {
		for _, f := range g.Fields {
			if f.Number > 0 {
				nums = append(nums, f.Number)
			}
		}
	}
	return nums
}

// Clone returns a deep copy.
func (rp *RenderProps) Clone() *RenderProps {
	c := &RenderProps{
		Assignee: rp.Assignee.clone(),
		Groups:   make([]GroupProps, len(rp.Groups)),
	}
	for i, g := range rp.Groups {
		g.Fields = append([]FieldProps(nil), g.Fields...)
		g.Errors = append([]ValidationError(nil), g.Errors...)
		c.Groups[i] = g
	}
	return c
}

// String produces a table of groups and fields with their flags and numbers.
func (rp *RenderProps) String() string {
	tw := table.NewWriter()
	tw.SetTitle("\nRENDER PROPS\n")
	tw.AppendHeader(table.Row{"Group", "Tab", "Incom-\nplete", "Field", "Rele-\nvant", "Visible", "No."})
	for _, g := range rp.Groups {
		if len(g.Fields) == 0 {
			tw.AppendRow(table.Row{g.ID, yesNo(g.ShowTab), yesNo(g.IncompleteFields), "", "", "", ""})
			continue
		}
		for i, f := range g.Fields {
			row := table.Row{"", "", "", f.ID, yesNo(f.Relevant), yesNo(f.Visible), f.QuestionLabel()}
			if i == 0 {
				row[0], row[1], row[2] = g.ID, yesNo(g.ShowTab), yesNo(g.IncompleteFields)
			}
			tw.AppendRow(row)
		}
	}
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	tw.SetStyle(style)
	return tw.Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}
