package checklist

import "fmt"

// Validator checks a checklist before submission and after each autosave.
type Validator interface {
	// ValidateChecklist lists the fields that block submission.
	ValidateChecklist(c *Checklist, rp *RenderProps) []ValidationError

	// ValidateGroups records the errors of each group in rp.Groups[i].Errors.
	ValidateGroups(c *Checklist, rp *RenderProps)
}

// DefaultValidator requires an answer that suits the field type for every
// visible, non-optional question.
type DefaultValidator struct{}

func (DefaultValidator) ValidateChecklist(c *Checklist, rp *RenderProps) []ValidationError {
	return ValidateChecklist(c, rp)
}

func (DefaultValidator) ValidateGroups(c *Checklist, rp *RenderProps) {
	ValidateGroups(c, rp)
}

// ValidateChecklist lists, in document order, the visible questions of c that
// are unanswered (unless optional) or hold an invalid answer. Hidden and
// irrelevant fields are never validated. rp must be congruent with c; groups
// or fields missing from rp are not validated, and a nil rp validates nothing.
func ValidateChecklist(c *Checklist, rp *RenderProps) []ValidationError {
	if c == nil || rp == nil {
		return nil
	}
	var errs []ValidationError
	for gi, g := range c.Groups {
		if gi >= len(rp.Groups) {
			break
		}
		errs = append(errs, validateGroup(c, g, rp.Groups[gi])...)
	}
	return errs
}

// ValidateGroups replaces the Errors of every group in rp.
func ValidateGroups(c *Checklist, rp *RenderProps) {
	if c == nil || rp == nil {
		return
	}
	for gi, g := range c.Groups {
		if gi >= len(rp.Groups) {
			break
		}
		rp.Groups[gi].Errors = validateGroup(c, g, rp.Groups[gi])
	}
}

func validateGroup(c *Checklist, g *Group, gp GroupProps) []ValidationError {
	var errs []ValidationError
	for fi, f := range g.Fields {
		if fi >= len(gp.Fields) {
			break
		}
		fp := gp.Fields[fi]
		if !fp.Visible || f.Hidden || !f.Type.Answerable() {
			continue
		}

		var problem string
		switch {
		case isEmpty(f.Value) && f.Optional:
			continue
		case isEmpty(f.Value):
			problem = "an answer is required"
		case !validValue(f, f.Value):
			problem = fmt.Sprintf("%v is not a valid %s answer", f.Value, f.Type)
		default:
			continue
		}

		name := f.Label
		if name == "" {
			name = f.ID
		}
		if q := fp.QuestionLabel(); q != "" && !c.HideQuestionNumber {
			name = q + " " + name
		}
		errs = append(errs, ValidationError{
			GroupID: g.ID,
			FieldID: f.ID,
			Number:  fp.Number,
			Text:    name + ": " + problem,
		})
	}
	return errs
}
