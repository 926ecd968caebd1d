package checklist

import (
	"fmt"
	"strings"
)

// FieldType is the kind of a field. It determines how a value is validated,
// whether the field is numbered, and whether it can hold an answer at all.
type FieldType string

const (
	FieldText        FieldType = "text"
	FieldTextArea    FieldType = "textarea"
	FieldNumber      FieldType = "number"
	FieldBoolean     FieldType = "boolean"
	FieldSelect      FieldType = "select"
	FieldMultiSelect FieldType = "multiselect"
	FieldDate        FieldType = "date"
	FieldPhoto       FieldType = "photo"
	FieldSignature   FieldType = "signature"

	// A label displays text only. It is never numbered or validated.
	FieldLabel FieldType = "label"

	// A conditionalRule field wraps a ConditionalRule. It is structural:
	// never numbered, never validated, never answered.
	FieldConditionalRule FieldType = "conditionalRule"
)

func (t FieldType) String() string { return string(t) }

// Structural reports whether the field is layout rather than a question.
func (t FieldType) Structural() bool {
	return t == FieldLabel || t == FieldConditionalRule
}

// Numbered reports whether visible fields of this type get a question number.
func (t FieldType) Numbered() bool {
	return !t.Structural()
}

// Answerable reports whether the field holds a user answer.
func (t FieldType) Answerable() bool {
	return !t.Structural()
}

// ParseFieldType parses the name of a field type. Names are case-insensitive,
// and a few common aliases are accepted (checkbox and yesno for boolean,
// dropdown for select, and so on).
func ParseFieldType(t string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "text", "string":
		return FieldText, nil
	case "textarea", "longtext":
		return FieldTextArea, nil
	case "number", "numeric", "int", "float":
		return FieldNumber, nil
	case "boolean", "bool", "checkbox", "yesno":
		return FieldBoolean, nil
	case "select", "dropdown", "radio":
		return FieldSelect, nil
	case "multiselect", "multi_select", "checklist":
		return FieldMultiSelect, nil
	case "date", "datetime":
		return FieldDate, nil
	case "photo", "image":
		return FieldPhoto, nil
	case "signature":
		return FieldSignature, nil
	case "label", "heading":
		return FieldLabel, nil
	case "conditionalrule", "conditional_rule":
		return FieldConditionalRule, nil
	default:
		return "", fmt.Errorf("unrecognized field type: %s", t)
	}
}
