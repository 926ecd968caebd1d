// Package template reads and writes checklist templates as YAML or JSON and
// checks them for structural problems before they reach the engine.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ezachrisen/checklist"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Format is a template file encoding.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
)

// FormatOf picks the format from a file extension. Anything but .json is YAML.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return JSON
	}
	return YAML
}

// Decode reads one checklist. Unknown keys are rejected.
func Decode(r io.Reader, f Format) (*checklist.Checklist, error) {
	var c checklist.Checklist
	switch f {
	case JSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("decoding JSON checklist: %w", err)
		}
	case YAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("decoding YAML checklist: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown template format %q", f)
	}
	return &c, nil
}

// Encode writes the checklist.
func Encode(w io.Writer, c *checklist.Checklist, f Format) error {
	switch f {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown template format %q", f)
}

// ReadFile decodes and validates the template in the file.
func ReadFile(path string) (*checklist.Checklist, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	c, err := Decode(fh, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := Validate(c); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(validateField, checklist.Field{})
	v.RegisterStructValidation(validateCondition, checklist.Condition{})
	return v
}

func validateField(sl validator.StructLevel) {
	f := sl.Current().Interface().(checklist.Field)
	t, err := checklist.ParseFieldType(string(f.Type))
	if err != nil {
		sl.ReportError(f.Type, "Type", "type", "fieldtype", string(f.Type))
		return
	}
	if (t == checklist.FieldConditionalRule) != (f.ConditionalRule != nil) {
		sl.ReportError(f.ConditionalRule, "ConditionalRule", "conditional_rule", "rulefield", string(t))
	}
}

func validateCondition(sl validator.StructLevel) {
	c := sl.Current().Interface().(checklist.Condition)
	if _, err := checklist.ParseOperator(string(c.Operator)); err != nil {
		sl.ReportError(c.Operator, "Operator", "operator", "operator", string(c.Operator))
	}
}

// A FieldError is one structural problem found by Validate.
type FieldError struct {
	// Struct path of the offending value, e.g. Checklist.Groups[0].Fields[2].Type
	Namespace string
	Tag       string
	Value     any
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: failed %q check (value %v)", e.Namespace, e.Tag, e.Value)
}

// Validate checks the template's required fields, field types, operators and
// rule wrappers. It does not check references or cycles; NewEngine does.
// All problems found are joined into the returned error.
func Validate(c *checklist.Checklist) error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	errs := make([]error, len(verrs))
	for i, fe := range verrs {
		errs[i] = FieldError{Namespace: fe.Namespace(), Tag: fe.Tag(), Value: fe.Value()}
	}
	return errors.Join(errs...)
}
