package template

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/ezachrisen/checklist"
	"gopkg.in/yaml.v3"
)

// Dir is a directory of template files named by version ID (12.yaml,
// 12.json), with optional franchisees.yaml and sites.yaml files listing the
// assignees. Dir implements checklist.TemplateSource and
// checklist.AssigneeSource.
type Dir string

var ErrNotFound = errors.New("template not found")

func (d Dir) FetchChecklist(ctx context.Context, versionID int64) (*checklist.Checklist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	base := strconv.FormatInt(versionID, 10)
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		path := filepath.Join(string(d), base+ext)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		c, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		c.VersionID = versionID
		return c, nil
	}
	return nil, fmt.Errorf("version %d in %s: %w", versionID, string(d), ErrNotFound)
}

func (d Dir) FetchFranchisees(ctx context.Context, fields []string) ([]checklist.Franchisee, error) {
	var fs []checklist.Franchisee
	if err := d.readList(ctx, "franchisees.yaml", &fs); err != nil {
		return nil, err
	}
	for i := range fs {
		fs[i].Attributes = pick(fs[i].Attributes, fields)
	}
	return fs, nil
}

func (d Dir) FetchSites(ctx context.Context, fields []string) ([]checklist.Site, error) {
	var ss []checklist.Site
	if err := d.readList(ctx, "sites.yaml", &ss); err != nil {
		return nil, err
	}
	for i := range ss {
		ss[i].Attributes = pick(ss[i].Attributes, fields)
	}
	return ss, nil
}

// readList decodes a YAML list. A missing file is an empty list.
func (d Dir) readList(ctx context.Context, name string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := os.ReadFile(filepath.Join(string(d), name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}

// pick keeps the attributes named in fields; no fields keeps all.
func pick(attrs []checklist.Attribute, fields []string) []checklist.Attribute {
	if len(fields) == 0 {
		return attrs
	}
	var out []checklist.Attribute
	for _, a := range attrs {
		if slices.Contains(fields, a.ID) {
			out = append(out, a)
		}
	}
	return out
}
