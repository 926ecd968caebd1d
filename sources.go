package checklist

import "context"

// The interfaces in this file are implemented outside the engine. The
// template and store/sqlite packages provide implementations.

// TemplateSource supplies checklist templates with their default values.
type TemplateSource interface {
	FetchChecklist(ctx context.Context, versionID int64) (*Checklist, error)
}

// AssigneeSource supplies the franchisees and sites a checklist can be
// assigned to. fields names the attributes the caller needs; an empty list
// means all.
type AssigneeSource interface {
	FetchFranchisees(ctx context.Context, fields []string) ([]Franchisee, error)
	FetchSites(ctx context.Context, fields []string) ([]Site, error)
}

// Autosaver persists an in-progress checklist. Failures are logged by the
// session and otherwise ignored; the next change schedules another save.
type Autosaver interface {
	Autosave(ctx context.Context, sessionID string, c *Checklist, rp *RenderProps) error
}

// AutosaverFunc adapts a function to the Autosaver interface.
type AutosaverFunc func(ctx context.Context, sessionID string, c *Checklist, rp *RenderProps) error

func (f AutosaverFunc) Autosave(ctx context.Context, sessionID string, c *Checklist, rp *RenderProps) error {
	return f(ctx, sessionID, c, rp)
}

// Submitter stores a finalized checklist and returns the ID it was assigned.
type Submitter interface {
	Submit(ctx context.Context, c *Checklist) (int64, error)
}
