package checklist

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Sources are the external collaborators a checklist is loaded from.
type Sources struct {
	Templates TemplateSource
	Assignees AssigneeSource
}

type LoadRequest struct {
	VersionID int64

	// Who the checklist is for. Type defaults to AssigneeSite.
	AssigneeType AssigneeType
	AssigneeID   int64

	// Retail organisations have no franchisees; the franchisee fetch is
	// skipped.
	Retail bool

	// Attribute fields to request from the assignee source. Empty means all.
	Fields []string
}

// Loaded is everything needed to start a session.
type Loaded struct {
	Template    *Checklist
	Franchisees []Franchisee
	Sites       []Site
	Request     LoadRequest
}

// Load fetches the template and the assignees concurrently. The first
// failure cancels the other fetches.
func Load(ctx context.Context, src Sources, req LoadRequest) (*Loaded, error) {
	if req.AssigneeType == "" {
		req.AssigneeType = AssigneeSite
	}
	l := &Loaded{Request: req}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := src.Templates.FetchChecklist(ctx, req.VersionID)
		if err != nil {
			return fmt.Errorf("fetching checklist version %d: %w", req.VersionID, err)
		}
		l.Template = c
		return nil
	})
	if src.Assignees != nil {
		if !req.Retail {
			g.Go(func() error {
				fs, err := src.Assignees.FetchFranchisees(ctx, req.Fields)
				if err != nil {
					return fmt.Errorf("fetching franchisees: %w", err)
				}
				l.Franchisees = fs
				return nil
			})
		}
		g.Go(func() error {
			ss, err := src.Assignees.FetchSites(ctx, req.Fields)
			if err != nil {
				return fmt.Errorf("fetching sites: %w", err)
			}
			l.Sites = ss
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return l, nil
}

// Assignee finds the requested assignee among the loaded franchisees and
// sites. An ID of zero yields an assignee with no attributes.
func (l *Loaded) Assignee() (Assignee, error) {
	req := l.Request
	if req.AssigneeID == 0 {
		return Assignee{Type: req.AssigneeType}, nil
	}
	switch req.AssigneeType {
	case AssigneeFranchisee:
		for _, f := range l.Franchisees {
			if f.ID == req.AssigneeID {
				return f.Assignee(), nil
			}
		}
	case AssigneeSite:
		for _, s := range l.Sites {
			if s.ID == req.AssigneeID {
				return s.Assignee(), nil
			}
		}
	}
	return Assignee{}, fmt.Errorf("%s %d: %w", req.AssigneeType, req.AssigneeID, ErrAssigneeNotFound)
}

// Start builds an engine for the loaded template and starts a session for
// the requested assignee.
func (l *Loaded) Start(engineOpts []EngineOption, sessionOpts ...SessionOption) (*Session, error) {
	a, err := l.Assignee()
	if err != nil {
		return nil, err
	}
	e, err := NewEngine(l.Template, engineOpts...)
	if err != nil {
		return nil, err
	}
	return NewSession(e, a, sessionOpts...)
}
