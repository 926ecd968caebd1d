package checklist

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Phase is the projection state of a session.
type Phase int

const (
	PhaseUninitialized Phase = iota

	// The render props match the answers.
	PhaseProjected

	// An answer or the assignee changed and the render props have not been
	// recomputed yet. Observable only from inside a change.
	PhaseStale

	// The submission sink is running. Changes are rejected until it returns.
	PhaseSubmitting

	// The checklist was submitted. Terminal.
	PhaseFinalized
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseProjected:
		return "projected"
	case PhaseStale:
		return "stale"
	case PhaseSubmitting:
		return "submitting"
	case PhaseFinalized:
		return "finalized"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

const (
	DefaultAutosaveDelay = time.Second
	DefaultSaveTimeout   = 10 * time.Second
)

// See the functional definitions below for the meaning.
type SessionOptions struct {
	AutosaveDelay time.Duration
	SaveTimeout   time.Duration
	Autosaver     Autosaver
	Validator     Validator
	Submitter     Submitter
}

type SessionOption func(f *SessionOptions)

func applySessionOptions(o *SessionOptions, opts ...SessionOption) {
	for _, opt := range opts {
		opt(o)
	}
}

// WithAutosaveDelay sets how long the session waits after the last change
// before saving.
// Default: DefaultAutosaveDelay.
func WithAutosaveDelay(d time.Duration) SessionOption {
	return func(f *SessionOptions) {
		f.AutosaveDelay = d
	}
}

// WithSaveTimeout bounds each autosave call.
// Default: DefaultSaveTimeout.
func WithSaveTimeout(d time.Duration) SessionOption {
	return func(f *SessionOptions) {
		f.SaveTimeout = d
	}
}

// WithAutosaver sets the persistence sink for in-progress answers.
// Default: none; saves only revalidate the groups.
func WithAutosaver(a Autosaver) SessionOption {
	return func(f *SessionOptions) {
		f.Autosaver = a
	}
}

// WithValidator replaces the DefaultValidator.
func WithValidator(v Validator) SessionOption {
	return func(f *SessionOptions) {
		f.Validator = v
	}
}

// WithSubmitter sets the submission sink. Submit fails without one.
func WithSubmitter(s Submitter) SessionOption {
	return func(f *SessionOptions) {
		f.Submitter = s
	}
}

// A Session is one user's pass over a checklist: it holds the answers, runs
// every change through the engine, and saves in-progress work in the
// background.
//
// Each method call is one critical section; a Session is safe for concurrent
// use.
type Session struct {
	id     string
	engine *Engine
	opts   SessionOptions
	log    *zap.Logger

	mu          sync.Mutex
	state       *State
	props       *RenderProps
	assignee    Assignee
	phase       Phase
	locked      bool
	busy        bool
	checklistID int64

	save *Debouncer
}

// SubmitResult is the outcome of Session.Submit.
type SubmitResult struct {
	// Assigned by the submission sink. Zero if validation failed.
	ChecklistID int64

	// Fields blocking submission. Empty on success.
	Errors []ValidationError

	// Some group was incomplete when the checklist was submitted. Only
	// possible with a validator laxer than DefaultValidator.
	IncompleteFields bool
}

// OK reports whether the checklist was submitted.
func (r *SubmitResult) OK() bool {
	return len(r.Errors) == 0 && r.ChecklistID != 0
}

// NewSession starts a session on the engine's template for the assignee.
// The template's answers are settled (every condition evaluated, every rule
// applied) and projected before NewSession returns.
func NewSession(e *Engine, a Assignee, opts ...SessionOption) (*Session, error) {
	s := &Session{
		id:       uuid.NewString(),
		engine:   e,
		log:      e.opts.Logger,
		assignee: a.clone(),
		locked:   e.template.Locked,
		phase:    PhaseUninitialized,
	}
	s.opts = SessionOptions{
		AutosaveDelay: DefaultAutosaveDelay,
		SaveTimeout:   DefaultSaveTimeout,
		Validator:     DefaultValidator{},
	}
	applySessionOptions(&s.opts, opts...)
	s.log = s.log.With(zap.String("session", s.id))

	s.state = e.NewState()
	if err := e.Settle(s.state); err != nil {
		return nil, err
	}
	s.props = e.Project(s.state, s.assignee)
	s.setPhase(PhaseProjected)
	s.save = NewDebouncer(s.opts.AutosaveDelay, s.autosave)
	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

// SetValue records an answer and recomputes visibility and numbering.
// A nil value clears the answer.
func (s *Session) SetValue(fieldID string, value any) (*Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mutable(); err != nil {
		return nil, err
	}
	f, ok := s.engine.Field(fieldID)
	if !ok {
		return nil, fmt.Errorf("setting %s: %w", fieldID, ErrFieldNotFound)
	}
	if !f.Type.Answerable() {
		return nil, fmt.Errorf("setting %s: %w", fieldID, ErrNotAnswerable)
	}

	v := cloneValue(value)
	if v == nil {
		delete(s.state.Values, fieldID)
	} else {
		s.state.Values[fieldID] = v
	}
	s.setPhase(PhaseStale)

	rules, err := s.engine.Resolve(s.state, fieldID, v)
	if err != nil {
		return nil, err
	}
	var flipped []string
	for _, rid := range rules {
		changed, err := s.engine.Apply(s.state, rid)
		if err != nil {
			return nil, err
		}
		for _, id := range changed {
			if !slices.Contains(flipped, id) {
				flipped = append(flipped, id)
			}
		}
	}

	props, err := s.engine.Renumber(s.state, s.props)
	if err != nil {
		return nil, err
	}
	s.props = props
	s.setPhase(PhaseProjected)
	s.touch()

	ch := &Change{FieldID: fieldID, Value: cloneValue(v), Rules: rules, Props: s.props.Clone()}
	for _, id := range flipped {
		if s.state.Hidden[id] {
			ch.Hidden = append(ch.Hidden, id)
		} else {
			ch.Shown = append(ch.Shown, id)
		}
	}
	return ch, nil
}

// Reassign projects the checklist for a different assignee.
func (s *Session) Reassign(a Assignee) (*RenderProps, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mutable(); err != nil {
		return nil, err
	}
	s.setPhase(PhaseStale)
	s.assignee = a.clone()
	s.props = s.engine.Project(s.state, s.assignee)
	s.setPhase(PhaseProjected)
	s.touch()
	return s.props.Clone(), nil
}

// Lock rejects all further changes and drops the pending save.
func (s *Session) Lock() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseFinalized:
		return ErrFinalized
	case PhaseSubmitting:
		return ErrSubmitting
	}
	s.locked = true
	s.dropPendingSave("locked")
	return nil
}

// Submit validates the checklist and, if there are no errors, hands it to
// the submission sink and finalizes the session. Validation errors are
// reported in the result, not as an error.
//
// The session is not held while the sink runs: readers and the autosave go
// on, and changes fail with ErrSubmitting. If the sink fails, the session
// becomes editable again and a save is scheduled.
func (s *Session) Submit(ctx context.Context) (*SubmitResult, error) {
	s.mu.Lock()
	if err := s.mutable(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.opts.Submitter == nil {
		s.mu.Unlock()
		return nil, ErrNoSubmitter
	}

	c := s.snapshot()
	if errs := s.opts.Validator.ValidateChecklist(c, s.props); len(errs) > 0 {
		s.mu.Unlock()
		s.engine.opts.Metrics.submitted("invalid")
		return &SubmitResult{Errors: errs}, nil
	}
	incomplete := s.props.Incomplete()

	s.dropPendingSave("submitting")
	s.setPhase(PhaseSubmitting)
	s.mu.Unlock()

	id, err := s.opts.Submitter.Submit(ctx, c)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.engine.opts.Metrics.submitted("error")
		s.setPhase(PhaseProjected)
		s.touch()
		return nil, fmt.Errorf("submitting checklist: %w", err)
	}
	s.engine.opts.Metrics.submitted("ok")

	s.checklistID = id
	s.busy = false
	s.setPhase(PhaseFinalized)
	return &SubmitResult{ChecklistID: id, IncompleteFields: incomplete}, nil
}

// Validate lists the fields that would block submission now.
func (s *Session) Validate() []ValidationError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.Validator.ValidateChecklist(s.snapshot(), s.props)
}

// Flush runs the pending save now and reports whether there was one.
func (s *Session) Flush() bool {
	return s.save.Flush()
}

// Close drops the pending save and waits for a running one to finish.
func (s *Session) Close() {
	s.mu.Lock()
	s.dropPendingSave("closed")
	s.mu.Unlock()

	// The save callback takes s.mu; wait outside it.
	s.save.Stop()
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// TabsDisabled reports whether a change is waiting to be saved. Tab links
// stay disabled until the save completes.
func (s *Session) TabsDisabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Props returns a copy of the current render props.
func (s *Session) Props() *RenderProps {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.props.Clone()
}

func (s *Session) Assignee() Assignee {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assignee.clone()
}

// Snapshot returns the checklist with the session's answers, hidden flags
// and condition outcomes written in.
func (s *Session) Snapshot() *Checklist {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Answers returns the answers of the visible fields, keyed by field ID.
func (s *Session) Answers() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	answers := map[string]any{}
	for _, g := range s.props.Groups {
		for _, f := range g.Fields {
			if !f.Visible {
				continue
			}
			if v, ok := s.state.Values[f.ID]; ok && !isEmpty(v) {
				answers[f.ID] = cloneValue(v)
			}
		}
	}
	return answers
}

// snapshot requires s.mu.
func (s *Session) snapshot() *Checklist {
	c := s.engine.Materialize(s.state)
	c.ID = s.checklistID
	c.Locked = s.locked
	a := s.assignee.clone()
	c.Assignee = &a
	return c
}

// mutable requires s.mu.
func (s *Session) mutable() error {
	switch {
	case s.phase == PhaseFinalized:
		return ErrFinalized
	case s.phase == PhaseSubmitting:
		return ErrSubmitting
	case s.locked:
		return ErrLocked
	}
	return nil
}

// touch marks the session busy and pushes the save back. Requires s.mu.
func (s *Session) touch() {
	s.busy = true
	s.save.Schedule()
}

// dropPendingSave requires s.mu.
func (s *Session) dropPendingSave(reason string) {
	if s.save.Cancel() {
		s.engine.opts.Metrics.saved("dropped")
		s.log.Debug("dropped pending autosave", zap.String("reason", reason))
	}
	s.busy = false
}

// setPhase requires s.mu.
func (s *Session) setPhase(p Phase) {
	if s.phase == p {
		return
	}
	s.log.Debug("phase", zap.Stringer("from", s.phase), zap.Stringer("to", p))
	s.phase = p
}

// autosave is the debounced save. It runs on the debouncer's goroutine.
func (s *Session) autosave() {
	s.mu.Lock()
	if s.phase == PhaseFinalized || s.phase == PhaseSubmitting || s.locked {
		s.mu.Unlock()
		s.engine.opts.Metrics.saved("dropped")
		return
	}
	c := s.snapshot()
	rp := s.props.Clone()
	s.mu.Unlock()

	result := "ok"
	if s.opts.Autosaver != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.SaveTimeout)
		err := s.opts.Autosaver.Autosave(ctx, s.id, c, rp)
		cancel()
		if err != nil {
			result = "error"
			s.log.Error("autosave failed", zap.Error(err))
		}
	}
	s.engine.opts.Metrics.saved(result)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseFinalized || s.phase == PhaseSubmitting {
		return
	}
	s.opts.Validator.ValidateGroups(s.snapshot(), s.props)
	if !s.save.Pending() {
		s.busy = false
	}
}
