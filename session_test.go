package checklist_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ezachrisen/checklist"
	"github.com/matryer/is"
)

// sink records autosaves and submissions.
type sink struct {
	mu        sync.Mutex
	saves     []*checklist.Checklist
	submitted []*checklist.Checklist
	saveErr   error
	submitErr error
	saved     chan struct{}
}

func newSink() *sink {
	return &sink{saved: make(chan struct{}, 100)}
}

func (s *sink) Autosave(ctx context.Context, sessionID string, c *checklist.Checklist, rp *checklist.RenderProps) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.saved <- struct{}{} }()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves = append(s.saves, c)
	return nil
}

func (s *sink) Submit(ctx context.Context, c *checklist.Checklist) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitErr != nil {
		return 0, s.submitErr
	}
	s.submitted = append(s.submitted, c)
	return int64(100 + len(s.submitted)), nil
}

func (s *sink) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}

// never is long enough that a scheduled save only runs on Flush.
const never = time.Hour

// answerAll answers every visible fireSafety question without showing
// anything new.
func answerAll(t *testing.T, s *checklist.Session) {
	t.Helper()
	for _, a := range []struct {
		field string
		value any
	}{
		{"smoke_detector", false},
		{"detector_age", 2},
		{"exits", "yes"},
		{"has_kitchen", false},
	} {
		if _, err := s.SetValue(a.field, a.value); err != nil {
			t.Fatalf("setting %s: %v", a.field, err)
		}
	}
}

func TestSetValue(t *testing.T) {
	is := is.New(t)
	s := mustSession(t, mustEngine(t, fireSafety()), site, checklist.WithAutosaveDelay(never))
	is.Equal(s.Phase(), checklist.PhaseProjected)

	ch, err := s.SetValue("smoke_detector", true)
	is.NoErr(err)
	is.Equal(ch.Rules, []string{"r_smoke"})
	is.Equal(ch.Shown, []string{"detector_location", "r_battery"})
	is.Equal(len(ch.Hidden), 0)
	f, _ := ch.Props.Field("detector_location")
	is.Equal(f.Number, 2)
	is.Equal(s.Phase(), checklist.PhaseProjected)

	// the same value again changes nothing
	ch, err = s.SetValue("smoke_detector", true)
	is.NoErr(err)
	is.Equal(len(ch.Shown), 0)
	is.Equal(len(ch.Hidden), 0)

	ch, err = s.SetValue("smoke_detector", false)
	is.NoErr(err)
	is.Equal(ch.Hidden, []string{"detector_location", "r_battery"})
	is.True(strings.Contains(ch.String(), "detector_location"))
}

func TestSetValueErrors(t *testing.T) {
	is := is.New(t)
	s := mustSession(t, mustEngine(t, fireSafety()), site, checklist.WithAutosaveDelay(never))

	_, err := s.SetValue("nope", 1)
	is.True(errors.Is(err, checklist.ErrFieldNotFound))
	_, err = s.SetValue("r_smoke", true)
	is.True(errors.Is(err, checklist.ErrNotAnswerable))
	_, err = s.SetValue("intro", "hello")
	is.True(errors.Is(err, checklist.ErrNotAnswerable))
	is.True(!s.TabsDisabled())
}

func TestSetValueClears(t *testing.T) {
	is := is.New(t)
	s := mustSession(t, mustEngine(t, fireSafety()), site, checklist.WithAutosaveDelay(never))

	_, err := s.SetValue("smoke_detector", true)
	is.NoErr(err)
	ch, err := s.SetValue("smoke_detector", nil)
	is.NoErr(err)
	is.Equal(ch.Hidden, []string{"detector_location", "r_battery"})
	_, ok := s.Answers()["smoke_detector"]
	is.True(!ok)
}

// The same answers in the same order always produce the same props.
func TestSessionDeterministic(t *testing.T) {
	is := is.New(t)
	e := mustEngine(t, fireSafety())
	run := func() *checklist.RenderProps {
		s := mustSession(t, e, site, checklist.WithAutosaveDelay(never))
		for _, a := range []struct {
			field string
			value any
		}{{"smoke_detector", true}, {"detector_age", 8}, {"has_kitchen", true}, {"smoke_detector", false}} {
			if _, err := s.SetValue(a.field, a.value); err != nil {
				t.Fatal(err)
			}
		}
		return s.Props()
	}
	is.Equal(run(), run())
}

func TestSessionSettlesTemplate(t *testing.T) {
	is := is.New(t)
	c := fireSafety()
	kitchen, _ := c.Field("has_kitchen")
	kitchen.Value = true
	s := mustSession(t, mustEngine(t, c), site, checklist.WithAutosaveDelay(never))

	f, _ := s.Props().Field("extinguisher")
	is.True(f.Visible)
	is.Equal(f.Number, 5)
	is.True(!s.TabsDisabled())
}

func TestLock(t *testing.T) {
	is := is.New(t)
	m, reg := newMetrics(t)
	sk := newSink()
	s := mustSession(t, mustEngine(t, fireSafety(), checklist.WithMetrics(m)), site,
		checklist.WithAutosaveDelay(never),
		checklist.WithAutosaver(sk),
		checklist.WithSubmitter(sk))

	_, err := s.SetValue("smoke_detector", true)
	is.NoErr(err)
	is.True(s.TabsDisabled())

	is.NoErr(s.Lock())
	is.True(s.Locked())
	is.True(!s.TabsDisabled())
	is.Equal(counter(t, reg, "checklist_autosaves_total", "result", "dropped"), 1.0)
	is.True(!s.Flush())
	is.Equal(sk.saveCount(), 0)

	_, err = s.SetValue("smoke_detector", false)
	is.True(errors.Is(err, checklist.ErrLocked))
	is.True(errors.Is(err, checklist.ErrConcurrentMutation))
	_, err = s.Reassign(checklist.Assignee{Type: checklist.AssigneeFranchisee})
	is.True(errors.Is(err, checklist.ErrLocked))
	_, err = s.Submit(context.Background())
	is.True(errors.Is(err, checklist.ErrLocked))

	is.Equal(s.Snapshot().Locked, true)
}

func TestLockedTemplate(t *testing.T) {
	is := is.New(t)
	c := fireSafety()
	c.Locked = true
	s := mustSession(t, mustEngine(t, c), site)

	is.True(s.Locked())
	_, err := s.SetValue("exits", "yes")
	is.True(errors.Is(err, checklist.ErrLocked))
}

func TestSubmit(t *testing.T) {
	is := is.New(t)
	m, reg := newMetrics(t)
	sk := newSink()
	s := mustSession(t, mustEngine(t, fireSafety(), checklist.WithMetrics(m)), site,
		checklist.WithAutosaveDelay(never),
		checklist.WithAutosaver(sk),
		checklist.WithSubmitter(sk))

	res, err := s.Submit(context.Background())
	is.NoErr(err)
	is.True(!res.OK())
	is.Equal(res.ChecklistID, int64(0))
	var texts []string
	for _, e := range res.Errors {
		texts = append(texts, e.Text)
	}
	is.Equal(texts, []string{
		"Q1 Smoke detector?: an answer is required",
		"Q2 Detector age: an answer is required",
		"Q3 Exits clear?: an answer is required",
		"Q4 has_kitchen: an answer is required",
	})
	is.Equal(s.Phase(), checklist.PhaseProjected)
	is.Equal(counter(t, reg, "checklist_submissions_total", "result", "invalid"), 1.0)

	answerAll(t, s)
	is.Equal(len(s.Validate()), 0)
	res, err = s.Submit(context.Background())
	is.NoErr(err)
	is.True(res.OK())
	is.Equal(res.ChecklistID, int64(101))
	is.True(!res.IncompleteFields)
	is.Equal(s.Phase(), checklist.PhaseFinalized)
	is.True(!s.TabsDisabled())
	is.Equal(counter(t, reg, "checklist_submissions_total", "result", "ok"), 1.0)

	// the pending save was dropped, not run
	is.Equal(sk.saveCount(), 0)
	is.Equal(counter(t, reg, "checklist_autosaves_total", "result", "dropped"), 1.0)

	is.Equal(len(sk.submitted), 1)
	c := sk.submitted[0]
	f, _ := c.Field("exits")
	is.Equal(f.Value, "yes")
	is.Equal(c.Assignee.ID, int64(42))
	is.Equal(s.Snapshot().ID, int64(101))

	_, err = s.SetValue("exits", "no")
	is.True(errors.Is(err, checklist.ErrFinalized))
	_, err = s.Submit(context.Background())
	is.True(errors.Is(err, checklist.ErrFinalized))
	is.True(errors.Is(s.Lock(), checklist.ErrFinalized))
}

func TestSubmitHiddenFieldsNotRequired(t *testing.T) {
	is := is.New(t)
	sk := newSink()
	s := mustSession(t, mustEngine(t, fireSafety()), site,
		checklist.WithAutosaveDelay(never),
		checklist.WithSubmitter(sk))

	answerAll(t, s)
	_, err := s.SetValue("has_kitchen", true)
	is.NoErr(err)
	errs := s.Validate()
	is.Equal(len(errs), 1)
	is.Equal(errs[0].FieldID, "extinguisher")
	is.Equal(errs[0].Number, 5)

	_, err = s.SetValue("has_kitchen", false)
	is.NoErr(err)
	res, err := s.Submit(context.Background())
	is.NoErr(err)
	is.True(res.OK())
}

func TestSubmitFailure(t *testing.T) {
	is := is.New(t)
	m, reg := newMetrics(t)
	sk := newSink()
	sk.submitErr = errors.New("connection refused")
	s := mustSession(t, mustEngine(t, fireSafety(), checklist.WithMetrics(m)), site,
		checklist.WithAutosaveDelay(never),
		checklist.WithAutosaver(sk),
		checklist.WithSubmitter(sk))
	answerAll(t, s)

	_, err := s.Submit(context.Background())
	is.True(err != nil)
	is.True(strings.Contains(err.Error(), "connection refused"))
	is.Equal(s.Phase(), checklist.PhaseProjected)
	is.True(s.TabsDisabled())
	is.Equal(counter(t, reg, "checklist_submissions_total", "result", "error"), 1.0)

	// the answers are saved again instead
	is.True(s.Flush())
	is.Equal(sk.saveCount(), 1)
	is.True(!s.TabsDisabled())
}

func TestSubmitWithoutSink(t *testing.T) {
	is := is.New(t)
	s := mustSession(t, mustEngine(t, fireSafety()), site)

	_, err := s.Submit(context.Background())
	is.True(errors.Is(err, checklist.ErrNoSubmitter))
}

func TestAutosaveFlush(t *testing.T) {
	is := is.New(t)
	m, reg := newMetrics(t)
	sk := newSink()
	s := mustSession(t, mustEngine(t, fireSafety(), checklist.WithMetrics(m)), site,
		checklist.WithAutosaveDelay(never),
		checklist.WithAutosaver(sk))

	is.True(!s.Flush()) // nothing to save yet

	_, err := s.SetValue("smoke_detector", true)
	is.NoErr(err)
	_, err = s.SetValue("detector_location", "hallway")
	is.NoErr(err)
	is.True(s.TabsDisabled())

	is.True(s.Flush())
	is.True(!s.TabsDisabled())
	is.Equal(sk.saveCount(), 1)
	is.Equal(counter(t, reg, "checklist_autosaves_total", "result", "ok"), 1.0)

	f, _ := sk.saves[0].Field("detector_location")
	is.Equal(f.Value, "hallway")
	is.True(!f.Hidden)

	// the groups were validated after the save
	g, _ := s.Props().Group("safety")
	is.Equal(len(g.Errors), 2) // detector_age and exits
	is.Equal(g.Errors[0].FieldID, "detector_age")
}

func TestAutosaveErrorSwallowed(t *testing.T) {
	is := is.New(t)
	m, reg := newMetrics(t)
	sk := newSink()
	sk.saveErr = errors.New("disk full")
	s := mustSession(t, mustEngine(t, fireSafety(), checklist.WithMetrics(m)), site,
		checklist.WithAutosaveDelay(never),
		checklist.WithAutosaver(sk))

	_, err := s.SetValue("exits", "yes")
	is.NoErr(err)
	is.True(s.Flush())
	is.True(!s.TabsDisabled())
	is.Equal(counter(t, reg, "checklist_autosaves_total", "result", "error"), 1.0)

	_, err = s.SetValue("exits", "no")
	is.NoErr(err)
	is.True(s.TabsDisabled())
}

func TestAutosaveDebounced(t *testing.T) {
	is := is.New(t)
	sk := newSink()
	s := mustSession(t, mustEngine(t, fireSafety()), site,
		checklist.WithAutosaveDelay(20*time.Millisecond),
		checklist.WithAutosaver(sk))

	for i := range 5 {
		_, err := s.SetValue("detector_age", i)
		is.NoErr(err)
	}

	select {
	case <-sk.saved:
	case <-time.After(5 * time.Second):
		t.Fatal("no autosave")
	}

	// the last answer is eventually saved, and the tabs come back
	deadline := time.Now().Add(5 * time.Second)
	for s.TabsDisabled() {
		if time.Now().After(deadline) {
			t.Fatal("tabs still disabled")
		}
		time.Sleep(5 * time.Millisecond)
	}
	sk.mu.Lock()
	last := sk.saves[len(sk.saves)-1]
	sk.mu.Unlock()
	f, _ := last.Field("detector_age")
	is.Equal(f.Value, 4)
}

func TestCloseDropsSave(t *testing.T) {
	is := is.New(t)
	sk := newSink()
	s, err := checklist.NewSession(mustEngine(t, fireSafety()), site,
		checklist.WithAutosaveDelay(10*time.Millisecond),
		checklist.WithAutosaver(sk))
	is.NoErr(err)

	_, err = s.SetValue("exits", "yes")
	is.NoErr(err)
	s.Close()
	time.Sleep(30 * time.Millisecond)
	is.Equal(sk.saveCount(), 0)
}

func TestReassign(t *testing.T) {
	is := is.New(t)
	c := fireSafety()
	exits, _ := c.Field("exits")
	exits.Scope = &checklist.Scope{AssigneeTypes: []checklist.AssigneeType{checklist.AssigneeSite}}
	s := mustSession(t, mustEngine(t, c), site, checklist.WithAutosaveDelay(never))

	_, err := s.SetValue("exits", "yes")
	is.NoErr(err)
	is.Equal(s.Answers()["exits"], "yes")

	rp, err := s.Reassign(checklist.Assignee{Type: checklist.AssigneeFranchisee, ID: 7})
	is.NoErr(err)
	f, _ := rp.Field("exits")
	is.True(!f.Relevant)
	f, _ = rp.Field("has_kitchen")
	is.Equal(f.Number, 3)
	is.Equal(s.Assignee().ID, int64(7))
	is.Equal(s.Phase(), checklist.PhaseProjected)

	// irrelevant answers are kept but not reported
	_, ok := s.Answers()["exits"]
	is.True(!ok)
	f2, _ := s.Snapshot().Field("exits")
	is.Equal(f2.Value, "yes")
}

func TestAnswersVisibleOnly(t *testing.T) {
	is := is.New(t)
	s := mustSession(t, mustEngine(t, fireSafety()), site, checklist.WithAutosaveDelay(never))

	for _, a := range []struct {
		field string
		value any
	}{{"smoke_detector", true}, {"detector_location", "hall"}, {"smoke_detector", false}, {"exits", ""}} {
		_, err := s.SetValue(a.field, a.value)
		is.NoErr(err)
	}
	is.Equal(s.Answers(), map[string]any{"smoke_detector": false})
}

func TestSessionConcurrent(t *testing.T) {
	s := mustSession(t, mustEngine(t, fireSafety()), site, checklist.WithAutosaveDelay(time.Millisecond))

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 20 {
				if _, err := s.SetValue("detector_age", i*j); err != nil {
					t.Error(err)
					return
				}
				_ = s.Props()
				_ = s.TabsDisabled()
			}
		}()
	}
	wg.Wait()

	rp := s.Props()
	for i, n := range rp.Numbers() {
		if n != i+1 {
			t.Fatalf("numbers %v", rp.Numbers())
		}
	}
}

func TestPhaseString(t *testing.T) {
	is := is.New(t)
	is.Equal(checklist.PhaseStale.String(), "stale")
	is.Equal(checklist.PhaseSubmitting.String(), "submitting")
	is.Equal(checklist.PhaseFinalized.String(), "finalized")
	is.Equal(fmt.Sprint(checklist.Phase(9)), "Phase(9)")
}

// slowSink blocks in Submit until released.
type slowSink struct {
	entered chan struct{}
	release chan struct{}
}

func (s *slowSink) Submit(ctx context.Context, c *checklist.Checklist) (int64, error) {
	close(s.entered)
	<-s.release
	return 9, nil
}

func TestSubmitDoesNotBlockReaders(t *testing.T) {
	is := is.New(t)
	sk := &slowSink{entered: make(chan struct{}), release: make(chan struct{})}
	s := mustSession(t, mustEngine(t, fireSafety()), site,
		checklist.WithAutosaveDelay(never),
		checklist.WithSubmitter(sk))
	answerAll(t, s)

	type outcome struct {
		res *checklist.SubmitResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := s.Submit(context.Background())
		done <- outcome{res, err}
	}()
	<-sk.entered

	is.Equal(s.Phase(), checklist.PhaseSubmitting)
	is.True(!s.TabsDisabled())
	f, _ := s.Props().Field("exits")
	is.True(f.Visible)
	is.Equal(len(s.Validate()), 0)

	_, err := s.SetValue("exits", "no")
	is.True(errors.Is(err, checklist.ErrSubmitting))
	is.True(errors.Is(err, checklist.ErrConcurrentMutation))
	is.True(errors.Is(s.Lock(), checklist.ErrSubmitting))
	_, err = s.Submit(context.Background())
	is.True(errors.Is(err, checklist.ErrSubmitting))
	is.True(!s.Flush())

	close(sk.release)
	out := <-done
	is.NoErr(out.err)
	is.Equal(out.res.ChecklistID, int64(9))
	is.Equal(s.Phase(), checklist.PhaseFinalized)
	f2, _ := s.Snapshot().Field("exits")
	is.Equal(f2.Value, "yes")
}
