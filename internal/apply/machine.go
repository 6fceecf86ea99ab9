// Package apply drives one quick-apply form from the job page to a terminal
// outcome. The form's steps are not known in advance: every visit classifies
// the live step and dispatches on its kind.
package apply

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/apply-agent/internal/answers"
	"github.com/jonathan/apply-agent/internal/behavior"
	"github.com/jonathan/apply-agent/internal/browser"
	"github.com/jonathan/apply-agent/internal/jobpage"
	"github.com/jonathan/apply-agent/internal/retry"
	"github.com/jonathan/apply-agent/internal/site"
	"github.com/jonathan/apply-agent/internal/types"
	"go.uber.org/zap"
)

// Answerer supplies values for form questions
type Answerer interface {
	Answer(ctx context.Context, q answers.Question, job types.JobContext) (string, bool, error)
}

// Renderer produces a tailored resume file for a job
type Renderer interface {
	Render(ctx context.Context, job types.JobContext) (string, error)
}

// Options tune the step machine
type Options struct {
	// MaxSteps caps step visits per listing.
	MaxSteps int
	// StuckVisits identical consecutive visits of one step mean it is not advancing.
	StuckVisits int
	SkipList    answers.SkipList
	// ResumePath is uploaded when no renderer is set or rendering fails.
	ResumePath string

	Click retry.Policy
	Fill  retry.Policy
	Wait  retry.Policy
}

// DefaultOptions returns the stock options
func DefaultOptions() Options {
	fill := retry.DefaultPolicy()
	fill.Timeout = time.Minute
	wait := retry.DefaultPolicy()
	wait.MaxAttempts = 5
	wait.Timeout = 10 * time.Second
	return Options{
		MaxSteps:    12,
		StuckVisits: 3,
		SkipList:    answers.DefaultSkipList(),
		Click:       retry.DefaultPolicy(),
		Fill:        fill,
		Wait:        wait,
	}
}

// Config bundles the Machine collaborators
type Config struct {
	Page      browser.Page
	Selectors site.Selectors
	URLs      site.URLs
	Pacer     *behavior.Pacer
	Runner    *retry.Runner
	Answers   Answerer
	Renderer  Renderer
	// Persist is called after every step transition. Its failure is logged only.
	Persist func(ctx context.Context) error
	Options Options
	Logger  *zap.Logger
	Clock   func() time.Time
}

// Machine applies to listings one at a time in its page
type Machine struct {
	page      browser.Page
	selectors site.Selectors
	urls      site.URLs
	pacer     *behavior.Pacer
	runner    *retry.Runner
	answers   Answerer
	renderer  Renderer
	persist   func(ctx context.Context) error
	opts      Options
	logger    *zap.Logger
	clock     func() time.Time
}

// NewMachine creates a Machine
func NewMachine(cfg Config) *Machine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Runner == nil {
		cfg.Runner = retry.NewRunner(cfg.Logger)
	}
	if cfg.Pacer == nil {
		cfg.Pacer = behavior.NewPacer(behavior.Generate(behavior.NewRand(), behavior.DefaultBounds()), nil, behavior.DefaultPacerOptions())
	}
	if cfg.Options.MaxSteps < 1 {
		cfg.Options.MaxSteps = DefaultOptions().MaxSteps
	}
	if cfg.Options.StuckVisits < 2 {
		cfg.Options.StuckVisits = 2
	}
	return &Machine{
		page:      cfg.Page,
		selectors: cfg.Selectors,
		urls:      cfg.URLs,
		pacer:     cfg.Pacer,
		runner:    cfg.Runner,
		answers:   cfg.Answers,
		renderer:  cfg.Renderer,
		persist:   cfg.Persist,
		opts:      cfg.Options,
		logger:    cfg.Logger.Named("apply"),
		clock:     cfg.Clock,
	}
}

// session is the state of one in-flight application. It lives for one Apply call.
type session struct {
	ref     types.JobListingRef
	job     types.JobContext
	step    int
	history []types.StepKind
	opened  bool

	lastShape string
	repeats   int

	rendered bool
	resume   string

	logger *zap.Logger
}

// Apply runs the application for ref to a terminal outcome. It never returns
// an error: every failure is folded into the outcome. Cancellation of ctx is
// honored between steps, never in the middle of one.
func (m *Machine) Apply(ctx context.Context, ref types.JobListingRef) types.ApplicationOutcome {
	s := &session{
		ref:    ref,
		job:    types.JobContext{ExternalID: ref.ExternalID},
		logger: m.logger.With(zap.String("listing", ref.ExternalID)),
	}

	out := m.run(ctx, s)
	out.Title = s.job.Title
	out.Company = s.job.Company
	out.CompletedAt = m.clock()

	s.logger.Info("listing finished",
		zap.String("result", string(out.Result)),
		zap.String("error_kind", string(out.ErrorKind)),
		zap.String("reason", out.Reason),
		zap.Int("steps", s.step))
	return out
}

func (m *Machine) run(ctx context.Context, s *session) types.ApplicationOutcome {
	if ctx.Err() != nil {
		return types.Abandoned(s.ref, 0, nil)
	}

	details, err := m.open(ctx, s)
	if err != nil {
		return m.outcome(ctx, s, err)
	}
	s.job = details.Job
	if reason := details.Status.SkipReason(); reason != "" {
		return types.Skipped(s.ref, reason)
	}

	if err := m.pacer.Read(ctx, details.Job.Description); err != nil {
		return m.outcome(ctx, s, err)
	}
	if err := m.start(ctx, s); err != nil {
		return m.outcome(ctx, s, err)
	}
	return m.walk(ctx, s)
}

// open loads the job page and reads it
func (m *Machine) open(ctx context.Context, s *session) (jobpage.Details, error) {
	err := retry.Do(ctx, m.runner, "open job", retry.Chain{s.ref.SourceURL}, m.opts.Wait,
		func(ctx context.Context, url string) error {
			return m.page.Navigate(ctx, url)
		})
	if err != nil {
		return jobpage.Details{}, err
	}
	if err := m.checkChallenge(ctx); err != nil {
		return jobpage.Details{}, err
	}

	html, err := retry.Execute(ctx, m.runner, retry.Operation[string]{
		Name:   "read job page",
		Chain:  retry.Chain{"body"},
		Policy: m.opts.Wait,
		Do: func(ctx context.Context, sel string) (string, error) {
			if err := m.waitAny(ctx, m.selectors.JobTitle); err != nil {
				return "", err
			}
			return m.page.Snapshot(ctx, sel)
		},
	})
	if err != nil {
		return jobpage.Details{}, err
	}
	details, err := jobpage.Parse(html, s.ref.ExternalID, m.selectors)
	if err != nil {
		return jobpage.Details{}, retry.Wrap(types.ErrStructuralChange, err, "unreadable job page")
	}
	return details, nil
}

// start clicks quick apply and waits for the modal
func (m *Machine) start(ctx context.Context, s *session) error {
	if err := m.pacer.BeforeClick(ctx); err != nil {
		return err
	}
	if err := m.click(ctx, "quick apply", m.selectors.QuickApply, m.anchor(m.selectors.JobTitle)); err != nil {
		return err
	}
	s.opened = true
	return retry.Do(ctx, m.runner, "wait for application", m.selectors.Modal, m.opts.Wait, m.page.WaitVisible)
}

func (m *Machine) walk(ctx context.Context, s *session) types.ApplicationOutcome {
	for {
		if ctx.Err() != nil {
			m.discard(ctx, s)
			return types.Abandoned(s.ref, s.step, s.history)
		}
		s.step++
		if s.step > m.opts.MaxSteps {
			m.discard(ctx, s)
			return types.Failed(s.ref, types.ErrTooManySteps,
				fmt.Sprintf("form exceeded %d steps", m.opts.MaxSteps), s.history)
		}

		// a step runs to completion even if shutdown is requested meanwhile
		stepCtx := context.WithoutCancel(ctx)
		done, err := m.visit(stepCtx, s)
		if err != nil {
			m.discard(stepCtx, s)
			return m.outcome(ctx, s, err)
		}
		if done {
			m.savePersist(stepCtx, s)
			return types.Submitted(s.ref, s.history)
		}
		m.savePersist(stepCtx, s)
	}
}

// visit classifies and handles one rendered step. done is true once the
// application is submitted and confirmed.
func (m *Machine) visit(ctx context.Context, s *session) (bool, error) {
	if err := m.checkChallenge(ctx); err != nil {
		return false, err
	}

	html, err := retry.Execute(ctx, m.runner, retry.Operation[string]{
		Name:   "read step",
		Chain:  m.selectors.Modal,
		Policy: m.opts.Wait,
		Do:     m.page.Snapshot,
		Anchor: m.anchor(m.selectors.JobTitle),
	})
	if err != nil {
		return false, err
	}
	desc, err := Classify(html, m.selectors)
	if err != nil {
		return false, err
	}

	s.logger.Debug("step rendered",
		zap.Int("step", s.step),
		zap.String("kind", string(desc.Kind)),
		zap.String("action", string(desc.Action)),
		zap.Int("fields", len(desc.FieldBindings)))

	if m.stalled(s, desc) {
		reason := "step did not advance"
		if len(desc.Errors) > 0 {
			reason += ": " + strings.Join(desc.Errors, "; ")
		}
		return false, retry.Errorf(types.ErrStepStuck, "%s", reason)
	}

	switch desc.Kind {
	case types.StepUnknown:
		return false, retry.Errorf(types.ErrUnrecognizedStep,
			"unrecognized step with action %q and %d fields", desc.Action, len(desc.FieldBindings))

	case types.StepReview:
		// validation only, nothing is written
		if len(desc.Errors) > 0 {
			return false, retry.Errorf(types.ErrStepStuck, "review shows errors: %s", strings.Join(desc.Errors, "; "))
		}
		s.history = append(s.history, types.StepReview)
		if desc.Action == types.ActionSubmit {
			return m.submit(ctx, s)
		}
		return false, m.advance(ctx, desc.Action)

	default:
		if err := m.fill(ctx, s, desc); err != nil {
			return false, err
		}
		if desc.Action == types.ActionSubmit {
			return m.submit(ctx, s)
		}
		s.history = append(s.history, desc.Kind)
		return false, m.advance(ctx, desc.Action)
	}
}

// stalled reports whether the same step shape has now been seen StuckVisits
// times in a row.
func (m *Machine) stalled(s *session, desc types.StepDescriptor) bool {
	var b strings.Builder
	b.WriteString(string(desc.Kind) + "|" + string(desc.Action))
	for _, f := range desc.FieldBindings {
		b.WriteString("|" + f.Selector)
	}
	shape := b.String()

	if shape == s.lastShape {
		s.repeats++
	} else {
		s.lastShape, s.repeats = shape, 0
	}
	return s.repeats+1 >= m.opts.StuckVisits
}

func (m *Machine) advance(ctx context.Context, action types.StepAction) error {
	chain := m.selectors.NextButton
	if action == types.ActionReview {
		chain = m.selectors.ReviewButton
	}
	if err := m.pacer.BeforeClick(ctx); err != nil {
		return err
	}
	if err := m.click(ctx, "advance step", chain, m.anchor(m.selectors.Modal)); err != nil {
		return stuck(err)
	}
	if err := m.pacer.Think(ctx); err != nil {
		return err
	}
	return m.checkNavigation(ctx)
}

func (m *Machine) submit(ctx context.Context, s *session) (bool, error) {
	m.unfollow(ctx, s)

	if err := m.pacer.BeforeClick(ctx); err != nil {
		return false, err
	}
	if err := m.click(ctx, "submit", m.selectors.SubmitButton, m.anchor(m.selectors.Modal)); err != nil {
		return false, stuck(err)
	}

	err := retry.Do(ctx, m.runner, "confirm submission", m.selectors.Confirmation, m.opts.Wait, m.page.WaitVisible)
	if err != nil {
		if kind := retry.KindOf(err); kind == types.ErrElementNotFound || kind == types.ErrTimeout {
			return false, retry.Wrap(types.ErrStepStuck, err, "submission not confirmed")
		}
		return false, err
	}
	s.history = append(s.history, types.StepSubmit)
	s.opened = false

	// the confirmation dialog is cosmetic
	m.tryClick(ctx, m.selectors.Dismiss)
	return true, nil
}

// unfollow clears the follow-company box the site ticks by default
func (m *Machine) unfollow(ctx context.Context, s *session) {
	for _, sel := range m.selectors.FollowCompany {
		if ok, err := m.page.Exists(ctx, sel); err != nil || !ok {
			continue
		}
		if err := m.page.SetChecked(ctx, sel, false); err != nil {
			s.logger.Warn("failed to clear follow-company box", zap.Error(err))
		}
		return
	}
}

// discard closes a half-finished application so the next listing starts clean.
func (m *Machine) discard(ctx context.Context, s *session) {
	if !s.opened {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if m.tryClick(ctx, m.selectors.Dismiss) {
		m.tryClick(ctx, m.selectors.DiscardConfirm)
	}
	s.opened = false
}

func (m *Machine) savePersist(ctx context.Context, s *session) {
	if m.persist == nil {
		return
	}
	if err := m.persist(ctx); err != nil {
		s.logger.Debug("opportunistic session persist failed", zap.Error(err))
	}
}

// outcome folds an error into the listing's terminal outcome
func (m *Machine) outcome(ctx context.Context, s *session, err error) types.ApplicationOutcome {
	kind := retry.KindOf(err)
	if kind == "" && (ctx.Err() != nil || errors.Is(err, context.Canceled)) {
		return types.Abandoned(s.ref, s.step, s.history)
	}
	switch kind {
	case types.ErrMissingAnswer:
		return types.Blocked(s.ref, err.Error(), s.history)
	case "":
		kind = types.ErrStepStuck
	}
	return types.Failed(s.ref, kind, err.Error(), s.history)
}

func (m *Machine) checkChallenge(ctx context.Context) error {
	if url, err := m.page.URL(ctx); err == nil {
		switch m.urls.Classify(url) {
		case site.SurfaceChallenge:
			return retry.Errorf(types.ErrChallengeDetected, "verification challenge at %s", url)
		case site.SurfaceLogin:
			return retry.Errorf(types.ErrChallengeDetected, "sent to login at %s", url)
		}
	}
	if m.anchor(m.selectors.Challenge)(ctx) {
		return retry.Errorf(types.ErrChallengeDetected, "verification challenge on page")
	}
	return nil
}

func (m *Machine) checkNavigation(ctx context.Context) error {
	if err := m.checkChallenge(ctx); err != nil {
		return err
	}
	url, err := m.page.URL(ctx)
	if err != nil {
		return nil
	}
	if !m.urls.SameSite(url) {
		return retry.Errorf(types.ErrUnexpectedNavigation, "left the site for %s", url)
	}
	return nil
}

func (m *Machine) click(ctx context.Context, name string, chain retry.Chain, anchor func(context.Context) bool) error {
	_, err := retry.Execute(ctx, m.runner, retry.Operation[struct{}]{
		Name:   name,
		Chain:  chain,
		Policy: m.opts.Click,
		Do: func(ctx context.Context, sel string) (struct{}, error) {
			return struct{}{}, m.page.Click(ctx, sel)
		},
		Anchor: anchor,
	})
	return err
}

// tryClick clicks the first present selector once, without retries
func (m *Machine) tryClick(ctx context.Context, chain retry.Chain) bool {
	timeout := m.opts.Click.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	for _, sel := range chain {
		if ok, err := m.page.Exists(ctx, sel); err == nil && ok {
			return m.page.Click(ctx, sel) == nil
		}
	}
	return false
}

func (m *Machine) waitAny(ctx context.Context, chain retry.Chain) error {
	var last error
	for _, sel := range chain {
		if last = m.page.WaitVisible(ctx, sel); last == nil {
			return nil
		}
	}
	return last
}

func (m *Machine) anchor(chain retry.Chain) func(context.Context) bool {
	return func(ctx context.Context) bool {
		for _, sel := range chain {
			if ok, err := m.page.Exists(ctx, sel); err == nil && ok {
				return true
			}
		}
		return false
	}
}

// stuck reclassifies an exhausted control as a step that cannot advance.
func stuck(err error) error {
	switch retry.KindOf(err) {
	case types.ErrElementNotFound, types.ErrTimeout:
		return retry.Wrap(types.ErrStepStuck, err, "could not advance step")
	default:
		return err
	}
}
