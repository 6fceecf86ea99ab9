package apply

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jonathan/apply-agent/internal/answers"
	"github.com/jonathan/apply-agent/internal/behavior"
	"github.com/jonathan/apply-agent/internal/browser/browsertest"
	"github.com/jonathan/apply-agent/internal/retry"
	"github.com/jonathan/apply-agent/internal/site"
	"github.com/jonathan/apply-agent/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(context.Context, time.Duration) error { return nil }

type fakeRenderer struct {
	calls int
	path  string
	err   error
}

func (r *fakeRenderer) Render(_ context.Context, _ types.JobContext) (string, error) {
	r.calls++
	return r.path, r.err
}

type failingAnswerer struct{}

type fixedAnswerer string

func (a fixedAnswerer) Answer(context.Context, answers.Question, types.JobContext) (string, bool, error) {
	return string(a), true, nil
}

func (failingAnswerer) Answer(context.Context, answers.Question, types.JobContext) (string, bool, error) {
	return "", false, errors.New("llm unavailable")
}

func testAnswers() *answers.Chain {
	bank := answers.NewBank("")
	bank.Remember("How many years of Go experience do you have?", "7")
	return answers.NewChain().Add(bank, false).Add(answers.DefaultRules(), false)
}

type harness struct {
	form     *form
	machine  *Machine
	persists int
}

func newHarness(t *testing.T, f *form, configure ...func(*Config)) *harness {
	t.Helper()
	h := &harness{form: f}

	pacerOpts := behavior.DefaultPacerOptions()
	pacerOpts.Sleep = noSleep
	opts := DefaultOptions()
	opts.ResumePath = "/data/resume.pdf"
	opts.Click.MaxAttempts = 2
	opts.Wait.MaxAttempts = 2

	cfg := Config{
		Page:      f.page,
		Selectors: site.DefaultSelectors(),
		URLs:      site.DefaultURLs("https://www.linkedin.com"),
		Pacer:     behavior.NewPacer(behavior.Generate(behavior.NewRand(), behavior.DefaultBounds()), nil, pacerOpts),
		Runner:    retry.NewRunner(nil, retry.WithSleep(noSleep)),
		Answers:   testAnswers(),
		Persist: func(context.Context) error {
			h.persists++
			return nil
		},
		Options: opts,
	}
	for _, c := range configure {
		c(&cfg)
	}
	h.machine = NewMachine(cfg)
	return h
}

func (h *harness) apply(ctx context.Context) types.ApplicationOutcome {
	return h.machine.Apply(ctx, types.JobListingRef{ExternalID: "4001", SourceURL: jobURL, DiscoveredAtOrdinal: 1})
}

func TestApply_Submitted(t *testing.T) {
	f := newForm(contactStep, questionsStep, uploadStep, reviewStep)
	h := newHarness(t, f)

	out := h.apply(context.Background())

	require.Equal(t, types.ResultSubmitted, out.Result, out.Reason)
	assert.Equal(t, []types.StepKind{
		types.StepText, types.StepRadio, types.StepFileUpload, types.StepReview, types.StepSubmit,
	}, out.StepHistory)
	assert.Equal(t, "Go Engineer", out.Title)
	assert.Equal(t, "Acme", out.Company)
	assert.True(t, f.submitted)

	page := f.page
	assert.Equal(t, []string{jobURL}, page.Navigations)
	assert.Empty(t, page.Typed[`input[id="phone"]`], "pre-filled fields are skipped")
	assert.Equal(t, "7", page.Typed[`input[id="years"]`])
	assert.True(t, page.Checked[`input[id="sp-no"]`])
	assert.NotContains(t, page.Checked, `input[id="sp-yes"]`)
	assert.Equal(t, "Yes", page.Selected[`select[id="auth"]`])
	assert.Equal(t, "/data/resume.pdf", page.Uploads[`input[id="upload-resume"]`])

	follow, ok := page.Checked[`input#follow-company-checkbox`]
	require.True(t, ok, "follow-company box was touched")
	assert.False(t, follow)

	assert.Equal(t, 4, h.persists)
}

func TestApply_MissingAnswerBlocks(t *testing.T) {
	salary := `<div><label for="salary">What is your expected salary?</label><input id="salary" required></div>` + nextBtn
	f := newForm(contactStep, salary)
	h := newHarness(t, f)

	out := h.apply(context.Background())

	assert.Equal(t, types.ResultBlocked, out.Result)
	assert.Equal(t, types.ErrMissingAnswer, out.ErrorKind)
	assert.Contains(t, out.Reason, "expected salary")
	assert.Equal(t, []types.StepKind{types.StepText}, out.StepHistory)
	assert.Equal(t, 1, f.idx, "never advanced past the blocked step")
	assert.True(t, f.dismissed, "half-finished application is discarded")
	assert.False(t, f.submitted)
}

func TestApply_OptionalFieldWithoutAnswer(t *testing.T) {
	optional := `<div><label for="site">Personal website</label><input id="site"></div>` + reviewBtn
	f := newForm(optional, reviewStep)
	h := newHarness(t, f)

	out := h.apply(context.Background())

	require.Equal(t, types.ResultSubmitted, out.Result, out.Reason)
	assert.NotContains(t, f.page.Typed, `input[id="site"]`)
}

func TestApply_AnswerLookupFailure(t *testing.T) {
	f := newForm(questionsStep, reviewStep)
	h := newHarness(t, f, func(c *Config) { c.Answers = failingAnswerer{} })

	out := h.apply(context.Background())

	assert.Equal(t, types.ResultBlocked, out.Result)
	assert.Empty(t, out.StepHistory)
}

func TestApply_OptionMismatchBlocks(t *testing.T) {
	f := newForm(questionsStep, reviewStep)
	h := newHarness(t, f, func(c *Config) {
		c.Answers = fixedAnswerer("Maybe")
	})

	out := h.apply(context.Background())

	assert.Equal(t, types.ResultBlocked, out.Result)
	assert.Contains(t, out.Reason, "Maybe")
}

func TestApply_TooManySteps(t *testing.T) {
	var steps []string
	for i := 0; i < 20; i++ {
		steps = append(steps, fmt.Sprintf(`<label for="q%d">Note %d</label><input id="q%d">`, i, i, i)+nextBtn)
	}
	f := newForm(steps...)
	h := newHarness(t, f, func(c *Config) { c.Options.MaxSteps = 10 })

	out := h.apply(context.Background())

	assert.Equal(t, types.ResultFailed, out.Result)
	assert.Equal(t, types.ErrTooManySteps, out.ErrorKind)
	assert.Len(t, out.StepHistory, 10)
	assert.True(t, f.dismissed)
}

func TestApply_StuckStep(t *testing.T) {
	stuck := `<div><label for="years">Years of experience</label><input id="years" required value="abc"></div>
<div class="artdeco-inline-feedback--error">Enter a whole number</div>` + nextBtn
	f := newForm(stuck)
	h := newHarness(t, f)

	out := h.apply(context.Background())

	assert.Equal(t, types.ResultFailed, out.Result)
	assert.Equal(t, types.ErrStepStuck, out.ErrorKind)
	assert.Contains(t, out.Reason, "Enter a whole number")
	assert.Len(t, out.StepHistory, 2)
}

func TestApply_NextControlUnresponsive(t *testing.T) {
	f := newForm(contactStep)
	h := newHarness(t, f)
	f.page.Fail[`click button[aria-label="Continue to next step"]`] = context.DeadlineExceeded

	out := h.apply(context.Background())

	assert.Equal(t, types.ResultFailed, out.Result)
	assert.Equal(t, types.ErrStepStuck, out.ErrorKind)
}

func TestApply_UnrecognizedStep(t *testing.T) {
	f := newForm(contactStep, `<p>Something new</p>`)
	h := newHarness(t, f)

	out := h.apply(context.Background())

	assert.Equal(t, types.ResultFailed, out.Result)
	assert.Equal(t, types.ErrUnrecognizedStep, out.ErrorKind)
	assert.Equal(t, []types.StepKind{types.StepText}, out.StepHistory)
}

func TestApply_Navigation(t *testing.T) {
	tests := []struct {
		name string
		url  string
		kind types.ErrorKind
	}{
		{"challenge", "https://www.linkedin.com/checkpoint/challenge/AgE", types.ErrChallengeDetected},
		{"login wall", "https://www.linkedin.com/authwall?trk=x", types.ErrChallengeDetected},
		{"external site", "https://careers.acme.example/apply", types.ErrUnexpectedNavigation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newForm(contactStep, questionsStep, reviewStep)
			f.onAdvance = func(f *form) { f.page.SetURL(tt.url) }
			h := newHarness(t, f)

			out := h.apply(context.Background())

			assert.Equal(t, types.ResultFailed, out.Result)
			assert.Equal(t, tt.kind, out.ErrorKind)
			assert.False(t, f.submitted)
		})
	}
}

func TestApply_ChallengeOnPage(t *testing.T) {
	f := newForm(contactStep)
	f.page.OnNavigate = func(p *browsertest.Page, _ string) error {
		p.SetHTML(jobPage(`<div id="captcha-internal"></div>`))
		return nil
	}
	h := newHarness(t, f)

	out := h.apply(context.Background())

	assert.Equal(t, types.ErrChallengeDetected, out.ErrorKind)
	assert.Empty(t, f.page.Clicks)
}

func TestApply_CancelledBetweenSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newForm(contactStep, questionsStep, reviewStep)
	f.onAdvance = func(*form) { cancel() }
	h := newHarness(t, f)

	out := h.apply(ctx)

	assert.Equal(t, types.ResultAbandoned, out.Result)
	assert.Equal(t, 1, out.AbandonedAtStep)
	assert.Equal(t, []types.StepKind{types.StepText}, out.StepHistory)
	assert.True(t, f.dismissed)
	assert.Equal(t, 1, h.persists, "the interrupted step still completed")
}

func TestApply_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := newForm(contactStep)
	h := newHarness(t, f)

	out := h.apply(ctx)

	assert.Equal(t, types.ResultAbandoned, out.Result)
	assert.Empty(t, f.page.Navigations)
}

func TestApply_SubmissionNotConfirmed(t *testing.T) {
	f := newForm(contactStep, reviewStep)
	f.confirm = false
	h := newHarness(t, f)

	out := h.apply(context.Background())

	assert.Equal(t, types.ResultFailed, out.Result)
	assert.Equal(t, types.ErrStepStuck, out.ErrorKind)
	assert.Contains(t, out.Reason, "submission not confirmed")
	assert.True(t, f.submitted)
}

func TestApply_ResumeRendering(t *testing.T) {
	secondUpload := `<div><label for="cv-2">Upload CV</label><input type="file" id="cv-2"></div>` + reviewBtn

	tests := []struct {
		name     string
		renderer *fakeRenderer
		want     string
	}{
		{"rendered once", &fakeRenderer{path: "/tmp/acme_4001.pdf"}, "/tmp/acme_4001.pdf"},
		{"falls back to static file", &fakeRenderer{err: errors.New("pdflatex missing")}, "/data/resume.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := strings.Replace(uploadStep, reviewBtn, nextBtn, 1)
			f := newForm(first, secondUpload, reviewStep)
			h := newHarness(t, f, func(c *Config) { c.Renderer = tt.renderer })

			out := h.apply(context.Background())

			require.Equal(t, types.ResultSubmitted, out.Result, out.Reason)
			assert.Equal(t, 1, tt.renderer.calls)
			assert.Equal(t, tt.want, f.page.Uploads[`input[id="upload-resume"]`])
			assert.Equal(t, tt.want, f.page.Uploads[`input[id="cv-2"]`])
		})
	}
}

func TestApply_ResumeAlreadySelected(t *testing.T) {
	selected := `<div class="jobs-document-upload-redesign-card__container--selected">resume.pdf</div>` + uploadStep
	f := newForm(selected, reviewStep)
	r := &fakeRenderer{path: "/tmp/x.pdf"}
	h := newHarness(t, f, func(c *Config) { c.Renderer = r })

	out := h.apply(context.Background())

	require.Equal(t, types.ResultSubmitted, out.Result, out.Reason)
	assert.Empty(t, f.page.Uploads)
	assert.Zero(t, r.calls)
}

func TestApply_Skipped(t *testing.T) {
	tests := []struct {
		name   string
		html   string
		reason string
	}{
		{
			name:   "already applied",
			html:   strings.Replace(jobPage(""), "Easy Apply to Go Engineer", "Applied to Go Engineer", 1),
			reason: "already applied",
		},
		{
			name:   "closed",
			html:   jobPage(`<div class="jobs-unavailable">No longer accepting applications</div>`),
			reason: "no longer accepting applications",
		},
		{
			name: "external apply only",
			html: `<html><body><div class="job-details-jobs-unified-top-card__job-title"><h1>Go Engineer</h1></div>
<a class="jobs-apply-button--external" href="https://acme.example">Apply</a></body></html>`,
			reason: "no quick apply",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newForm(contactStep)
			f.page.OnNavigate = func(p *browsertest.Page, _ string) error {
				p.SetHTML(tt.html)
				return nil
			}
			h := newHarness(t, f)

			out := h.apply(context.Background())

			assert.Equal(t, types.ResultSkipped, out.Result)
			assert.Equal(t, tt.reason, out.Reason)
			assert.Empty(t, f.page.Clicks)
		})
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		in     string
		want   bool
		wantOK bool
	}{
		{"Yes", true, true},
		{"I agree", true, true},
		{"no.", false, true},
		{"perhaps", false, false},
	}
	for _, tt := range tests {
		got, ok := truthy(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
	}
}

func TestIsResumeField(t *testing.T) {
	assert.True(t, isResumeField(types.FieldBinding{Label: "Upload resume"}))
	assert.True(t, isResumeField(types.FieldBinding{Selector: `input[id="cv-upload"]`}))
	assert.False(t, isResumeField(types.FieldBinding{Label: "Cover letter"}))
}
