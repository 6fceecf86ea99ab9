package apply

import (
	"strings"

	"github.com/jonathan/apply-agent/internal/browser/browsertest"
)

const jobURL = "https://www.linkedin.com/jobs/view/4001/"

const (
	nextBtn   = `<footer><button aria-label="Continue to next step">Next</button></footer>`
	reviewBtn = `<footer><button aria-label="Review your application">Review</button></footer>`
	submitBtn = `<footer><button aria-label="Submit application">Submit application</button></footer>`
)

const contactStep = `
<div><label for="email">Email address</label><input id="email" type="text" required value="ada@example.com"></div>
<div><label for="phone">Mobile phone number</label><input id="phone" type="text" required value=""></div>` + nextBtn

const questionsStep = `
<fieldset data-test-form-builder-radio-button-form-component="true">
  <legend><span aria-hidden="true">Will you require visa sponsorship?</span><span class="visually-hidden">Will you require visa sponsorship?</span></legend>
  <input type="radio" id="sp-yes" name="sponsor" value="Yes" required><label for="sp-yes">Yes</label>
  <input type="radio" id="sp-no" name="sponsor" value="No" required><label for="sp-no">No</label>
</fieldset>
<div><label for="auth">Are you legally authorized to work in Germany?</label>
  <select id="auth" required><option>Select an option</option><option value="Yes">Yes</option><option value="No">No</option></select></div>
<div><label for="years">How many years of Go experience do you have?</label><input id="years" type="text" required></div>` + nextBtn

const uploadStep = `
<div class="js-jobs-document-upload__container">
  <label for="upload-resume">Upload resume</label><input type="file" id="upload-resume" name="file">
</div>` + reviewBtn

const reviewStep = `
<h3>Review your application</h3>
<input type="checkbox" id="follow-company-checkbox" checked><label for="follow-company-checkbox">Follow Acme</label>` + submitBtn

const confirmation = `<div class="artdeco-modal" role="dialog"><button aria-label="Dismiss">x</button>
<div class="jobs-apply-confirmation">Your application was sent to Acme</div></div>`

func jobPage(extra string) string {
	return `<html><body>
<div class="job-details-jobs-unified-top-card__job-title"><h1>Go Engineer</h1></div>
<div class="job-details-jobs-unified-top-card__company-name"><a href="/company/acme">Acme</a></div>
<div class="jobs-apply-button--top-card"><button class="jobs-apply-button" aria-label="Easy Apply to Go Engineer">Easy Apply</button></div>
<div id="job-details"><p>We build Go services.</p></div>
` + extra + `</body></html>`
}

func modal(body string) string {
	return `<div class="jobs-easy-apply-modal" role="dialog"><button aria-label="Dismiss">x</button>` + body + `</div>`
}

// form simulates the site: the job page, a quick-apply modal walking through
// steps on every next/review click, and a confirmation after submit.
type form struct {
	page      *browsertest.Page
	steps     []string
	idx       int
	confirm   bool
	submitted bool
	dismissed bool
	onAdvance func(f *form)
}

func newForm(steps ...string) *form {
	f := &form{steps: steps, confirm: true}
	f.page = browsertest.New("about:blank", "")
	f.page.OnNavigate = func(p *browsertest.Page, _ string) error {
		p.SetHTML(jobPage(""))
		return nil
	}
	f.page.OnClick = func(p *browsertest.Page, sel string) error {
		switch {
		case strings.Contains(sel, "jobs-apply-button"):
			f.idx = 0
			p.SetHTML(jobPage(modal(f.steps[0])))
		case strings.Contains(sel, "Submit application"):
			f.submitted = true
			if f.confirm {
				p.SetHTML(jobPage(confirmation))
			}
		case strings.Contains(sel, "Continue to next step"), strings.Contains(sel, "Review your application"):
			if f.idx+1 < len(f.steps) {
				f.idx++
			}
			p.SetHTML(jobPage(modal(f.steps[f.idx])))
			if f.onAdvance != nil {
				f.onAdvance(f)
			}
		case strings.Contains(sel, "Dismiss"):
			f.dismissed = true
			p.SetHTML(jobPage(""))
		}
		return nil
	}
	return f
}
