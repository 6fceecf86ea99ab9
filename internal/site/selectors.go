// Package site holds the target job board's selector chains and URL patterns.
// Chains are ordered most-specific first; the first entry is the current markup
// and later entries cover older variants.
package site

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/apply-agent/internal/retry"
)

// Selectors are the selector chains the automation uses. Every chain is plain
// CSS so it works both in the browser and against goquery snapshots.
type Selectors struct {
	// login
	LoginUsername retry.Chain `json:"login_username"`
	LoginPassword retry.Chain `json:"login_password"`
	LoginSubmit   retry.Chain `json:"login_submit"`
	LoggedIn      retry.Chain `json:"logged_in"`
	Challenge     retry.Chain `json:"challenge"`

	// search results
	ResultsList  retry.Chain `json:"results_list"`
	ResultCard   retry.Chain `json:"result_card"`
	EndOfResults retry.Chain `json:"end_of_results"`

	// job detail
	JobTitle      retry.Chain `json:"job_title"`
	JobCompany    retry.Chain `json:"job_company"`
	JobLocation   retry.Chain `json:"job_location"`
	JobBody       retry.Chain `json:"job_body"`
	QuickApply    retry.Chain `json:"quick_apply"`
	AppliedBanner retry.Chain `json:"applied_banner"`
	AppliedButton retry.Chain `json:"applied_button"`
	JobClosed     retry.Chain `json:"job_closed"`

	// application modal
	Modal          retry.Chain `json:"modal"`
	NextButton     retry.Chain `json:"next_button"`
	ReviewButton   retry.Chain `json:"review_button"`
	SubmitButton   retry.Chain `json:"submit_button"`
	FollowCompany  retry.Chain `json:"follow_company"`
	InlineError    retry.Chain `json:"inline_error"`
	ResumeSelected retry.Chain `json:"resume_selected"`
	Confirmation   retry.Chain `json:"confirmation"`
	Dismiss        retry.Chain `json:"dismiss"`
	DiscardConfirm retry.Chain `json:"discard_confirm"`
}

// DefaultSelectors returns the built-in chains
func DefaultSelectors() Selectors {
	return Selectors{
		LoginUsername: retry.Chain{`input#username`, `input[name="session_key"]`, `input[autocomplete="username"]`},
		LoginPassword: retry.Chain{`input#password`, `input[name="session_password"]`, `input[type="password"]`},
		LoginSubmit:   retry.Chain{`button[type="submit"]`, `button[data-litms-control-urn="login-submit"]`},
		LoggedIn:      retry.Chain{`nav[aria-label="Primary"]`, `.global-nav`, `#global-nav`},
		Challenge:     retry.Chain{`#captcha-internal`, `form#email-pin-challenge`, `iframe[src*="challenge"]`},

		ResultsList: retry.Chain{
			`ul.semantic-search-results-list`,
			`.jobs-search-results-list`,
			`ul.scaffold-layout__list-container`,
		},
		ResultCard: retry.Chain{
			`ul.semantic-search-results-list > li`,
			`li[data-occludable-job-id]`,
			`div.job-card-container[data-job-id]`,
		},
		EndOfResults: retry.Chain{
			`.jobs-search-no-results-banner`,
			`.artdeco-pagination__indicator--number.active:last-child`,
			`.jobs-search-results-list__no-more-results`,
		},

		JobTitle:    retry.Chain{`.job-details-jobs-unified-top-card__job-title h1`, `h1.t-24`, `h1`},
		JobCompany:  retry.Chain{`.job-details-jobs-unified-top-card__company-name a`, `.job-details-jobs-unified-top-card__company-name`, `.jobs-unified-top-card__company-name`},
		JobLocation: retry.Chain{`.job-details-jobs-unified-top-card__primary-description-container span`, `.jobs-unified-top-card__bullet`},
		JobBody:     retry.Chain{`#job-details`, `.jobs-description__content`, `.jobs-box__html-content`},
		QuickApply: retry.Chain{
			`div.jobs-apply-button--top-card button.jobs-apply-button`,
			`button[data-test-id="apply-button"]`,
			`button[aria-label*="Easy Apply"]`,
			`button.jobs-apply-button`,
		},
		AppliedBanner: retry.Chain{`div.post-apply-timeline__content`, `.artdeco-inline-feedback--success`},
		AppliedButton: retry.Chain{`button.jobs-apply-button[aria-label*="Applied"]`},
		JobClosed:     retry.Chain{`div.jobs-unavailable`, `.jobs-details-top-card__apply-error`},

		Modal: retry.Chain{
			`div.jobs-easy-apply-modal[role="dialog"]`,
			`div.artdeco-modal[role="dialog"]`,
			`div[role="dialog"]`,
		},
		NextButton: retry.Chain{
			`button[aria-label="Continue to next step"]`,
			`button[data-easy-apply-next-button]`,
			`footer button.artdeco-button--primary[data-control-name="continue_unify"]`,
		},
		ReviewButton: retry.Chain{
			`button[aria-label="Review your application"]`,
			`button[data-live-test-easy-apply-review-button]`,
		},
		SubmitButton: retry.Chain{
			`button[aria-label="Submit application"]`,
			`button[data-live-test-easy-apply-submit-button]`,
			`button[data-test-id="submit-button"]`,
		},
		FollowCompany:  retry.Chain{`input#follow-company-checkbox`, `input[id*="follow-company"]`},
		InlineError:    retry.Chain{`.artdeco-inline-feedback--error`, `[data-test-form-element-error-messages]`},
		ResumeSelected: retry.Chain{`.jobs-document-upload-redesign-card__container--selected`, `.jobs-resume-picker__resume--selected`},
		Confirmation: retry.Chain{
			`div.jobs-apply-confirmation`,
			`a[aria-label="Download your submitted resume"]`,
			`button.jobs-apply-button[aria-label*="Applied"]`,
			`h3.jpac-modal-header`,
		},
		Dismiss:        retry.Chain{`button[aria-label="Dismiss"]`, `button.artdeco-modal__dismiss`},
		DiscardConfirm: retry.Chain{`button[data-control-name="discard_application_confirm_btn"]`, `button[data-test-dialog-primary-btn]`},
	}
}

// LoadSelectors reads a JSON override file. Chains present in the file replace
// the defaults; absent chains keep them.
func LoadSelectors(path string) (Selectors, error) {
	s := DefaultSelectors()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("failed to read selectors file %s: %w", path, err)
	}
	var override Selectors
	if err := json.Unmarshal(data, &override); err != nil {
		return s, fmt.Errorf("failed to parse selectors file %s: %w", path, err)
	}
	s.merge(override)
	return s, nil
}

func (s *Selectors) merge(o Selectors) {
	pairs := []struct {
		dst *retry.Chain
		src retry.Chain
	}{
		{&s.LoginUsername, o.LoginUsername}, {&s.LoginPassword, o.LoginPassword},
		{&s.LoginSubmit, o.LoginSubmit}, {&s.LoggedIn, o.LoggedIn}, {&s.Challenge, o.Challenge},
		{&s.ResultsList, o.ResultsList}, {&s.ResultCard, o.ResultCard}, {&s.EndOfResults, o.EndOfResults},
		{&s.JobTitle, o.JobTitle}, {&s.JobCompany, o.JobCompany}, {&s.JobLocation, o.JobLocation},
		{&s.JobBody, o.JobBody}, {&s.QuickApply, o.QuickApply}, {&s.AppliedBanner, o.AppliedBanner},
		{&s.AppliedButton, o.AppliedButton}, {&s.JobClosed, o.JobClosed},
		{&s.Modal, o.Modal}, {&s.NextButton, o.NextButton}, {&s.ReviewButton, o.ReviewButton},
		{&s.SubmitButton, o.SubmitButton}, {&s.FollowCompany, o.FollowCompany}, {&s.InlineError, o.InlineError},
		{&s.ResumeSelected, o.ResumeSelected}, {&s.Confirmation, o.Confirmation},
		{&s.Dismiss, o.Dismiss}, {&s.DiscardConfirm, o.DiscardConfirm},
	}
	for _, p := range pairs {
		if len(p.src) > 0 {
			*p.dst = p.src
		}
	}
}
