package jobpage

import (
	"testing"

	"github.com/jonathan/apply-agent/internal/site"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const openPosting = `<html><body>
<nav>Home Jobs Messaging</nav>
<div class="job-details-jobs-unified-top-card__job-title"><h1>  Senior   Go Engineer </h1></div>
<div class="job-details-jobs-unified-top-card__company-name"><a href="/company/acme">Acme</a></div>
<div class="job-details-jobs-unified-top-card__primary-description-container"><span>Berlin, Germany</span></div>
<div class="jobs-apply-button--top-card"><button class="jobs-apply-button" aria-label="Easy Apply to Senior Go Engineer">Easy Apply</button></div>
<div id="job-details">
  <h2>About the job</h2>
  <p>Build distributed systems in Go.</p>

  <p>Kubernetes experience preferred.</p>
  <script>track()</script>
</div>
</body></html>`

func TestParse_OpenPosting(t *testing.T) {
	d, err := Parse(openPosting, "4001", site.DefaultSelectors())
	require.NoError(t, err)

	assert.Equal(t, "4001", d.Job.ExternalID)
	assert.Equal(t, "Senior Go Engineer", d.Job.Title)
	assert.Equal(t, "Acme", d.Job.Company)
	assert.Equal(t, "Berlin, Germany", d.Job.Location)
	assert.Equal(t, "About the job\nBuild distributed systems in Go.\nKubernetes experience preferred.", d.Job.Description)
	assert.True(t, d.Status.QuickApply)
	assert.Empty(t, d.Status.SkipReason())
}

func TestParse_Status(t *testing.T) {
	tests := []struct {
		name   string
		html   string
		reason string
	}{
		{
			name:   "applied banner",
			html:   `<div class="post-apply-timeline__content">Application submitted</div><button class="jobs-apply-button">Easy Apply</button>`,
			reason: "already applied",
		},
		{
			name:   "applied button",
			html:   `<button class="jobs-apply-button" aria-label="Applied 3 days ago">Applied</button>`,
			reason: "already applied",
		},
		{
			name:   "closed",
			html:   `<div class="jobs-unavailable">No longer accepting applications</div>`,
			reason: "no longer accepting applications",
		},
		{
			name:   "external apply",
			html:   `<a class="jobs-apply-button--external" href="https://acme.example/careers">Apply</a>`,
			reason: "no quick apply",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse("<html><body>"+tt.html+"</body></html>", "1", site.DefaultSelectors())
			require.NoError(t, err)
			assert.Equal(t, tt.reason, d.Status.SkipReason())
		})
	}
}

func TestParse_DescriptionFallsBackToBody(t *testing.T) {
	d, err := Parse(`<html><body><p>Only text</p></body></html>`, "1", site.DefaultSelectors())
	require.NoError(t, err)
	assert.Equal(t, "Only text", d.Job.Description)
}

func TestCleanWhitespace(t *testing.T) {
	assert.Equal(t, "a\nb", CleanWhitespace("  a  \n\n\t\n b "))
	assert.Empty(t, CleanWhitespace(" \n "))
}
