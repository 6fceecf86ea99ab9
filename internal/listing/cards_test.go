package listing

import (
	"testing"

	"github.com/jonathan/apply-agent/internal/retry"
	"github.com/jonathan/apply-agent/internal/site"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardIDs(t *testing.T) {
	cards := site.DefaultSelectors().ResultCard

	tests := []struct {
		name string
		html string
		want []string
	}{
		{
			name: "occludable ids",
			html: `<ul class="semantic-search-results-list">
				<li data-occludable-job-id="101"></li>
				<li data-occludable-job-id="102"></li>
			</ul>`,
			want: []string{"101", "102"},
		},
		{
			name: "id on inner wrapper",
			html: `<ul class="semantic-search-results-list">
				<li><div data-job-id="201"></div></li>
			</ul>`,
			want: []string{"201"},
		},
		{
			name: "urn value",
			html: `<ul class="semantic-search-results-list">
				<li data-entity-urn="urn:li:fsd_jobPosting:301"></li>
			</ul>`,
			want: []string{"301"},
		},
		{
			name: "href fallback",
			html: `<ul class="semantic-search-results-list">
				<li><a href="/jobs/view/401/?refId=abc">Engineer</a></li>
			</ul>`,
			want: []string{"401"},
		},
		{
			name: "placeholders and repeats skipped",
			html: `<ul class="semantic-search-results-list">
				<li></li>
				<li data-occludable-job-id="501"></li>
				<li data-occludable-job-id="501"></li>
				<li data-occludable-job-id="not-a-number"></li>
			</ul>`,
			want: []string{"501"},
		},
		{
			name: "no cards",
			html: `<div>nothing here</div>`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CardIDs(tt.html, cards)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCardIDs_FallsBackAcrossChain(t *testing.T) {
	html := `<div class="job-card-container" data-job-id="9"></div>`
	got, err := CardIDs(html, retry.Chain{`li.card`, `div.job-card-container[data-job-id]`})
	require.NoError(t, err)
	assert.Equal(t, []string{"9"}, got)
}
