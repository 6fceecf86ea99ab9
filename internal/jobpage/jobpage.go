// Package jobpage reads a job detail page snapshot: the posting text handed to
// answer sources and the flags that decide whether to apply at all.
package jobpage

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/apply-agent/internal/retry"
	"github.com/jonathan/apply-agent/internal/site"
	"github.com/jonathan/apply-agent/internal/types"
)

// Status is what the detail page says about applying
type Status struct {
	Applied    bool
	Closed     bool
	QuickApply bool
}

// SkipReason returns why the listing should not be applied to, or "" if it should.
func (s Status) SkipReason() string {
	switch {
	case s.Applied:
		return "already applied"
	case s.Closed:
		return "no longer accepting applications"
	case !s.QuickApply:
		return "no quick apply"
	default:
		return ""
	}
}

// Details is the parsed detail page
type Details struct {
	Job    types.JobContext
	Status Status
}

// noise is stripped before the description text is read
var noise = []string{
	"nav", "footer", "header", "script", "style", "noscript",
	"form", "button", ".jobs-apply-button--top-card", ".artdeco-modal",
}

// Parse extracts the job context and status flags from a detail page snapshot.
func Parse(html, externalID string, sel site.Selectors) (Details, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Details{}, fmt.Errorf("failed to parse job page HTML: %w", err)
	}

	d := Details{
		Job: types.JobContext{
			ExternalID: externalID,
			Title:      firstText(doc, sel.JobTitle),
			Company:    firstText(doc, sel.JobCompany),
			Location:   firstText(doc, sel.JobLocation),
		},
		Status: Status{
			Applied:    matches(doc, sel.AppliedBanner) || matches(doc, sel.AppliedButton),
			Closed:     matches(doc, sel.JobClosed),
			QuickApply: matches(doc, sel.QuickApply),
		},
	}

	// the apply button may still render on an applied posting, relabelled
	if d.Status.Applied {
		d.Status.QuickApply = false
	}

	doc.Find(strings.Join(noise, ", ")).Remove()
	body := first(doc, sel.JobBody)
	if body == nil {
		body = doc.Find("body")
	}
	d.Job.Description = CleanWhitespace(body.Text())
	return d, nil
}

func first(doc *goquery.Document, chain retry.Chain) *goquery.Selection {
	for _, s := range chain {
		if found := doc.Find(s); found.Length() > 0 {
			return found.First()
		}
	}
	return nil
}

func firstText(doc *goquery.Document, chain retry.Chain) string {
	if s := first(doc, chain); s != nil {
		return strings.Join(strings.Fields(s.Text()), " ")
	}
	return ""
}

func matches(doc *goquery.Document, chain retry.Chain) bool {
	return first(doc, chain) != nil
}

// CleanWhitespace trims every line and drops the empty ones.
func CleanWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
