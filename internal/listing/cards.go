package listing

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/apply-agent/internal/retry"
)

var jobViewPattern = regexp.MustCompile(`/jobs/view/(\d+)`)

var idAttributes = []string{"data-occludable-job-id", "data-job-id", "data-entity-urn"}

// CardIDs returns the external ids of the listing cards rendered in html, in
// document order and without repeats. The first card selector that matches
// anything wins. Cards without a recognizable id are ignored; virtualized
// lists render placeholders like that before the card scrolls into view.
func CardIDs(html string, cards retry.Chain) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &ExtractionError{Message: "failed to parse results HTML", Cause: err}
	}

	var found *goquery.Selection
	for _, sel := range cards {
		if s := doc.Find(sel); s.Length() > 0 {
			found = s
			break
		}
	}
	if found == nil {
		return nil, nil
	}

	seen := make(map[string]bool)
	ids := make([]string, 0, found.Length())
	found.Each(func(_ int, card *goquery.Selection) {
		id := cardID(card)
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	})
	return ids, nil
}

func cardID(card *goquery.Selection) string {
	for _, attr := range idAttributes {
		// the attribute may sit on the card or on a wrapper inside it
		v, ok := card.Attr(attr)
		if !ok {
			v, ok = card.Find("[" + attr + "]").First().Attr(attr)
		}
		if ok {
			if id := numericTail(v); id != "" {
				return id
			}
		}
	}

	href, ok := card.Find(`a[href*="/jobs/view/"]`).First().Attr("href")
	if !ok {
		return ""
	}
	if m := jobViewPattern.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	return ""
}

// numericTail extracts the id from values like "4012345678" or
// "urn:li:fsd_jobPosting:4012345678".
func numericTail(v string) string {
	v = strings.TrimSpace(v)
	if i := strings.LastIndex(v, ":"); i >= 0 {
		v = v[i+1:]
	}
	if v == "" {
		return ""
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return v
}
