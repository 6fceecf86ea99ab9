package types

// JobListingRef identifies a job posting discovered by the listing scanner.
// ExternalID is the dedup key across a run.
type JobListingRef struct {
	ExternalID          string `json:"external_id"`
	SourceURL           string `json:"source_url"`
	DiscoveredAtOrdinal int    `json:"discovered_at_ordinal"`
}

// JobContext is what the answer sources know about the posting being applied to
type JobContext struct {
	ExternalID  string `json:"external_id"`
	Title       string `json:"title,omitempty"`
	Company     string `json:"company,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

// SeenSet is the append-only set of listing ids already yielded in a run.
// It is used from the orchestrator's single flow only.
type SeenSet struct {
	ids map[string]struct{}
}

// NewSeenSet creates an empty set
func NewSeenSet() *SeenSet {
	return &SeenSet{ids: make(map[string]struct{})}
}

// Add records id and reports whether it was new.
func (s *SeenSet) Add(id string) bool {
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Has reports whether id was recorded.
func (s *SeenSet) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of recorded ids.
func (s *SeenSet) Len() int {
	return len(s.ids)
}
