package answers

import (
	"context"
	"strings"
	"unicode"

	"github.com/jonathan/apply-agent/internal/types"
)

// Rule answers any question whose label contains Keyword
type Rule struct {
	Keyword string `json:"keyword" validate:"required"`
	Answer  string `json:"answer" validate:"required"`
}

// Defaults applies keyword rules in order. There is no catch-all rule.
type Defaults []Rule

// DefaultRules returns the stock rules for the usual screening questions
func DefaultRules() Defaults {
	return Defaults{
		{Keyword: "sponsorship", Answer: "No"},
		{Keyword: "authorized to work", Answer: "Yes"},
		{Keyword: "legally authorized", Answer: "Yes"},
		{Keyword: "work onsite", Answer: "Yes"},
		{Keyword: "work in an onsite", Answer: "Yes"},
		{Keyword: "relocate", Answer: "Yes"},
		{Keyword: "background check", Answer: "Yes"},
		{Keyword: "convicted", Answer: "No"},
	}
}

// Answer implements Source
func (d Defaults) Answer(_ context.Context, q Question, _ types.JobContext) (string, bool, error) {
	label := Normalize(q.Label)
	for _, r := range d {
		if strings.Contains(label, strings.ToLower(r.Keyword)) {
			return r.Answer, true, nil
		}
	}
	return "", false, nil
}

// SkipList matches labels of fields the site pre-fills from the profile
type SkipList []string

// DefaultSkipList returns the stock pre-filled labels
func DefaultSkipList() SkipList {
	return SkipList{
		"email address",
		"phone country code",
		"mobile phone number",
		"first name",
		"last name",
		"city",
		"address",
	}
}

// Matches reports whether label names a pre-filled field. Patterns match
// whole words, so "city" does not match "ethnicity".
func (s SkipList) Matches(label string) bool {
	padded := " " + words(label) + " "
	for _, pattern := range s {
		if p := words(pattern); p != "" && strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

func words(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}
