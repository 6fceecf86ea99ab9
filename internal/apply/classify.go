package apply

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/apply-agent/internal/answers"
	"github.com/jonathan/apply-agent/internal/retry"
	"github.com/jonathan/apply-agent/internal/site"
	"github.com/jonathan/apply-agent/internal/types"
)

// placeholderOption is the dropdown entry shown before a choice is made
const placeholderOption = "select an option"

var textInputTypes = map[string]bool{
	"": true, "text": true, "email": true, "tel": true, "number": true, "url": true, "search": true,
}

var ignoredInputTypes = map[string]bool{
	"hidden": true, "submit": true, "button": true, "reset": true, "image": true,
}

// Classify derives the step descriptor from a snapshot of the application
// modal. Form state must already be reflected in attributes (value, checked,
// selected), as browser.Page.Snapshot does.
func Classify(html string, sel site.Selectors) (types.StepDescriptor, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return types.StepDescriptor{Kind: types.StepUnknown}, retry.Wrap(types.ErrUnrecognizedStep, err, "failed to parse step HTML")
	}

	d := types.StepDescriptor{
		Action:         footerAction(doc, sel),
		ResumeSelected: matchesAny(doc, sel.ResumeSelected),
		Errors:         texts(doc, sel.InlineError),
	}

	unsupported := false
	radios := make(map[string]int)
	doc.Find("input, select, textarea").Each(func(_ int, s *goquery.Selection) {
		if isAny(s, sel.FollowCompany) {
			return
		}
		tag := goquery.NodeName(s)
		typ := strings.ToLower(strings.TrimSpace(s.AttrOr("type", "")))

		switch {
		case tag == "select":
			d.FieldBindings = appendBinding(d.FieldBindings, dropdownBinding(doc, s), &unsupported, s)
		case tag == "textarea":
			d.FieldBindings = appendBinding(d.FieldBindings, textBinding(doc, s, s.Text()), &unsupported, s)
		case typ == "radio":
			addRadio(doc, s, &d, radios, &unsupported)
		case typ == "checkbox":
			b := baseBinding(doc, s, types.StepCheckbox)
			if _, checked := s.Attr("checked"); checked {
				b.Value = "true"
			}
			d.FieldBindings = appendBinding(d.FieldBindings, b, &unsupported, s)
		case typ == "file":
			b := baseBinding(doc, s, types.StepFileUpload)
			b.Value = s.AttrOr("data-files", "")
			d.FieldBindings = appendBinding(d.FieldBindings, b, &unsupported, s)
		case textInputTypes[typ]:
			d.FieldBindings = appendBinding(d.FieldBindings, textBinding(doc, s, s.AttrOr("value", "")), &unsupported, s)
		case ignoredInputTypes[typ]:
		default:
			if isRequired(s, "") {
				unsupported = true
			}
		}
	})

	d.Kind = stepKind(d, unsupported)
	return d, nil
}

// appendBinding drops controls that cannot be addressed by a selector. A
// required one makes the whole step unsupported.
func appendBinding(list []types.FieldBinding, b types.FieldBinding, unsupported *bool, s *goquery.Selection) []types.FieldBinding {
	if b.Selector == "" {
		if b.Required || isRequired(s, "") {
			*unsupported = true
		}
		return list
	}
	return append(list, b)
}

func stepKind(d types.StepDescriptor, unsupported bool) types.StepKind {
	if d.Action == types.ActionNone || unsupported {
		return types.StepUnknown
	}
	if len(d.FieldBindings) == 0 {
		return types.StepReview
	}
	if d.Action == types.ActionSubmit {
		return types.StepSubmit
	}

	counts := make(map[types.StepKind]int)
	var order []types.StepKind
	for _, b := range d.FieldBindings {
		if b.Kind == types.StepFileUpload {
			return types.StepFileUpload
		}
		if counts[b.Kind] == 0 {
			order = append(order, b.Kind)
		}
		counts[b.Kind]++
	}
	best := order[0]
	for _, k := range order[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return best
}

func footerAction(doc *goquery.Document, sel site.Selectors) types.StepAction {
	switch {
	case matchesAny(doc, sel.SubmitButton):
		return types.ActionSubmit
	case matchesAny(doc, sel.ReviewButton):
		return types.ActionReview
	case matchesAny(doc, sel.NextButton):
		return types.ActionNext
	default:
		return types.ActionNone
	}
}

func baseBinding(doc *goquery.Document, s *goquery.Selection, kind types.StepKind) types.FieldBinding {
	label := labelFor(doc, s)
	return types.FieldBinding{
		Selector: selectorFor(s),
		Label:    label,
		Kind:     kind,
		Required: isRequired(s, label),
	}
}

func textBinding(doc *goquery.Document, s *goquery.Selection, value string) types.FieldBinding {
	b := baseBinding(doc, s, types.StepText)
	b.Value = strings.TrimSpace(value)
	return b
}

func dropdownBinding(doc *goquery.Document, s *goquery.Selection) types.FieldBinding {
	b := baseBinding(doc, s, types.StepDropdown)
	s.Find("option").Each(func(_ int, o *goquery.Selection) {
		text := collapse(o.Text())
		value := o.AttrOr("value", text)
		if value == "" || answers.Normalize(text) == placeholderOption {
			return
		}
		b.Options = append(b.Options, types.Option{Label: text, Value: value})
		if _, selected := o.Attr("selected"); selected {
			b.Value = value
		}
	})
	return b
}

func addRadio(doc *goquery.Document, s *goquery.Selection, d *types.StepDescriptor, groups map[string]int, unsupported *bool) {
	group := s.AttrOr("name", "")
	if group == "" {
		if isRequired(s, "") {
			*unsupported = true
		}
		return
	}

	idx, ok := groups[group]
	if !ok {
		fieldset := s.Closest("fieldset")
		label := collapse(labelText(fieldset.Find("legend").First()))
		if label == "" {
			label = group
		}
		required := isRequired(fieldset, label)
		if !required {
			fieldset.Find(`input[type="radio"]`).EachWithBreak(func(_ int, r *goquery.Selection) bool {
				required = isRequired(r, "")
				return !required
			})
		}
		d.FieldBindings = append(d.FieldBindings, types.FieldBinding{
			Selector: `input[name=` + cssQuote(group) + `]`,
			Label:    label,
			Kind:     types.StepRadio,
			Required: required,
		})
		idx = len(d.FieldBindings) - 1
		groups[group] = idx
	}

	value := s.AttrOr("value", "")
	optLabel := labelFor(doc, s)
	if optLabel == "" {
		optLabel = value
	}
	optSel := selectorFor(s)
	if id := s.AttrOr("id", ""); id == "" {
		optSel = `input[name=` + cssQuote(group) + `][value=` + cssQuote(value) + `]`
	}

	b := &d.FieldBindings[idx]
	b.Options = append(b.Options, types.Option{Label: optLabel, Value: value, Selector: optSel})
	if _, checked := s.Attr("checked"); checked {
		b.Value = value
	}
}

func selectorFor(s *goquery.Selection) string {
	tag := goquery.NodeName(s)
	if id := s.AttrOr("id", ""); id != "" {
		return tag + `[id=` + cssQuote(id) + `]`
	}
	if name := s.AttrOr("name", ""); name != "" {
		return tag + `[name=` + cssQuote(name) + `]`
	}
	return ""
}

func labelFor(doc *goquery.Document, s *goquery.Selection) string {
	if id := s.AttrOr("id", ""); id != "" {
		if l := doc.Find(`label[for=` + cssQuote(id) + `]`).First(); l.Length() > 0 {
			if text := collapse(labelText(l)); text != "" {
				return text
			}
		}
	}
	if aria := collapse(s.AttrOr("aria-label", "")); aria != "" {
		return aria
	}
	if l := s.Closest("label"); l.Length() > 0 {
		return collapse(labelText(l))
	}
	container := s.ParentsFiltered("div, fieldset").First()
	return collapse(labelText(container.Find("label, legend").First()))
}

// labelText prefers the visible copy when the site renders a label twice for
// screen readers.
func labelText(l *goquery.Selection) string {
	if visible := l.Find(`span[aria-hidden="true"]`).First(); visible.Length() > 0 {
		return visible.Text()
	}
	return l.Text()
}

func isRequired(s *goquery.Selection, label string) bool {
	if _, ok := s.Attr("required"); ok {
		return true
	}
	if strings.EqualFold(s.AttrOr("aria-required", ""), "true") {
		return true
	}
	return strings.HasSuffix(strings.TrimSpace(label), "*")
}

func matchesAny(doc *goquery.Document, chain retry.Chain) bool {
	for _, c := range chain {
		if doc.Find(c).Length() > 0 {
			return true
		}
	}
	return false
}

func isAny(s *goquery.Selection, chain retry.Chain) bool {
	for _, c := range chain {
		if s.Is(c) {
			return true
		}
	}
	return false
}

func texts(doc *goquery.Document, chain retry.Chain) []string {
	var out []string
	for _, c := range chain {
		doc.Find(c).Each(func(_ int, s *goquery.Selection) {
			if t := collapse(s.Text()); t != "" {
				out = append(out, t)
			}
		})
		if len(out) > 0 {
			return out
		}
	}
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func cssQuote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
