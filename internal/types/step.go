package types

// StepKind classifies one rendered step of the quick-apply form.
// StepUnknown is an explicit case so unhandled shapes fail instead of binding fields wrongly.
type StepKind string

const (
	StepText       StepKind = "text"
	StepRadio      StepKind = "radio"
	StepDropdown   StepKind = "dropdown"
	StepCheckbox   StepKind = "checkbox"
	StepFileUpload StepKind = "fileUpload"
	StepReview     StepKind = "review"
	StepSubmit     StepKind = "submit"
	StepUnknown    StepKind = "unknown"
)

// StepAction is the footer control that advances a step
type StepAction string

const (
	ActionNone   StepAction = ""
	ActionNext   StepAction = "next"
	ActionReview StepAction = "review"
	ActionSubmit StepAction = "submit"
)

// FieldBinding ties one form control on the current step to its question.
type FieldBinding struct {
	Selector string   `json:"selector"` // CSS selector for the control itself
	Label    string   `json:"label"`
	Kind     StepKind `json:"kind"` // text, radio, dropdown, checkbox or fileUpload
	Required bool     `json:"required"`
	Options  []Option `json:"options,omitempty"`
	Value    string   `json:"value,omitempty"` // current value as rendered
}

// Option is one choice of a radio group or dropdown
type Option struct {
	Label    string `json:"label"`
	Value    string `json:"value"`
	Selector string `json:"selector,omitempty"` // radio input selector
}

// Filled reports whether the control already carries a value.
func (f FieldBinding) Filled() bool {
	return f.Value != ""
}

// StepDescriptor is derived from the live page on every step visit and never cached.
type StepDescriptor struct {
	Kind          StepKind       `json:"kind"`
	Action        StepAction     `json:"action"`
	FieldBindings []FieldBinding `json:"field_bindings,omitempty"`
	// ResumeSelected is set when a fileUpload step already has a document chosen.
	ResumeSelected bool `json:"resume_selected,omitempty"`
	// Errors holds inline validation messages rendered on the step.
	Errors []string `json:"errors,omitempty"`
}
