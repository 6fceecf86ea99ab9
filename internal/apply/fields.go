package apply

import (
	"context"
	"strings"

	"github.com/jonathan/apply-agent/internal/answers"
	"github.com/jonathan/apply-agent/internal/retry"
	"github.com/jonathan/apply-agent/internal/types"
	"go.uber.org/zap"
)

// fill writes an answer into every field of the step that needs one. A
// required field without an answer stops the step with MissingAnswer.
func (m *Machine) fill(ctx context.Context, s *session, desc types.StepDescriptor) error {
	for _, f := range desc.FieldBindings {
		logger := s.logger.With(zap.String("field", f.Label), zap.String("kind", string(f.Kind)))

		if m.opts.SkipList.Matches(f.Label) {
			logger.Debug("field pre-filled by the site, skipping")
			continue
		}
		if f.Kind == types.StepFileUpload {
			if err := m.upload(ctx, s, desc, f); err != nil {
				return err
			}
			continue
		}
		if f.Filled() {
			logger.Debug("field already answered")
			continue
		}

		answer, ok := m.answer(ctx, s, f)
		if !ok {
			if f.Required {
				return retry.Errorf(types.ErrMissingAnswer, "no answer for required field %q", f.Label)
			}
			logger.Debug("optional field left empty")
			continue
		}
		if err := m.write(ctx, f, answer); err != nil {
			return err
		}
		if err := m.pacer.Think(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (m *Machine) answer(ctx context.Context, s *session, f types.FieldBinding) (string, bool) {
	if m.answers == nil {
		return "", false
	}
	q := answers.Question{Label: f.Label, Kind: f.Kind, Required: f.Required}
	for _, o := range f.Options {
		q.Options = append(q.Options, o.Label)
	}
	answer, ok, err := m.answers.Answer(ctx, q, s.job)
	if err != nil {
		s.logger.Warn("answer lookup failed", zap.String("field", f.Label), zap.Error(err))
		return "", false
	}
	return answer, ok && strings.TrimSpace(answer) != ""
}

func (m *Machine) write(ctx context.Context, f types.FieldBinding, answer string) error {
	switch f.Kind {
	case types.StepText:
		return retry.Do(ctx, m.runner, "fill text", retry.Chain{f.Selector}, m.opts.Fill,
			func(ctx context.Context, sel string) error {
				if err := m.page.Clear(ctx, sel); err != nil {
					return err
				}
				return m.pacer.Type(ctx, answer, func(chunk string) error {
					return m.page.TypeText(ctx, sel, chunk)
				})
			})

	case types.StepDropdown:
		opt, ok := pickOption(f.Options, answer)
		if !ok {
			return retry.Errorf(types.ErrMissingAnswer, "answer %q matches no option of %q", answer, f.Label)
		}
		return retry.Do(ctx, m.runner, "select option", retry.Chain{f.Selector}, m.opts.Click,
			func(ctx context.Context, sel string) error {
				return m.page.SelectOption(ctx, sel, opt.Value)
			})

	case types.StepRadio:
		opt, ok := pickOption(f.Options, answer)
		if !ok {
			return retry.Errorf(types.ErrMissingAnswer, "answer %q matches no option of %q", answer, f.Label)
		}
		if err := m.pacer.BeforeClick(ctx); err != nil {
			return err
		}
		return retry.Do(ctx, m.runner, "choose radio", retry.Chain{opt.Selector}, m.opts.Click,
			func(ctx context.Context, sel string) error {
				return m.page.SetChecked(ctx, sel, true)
			})

	case types.StepCheckbox:
		want, ok := truthy(answer)
		if !ok {
			return retry.Errorf(types.ErrMissingAnswer, "answer %q is not a yes or no for %q", answer, f.Label)
		}
		if err := m.pacer.BeforeClick(ctx); err != nil {
			return err
		}
		return retry.Do(ctx, m.runner, "tick checkbox", retry.Chain{f.Selector}, m.opts.Click,
			func(ctx context.Context, sel string) error {
				return m.page.SetChecked(ctx, sel, want)
			})

	default:
		return retry.Errorf(types.ErrUnrecognizedStep, "cannot write a %s field", f.Kind)
	}
}

// upload attaches the resume unless the site already has one selected
func (m *Machine) upload(ctx context.Context, s *session, desc types.StepDescriptor, f types.FieldBinding) error {
	if desc.ResumeSelected || f.Filled() {
		return nil
	}
	if !isResumeField(f) {
		if f.Required {
			return retry.Errorf(types.ErrMissingAnswer, "no document for required upload %q", f.Label)
		}
		return nil
	}

	path := m.resumeFor(ctx, s)
	if path == "" {
		if f.Required {
			return retry.Errorf(types.ErrMissingAnswer, "no resume available for %q", f.Label)
		}
		return nil
	}
	return retry.Do(ctx, m.runner, "upload resume", retry.Chain{f.Selector}, m.opts.Fill,
		func(ctx context.Context, sel string) error {
			return m.page.Upload(ctx, sel, path)
		})
}

// resumeFor renders the tailored resume once per application and falls back
// to the static file.
func (m *Machine) resumeFor(ctx context.Context, s *session) string {
	if s.rendered {
		return s.resume
	}
	s.rendered = true
	s.resume = m.opts.ResumePath
	if m.renderer == nil {
		return s.resume
	}
	path, err := m.renderer.Render(ctx, s.job)
	if err != nil {
		s.logger.Warn("resume rendering failed, using the static resume", zap.Error(err))
		return s.resume
	}
	s.resume = path
	return path
}

func isResumeField(f types.FieldBinding) bool {
	text := strings.ToLower(f.Label + " " + f.Selector)
	return strings.Contains(text, "resume") || strings.Contains(text, "cv")
}

func pickOption(options []types.Option, answer string) (types.Option, bool) {
	want := answers.Normalize(answer)
	for _, o := range options {
		if answers.Normalize(o.Label) == want || answers.Normalize(o.Value) == want {
			return o, true
		}
	}
	return types.Option{}, false
}

func truthy(answer string) (value bool, ok bool) {
	switch answers.Normalize(answer) {
	case "yes", "y", "true", "1", "checked", "agree", "i agree":
		return true, true
	case "no", "n", "false", "0", "unchecked":
		return false, true
	default:
		return false, false
	}
}
