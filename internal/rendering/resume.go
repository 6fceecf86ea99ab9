package rendering

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/jonathan/apply-agent/internal/types"
	"go.uber.org/zap"
)

// TemplateData is what a resume template sees
type TemplateData struct {
	Profile map[string]string
	Job     types.JobContext
	Summary string
	Date    string
}

// SummaryFunc drafts the tailored summary paragraph for a job
type SummaryFunc func(ctx context.Context, job types.JobContext) (string, error)

// Options configure a Renderer
type Options struct {
	TemplatePath string
	OutputDir    string
	// Compiler turns a rendered .tex into a PDF, e.g. "pdflatex". Empty
	// uploads the rendered file as it is.
	Compiler string
	Profile  map[string]string
	Summary  SummaryFunc
	Logger   *zap.Logger
	Clock    func() time.Time
}

// Renderer fills the resume template for one job and writes it to disk
type Renderer struct {
	tmpl  *template.Template
	latex bool
	opts  Options
}

// NewRenderer parses the template up front so a broken template fails at startup.
func NewRenderer(opts Options) (*Renderer, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	latex := strings.EqualFold(filepath.Ext(opts.TemplatePath), ".tex")
	tmpl, err := parseTemplate(opts.TemplatePath, latex)
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl, latex: latex, opts: opts}, nil
}

func parseTemplate(path string, latex bool) (*template.Template, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &TemplateError{Message: fmt.Sprintf("template file not found: %s", path), Cause: err}
		}
		return nil, &TemplateError{Message: fmt.Sprintf("failed to read template file: %s", path), Cause: err}
	}

	escape := func(s string) string { return s }
	if latex {
		escape = EscapeLaTeX
	}
	tmpl, err := template.New(filepath.Base(path)).
		Option("missingkey=zero").
		Funcs(template.FuncMap{"escape": escape}).
		Parse(string(content))
	if err != nil {
		return nil, &TemplateError{Message: "failed to parse template", Cause: err}
	}
	return tmpl, nil
}

// Render writes the resume for job and returns the path to upload.
func (r *Renderer) Render(ctx context.Context, job types.JobContext) (string, error) {
	data := TemplateData{
		Profile: r.opts.Profile,
		Job:     job,
		Date:    r.opts.Clock().Format("January 2006"),
	}
	if r.opts.Summary != nil {
		summary, err := r.opts.Summary(ctx, job)
		if err != nil {
			// the template still renders without a tailored summary
			r.opts.Logger.Warn("resume summary failed", zap.String("listing", job.ExternalID), zap.Error(err))
		}
		data.Summary = summary
	}
	if r.latex {
		data = escapeData(data)
	}

	var out strings.Builder
	if err := r.tmpl.Execute(&out, data); err != nil {
		return "", &TemplateError{Message: "failed to execute template", Cause: err}
	}

	if err := os.MkdirAll(r.opts.OutputDir, 0o755); err != nil {
		return "", &RenderError{Message: "failed to create output directory", Cause: err}
	}
	path := filepath.Join(r.opts.OutputDir, FileStem(job)+filepath.Ext(r.opts.TemplatePath))
	if err := os.WriteFile(path, []byte(out.String()), 0o644); err != nil {
		return "", &RenderError{Message: "failed to write rendered resume", Cause: err}
	}

	if r.opts.Compiler == "" {
		return path, nil
	}
	return r.compile(ctx, path)
}

func (r *Renderer) compile(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, r.opts.Compiler,
		"-interaction=nonstopmode", "-halt-on-error",
		"-output-directory", filepath.Dir(path), path)
	if out, err := cmd.CombinedOutput(); err != nil {
		tail := string(out)
		if len(tail) > 500 {
			tail = tail[len(tail)-500:]
		}
		return "", &RenderError{Message: fmt.Sprintf("%s failed: %s", r.opts.Compiler, tail), Cause: err}
	}
	pdf := strings.TrimSuffix(path, filepath.Ext(path)) + ".pdf"
	if _, err := os.Stat(pdf); err != nil {
		return "", &RenderError{Message: "compiler produced no PDF", Cause: err}
	}
	return pdf, nil
}

func escapeData(d TemplateData) TemplateData {
	profile := make(map[string]string, len(d.Profile))
	for k, v := range d.Profile {
		profile[k] = EscapeLaTeX(v)
	}
	d.Profile = profile
	d.Job.Title = EscapeLaTeX(d.Job.Title)
	d.Job.Company = EscapeLaTeX(d.Job.Company)
	d.Job.Location = EscapeLaTeX(d.Job.Location)
	d.Job.Description = EscapeLaTeX(d.Job.Description)
	d.Summary = EscapeLaTeX(d.Summary)
	return d
}

var unsafeName = regexp.MustCompile(`[^a-z0-9]+`)

// FileStem names the rendered file after the company and listing id
func FileStem(job types.JobContext) string {
	company := strings.Trim(unsafeName.ReplaceAllString(strings.ToLower(job.Company), "_"), "_")
	if company == "" {
		company = "resume"
	}
	if job.ExternalID == "" {
		return company
	}
	return company + "_" + job.ExternalID
}
