// Package prompt renders prompt text for completion providers.
package prompt

import (
	"fmt"
	"slices"

	"github.com/tmc/langchaingo/prompts"
)

// Supported template formats.
const (
	FormatFString    = prompts.TemplateFormatFString
	FormatGoTemplate = prompts.TemplateFormatGoTemplate
	FormatJinja2     = prompts.TemplateFormatJinja2
)

// Template is a prompt with named input variables.
// The zero TemplateFormat means f-string.
type Template struct {
	Template       string
	InputVariables []string
	TemplateFormat prompts.TemplateFormat
	// PartialVariables are merged into every Format call; explicit values win.
	PartialVariables map[string]any
}

// TemplateOption configures NewTemplate.
type TemplateOption func(*templateSettings)

type templateSettings struct {
	format   prompts.TemplateFormat
	validate bool
	partials map[string]any
}

// WithFormat selects the template syntax.
func WithFormat(f prompts.TemplateFormat) TemplateOption {
	return func(s *templateSettings) { s.format = f }
}

// WithValidation toggles the render check done at construction. Enabled by default.
func WithValidation(enabled bool) TemplateOption {
	return func(s *templateSettings) { s.validate = enabled }
}

// WithPartials pre-populates variables.
func WithPartials(values map[string]any) TemplateOption {
	return func(s *templateSettings) { s.partials = values }
}

// NewTemplate builds a Template and, unless disabled, checks that it renders
// with every input variable set.
func NewTemplate(tmpl string, inputVariables []string, opts ...TemplateOption) (*Template, error) {
	s := templateSettings{format: FormatFString, validate: true}
	for _, opt := range opts {
		opt(&s)
	}

	t := &Template{
		Template:         tmpl,
		InputVariables:   inputVariables,
		TemplateFormat:   s.format,
		PartialVariables: s.partials,
	}
	if s.validate {
		if err := prompts.CheckValidTemplate(tmpl, s.format, t.required()); err != nil {
			return nil, fmt.Errorf("invalid %s template: %w", s.format, err)
		}
	}
	return t, nil
}

// MustNewTemplate is like NewTemplate but panics on error.
func MustNewTemplate(tmpl string, inputVariables []string, opts ...TemplateOption) *Template {
	t, err := NewTemplate(tmpl, inputVariables, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// required lists input and partial variable names.
func (t *Template) required() []string {
	names := slices.Clone(t.InputVariables)
	for k := range t.PartialVariables {
		if !slices.Contains(names, k) {
			names = append(names, k)
		}
	}
	return names
}

// Format renders the template. Every declared input variable must be present.
func (t *Template) Format(values map[string]any) (string, error) {
	for _, name := range t.InputVariables {
		if _, ok := values[name]; ok {
			continue
		}
		if _, ok := t.PartialVariables[name]; ok {
			continue
		}
		return "", fmt.Errorf("missing input variable %q", name)
	}

	format := t.TemplateFormat
	if format == "" {
		format = FormatFString
	}
	pt := prompts.PromptTemplate{
		Template:         t.Template,
		InputVariables:   t.InputVariables,
		TemplateFormat:   format,
		PartialVariables: t.PartialVariables,
	}
	out, err := pt.Format(values)
	if err != nil {
		return "", fmt.Errorf("render %s template: %w", format, err)
	}
	return out, nil
}
