package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplate_Formats(t *testing.T) {
	tests := []struct {
		name   string
		tmpl   string
		opts   []TemplateOption
		values map[string]any
		want   string
	}{
		{
			name:   "f-string default",
			tmpl:   "Hello {name}, today is {day}.",
			values: map[string]any{"name": "Ada", "day": "Monday"},
			want:   "Hello Ada, today is Monday.",
		},
		{
			name:   "f-string escaped braces",
			tmpl:   "{{literal}} {name}",
			values: map[string]any{"name": "x"},
			want:   "{literal} x",
		},
		{
			name:   "go-template",
			tmpl:   "{{.name}} has {{len .items}} items",
			opts:   []TemplateOption{WithFormat(FormatGoTemplate)},
			values: map[string]any{"name": "cart", "items": []string{"a", "b"}},
			want:   "cart has 2 items",
		},
		{
			name:   "jinja2",
			tmpl:   "{% if urgent %}URGENT: {% endif %}{{ subject }}",
			opts:   []TemplateOption{WithFormat(FormatJinja2)},
			values: map[string]any{"urgent": true, "subject": "disk full"},
			want:   "URGENT: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := make([]string, 0, len(tt.values))
			for k := range tt.values {
				vars = append(vars, k)
			}
			tmpl, err := NewTemplate(tt.tmpl, vars, tt.opts...)
			require.NoError(t, err)

			got, err := tmpl.Format(tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTemplate_MissingVariable(t *testing.T) {
	tmpl, err := NewTemplate("Hello {name}", []string{"name"})
	require.NoError(t, err)

	_, err = tmpl.Format(map[string]any{})
	assert.ErrorContains(t, err, `missing input variable "name"`)
}

func TestTemplate_Partials(t *testing.T) {
	tmpl, err := NewTemplate("{greeting}, {name}", []string{"name"},
		WithPartials(map[string]any{"greeting": "Hi"}))
	require.NoError(t, err)

	got, err := tmpl.Format(map[string]any{"name": "Bo"})
	require.NoError(t, err)
	assert.Equal(t, "Hi, Bo", got)
}

func TestNewTemplate_Validation(t *testing.T) {
	_, err := NewTemplate("Hello {name} }", []string{"name"})
	assert.Error(t, err)

	_, err = NewTemplate("{{.missing}}", nil, WithFormat(FormatGoTemplate))
	assert.Error(t, err)

	_, err = NewTemplate("{{.missing}}", nil, WithFormat(FormatGoTemplate), WithValidation(false))
	assert.NoError(t, err)

	_, err = NewTemplate("x", nil, WithFormat("mustache"))
	assert.Error(t, err)
}

func TestMustNewTemplate_Panics(t *testing.T) {
	assert.Panics(t, func() { MustNewTemplate("{", nil) })
}

func writePrompt(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "greet.txt", "Hello {name}")
	writePrompt(t, dir, "report.tmpl", "Report for {{.team}}")
	writePrompt(t, dir, "alert.j2", "Alert: {{ msg }}")
	writePrompt(t, dir, "summary.yaml", `
template: "Summarize {text} in {words} words"
input_variables: [text, words]
`)
	writePrompt(t, dir, "summary.txt", "shadowed by yaml")
	writePrompt(t, dir, "nested/deep.yaml", `
template: "{{ .x }}"
input_variables: [x]
template_format: go-template
`)

	loader := NewLoader(dir)

	tests := []struct {
		name   string
		values map[string]any
		want   string
	}{
		{name: "greet", values: map[string]any{"name": "Ada"}, want: "Hello Ada"},
		{name: "greet.txt", values: map[string]any{"name": "Ada"}, want: "Hello Ada"},
		{name: "report", values: map[string]any{"team": "infra"}, want: "Report for infra"},
		{name: "alert", values: map[string]any{"msg": "disk"}, want: "Alert: disk"},
		{name: "summary", values: map[string]any{"text": "log", "words": 10}, want: "Summarize log in 10 words"},
		{name: "nested/deep", values: map[string]any{"x": "ok"}, want: "ok"},
		{name: "../greet", values: map[string]any{"name": "Ada"}, want: "Hello Ada"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := loader.Load(tt.name)
			require.NoError(t, err)
			got, err := tmpl.Format(tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoader_Errors(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "broken.yaml", "template: [unterminated")
	writePrompt(t, dir, "invalid.yaml", `
template: "{{ .y }}"
template_format: go-template
`)

	loader := NewLoader(dir)

	_, err := loader.Load("missing")
	assert.ErrorContains(t, err, "no prompt found")

	_, err = loader.Load("")
	assert.Error(t, err)

	_, err = loader.Load("broken")
	assert.ErrorContains(t, err, "parse prompt")

	_, err = loader.Load("invalid")
	assert.ErrorContains(t, err, "load prompt")
}
