package prompt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/prompts"
	"gopkg.in/yaml.v3"
)

// formatByExt maps template file extensions to formats.
var formatByExt = map[string]prompts.TemplateFormat{
	".txt":  FormatFString,
	".tmpl": FormatGoTemplate,
	".j2":   FormatJinja2,
}

// searchOrder is the extension order tried when a name has no extension.
var searchOrder = []string{".yaml", ".yml", ".tmpl", ".j2", ".txt"}

// templateFile is the YAML form of a template with metadata.
type templateFile struct {
	Template         string   `yaml:"template"`
	InputVariables   []string `yaml:"input_variables"`
	TemplateFormat   string   `yaml:"template_format"`
	ValidateTemplate *bool    `yaml:"validate_template"`
}

// Loader loads prompt templates from a directory.
type Loader struct {
	baseDir string
}

// NewLoader creates a loader rooted at baseDir.
func NewLoader(baseDir string) *Loader {
	return &Loader{baseDir: baseDir}
}

// Load resolves name inside the base directory. A name without extension is
// tried as {name}.yaml, .yml, .tmpl, .j2 and .txt in that order.
//
// Plain template files declare no input variables, so they are not validated
// up front; a missing variable fails at Format time instead.
func (l *Loader) Load(name string) (*Template, error) {
	clean := filepath.Clean("/" + name)[1:]
	if clean == "" {
		return nil, errors.New("empty template name")
	}

	candidates := []string{filepath.Join(l.baseDir, clean)}
	if filepath.Ext(clean) == "" {
		candidates = candidates[:0]
		for _, ext := range searchOrder {
			candidates = append(candidates, filepath.Join(l.baseDir, clean+ext))
		}
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err == nil {
			return parseTemplateFile(path, data)
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read prompt %s: %w", path, err)
		}
	}

	return nil, fmt.Errorf("no prompt found for name=%q, tried: %v", name, candidates)
}

func parseTemplateFile(path string, data []byte) (*Template, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		var tf templateFile
		if err := yaml.Unmarshal(data, &tf); err != nil {
			return nil, fmt.Errorf("parse prompt %s: %w", path, err)
		}
		opts := []TemplateOption{}
		if tf.TemplateFormat != "" {
			opts = append(opts, WithFormat(prompts.TemplateFormat(tf.TemplateFormat)))
		}
		if tf.ValidateTemplate != nil {
			opts = append(opts, WithValidation(*tf.ValidateTemplate))
		}
		t, err := NewTemplate(tf.Template, tf.InputVariables, opts...)
		if err != nil {
			return nil, fmt.Errorf("load prompt %s: %w", path, err)
		}
		return t, nil
	}

	format, ok := formatByExt[ext]
	if !ok {
		format = FormatFString
	}
	return NewTemplate(string(data), nil, WithFormat(format), WithValidation(false))
}
