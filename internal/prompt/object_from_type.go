package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"completion-kit/internal/config"
	"completion-kit/internal/llm"
	"completion-kit/internal/metrics"
	"completion-kit/internal/types"

	"github.com/tidwall/gjson"
)

// objectFromTypeTemplate ends on an open backtick; the completion is asked to
// close it, so the same backtick is sent as suffix and stop.
var objectFromTypeTemplate = MustNewTemplate(`{{.available}}

{{.types}}

Translate the following query into a {{.typeName}} type represented as a JSON string:
Query: "{{.query}}"

Note: the current date is {{.date}}
{{.notes}}
{{if .context}}Context: {{.context}}{{end}}
{{.typeName}}: `+"`",
	[]string{"available", "types", "typeName", "query", "date", "notes", "context"},
	WithFormat(FormatGoTemplate),
)

// Possibility lists the candidate values for one field of the target type.
type Possibility struct {
	Key        string `json:"key"`
	Candidates []any  `json:"candidates"`
}

// Possibilities keeps the order in which keys were given.
// It decodes from either a JSON object or an array of Possibility.
type Possibilities []Possibility

// UnmarshalJSON accepts {"key":[...]} in document order or [{"key":..,"candidates":[..]}].
func (p *Possibilities) UnmarshalJSON(data []byte) error {
	res := gjson.ParseBytes(data)
	switch {
	case res.IsObject():
		out := Possibilities{}
		var err error
		res.ForEach(func(key, value gjson.Result) bool {
			var candidates []any
			if err = json.Unmarshal([]byte(value.Raw), &candidates); err != nil {
				err = fmt.Errorf("possibilities.%s: %w", key.String(), err)
				return false
			}
			out = append(out, Possibility{Key: key.String(), Candidates: candidates})
			return true
		})
		if err != nil {
			return err
		}
		*p = out
		return nil
	case res.IsArray():
		var out []Possibility
		if err := json.Unmarshal(data, &out); err != nil {
			return err
		}
		*p = out
		return nil
	case res.Type == gjson.Null:
		*p = nil
		return nil
	default:
		return errors.New("possibilities must be an object or an array")
	}
}

// ObjectFromTypeParams are the inputs of one structured extraction.
type ObjectFromTypeParams struct {
	Query         string        `json:"query"`
	Types         string        `json:"types"`
	Possibilities Possibilities `json:"possibilities,omitempty"`
	Notes         []string      `json:"notes,omitempty"`
	Context       string        `json:"context,omitempty"`
	TypeName      string        `json:"type_name"`
}

// Extraction is the full record of one extraction.
type Extraction struct {
	Prompt     string
	Completion string
	Value      any
}

// ObjectFromType asks a model to translate a query into a JSON value of a
// described type.
type ObjectFromType struct {
	now     func() time.Time
	lenient bool
}

// Option configures ObjectFromType.
type Option func(*ObjectFromType)

// WithClock overrides the source of the current date.
func WithClock(now func() time.Time) Option {
	return func(o *ObjectFromType) { o.now = now }
}

// WithLenientJSON strips markdown code fences from completions before parsing.
func WithLenientJSON() Option {
	return func(o *ObjectFromType) { o.lenient = true }
}

// NewObjectFromType creates the extraction prompt.
func NewObjectFromType(opts ...Option) *ObjectFromType {
	o := &ObjectFromType{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Prompt renders the extraction prompt. The output depends only on params and
// the current UTC date.
func (o *ObjectFromType) Prompt(params ObjectFromTypeParams) (string, error) {
	available := make([]string, 0, len(params.Possibilities))
	for _, p := range params.Possibilities {
		encoded, err := encodeCompact(p.Candidates)
		if err != nil {
			return "", fmt.Errorf("encode possibilities for %q: %w", p.Key, err)
		}
		available = append(available, "Available "+p.Key+": "+encoded)
	}

	notes := make([]string, 0, len(params.Notes))
	for _, n := range params.Notes {
		notes = append(notes, "Note: "+n)
	}

	return objectFromTypeTemplate.Format(map[string]any{
		"available": strings.Join(available, "\n"),
		"types":     params.Types,
		"typeName":  params.TypeName,
		"query":     params.Query,
		"date":      o.now().UTC().Format(time.DateOnly),
		"notes":     strings.Join(notes, "\n"),
		"context":   params.Context,
	})
}

// Extract renders the prompt, requests one completion and parses it.
// On a parse failure the returned Extraction still carries the prompt and
// the raw completion.
func (o *ObjectFromType) Extract(ctx context.Context, c llm.Client, params ObjectFromTypeParams) (*Extraction, error) {
	p, err := o.Prompt(params)
	if err != nil {
		return nil, err
	}
	ex := &Extraction{Prompt: p}

	slog.DebugContext(ctx, "object from type query started", "type", params.TypeName, "provider", llm.NameOf(c))
	completion, err := c.GetCompletion(ctx, p, &llm.CompletionOptions{
		Suffix: config.ExtractionSuffix,
		Stop:   config.ExtractionStop,
	})
	if err != nil {
		metrics.Extractions.WithLabelValues("completion_failed").Inc()
		return ex, fmt.Errorf("object from type %s: %w", params.TypeName, err)
	}
	ex.Completion = completion

	ex.Value, err = o.parse(completion)
	if err != nil {
		metrics.Extractions.WithLabelValues("parse_failed").Inc()
		return ex, err
	}
	metrics.Extractions.WithLabelValues("success").Inc()
	return ex, nil
}

// Run returns the parsed JSON value. The value is not checked against Types.
func (o *ObjectFromType) Run(ctx context.Context, c llm.Client, params ObjectFromTypeParams) (any, error) {
	ex, err := o.Extract(ctx, c, params)
	if err != nil {
		return nil, err
	}
	return ex.Value, nil
}

// RunAs runs the extraction and decodes the completion into T.
func RunAs[T any](ctx context.Context, o *ObjectFromType, c llm.Client, params ObjectFromTypeParams) (T, error) {
	var out T
	ex, err := o.Extract(ctx, c, params)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(o.clean(ex.Completion)), &out); err != nil {
		return out, &types.ParseError{Raw: ex.Completion, Err: err}
	}
	return out, nil
}

func (o *ObjectFromType) clean(s string) string {
	if o.lenient {
		return types.CleanJSONFromMarkdown(s)
	}
	return s
}

func (o *ObjectFromType) parse(completion string) (any, error) {
	text := o.clean(completion)
	if !gjson.Valid(text) {
		return nil, &types.ParseError{Raw: completion, Err: errors.New("completion is not valid JSON")}
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, &types.ParseError{Raw: completion, Err: err}
	}
	return v, nil
}

// encodeCompact marshals v without HTML escaping or a trailing newline.
func encodeCompact(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
