package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"completion-kit/internal/config"
	"completion-kit/internal/llm"
	"completion-kit/internal/prompt"
	"completion-kit/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, badRequest("request body is not valid JSON")
	}
	return body, nil
}

// completionOptions reads suffix and stop from a request body.
func completionOptions(body []byte) *llm.CompletionOptions {
	suffix := gjson.GetBytes(body, "suffix").String()
	stop := gjson.GetBytes(body, "stop").String()
	if suffix == "" && stop == "" {
		return nil
	}
	return &llm.CompletionOptions{Suffix: suffix, Stop: stop}
}

// renderPrompt returns the literal prompt, or renders the named template
// with the request's variables.
func (s *Server) renderPrompt(body []byte) (string, error) {
	name := gjson.GetBytes(body, "template")
	if !name.Exists() {
		p := gjson.GetBytes(body, "prompt")
		if p.Exists() && p.Type != gjson.String {
			return "", badRequest("prompt must be a string")
		}
		return p.String(), nil
	}

	if s.loader == nil {
		return "", badRequest("templates are not configured")
	}
	tmpl, err := s.loader.Load(name.String())
	if err != nil {
		return "", badRequest(err.Error())
	}

	values := map[string]any{}
	if v := gjson.GetBytes(body, "variables"); v.Exists() {
		m, ok := v.Value().(map[string]any)
		if !ok {
			return "", badRequest("variables must be an object")
		}
		values = m
	}

	text, err := tmpl.Format(values)
	if err != nil {
		return "", badRequest(err.Error())
	}
	return text, nil
}

func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	text, err := s.renderPrompt(body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	completion, err := s.llm.GetCompletion(r.Context(), text, completionOptions(body))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out, _ := sjson.SetBytes([]byte(`{}`), "completion", completion)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	arr := gjson.GetBytes(body, "prompts")
	if !arr.IsArray() || len(arr.Array()) == 0 {
		writeError(w, r, badRequest("prompts must be a non-empty array"))
		return
	}
	prompts := make([]string, 0, len(arr.Array()))
	for _, p := range arr.Array() {
		if p.Type != gjson.String {
			writeError(w, r, badRequest("prompts must contain only strings"))
			return
		}
		prompts = append(prompts, p.String())
	}

	opts := completionOptions(body)
	var res *llm.Result
	if g, ok := s.llm.(llm.Generator); ok {
		res, err = g.Generate(r.Context(), prompts, opts)
	} else {
		res, err = llm.Generate(r.Context(), s.llm, prompts, opts, s.cfg.LLM.BatchConcurrency)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	out, err := json.Marshal(res)
	if err != nil {
		writeErrorStatus(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// extraction is the outcome of one extraction run. ID is empty when history
// is disabled.
type extraction struct {
	ID    string
	Value any
	Raw   json.RawMessage
}

// extract runs the extraction prompt and records the attempt, failed or not.
func (s *Server) extract(ctx context.Context, params prompt.ObjectFromTypeParams) (*extraction, error) {
	start := time.Now()
	ex, err := s.extractor.Extract(ctx, s.llm, params)

	out := &extraction{}
	rec := &storage.ExtractionRecord{
		ID:         uuid.NewString(),
		Provider:   llm.NameOf(s.llm),
		TypeName:   params.TypeName,
		Query:      params.Query,
		CreatedAt:  start.UTC(),
		DurationMs: time.Since(start).Milliseconds(),
		Status:     config.StatusSuccess,
	}
	if ex != nil {
		rec.Prompt = ex.Prompt
		rec.Completion = ex.Completion
	}
	if err == nil {
		out.Raw, err = json.Marshal(ex.Value)
		out.Value = ex.Value
		rec.Result = out.Raw
	}
	if err != nil {
		rec.Status = config.StatusError
		rec.Error = err.Error()
		rec.Result = nil
	}

	if s.store != nil {
		if saveErr := s.save(ctx, rec); saveErr != nil {
			slog.WarnContext(ctx, "save extraction failed", "id", rec.ID, "error", saveErr)
		} else {
			out.ID = rec.ID
		}
	}

	return out, err
}

func (s *Server) save(ctx context.Context, rec *storage.ExtractionRecord) error {
	ctx = context.WithoutCancel(ctx)
	if s.cfg.Storage.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Storage.Timeout)
		defer cancel()
	}
	return s.store.SaveExtraction(ctx, rec)
}

func validateParams(p prompt.ObjectFromTypeParams) error {
	if p.TypeName == "" {
		return badRequest("type_name is required")
	}
	if p.Query == "" {
		return badRequest("query is required")
	}
	return nil
}

func (s *Server) handleExtraction(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var params prompt.ObjectFromTypeParams
	if err := json.Unmarshal(body, &params); err != nil {
		writeError(w, r, badRequest("invalid extraction request: "+err.Error()))
		return
	}
	if err := validateParams(params); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.extract(r.Context(), params)
	if err != nil {
		status := statusFor(err)
		slog.WarnContext(r.Context(), "extraction failed", "type", params.TypeName, "status", status, "error", err)
		out, _ := sjson.SetBytes([]byte(`{}`), "error", err.Error())
		if res != nil && res.ID != "" {
			out, _ = sjson.SetBytes(out, "id", res.ID)
		}
		writeJSON(w, status, out)
		return
	}

	out := []byte(`{}`)
	if res.ID != "" {
		out, _ = sjson.SetBytes(out, "id", res.ID)
	}
	out, err = sjson.SetRawBytes(out, "result", res.Raw)
	if err != nil {
		writeErrorStatus(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetExtraction(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, r, errHistoryDisabled)
		return
	}

	rec, err := s.store.GetExtraction(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, r, err)
		return
	}
	if err != nil {
		writeErrorStatus(w, r, http.StatusInternalServerError, err)
		return
	}

	out, err := json.Marshal(rec)
	if err != nil {
		writeErrorStatus(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListExtractions(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, r, errHistoryDisabled)
		return
	}

	records, err := s.store.ListRecentExtractions(r.Context(), parseLimit(r, defaultListLimit, maxListLimit))
	if err != nil {
		writeErrorStatus(w, r, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []*storage.ExtractionRecord{}
	}

	out, err := json.Marshal(map[string]any{"extractions": records})
	if err != nil {
		writeErrorStatus(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

var errHistoryDisabled = errors.New("extraction history is disabled")
