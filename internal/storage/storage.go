package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when no extraction has the requested ID.
var ErrNotFound = errors.New("extraction not found")

// ExtractionRecord is one persisted structured extraction.
type ExtractionRecord struct {
	ID         string          `json:"id"`
	Provider   string          `json:"provider"`
	TypeName   string          `json:"type_name"`
	Query      string          `json:"query"`
	Prompt     string          `json:"prompt"`
	Completion string          `json:"completion,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	DurationMs int64           `json:"duration_ms"`
	Status     string          `json:"status"` // success, error
}

// Repository Storage interface
type Repository interface {
	SaveExtraction(ctx context.Context, record *ExtractionRecord) error
	GetExtraction(ctx context.Context, id string) (*ExtractionRecord, error)
	ListRecentExtractions(ctx context.Context, limit int) ([]*ExtractionRecord, error)
	Close() error
}
