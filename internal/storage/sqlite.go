package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // Pure Go driver, CGO-free, compatible with CGO_ENABLED=0
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dsn string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func migrate(db *sql.DB) error {
	schema := `
    CREATE TABLE IF NOT EXISTS extractions (
        id          TEXT PRIMARY KEY,
        provider    TEXT NOT NULL,
        type_name   TEXT NOT NULL,
        query       TEXT NOT NULL,
        prompt      TEXT NOT NULL,
        completion  TEXT NOT NULL DEFAULT '',
        result_data TEXT,
        error       TEXT NOT NULL DEFAULT '',
        created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
        duration_ms INTEGER,
        status      TEXT NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_extractions_type ON extractions(type_name);
    CREATE INDEX IF NOT EXISTS idx_extractions_created ON extractions(created_at);
    `
	_, err := db.Exec(schema)
	return err
}

func (r *SQLiteRepository) SaveExtraction(ctx context.Context, record *ExtractionRecord) error {
	var result sql.NullString
	if len(record.Result) > 0 {
		result = sql.NullString{String: string(record.Result), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
        INSERT INTO extractions (id, provider, type_name, query, prompt, completion, result_data, error, duration_ms, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, record.ID, record.Provider, record.TypeName, record.Query, record.Prompt, record.Completion,
		result, record.Error, record.DurationMs, record.Status, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert extraction %s: %w", record.ID, err)
	}
	return nil
}

const selectExtraction = `
        SELECT id, provider, type_name, query, prompt, completion, result_data, error, created_at, duration_ms, status
        FROM extractions`

func (r *SQLiteRepository) GetExtraction(ctx context.Context, id string) (*ExtractionRecord, error) {
	row := r.db.QueryRowContext(ctx, selectExtraction+` WHERE id = ?`, id)
	record, err := scanExtraction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return record, err
}

func (r *SQLiteRepository) ListRecentExtractions(ctx context.Context, limit int) ([]*ExtractionRecord, error) {
	rows, err := r.db.QueryContext(ctx, selectExtraction+`
        ORDER BY created_at DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*ExtractionRecord
	for rows.Next() {
		record, err := scanExtraction(rows)
		if err != nil {
			slog.Warn("scan extraction failed", "error", err)
			continue
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Scanner interface to support both Row and Rows
type Scanner interface {
	Scan(dest ...any) error
}

func scanExtraction(s Scanner) (*ExtractionRecord, error) {
	var rec ExtractionRecord
	var result sql.NullString
	var createdAt time.Time
	var durationMs sql.NullInt64

	if err := s.Scan(&rec.ID, &rec.Provider, &rec.TypeName, &rec.Query, &rec.Prompt, &rec.Completion,
		&result, &rec.Error, &createdAt, &durationMs, &rec.Status); err != nil {
		return nil, err
	}

	if result.Valid {
		rec.Result = []byte(result.String)
	}
	rec.CreatedAt = createdAt
	rec.DurationMs = durationMs.Int64
	return &rec, nil
}
