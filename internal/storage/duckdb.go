package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb" // DuckDB driver

	apperrors "github.com/kyleking/catalog-chat/internal/errors"
)

// DuckDBRepository implements the Repository interface using DuckDB
type DuckDBRepository struct {
	db   *sql.DB
	path string
}

// NewDuckDBRepository creates a new DuckDB repository instance with connection pooling
func NewDuckDBRepository(dbPath string) (*DuckDBRepository, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DuckDBRepository{db: db, path: dbPath}, nil
}

// Migrations returns a migration manager over the repository's database
func (r *DuckDBRepository) Migrations() *MigrationManager {
	return NewMigrationManager(r.db)
}

// Initialize creates the database schema using migrations
func (r *DuckDBRepository) Initialize(ctx context.Context) error {
	if err := NewMigrationManager(r.db).MigrateUp(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.ErrTypeStorage, "failed to migrate execution log")
	}

	return nil
}

// RecordExecution appends one attempt. Missing ids and timestamps are filled in.
func (r *DuckDBRepository) RecordExecution(ctx context.Context, rec ExecutionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	if rec.Status == "" {
		rec.Status = StatusSuccess
	}

	insertSQL := `
	INSERT INTO query_log (
		id, conversation_id, table_id, strategy, question, payload,
		status, error_message, answer_text, row_count, duration_ms, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, insertSQL,
		rec.ID,
		nullable(rec.ConversationID),
		rec.TableID,
		rec.Strategy,
		rec.Question,
		rec.Payload,
		rec.Status,
		nullable(rec.Error),
		nullable(rec.AnswerText),
		rec.RowCount,
		rec.DurationMs,
		rec.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrTypeStorage, "failed to record execution")
	}

	return nil
}

const selectColumns = `
	SELECT id, COALESCE(conversation_id, ''), table_id, strategy,
		   COALESCE(question, ''), payload, status,
		   COALESCE(error_message, ''), COALESCE(answer_text, ''),
		   COALESCE(row_count, 0), COALESCE(duration_ms, 0), created_at
	FROM query_log`

type scanner interface {
	Scan(dest ...any) error
}

func scanExecution(s scanner) (ExecutionRecord, error) {
	var rec ExecutionRecord

	err := s.Scan(
		&rec.ID, &rec.ConversationID, &rec.TableID, &rec.Strategy,
		&rec.Question, &rec.Payload, &rec.Status,
		&rec.Error, &rec.AnswerText,
		&rec.RowCount, &rec.DurationMs, &rec.CreatedAt,
	)

	return rec, err
}

// GetExecution retrieves one attempt by id
func (r *DuckDBRepository) GetExecution(ctx context.Context, id string) (*ExecutionRecord, error) {
	rec, err := scanExecution(r.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Newf(apperrors.ErrTypeNotFound, "execution %s not found", id)
		}

		return nil, apperrors.Wrap(err, apperrors.ErrTypeStorage, "failed to get execution")
	}

	return &rec, nil
}

// ListExecutions retrieves a page of attempts, newest first
func (r *DuckDBRepository) ListExecutions(ctx context.Context, limit, offset int) ([]ExecutionRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		selectColumns+" ORDER BY created_at DESC, id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeStorage, "failed to query executions")
	}
	defer rows.Close()

	var records []ExecutionRecord

	for rows.Next() {
		rec, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetStats returns aggregate statistics over the log
func (r *DuckDBRepository) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{TableBreakdown: make(map[string]int)}

	var (
		lastExecution *time.Time
		avgDuration   sql.NullFloat64
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			   COUNT(*) FILTER (WHERE status = ?),
			   MAX(created_at),
			   AVG(duration_ms)
		FROM query_log`, StatusError).
		Scan(&stats.TotalExecutions, &stats.Failed, &lastExecution, &avgDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to get execution counts: %w", err)
	}

	if lastExecution != nil {
		stats.LastExecution = *lastExecution
	}

	stats.AvgDurationMs = avgDuration.Float64

	if info, err := os.Stat(r.path); err == nil {
		stats.DatabaseSizeMB = float64(info.Size()) / (1024 * 1024)
	}

	tableRows, err := r.db.QueryContext(ctx,
		"SELECT table_id, COUNT(*) FROM query_log GROUP BY table_id ORDER BY COUNT(*) DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to get table breakdown: %w", err)
	}
	defer tableRows.Close()

	for tableRows.Next() {
		var (
			tableID string
			count   int
		)

		if err := tableRows.Scan(&tableID, &count); err != nil {
			return nil, err
		}

		stats.TableBreakdown[tableID] = count
	}

	return stats, tableRows.Err()
}

// Clear removes all log entries
func (r *DuckDBRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM query_log"); err != nil {
		return apperrors.Wrap(err, apperrors.ErrTypeStorage, "failed to clear execution log")
	}

	return nil
}

// Close closes the database connection
func (r *DuckDBRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}

	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}

	return s
}
