package storage

import (
	"context"
	"time"
)

// Execution statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Repository defines the interface for the execution log
type Repository interface {
	Initialize(ctx context.Context) error
	RecordExecution(ctx context.Context, rec ExecutionRecord) error
	GetExecution(ctx context.Context, id string) (*ExecutionRecord, error)
	ListExecutions(ctx context.Context, limit, offset int) ([]ExecutionRecord, error)
	GetStats(ctx context.Context) (*Stats, error)
	Clear(ctx context.Context) error
	Close() error
}

// ExecutionRecord is one submitted query attempt
type ExecutionRecord struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	TableID        string    `json:"table_id"`
	Strategy       string    `json:"strategy"`
	Question       string    `json:"question,omitempty"`
	Payload        string    `json:"payload"`
	Status         string    `json:"status"`
	Error          string    `json:"error,omitempty"`
	AnswerText     string    `json:"answer_text,omitempty"`
	RowCount       int       `json:"row_count"`
	DurationMs     float64   `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// Succeeded reports whether the attempt returned an answer
func (r ExecutionRecord) Succeeded() bool {
	return r.Status == StatusSuccess
}

// Stats summarizes the execution log
type Stats struct {
	TotalExecutions int            `json:"total_executions"`
	Failed          int            `json:"failed"`
	LastExecution   time.Time      `json:"last_execution"`
	DatabaseSizeMB  float64        `json:"database_size_mb"`
	TableBreakdown  map[string]int `json:"table_breakdown"`
	AvgDurationMs   float64        `json:"avg_duration_ms"`
}
