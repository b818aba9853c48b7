package cmd

import (
	"context"

	"github.com/kyleking/catalog-chat/internal/errors"
	"github.com/kyleking/catalog-chat/internal/storage"
)

// MockRepository implements storage.Repository for testing
type MockRepository struct {
	records []storage.ExecutionRecord
	stats   *storage.Stats
	cleared bool
	closed  bool
}

func (m *MockRepository) Initialize(_ context.Context) error {
	return nil
}

func (m *MockRepository) RecordExecution(_ context.Context, rec storage.ExecutionRecord) error {
	m.records = append(m.records, rec)
	return nil
}

func (m *MockRepository) GetExecution(_ context.Context, id string) (*storage.ExecutionRecord, error) {
	for _, rec := range m.records {
		if rec.ID == id {
			return &rec, nil
		}
	}

	return nil, errors.Newf(errors.ErrTypeNotFound, "execution %s not found", id)
}

func (m *MockRepository) ListExecutions(_ context.Context, limit, offset int) ([]storage.ExecutionRecord, error) {
	start := offset
	if start >= len(m.records) {
		return []storage.ExecutionRecord{}, nil
	}

	end := start + limit
	if end > len(m.records) {
		end = len(m.records)
	}

	return m.records[start:end], nil
}

func (m *MockRepository) GetStats(_ context.Context) (*storage.Stats, error) {
	if m.stats != nil {
		return m.stats, nil
	}

	return &storage.Stats{
		TotalExecutions: len(m.records),
		DatabaseSizeMB:  1.5,
		TableBreakdown:  map[string]int{},
	}, nil
}

func (m *MockRepository) Clear(_ context.Context) error {
	m.records = nil
	m.cleared = true

	return nil
}

func (m *MockRepository) Close() error {
	m.closed = true
	return nil
}
