package testutil

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/kyleking/catalog-chat/internal/draft"
	"github.com/kyleking/catalog-chat/internal/remote"
	"github.com/kyleking/catalog-chat/internal/storage"
)

// MockBackend is a testify mock of the execution backend
type MockBackend struct {
	mock.Mock
}

// Execute records the call and returns the configured response
func (m *MockBackend) Execute(ctx context.Context, strategy string, req draft.Request) (*remote.Response, error) {
	args := m.Called(ctx, strategy, req)

	var resp *remote.Response
	if v := args.Get(0); v != nil {
		resp = v.(*remote.Response)
	}

	return resp, args.Error(1)
}

// MemoryRecorder keeps recorded executions in memory
type MemoryRecorder struct {
	mu      sync.Mutex
	Records []storage.ExecutionRecord
	Err     error
}

// RecordExecution appends rec, or fails with Err when set
func (r *MemoryRecorder) RecordExecution(_ context.Context, rec storage.ExecutionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return r.Err
	}

	r.Records = append(r.Records, rec)

	return nil
}

// Snapshot returns a copy of the recorded executions
func (r *MemoryRecorder) Snapshot() []storage.ExecutionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]storage.ExecutionRecord(nil), r.Records...)
}
