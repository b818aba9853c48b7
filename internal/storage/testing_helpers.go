package storage

import (
	"context"
	"path/filepath"
	"testing"
)

// NewTestDB creates a migrated execution log in a temporary directory.
// The repository is closed when the test finishes.
func NewTestDB(t *testing.T) *DuckDBRepository {
	t.Helper()

	repo, err := NewDuckDBRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("failed to close test repository: %v", err)
		}
	})

	if err := repo.Initialize(context.Background()); err != nil {
		t.Fatalf("failed to initialize test repository: %v", err)
	}

	return repo
}

// NewTestDBWithData creates a test log pre-seeded with records
func NewTestDBWithData(t *testing.T, records []ExecutionRecord) *DuckDBRepository {
	t.Helper()

	repo := NewTestDB(t)

	for _, rec := range records {
		if err := repo.RecordExecution(context.Background(), rec); err != nil {
			t.Fatalf("failed to store test record %s: %v", rec.ID, err)
		}
	}

	return repo
}
