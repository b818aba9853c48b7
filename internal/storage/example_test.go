package storage

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// ExampleDuckDBRepository records one execution and lists the log
func ExampleDuckDBRepository() {
	tempDir, _ := os.MkdirTemp("", "example_test")
	defer os.RemoveAll(tempDir)

	repo, err := NewDuckDBRepository(filepath.Join(tempDir, "history.db"))
	if err != nil {
		log.Fatalf("Failed to create repository: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	if err := repo.Initialize(ctx); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	err = repo.RecordExecution(ctx, ExecutionRecord{
		TableID:  "uso_solo_2021",
		Strategy: "ask/fc/args",
		Payload:  `{"table_identifier":"uso_solo_2021"}`,
		RowCount: 2,
	})
	if err != nil {
		log.Fatalf("Failed to record execution: %v", err)
	}

	records, _ := repo.ListExecutions(ctx, 10, 0)
	for _, rec := range records {
		fmt.Printf("%s via %s: %d rows\n", rec.TableID, rec.Strategy, rec.RowCount)
	}
	// Output: uso_solo_2021 via ask/fc/args: 2 rows
}
