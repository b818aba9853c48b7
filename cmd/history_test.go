package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/catalog-chat/internal/errors"
	"github.com/kyleking/catalog-chat/internal/formatter"
	"github.com/kyleking/catalog-chat/internal/storage"
)

func sampleExecutions() []storage.ExecutionRecord {
	created := time.Date(2024, 9, 14, 12, 0, 0, 0, time.UTC)

	return []storage.ExecutionRecord{
		{
			ID: "exec-2", TableID: "uso_solo_2021", Strategy: "ask", Status: storage.StatusSuccess,
			RowCount: 3, DurationMs: 80, CreatedAt: created.Add(time.Minute), Payload: "{}",
			AnswerText: "3 linhas",
		},
		{
			ID: "exec-1", TableID: "uso_solo_2021", Strategy: "ask/fc/args", Status: storage.StatusError,
			Error: "timeout", DurationMs: 30000, CreatedAt: created, Payload: "{}",
		},
	}
}

func TestRunHistory(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		offset    int
		format    formatter.OutputFormat
		wantLines int
		contains  []string
		wantErr   errors.ErrorType
	}{
		{
			name:      "short listing",
			limit:     10,
			format:    formatter.FormatShort,
			wantLines: 2,
			contains:  []string{"uso_solo_2021  via ask  success  3 rows", "via ask/fc/args  error"},
		},
		{
			name:      "offset skips newest",
			limit:     10,
			offset:    1,
			format:    formatter.FormatShort,
			wantLines: 1,
			contains:  []string{"via ask/fc/args"},
		},
		{
			name:     "long listing",
			limit:    1,
			format:   formatter.FormatLong,
			contains: []string{"ID: exec-2", "Answer: 3 linhas"},
		},
		{
			name:     "past the end",
			limit:    10,
			offset:   5,
			format:   formatter.FormatShort,
			contains: []string{"No executions recorded."},
		},
		{name: "invalid limit", limit: 0, wantErr: errors.ErrTypeValidation},
		{name: "negative offset", limit: 1, offset: -1, wantErr: errors.ErrTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer

			repo := &MockRepository{records: sampleExecutions()}
			err := runHistoryWithStorage(context.Background(), &out, repo, tt.limit, tt.offset, tt.format)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, tt.wantErr))

				return
			}

			require.NoError(t, err)

			for _, want := range tt.contains {
				assert.Contains(t, out.String(), want)
			}

			if tt.wantLines > 0 {
				assert.Len(t, strings.Split(strings.TrimSpace(out.String()), "\n"), tt.wantLines)
			}
		})
	}
}

func TestRunHistoryShow(t *testing.T) {
	repo := &MockRepository{records: sampleExecutions()}

	var out bytes.Buffer

	require.NoError(t, runHistoryShowWithStorage(context.Background(), &out, repo, "exec-1"))
	assert.Contains(t, out.String(), "Error: timeout")

	err := runHistoryShowWithStorage(context.Background(), &out, repo, "missing")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
}

func TestRunMigrate(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewTestDB(t)
	mm := repo.Migrations()

	var buf bytes.Buffer
	require.NoError(t, runMigrate(ctx, &buf, mm, false, -1))
	assert.Contains(t, buf.String(), "  1  applied  Create query log")
	assert.Contains(t, buf.String(), "  2  applied  Index query log by table and time")

	buf.Reset()
	require.NoError(t, runMigrate(ctx, &buf, mm, false, 1))
	assert.Contains(t, buf.String(), "  1  applied  Create query log")
	assert.Contains(t, buf.String(), "  2  pending  Index query log by table and time")

	needs, current, latest, err := mm.NeedsMigration(ctx)
	require.NoError(t, err)
	assert.True(t, needs)
	assert.Equal(t, 1, current)
	assert.Equal(t, 2, latest)

	buf.Reset()
	require.NoError(t, runMigrate(ctx, &buf, mm, true, -1))
	assert.NotContains(t, buf.String(), "pending")

	buf.Reset()
	require.NoError(t, runMigrate(ctx, &buf, mm, false, 0))
	assert.Equal(t, 2, strings.Count(buf.String(), "pending"))

	_, err = repo.ListExecutions(ctx, 10, 0)
	assert.Error(t, err)
}
