package cmd

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/catalog-chat/internal/storage"
)

func TestRunStats(t *testing.T) {
	tests := []struct {
		name     string
		stats    *storage.Stats
		contains []string
	}{
		{
			name: "full stats",
			stats: &storage.Stats{
				TotalExecutions: 12,
				Failed:          2,
				LastExecution:   time.Now().Add(-3 * 24 * time.Hour),
				DatabaseSizeMB:  2.25,
				AvgDurationMs:   140,
				TableBreakdown:  map[string]int{"uso_solo_2021": 8, "ucs_federais": 4},
			},
			contains: []string{
				"Execution History",
				"Executions: 12 (2 failed)",
				"Average duration: 140ms",
				"Last execution: 3 days ago",
				"Database size: 2.25 MB",
				"By table:\n  uso_solo_2021: 8\n  ucs_federais: 4",
			},
		},
		{
			name:     "empty history",
			stats:    &storage.Stats{TableBreakdown: map[string]int{}},
			contains: []string{"Executions: 0 (0 failed)", "Last execution: ?"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer

			require.NoError(t, runStatsWithStorage(context.Background(), &out, &MockRepository{stats: tt.stats}))

			for _, want := range tt.contains {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}
