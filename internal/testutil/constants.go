// Package testutil provides common constants, catalog fixtures and test doubles
package testutil

import "time"

const (
	// TestTimeout is the default timeout for test operations
	TestTimeout = 30 * time.Second

	// TestWorkers is a common number of concurrent workers in race tests
	TestWorkers = 16
)

// Common test strings
const (
	// TestConversationID is a fixed conversation id for payload assertions
	TestConversationID = "9b2f6c1e-2d1c-4c55-9d55-1c0a7f0e8a11"

	// TestTableID is the id of the first sample row
	TestTableID = "uso_solo_2020"
)
