package testutil

import (
	"sync"
	"sync/atomic"
	"testing"
)

// RunConcurrent starts n workers, releases them together and waits for all
// of them. A panicking worker fails the test.
func RunConcurrent(t *testing.T, n int, fn func(workerID int)) {
	t.Helper()

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
	)

	for i := range n {
		wg.Add(1)

		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("worker %d panicked: %v", i, r)
				}
			}()

			<-start
			fn(i)
		}()
	}

	close(start)
	wg.Wait()
}

// AssertNoRaces calls fn from n workers at once, repeating a few rounds so
// `go test -race` sees overlapping access. Workers stop after the first
// failed round. Skipped in short mode.
func AssertNoRaces(t *testing.T, fn func(), n int) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping concurrent access test in short mode")
	}

	const rounds = 5

	var failed atomic.Bool

	RunConcurrent(t, n, func(int) {
		for range rounds {
			if failed.Load() {
				return
			}

			fn()

			if t.Failed() {
				failed.Store(true)
			}
		}
	})
}
