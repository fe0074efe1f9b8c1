package lock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestKeyedMutualExclusion tests that holders of the same key serialize
func TestKeyedMutualExclusion(t *testing.T) {
	locks := NewKeyed()

	const workers = 32
	counter := 0
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			release := locks.Acquire("PAT-1")
			defer release()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

// TestKeyedIndependentKeys tests that distinct keys do not block each other
func TestKeyedIndependentKeys(t *testing.T) {
	locks := NewKeyed()

	releaseA := locks.Acquire("PAT-A")
	defer releaseA()

	done := make(chan struct{})
	go func() {
		release := locks.Acquire("PAT-B")
		release()
		close(done)
	}()

	<-done
}

// TestKeyedEntryCleanup tests that entries are dropped after the last release
func TestKeyedEntryCleanup(t *testing.T) {
	locks := NewKeyed()

	release := locks.Acquire("PAT-1")
	release()

	locks.mu.Lock()
	remaining := len(locks.entries)
	locks.mu.Unlock()
	assert.Equal(t, 0, remaining)
}

// TestKeyedReleaseIdempotent tests that calling release twice is harmless
func TestKeyedReleaseIdempotent(t *testing.T) {
	locks := NewKeyed()

	release := locks.Acquire("PAT-1")
	release()
	release()

	// The key is free again.
	second := locks.Acquire("PAT-1")
	second()
}
