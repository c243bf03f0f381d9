package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelayDoubles(t *testing.T) {
	assert.Equal(t, 2*time.Minute, BackoffDelay(1))
	assert.Equal(t, 4*time.Minute, BackoffDelay(2))
	assert.Equal(t, 8*time.Minute, BackoffDelay(3))
}

func TestBackoffDelayStrictlyIncreases(t *testing.T) {
	prev := time.Duration(0)
	for attempts := 1; attempts <= 10; attempts++ {
		d := BackoffDelay(attempts)
		assert.Greater(t, d, prev, "attempts=%d", attempts)
		prev = d
	}
}

// Claim atomicity (two concurrent Dequeue calls partitioning pending jobs
// without overlap) rides on SELECT ... FOR UPDATE SKIP LOCKED and needs a
// real Postgres. See the service package for the contract exercised
// against the in-memory fake.
func TestQueueRepositoryIntegration(t *testing.T) {
	t.Skip("Integration tests require database setup")
}
