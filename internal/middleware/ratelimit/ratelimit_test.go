package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowWithinBudget(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 5})

	for i := 0; i < 5; i++ {
		assert.True(t, rl.allow("10.0.0.1"), "request %d should pass", i+1)
	}
	assert.False(t, rl.allow("10.0.0.1"))
}

func TestAllowIsolatesClients(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 1})

	assert.True(t, rl.allow("10.0.0.1"))
	assert.False(t, rl.allow("10.0.0.1"))

	// A different client has its own bucket.
	assert.True(t, rl.allow("10.0.0.2"))
}
