package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCallerAccess(t *testing.T) {
	scoped := &caller{repos: []string{"alpha", "beta"}, perm: "ro"}
	assert.True(t, scoped.canAccess("alpha"))
	assert.True(t, scoped.canAccess("beta"))
	assert.False(t, scoped.canAccess("gamma"))
	assert.False(t, scoped.canWrite())

	wildcard := &caller{repos: []string{"*"}, perm: "rw"}
	assert.True(t, wildcard.canAccess("anything"))
	assert.True(t, wildcard.canWrite())
}

func TestRateLimiterWindow(t *testing.T) {
	rl := newRateLimiter(3)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.take("token-a"), "request %d should fit the window", i+1)
	}
	assert.False(t, rl.take("token-a"))

	// Other callers keep their own windows.
	assert.True(t, rl.take("token-b"))

	// An expired window resets the count.
	rl.mu.Lock()
	rl.windows["token-a"].resetAt = time.Now().Add(-time.Second)
	rl.mu.Unlock()
	assert.True(t, rl.take("token-a"))
}

func TestHashTokenStable(t *testing.T) {
	a := HashToken("fvc_secret")
	assert.Equal(t, a, HashToken("fvc_secret"))
	assert.NotEqual(t, a, HashToken("fvc_other"))
	assert.Len(t, a, 64)
}
