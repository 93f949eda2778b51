package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitUnknownLimiter(t *testing.T) {
	m := NewMultiLimiter()

	err := m.Wait(context.Background(), "nope")
	assert.Error(t, err)

	_, err = m.Reserve("nope")
	assert.Error(t, err)

	assert.False(t, m.Allow("nope"))
}

func TestAllowRespectsBurst(t *testing.T) {
	m := NewMultiLimiter()
	// Refill slow enough that the burst is all the test sees.
	m.AddLimiter("slow", 0.001, 2)

	assert.True(t, m.Allow("slow"))
	assert.True(t, m.Allow("slow"))
	assert.False(t, m.Allow("slow"))
}

func TestWaitHonorsContext(t *testing.T) {
	m := NewMultiLimiter()
	m.AddLimiter("slow", 0.001, 1)
	require.NoError(t, m.Wait(context.Background(), "slow"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := m.Wait(ctx, "slow")
	assert.Error(t, err)
}

func TestDefaultLimiterNames(t *testing.T) {
	m := NewDefaultLimiter()

	for _, name := range []string{
		LimiterInstagram,
		LimiterInstagramPublish,
		LimiterAnthropic,
		LimiterUnsplash,
		LimiterRSS,
	} {
		_, err := m.Reserve(name)
		assert.NoError(t, err, name)
	}
}
