package services

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClockedBucket(clock *fakeClock, capacity, refillAmount int, refillPeriod time.Duration) *TokenBucket {
	b := NewTokenBucket(capacity, refillAmount, refillPeriod)
	b.now = clock.Now
	b.lastRefill = clock.Now()
	b.lastAccess = clock.Now()
	return b
}

func TestTokenBucketMonotonicity(t *testing.T) {
	clock := newFakeClock()
	bucket := newClockedBucket(clock, 5, 5, time.Minute)

	for i := 0; i < 5; i++ {
		assert.True(t, bucket.TryConsume(), "consume %d should succeed", i+1)
	}

	assert.False(t, bucket.TryConsume(), "consume beyond capacity must fail")
	assert.Equal(t, 0, bucket.Available())

	// A failed consume must not drive the count negative.
	assert.False(t, bucket.TryConsume())
	assert.Equal(t, 0, bucket.Available())
}

func TestTokenBucketRefillExact(t *testing.T) {
	clock := newFakeClock()
	bucket := newClockedBucket(clock, 5, 5, time.Minute)

	for i := 0; i < 5; i++ {
		require.True(t, bucket.TryConsume())
	}
	require.Equal(t, 0, bucket.Available())

	// Just short of a full period credits nothing.
	clock.Advance(59 * time.Second)
	assert.Equal(t, 0, bucket.Available())

	clock.Advance(1 * time.Second)
	assert.Equal(t, 5, bucket.Available())

	// Never above capacity, even after a long idle stretch.
	clock.Advance(10 * time.Minute)
	assert.Equal(t, 5, bucket.Available())
}

func TestTokenBucketPartialElapsedAccrues(t *testing.T) {
	clock := newFakeClock()
	bucket := newClockedBucket(clock, 5, 1, time.Minute)

	for i := 0; i < 5; i++ {
		require.True(t, bucket.TryConsume())
	}

	// 90s is one whole period plus 30s of remainder.
	clock.Advance(90 * time.Second)
	assert.Equal(t, 1, bucket.Available())

	// The 30s remainder was not discarded: 30s more completes period two.
	clock.Advance(30 * time.Second)
	assert.Equal(t, 2, bucket.Available())
}

func TestTokenBucketZeroCapacityDeniesAll(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		bucket := NewTokenBucket(capacity, 5, time.Minute)
		assert.False(t, bucket.TryConsume())
		assert.Equal(t, 0, bucket.Available())
	}
}

func TestTokenBucketZeroPeriodDeniesAll(t *testing.T) {
	bucket := NewTokenBucket(5, 5, 0)
	assert.False(t, bucket.TryConsume())
	assert.Equal(t, 0, bucket.Available())
}

func TestTokenBucketConcurrentConsume(t *testing.T) {
	const capacity = 50
	const workers = 200

	clock := newFakeClock()
	bucket := newClockedBucket(clock, capacity, capacity, time.Minute)

	var successes int64
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if bucket.TryConsume() {
				atomic.AddInt64(&successes, 1)
			}
		}()
	}

	close(start)
	wg.Wait()

	assert.Equal(t, int64(capacity), successes, "exactly capacity consumes must win")
	assert.Equal(t, 0, bucket.Available())
}
