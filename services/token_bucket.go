package services

import (
	"sync"
	"time"
)

// TokenBucket is the admission primitive for a single client identifier.
// Refill is lazy: tokens are credited on access for whole refill periods
// elapsed since the last credit, never by a background timer.
type TokenBucket struct {
	capacity     int
	refillAmount int
	refillPeriod time.Duration

	available  int
	lastRefill time.Time
	lastAccess time.Time
	mutex      sync.Mutex

	now func() time.Time
}

func NewTokenBucket(capacity, refillAmount int, refillPeriod time.Duration) *TokenBucket {
	b := &TokenBucket{
		capacity:     capacity,
		refillAmount: refillAmount,
		refillPeriod: refillPeriod,
		now:          time.Now,
	}
	if capacity > 0 {
		b.available = capacity
	}
	b.lastRefill = b.now()
	b.lastAccess = b.lastRefill
	return b
}

// TryConsume takes one token if available. A false result is the normal
// "limit exceeded" outcome, not an error.
func (b *TokenBucket) TryConsume() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	// A non-positive capacity or period is a deny-all bucket. Refill math is
	// skipped entirely so a zero period can never divide.
	if b.capacity <= 0 || b.refillPeriod <= 0 {
		return false
	}

	b.refillLocked()
	b.lastAccess = b.now()

	if b.available < 1 {
		return false
	}
	b.available--
	return true
}

// Available reports the current token count without consuming one.
func (b *TokenBucket) Available() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.capacity <= 0 || b.refillPeriod <= 0 {
		return 0
	}

	b.refillLocked()
	return b.available
}

// IdleSince reports when the bucket was last asked for a token.
func (b *TokenBucket) IdleSince() time.Time {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.lastAccess
}

func (b *TokenBucket) refillLocked() {
	if b.refillAmount <= 0 {
		return
	}

	elapsed := b.now().Sub(b.lastRefill)
	periods := int64(elapsed / b.refillPeriod)
	if periods <= 0 {
		return
	}

	added := periods * int64(b.refillAmount)
	if added > int64(b.capacity) {
		added = int64(b.capacity)
	}

	b.available += int(added)
	if b.available > b.capacity {
		b.available = b.capacity
	}

	// Advance by whole periods only so fractional elapsed time keeps
	// accruing toward the next credit.
	b.lastRefill = b.lastRefill.Add(time.Duration(periods) * b.refillPeriod)
}
