package services

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
)

// RateLimitService keeps one token bucket per client identifier. The registry
// is bounded: a cap on tracked clients plus an hourly sweep of buckets that
// have been idle long enough to be full again.
type RateLimitService struct {
	context.DefaultService

	enabled      bool
	capacity     int
	refillAmount int
	refillPeriod time.Duration
	maxClients   int

	buckets map[string]*TokenBucket
	mutex   sync.RWMutex

	stopSweep chan struct{}
}

const RATE_LIMIT_SVC = "rate_limit_svc"

// NewRateLimitService builds a limiter outside the service container.
func NewRateLimitService(capacity, refillAmount int, refillPeriod time.Duration, maxClients int) *RateLimitService {
	return &RateLimitService{
		enabled:      true,
		capacity:     capacity,
		refillAmount: refillAmount,
		refillPeriod: refillPeriod,
		maxClients:   maxClients,
		buckets:      make(map[string]*TokenBucket),
		stopSweep:    make(chan struct{}),
	}
}

func (svc RateLimitService) Id() string {
	return RATE_LIMIT_SVC
}

func (svc *RateLimitService) Configure(ctx *context.Context) error {
	svc.enabled = envBool("RATE_LIMIT_ENABLED", true)
	svc.capacity = envInt("RATE_LIMIT_CAPACITY", 100)
	svc.refillAmount = envInt("RATE_LIMIT_REFILL_AMOUNT", svc.capacity)
	svc.refillPeriod = envDuration("RATE_LIMIT_REFILL_PERIOD", time.Minute)
	svc.maxClients = envInt("RATE_LIMIT_MAX_CLIENTS", 10000)

	svc.buckets = make(map[string]*TokenBucket)
	svc.stopSweep = make(chan struct{})
	return svc.DefaultService.Configure(ctx)
}

func (svc *RateLimitService) Start() error {
	if svc.enabled && svc.capacity <= 0 {
		log.WithField("capacity", svc.capacity).
			Warn("Rate limiter configured with non-positive capacity, all requests will be rejected")
	}

	go svc.startSweepJob()
	return nil
}

func (svc *RateLimitService) Shutdown() {
	close(svc.stopSweep)
}

func (svc *RateLimitService) Enabled() bool {
	return svc.enabled
}

func (svc *RateLimitService) Limit() int {
	return svc.capacity
}

// RetryAfter is the wait until the next refill credit.
func (svc *RateLimitService) RetryAfter() time.Duration {
	return svc.refillPeriod
}

// TryConsume admits or rejects one request for the client. Disabled limiting
// admits without allocating a bucket.
func (svc *RateLimitService) TryConsume(clientID string) bool {
	if !svc.enabled {
		return true
	}
	return svc.bucket(clientID).TryConsume()
}

// AvailableTokens reports remaining tokens for response headers. It never
// consumes a token and never allocates for an unseen client.
func (svc *RateLimitService) AvailableTokens(clientID string) int {
	if !svc.enabled {
		return -1
	}

	svc.mutex.RLock()
	bucket, exists := svc.buckets[clientID]
	svc.mutex.RUnlock()

	if !exists {
		if svc.capacity > 0 {
			return svc.capacity
		}
		return 0
	}
	return bucket.Available()
}

// ClearAll drops every bucket. Administrative/test reset.
func (svc *RateLimitService) ClearAll() {
	svc.mutex.Lock()
	svc.buckets = make(map[string]*TokenBucket)
	svc.mutex.Unlock()
}

func (svc *RateLimitService) bucket(clientID string) *TokenBucket {
	svc.mutex.RLock()
	bucket, exists := svc.buckets[clientID]
	svc.mutex.RUnlock()
	if exists {
		return bucket
	}

	// Double-checked under the write lock so concurrent first requests from
	// one client share a single bucket.
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	if bucket, exists = svc.buckets[clientID]; exists {
		return bucket
	}

	if svc.maxClients > 0 && len(svc.buckets) >= svc.maxClients {
		svc.evictStalestLocked()
	}

	bucket = NewTokenBucket(svc.capacity, svc.refillAmount, svc.refillPeriod)
	svc.buckets[clientID] = bucket
	return bucket
}

func (svc *RateLimitService) evictStalestLocked() {
	var stalestID string
	var stalestAt time.Time

	for id, bucket := range svc.buckets {
		idle := bucket.IdleSince()
		if stalestID == "" || idle.Before(stalestAt) {
			stalestID = id
			stalestAt = idle
		}
	}

	if stalestID != "" {
		delete(svc.buckets, stalestID)
	}
}

// idleCutoff is how long a bucket must sit unused before the sweep may drop
// it: long enough that a fresh bucket is indistinguishable from the old one.
func (svc *RateLimitService) idleCutoff() time.Duration {
	if svc.refillAmount <= 0 || svc.refillPeriod <= 0 {
		return time.Hour
	}

	periods := svc.capacity / svc.refillAmount
	if svc.capacity%svc.refillAmount != 0 {
		periods++
	}
	cutoff := time.Duration(periods) * svc.refillPeriod
	if cutoff < svc.refillPeriod {
		cutoff = svc.refillPeriod
	}
	return cutoff
}

func (svc *RateLimitService) sweepIdleBuckets() int {
	cutoff := time.Now().Add(-svc.idleCutoff())

	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	removed := 0
	for id, bucket := range svc.buckets {
		if bucket.IdleSince().Before(cutoff) {
			delete(svc.buckets, id)
			removed++
		}
	}
	return removed
}

func (svc *RateLimitService) startSweepJob() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := svc.sweepIdleBuckets()
			if removed > 0 {
				log.WithField("removed", removed).Info("Rate limit bucket sweep completed")
			}
		case <-svc.stopSweep:
			return
		}
	}
}

// ==================== ENV HELPERS ====================

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
		log.WithField("key", key).Warnf("Invalid boolean %q, using default", v)
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
		log.WithField("key", key).Warnf("Invalid integer %q, using default", v)
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
		log.WithField("key", key).Warnf("Invalid duration %q, using default", v)
	}
	return fallback
}
