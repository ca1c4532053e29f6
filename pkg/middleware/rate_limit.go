package middleware

import (
	"sync"
	"time"

	"voucherdesk/pkg/logger"
)

// KeyedRateLimiter is a sliding window limiter keyed by an arbitrary string,
// such as a page session id.
type KeyedRateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	log      *logger.Logger
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewKeyedRateLimiter(limit int, window time.Duration, log *logger.Logger) *KeyedRateLimiter {
	limiter := &KeyedRateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		log:      log,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

func (rl *KeyedRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *KeyedRateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, timestamps := range rl.requests {
		if len(timestamps) == 0 || now.Sub(timestamps[len(timestamps)-1]) >= rl.window {
			delete(rl.requests, key)
		}
	}
}

func (rl *KeyedRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Allow records an attempt for key and reports whether it fits the window.
// Empty keys are never limited.
func (rl *KeyedRateLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	valid := rl.requests[key][:0]
	for _, ts := range rl.requests[key] {
		if now.Sub(ts) < rl.window {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		rl.log.Warn("Rate limit exceeded", "key", key, "limit", rl.limit, "window", rl.window)
		return false
	}

	rl.requests[key] = append(valid, now)
	return true
}
