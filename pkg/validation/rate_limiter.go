package validation

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a per-client token bucket. Each client may burst up to
// maxRequests and refills continuously at maxRequests per window.
type RateLimiter struct {
	maxRequests float64
	window      time.Duration
	now         func() time.Time

	mu      sync.Mutex
	clients map[string]*bucket
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing maxRequests per window per client.
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: float64(maxRequests),
		window:      window,
		now:         time.Now,
		clients:     make(map[string]*bucket),
	}
}

// Allow consumes one token for clientID, reporting whether the request may proceed.
func (rl *RateLimiter) Allow(clientID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.clients[clientID]
	if !ok {
		b = &bucket{tokens: rl.maxRequests, lastSeen: now}
		rl.clients[clientID] = b
	} else if elapsed := now.Sub(b.lastSeen); elapsed > 0 {
		b.tokens += rl.maxRequests * float64(elapsed) / float64(rl.window)
		if b.tokens > rl.maxRequests {
			b.tokens = rl.maxRequests
		}
		b.lastSeen = now
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Prune forgets clients idle for more than two windows.
func (rl *RateLimiter) Prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-2 * rl.window)
	for id, b := range rl.clients {
		if b.lastSeen.Before(cutoff) {
			delete(rl.clients, id)
		}
	}
}

// Run prunes idle clients once per window until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Prune()
		}
	}
}

// Clients returns the number of tracked clients.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}
