package p2p

import (
	"sync"
	"time"
)

// RateLimiter is a token bucket limiter.
type RateLimiter struct {
	mu           sync.Mutex
	tokens       int
	maxTokens    int
	refillRate   int
	lastRefill   time.Time
	refillPeriod time.Duration
}

// NewRateLimiter creates a limiter that refills refillRate tokens every
// refillPeriod, capped at maxTokens.
func NewRateLimiter(maxTokens, refillRate int, refillPeriod time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:       maxTokens,
		maxTokens:    maxTokens,
		refillRate:   refillRate,
		lastRefill:   time.Now(),
		refillPeriod: refillPeriod,
	}
}

// Allow consumes a token if one is available.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	refills := int(now.Sub(rl.lastRefill) / rl.refillPeriod)
	if refills > 0 {
		rl.tokens += refills * rl.refillRate
		if rl.tokens > rl.maxTokens {
			rl.tokens = rl.maxTokens
		}
		rl.lastRefill = now
	}

	if rl.tokens > 0 {
		rl.tokens--
		return true
	}
	return false
}

// Tokens returns the number of tokens currently available.
func (rl *RateLimiter) Tokens() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.tokens
}

// Reset restores the limiter to a full bucket.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.tokens = rl.maxTokens
	rl.lastRefill = time.Now()
}

// PeerRateLimiter tracks one token bucket per peer.
type PeerRateLimiter struct {
	mu           sync.RWMutex
	limiters     map[string]*RateLimiter
	maxTokens    int
	refillRate   int
	refillPeriod time.Duration
}

// NewPeerRateLimiter creates a per-peer limiter with shared parameters.
func NewPeerRateLimiter(maxTokens, refillRate int, refillPeriod time.Duration) *PeerRateLimiter {
	return &PeerRateLimiter{
		limiters:     make(map[string]*RateLimiter),
		maxTokens:    maxTokens,
		refillRate:   refillRate,
		refillPeriod: refillPeriod,
	}
}

// Allow consumes a token from the named peer's bucket.
func (prl *PeerRateLimiter) Allow(peerID string) bool {
	prl.mu.Lock()
	limiter, ok := prl.limiters[peerID]
	if !ok {
		limiter = NewRateLimiter(prl.maxTokens, prl.refillRate, prl.refillPeriod)
		prl.limiters[peerID] = limiter
	}
	prl.mu.Unlock()

	return limiter.Allow()
}

// Tokens returns the tokens available to the named peer.
func (prl *PeerRateLimiter) Tokens(peerID string) int {
	prl.mu.RLock()
	limiter, ok := prl.limiters[peerID]
	prl.mu.RUnlock()

	if !ok {
		return prl.maxTokens
	}
	return limiter.Tokens()
}

// Reset restores every peer's bucket.
func (prl *PeerRateLimiter) Reset() {
	prl.mu.Lock()
	for _, limiter := range prl.limiters {
		limiter.Reset()
	}
	prl.mu.Unlock()
}
