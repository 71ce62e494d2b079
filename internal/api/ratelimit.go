package api

import (
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// callerLimiter pairs a token bucket with its last access time so idle
// entries can be evicted.
type callerLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RequestLimiter applies a per-caller token bucket across the whole API.
// It is a transport-level guard, separate from the per-device ingestion
// gate, and does not alter that gate's semantics.
type RequestLimiter struct {
	perSecond rate.Limit
	burst     int
	logger    *zap.Logger

	mu       sync.Mutex
	limiters map[string]*callerLimiter

	stopCh chan struct{}
}

// NewRequestLimiter creates a limiter allowing requestsPerMinute per caller
// with the given burst. A background loop evicts entries idle for over an
// hour.
func NewRequestLimiter(requestsPerMinute, burst int, logger *zap.Logger) *RequestLimiter {
	rl := &RequestLimiter{
		perSecond: rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:     burst,
		logger:    logger,
		limiters:  make(map[string]*callerLimiter),
		stopCh:    make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop terminates the cleanup loop.
func (rl *RequestLimiter) Stop() {
	close(rl.stopCh)
}

// Middleware rejects requests exceeding the caller's budget with 429.
func (rl *RequestLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := callerIdentity(r)
		if caller == "" {
			// Unauthenticated requests are rejected by the auth middleware.
			next.ServeHTTP(w, r)
			return
		}

		if !rl.allow(caller) {
			rl.logger.Warn("api request limit exceeded", zap.String("path", r.URL.Path))
			writeError(w, http.StatusTooManyRequests, "Too many requests. Please slow down.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RequestLimiter) allow(caller string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.limiters[caller]
	if !ok {
		cl = &callerLimiter{limiter: rate.NewLimiter(rl.perSecond, rl.burst)}
		rl.limiters[caller] = cl
	}
	cl.lastAccess = time.Now()
	return cl.limiter.Allow()
}

func (rl *RequestLimiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := time.Now().Add(-time.Hour)
			for caller, cl := range rl.limiters {
				if cl.lastAccess.Before(cutoff) {
					delete(rl.limiters, caller)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}
