package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RateCache is the volatile store backing the per-device gate. Keys expire
// automatically; the limiter holds no state of its own.
type RateCache interface {
	Exists(ctx context.Context, key string) (bool, error)
	SetWithExpiry(ctx context.Context, key string, ttl time.Duration) error
}

// DeviceLimiter allows at most one accepted reading per device per window.
//
// The check and the set are two cache round trips, not an atomic operation.
// Two submissions for the same device racing within that gap can both be
// admitted; the unique (device_id, timestamp) constraint at the storage
// layer remains the authoritative de-duplication boundary, so the race is
// accepted rather than closed with a compare-and-swap.
type DeviceLimiter struct {
	cache  RateCache
	window time.Duration
	logger *zap.Logger
}

// NewDeviceLimiter creates a limiter with the given acceptance window.
func NewDeviceLimiter(cache RateCache, window time.Duration, logger *zap.Logger) *DeviceLimiter {
	return &DeviceLimiter{
		cache:  cache,
		window: window,
		logger: logger,
	}
}

func rateLimitKey(deviceID string) string {
	return "rate_limit:" + deviceID
}

// TryAcquire reports whether a reading from the device may proceed. When the
// cache is unavailable the gate fails open: ingestion availability is
// prioritized over strict rate enforcement.
func (l *DeviceLimiter) TryAcquire(ctx context.Context, deviceID string) bool {
	key := rateLimitKey(deviceID)

	exists, err := l.cache.Exists(ctx, key)
	if err != nil {
		l.logger.Warn("rate limit cache unavailable, failing open",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		return true
	}
	if exists {
		return false
	}

	if err := l.cache.SetWithExpiry(ctx, key, l.window); err != nil {
		l.logger.Warn("failed to set rate limit key, failing open",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	}
	return true
}
