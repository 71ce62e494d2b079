package ratelimit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kosmed/glucose-monitoring-service/internal/ratelimit"
)

type fakeCache struct {
	keys      map[string]bool
	existsErr error
	setErr    error
	lastTTL   time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{keys: map[string]bool{}}
}

func (f *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.keys[key], nil
}

func (f *fakeCache) SetWithExpiry(ctx context.Context, key string, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.keys[key] = true
	f.lastTTL = ttl
	return nil
}

func TestTryAcquire_FirstSubmissionAllowed(t *testing.T) {
	cache := newFakeCache()
	limiter := ratelimit.NewDeviceLimiter(cache, 30*time.Second, zap.NewNop())

	if !limiter.TryAcquire(context.Background(), "ARGUS_001234") {
		t.Fatal("Expected first submission to be allowed")
	}
	if cache.lastTTL != 30*time.Second {
		t.Errorf("Expected 30s expiry, got %v", cache.lastTTL)
	}
}

func TestTryAcquire_SecondSubmissionDenied(t *testing.T) {
	cache := newFakeCache()
	limiter := ratelimit.NewDeviceLimiter(cache, 30*time.Second, zap.NewNop())

	if !limiter.TryAcquire(context.Background(), "ARGUS_001234") {
		t.Fatal("Expected first submission to be allowed")
	}
	if limiter.TryAcquire(context.Background(), "ARGUS_001234") {
		t.Error("Expected second submission within the window to be denied")
	}
}

func TestTryAcquire_DevicesAreIndependent(t *testing.T) {
	cache := newFakeCache()
	limiter := ratelimit.NewDeviceLimiter(cache, 30*time.Second, zap.NewNop())

	if !limiter.TryAcquire(context.Background(), "ARGUS_001234") {
		t.Fatal("Expected first device to be allowed")
	}
	if !limiter.TryAcquire(context.Background(), "ARGUS_002468") {
		t.Error("Expected a different device to be allowed")
	}
}

func TestTryAcquire_FailsOpenWhenCacheCheckFails(t *testing.T) {
	cache := newFakeCache()
	cache.existsErr = errors.New("connection refused")
	limiter := ratelimit.NewDeviceLimiter(cache, 30*time.Second, zap.NewNop())

	if !limiter.TryAcquire(context.Background(), "ARGUS_001234") {
		t.Error("Expected limiter to fail open when cache is unavailable")
	}
}

func TestTryAcquire_FailsOpenWhenCacheSetFails(t *testing.T) {
	cache := newFakeCache()
	cache.setErr = errors.New("connection refused")
	limiter := ratelimit.NewDeviceLimiter(cache, 30*time.Second, zap.NewNop())

	if !limiter.TryAcquire(context.Background(), "ARGUS_001234") {
		t.Error("Expected limiter to fail open when the set fails")
	}
}
