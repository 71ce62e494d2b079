package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kosmed/glucose-monitoring-service/internal/analytics"
	"github.com/kosmed/glucose-monitoring-service/internal/db"
)

// ErrNoReadings means the user has no persisted readings.
var ErrNoReadings = errors.New("no glucose readings found")

// periodDurations maps the supported history/summary periods.
var periodDurations = map[string]time.Duration{
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
}

// QueryService serves derived views over persisted readings: the current
// value, bounded history, device pages, and analytics summaries.
type QueryService struct {
	store           ReadingStore
	aggregator      *analytics.Aggregator
	defaultPeriod   string
	maxPageSize     int
	defaultPageSize int
	logger          *zap.Logger
	now             func() time.Time
}

// NewQueryService creates the query service. Unrecognized period strings
// fall back to defaultPeriod.
func NewQueryService(
	store ReadingStore,
	aggregator *analytics.Aggregator,
	defaultPeriod string,
	maxPageSize, defaultPageSize int,
	logger *zap.Logger,
	now func() time.Time,
) *QueryService {
	return &QueryService{
		store:           store,
		aggregator:      aggregator,
		defaultPeriod:   defaultPeriod,
		maxPageSize:     maxPageSize,
		defaultPageSize: defaultPageSize,
		logger:          logger,
		now:             now,
	}
}

// resolvePeriod maps a period string to its duration, falling back to the
// default for anything unrecognized.
func (s *QueryService) resolvePeriod(period string) (string, time.Duration) {
	if d, ok := periodDurations[period]; ok {
		return period, d
	}
	return s.defaultPeriod, periodDurations[s.defaultPeriod]
}

// CurrentReading returns the most recent reading for a user. A user with no
// readings is a not-found outcome, not an empty reading.
func (s *QueryService) CurrentReading(ctx context.Context, userID string) (*db.GlucoseReading, error) {
	reading, err := s.store.MostRecentReading(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query current reading: %w", err)
	}
	if reading == nil {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNoReadings)
	}
	return reading, nil
}

// History returns all readings for a user within the period, newest first,
// plus the period actually applied. An empty list is a valid result.
func (s *QueryService) History(ctx context.Context, userID, period string) ([]*db.GlucoseReading, string, error) {
	applied, d := s.resolvePeriod(period)
	since := s.now().Add(-d)

	readings, err := s.store.ReadingsForUserSince(ctx, userID, since)
	if err != nil {
		return nil, applied, fmt.Errorf("failed to query history: %w", err)
	}
	return readings, applied, nil
}

// DeviceReadings returns a page of readings for a device, newest first.
// limit is capped at the configured maximum; non-positive values use the
// default page size, negative offsets are treated as zero.
func (s *QueryService) DeviceReadings(ctx context.Context, deviceID string, limit, offset int) ([]*db.GlucoseReading, error) {
	if limit <= 0 {
		limit = s.defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	readings, err := s.store.ReadingsForDevice(ctx, deviceID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query device readings: %w", err)
	}
	return readings, nil
}

// Summary computes the analytics summary for a user over the period.
func (s *QueryService) Summary(ctx context.Context, userID, period string) (analytics.Summary, error) {
	applied, d := s.resolvePeriod(period)
	windowStart := s.now().Add(-d)
	return s.aggregator.Summarize(ctx, userID, applied, windowStart)
}
