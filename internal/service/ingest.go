package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kosmed/glucose-monitoring-service/internal/alerts"
	"github.com/kosmed/glucose-monitoring-service/internal/db"
	"github.com/kosmed/glucose-monitoring-service/internal/logging"
	"github.com/kosmed/glucose-monitoring-service/internal/model"
	"github.com/kosmed/glucose-monitoring-service/internal/repository"
	"github.com/kosmed/glucose-monitoring-service/internal/validator"
)

// ReadingStore is the durable record store consumed by the pipeline and the
// query service. The relational store is the sole owner of persisted
// readings; this core holds no durable state of its own.
type ReadingStore interface {
	UserExists(ctx context.Context, userID string) (bool, error)
	DeviceOwnedBy(ctx context.Context, deviceID, userID string) (bool, error)
	InsertReading(ctx context.Context, reading *db.GlucoseReading) (uuid.UUID, error)
	MostRecentReading(ctx context.Context, userID string) (*db.GlucoseReading, error)
	MostRecentBefore(ctx context.Context, userID string, ts time.Time) (*db.GlucoseReading, error)
	ReadingsForDevice(ctx context.Context, deviceID string, limit, offset int) ([]*db.GlucoseReading, error)
	ReadingsForUserSince(ctx context.Context, userID string, since time.Time) ([]*db.GlucoseReading, error)
}

// DeviceGate is the per-device submission rate limiter.
type DeviceGate interface {
	TryAcquire(ctx context.Context, deviceID string) bool
}

// AlertSink records emitted alerts for observability. Sink failures never
// affect the ingestion outcome.
type AlertSink interface {
	RecordAlert(ctx context.Context, alert alerts.Alert) error
}

// IngestMetrics counts pipeline outcomes and emitted alerts.
type IngestMetrics interface {
	RecordIngestOutcome(outcome string)
	RecordAlertEmitted(alertType string)
}

// Outcome labels reported to metrics.
const (
	OutcomeAccepted         = "accepted"
	OutcomeValidationFailed = "validation_failed"
	OutcomeOwnershipFailed  = "ownership_failed"
	OutcomeRateLimited      = "rate_limited"
	OutcomeDuplicate        = "duplicate"
	OutcomeStorageError     = "storage_error"
)

// ValidationError reports a submission that failed a structural or
// medical-plausibility check, naming the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

var (
	// ErrUnknownUser means the submitted userId is not registered.
	ErrUnknownUser = errors.New("user does not exist")
	// ErrDeviceNotOwned means the device is unknown or belongs to another user.
	ErrDeviceNotOwned = errors.New("device does not exist or does not belong to user")
	// ErrRateLimited means the device already submitted a reading within the
	// current window.
	ErrRateLimited = errors.New("rate limit exceeded for device")
)

// IngestService orchestrates a single incoming reading:
// validate, check ownership, rate limit, persist, evaluate alerts.
type IngestService struct {
	store     ReadingStore
	gate      DeviceGate
	validator *validator.Validator
	evaluator *alerts.Evaluator
	sink      AlertSink
	metrics   IngestMetrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewIngestService creates the ingestion pipeline. now is injected so the
// validation and alert paths stay deterministic under test; pass time.Now
// in production.
func NewIngestService(
	store ReadingStore,
	gate DeviceGate,
	v *validator.Validator,
	evaluator *alerts.Evaluator,
	sink AlertSink,
	metrics IngestMetrics,
	logger *zap.Logger,
	now func() time.Time,
) *IngestService {
	return &IngestService{
		store:     store,
		gate:      gate,
		validator: v,
		evaluator: evaluator,
		sink:      sink,
		metrics:   metrics,
		logger:    logger,
		now:       now,
	}
}

// Ingest processes one submitted reading. On success it returns the persisted
// reading with its store-assigned ID and ingestion time. A reading is either
// fully persisted with all validated fields or not persisted at all.
func (s *IngestService) Ingest(ctx context.Context, pathDeviceID string, sub model.ReadingSubmission) (*db.GlucoseReading, error) {
	now := s.now()
	log := logging.WithDevice(s.logger, sub.DeviceID, sub.UserID)

	readingTime, result := s.validator.ValidateReading(pathDeviceID, sub, now)
	if !result.Valid {
		s.metrics.RecordIngestOutcome(OutcomeValidationFailed)
		return nil, &ValidationError{Field: result.Field, Reason: result.Reason}
	}

	// Ownership is confirmed before any rate-limit state is touched, so a
	// rejected submission never consumes the device's window.
	userOK, err := s.store.UserExists(ctx, sub.UserID)
	if err != nil {
		s.metrics.RecordIngestOutcome(OutcomeStorageError)
		return nil, fmt.Errorf("failed to check user: %w", err)
	}
	if !userOK {
		s.metrics.RecordIngestOutcome(OutcomeOwnershipFailed)
		return nil, fmt.Errorf("user %s: %w", sub.UserID, ErrUnknownUser)
	}

	deviceOK, err := s.store.DeviceOwnedBy(ctx, sub.DeviceID, sub.UserID)
	if err != nil {
		s.metrics.RecordIngestOutcome(OutcomeStorageError)
		return nil, fmt.Errorf("failed to check device ownership: %w", err)
	}
	if !deviceOK {
		s.metrics.RecordIngestOutcome(OutcomeOwnershipFailed)
		return nil, fmt.Errorf("device %s: %w", sub.DeviceID, ErrDeviceNotOwned)
	}

	if !s.gate.TryAcquire(ctx, sub.DeviceID) {
		s.metrics.RecordIngestOutcome(OutcomeRateLimited)
		return nil, fmt.Errorf("device %s: %w", sub.DeviceID, ErrRateLimited)
	}

	sensorData, err := json.Marshal(sub.SensorData)
	if err != nil {
		s.metrics.RecordIngestOutcome(OutcomeStorageError)
		return nil, fmt.Errorf("failed to serialize sensor data: %w", err)
	}

	reading := &db.GlucoseReading{
		UserID:        sub.UserID,
		DeviceID:      sub.DeviceID,
		Timestamp:     readingTime,
		GlucoseValue:  sub.GlucoseValue,
		Confidence:    sub.Confidence,
		SensorData:    sensorData,
		BatteryLevel:  sub.BatteryLevel,
		SignalQuality: sub.SignalQuality,
	}

	if _, err := s.store.InsertReading(ctx, reading); err != nil {
		if errors.Is(err, repository.ErrDuplicateReading) {
			s.metrics.RecordIngestOutcome(OutcomeDuplicate)
			return nil, err
		}
		s.metrics.RecordIngestOutcome(OutcomeStorageError)
		return nil, fmt.Errorf("failed to persist reading: %w", err)
	}

	s.metrics.RecordIngestOutcome(OutcomeAccepted)
	log.Info("glucose reading accepted",
		zap.String("reading_id", reading.ID.String()),
		zap.Int("glucose_value", reading.GlucoseValue),
	)

	// Alerting is observational: it runs only after successful persistence
	// and its failures degrade to "no alert evaluated".
	s.evaluateAlerts(ctx, reading, log)

	return reading, nil
}

func (s *IngestService) evaluateAlerts(ctx context.Context, reading *db.GlucoseReading, log *zap.Logger) {
	prev, err := s.store.MostRecentBefore(ctx, reading.UserID, reading.Timestamp)
	if err != nil {
		log.Warn("failed to fetch previous reading, skipping alert evaluation", zap.Error(err))
		return
	}

	for _, alert := range s.evaluator.Evaluate(reading, prev) {
		s.metrics.RecordAlertEmitted(string(alert.Type))

		if alert.Type == alerts.AlertLowQuality {
			log.Info("low quality reading received", zap.String("detail", alert.Message))
		} else {
			log.Warn(string(alert.Type),
				zap.Int("glucose_value", alert.GlucoseValue),
				zap.String("detail", alert.Message),
			)
		}

		if err := s.sink.RecordAlert(ctx, alert); err != nil {
			log.Warn("failed to record alert",
				zap.String("alert_type", string(alert.Type)),
				zap.Error(err),
			)
		}
	}
}
