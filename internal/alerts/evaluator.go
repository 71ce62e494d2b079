package alerts

import (
	"fmt"
	"math"
	"time"

	"github.com/kosmed/glucose-monitoring-service/internal/db"
	"github.com/kosmed/glucose-monitoring-service/internal/model"
)

// AlertType classifies an emitted alert.
type AlertType string

const (
	AlertLowGlucose  AlertType = "LOW_GLUCOSE"
	AlertHighGlucose AlertType = "HIGH_GLUCOSE"
	AlertRapidChange AlertType = "RAPID_CHANGE"
	// AlertLowQuality is an informational audit notice, not a medical alert.
	AlertLowQuality AlertType = "LOW_QUALITY"
)

// Alert is one event produced by evaluating a persisted reading.
// Alerts are recorded for observability and never affect the ingestion
// outcome.
type Alert struct {
	Type         AlertType `json:"type"`
	UserID       string    `json:"userId"`
	DeviceID     string    `json:"deviceId"`
	ReadingID    string    `json:"readingId"`
	GlucoseValue int       `json:"glucoseValue"`
	Timestamp    time.Time `json:"timestamp"`
	Message      string    `json:"message"`
}

// Thresholds are the per-user alert boundaries. Low and High are mg/dL,
// RapidChangeRate is mg/dL per minute.
type Thresholds struct {
	Low             int     `json:"low"`
	High            int     `json:"high"`
	RapidChangeRate float64 `json:"rapidChangeRate"`
}

// Evaluator compares persisted readings against per-user thresholds.
// Thresholds are read-only reference data injected at construction;
// there is no ambient state and no I/O.
type Evaluator struct {
	defaults  Thresholds
	overrides map[string]Thresholds
	// LowQualityConfidence is the confidence floor below which a reading
	// is flagged as low quality.
	lowQualityConfidence float64
}

// NewEvaluator creates an evaluator with the given default thresholds and
// per-user overrides.
func NewEvaluator(defaults Thresholds, overrides map[string]Thresholds) *Evaluator {
	return &Evaluator{
		defaults:             defaults,
		overrides:            overrides,
		lowQualityConfidence: 0.75,
	}
}

// ThresholdsFor returns the thresholds for a user, falling back to the
// defaults when no override is configured.
func (e *Evaluator) ThresholdsFor(userID string) Thresholds {
	if t, ok := e.overrides[userID]; ok {
		return t
	}
	return e.defaults
}

// Evaluate produces zero or more alerts for a just-persisted reading.
// prev is the most recent reading for the same user strictly before the new
// one, or nil when none exists. All rules are independent; low and high are
// mutually exclusive because low < high.
func (e *Evaluator) Evaluate(reading *db.GlucoseReading, prev *db.GlucoseReading) []Alert {
	th := e.ThresholdsFor(reading.UserID)

	var out []Alert
	emit := func(t AlertType, msg string) {
		out = append(out, Alert{
			Type:         t,
			UserID:       reading.UserID,
			DeviceID:     reading.DeviceID,
			ReadingID:    reading.ID.String(),
			GlucoseValue: reading.GlucoseValue,
			Timestamp:    reading.Timestamp,
			Message:      msg,
		})
	}

	if reading.GlucoseValue < th.Low {
		emit(AlertLowGlucose, fmt.Sprintf("glucose %d mg/dL below threshold %d", reading.GlucoseValue, th.Low))
	} else if reading.GlucoseValue > th.High {
		emit(AlertHighGlucose, fmt.Sprintf("glucose %d mg/dL above threshold %d", reading.GlucoseValue, th.High))
	}

	if prev != nil && prev.Timestamp.Before(reading.Timestamp) {
		deltaMinutes := reading.Timestamp.Sub(prev.Timestamp).Minutes()
		if deltaMinutes > 0 {
			rate := math.Abs(float64(reading.GlucoseValue-prev.GlucoseValue)) / deltaMinutes
			if rate >= th.RapidChangeRate {
				emit(AlertRapidChange, fmt.Sprintf("glucose changed %.1f mg/dL per minute over %.1f minutes", rate, deltaMinutes))
			}
		}
	}

	if reading.Confidence < e.lowQualityConfidence ||
		reading.SignalQuality == model.SignalPoor || reading.SignalQuality == model.SignalFair {
		emit(AlertLowQuality, fmt.Sprintf("low quality reading: confidence %.3f, signal %s", reading.Confidence, reading.SignalQuality))
	}

	return out
}
