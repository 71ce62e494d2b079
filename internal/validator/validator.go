package validator

import (
	"fmt"
	"math"
	"time"

	"github.com/kosmed/glucose-monitoring-service/internal/model"
	"github.com/kosmed/glucose-monitoring-service/tools/timeparser"
)

// ValidationResult holds the validation outcome. When Valid is false,
// Field names the offending field and Reason explains the failure.
type ValidationResult struct {
	Valid  bool
	Field  string
	Reason string
}

// Validator checks submitted readings against structural and
// medical-plausibility rules. It performs no I/O; the current time is
// injected by the caller so validation stays deterministic.
type Validator struct {
	futureTolerance time.Duration
	maxReadingAge   time.Duration
}

// NewValidator creates a validator with the given timestamp bounds.
func NewValidator(futureTolerance, maxReadingAge time.Duration) *Validator {
	return &Validator{
		futureTolerance: futureTolerance,
		maxReadingAge:   maxReadingAge,
	}
}

func invalid(field, format string, args ...interface{}) ValidationResult {
	return ValidationResult{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ValidateReading validates a single submitted reading. pathDeviceID is the
// device ID from the request path, which must match the one in the body.
// On success it returns the reading timestamp normalized to UTC.
func (v *Validator) ValidateReading(pathDeviceID string, sub model.ReadingSubmission, now time.Time) (time.Time, ValidationResult) {
	if sub.DeviceID != pathDeviceID {
		return time.Time{}, invalid("deviceId", "device ID in URL must match deviceId in request body")
	}

	if sub.DeviceID == "" {
		return time.Time{}, invalid("deviceId", "deviceId must not be empty")
	}
	if sub.UserID == "" {
		return time.Time{}, invalid("userId", "userId must not be empty")
	}

	if sub.GlucoseValue < 40 || sub.GlucoseValue > 400 {
		return time.Time{}, invalid("glucoseValue", "glucose value %d mg/dL is outside the medically valid range 40-400", sub.GlucoseValue)
	}
	if sub.Confidence < 0 || sub.Confidence > 1 {
		return time.Time{}, invalid("confidence", "confidence must be between 0.0 and 1.0")
	}
	if sub.BatteryLevel < 0 || sub.BatteryLevel > 100 {
		return time.Time{}, invalid("batteryLevel", "battery level must be between 0 and 100")
	}
	if sub.SensorData.Red < 0 {
		return time.Time{}, invalid("sensorData.red", "sensor channel reading must not be negative")
	}
	if sub.SensorData.Infrared < 0 {
		return time.Time{}, invalid("sensorData.infrared", "sensor channel reading must not be negative")
	}
	if sub.SensorData.Green < 0 {
		return time.Time{}, invalid("sensorData.green", "sensor channel reading must not be negative")
	}
	if sub.SensorData.Temperature < 30 || sub.SensorData.Temperature > 45 {
		return time.Time{}, invalid("sensorData.temperature", "temperature must be between 30 and 45 degrees Celsius")
	}
	if !sub.SignalQuality.IsValid() {
		return time.Time{}, invalid("signalQuality", "signal quality must be one of excellent, good, fair, poor")
	}

	readingTime, err := timeparser.ParseReadingTimestamp(sub.Timestamp)
	if err != nil {
		return time.Time{}, invalid("timestamp", "invalid timestamp format: %v", err)
	}
	if readingTime.After(now.Add(v.futureTolerance)) {
		return time.Time{}, invalid("timestamp", "timestamp %s is in the future", readingTime.Format(time.RFC3339))
	}
	if readingTime.Before(now.Add(-v.maxReadingAge)) {
		return time.Time{}, invalid("timestamp", "timestamp %s is too old, readings older than %s are not accepted", readingTime.Format(time.RFC3339), v.maxReadingAge)
	}

	if math.Round(sub.Confidence*1000)/1000 != sub.Confidence {
		return time.Time{}, invalid("confidence", "confidence should not have more than 3 decimal places")
	}

	return readingTime, ValidationResult{Valid: true}
}
