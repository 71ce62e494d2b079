package validator_test

import (
	"testing"
	"time"

	"github.com/kosmed/glucose-monitoring-service/internal/model"
	"github.com/kosmed/glucose-monitoring-service/internal/validator"
)

const (
	testFutureTolerance = 5 * time.Minute
	testMaxReadingAge   = 72 * time.Hour
)

var testNow = time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

func validSubmission() model.ReadingSubmission {
	return model.ReadingSubmission{
		DeviceID:     "ARGUS_001234",
		UserID:       "user_5678",
		Timestamp:    "2026-08-27T11:30:00Z",
		GlucoseValue: 120,
		Confidence:   0.95,
		SensorData: model.SensorData{
			Red:            1234.5,
			Infrared:       2345.6,
			Green:          3456.7,
			Temperature:    36.5,
			MotionArtifact: false,
		},
		BatteryLevel:  85,
		SignalQuality: model.SignalGood,
	}
}

func newValidator() *validator.Validator {
	return validator.NewValidator(testFutureTolerance, testMaxReadingAge)
}

func TestValidateReading_Valid(t *testing.T) {
	ts, result := newValidator().ValidateReading("ARGUS_001234", validSubmission(), testNow)

	if !result.Valid {
		t.Fatalf("Expected valid result, got invalid on %s: %s", result.Field, result.Reason)
	}

	expected := time.Date(2026, 8, 27, 11, 30, 0, 0, time.UTC)
	if !ts.Equal(expected) {
		t.Errorf("Expected normalized timestamp %v, got %v", expected, ts)
	}
}

func TestValidateReading_DeviceMismatch(t *testing.T) {
	_, result := newValidator().ValidateReading("ARGUS_999999", validSubmission(), testNow)

	if result.Valid {
		t.Fatal("Expected invalid result for device ID mismatch")
	}
	if result.Field != "deviceId" {
		t.Errorf("Expected field deviceId, got %s", result.Field)
	}
}

func TestValidateReading_GlucoseTooHigh(t *testing.T) {
	sub := validSubmission()
	sub.GlucoseValue = 401

	_, result := newValidator().ValidateReading(sub.DeviceID, sub, testNow)

	if result.Valid {
		t.Fatal("Expected invalid result for glucose above 400")
	}
	if result.Field != "glucoseValue" {
		t.Errorf("Expected field glucoseValue, got %s", result.Field)
	}
}

func TestValidateReading_GlucoseTooLow(t *testing.T) {
	sub := validSubmission()
	sub.GlucoseValue = 39

	_, result := newValidator().ValidateReading(sub.DeviceID, sub, testNow)

	if result.Valid {
		t.Fatal("Expected invalid result for glucose below 40")
	}
	if result.Field != "glucoseValue" {
		t.Errorf("Expected field glucoseValue, got %s", result.Field)
	}
}

func TestValidateReading_GlucoseBounds(t *testing.T) {
	for _, value := range []int{40, 400} {
		sub := validSubmission()
		sub.GlucoseValue = value

		_, result := newValidator().ValidateReading(sub.DeviceID, sub, testNow)
		if !result.Valid {
			t.Errorf("Expected glucose %d to be valid: %s", value, result.Reason)
		}
	}
}

func TestValidateReading_TimestampTooFarInFuture(t *testing.T) {
	sub := validSubmission()
	sub.Timestamp = testNow.Add(10 * time.Minute).Format(time.RFC3339)

	_, result := newValidator().ValidateReading(sub.DeviceID, sub, testNow)

	if result.Valid {
		t.Fatal("Expected invalid result for timestamp beyond clock-skew tolerance")
	}
	if result.Field != "timestamp" {
		t.Errorf("Expected field timestamp, got %s", result.Field)
	}
}

func TestValidateReading_TimestampWithinSkewTolerance(t *testing.T) {
	sub := validSubmission()
	sub.Timestamp = testNow.Add(4 * time.Minute).Format(time.RFC3339)

	_, result := newValidator().ValidateReading(sub.DeviceID, sub, testNow)

	if !result.Valid {
		t.Errorf("Expected timestamp within 5 minute tolerance to be valid: %s", result.Reason)
	}
}

func TestValidateReading_TimestampTooOld(t *testing.T) {
	sub := validSubmission()
	sub.Timestamp = testNow.Add(-96 * time.Hour).Format(time.RFC3339)

	_, result := newValidator().ValidateReading(sub.DeviceID, sub, testNow)

	if result.Valid {
		t.Fatal("Expected invalid result for timestamp older than 72 hours")
	}
	if result.Field != "timestamp" {
		t.Errorf("Expected field timestamp, got %s", result.Field)
	}
}

func TestValidateReading_TimestampOffsetNormalized(t *testing.T) {
	sub := validSubmission()
	// 13:00 at +02:00 is 11:00 UTC, one hour in the past.
	sub.Timestamp = "2026-08-27T13:00:00+02:00"

	ts, result := newValidator().ValidateReading(sub.DeviceID, sub, testNow)

	if !result.Valid {
		t.Fatalf("Expected valid result, got invalid on %s: %s", result.Field, result.Reason)
	}

	expected := time.Date(2026, 8, 27, 11, 0, 0, 0, time.UTC)
	if !ts.Equal(expected) {
		t.Errorf("Expected normalized timestamp %v, got %v", expected, ts)
	}
}

func TestValidateReading_ConfidencePrecision(t *testing.T) {
	sub := validSubmission()
	sub.Confidence = 0.9557

	_, result := newValidator().ValidateReading(sub.DeviceID, sub, testNow)

	if result.Valid {
		t.Fatal("Expected invalid result for confidence with more than 3 decimal places")
	}
	if result.Field != "confidence" {
		t.Errorf("Expected field confidence, got %s", result.Field)
	}
}

func TestValidateReading_ConfidenceOutOfRange(t *testing.T) {
	sub := validSubmission()
	sub.Confidence = 1.5

	_, result := newValidator().ValidateReading(sub.DeviceID, sub, testNow)

	if result.Valid {
		t.Fatal("Expected invalid result for confidence above 1.0")
	}
}

func TestValidateReading_TemperatureOutOfRange(t *testing.T) {
	sub := validSubmission()
	sub.SensorData.Temperature = 50

	_, result := newValidator().ValidateReading(sub.DeviceID, sub, testNow)

	if result.Valid {
		t.Fatal("Expected invalid result for temperature above 45")
	}
	if result.Field != "sensorData.temperature" {
		t.Errorf("Expected field sensorData.temperature, got %s", result.Field)
	}
}

func TestValidateReading_NegativeSensorChannel(t *testing.T) {
	sub := validSubmission()
	sub.SensorData.Infrared = -1

	_, result := newValidator().ValidateReading(sub.DeviceID, sub, testNow)

	if result.Valid {
		t.Fatal("Expected invalid result for negative sensor channel")
	}
}

func TestValidateReading_UnknownSignalQuality(t *testing.T) {
	sub := validSubmission()
	sub.SignalQuality = "terrible"

	_, result := newValidator().ValidateReading(sub.DeviceID, sub, testNow)

	if result.Valid {
		t.Fatal("Expected invalid result for unknown signal quality")
	}
	if result.Field != "signalQuality" {
		t.Errorf("Expected field signalQuality, got %s", result.Field)
	}
}

func TestValidateReading_BatteryOutOfRange(t *testing.T) {
	sub := validSubmission()
	sub.BatteryLevel = 101

	_, result := newValidator().ValidateReading(sub.DeviceID, sub, testNow)

	if result.Valid {
		t.Fatal("Expected invalid result for battery level above 100")
	}
}

func TestValidateReading_BadTimestampFormat(t *testing.T) {
	sub := validSubmission()
	sub.Timestamp = "yesterday"

	_, result := newValidator().ValidateReading(sub.DeviceID, sub, testNow)

	if result.Valid {
		t.Fatal("Expected invalid result for unparseable timestamp")
	}
	if result.Field != "timestamp" {
		t.Errorf("Expected field timestamp, got %s", result.Field)
	}
}
