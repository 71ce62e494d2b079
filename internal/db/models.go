package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/kosmed/glucose-monitoring-service/internal/model"
)

// User represents a registered user in the database.
type User struct {
	UserID    string
	CreatedAt time.Time
}

// Device represents a sensing device bound to exactly one user.
type Device struct {
	DeviceID  string
	UserID    string
	CreatedAt time.Time
}

// GlucoseReading represents a persisted glucose reading.
// Timestamp is the device-reported event time (normalized UTC),
// CreatedAt is the store-assigned ingestion time. Rows are immutable.
type GlucoseReading struct {
	ID            uuid.UUID
	UserID        string
	DeviceID      string
	Timestamp     time.Time
	GlucoseValue  int
	Confidence    float64
	SensorData    []byte // serialized model.SensorData, stored opaquely
	BatteryLevel  int
	SignalQuality model.SignalQuality
	CreatedAt     time.Time
}

// GlucoseCount is one row of the grouped-by-value aggregation used by
// the analytics summary.
type GlucoseCount struct {
	GlucoseValue int
	Count        int
}
