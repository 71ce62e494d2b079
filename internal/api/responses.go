package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kosmed/glucose-monitoring-service/internal/db"
	"github.com/kosmed/glucose-monitoring-service/internal/model"
)

// ingestResponse is the body returned for an accepted reading.
type ingestResponse struct {
	Status  string `json:"status"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

// errorResponse mirrors the detail-style error body clients already parse.
type errorResponse struct {
	Detail string `json:"detail"`
}

// readingResponse is the wire form of a persisted reading.
type readingResponse struct {
	ID            string              `json:"id"`
	UserID        string              `json:"userId"`
	DeviceID      string              `json:"deviceId"`
	Timestamp     time.Time           `json:"timestamp"`
	GlucoseValue  int                 `json:"glucoseValue"`
	Confidence    float64             `json:"confidence"`
	SensorData    model.SensorData    `json:"sensorData"`
	BatteryLevel  int                 `json:"batteryLevel"`
	SignalQuality model.SignalQuality `json:"signalQuality"`
	CreatedAt     time.Time           `json:"createdAt"`
}

func toReadingResponse(r *db.GlucoseReading) readingResponse {
	var sensorData model.SensorData
	if len(r.SensorData) > 0 {
		// Stored opaquely; a malformed blob degrades to zero values.
		_ = json.Unmarshal(r.SensorData, &sensorData)
	}

	return readingResponse{
		ID:            r.ID.String(),
		UserID:        r.UserID,
		DeviceID:      r.DeviceID,
		Timestamp:     r.Timestamp,
		GlucoseValue:  r.GlucoseValue,
		Confidence:    r.Confidence,
		SensorData:    sensorData,
		BatteryLevel:  r.BatteryLevel,
		SignalQuality: r.SignalQuality,
		CreatedAt:     r.CreatedAt,
	}
}

func toReadingResponses(readings []*db.GlucoseReading) []readingResponse {
	out := make([]readingResponse, 0, len(readings))
	for _, r := range readings {
		out = append(out, toReadingResponse(r))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
