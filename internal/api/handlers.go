package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kosmed/glucose-monitoring-service/internal/model"
	"github.com/kosmed/glucose-monitoring-service/internal/repository"
	"github.com/kosmed/glucose-monitoring-service/internal/service"
)

const serviceVersion = "1.0.0"

// Handler holds the HTTP handlers for the glucose API.
type Handler struct {
	ingest      *service.IngestService
	query       *service.QueryService
	serviceName string
	logger      *zap.Logger
}

// NewHandler creates the API handler set.
func NewHandler(ingest *service.IngestService, query *service.QueryService, serviceName string, logger *zap.Logger) *Handler {
	return &Handler{
		ingest:      ingest,
		query:       query,
		serviceName: serviceName,
		logger:      logger,
	}
}

// CreateReading handles POST /api/v1/devices/{deviceID}/readings.
func (h *Handler) CreateReading(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	var sub model.ReadingSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	reading, err := h.ingest.Ingest(r.Context(), deviceID, sub)
	if err != nil {
		h.respondIngestError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ingestResponse{
		Status:  "processed",
		ID:      reading.ID.String(),
		Message: "Glucose reading saved successfully",
	})
}

func (h *Handler) respondIngestError(w http.ResponseWriter, err error) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s: %s", validationErr.Field, validationErr.Reason))
	case errors.Is(err, service.ErrUnknownUser), errors.Is(err, service.ErrDeviceNotOwned):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Device can only submit one reading every 30 seconds.")
	case errors.Is(err, repository.ErrDuplicateReading):
		writeError(w, http.StatusConflict, "A reading for this device at this timestamp already exists. Duplicate readings are not allowed.")
	default:
		h.logger.Error("failed to save glucose reading", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to save glucose reading")
	}
}

// ListDeviceReadings handles GET /api/v1/devices/{deviceID}/readings.
func (h *Handler) ListDeviceReadings(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	readings, err := h.query.DeviceReadings(r.Context(), deviceID, limit, offset)
	if err != nil {
		h.logger.Error("failed to get device readings", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to get device readings")
		return
	}

	writeJSON(w, http.StatusOK, toReadingResponses(readings))
}

// CurrentGlucose handles GET /api/v1/users/{userID}/glucose/current.
func (h *Handler) CurrentGlucose(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	reading, err := h.query.CurrentReading(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrNoReadings) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("No glucose readings found for user %s", userID))
			return
		}
		h.logger.Error("failed to get current glucose", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to get current glucose")
		return
	}

	writeJSON(w, http.StatusOK, toReadingResponse(reading))
}

// GlucoseHistory handles GET /api/v1/users/{userID}/glucose/history.
func (h *Handler) GlucoseHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	period := r.URL.Query().Get("period")

	readings, applied, err := h.query.History(r.Context(), userID, period)
	if err != nil {
		h.logger.Error("failed to get glucose history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to get glucose history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"period":   applied,
		"readings": toReadingResponses(readings),
	})
}

// GlucoseSummary handles GET /api/v1/users/{userID}/glucose/summary.
func (h *Handler) GlucoseSummary(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	period := r.URL.Query().Get("period")

	summary, err := h.query.Summary(r.Context(), userID, period)
	if err != nil {
		h.logger.Error("failed to compute glucose summary", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to compute glucose summary")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   h.serviceName,
		"version":   serviceVersion,
	})
}

func queryInt(r *http.Request, name string, defaultValue int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return value
}
