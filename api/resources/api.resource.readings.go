// FilePath: api/resources/api.resource.readings.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"

	"github.com/verdant-labs/greenhub/internal/aggregator"
	"github.com/verdant-labs/greenhub/internal/errors"
	"github.com/verdant-labs/greenhub/internal/service"
)

// ReadingHandlers encapsulates the reading-ingestion HTTP handlers
type ReadingHandlers struct {
	service *service.Service
}

// @Summary Insert a sensor reading
// @Description Validate a sensor payload and store it as one historical record
// @Tags readings
// @Accept json
// @Produce json
// @Param greenhouse_id path int true "Greenhouse ID"
// @Param reading body aggregator.Payload true "Sensor fields, each optional"
// @Success 200 {object} map[string]any
// @Failure 400 {object} errors.APIError
// @Failure 500 {object} errors.APIError
// @Router /sensor/{greenhouse_id} [post]
func (h *ReadingHandlers) InsertReading(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	requestID := nuts.NID("req", 12)

	var payload aggregator.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	id, err := h.service.InsertSensorReading(r.Context(), vars["greenhouse_id"], payload)
	if err != nil {
		respondWithServiceError(w, requestID, err, "failed to store sensor reading")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"inserted_id": id,
	})
}

// @Summary Ingest a realtime reading
// @Description Buffer a reading into the greenhouse's aggregation window; a
// window that has exceeded its duration is flushed into one averaged record
// @Tags readings
// @Accept json
// @Produce json
// @Param greenhouse_id path int true "Greenhouse ID"
// @Param reading body aggregator.Payload true "Sensor fields plus optional created_at"
// @Success 200 {object} map[string]any
// @Failure 400 {object} errors.APIError
// @Failure 500 {object} errors.APIError
// @Router /realtime/{greenhouse_id} [post]
func (h *ReadingHandlers) IngestRealtime(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	requestID := nuts.NID("req", 12)

	var payload aggregator.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	result, err := h.service.IngestRealtime(r.Context(), vars["greenhouse_id"], payload)
	if err != nil {
		respondWithServiceError(w, requestID, err, "failed to ingest realtime reading")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"aggregated": result.Aggregated,
	})
}

// @Summary Get the buffered realtime readings
// @Description Get the raw readings of the greenhouse's open aggregation
// window; the dashboard seeds its realtime chart from this list
// @Tags readings
// @Produce json
// @Param greenhouse_id path int true "Greenhouse ID"
// @Success 200 {array} models.SensorReading
// @Failure 400 {object} errors.APIError
// @Failure 500 {object} errors.APIError
// @Router /realtime/{greenhouse_id} [get]
func (h *ReadingHandlers) GetRealtimeSnapshot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	requestID := nuts.NID("req", 12)

	id, apiErr := aggregator.ParseGreenhouseID(vars["greenhouse_id"])
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}

	readings, err := h.service.RealtimeSnapshot(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, requestID, err, "failed to load realtime readings")
		return
	}

	respondWithJSON(w, http.StatusOK, readings)
}

// respondWithServiceError passes typed errors through with their own status
// and wraps anything else as an internal error.
func respondWithServiceError(w http.ResponseWriter, requestID string, err error, fallback string) {
	if apiErr, ok := err.(*errors.APIError); ok {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}
	respondWithError(w, errors.NewInternalError(fallback, err).WithRequestID(requestID))
}
