// FilePath: api/resources/api.resource.greenhouses.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	nuts "github.com/vaudience/go-nuts"

	"github.com/verdant-labs/greenhub/internal/config"
	"github.com/verdant-labs/greenhub/internal/errors"
	"github.com/verdant-labs/greenhub/internal/service"
)

var (
	queryDecoder = newQueryDecoder()
	validate     = validator.New()
)

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// GreenhouseHandlers encapsulates the greenhouse-related HTTP handlers
type GreenhouseHandlers struct {
	service *service.Service
	mqtt    config.MQTTConfig
}

// historyQuery holds the query parameters of the history endpoints.
type historyQuery struct {
	GreenhouseID int64  `schema:"gh" validate:"required,gt=0"`
	DateFrom     string `schema:"date_from"`
	DateTo       string `schema:"date_to"`
}

// @Summary List greenhouses
// @Description Get the greenhouse registry
// @Tags greenhouses
// @Produce json
// @Success 200 {array} models.Greenhouse
// @Router /greenhouses [get]
func (h *GreenhouseHandlers) ListGreenhouses(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	greenhouses, err := h.service.ListGreenhouses(r.Context())
	if err != nil {
		respondWithServiceError(w, requestID, err, "failed to list greenhouses")
		return
	}

	respondWithJSON(w, http.StatusOK, greenhouses)
}

// @Summary Query bucketed history
// @Description Get per-bucket field averages for a greenhouse; the bucket
// granularity (hour, 6-hour, day) follows the span of the requested range
// @Tags greenhouses
// @Produce json
// @Param gh query int true "Greenhouse ID"
// @Param date_from query string false "Range start (bare date or timestamp)"
// @Param date_to query string false "Range end (bare date or timestamp)"
// @Success 200 {array} models.BucketedRecord
// @Failure 400 {object} errors.APIError
// @Router /greenhouses/history [get]
func (h *GreenhouseHandlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	query, apiErr := parseHistoryQuery(r)
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}

	records, err := h.service.History(r.Context(), query.GreenhouseID, query.DateFrom, query.DateTo)
	if err != nil {
		respondWithServiceError(w, requestID, err, "failed to query history")
		return
	}

	respondWithJSON(w, http.StatusOK, records)
}

// @Summary Get the latest historical record
// @Description Get the most recent record for a greenhouse, or null when it
// has no data yet
// @Tags greenhouses
// @Produce json
// @Param gh query int true "Greenhouse ID"
// @Success 200 {object} models.HistoricalRecord
// @Failure 400 {object} errors.APIError
// @Router /greenhouses/history/latest [get]
func (h *GreenhouseHandlers) GetLatest(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	query, apiErr := parseHistoryQuery(r)
	if apiErr != nil {
		respondWithError(w, apiErr.WithRequestID(requestID))
		return
	}

	record, err := h.service.LatestRecord(r.Context(), query.GreenhouseID)
	if err != nil {
		respondWithServiceError(w, requestID, err, "failed to get latest record")
		return
	}

	// record is nil when the greenhouse has no data; the dashboard expects
	// a literal null body in that case.
	respondWithJSON(w, http.StatusOK, record)
}

// @Summary Dashboard connection config
// @Description Get the MQTT websocket parameters the dashboard uses for its
// heartbeat subscription
// @Tags config
// @Produce json
// @Success 200 {object} map[string]any
// @Router /config [get]
func (h *GreenhouseHandlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{
		"mqtt": map[string]any{
			"host":          h.mqtt.Host,
			"port":          h.mqtt.Port,
			"username":      h.mqtt.Username,
			"password":      h.mqtt.Password,
			"topic_pattern": h.mqtt.TopicPattern,
			"timeout_ms":    h.mqtt.TimeoutMS,
		},
	})
}

func parseHistoryQuery(r *http.Request) (historyQuery, *errors.APIError) {
	var query historyQuery
	if err := queryDecoder.Decode(&query, r.URL.Query()); err != nil {
		return query, errors.NewInvalidIDError(r.URL.Query().Get("gh"))
	}
	if err := validate.Struct(query); err != nil {
		return query, errors.NewInvalidIDError(r.URL.Query().Get("gh"))
	}
	return query, nil
}

// Helper functions

func respondWithError(w http.ResponseWriter, err *errors.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err)
	nuts.L.Errorf("[API] %s", err.Error())
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
