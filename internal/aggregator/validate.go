// FilePath: internal/aggregator/validate.go
package aggregator

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/verdant-labs/greenhub/internal/errors"
	"github.com/verdant-labs/greenhub/internal/models"
)

// Payload is the raw request body of both ingest endpoints. Fields stay
// undecoded so they can be validated in a fixed order with the offending
// value reported verbatim.
type Payload struct {
	DhtTemp   json.RawMessage `json:"dht_temp"`
	DhtHum    json.RawMessage `json:"dht_hum"`
	Turbidity json.RawMessage `json:"turbidity"`
	WaterTemp json.RawMessage `json:"water_temp"`
	CreatedAt json.RawMessage `json:"created_at"`
}

// Accepted timestamp layouts for client-supplied created_at.
var createdAtLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseGreenhouseID validates the path segment as a plain integer id.
func ParseGreenhouseID(raw string) (int64, *errors.APIError) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, errors.NewInvalidIDError(raw)
	}
	return id, nil
}

// ValidateReading checks a payload against the validation contract: the id
// must be numeric and each sensor field, if present and not null, must parse
// as a number. Validation stops at the first offending field, in the order
// dht_temp, dht_hum, turbidity, water_temp. Null and absent fields pass
// through; a partially connected sensor rig is a normal condition.
func ValidateReading(idRaw string, p Payload, now time.Time) (*models.SensorReading, *errors.APIError) {
	id, apiErr := ParseGreenhouseID(idRaw)
	if apiErr != nil {
		return nil, apiErr
	}

	reading := &models.SensorReading{GreenhouseID: id}

	fields := []struct {
		name string
		raw  json.RawMessage
		dst  **float64
	}{
		{"dht_temp", p.DhtTemp, &reading.DhtTemp},
		{"dht_hum", p.DhtHum, &reading.DhtHum},
		{"turbidity", p.Turbidity, &reading.Turbidity},
		{"water_temp", p.WaterTemp, &reading.WaterTemp},
	}

	for _, f := range fields {
		value, apiErr := parseNumericField(f.name, f.raw)
		if apiErr != nil {
			return nil, apiErr
		}
		*f.dst = value
	}

	createdAt, apiErr := parseCreatedAt(p.CreatedAt, now)
	if apiErr != nil {
		return nil, apiErr
	}
	reading.CreatedAt = createdAt

	return reading, nil
}

// parseNumericField accepts JSON numbers and numeric strings; embedded
// devices in the field send both. Absent and null values pass through as nil.
func parseNumericField(name string, raw json.RawMessage) (*float64, *errors.APIError) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		return &v, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil, errors.NewInvalidFieldError(name, s)
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return &v, nil
		}
		return nil, errors.NewInvalidFieldError(name, s)
	}

	return nil, errors.NewInvalidFieldError(name, string(raw))
}

func parseCreatedAt(raw json.RawMessage, now time.Time) (time.Time, *errors.APIError) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return now.UTC(), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, errors.NewInvalidFieldError("created_at", string(raw))
	}
	for _, layout := range createdAtLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, errors.NewInvalidFieldError("created_at", s)
}
