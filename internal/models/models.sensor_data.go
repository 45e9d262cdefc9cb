// FilePath: internal/models/models.sensor_data.go
package models

import "time"

// SensorReading is one raw measurement buffered in the realtime store.
// Sensor fields are nullable; a disconnected sensor simply omits its field.
type SensorReading struct {
	ID           int64     `json:"id" db:"id"`
	GreenhouseID int64     `json:"greenhouse_id" db:"greenhouse_id"`
	DhtTemp      *float64  `json:"dht_temp" db:"dht_temp"`
	DhtHum       *float64  `json:"dht_hum" db:"dht_hum"`
	Turbidity    *float64  `json:"turbidity" db:"turbidity"`
	WaterTemp    *float64  `json:"water_temp" db:"water_temp"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// HistoricalRecord is one aggregated (or synchronously inserted) row in the
// historical store. Append-only, never updated.
type HistoricalRecord struct {
	ID           int64     `json:"id" db:"id"`
	GreenhouseID int64     `json:"greenhouse_id" db:"greenhouse_id"`
	DhtTemp      *float64  `json:"dht_temp" db:"dht_temp"`
	DhtHum       *float64  `json:"dht_hum" db:"dht_hum"`
	Turbidity    *float64  `json:"turbidity" db:"turbidity"`
	WaterTemp    *float64  `json:"water_temp" db:"water_temp"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// BucketedRecord is one history-query bucket: per-field averages over the
// historical rows falling into the bucket, shaped like a HistoricalRecord so
// the dashboard charts consume both interchangeably.
type BucketedRecord struct {
	GreenhouseID int64     `json:"greenhouse_id"`
	DhtTemp      *float64  `json:"dht_temp"`
	DhtHum       *float64  `json:"dht_hum"`
	Turbidity    *float64  `json:"turbidity"`
	WaterTemp    *float64  `json:"water_temp"`
	CreatedAt    time.Time `json:"created_at"`
}
