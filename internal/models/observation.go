package models

import (
	"time"

	utils "monitoring-service/pkg/utils"

	"github.com/google/uuid"
)

// EnvironmentalObservation is one geotagged measurement. (location, timestamp, source) is unique.
type EnvironmentalObservation struct {
	ID                   uuid.UUID     `db:"id" json:"id"`
	RegionID             uuid.UUID     `db:"region_id" json:"region_id"`
	Location             *GeoJSONPoint `db:"location" json:"location"`
	VegetationIndex      float64       `db:"vegetation_index" json:"vegetation_index"`
	SoilMoisture         float64       `db:"soil_moisture" json:"soil_moisture"`
	Rainfall             float64       `db:"rainfall" json:"rainfall"`
	LandDegradationIndex float64       `db:"land_degradation_index" json:"land_degradation_index"`
	Temperature          *float64      `db:"temperature" json:"temperature,omitempty"`
	WindSpeed            *float64      `db:"wind_speed" json:"wind_speed,omitempty"`
	Humidity             *float64      `db:"humidity" json:"humidity,omitempty"`
	Date                 time.Time     `db:"date" json:"date"`
	Timestamp            time.Time     `db:"timestamp" json:"timestamp"`
	Source               Source        `db:"source" json:"source"`
	UploadedBy           *uuid.UUID    `db:"uploaded_by" json:"uploaded_by,omitempty"`
	QualityScore         float64       `db:"quality_score" json:"quality_score"`
	Metadata             utils.JSONMap `db:"metadata" json:"metadata"`
	CreatedAt            time.Time     `db:"created_at" json:"created_at"`
}

const DefaultQualityScore = 1.0

// ObservationInput is the raw, unvalidated form of an observation as received from a client or upload row.
type ObservationInput struct {
	RegionID             *uuid.UUID     `json:"region_id"`
	Latitude             *float64       `json:"latitude"`
	Longitude            *float64       `json:"longitude"`
	VegetationIndex      *float64       `json:"vegetation_index"`
	SoilMoisture         *float64       `json:"soil_moisture"`
	Rainfall             *float64       `json:"rainfall"`
	LandDegradationIndex *float64       `json:"land_degradation_index"`
	Temperature          *float64       `json:"temperature"`
	WindSpeed            *float64       `json:"wind_speed"`
	Humidity             *float64       `json:"humidity"`
	Date                 string         `json:"date"`
	Timestamp            *time.Time     `json:"timestamp"`
	Source               Source         `json:"source"`
	QualityScore         *float64       `json:"quality_score"`
	Metadata             map[string]any `json:"metadata"`
}

// ObservationFilter drives the paginated observation listing.
type ObservationFilter struct {
	RegionID        *uuid.UUID
	Date            *time.Time
	Source          *Source
	MinQualityScore *float64
	DateRange       *DateRange
	Page            int
	PageSize        int
}
