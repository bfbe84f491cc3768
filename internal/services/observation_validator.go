package services

import (
	"fmt"
	"math"
	"time"

	"monitoring-service/internal/models"
	utils "monitoring-service/pkg/utils"

	"github.com/google/uuid"
)

// ValidateObservation turns raw input into a record ready for insertion.
// The timestamp defaults to now and the caller becomes the uploader.
// The first offending field is reported as a *models.ValidationError.
func ValidateObservation(in models.ObservationInput, caller models.Caller, now time.Time) (*models.EnvironmentalObservation, error) {
	if in.RegionID == nil || *in.RegionID == uuid.Nil {
		return nil, models.NewValidationError("region_id", "is required")
	}
	if in.Latitude == nil {
		return nil, models.NewValidationError("latitude", "is required")
	}
	if in.Longitude == nil {
		return nil, models.NewValidationError("longitude", "is required")
	}
	if err := models.ValidateLatitude("latitude", *in.Latitude); err != nil {
		return nil, err
	}
	if err := models.ValidateLongitude("longitude", *in.Longitude); err != nil {
		return nil, err
	}

	required := []struct {
		field  string
		value  *float64
		lo, hi float64
	}{
		{"vegetation_index", in.VegetationIndex, -1, 1},
		{"soil_moisture", in.SoilMoisture, 0, 100},
		{"rainfall", in.Rainfall, 0, math.MaxFloat64},
		{"land_degradation_index", in.LandDegradationIndex, 0, 1},
	}
	for _, r := range required {
		if r.value == nil {
			return nil, models.NewValidationError(r.field, "is required")
		}
		if err := checkRange(r.field, *r.value, r.lo, r.hi); err != nil {
			return nil, err
		}
	}

	optional := []struct {
		field  string
		value  *float64
		lo, hi float64
	}{
		{"temperature", in.Temperature, -100, 100},
		{"wind_speed", in.WindSpeed, 0, math.MaxFloat64},
		{"humidity", in.Humidity, 0, 100},
		{"quality_score", in.QualityScore, 0, 1},
	}
	for _, o := range optional {
		if o.value == nil {
			continue
		}
		if err := checkRange(o.field, *o.value, o.lo, o.hi); err != nil {
			return nil, err
		}
	}

	if !in.Source.IsValid() {
		return nil, models.NewValidationError("source", "must be one of satellite, ground, model")
	}

	timestamp := now.UTC()
	if in.Timestamp != nil && !in.Timestamp.IsZero() {
		timestamp = in.Timestamp.UTC()
	}

	date := time.Date(timestamp.Year(), timestamp.Month(), timestamp.Day(), 0, 0, 0, 0, time.UTC)
	if in.Date != "" {
		parsed, err := time.Parse(utils.DateLayout, in.Date)
		if err != nil {
			return nil, models.NewValidationError("date", "must be formatted as YYYY-MM-DD")
		}
		date = parsed
	}

	quality := models.DefaultQualityScore
	if in.QualityScore != nil {
		quality = *in.QualityScore
	}

	metadata := utils.JSONMap{}
	for k, v := range in.Metadata {
		metadata[k] = v
	}

	obs := &models.EnvironmentalObservation{
		RegionID:             *in.RegionID,
		Location:             models.NewGeoJSONPoint(*in.Latitude, *in.Longitude),
		VegetationIndex:      *in.VegetationIndex,
		SoilMoisture:         *in.SoilMoisture,
		Rainfall:             *in.Rainfall,
		LandDegradationIndex: *in.LandDegradationIndex,
		Temperature:          in.Temperature,
		WindSpeed:            in.WindSpeed,
		Humidity:             in.Humidity,
		Date:                 date,
		Timestamp:            timestamp,
		Source:               in.Source,
		QualityScore:         quality,
		Metadata:             metadata,
	}
	if !caller.IsAnonymous() {
		uploader := caller.UserID
		obs.UploadedBy = &uploader
	}
	return obs, nil
}

func checkRange(field string, v, lo, hi float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return models.NewValidationError(field, "must be a finite number")
	}
	if v < lo || v > hi {
		if hi == math.MaxFloat64 {
			return models.NewValidationError(field, "must not be negative")
		}
		return models.NewValidationError(field, fmt.Sprintf("must be between %g and %g", lo, hi))
	}
	return nil
}
