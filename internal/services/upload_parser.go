package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"monitoring-service/internal/models"

	"github.com/google/uuid"
	"github.com/jszwec/csvutil"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// uploadRow is one decoded record of a bulk file. Err is set when the record
// could not be decoded and Input is then unusable.
type uploadRow struct {
	Row   int
	Input models.ObservationInput
	Err   *models.UploadRowError
}

// observationUploadRecord is the CSV column layout accepted for bulk ingestion.
// Numeric columns are pointers so an empty cell reads as missing.
type observationUploadRecord struct {
	RegionID             string   `csv:"region_id,omitempty"`
	Latitude             *float64 `csv:"latitude"`
	Longitude            *float64 `csv:"longitude"`
	VegetationIndex      *float64 `csv:"vegetation_index"`
	SoilMoisture         *float64 `csv:"soil_moisture"`
	Rainfall             *float64 `csv:"rainfall"`
	LandDegradationIndex *float64 `csv:"land_degradation_index"`
	Temperature          *float64 `csv:"temperature,omitempty"`
	WindSpeed            *float64 `csv:"wind_speed,omitempty"`
	Humidity             *float64 `csv:"humidity,omitempty"`
	Date                 string   `csv:"date,omitempty"`
	Timestamp            string   `csv:"timestamp,omitempty"`
	Source               string   `csv:"source"`
	QualityScore         *float64 `csv:"quality_score,omitempty"`
}

// parseUpload decodes a bulk file into rows. An error is returned only when the
// file as a whole is unreadable.
func parseUpload(fileType models.FileType, data []byte, defaultRegion uuid.UUID) ([]uploadRow, error) {
	switch fileType {
	case models.FileTypeCSV:
		return parseCSVUpload(data, defaultRegion)
	case models.FileTypeGeoJSON:
		return parseGeoJSONUpload(data, defaultRegion)
	}
	return nil, models.NewValidationError("file_type", fmt.Sprintf("unsupported file type %q", fileType))
}

func parseCSVUpload(data []byte, defaultRegion uuid.UUID) ([]uploadRow, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(bytes.NewReader(data)))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	var rows []uploadRow
	// Row numbers are 1-based and exclude the header.
	for n := 1; ; n++ {
		var rec observationUploadRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			var typeErr *csvutil.UnmarshalTypeError
			var parseErr *csv.ParseError
			if errors.As(err, &typeErr) || (errors.As(err, &parseErr) && errors.Is(parseErr.Err, csv.ErrFieldCount)) {
				rows = append(rows, uploadRow{Row: n, Err: &models.UploadRowError{Row: n, Message: err.Error()}})
				continue
			}
			return nil, fmt.Errorf("failed to read csv row %d: %w", n, err)
		}

		input, rowErr := rec.toInput(defaultRegion)
		if rowErr != nil {
			rowErr.Row = n
			rows = append(rows, uploadRow{Row: n, Err: rowErr})
			continue
		}
		rows = append(rows, uploadRow{Row: n, Input: input})
	}
	return rows, nil
}

func (r observationUploadRecord) toInput(defaultRegion uuid.UUID) (models.ObservationInput, *models.UploadRowError) {
	regionID := defaultRegion
	if s := strings.TrimSpace(r.RegionID); s != "" {
		parsed, err := uuid.Parse(s)
		if err != nil {
			return models.ObservationInput{}, &models.UploadRowError{Field: "region_id", Message: "invalid region id"}
		}
		regionID = parsed
	}

	input := models.ObservationInput{
		RegionID:             &regionID,
		Latitude:             r.Latitude,
		Longitude:            r.Longitude,
		VegetationIndex:      r.VegetationIndex,
		SoilMoisture:         r.SoilMoisture,
		Rainfall:             r.Rainfall,
		LandDegradationIndex: r.LandDegradationIndex,
		Temperature:          r.Temperature,
		WindSpeed:            r.WindSpeed,
		Humidity:             r.Humidity,
		Date:                 strings.TrimSpace(r.Date),
		Source:               models.Source(strings.ToLower(strings.TrimSpace(r.Source))),
		QualityScore:         r.QualityScore,
	}
	if ts := strings.TrimSpace(r.Timestamp); ts != "" {
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return models.ObservationInput{}, &models.UploadRowError{Field: "timestamp", Message: "must be RFC 3339"}
		}
		input.Timestamp = &parsed
	}
	return input, nil
}

// parseGeoJSONUpload reads a FeatureCollection of Point features whose properties
// carry the measurement columns.
func parseGeoJSONUpload(data []byte, defaultRegion uuid.UUID) ([]uploadRow, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to decode geojson feature collection: %w", err)
	}

	rows := make([]uploadRow, 0, len(fc.Features))
	for i, feature := range fc.Features {
		n := i + 1
		point, ok := feature.Geometry.(*geom.Point)
		if !ok || point == nil {
			rows = append(rows, uploadRow{Row: n, Err: &models.UploadRowError{Row: n, Field: "geometry", Message: "feature geometry must be a Point"}})
			continue
		}

		rec, rowErr := recordFromProperties(feature.Properties)
		if rowErr != nil {
			rowErr.Row = n
			rows = append(rows, uploadRow{Row: n, Err: rowErr})
			continue
		}
		lon, lat := point.X(), point.Y()
		rec.Longitude, rec.Latitude = &lon, &lat

		input, rowErr := rec.toInput(defaultRegion)
		if rowErr != nil {
			rowErr.Row = n
			rows = append(rows, uploadRow{Row: n, Err: rowErr})
			continue
		}
		input.Metadata = extraProperties(feature.Properties)
		rows = append(rows, uploadRow{Row: n, Input: input})
	}
	return rows, nil
}

var knownUploadProperties = map[string]bool{
	"region_id": true, "vegetation_index": true, "soil_moisture": true, "rainfall": true,
	"land_degradation_index": true, "temperature": true, "wind_speed": true, "humidity": true,
	"date": true, "timestamp": true, "source": true, "quality_score": true,
}

func recordFromProperties(props map[string]any) (observationUploadRecord, *models.UploadRowError) {
	var rec observationUploadRecord
	numeric := map[string]**float64{
		"vegetation_index":       &rec.VegetationIndex,
		"soil_moisture":          &rec.SoilMoisture,
		"rainfall":               &rec.Rainfall,
		"land_degradation_index": &rec.LandDegradationIndex,
		"temperature":            &rec.Temperature,
		"wind_speed":             &rec.WindSpeed,
		"humidity":               &rec.Humidity,
		"quality_score":          &rec.QualityScore,
	}
	for key, dst := range numeric {
		raw, ok := props[key]
		if !ok || raw == nil {
			continue
		}
		v, ok := raw.(float64)
		if !ok {
			return rec, &models.UploadRowError{Field: key, Message: "must be a number"}
		}
		*dst = &v
	}
	for key, dst := range map[string]*string{
		"region_id": &rec.RegionID,
		"date":      &rec.Date,
		"timestamp": &rec.Timestamp,
		"source":    &rec.Source,
	} {
		raw, ok := props[key]
		if !ok || raw == nil {
			continue
		}
		v, ok := raw.(string)
		if !ok {
			return rec, &models.UploadRowError{Field: key, Message: "must be a string"}
		}
		*dst = v
	}
	return rec, nil
}

func extraProperties(props map[string]any) map[string]any {
	extra := map[string]any{}
	for k, v := range props {
		if !knownUploadProperties[k] {
			extra[k] = v
		}
	}
	return extra
}
