package models

import (
	"time"

	utils "monitoring-service/pkg/utils"

	"github.com/google/uuid"
)

// RiskPrediction is unique per (region, prediction date).
type RiskPrediction struct {
	ID             uuid.UUID     `db:"id" json:"id"`
	RegionID       uuid.UUID     `db:"region_id" json:"region_id"`
	PredictionDate time.Time     `db:"prediction_date" json:"prediction_date"`
	RiskScore      float64       `db:"risk_score" json:"risk_score"`
	Confidence     float64       `db:"confidence" json:"confidence"`
	Factors        utils.JSONMap `db:"factors" json:"factors"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}

// RiskInputs feeds the scoring engine. Temperature and WindSpeed fall back to defaults when nil.
type RiskInputs struct {
	VegetationIndex float64  `json:"vegetation_index"`
	SoilMoisture    float64  `json:"soil_moisture"`
	Rainfall        float64  `json:"rainfall"`
	Temperature     *float64 `json:"temperature,omitempty"`
	WindSpeed       *float64 `json:"wind_speed,omitempty"`
}

type RiskFactors struct {
	VegetationImpact   float64 `json:"vegetation_impact"`
	SoilMoistureImpact float64 `json:"soil_moisture_impact"`
	RainfallImpact     float64 `json:"rainfall_impact"`
	TemperatureImpact  float64 `json:"temperature_impact"`
}

func (f RiskFactors) Sum() float64 {
	return f.VegetationImpact + f.SoilMoistureImpact + f.RainfallImpact + f.TemperatureImpact
}

func (f RiskFactors) AsMap() utils.JSONMap {
	return utils.JSONMap{
		"vegetation_impact":    f.VegetationImpact,
		"soil_moisture_impact": f.SoilMoistureImpact,
		"rainfall_impact":      f.RainfallImpact,
		"temperature_impact":   f.TemperatureImpact,
	}
}

type RiskResult struct {
	RiskScore  float64     `json:"risk_score"`
	RawScore   float64     `json:"raw_score"`
	Confidence float64     `json:"confidence"`
	Factors    RiskFactors `json:"factors"`
}
