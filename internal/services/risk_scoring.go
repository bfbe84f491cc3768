package services

import (
	"fmt"
	"math"

	"monitoring-service/internal/models"
)

const (
	VegetationWeight   = 0.4
	SoilMoistureWeight = 0.3
	RainfallWeight     = 0.2
	TemperatureWeight  = 0.1

	DefaultTemperature = 25.0
	DefaultWindSpeed   = 0.0

	// PredictionConfidence is fixed until quality scores feed into the estimate.
	PredictionConfidence = 0.85

	rainfallCapMM       = 100.0
	temperatureScaleC   = 50.0
	soilMoistureScalePc = 100.0
)

// ScoreRisk computes the degradation risk score and its factor breakdown.
// The factors always sum to RawScore; RiskScore is RawScore clamped to [0, 1].
func ScoreRisk(in models.RiskInputs) (models.RiskResult, error) {
	temperature := DefaultTemperature
	if in.Temperature != nil {
		temperature = *in.Temperature
	}
	windSpeed := DefaultWindSpeed
	if in.WindSpeed != nil {
		windSpeed = *in.WindSpeed
	}

	for name, v := range map[string]float64{
		"vegetation_index": in.VegetationIndex,
		"soil_moisture":    in.SoilMoisture,
		"rainfall":         in.Rainfall,
		"temperature":      temperature,
		"wind_speed":       windSpeed,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return models.RiskResult{}, &models.ComputationError{
				Op:  "score_risk",
				Err: fmt.Errorf("%s is not a finite number", name),
			}
		}
	}

	factors := models.RiskFactors{
		VegetationImpact:   (1 - in.VegetationIndex) * VegetationWeight,
		SoilMoistureImpact: (1 - in.SoilMoisture/soilMoistureScalePc) * SoilMoistureWeight,
		RainfallImpact:     (1 - math.Min(in.Rainfall/rainfallCapMM, 1)) * RainfallWeight,
		TemperatureImpact:  (temperature / temperatureScaleC) * TemperatureWeight,
	}
	raw := factors.Sum()

	return models.RiskResult{
		RiskScore:  clamp(raw, 0, 1),
		RawScore:   raw,
		Confidence: PredictionConfidence,
		Factors:    factors,
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
