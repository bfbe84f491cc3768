package models

import "github.com/google/uuid"

type CreateRegionRequest struct {
	Name           string          `json:"name"`
	Code           string          `json:"code"`
	Boundary       *GeoJSONPolygon `json:"boundary,omitempty"`
	AreaSqKm       *float64        `json:"area_sq_km,omitempty"`
	Population     *int64          `json:"population,omitempty"`
	RiskLevel      string          `json:"risk_level"`
	LastAssessment string          `json:"last_assessment,omitempty"`
}

type PredictRiskRequest struct {
	RegionID        *uuid.UUID `json:"region_id"`
	VegetationIndex *float64   `json:"vegetation_index"`
	SoilMoisture    *float64   `json:"soil_moisture"`
	Rainfall        *float64   `json:"rainfall"`
	Temperature     *float64   `json:"temperature,omitempty"`
	WindSpeed       *float64   `json:"wind_speed,omitempty"`
}

// Inputs validates presence of the required scoring inputs.
func (r *PredictRiskRequest) Inputs() (RiskInputs, error) {
	if r.VegetationIndex == nil {
		return RiskInputs{}, NewValidationError("vegetation_index", "is required")
	}
	if r.SoilMoisture == nil {
		return RiskInputs{}, NewValidationError("soil_moisture", "is required")
	}
	if r.Rainfall == nil {
		return RiskInputs{}, NewValidationError("rainfall", "is required")
	}
	return RiskInputs{
		VegetationIndex: *r.VegetationIndex,
		SoilMoisture:    *r.SoilMoisture,
		Rainfall:        *r.Rainfall,
		Temperature:     r.Temperature,
		WindSpeed:       r.WindSpeed,
	}, nil
}

type GenerateReportRequest struct {
	RegionID   *uuid.UUID     `json:"region_id"`
	ReportType ReportType     `json:"report_type"`
	StartDate  string         `json:"start_date"`
	EndDate    string         `json:"end_date"`
	Format     ReportFormat   `json:"format"`
	Parameters map[string]any `json:"parameters"`
	IsPublic   bool           `json:"is_public"`
}

type RegisterRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Organization string `json:"organization"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
