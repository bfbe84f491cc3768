package models

import (
	"time"

	"github.com/google/uuid"
)

type Region struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	Name           string          `db:"name" json:"name"`
	Code           string          `db:"code" json:"code"`
	Boundary       *GeoJSONPolygon `db:"boundary" json:"boundary,omitempty"`
	AreaSqKm       *float64        `db:"area_sq_km" json:"area_sq_km,omitempty"`
	Population     *int64          `db:"population" json:"population,omitempty"`
	RiskLevel      string          `db:"risk_level" json:"risk_level"`
	LastAssessment *time.Time      `db:"last_assessment" json:"last_assessment,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

const (
	MaxRegionNameLength      = 255
	MaxRegionCodeLength      = 10
	MaxRegionRiskLevelLength = 20
)
