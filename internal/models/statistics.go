package models

import (
	"time"

	"github.com/google/uuid"
)

// HighRiskDegradationThreshold marks a region as high risk when any observation exceeds it.
const HighRiskDegradationThreshold = 0.7

// RegionStatistics summarises a region's observations in a window.
// Averages and extrema are nil when Count is 0.
type RegionStatistics struct {
	RegionID           uuid.UUID  `db:"region_id" json:"region_id"`
	TimeRange          TimeRange  `db:"-" json:"time_range"`
	Since              *time.Time `db:"-" json:"since,omitempty"`
	Count              int        `db:"count" json:"count"`
	AvgVegetationIndex *float64   `db:"avg_vegetation_index" json:"avg_vegetation_index"`
	AvgSoilMoisture    *float64   `db:"avg_soil_moisture" json:"avg_soil_moisture"`
	AvgRainfall        *float64   `db:"avg_rainfall" json:"avg_rainfall"`
	AvgDegradation     *float64   `db:"avg_degradation" json:"avg_degradation"`
	MinDegradation     *float64   `db:"min_degradation" json:"min_degradation"`
	MaxDegradation     *float64   `db:"max_degradation" json:"max_degradation"`
}

// OverallDegradation aggregates across every region that has observations.
type OverallDegradation struct {
	AverageDegradation *float64 `db:"average_degradation" json:"average_degradation"`
	HighRiskRegions    int      `db:"high_risk_regions" json:"high_risk_regions"`
}

// DashboardStats.AverageRisk is the mean degradation index over all observations, 0 when there are none.
type DashboardStats struct {
	TotalRegions    int        `json:"total_regions"`
	TotalDataPoints int        `json:"total_data_points"`
	AverageRisk     float64    `json:"average_risk"`
	LatestDataDate  *time.Time `json:"latest_data_date"`
	HighRiskRegions int        `json:"high_risk_regions"`
}
