package models

import (
	"time"

	utils "monitoring-service/pkg/utils"

	"github.com/google/uuid"
)

type AnalysisReport struct {
	ID          uuid.UUID     `db:"id" json:"id"`
	Title       string        `db:"title" json:"title"`
	ReportType  ReportType    `db:"report_type" json:"report_type"`
	RegionID    uuid.UUID     `db:"region_id" json:"region_id"`
	StartDate   time.Time     `db:"start_date" json:"start_date"`
	EndDate     time.Time     `db:"end_date" json:"end_date"`
	Format      ReportFormat  `db:"format" json:"format"`
	GeneratedBy uuid.UUID     `db:"generated_by" json:"generated_by"`
	Parameters  utils.JSONMap `db:"parameters" json:"parameters"`
	FileKey     *string       `db:"file_key" json:"file_key,omitempty"`
	IsPublic    bool          `db:"is_public" json:"is_public"`
	GeneratedAt time.Time     `db:"generated_at" json:"generated_at"`
}

// ReportContent is everything a renderer needs for one report.
type ReportContent struct {
	Report       AnalysisReport             `json:"report"`
	Region       Region                     `json:"region"`
	Statistics   RegionStatistics           `json:"statistics"`
	Observations []EnvironmentalObservation `json:"observations"`
	Predictions  []RiskPrediction           `json:"predictions"`
}
