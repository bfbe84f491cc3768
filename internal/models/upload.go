package models

import (
	"time"

	utils "monitoring-service/pkg/utils"

	"github.com/google/uuid"
)

type DataUpload struct {
	ID               uuid.UUID      `db:"id" json:"id"`
	FileKey          string         `db:"file_key" json:"file_key"`
	FileType         FileType       `db:"file_type" json:"file_type"`
	RegionID         uuid.UUID      `db:"region_id" json:"region_id"`
	UploadedBy       uuid.UUID      `db:"uploaded_by" json:"uploaded_by"`
	Status           UploadStatus   `db:"status" json:"status"`
	ProcessedRecords int            `db:"processed_records" json:"processed_records"`
	TotalRecords     int            `db:"total_records" json:"total_records"`
	Errors           utils.JSONList `db:"errors" json:"errors"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	CompletedAt      *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
}

type UploadStatusView struct {
	Status    UploadStatus   `json:"status"`
	Processed int            `json:"processed"`
	Total     int            `json:"total"`
	Errors    utils.JSONList `json:"errors"`
}

func (u *DataUpload) StatusView() UploadStatusView {
	errs := u.Errors
	if errs == nil {
		errs = utils.JSONList{}
	}
	return UploadStatusView{
		Status:    u.Status,
		Processed: u.ProcessedRecords,
		Total:     u.TotalRecords,
		Errors:    errs,
	}
}

// UploadRowError records why a single row of a bulk upload was skipped.
type UploadRowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e UploadRowError) AsMap() map[string]any {
	m := map[string]any{"row": e.Row, "message": e.Message}
	if e.Field != "" {
		m["field"] = e.Field
	}
	return m
}
