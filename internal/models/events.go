package models

import (
	"time"

	"github.com/google/uuid"
)

// UploadReceivedEvent asks a worker to parse and ingest a stored upload.
type UploadReceivedEvent struct {
	UploadID   uuid.UUID `json:"upload_id"`
	FileKey    string    `json:"file_key"`
	FileType   FileType  `json:"file_type"`
	UploadedBy uuid.UUID `json:"uploaded_by"`
	Timestamp  time.Time `json:"timestamp"`
}

type ReportGeneratedEvent struct {
	ReportID    uuid.UUID    `json:"report_id"`
	RegionID    uuid.UUID    `json:"region_id"`
	ReportType  ReportType   `json:"report_type"`
	Format      ReportFormat `json:"format"`
	FileKey     string       `json:"file_key"`
	GeneratedBy uuid.UUID    `json:"generated_by"`
	Timestamp   time.Time    `json:"timestamp"`
}
