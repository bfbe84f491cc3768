package repository

import (
	"database/sql"
	"errors"
	"monitoring-service/internal/models"

	"github.com/lib/pq"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// translateError maps driver errors onto the typed errors in models. Unknown errors pass through.
func translateError(err error, resource, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewNotFoundError(resource, id)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return models.NewConflictError(resource, conflictDetail(pqErr))
		case pqForeignKeyViolation:
			return models.NewNotFoundError(referencedResource(pqErr.Constraint), "")
		}
	}
	return err
}

func conflictDetail(pqErr *pq.Error) string {
	switch pqErr.Constraint {
	case "environmental_observation_location_timestamp_source_key":
		return "an observation from this source already exists at this location and timestamp"
	case "risk_prediction_region_date_key":
		return "a prediction already exists for this region and date"
	case "region_name_key":
		return "region name already exists"
	case "region_code_key":
		return "region code already exists"
	case "users_email_key":
		return "email already registered"
	}
	if pqErr.Detail != "" {
		return pqErr.Detail
	}
	return pqErr.Message
}

func referencedResource(constraint string) string {
	switch constraint {
	case "environmental_observation_region_id_fkey", "risk_prediction_region_id_fkey",
		"analysis_report_region_id_fkey", "data_upload_region_id_fkey":
		return "region"
	case "environmental_observation_uploaded_by_fkey", "analysis_report_generated_by_fkey",
		"data_upload_uploaded_by_fkey":
		return "user"
	}
	return "referenced record"
}
