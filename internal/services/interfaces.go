package services

import (
	"context"
	"io"
	"iter"
	"time"

	"monitoring-service/internal/models"

	"github.com/google/uuid"
)

type RegionStore interface {
	Create(ctx context.Context, region *models.Region) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Region, error)
	ListRegions(ctx context.Context) ([]models.Region, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, region *models.Region) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ObservationStore interface {
	InsertObservation(ctx context.Context, obs *models.EnvironmentalObservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.EnvironmentalObservation, error)
	List(ctx context.Context, filter models.ObservationFilter) ([]models.EnvironmentalObservation, int, error)
	QueryByRegionAndWindow(ctx context.Context, regionID uuid.UUID, since *time.Time) iter.Seq2[models.EnvironmentalObservation, error]
	QueryWithinBox(ctx context.Context, box models.BoundingBox, dateRange *models.DateRange, sources []models.Source) iter.Seq2[models.EnvironmentalObservation, error]
	QueryAll(ctx context.Context) iter.Seq2[models.EnvironmentalObservation, error]
	LatestPerRegion(ctx context.Context) ([]models.EnvironmentalObservation, error)
	Count(ctx context.Context) (int, error)
	LatestDataDate(ctx context.Context) (*time.Time, error)
	Update(ctx context.Context, obs *models.EnvironmentalObservation) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type PredictionStore interface {
	Create(ctx context.Context, prediction *models.RiskPrediction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.RiskPrediction, error)
	List(ctx context.Context, regionID *uuid.UUID, page, pageSize int) ([]models.RiskPrediction, int, error)
	ListByRegionInRange(ctx context.Context, regionID uuid.UUID, start, end time.Time) ([]models.RiskPrediction, error)
}

type ReportStore interface {
	Create(ctx context.Context, report *models.AnalysisReport) error
	SetFileKey(ctx context.Context, id uuid.UUID, fileKey string) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AnalysisReport, error)
	List(ctx context.Context, visibleTo *uuid.UUID, page, pageSize int) ([]models.AnalysisReport, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type UploadStore interface {
	Create(ctx context.Context, upload *models.DataUpload) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.DataUpload, error)
	List(ctx context.Context, owner *uuid.UUID, page, pageSize int) ([]models.DataUpload, int, error)
	UpdateProgress(ctx context.Context, upload *models.DataUpload) error
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) error
}

// ObjectStorage is the subset of the MinIO client the services need.
type ObjectStorage interface {
	UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error
	GetFile(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error)
	DeleteFile(ctx context.Context, bucketName, objectName string) error
	GetPresignedURL(ctx context.Context, bucketName, objectName string, expiry time.Duration) (string, error)
}

// Cache stores JSON snapshots of derived statistics.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

type EventPublisher interface {
	PublishUploadReceived(ctx context.Context, evt models.UploadReceivedEvent) error
	PublishReportGenerated(ctx context.Context, evt models.ReportGeneratedEvent) error
}

// noopCache is used when Redis is unavailable. Every lookup misses.
type noopCache struct{}

func (noopCache) GetJSON(context.Context, string, any) (bool, error) { return false, nil }
func (noopCache) SetJSON(context.Context, string, any, time.Duration) error { return nil }
func (noopCache) DeleteByPrefix(context.Context, string) error { return nil }

func cacheOrNoop(c Cache) Cache {
	if c == nil {
		return noopCache{}
	}
	return c
}
