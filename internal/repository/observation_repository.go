package repository

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"monitoring-service/internal/models"
	utils "monitoring-service/pkg/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type ObservationRepository struct {
	db *sqlx.DB
}

func NewObservationRepository(db *sqlx.DB) *ObservationRepository {
	return &ObservationRepository{db: db}
}

const observationColumns = `
	id, region_id,
	ST_AsEWKB(location::geometry) AS location,
	vegetation_index, soil_moisture, rainfall, land_degradation_index,
	temperature, wind_speed, humidity,
	date, timestamp, source, uploaded_by, quality_score, metadata, created_at`

// ============================================================================
// CREATE OPERATIONS
// ============================================================================

// InsertObservation persists a validated observation. A duplicate (location, timestamp, source)
// yields *models.ConflictError and is not retried.
func (r *ObservationRepository) InsertObservation(ctx context.Context, obs *models.EnvironmentalObservation) error {
	if obs.ID == uuid.Nil {
		obs.ID = uuid.New()
	}
	obs.CreatedAt = time.Now()
	if obs.Metadata == nil {
		obs.Metadata = utils.JSONMap{}
	}

	slog.Debug("Inserting observation",
		"id", obs.ID,
		"region_id", obs.RegionID,
		"source", obs.Source,
		"timestamp", obs.Timestamp)

	query := `
		INSERT INTO environmental_observation (
			id, region_id, location,
			vegetation_index, soil_moisture, rainfall, land_degradation_index,
			temperature, wind_speed, humidity,
			date, timestamp, source, uploaded_by, quality_score, metadata, created_at
		) VALUES (
			:id, :region_id, ST_GeogFromText(:location),
			:vegetation_index, :soil_moisture, :rainfall, :land_degradation_index,
			:temperature, :wind_speed, :humidity,
			:date, :timestamp, :source, :uploaded_by, :quality_score, :metadata, :created_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, obs); err != nil {
		err = translateError(err, "observation", obs.ID.String())
		if models.IsConflict(err) || models.IsNotFound(err) {
			slog.Warn("Observation rejected by store", "id", obs.ID, "reason", err)
			return err
		}
		slog.Error("Failed to insert observation", "id", obs.ID, "error", err)
		return fmt.Errorf("failed to insert observation: %w", err)
	}

	return nil
}

// ============================================================================
// READ OPERATIONS
// ============================================================================

func (r *ObservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.EnvironmentalObservation, error) {
	var obs models.EnvironmentalObservation
	query := `SELECT ` + observationColumns + ` FROM environmental_observation WHERE id = $1`

	if err := r.db.GetContext(ctx, &obs, query, id); err != nil {
		err = translateError(err, "observation", id.String())
		if models.IsNotFound(err) {
			return nil, err
		}
		slog.Error("Failed to get observation", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get observation: %w", err)
	}
	return &obs, nil
}

// List returns one page of observations matching the filter, newest first, plus the total match count.
func (r *ObservationRepository) List(ctx context.Context, filter models.ObservationFilter) ([]models.EnvironmentalObservation, int, error) {
	where := utils.NewWhereBuilder()
	if filter.RegionID != nil {
		where.Add("region_id = ?", *filter.RegionID)
	}
	if filter.Date != nil {
		where.Add("date = ?", *filter.Date)
	}
	if filter.Source != nil {
		where.Add("source = ?", string(*filter.Source))
	}
	if filter.MinQualityScore != nil {
		where.Add("quality_score >= ?", *filter.MinQualityScore)
	}
	addDateRange(where, filter.DateRange)

	var total int
	countQuery := where.Build(`SELECT COUNT(*) FROM environmental_observation`, "")
	if err := r.db.GetContext(ctx, &total, countQuery.Query, countQuery.Args...); err != nil {
		slog.Error("Failed to count observations", "error", err)
		return nil, 0, fmt.Errorf("failed to count observations: %w", err)
	}

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = utils.DefaultPageSize
	}
	limit := where.Next(pageSize)
	offset := where.Next(utils.Offset(filter.Page, pageSize))
	listQuery := where.Build(
		`SELECT `+observationColumns+` FROM environmental_observation`,
		fmt.Sprintf(` ORDER BY timestamp DESC LIMIT %s OFFSET %s`, limit, offset))

	observations := []models.EnvironmentalObservation{}
	if err := r.db.SelectContext(ctx, &observations, listQuery.Query, listQuery.Args...); err != nil {
		slog.Error("Failed to list observations", "error", err)
		return nil, 0, fmt.Errorf("failed to list observations: %w", err)
	}

	return observations, total, nil
}

// QueryByRegionAndWindow streams a region's observations with timestamp >= since (unbounded when nil).
func (r *ObservationRepository) QueryByRegionAndWindow(ctx context.Context, regionID uuid.UUID, since *time.Time) iter.Seq2[models.EnvironmentalObservation, error] {
	where := utils.NewWhereBuilder().Add("region_id = ?", regionID)
	if since != nil {
		where.Add("timestamp >= ?", *since)
	}
	q := where.Build(`SELECT `+observationColumns+` FROM environmental_observation`, ` ORDER BY timestamp DESC`)
	return r.stream(ctx, q)
}

// QueryWithinBox streams observations whose point lies inside box, edges included,
// optionally narrowed by an inclusive date range and a set of allowed sources.
func (r *ObservationRepository) QueryWithinBox(ctx context.Context, box models.BoundingBox, dateRange *models.DateRange, sources []models.Source) iter.Seq2[models.EnvironmentalObservation, error] {
	return func(yield func(models.EnvironmentalObservation, error) bool) {
		if err := box.Validate(); err != nil {
			yield(models.EnvironmentalObservation{}, err)
			return
		}
		envelope, err := box.WKT()
		if err != nil {
			yield(models.EnvironmentalObservation{}, &models.ComputationError{Op: "bounding box", Err: err})
			return
		}

		where := utils.NewWhereBuilder().
			Add("ST_Intersects(location::geometry, ST_GeomFromText(?, 4326))", envelope)
		addDateRange(where, dateRange)
		if len(sources) > 0 {
			names := make([]string, len(sources))
			for i, s := range sources {
				names[i] = string(s)
			}
			where.Add("source = ANY(?)", pq.Array(names))
		}

		q := where.Build(`SELECT `+observationColumns+` FROM environmental_observation`, ` ORDER BY timestamp DESC`)
		for obs, err := range r.stream(ctx, q) {
			if !yield(obs, err) {
				return
			}
		}
	}
}

// QueryAll streams every observation.
func (r *ObservationRepository) QueryAll(ctx context.Context) iter.Seq2[models.EnvironmentalObservation, error] {
	return r.stream(ctx, &utils.QueryBuildResult{
		Query: `SELECT ` + observationColumns + ` FROM environmental_observation ORDER BY timestamp DESC`,
	})
}

// LatestPerRegion returns the newest observation of every region that has data.
func (r *ObservationRepository) LatestPerRegion(ctx context.Context) ([]models.EnvironmentalObservation, error) {
	query := `
		SELECT * FROM (
			SELECT DISTINCT ON (region_id) ` + observationColumns + `
			FROM environmental_observation
			ORDER BY region_id, timestamp DESC
		) latest
		ORDER BY timestamp DESC`

	observations := []models.EnvironmentalObservation{}
	if err := r.db.SelectContext(ctx, &observations, query); err != nil {
		slog.Error("Failed to get latest observations per region", "error", err)
		return nil, fmt.Errorf("failed to get latest observations: %w", err)
	}
	return observations, nil
}

func (r *ObservationRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM environmental_observation`); err != nil {
		return 0, fmt.Errorf("failed to count observations: %w", err)
	}
	return count, nil
}

// LatestDataDate is the date of the observation with the newest timestamp, nil when empty.
func (r *ObservationRepository) LatestDataDate(ctx context.Context) (*time.Time, error) {
	var dates []time.Time
	query := `SELECT date FROM environmental_observation ORDER BY timestamp DESC LIMIT 1`
	if err := r.db.SelectContext(ctx, &dates, query); err != nil {
		return nil, fmt.Errorf("failed to get latest data date: %w", err)
	}
	if len(dates) == 0 {
		return nil, nil
	}
	return &dates[0], nil
}

func (r *ObservationRepository) stream(ctx context.Context, q *utils.QueryBuildResult) iter.Seq2[models.EnvironmentalObservation, error] {
	return func(yield func(models.EnvironmentalObservation, error) bool) {
		rows, err := r.db.QueryxContext(ctx, q.Query, q.Args...)
		if err != nil {
			slog.Error("Failed to query observations", "error", err)
			yield(models.EnvironmentalObservation{}, fmt.Errorf("failed to query observations: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var obs models.EnvironmentalObservation
			if err := rows.StructScan(&obs); err != nil {
				yield(models.EnvironmentalObservation{}, fmt.Errorf("failed to scan observation: %w", err))
				return
			}
			if !yield(obs, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(models.EnvironmentalObservation{}, fmt.Errorf("failed to iterate observations: %w", err))
		}
	}
}

func addDateRange(where *utils.WhereBuilder, dateRange *models.DateRange) {
	if dateRange == nil {
		return
	}
	if dateRange.Start != nil {
		where.Add("date >= ?", *dateRange.Start)
	}
	if dateRange.End != nil {
		where.Add("date <= ?", *dateRange.End)
	}
}

// ============================================================================
// UPDATE OPERATIONS
// ============================================================================

func (r *ObservationRepository) Update(ctx context.Context, obs *models.EnvironmentalObservation) error {
	if obs.Metadata == nil {
		obs.Metadata = utils.JSONMap{}
	}
	query := `
		UPDATE environmental_observation SET
			region_id = :region_id,
			location = ST_GeogFromText(:location),
			vegetation_index = :vegetation_index,
			soil_moisture = :soil_moisture,
			rainfall = :rainfall,
			land_degradation_index = :land_degradation_index,
			temperature = :temperature,
			wind_speed = :wind_speed,
			humidity = :humidity,
			date = :date,
			timestamp = :timestamp,
			source = :source,
			quality_score = :quality_score,
			metadata = :metadata
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, obs)
	if err != nil {
		err = translateError(err, "observation", obs.ID.String())
		if models.IsConflict(err) || models.IsNotFound(err) {
			return err
		}
		slog.Error("Failed to update observation", "id", obs.ID, "error", err)
		return fmt.Errorf("failed to update observation: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.NewNotFoundError("observation", obs.ID.String())
	}
	return nil
}

// ============================================================================
// DELETE OPERATIONS
// ============================================================================

func (r *ObservationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := utils.ExecWithCheck(ctx, r.db, `DELETE FROM environmental_observation WHERE id = $1`, utils.ExecDelete, id)
	if errors.Is(err, utils.ErrNoRowsAffected) {
		return models.NewNotFoundError("observation", id.String())
	}
	if err != nil {
		slog.Error("Failed to delete observation", "id", id, "error", err)
		return fmt.Errorf("failed to delete observation: %w", err)
	}
	slog.Info("Deleted observation", "id", id)
	return nil
}
