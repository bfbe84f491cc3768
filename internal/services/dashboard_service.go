package services

import (
	"context"
	"log/slog"
	"time"

	"monitoring-service/internal/models"
)

type DashboardService struct {
	regions      RegionStore
	observations ObservationStore
	aggregation  *AggregationService
	cache        Cache
	ttl          time.Duration
}

func NewDashboardService(regions RegionStore, observations ObservationStore, aggregation *AggregationService, cache Cache, ttl time.Duration) *DashboardService {
	if ttl <= 0 {
		ttl = DefaultStatsTTL
	}
	return &DashboardService{
		regions:      regions,
		observations: observations,
		aggregation:  aggregation,
		cache:        cacheOrNoop(cache),
		ttl:          ttl,
	}
}

// Stats returns headline figures for the map dashboard.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	var cached models.DashboardStats
	if found, err := s.cache.GetJSON(ctx, dashboardStatsKey, &cached); err != nil {
		slog.Warn("Dashboard cache read failed", "error", err)
	} else if found {
		return &cached, nil
	}

	totalRegions, err := s.regions.Count(ctx)
	if err != nil {
		return nil, err
	}
	totalDataPoints, err := s.observations.Count(ctx)
	if err != nil {
		return nil, err
	}
	latest, err := s.observations.LatestDataDate(ctx)
	if err != nil {
		return nil, err
	}
	overall, err := s.aggregation.OverallDegradation(ctx)
	if err != nil {
		return nil, err
	}

	stats := models.DashboardStats{
		TotalRegions:    totalRegions,
		TotalDataPoints: totalDataPoints,
		LatestDataDate:  latest,
		HighRiskRegions: overall.HighRiskRegions,
	}
	if overall.AverageDegradation != nil {
		stats.AverageRisk = *overall.AverageDegradation
	}

	if err := s.cache.SetJSON(ctx, dashboardStatsKey, stats, s.ttl); err != nil {
		slog.Warn("Dashboard cache write failed", "error", err)
	}
	return &stats, nil
}
