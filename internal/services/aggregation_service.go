package services

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"monitoring-service/internal/models"

	"github.com/google/uuid"
)

const (
	statsCachePrefix  = "stats:"
	overallStatsKey   = statsCachePrefix + "overall"
	dashboardStatsKey = statsCachePrefix + "dashboard"
	DefaultStatsTTL   = 5 * time.Minute
)

// Summarize folds a stream of observations into region statistics.
// Averages and extrema stay nil when the stream is empty.
func Summarize(regionID uuid.UUID, observations iter.Seq2[models.EnvironmentalObservation, error]) (models.RegionStatistics, error) {
	stats := models.RegionStatistics{RegionID: regionID}

	var sumVeg, sumSoil, sumRain, sumDeg float64
	var minDeg, maxDeg float64
	for obs, err := range observations {
		if err != nil {
			return models.RegionStatistics{}, fmt.Errorf("failed to read observations for region %s: %w", regionID, err)
		}
		deg := obs.LandDegradationIndex
		if stats.Count == 0 || deg < minDeg {
			minDeg = deg
		}
		if stats.Count == 0 || deg > maxDeg {
			maxDeg = deg
		}
		sumVeg += obs.VegetationIndex
		sumSoil += obs.SoilMoisture
		sumRain += obs.Rainfall
		sumDeg += deg
		stats.Count++
	}

	if stats.Count == 0 {
		return stats, nil
	}

	n := float64(stats.Count)
	avgVeg, avgSoil, avgRain, avgDeg := sumVeg/n, sumSoil/n, sumRain/n, sumDeg/n
	stats.AvgVegetationIndex = &avgVeg
	stats.AvgSoilMoisture = &avgSoil
	stats.AvgRainfall = &avgRain
	stats.AvgDegradation = &avgDeg
	stats.MinDegradation = &minDeg
	stats.MaxDegradation = &maxDeg
	return stats, nil
}

// SummarizeOverall averages the degradation index over every observation and counts
// the distinct regions with at least one observation above HighRiskDegradationThreshold.
// Regions without observations never appear in the stream, so they count toward neither.
func SummarizeOverall(observations iter.Seq2[models.EnvironmentalObservation, error]) (models.OverallDegradation, error) {
	var result models.OverallDegradation
	var sum float64
	var count int
	highRisk := make(map[uuid.UUID]struct{})

	for obs, err := range observations {
		if err != nil {
			return models.OverallDegradation{}, fmt.Errorf("failed to read observations: %w", err)
		}
		sum += obs.LandDegradationIndex
		count++
		if obs.LandDegradationIndex > models.HighRiskDegradationThreshold {
			highRisk[obs.RegionID] = struct{}{}
		}
	}

	if count > 0 {
		avg := sum / float64(count)
		result.AverageDegradation = &avg
	}
	result.HighRiskRegions = len(highRisk)
	return result, nil
}

// WindowStart returns the inclusive lower bound of a time range, or nil when unbounded.
func WindowStart(tr models.TimeRange, now time.Time) *time.Time {
	days := tr.Days()
	if days == 0 {
		return nil
	}
	since := now.AddDate(0, 0, -days)
	return &since
}

type AggregationService struct {
	observations ObservationStore
	regions      RegionStore
	cache        Cache
	ttl          time.Duration
	now          func() time.Time
}

func NewAggregationService(observations ObservationStore, regions RegionStore, cache Cache, ttl time.Duration) *AggregationService {
	if ttl <= 0 {
		ttl = DefaultStatsTTL
	}
	return &AggregationService{
		observations: observations,
		regions:      regions,
		cache:        cacheOrNoop(cache),
		ttl:          ttl,
		now:          time.Now,
	}
}

// RegionStatistics summarises one region over the given window.
func (s *AggregationService) RegionStatistics(ctx context.Context, regionID uuid.UUID, timeRange models.TimeRange) (*models.RegionStatistics, error) {
	timeRange = timeRange.Normalize()
	if _, err := s.regions.GetByID(ctx, regionID); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%sregion:%s:%s", statsCachePrefix, regionID, timeRange)
	var cached models.RegionStatistics
	if found, err := s.cache.GetJSON(ctx, key, &cached); err != nil {
		slog.Warn("Statistics cache read failed", "key", key, "error", err)
	} else if found {
		return &cached, nil
	}

	since := WindowStart(timeRange, s.now())
	stats, err := Summarize(regionID, s.observations.QueryByRegionAndWindow(ctx, regionID, since))
	if err != nil {
		return nil, err
	}
	stats.TimeRange = timeRange
	stats.Since = since

	if err := s.cache.SetJSON(ctx, key, stats, s.ttl); err != nil {
		slog.Warn("Statistics cache write failed", "key", key, "error", err)
	}
	return &stats, nil
}

func (s *AggregationService) OverallDegradation(ctx context.Context) (*models.OverallDegradation, error) {
	var cached models.OverallDegradation
	if found, err := s.cache.GetJSON(ctx, overallStatsKey, &cached); err != nil {
		slog.Warn("Statistics cache read failed", "key", overallStatsKey, "error", err)
	} else if found {
		return &cached, nil
	}

	overall, err := SummarizeOverall(s.observations.QueryAll(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, overallStatsKey, overall, s.ttl); err != nil {
		slog.Warn("Statistics cache write failed", "key", overallStatsKey, "error", err)
	}
	return &overall, nil
}

// Invalidate drops every cached statistic. Called after any observation or region write.
func (s *AggregationService) Invalidate(ctx context.Context) {
	if err := s.cache.DeleteByPrefix(ctx, statsCachePrefix); err != nil {
		slog.Warn("Failed to invalidate statistics cache", "error", err)
	}
}
