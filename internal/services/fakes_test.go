package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"iter"
	"sort"
	"strings"
	"sync"
	"time"

	"monitoring-service/internal/models"

	"github.com/google/uuid"
)

// ============================================================================
// STORES
// ============================================================================

type fakeRegionStore struct {
	mu      sync.Mutex
	regions map[uuid.UUID]*models.Region
}

func newFakeRegionStore(regions ...models.Region) *fakeRegionStore {
	s := &fakeRegionStore{regions: map[uuid.UUID]*models.Region{}}
	for i := range regions {
		r := regions[i]
		s.regions[r.ID] = &r
	}
	return s
}

func (s *fakeRegionStore) Create(_ context.Context, region *models.Region) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.regions {
		if r.Code == region.Code || r.Name == region.Name {
			return models.NewConflictError("region", "name or code already exists")
		}
	}
	if region.ID == uuid.Nil {
		region.ID = uuid.New()
	}
	cp := *region
	s.regions[region.ID] = &cp
	return nil
}

func (s *fakeRegionStore) GetByID(_ context.Context, id uuid.UUID) (*models.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.regions[id]
	if !ok {
		return nil, models.NewNotFoundError("region", id.String())
	}
	cp := *r
	return &cp, nil
}

func (s *fakeRegionStore) ListRegions(_ context.Context) ([]models.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Region, 0, len(s.regions))
	for _, r := range s.regions {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *fakeRegionStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.regions), nil
}

func (s *fakeRegionStore) Update(_ context.Context, region *models.Region) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.regions[region.ID]; !ok {
		return models.NewNotFoundError("region", region.ID.String())
	}
	cp := *region
	s.regions[region.ID] = &cp
	return nil
}

func (s *fakeRegionStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.regions[id]; !ok {
		return models.NewNotFoundError("region", id.String())
	}
	delete(s.regions, id)
	return nil
}

type fakeObservationStore struct {
	mu           sync.Mutex
	observations []models.EnvironmentalObservation
	streamErr    error
}

func sameTriple(a, b models.EnvironmentalObservation) bool {
	return a.Location.Lat() == b.Location.Lat() &&
		a.Location.Lon() == b.Location.Lon() &&
		a.Timestamp.Equal(b.Timestamp) &&
		a.Source == b.Source
}

func (s *fakeObservationStore) InsertObservation(_ context.Context, obs *models.EnvironmentalObservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.observations {
		if sameTriple(existing, *obs) {
			return models.NewConflictError("observation", "an observation from this source at this location and time already exists")
		}
	}
	if obs.ID == uuid.Nil {
		obs.ID = uuid.New()
	}
	obs.CreatedAt = time.Now()
	s.observations = append(s.observations, *obs)
	return nil
}

func (s *fakeObservationStore) GetByID(_ context.Context, id uuid.UUID) (*models.EnvironmentalObservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.observations {
		if o.ID == id {
			cp := o
			return &cp, nil
		}
	}
	return nil, models.NewNotFoundError("observation", id.String())
}

func (s *fakeObservationStore) List(_ context.Context, filter models.ObservationFilter) ([]models.EnvironmentalObservation, int, error) {
	var out []models.EnvironmentalObservation
	for _, o := range s.snapshot() {
		if filter.RegionID != nil && o.RegionID != *filter.RegionID {
			continue
		}
		if filter.Source != nil && o.Source != *filter.Source {
			continue
		}
		if !filter.DateRange.Includes(o.Date) {
			continue
		}
		out = append(out, o)
	}
	return out, len(out), nil
}

func (s *fakeObservationStore) snapshot() []models.EnvironmentalObservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.EnvironmentalObservation(nil), s.observations...)
}

func (s *fakeObservationStore) filtered(keep func(models.EnvironmentalObservation) bool) iter.Seq2[models.EnvironmentalObservation, error] {
	rows := s.snapshot()
	streamErr := s.streamErr
	return func(yield func(models.EnvironmentalObservation, error) bool) {
		for _, o := range rows {
			if keep(o) && !yield(o, nil) {
				return
			}
		}
		if streamErr != nil {
			yield(models.EnvironmentalObservation{}, streamErr)
		}
	}
}

func (s *fakeObservationStore) QueryByRegionAndWindow(_ context.Context, regionID uuid.UUID, since *time.Time) iter.Seq2[models.EnvironmentalObservation, error] {
	return s.filtered(func(o models.EnvironmentalObservation) bool {
		return o.RegionID == regionID && (since == nil || !o.Timestamp.Before(*since))
	})
}

func (s *fakeObservationStore) QueryWithinBox(_ context.Context, box models.BoundingBox, dateRange *models.DateRange, sources []models.Source) iter.Seq2[models.EnvironmentalObservation, error] {
	return s.filtered(func(o models.EnvironmentalObservation) bool {
		if !box.Contains(o.Location.Lat(), o.Location.Lon()) || !dateRange.Includes(o.Date) {
			return false
		}
		if len(sources) == 0 {
			return true
		}
		for _, src := range sources {
			if src == o.Source {
				return true
			}
		}
		return false
	})
}

func (s *fakeObservationStore) QueryAll(_ context.Context) iter.Seq2[models.EnvironmentalObservation, error] {
	return s.filtered(func(models.EnvironmentalObservation) bool { return true })
}

func (s *fakeObservationStore) LatestPerRegion(_ context.Context) ([]models.EnvironmentalObservation, error) {
	latest := map[uuid.UUID]models.EnvironmentalObservation{}
	for _, o := range s.snapshot() {
		if cur, ok := latest[o.RegionID]; !ok || o.Timestamp.After(cur.Timestamp) {
			latest[o.RegionID] = o
		}
	}
	out := make([]models.EnvironmentalObservation, 0, len(latest))
	for _, o := range latest {
		out = append(out, o)
	}
	return out, nil
}

func (s *fakeObservationStore) Count(_ context.Context) (int, error) {
	return len(s.snapshot()), nil
}

func (s *fakeObservationStore) LatestDataDate(_ context.Context) (*time.Time, error) {
	var latest *time.Time
	for _, o := range s.snapshot() {
		if latest == nil || o.Date.After(*latest) {
			d := o.Date
			latest = &d
		}
	}
	return latest, nil
}

func (s *fakeObservationStore) Update(_ context.Context, obs *models.EnvironmentalObservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.observations {
		if o.ID == obs.ID {
			s.observations[i] = *obs
			return nil
		}
	}
	return models.NewNotFoundError("observation", obs.ID.String())
}

func (s *fakeObservationStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.observations {
		if o.ID == id {
			s.observations = append(s.observations[:i], s.observations[i+1:]...)
			return nil
		}
	}
	return models.NewNotFoundError("observation", id.String())
}

type fakePredictionStore struct {
	mu          sync.Mutex
	predictions []models.RiskPrediction
}

func (s *fakePredictionStore) Create(_ context.Context, p *models.RiskPrediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.predictions {
		if existing.RegionID == p.RegionID && existing.PredictionDate.Equal(p.PredictionDate) {
			return models.NewConflictError("risk prediction", "a prediction for this region and date already exists")
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s.predictions = append(s.predictions, *p)
	return nil
}

func (s *fakePredictionStore) GetByID(_ context.Context, id uuid.UUID) (*models.RiskPrediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.predictions {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, models.NewNotFoundError("risk prediction", id.String())
}

func (s *fakePredictionStore) List(_ context.Context, regionID *uuid.UUID, _, _ int) ([]models.RiskPrediction, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.RiskPrediction
	for _, p := range s.predictions {
		if regionID == nil || p.RegionID == *regionID {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (s *fakePredictionStore) ListByRegionInRange(_ context.Context, regionID uuid.UUID, start, end time.Time) ([]models.RiskPrediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.RiskPrediction
	for _, p := range s.predictions {
		if p.RegionID == regionID && !p.PredictionDate.Before(start) && !p.PredictionDate.After(end) {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeReportStore struct {
	mu      sync.Mutex
	reports map[uuid.UUID]*models.AnalysisReport
}

func newFakeReportStore() *fakeReportStore {
	return &fakeReportStore{reports: map[uuid.UUID]*models.AnalysisReport{}}
}

func (s *fakeReportStore) Create(_ context.Context, r *models.AnalysisReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	cp := *r
	s.reports[r.ID] = &cp
	return nil
}

func (s *fakeReportStore) SetFileKey(_ context.Context, id uuid.UUID, fileKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return models.NewNotFoundError("report", id.String())
	}
	r.FileKey = &fileKey
	return nil
}

func (s *fakeReportStore) GetByID(_ context.Context, id uuid.UUID) (*models.AnalysisReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, models.NewNotFoundError("report", id.String())
	}
	cp := *r
	return &cp, nil
}

func (s *fakeReportStore) List(_ context.Context, visibleTo *uuid.UUID, _, _ int) ([]models.AnalysisReport, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AnalysisReport
	for _, r := range s.reports {
		if visibleTo == nil || r.GeneratedBy == *visibleTo || r.IsPublic {
			out = append(out, *r)
		}
	}
	return out, len(out), nil
}

func (s *fakeReportStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return models.NewNotFoundError("report", id.String())
	}
	delete(s.reports, id)
	return nil
}

type fakeUploadStore struct {
	mu      sync.Mutex
	uploads map[uuid.UUID]*models.DataUpload
}

func newFakeUploadStore() *fakeUploadStore {
	return &fakeUploadStore{uploads: map[uuid.UUID]*models.DataUpload{}}
}

func (s *fakeUploadStore) Create(_ context.Context, u *models.DataUpload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	s.uploads[u.ID] = &cp
	return nil
}

func (s *fakeUploadStore) GetByID(_ context.Context, id uuid.UUID) (*models.DataUpload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.uploads[id]
	if !ok {
		return nil, models.NewNotFoundError("upload", id.String())
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUploadStore) List(_ context.Context, owner *uuid.UUID, _, _ int) ([]models.DataUpload, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.DataUpload
	for _, u := range s.uploads {
		if owner == nil || u.UploadedBy == *owner {
			out = append(out, *u)
		}
	}
	return out, len(out), nil
}

func (s *fakeUploadStore) UpdateProgress(_ context.Context, u *models.DataUpload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.uploads[u.ID]; !ok {
		return models.NewNotFoundError("upload", u.ID.String())
	}
	cp := *u
	s.uploads[u.ID] = &cp
	return nil
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uuid.UUID]*models.User{}}
}

func (s *fakeUserStore) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == strings.ToLower(u.Email) {
			return models.NewConflictError("user", "email already registered")
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.NewNotFoundError("user", email)
}

func (s *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, models.NewNotFoundError("user", id.String())
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) UpdateRole(_ context.Context, id uuid.UUID, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.NewNotFoundError("user", id.String())
	}
	u.Role = role
	return nil
}

// ============================================================================
// INFRASTRUCTURE
// ============================================================================

type fakeStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (s *fakeStorage) UploadBytes(_ context.Context, bucket, object string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploadErr != nil {
		return s.uploadErr
	}
	s.objects[bucket+"/"+object] = append([]byte(nil), data...)
	return nil
}

func (s *fakeStorage) GetFile(_ context.Context, bucket, object string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[bucket+"/"+object]
	if !ok {
		return nil, models.NewNotFoundError("object", object)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStorage) DeleteFile(_ context.Context, bucket, object string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, bucket+"/"+object)
	return nil
}

func (s *fakeStorage) GetPresignedURL(_ context.Context, bucket, object string, _ time.Duration) (string, error) {
	return "https://storage.test/" + bucket + "/" + object + "?signature=x", nil
}

func (s *fakeStorage) get(bucket, object string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[bucket+"/"+object]
	return data, ok
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]byte{}}
}

func (c *fakeCache) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *fakeCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func (c *fakeCache) DeleteByPrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

type fakePublisher struct {
	mu       sync.Mutex
	uploads  []models.UploadReceivedEvent
	reports  []models.ReportGeneratedEvent
	onUpload func(models.UploadReceivedEvent)
}

func (p *fakePublisher) PublishUploadReceived(_ context.Context, evt models.UploadReceivedEvent) error {
	p.mu.Lock()
	p.uploads = append(p.uploads, evt)
	hook := p.onUpload
	p.mu.Unlock()
	if hook != nil {
		hook(evt)
	}
	return nil
}

func (p *fakePublisher) PublishReportGenerated(_ context.Context, evt models.ReportGeneratedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, evt)
	return nil
}

// ============================================================================
// FIXTURES
// ============================================================================

var (
	adminCaller      = models.Caller{UserID: uuid.MustParse("00000000-0000-0000-0000-0000000000a1"), Role: models.RoleAdmin}
	researcherCaller = models.Caller{UserID: uuid.MustParse("00000000-0000-0000-0000-0000000000b2"), Role: models.RoleResearcher}
	publicCaller     = models.Caller{UserID: uuid.MustParse("00000000-0000-0000-0000-0000000000c3"), Role: models.RolePublic}
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func testRegion(name, code string) models.Region {
	return models.Region{ID: uuid.New(), Name: name, Code: code, RiskLevel: "low"}
}

func observationAt(regionID uuid.UUID, lat, lon, degradation float64, ts time.Time, source models.Source) models.EnvironmentalObservation {
	return models.EnvironmentalObservation{
		ID:                   uuid.New(),
		RegionID:             regionID,
		Location:             models.NewGeoJSONPoint(lat, lon),
		VegetationIndex:      0.5,
		SoilMoisture:         40,
		Rainfall:             20,
		LandDegradationIndex: degradation,
		Date:                 time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC),
		Timestamp:            ts,
		Source:               source,
		QualityScore:         1,
	}
}

func validInput(regionID uuid.UUID, lat, lon float64) models.ObservationInput {
	return models.ObservationInput{
		RegionID:             &regionID,
		Latitude:             f64(lat),
		Longitude:            f64(lon),
		VegetationIndex:      f64(0.4),
		SoilMoisture:         f64(35),
		Rainfall:             f64(12),
		LandDegradationIndex: f64(0.3),
		Source:               models.SourceGround,
	}
}

// testEnv wires every service over in-memory fakes.
type testEnv struct {
	regions      *fakeRegionStore
	observations *fakeObservationStore
	predictions  *fakePredictionStore
	reports      *fakeReportStore
	uploads      *fakeUploadStore
	storage      *fakeStorage
	cache        *fakeCache
	publisher    *fakePublisher

	aggregation *AggregationService
	observation *ObservationService
	prediction  *RiskPredictionService
	report      *ReportService
	upload      *UploadService
	dashboard   *DashboardService
}

const (
	testUploadBucket = "data-uploads"
	testReportBucket = "analysis-reports"
)

func newTestEnv(regions ...models.Region) *testEnv {
	env := &testEnv{
		regions:      newFakeRegionStore(regions...),
		observations: &fakeObservationStore{},
		predictions:  &fakePredictionStore{},
		reports:      newFakeReportStore(),
		uploads:      newFakeUploadStore(),
		storage:      newFakeStorage(),
		cache:        newFakeCache(),
		publisher:    &fakePublisher{},
	}
	clock := func() time.Time { return fixedNow }

	env.aggregation = NewAggregationService(env.observations, env.regions, env.cache, time.Minute)
	env.aggregation.now = clock
	env.observation = NewObservationService(env.observations, env.regions, env.aggregation)
	env.observation.now = clock
	env.prediction = NewRiskPredictionService(env.predictions, env.regions, env.aggregation)
	env.prediction.now = clock
	env.report = NewReportService(env.reports, env.regions, env.observations, env.predictions, env.storage, env.publisher, testReportBucket, time.Minute)
	env.report.now = clock
	env.upload = NewUploadService(env.uploads, env.regions, env.observation, env.aggregation, env.storage, env.publisher, testUploadBucket)
	env.upload.now = clock
	env.dashboard = NewDashboardService(env.regions, env.observations, env.aggregation, env.cache, time.Minute)
	return env
}
