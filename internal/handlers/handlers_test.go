package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"monitoring-service/internal/models"
	"monitoring-service/internal/services"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	adminCaller      = models.Caller{UserID: uuid.MustParse("00000000-0000-0000-0000-0000000000a1"), Role: models.RoleAdmin}
	researcherCaller = models.Caller{UserID: uuid.MustParse("00000000-0000-0000-0000-0000000000b2"), Role: models.RoleResearcher}
)

const testPageSize = 25

type stubVerifier map[string]models.Caller

func (v stubVerifier) VerifyToken(token string) (models.Caller, error) {
	caller, ok := v[token]
	if !ok {
		return models.Caller{}, errors.New("invalid token")
	}
	return caller, nil
}

type stubObservationService struct {
	ObservationService
	observations []models.EnvironmentalObservation
	lastBox      models.BoundingBox
	lastSources  []models.Source
	lastFilter   models.ObservationFilter
	ingestErr    error
}

func (s *stubObservationService) Ingest(_ context.Context, caller models.Caller, input models.ObservationInput) (*models.EnvironmentalObservation, error) {
	if s.ingestErr != nil {
		return nil, s.ingestErr
	}
	return services.ValidateObservation(input, caller, time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))
}

func (s *stubObservationService) List(_ context.Context, filter models.ObservationFilter) ([]models.EnvironmentalObservation, int, error) {
	s.lastFilter = filter
	return s.observations, len(s.observations), nil
}

func (s *stubObservationService) WithinBox(_ context.Context, box models.BoundingBox, _ *models.DateRange, sources []models.Source) iter.Seq2[models.EnvironmentalObservation, error] {
	s.lastBox = box
	s.lastSources = sources
	return func(yield func(models.EnvironmentalObservation, error) bool) {
		if err := box.Validate(); err != nil {
			yield(models.EnvironmentalObservation{}, err)
			return
		}
		for _, o := range s.observations {
			if !yield(o, nil) {
				return
			}
		}
	}
}

type stubRegionService struct {
	RegionService
	regions map[uuid.UUID]models.Region
}

func (s *stubRegionService) GetByID(_ context.Context, id uuid.UUID) (*models.Region, error) {
	region, ok := s.regions[id]
	if !ok {
		return nil, models.NewNotFoundError("region", id.String())
	}
	return &region, nil
}

func (s *stubRegionService) Create(_ context.Context, caller models.Caller, req models.CreateRegionRequest) (*models.Region, error) {
	if !caller.Can(models.CapManageRegions) {
		return nil, &models.ForbiddenError{Capability: models.CapManageRegions}
	}
	return &models.Region{ID: uuid.New(), Name: req.Name, Code: req.Code}, nil
}

type stubStatisticsService struct {
	lastRange models.TimeRange
}

func (s *stubStatisticsService) RegionStatistics(_ context.Context, regionID uuid.UUID, timeRange models.TimeRange) (*models.RegionStatistics, error) {
	s.lastRange = timeRange
	return &models.RegionStatistics{RegionID: regionID}, nil
}

type stubUploadService struct {
	UploadService
	fileName string
	data     []byte
	regionID uuid.UUID
}

func (s *stubUploadService) Submit(_ context.Context, caller models.Caller, regionID uuid.UUID, fileName string, data []byte) (*models.DataUpload, error) {
	s.fileName, s.data, s.regionID = fileName, data, regionID
	return &models.DataUpload{
		ID:         uuid.New(),
		RegionID:   regionID,
		UploadedBy: caller.UserID,
		FileType:   models.FileTypeCSV,
		Status:     models.UploadStatusPending,
	}, nil
}

type stubReportService struct {
	ReportService
	url string
}

func (s *stubReportService) DownloadURL(_ context.Context, _ models.Caller, id uuid.UUID) (string, error) {
	if s.url == "" {
		return "", models.NewNotFoundError("report file", id.String())
	}
	return s.url, nil
}

type testApp struct {
	app          *fiber.App
	observations *stubObservationService
	regions      *stubRegionService
	statistics   *stubStatisticsService
	uploads      *stubUploadService
	reports      *stubReportService
}

func newTestApp() *testApp {
	ta := &testApp{
		app:          fiber.New(),
		observations: &stubObservationService{},
		regions:      &stubRegionService{regions: map[uuid.UUID]models.Region{}},
		statistics:   &stubStatisticsService{},
		uploads:      &stubUploadService{},
		reports:      &stubReportService{},
	}

	verifier := stubVerifier{"admin-token": adminCaller, "researcher-token": researcherCaller}
	protected := ta.app.Group("/api", NewAuthMiddleware(verifier).RequireAuth())
	NewObservationHandler(ta.observations, testPageSize).RegisterRoutes(protected)
	NewRegionHandler(ta.regions, ta.statistics).RegisterRoutes(protected)
	NewUploadHandler(ta.uploads, testPageSize).RegisterRoutes(protected)
	NewReportHandler(ta.reports, testPageSize).RegisterRoutes(protected)
	return ta
}

func (ta *testApp) do(t *testing.T, req *http.Request, token string) (*http.Response, map[string]any) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ta.app.Test(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	if len(body) > 0 {
		_ = json.Unmarshal(body, &decoded)
	}
	return resp, decoded
}

func jsonRequest(method, target string, payload any) *http.Request {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func errorCode(body map[string]any) string {
	errBody, _ := body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func TestAuthMiddleware(t *testing.T) {
	ta := newTestApp()

	resp, body := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/observations/latest", nil), "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	resp, _ = ta.do(t, httptest.NewRequest(http.MethodGet, "/api/regions/"+uuid.NewString(), nil), "bogus")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateObservation_ValidationMapsTo400(t *testing.T) {
	ta := newTestApp()
	regionID := uuid.New()

	payload := map[string]any{
		"region_id":              regionID,
		"latitude":               95.0,
		"longitude":              10.0,
		"vegetation_index":       0.5,
		"soil_moisture":          30.0,
		"rainfall":               12.0,
		"land_degradation_index": 0.2,
		"source":                 "ground",
	}
	resp, body := ta.do(t, jsonRequest(http.MethodPost, "/api/observations", payload), "researcher-token")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(body))
	assert.Equal(t, "latitude", body["error"].(map[string]any)["field"])

	payload["latitude"] = 45.0
	resp, body = ta.do(t, jsonRequest(http.MethodPost, "/api/observations", payload), "researcher-token")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, researcherCaller.UserID.String(), data["uploaded_by"])
}

func TestCreateObservation_ConflictMapsTo409(t *testing.T) {
	ta := newTestApp()
	ta.observations.ingestErr = models.NewConflictError("observation", "duplicate location, timestamp and source")

	resp, body := ta.do(t, jsonRequest(http.MethodPost, "/api/observations", map[string]any{}), "researcher-token")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", errorCode(body))
}

func TestListObservations_ParsesFilters(t *testing.T) {
	ta := newTestApp()
	regionID := uuid.New()

	target := "/api/observations?region=" + regionID.String() +
		"&source=satellite&min_quality=0.5&start_date=2024-01-01&end_date=2024-01-31&page=2&page_size=10"
	resp, body := ta.do(t, httptest.NewRequest(http.MethodGet, target, nil), "researcher-token")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	filter := ta.observations.lastFilter
	require.NotNil(t, filter.RegionID)
	assert.Equal(t, regionID, *filter.RegionID)
	require.NotNil(t, filter.Source)
	assert.Equal(t, models.SourceSatellite, *filter.Source)
	require.NotNil(t, filter.MinQualityScore)
	assert.InDelta(t, 0.5, *filter.MinQualityScore, 1e-9)
	require.NotNil(t, filter.DateRange)
	assert.Equal(t, 2, filter.Page)
	assert.Equal(t, 10, filter.PageSize)

	meta := body["meta"].(map[string]any)
	assert.EqualValues(t, 2, meta["page"])

	resp, body = ta.do(t, httptest.NewRequest(http.MethodGet, "/api/observations?start_date=01-01-2024", nil), "researcher-token")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "start_date", body["error"].(map[string]any)["field"])
}

func TestWithinBoundingBox(t *testing.T) {
	ta := newTestApp()
	for i := range 3 {
		ta.observations.observations = append(ta.observations.observations, models.EnvironmentalObservation{
			ID:       uuid.New(),
			Location: models.NewGeoJSONPoint(15+float64(i), 15),
			Source:   models.SourceGround,
		})
	}

	target := "/api/observations/within-bbox?sw_lat=10&sw_lng=10&ne_lat=20&ne_lng=20&sources=ground,satellite&page_size=2"
	resp, body := ta.do(t, httptest.NewRequest(http.MethodGet, target, nil), "researcher-token")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"], 2)
	assert.EqualValues(t, 3, body["meta"].(map[string]any)["total"])
	assert.Equal(t, []models.Source{models.SourceGround, models.SourceSatellite}, ta.observations.lastSources)
	assert.Equal(t, models.BoundingBox{SWLat: 10, SWLng: 10, NELat: 20, NELng: 20}, ta.observations.lastBox)

	resp, body = ta.do(t, httptest.NewRequest(http.MethodGet, "/api/observations/within-bbox?sw_lat=10&sw_lng=10&ne_lat=20", nil), "researcher-token")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "ne_lng", body["error"].(map[string]any)["field"])

	resp, _ = ta.do(t, httptest.NewRequest(http.MethodGet, "/api/observations/within-bbox?sw_lat=20&sw_lng=10&ne_lat=10&ne_lng=20", nil), "researcher-token")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegionRoutes(t *testing.T) {
	ta := newTestApp()
	regionID := uuid.New()
	ta.regions.regions[regionID] = models.Region{ID: regionID, Name: "Highlands", Code: "HL"}

	resp, body := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/regions/"+regionID.String(), nil), "researcher-token")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Highlands", body["data"].(map[string]any)["name"])

	resp, body = ta.do(t, httptest.NewRequest(http.MethodGet, "/api/regions/"+uuid.NewString(), nil), "researcher-token")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	resp, _ = ta.do(t, httptest.NewRequest(http.MethodGet, "/api/regions/not-a-uuid", nil), "researcher-token")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = ta.do(t, jsonRequest(http.MethodPost, "/api/regions", map[string]any{"name": "Delta", "code": "DL"}), "researcher-token")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	resp, _ = ta.do(t, jsonRequest(http.MethodPost, "/api/regions", map[string]any{"name": "Delta", "code": "DL"}), "admin-token")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestRegionStatistics_TimeRange(t *testing.T) {
	ta := newTestApp()
	regionID := uuid.New()

	resp, _ := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/regions/"+regionID.String()+"/statistics", nil), "researcher-token")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.TimeRange30Days, ta.statistics.lastRange)

	resp, _ = ta.do(t, httptest.NewRequest(http.MethodGet, "/api/regions/"+regionID.String()+"/statistics?time_range=7d", nil), "researcher-token")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.TimeRange7Days, ta.statistics.lastRange)
}

func TestCreateUpload_Multipart(t *testing.T) {
	ta := newTestApp()
	regionID := uuid.New()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("region_id", regionID.String()))
	part, err := writer.CreateFormFile("file", "readings.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("latitude,longitude\n1,2\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, body := ta.do(t, req, "researcher-token")

	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "pending", body["data"].(map[string]any)["status"])
	assert.Equal(t, "readings.csv", ta.uploads.fileName)
	assert.Equal(t, regionID, ta.uploads.regionID)
	assert.Equal(t, "latitude,longitude\n1,2\n", string(ta.uploads.data))
}

func TestCreateUpload_MissingFile(t *testing.T) {
	ta := newTestApp()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("region_id", uuid.NewString()))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, body := ta.do(t, req, "researcher-token")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "file", body["error"].(map[string]any)["field"])
}

func TestDownloadReport(t *testing.T) {
	ta := newTestApp()
	reportID := uuid.New()

	resp, _ := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/reports/"+reportID.String()+"/download", nil), "researcher-token")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	ta.reports.url = "http://storage.local/reports/file.pdf?sig=abc"
	resp, _ = ta.do(t, httptest.NewRequest(http.MethodGet, "/api/reports/"+reportID.String()+"/download", nil), "researcher-token")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, ta.reports.url, resp.Header.Get("Location"))

	resp, body := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/reports/"+reportID.String()+"/download?redirect=false", nil), "researcher-token")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ta.reports.url, body["data"].(map[string]any)["url"])
}

func TestRespondError_InvalidCredentials(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c fiber.Ctx) error {
		return respondError(c, services.ErrInvalidCredentials, "log in")
	})
	app.Get("/boom", func(c fiber.Ctx) error {
		return respondError(c, errors.New("db down"), "list things")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestPagination_PageSizeBounds(t *testing.T) {
	ta := newTestApp()

	resp, _ := ta.do(t, httptest.NewRequest(http.MethodGet, "/api/observations", nil), "researcher-token")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, testPageSize, ta.observations.lastFilter.PageSize, "configured page size is the default")

	for _, target := range []string{
		"/api/observations?page_size=201",
		"/api/observations/within-bbox?sw_lat=10&sw_lng=10&ne_lat=20&ne_lng=20&page_size=1099511627776",
	} {
		resp, body := ta.do(t, httptest.NewRequest(http.MethodGet, target, nil), "researcher-token")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, target)
		assert.Equal(t, "page_size", body["error"].(map[string]any)["field"], target)
	}

	resp, body := ta.do(t, httptest.NewRequest(http.MethodGet,
		"/api/observations/within-bbox?sw_lat=10&sw_lng=10&ne_lat=20&ne_lng=20&page=9223372036854775807&page_size=200", nil),
		"researcher-token")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["data"])
}

func TestNormalizePageSize(t *testing.T) {
	assert.Equal(t, 10, normalizePageSize(10))
	assert.Equal(t, 50, normalizePageSize(0))
	assert.Equal(t, 50, normalizePageSize(100000))
}
