package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realestate/server/internal/database"
	"realestate/server/internal/estimate"
	"realestate/server/internal/importer"
	"realestate/server/internal/lookup"
	"realestate/server/internal/models"
	"realestate/server/internal/scheduler"
	"realestate/server/internal/storage"
)

const listingsHeader = "date,time,address,development,suburb,seen,price,agent,office,com,type,bed,bath,gar,land,access,single level,RZ zoning,auctioneer"

type testServer struct {
	router *gin.Engine
	db     *database.Database
	images *storage.ImageStore
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	dir := t.TempDir()
	db, err := database.NewDatabase(filepath.Join(dir, "test.db"), logger)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })

	calculator, err := estimate.NewCalculator(db, estimate.DefaultSettings(), logger)
	require.NoError(t, err)

	images, err := storage.NewImageStore(filepath.Join(dir, "uploads"), logger)
	require.NoError(t, err)

	handler := NewHandler(Options{
		Database:   db,
		Calculator: calculator,
		Lookup:     lookup.NewService(db, logger),
		Importer:   importer.NewService(db, importer.RetryPolicy{}, logger),
		Images:     images,
		Logger:     logger,
	})

	return &testServer{router: NewRouter(handler, []string{"*"}), db: db, images: images}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(t *testing.T, path, field, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (s *testServer) seedSales(t *testing.T) {
	t.Helper()
	var sales []models.ComparableSale
	prices := []int{750000, 780000, 800000, 820000, 850000}
	for i, price := range prices {
		sales = append(sales, models.ComparableSale{
			Address:      fmt.Sprintf("%d Oak St", i+1),
			Suburb:       "Gungahlin",
			PropertyType: "house",
			SaleDate:     time.Date(2024, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC),
			SalePrice:    price,
		})
	}
	_, err := s.db.InsertSales(context.Background(), sales)
	require.NoError(t, err)
}

func TestHealthAndRequestID(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestEstimateEndpoint(t *testing.T) {
	s := setupTestServer(t)
	s.seedSales(t)

	t.Run("success", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/estimate", map[string]interface{}{
			"suburb":       "gungahlin",
			"propertyType": "House",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var result estimate.Result
		decode(t, w, &result)
		assert.Equal(t, int64(800000), result.BaselinePrice)
		assert.Equal(t, estimate.ConfidenceMedium, result.Confidence)
		assert.LessOrEqual(t, result.EstimateLow, result.AdjustedPrice)
		assert.GreaterOrEqual(t, result.EstimateHigh, result.AdjustedPrice)
		assert.Equal(t, 5, result.SuburbStats.NumHouseSales12m)
	})

	tests := []struct {
		name   string
		body   interface{}
		status int
		kind   estimate.ErrorKind
		field  string
	}{
		{"malformed json", "{not json", http.StatusBadRequest, estimate.KindInvalidInput, ""},
		{"bad property type", map[string]interface{}{"suburb": "Gungahlin", "propertyType": "castle"}, http.StatusBadRequest, estimate.KindInvalidInput, "propertyType"},
		{"missing suburb", map[string]interface{}{"propertyType": "house"}, http.StatusBadRequest, estimate.KindInvalidInput, "suburb"},
		{"no units sold", map[string]interface{}{"suburb": "Gungahlin", "propertyType": "unit"}, http.StatusNotFound, estimate.KindNoComparables, ""},
		{"unknown suburb", map[string]interface{}{"suburb": "Atlantis", "propertyType": "house"}, http.StatusNotFound, estimate.KindNoComparables, ""},
		{"fractional bedrooms", `{"suburb":"Gungahlin","propertyType":"house","bedrooms":-1.5}`, http.StatusBadRequest, estimate.KindInvalidInput, "bedrooms"},
		{"bedrooms as text", `{"suburb":"Gungahlin","propertyType":"house","bedrooms":"three"}`, http.StatusBadRequest, estimate.KindInvalidInput, "bedrooms"},
		{"quality rating as text", `{"suburb":"Gungahlin","propertyType":"house","qualityRatings":{"kitchen":"good"}}`, http.StatusBadRequest, estimate.KindInvalidInput, "qualityRatings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/estimate", tt.body)
			assert.Equal(t, tt.status, w.Code)

			var body map[string]interface{}
			decode(t, w, &body)
			assert.Equal(t, string(tt.kind), body["kind"])
			assert.NotEmpty(t, body["error"])
			if tt.field != "" {
				field, _ := body["field"].(string)
				assert.True(t, strings.HasPrefix(field, tt.field), "field %q should name %q", field, tt.field)
			}
			assert.NotContains(t, body, "estimateLow")
			assert.NotContains(t, body, "estimateHigh")
		})
	}
}

func TestLookupAndSuburbs(t *testing.T) {
	s := setupTestServer(t)
	s.seedSales(t)

	w := s.do(t, http.MethodGet, "/api/lookup?q=3+oak&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var candidates []map[string]interface{}
	decode(t, w, &candidates)
	require.Len(t, candidates, 1)
	assert.Equal(t, "3 Oak St", candidates[0]["address"])
	assert.Equal(t, "prefix", candidates[0]["match"])

	w = s.do(t, http.MethodGet, "/api/lookup", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/suburbs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var suburbs []string
	decode(t, w, &suburbs)
	assert.Equal(t, []string{"Gungahlin"}, suburbs)
}

func TestAgentEndpoints(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodPost, "/api/admin/agents", map[string]string{"initials": "js", "name": "Jane Smith"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var agent models.Agent
	decode(t, w, &agent)
	assert.Equal(t, "JS", agent.Initials)
	assert.Equal(t, "Kippax", agent.Office)

	w = s.do(t, http.MethodPost, "/api/admin/agents", map[string]string{"initials": "JS", "name": "Jane Smythe", "office": "gungahlin"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &agent)
	assert.Equal(t, "Gungahlin", agent.Office)

	w = s.do(t, http.MethodPost, "/api/admin/agents", map[string]string{"initials": "AB", "name": "Al", "office": "Mars"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/admin/agents", map[string]string{"initials": "AB"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Assign a listing, then deletion is refused
	csv := listingsHeader + "\n2025-01-01,,1 Test St,,Holt,,,js,,,,,,,,,,,\n"
	w = s.upload(t, "/api/admin/upload", "spreadsheet", "listings.csv", []byte(csv))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/agents/%d", agent.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodDelete, "/api/admin/agents/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodDelete, "/api/admin/agents/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats models.DashboardStats
	decode(t, w, &stats)
	assert.Equal(t, int64(1), stats.AgentCount)
	assert.Equal(t, int64(1), stats.ListingCount)
}

func TestListingEndpoints(t *testing.T) {
	s := setupTestServer(t)

	csv := listingsHeader + "\n" +
		"2025-02-01,10am,1 A St,,Holt,,$900000,,Kippax,,House,4,2,2,,,,,\n" +
		"2025-01-01,11am,2 B St,,Page,,$450000,,Kaleen,,Unit,2,1,1,,,,,\n"
	w := s.upload(t, "/api/admin/upload", "spreadsheet", "listings.csv", []byte(csv))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result models.ImportResult
	decode(t, w, &result)
	assert.Equal(t, models.ImportResult{Processed: 2, Created: 2}, result)

	w = s.upload(t, "/api/admin/upload", "spreadsheet", "listings.csv", []byte("address\n1 A St\n"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing required columns")

	w = s.do(t, http.MethodGet, "/api/listings?bedrooms=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var search struct {
		Listings      []models.Listing `json:"listings"`
		PropertyTypes []string         `json:"property_types"`
		Offices       []string         `json:"offices"`
	}
	decode(t, w, &search)
	require.Len(t, search.Listings, 1)
	assert.Equal(t, "1 A St", search.Listings[0].Address)
	assert.Equal(t, []string{"House", "Unit"}, search.PropertyTypes)
	assert.NotEmpty(t, search.Offices)

	w = s.do(t, http.MethodGet, "/api/listings?bedrooms=lots", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/admin/listings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []models.Listing
	decode(t, w, &all)
	require.Len(t, all, 2)
	assert.Equal(t, "1 A St", all[0].Address)
	id := all[0].ID

	w = s.do(t, http.MethodPut, fmt.Sprintf("/api/admin/listings/%d", id), map[string]interface{}{
		"description": "  Renovated family home ",
		"needs_help":  true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.Listing
	decode(t, w, &updated)
	assert.Equal(t, "Renovated family home", updated.Description)
	assert.True(t, updated.NeedsHelp)

	w = s.do(t, http.MethodPut, fmt.Sprintf("/api/admin/listings/%d", id), map[string]interface{}{"agent_id": 42})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/admin/listings/999", map[string]interface{}{})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/listings?needs_help=true", nil)
	decode(t, w, &search)
	require.Len(t, search.Listings, 1)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/listings/%d", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/listings/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListingImageEndpoints(t *testing.T) {
	s := setupTestServer(t)

	_, err := s.db.ImportListings(context.Background(), []models.ListingRecord{{"address": "1 Test St"}})
	require.NoError(t, err)
	listings, err := s.db.ListListings(context.Background())
	require.NoError(t, err)
	path := fmt.Sprintf("/api/admin/listings/%d/images", listings[0].ID)

	w := s.upload(t, path, "image", "notes.txt", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.upload(t, "/api/admin/listings/999/images", "image", "front.jpg", []byte("x"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.upload(t, path, "image", "front door.jpg", []byte("jpegdata"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var image models.ListingImage
	decode(t, w, &image)
	assert.Equal(t, "front_door.jpg", image.Filename)

	w = s.do(t, http.MethodGet, "/uploads/front_door.jpg", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jpegdata", w.Body.String())

	w = s.do(t, http.MethodDelete, fmt.Sprintf("%s/%d", path, image.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	_, err = os.Stat(filepath.Join(s.images.Dir(), "front_door.jpg"))
	assert.True(t, os.IsNotExist(err))

	w = s.do(t, http.MethodDelete, fmt.Sprintf("%s/%d", path, image.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestComparablesUpload(t *testing.T) {
	s := setupTestServer(t)

	csv := "address,suburb,property_type,sale_date,sale_price,bedrooms,bathrooms,parking,land_size\n" +
		"1 Oak St,holt,house,2024-05-01,800000,3,2,1,600\n"
	w := s.upload(t, "/api/admin/comparables/upload", "file", "sales.csv", []byte(csv))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result models.ImportResult
	decode(t, w, &result)
	assert.Equal(t, 1, result.Created)

	w = s.upload(t, "/api/admin/comparables/upload", "file", "sales.csv", []byte(csv))
	decode(t, w, &result)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Skipped)

	bad := strings.Replace(csv, "house", "castle", 1)
	w = s.upload(t, "/api/admin/comparables/upload", "file", "sales.csv", []byte(bad))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "property_type")
}

func TestMapAndGeocode(t *testing.T) {
	s := setupTestServer(t)

	_, err := s.db.ImportListings(context.Background(), []models.ListingRecord{{"address": "1 Test St", "suburb": "Holt"}})
	require.NoError(t, err)
	listings, err := s.db.ListListings(context.Background())
	require.NoError(t, err)
	lat, lng := -35.22, 149.01
	require.NoError(t, s.db.SetListingCoordinates(context.Background(), listings[0].ID, &lat, &lng))

	w := s.do(t, http.MethodGet, "/api/listings/map", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fc map[string]interface{}
	decode(t, w, &fc)
	assert.Equal(t, "FeatureCollection", fc["type"])
	assert.Len(t, fc["features"], 1)

	w = s.do(t, http.MethodPost, "/api/admin/geocode", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestTriggerGeocode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	newJobs := func(job scheduler.Job) *Handler {
		jobs := scheduler.NewScheduler(time.Hour, logger)
		t.Cleanup(jobs.Stop)
		jobs.Register(scheduler.JobTypeGeocode, job)
		return NewHandler(Options{Scheduler: jobs, Logger: logger})
	}

	t.Run("completes", func(t *testing.T) {
		h := newJobs(func(ctx context.Context) error { return nil })

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/api/admin/geocode", nil)
		h.TriggerGeocode(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "completed")
	})

	t.Run("stops when the client disconnects", func(t *testing.T) {
		started := make(chan struct{})
		h := newJobs(func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/api/admin/geocode", nil).WithContext(ctx)

		done := make(chan struct{})
		go func() {
			h.TriggerGeocode(c)
			close(done)
		}()

		<-started
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("backfill kept running after the request was cancelled")
		}
		assert.NotContains(t, w.Body.String(), "completed")
	})
}
