package geocoding

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"realestate/server/internal/models"
)

func newTestServer(t *testing.T, body string, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "au", r.URL.Query().Get("countrycodes"))
		assert.Equal(t, "12 Example St, Holt, ACT, Australia", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGeocodeAddressUsesCache(t *testing.T) {
	var calls int32
	srv := newTestServer(t, `[{"lat":"-35.2211","lon":"149.0412"}]`, &calls)
	cacheDir := t.TempDir()

	g := NewGeocoder(nil, Options{BaseURL: srv.URL, CacheDir: cacheDir, RequestsPerSecond: 100})

	lat, lng, err := g.GeocodeAddress(context.Background(), "12 Example St", "Holt")
	require.NoError(t, err)
	assert.InDelta(t, -35.2211, lat, 1e-9)
	assert.InDelta(t, 149.0412, lng, 1e-9)

	_, _, err = g.GeocodeAddress(context.Background(), "12 example st ", "HOLT")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// A new geocoder picks the cache up from disk
	reloaded := NewGeocoder(nil, Options{BaseURL: srv.URL, CacheDir: cacheDir, RequestsPerSecond: 100})
	lat, _, err = reloaded.GeocodeAddress(context.Background(), "12 Example St", "Holt")
	require.NoError(t, err)
	assert.InDelta(t, -35.2211, lat, 1e-9)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGeocodeAddressNoResults(t *testing.T) {
	var calls int32
	srv := newTestServer(t, `[]`, &calls)

	g := NewGeocoder(nil, Options{BaseURL: srv.URL, RequestsPerSecond: 100})
	_, _, err := g.GeocodeAddress(context.Background(), "12 Example St", "Holt")

	assert.ErrorIs(t, err, ErrNoResults)
}

func TestGeocodeAddressCancelled(t *testing.T) {
	g := NewGeocoder(nil, Options{BaseURL: "http://127.0.0.1:0", RequestsPerSecond: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := g.GeocodeAddress(ctx, "12 Example St", "Holt")
	assert.Error(t, err)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) ListingsMissingCoordinates(ctx context.Context, limit int) ([]models.Listing, error) {
	args := m.Called(ctx, limit)
	listings, _ := args.Get(0).([]models.Listing)
	return listings, args.Error(1)
}

func (m *MockStore) SetListingCoordinates(ctx context.Context, id uint, lat, lng *float64) error {
	args := m.Called(ctx, id, lat, lng)
	return args.Error(0)
}

type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) GeocodeAddress(ctx context.Context, address, suburb string) (float64, float64, error) {
	args := m.Called(ctx, address, suburb)
	return args.Get(0).(float64), args.Get(1).(float64), args.Error(2)
}

func TestBackfill(t *testing.T) {
	logger := logrus.New()
	store := new(MockStore)
	geocoder := new(MockGeocoder)

	store.On("ListingsMissingCoordinates", mock.Anything, 5).Return([]models.Listing{
		{ID: 1, Address: "1 Found St", Suburb: "Holt"},
		{ID: 2, Address: "2 Lost St", Suburb: "Holt"},
	}, nil)
	geocoder.On("GeocodeAddress", mock.Anything, "1 Found St", "Holt").Return(-35.2, 149.1, nil)
	geocoder.On("GeocodeAddress", mock.Anything, "2 Lost St", "Holt").Return(0.0, 0.0, ErrNoResults)

	store.On("SetListingCoordinates", mock.Anything, uint(1), mock.MatchedBy(func(lat *float64) bool {
		return lat != nil && *lat == -35.2
	}), mock.Anything).Return(nil)
	store.On("SetListingCoordinates", mock.Anything, uint(2), (*float64)(nil), (*float64)(nil)).Return(nil)

	result, err := Backfill(context.Background(), store, geocoder, 5, logger)

	require.NoError(t, err)
	assert.Equal(t, BackfillResult{Attempted: 2, Geocoded: 1, Failed: 1}, result)
	store.AssertExpectations(t)
	geocoder.AssertExpectations(t)
}

func TestBackfillStopsOnStoreError(t *testing.T) {
	store := new(MockStore)
	store.On("ListingsMissingCoordinates", mock.Anything, 5).Return(nil, errors.New("db closed"))

	_, err := Backfill(context.Background(), store, new(MockGeocoder), 5, logrus.New())

	assert.Error(t, err)
}
