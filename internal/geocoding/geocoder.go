package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var ErrNoResults = errors.New("no geocoding results")

type Options struct {
	BaseURL           string
	CacheDir          string
	RequestsPerSecond float64
	Region            string
}

type Geocoder struct {
	logger    *logrus.Logger
	baseURL   string
	region    string
	cacheDir  string
	cache     map[string][]float64
	cacheLock sync.RWMutex
	limiter   *rate.Limiter
	client    *http.Client
}

func NewGeocoder(logger *logrus.Logger, opts Options) *Geocoder {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 1
	}
	if opts.Region == "" {
		opts.Region = "ACT, Australia"
	}

	g := &Geocoder{
		logger:   logger,
		baseURL:  opts.BaseURL,
		region:   opts.Region,
		cacheDir: opts.CacheDir,
		cache:    make(map[string][]float64),
		limiter:  rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		client:   &http.Client{Timeout: 10 * time.Second},
	}

	if g.cacheDir != "" {
		if err := os.MkdirAll(g.cacheDir, 0755); err != nil {
			logger.WithError(err).Warn("Could not create geocode cache directory")
		}
		g.loadCache()
	}

	return g
}

func (g *Geocoder) cacheFile() string {
	return filepath.Join(g.cacheDir, "geocode_cache.json")
}

func (g *Geocoder) loadCache() {
	data, err := os.ReadFile(g.cacheFile())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			g.logger.Warnf("Could not load geocode cache: %v", err)
		}
		return
	}

	if err := json.Unmarshal(data, &g.cache); err != nil {
		g.logger.Errorf("Failed to parse geocode cache: %v", err)
		return
	}

	g.logger.Infof("Loaded %d cached addresses", len(g.cache))
}

func (g *Geocoder) saveCache() {
	if g.cacheDir == "" {
		return
	}

	g.cacheLock.RLock()
	data, err := json.Marshal(g.cache)
	g.cacheLock.RUnlock()
	if err != nil {
		g.logger.Errorf("Failed to marshal geocode cache: %v", err)
		return
	}

	if err := os.WriteFile(g.cacheFile(), data, 0644); err != nil {
		g.logger.Errorf("Failed to save geocode cache: %v", err)
	}
}

type nominatimResponse []struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func cacheKey(address, suburb string) string {
	return strings.ToLower(strings.TrimSpace(address)) + "|" + strings.ToLower(strings.TrimSpace(suburb))
}

// GeocodeAddress resolves a listing address within its suburb. Results are
// cached by address and suburb; upstream calls are rate limited.
func (g *Geocoder) GeocodeAddress(ctx context.Context, address, suburb string) (float64, float64, error) {
	key := cacheKey(address, suburb)
	parts := []string{address}
	if suburb != "" {
		parts = append(parts, suburb)
	}
	fullAddress := strings.Join(append(parts, g.region), ", ")

	g.cacheLock.RLock()
	coords, ok := g.cache[key]
	g.cacheLock.RUnlock()
	if ok {
		if len(coords) == 2 {
			g.logger.WithFields(logrus.Fields{
				"address":   fullAddress,
				"latitude":  coords[0],
				"longitude": coords[1],
				"source":    "cache",
			}).Debug("Found coordinates in cache")
			return coords[0], coords[1], nil
		}
		return 0, 0, fmt.Errorf("invalid cached coordinates for %s", fullAddress)
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return 0, 0, err
	}

	g.logger.WithField("address", fullAddress).Info("Geocoding address with Nominatim")

	params := url.Values{
		"q":            []string{fullAddress},
		"format":       []string{"json"},
		"limit":        []string{"1"},
		"countrycodes": []string{"au"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("User-Agent", "RealEstate Listings Portal/1.0")
	req.Header.Set("Accept-Language", "en-AU,en;q=0.9")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.WithError(err).WithField("address", fullAddress).Error("Geocoding request failed")
		return 0, 0, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocoding request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read response: %w", err)
	}

	var result nominatimResponse
	if err := json.Unmarshal(body, &result); err != nil {
		g.logger.WithError(err).WithField("address", fullAddress).Error("Failed to parse response")
		return 0, 0, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(result) == 0 {
		g.logger.WithField("address", fullAddress).Warn("No results found")
		return 0, 0, fmt.Errorf("%w for address: %s", ErrNoResults, fullAddress)
	}

	lat, err := strconv.ParseFloat(result[0].Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q: %w", result[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(result[0].Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q: %w", result[0].Lon, err)
	}

	g.logger.WithFields(logrus.Fields{
		"address":   fullAddress,
		"latitude":  lat,
		"longitude": lon,
		"source":    "nominatim",
	}).Info("Successfully geocoded address")

	g.cacheLock.Lock()
	g.cache[key] = []float64{lat, lon}
	g.cacheLock.Unlock()

	g.saveCache()

	return lat, lon, nil
}
