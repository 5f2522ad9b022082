package config

import (
	"github.com/caarlos0/env/v10"

	"realestate/server/internal/estimate"
)

type Config struct {
	Server struct {
		Port string `env:"PORT" envDefault:"5250"`

		// Gin mode: debug, release or test
		GinMode string `env:"GIN_MODE" envDefault:"release"`

		AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

		// Seconds to wait for in-flight requests on shutdown
		ShutdownTimeout int `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	}

	Database struct {
		Path string `env:"DATABASE_PATH" envDefault:"database/realestate.db"`
	}

	Uploads struct {
		Dir string `env:"UPLOAD_DIR" envDefault:"static/uploads"`

		// Largest multipart body accepted for spreadsheets and images
		MaxBytes int64 `env:"UPLOAD_MAX_BYTES" envDefault:"10485760"`
	}

	Import struct {
		// Maximum number of retries for a failed import transaction
		MaxRetries int `env:"IMPORT_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"IMPORT_RETRY_DELAY" envDefault:"1"`

		// Optional CSV of comparable sales loaded at start-up
		ComparablesCSV string `env:"COMPARABLES_CSV"`
	}

	Geocoding struct {
		Enabled  bool   `env:"GEOCODING_ENABLED" envDefault:"false"`
		BaseURL  string `env:"GEOCODING_URL" envDefault:"https://nominatim.openstreetmap.org/search"`
		CacheDir string `env:"GEOCODING_CACHE_DIR"`

		// Nominatim allows at most one request per second
		RequestsPerSecond float64 `env:"GEOCODING_RPS" envDefault:"1"`

		// Minutes between background backfill runs
		IntervalMinutes int `env:"GEOCODING_INTERVAL" envDefault:"60"`
		BatchSize       int `env:"GEOCODING_BATCH_SIZE" envDefault:"10"`
	}

	Estimate estimate.Settings
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Estimate.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
