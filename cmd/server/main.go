package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"realestate/server/config"
	"realestate/server/internal/api"
	"realestate/server/internal/database"
	"realestate/server/internal/estimate"
	"realestate/server/internal/geocoding"
	"realestate/server/internal/importer"
	"realestate/server/internal/lookup"
	"realestate/server/internal/scheduler"
	"realestate/server/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	// A missing .env is fine; the environment may already be set
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	gin.SetMode(cfg.Server.GinMode)
	if cfg.Server.GinMode == gin.DebugMode {
		logger.SetLevel(logrus.DebugLevel)
	}

	logger.Infof("Using database at: %s", cfg.Database.Path)
	db, err := database.NewDatabase(cfg.Database.Path, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	imports := importer.NewService(db, importer.RetryPolicy{
		MaxRetries: cfg.Import.MaxRetries,
		Delay:      time.Duration(cfg.Import.RetryDelay) * time.Second,
	}, logger)

	if cfg.Import.ComparablesCSV != "" {
		result, err := imports.SeedComparables(ctx, cfg.Import.ComparablesCSV)
		if err != nil {
			logger.WithError(err).Fatal("Failed to load comparable sales")
		}
		logger.WithFields(logrus.Fields{
			"file":    cfg.Import.ComparablesCSV,
			"created": result.Created,
		}).Info("Loaded comparable sales")
	}

	calculator, err := estimate.NewCalculator(db, cfg.Estimate, logger)
	if err != nil {
		logger.WithError(err).Fatal("Invalid estimate settings")
	}

	images, err := storage.NewImageStore(cfg.Uploads.Dir, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize image storage")
	}

	var jobs *scheduler.Scheduler
	if cfg.Geocoding.Enabled {
		cacheDir := cfg.Geocoding.CacheDir
		if cacheDir == "" {
			cacheDir = filepath.Join(os.TempDir(), "realestate", "geocode_cache")
		}
		geocoder := geocoding.NewGeocoder(logger, geocoding.Options{
			BaseURL:           cfg.Geocoding.BaseURL,
			CacheDir:          cacheDir,
			RequestsPerSecond: cfg.Geocoding.RequestsPerSecond,
		})

		jobs = scheduler.NewScheduler(time.Duration(cfg.Geocoding.IntervalMinutes)*time.Minute, logger)
		jobs.Register(scheduler.JobTypeGeocode, func(ctx context.Context) error {
			_, err := geocoding.Backfill(ctx, db, geocoder, cfg.Geocoding.BatchSize, logger)
			return err
		})
		jobs.Start()
		defer jobs.Stop()
	}

	handler := api.NewHandler(api.Options{
		Database:       db,
		Calculator:     calculator,
		Lookup:         lookup.NewService(db, logger),
		Importer:       imports,
		Images:         images,
		Scheduler:      jobs,
		MaxUploadBytes: cfg.Uploads.MaxBytes,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.NewRouter(handler, cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("Server stopped with error")
		return
	}
	logger.Info("Server stopped")
}
