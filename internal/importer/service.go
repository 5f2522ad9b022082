// Package importer turns uploaded spreadsheets into listings and comparable
// sales and writes them with retry.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"realestate/server/internal/models"
)

// ErrInvalidFile wraps every error caused by the uploaded content itself
var ErrInvalidFile = errors.New("invalid file")

// Store is the persistence the importer writes through
type Store interface {
	ImportListings(ctx context.Context, records []models.ListingRecord) (models.ImportResult, error)
	InsertSales(ctx context.Context, sales []models.ComparableSale) (int, error)
}

type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

// Service handles the parsing and storing of uploads
type Service struct {
	store  Store
	retry  RetryPolicy
	logger *logrus.Logger
}

func NewService(store Store, retry RetryPolicy, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	if retry.MaxRetries < 0 {
		retry.MaxRetries = 0
	}
	return &Service{store: store, retry: retry, logger: logger}
}

// ImportListings parses a listings spreadsheet and applies it in one
// transaction. Parse errors are returned without touching the store.
func (s *Service) ImportListings(ctx context.Context, filename string, data []byte) (models.ImportResult, error) {
	records, err := ParseListings(filename, data)
	if err != nil {
		return models.ImportResult{}, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	var result models.ImportResult
	err = s.withRetry(ctx, "listings", func() error {
		var err error
		result, err = s.store.ImportListings(ctx, records)
		return err
	})
	if err != nil {
		return models.ImportResult{}, err
	}

	s.logger.WithFields(logrus.Fields{
		"file":      filename,
		"processed": result.Processed,
		"created":   result.Created,
		"skipped":   result.Skipped,
	}).Info("Imported listings spreadsheet")

	return result, nil
}

// ImportComparables parses a comparable sales CSV and stores the new sales
func (s *Service) ImportComparables(ctx context.Context, r io.Reader) (models.ImportResult, error) {
	sales, err := ParseComparables(r)
	if err != nil {
		return models.ImportResult{}, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	var inserted int
	err = s.withRetry(ctx, "comparables", func() error {
		var err error
		inserted, err = s.store.InsertSales(ctx, sales)
		return err
	})
	if err != nil {
		return models.ImportResult{}, err
	}

	result := models.ImportResult{
		Processed: len(sales),
		Created:   inserted,
		Skipped:   len(sales) - inserted,
	}
	s.logger.WithFields(logrus.Fields{
		"processed": result.Processed,
		"created":   result.Created,
	}).Info("Imported comparable sales")

	return result, nil
}

// SeedComparables loads a comparables CSV from disk
func (s *Service) SeedComparables(ctx context.Context, path string) (models.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.ImportResult{}, fmt.Errorf("failed to open comparables file: %w", err)
	}
	defer f.Close()

	return s.ImportComparables(ctx, f)
}

func (s *Service) withRetry(ctx context.Context, what string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Infof("Retrying %s import, attempt %d of %d", what, attempt, s.retry.MaxRetries)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.retry.Delay):
			}
		}

		if err = fn(); err == nil {
			return nil
		}
		s.logger.WithError(err).Errorf("Import of %s failed", what)
	}

	return fmt.Errorf("failed to import %s after %d attempts: %w", what, s.retry.MaxRetries+1, err)
}
