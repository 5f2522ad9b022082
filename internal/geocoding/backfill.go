package geocoding

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"realestate/server/internal/models"
)

type ListingStore interface {
	ListingsMissingCoordinates(ctx context.Context, limit int) ([]models.Listing, error)
	SetListingCoordinates(ctx context.Context, id uint, lat, lng *float64) error
}

type AddressGeocoder interface {
	GeocodeAddress(ctx context.Context, address, suburb string) (float64, float64, error)
}

type BackfillResult struct {
	Attempted int `json:"attempted"`
	Geocoded  int `json:"geocoded"`
	Failed    int `json:"failed"`
}

// Backfill geocodes up to batchSize listings that have no coordinates yet.
// A failed lookup is recorded so the listing is not retried.
func Backfill(ctx context.Context, store ListingStore, geocoder AddressGeocoder, batchSize int, logger *logrus.Logger) (BackfillResult, error) {
	var result BackfillResult

	listings, err := store.ListingsMissingCoordinates(ctx, batchSize)
	if err != nil {
		return result, err
	}

	for _, listing := range listings {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Attempted++

		lat, lng, err := geocoder.GeocodeAddress(ctx, listing.Address, listing.Suburb)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return result, err
			}
			logger.WithError(err).WithField("listing_id", listing.ID).Warn("Failed to geocode listing")
			result.Failed++
			if err := store.SetListingCoordinates(ctx, listing.ID, nil, nil); err != nil {
				return result, fmt.Errorf("failed to record geocoding attempt: %w", err)
			}
			continue
		}

		if err := store.SetListingCoordinates(ctx, listing.ID, &lat, &lng); err != nil {
			return result, fmt.Errorf("failed to store coordinates: %w", err)
		}
		result.Geocoded++
	}

	if result.Attempted > 0 {
		logger.WithFields(logrus.Fields{
			"attempted": result.Attempted,
			"geocoded":  result.Geocoded,
			"failed":    result.Failed,
		}).Info("Geocoding backfill finished")
	}

	return result, nil
}
