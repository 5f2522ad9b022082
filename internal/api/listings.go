package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"realestate/server/config"
	"realestate/server/internal/geometry"
	"realestate/server/internal/importer"
	"realestate/server/internal/models"
	"realestate/server/internal/storage"
)

// ListingQuery binds the public search filters
type ListingQuery struct {
	NeedsHelp    bool   `form:"needs_help"`
	Suburb       string `form:"suburb"`
	PropertyType string `form:"property_type"`
	Office       string `form:"office"`
	Bedrooms     *int   `form:"bedrooms"`
	Bathrooms    *int   `form:"bathrooms"`
	Garages      *int   `form:"garages"`
	PriceMin     *int   `form:"price_min"`
	PriceMax     *int   `form:"price_max"`
}

func (q ListingQuery) filters() models.ListingFilters {
	return models.ListingFilters{
		NeedsHelp:    q.NeedsHelp,
		Suburb:       q.Suburb,
		PropertyType: q.PropertyType,
		Office:       q.Office,
		Bedrooms:     q.Bedrooms,
		Bathrooms:    q.Bathrooms,
		Garages:      q.Garages,
		PriceMin:     q.PriceMin,
		PriceMax:     q.PriceMax,
	}
}

func (h *Handler) SearchListings(c *gin.Context) {
	var query ListingQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter value"})
		return
	}

	filters := query.filters()
	ctx := c.Request.Context()

	listings, err := h.db.SearchListings(ctx, filters)
	if err != nil {
		h.respondDBError(c, err, "listings")
		return
	}
	propertyTypes, err := h.db.PropertyTypes(ctx)
	if err != nil {
		h.respondDBError(c, err, "property types")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"listings":       listings,
		"property_types": propertyTypes,
		"offices":        config.Offices,
		"filters":        filters,
	})
}

func (h *Handler) GetListing(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	listing, err := h.db.GetListing(c.Request.Context(), id)
	if err != nil {
		h.respondDBError(c, err, "listing")
		return
	}
	c.JSON(http.StatusOK, listing)
}

// ListingsMap returns geocoded listings as GeoJSON, with suburb hulls when
// hulls=true is passed.
func (h *Handler) ListingsMap(c *gin.Context) {
	listings, err := h.db.GeocodedListings(c.Request.Context())
	if err != nil {
		h.respondDBError(c, err, "listings")
		return
	}
	withHulls, _ := strconv.ParseBool(c.Query("hulls"))
	c.JSON(http.StatusOK, geometry.ListingFeatures(listings, withHulls))
}

func (h *Handler) AdminListings(c *gin.Context) {
	listings, err := h.db.ListListings(c.Request.Context())
	if err != nil {
		h.respondDBError(c, err, "listings")
		return
	}
	c.JSON(http.StatusOK, listings)
}

func (h *Handler) UpdateListing(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var details models.ListingDetails
	if err := c.ShouldBindJSON(&details); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	listing, err := h.db.UpdateListingDetails(c.Request.Context(), id, details)
	if err != nil {
		h.respondDBError(c, err, "listing")
		return
	}
	c.JSON(http.StatusOK, listing)
}

// UploadSpreadsheet imports a listings CSV or XLSX from the "spreadsheet" field
func (h *Handler) UploadSpreadsheet(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	file, err := c.FormFile("spreadsheet")
	if err != nil || file.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please select a spreadsheet to upload"})
		return
	}

	f, err := file.Open()
	if err != nil {
		h.log(c).WithError(err).Error("Failed to open uploaded spreadsheet")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read spreadsheet"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		h.log(c).WithError(err).Error("Failed to read uploaded spreadsheet")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read spreadsheet"})
		return
	}

	result, err := h.importer.ImportListings(c.Request.Context(), file.Filename, data)
	if err != nil {
		h.respondImportError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) respondImportError(c *gin.Context, err error) {
	if errors.Is(err, importer.ErrInvalidFile) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not parse file: " + err.Error()})
		return
	}
	h.log(c).WithError(err).Error("Import failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Import failed"})
}

// UploadImage attaches an image from the "image" field to a listing
func (h *Handler) UploadImage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.db.GetListing(ctx, id); err != nil {
		h.respondDBError(c, err, "listing")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	file, err := c.FormFile("image")
	if err != nil || file.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Select an image to upload"})
		return
	}
	if !storage.Allowed(file.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported file type. Please upload an image"})
		return
	}

	f, err := file.Open()
	if err != nil {
		h.log(c).WithError(err).Error("Failed to open uploaded image")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read image"})
		return
	}
	defer f.Close()

	filename, err := h.images.Save(file.Filename, f)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) || errors.Is(err, storage.ErrInvalidFilename) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.log(c).WithError(err).Error("Failed to store image")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store image"})
		return
	}

	image, err := h.db.AddListingImage(ctx, id, filename)
	if err != nil {
		if rmErr := h.images.Remove(filename); rmErr != nil {
			h.log(c).WithError(rmErr).Warn("Failed to clean up image")
		}
		h.respondDBError(c, err, "listing")
		return
	}
	c.JSON(http.StatusCreated, image)
}

func (h *Handler) DeleteImage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	imageID, ok := parseID(c, "image_id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	image, err := h.db.GetListingImage(ctx, id, imageID)
	if err != nil {
		h.respondDBError(c, err, "image")
		return
	}
	if err := h.images.Remove(image.Filename); err != nil {
		h.log(c).WithError(err).Warn("Failed to remove image file")
	}
	if err := h.db.DeleteListingImage(ctx, image); err != nil {
		h.respondDBError(c, err, "image")
		return
	}
	c.Status(http.StatusNoContent)
}
