package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"realestate/server/internal/estimate"
	"realestate/server/internal/lookup"
)

// EstimateError is the failure body for estimate requests. It never carries
// price fields.
type EstimateError struct {
	Kind  estimate.ErrorKind `json:"kind"`
	Error string             `json:"error"`
	Field string             `json:"field,omitempty"`
}

func (h *Handler) Estimate(c *gin.Context) {
	var req estimate.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, bindError(err))
		return
	}

	result, err := h.calculator.Estimate(c.Request.Context(), req)
	if err != nil {
		h.respondEstimateError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// bindError names the offending field when a value has the wrong JSON type
func bindError(err error) EstimateError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		want := "different type"
		if typeErr.Type != nil {
			want = jsonTypeName(typeErr.Type.Kind().String())
		}
		return EstimateError{
			Kind:  estimate.KindInvalidInput,
			Error: fmt.Sprintf("%s must be a %s, got %s", typeErr.Field, want, typeErr.Value),
			Field: typeErr.Field,
		}
	}
	return EstimateError{
		Kind:  estimate.KindInvalidInput,
		Error: "request body must be a JSON object with the estimate fields",
	}
}

func jsonTypeName(kind string) string {
	switch kind {
	case "int", "int64":
		return "whole number"
	case "float64":
		return "number"
	case "bool":
		return "boolean"
	default:
		return kind
	}
}

func (h *Handler) respondEstimateError(c *gin.Context, err error) {
	switch estimate.KindOf(err) {
	case estimate.KindInvalidInput:
		var invalid *estimate.InvalidInputError
		errors.As(err, &invalid)
		c.JSON(http.StatusBadRequest, EstimateError{
			Kind:  estimate.KindInvalidInput,
			Error: err.Error(),
			Field: invalid.Field,
		})
	case estimate.KindNoComparables:
		c.JSON(http.StatusNotFound, EstimateError{
			Kind:  estimate.KindNoComparables,
			Error: err.Error(),
		})
	default:
		h.log(c).WithError(err).Error("Estimate failed")
		c.JSON(http.StatusInternalServerError, EstimateError{
			Kind:  estimate.KindInternal,
			Error: "Failed to compute estimate",
		})
	}
}

func (h *Handler) Lookup(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	candidates, err := h.lookup.Lookup(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		if errors.Is(err, lookup.ErrEmptyQuery) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter q is required"})
			return
		}
		h.log(c).WithError(err).Error("Lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lookup failed"})
		return
	}
	c.JSON(http.StatusOK, candidates)
}

func (h *Handler) Suburbs(c *gin.Context) {
	suburbs, err := h.db.Suburbs(c.Request.Context())
	if err != nil {
		h.respondDBError(c, err, "suburbs")
		return
	}
	c.JSON(http.StatusOK, suburbs)
}

// UploadComparables imports comparable sales from the "file" field
func (h *Handler) UploadComparables(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	file, err := c.FormFile("file")
	if err != nil || file.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please select a CSV file to upload"})
		return
	}

	f, err := file.Open()
	if err != nil {
		h.log(c).WithError(err).Error("Failed to open uploaded comparables")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}
	defer f.Close()

	result, err := h.importer.ImportComparables(c.Request.Context(), f)
	if err != nil {
		h.respondImportError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
