package api

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"realestate/server/internal/database"
	"realestate/server/internal/estimate"
	"realestate/server/internal/importer"
	"realestate/server/internal/lookup"
	"realestate/server/internal/scheduler"
	"realestate/server/internal/storage"
)

type Handler struct {
	db         *database.Database
	calculator *estimate.Calculator
	lookup     *lookup.Service
	importer   *importer.Service
	images     *storage.ImageStore
	scheduler  *scheduler.Scheduler
	maxUpload  int64
	logger     *logrus.Logger
}

// Options wires the services a Handler serves. Scheduler may be nil when
// geocoding is disabled.
type Options struct {
	Database       *database.Database
	Calculator     *estimate.Calculator
	Lookup         *lookup.Service
	Importer       *importer.Service
	Images         *storage.ImageStore
	Scheduler      *scheduler.Scheduler
	MaxUploadBytes int64
	Logger         *logrus.Logger
}

func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}

	return &Handler{
		db:         opts.Database,
		calculator: opts.Calculator,
		lookup:     opts.Lookup,
		importer:   opts.Importer,
		images:     opts.Images,
		scheduler:  opts.Scheduler,
		maxUpload:  opts.MaxUploadBytes,
		logger:     logger,
	}
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.db.GetDB().WithContext(c.Request.Context()).Exec("SELECT 1").Error; err != nil {
		h.log(c).WithError(err).Error("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Dashboard(c *gin.Context) {
	stats, err := h.db.DashboardStats(c.Request.Context())
	if err != nil {
		h.log(c).WithError(err).Error("Failed to get dashboard stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get dashboard stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// TriggerGeocode runs the geocoding backfill now. The batch stops early if
// the client goes away.
func (h *Handler) TriggerGeocode(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Geocoding is disabled"})
		return
	}

	ctx := c.Request.Context()
	if err := h.scheduler.RunNowContext(ctx, scheduler.JobTypeGeocode); err != nil {
		if ctx.Err() != nil {
			h.log(c).WithError(err).Info("Geocoding stopped, client disconnected")
			return
		}
		h.log(c).WithError(err).Error("Failed to update coordinates")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update coordinates"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + param})
		return 0, false
	}
	return uint(id), true
}

// respondDBError maps database sentinel errors to responses
func (h *Handler) respondDBError(c *gin.Context, err error, what string) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
	case errors.Is(err, database.ErrAgentHasListings):
		c.JSON(http.StatusConflict, gin.H{"error": "Cannot delete an agent who has listings assigned"})
	case errors.Is(err, database.ErrUnknownAgent):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Agent does not exist"})
	default:
		h.log(c).WithError(err).Errorf("Database error on %s", what)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
