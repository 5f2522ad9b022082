package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with middleware and all routes
func NewRouter(handler *Handler, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(handler.logger))
	router.Use(cors.New(corsConfig(allowedOrigins)))

	SetupRoutes(router, handler)
	return router
}

func corsConfig(allowedOrigins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowedOrigins
	}
	return cfg
}

func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.GET("/healthz", handler.Health)
	router.Static("/uploads", handler.images.Dir())

	api := router.Group("/api")
	{
		api.GET("/listings", handler.SearchListings)
		api.GET("/listings/map", handler.ListingsMap)
		api.GET("/listings/:id", handler.GetListing)
		api.GET("/suburbs", handler.Suburbs)
		api.GET("/lookup", handler.Lookup)
		api.POST("/estimate", handler.Estimate)
	}

	admin := api.Group("/admin")
	{
		admin.GET("", handler.Dashboard)
		admin.GET("/agents", handler.ListAgents)
		admin.POST("/agents", handler.SaveAgent)
		admin.DELETE("/agents/:id", handler.DeleteAgent)
		admin.POST("/upload", handler.UploadSpreadsheet)
		admin.GET("/listings", handler.AdminListings)
		admin.PUT("/listings/:id", handler.UpdateListing)
		admin.POST("/listings/:id/images", handler.UploadImage)
		admin.DELETE("/listings/:id/images/:image_id", handler.DeleteImage)
		admin.POST("/comparables/upload", handler.UploadComparables)
		admin.POST("/geocode", handler.TriggerGeocode)
	}
}
