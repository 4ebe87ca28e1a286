package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nqn-field/notifica/internal/middleware"
	"github.com/nqn-field/notifica/pkg/storage"
)

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps *Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := middleware.RequireAuth(deps.TokenManager)
	verifyLimit := middleware.RateLimit(
		float64(deps.Config.Verify.RateLimitPerSecond),
		deps.Config.Verify.RateLimitBurst,
	)

	deps.AuthHandler.RegisterRoutes(router, auth)
	deps.NotificationHandler.RegisterRoutes(router, auth)
	deps.CaptureHandler.RegisterRoutes(router, auth)
	deps.ImportHandler.RegisterRoutes(router, auth)
	deps.ZoneHandler.RegisterRoutes(router, auth)
	deps.SearchHandler.RegisterRoutes(router, auth)
	deps.VerifyHandler.RegisterRoutes(router, verifyLimit)

	// Capture artifacts are served straight off disk with the local backend.
	// The s3 backend returns absolute URLs instead.
	if storage.Backend(deps.Config.Storage.Backend) == storage.BackendLocal {
		router.Static("/uploads", deps.Config.Storage.LocalPath)
	}

	return router
}

// NewMetricsHandler serves the Prometheus scrape endpoint. It runs on its
// own port so the public listener never exposes operational data.
func NewMetricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
