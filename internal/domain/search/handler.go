package search

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	authrepo "github.com/nqn-field/notifica/internal/domain/auth/repository"
	"github.com/nqn-field/notifica/internal/middleware"
)

// Handler exposes the notification search endpoints
type Handler struct {
	svc *Service
}

// NewHandler creates a new search handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the search routes. Search is office tooling.
func (h *Handler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	staff := middleware.RequireRole(authrepo.RoleAdmin, authrepo.RoleOffice)

	api := router.Group("/api/search", auth, staff)
	api.GET("", h.Search)
	api.POST("/reindex", middleware.RequireRole(authrepo.RoleAdmin), h.Reindex)
}

// Search runs a free-text query over the notification index
func (h *Handler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	hits, err := h.svc.Search(c.Request.Context(), query, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"hits": hits, "total": len(hits)})
}

// Reindex rebuilds the search index from the database
func (h *Handler) Reindex(c *gin.Context) {
	indexed, err := h.svc.Reindex(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reindex failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"indexed": indexed})
}
