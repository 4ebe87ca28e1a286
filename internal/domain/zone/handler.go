package zone

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	authrepo "github.com/nqn-field/notifica/internal/domain/auth/repository"
	"github.com/nqn-field/notifica/internal/middleware"
)

// Handler exposes the zone registry endpoints
type Handler struct {
	svc *Service
}

// NewHandler creates a new zone handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the zone routes
func (h *Handler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	api := router.Group("/api/zones", auth)
	api.GET("", h.List)
	api.POST("", middleware.RequireRole(authrepo.RoleAdmin), h.Create)
	api.POST("/resolve", h.Resolve)
}

// List returns all registered zones
func (h *Handler) List(c *gin.Context) {
	zones, err := h.svc.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list zones"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"zones": zones})
}

type createZoneRequest struct {
	Name       string   `json:"name" binding:"required"`
	Localities []string `json:"localities"`
}

// Create registers a new zone
func (h *Handler) Create(c *gin.Context) {
	var req createZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	z, err := h.svc.Create(c.Request.Context(), req.Name, req.Localities)
	if err != nil {
		if errors.Is(err, ErrZoneExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "zone already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create zone"})
		return
	}

	c.JSON(http.StatusCreated, z)
}

type resolveRequest struct {
	Address string `json:"address" binding:"required"`
}

// Resolve maps an address to a zone
func (h *Handler) Resolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address is required"})
		return
	}

	zone := h.svc.Resolve(req.Address)
	c.JSON(http.StatusOK, gin.H{"zone": zone, "matched": zone != ""})
}
