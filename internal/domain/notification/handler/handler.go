// Package handler exposes the notification HTTP endpoints.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authrepo "github.com/nqn-field/notifica/internal/domain/auth/repository"
	"github.com/nqn-field/notifica/internal/domain/notification/repository"
	"github.com/nqn-field/notifica/internal/domain/notification/service"
	"github.com/nqn-field/notifica/internal/middleware"
)

// NotificationHandler handles notification listing, assignment and reporting
type NotificationHandler struct {
	svc *service.Service
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(svc *service.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// RegisterRoutes registers the notification routes. All routes require
// authentication; staff-only routes additionally check the role.
func (h *NotificationHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	staff := middleware.RequireRole(authrepo.RoleAdmin, authrepo.RoleOffice)

	api := router.Group("/api", auth)
	api.GET("/notifications", staff, h.List)
	api.GET("/notifications/zones", staff, h.Zones)
	api.GET("/notifications/:id", h.Get)
	api.POST("/notifications", staff, h.Create)
	api.PUT("/notifications/:id", staff, h.Update)
	api.DELETE("/notifications/:id", middleware.RequireRole(authrepo.RoleAdmin), h.Delete)
	api.POST("/notifications/assign", staff, h.Assign)
	api.POST("/notifications/unassign", staff, h.Unassign)
	api.POST("/notifications/:id/fail", h.MarkFailed)
	api.GET("/assignments", h.ListAssignments)
	api.GET("/stats", staff, h.Stats)
	api.GET("/report", staff, h.Report)
}

type notificationResponse struct {
	ID                uuid.UUID  `json:"id"`
	BatchID           *uuid.UUID `json:"batch_id,omitempty"`
	OrderNumber       string     `json:"order_number"`
	SupplyNumber      string     `json:"supply_number"`
	ClientNumber      string     `json:"client_number"`
	CitizenName       string     `json:"citizen_name"`
	Address           string     `json:"address"`
	Zone              string     `json:"zone,omitempty"`
	Phone             string     `json:"phone,omitempty"`
	NotificationType  string     `json:"notification_type"`
	Status            string     `json:"status"`
	AssignedTo        *uuid.UUID `json:"assigned_to,omitempty"`
	Latitude          *float64   `json:"latitude,omitempty"`
	Longitude         *float64   `json:"longitude,omitempty"`
	PhotoURL          *string    `json:"photo_url,omitempty"`
	SignatureURL      *string    `json:"signature_url,omitempty"`
	Observations      string     `json:"observations,omitempty"`
	Result            string     `json:"result,omitempty"`
	VerificationToken *string    `json:"verification_token,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func toResponse(n *repository.Notification) notificationResponse {
	return notificationResponse{
		ID:                n.ID,
		BatchID:           n.BatchID,
		OrderNumber:       n.OrderNumber,
		SupplyNumber:      n.SupplyNumber,
		ClientNumber:      n.ClientNumber,
		CitizenName:       n.CitizenName,
		Address:           n.Address,
		Zone:              n.Zone,
		Phone:             n.Phone,
		NotificationType:  n.NotificationType,
		Status:            string(n.Status),
		AssignedTo:        n.AssignedTo,
		Latitude:          n.Latitude,
		Longitude:         n.Longitude,
		PhotoURL:          n.PhotoURL,
		SignatureURL:      n.SignatureURL,
		Observations:      n.Observations,
		Result:            n.Result,
		VerificationToken: n.VerificationToken,
		CompletedAt:       n.CompletedAt,
		CreatedAt:         n.CreatedAt,
	}
}

func toResponses(ns []*repository.Notification) []notificationResponse {
	out := make([]notificationResponse, 0, len(ns))
	for _, n := range ns {
		out = append(out, toResponse(n))
	}
	return out
}

// List returns notifications filtered by query parameters
func (h *NotificationHandler) List(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}

	items, total, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": toResponses(items),
		"total":         total,
		"limit":         f.Limit,
		"offset":        f.Offset,
	})
}

// Get returns a single notification by ID
func (h *NotificationHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification ID"})
		return
	}

	n, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get notification"})
		return
	}

	c.JSON(http.StatusOK, toResponse(n))
}

// ListAssignments returns the open notifications assigned to the caller
func (h *NotificationHandler) ListAssignments(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	items, err := h.svc.ListAssignments(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list assignments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": toResponses(items), "total": len(items)})
}

type createRequest struct {
	OrderNumber      string `json:"order_number" binding:"required"`
	SupplyNumber     string `json:"supply_number"`
	ClientNumber     string `json:"client_number"`
	CitizenName      string `json:"citizen_name" binding:"required"`
	Address          string `json:"address" binding:"required"`
	Zone             string `json:"zone"`
	Phone            string `json:"phone"`
	NotificationType string `json:"notification_type"`
}

// Create registers a manually entered notification
func (h *NotificationHandler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification payload"})
		return
	}

	n := &repository.Notification{
		OrderNumber:      req.OrderNumber,
		SupplyNumber:     req.SupplyNumber,
		ClientNumber:     req.ClientNumber,
		CitizenName:      req.CitizenName,
		Address:          req.Address,
		Zone:             req.Zone,
		Phone:            req.Phone,
		NotificationType: req.NotificationType,
	}
	if err := h.svc.Create(c.Request.Context(), n); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create notification"})
		return
	}

	c.JSON(http.StatusCreated, toResponse(n))
}

type updateRequest struct {
	CitizenName      string `json:"citizen_name" binding:"required"`
	Address          string `json:"address" binding:"required"`
	Zone             string `json:"zone"`
	Phone            string `json:"phone"`
	NotificationType string `json:"notification_type"`
}

// Update edits an open notification; completed records are immutable
func (h *NotificationHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification ID"})
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification payload"})
		return
	}

	n := &repository.Notification{
		ID:               id,
		CitizenName:      req.CitizenName,
		Address:          req.Address,
		Zone:             req.Zone,
		Phone:            req.Phone,
		NotificationType: req.NotificationType,
	}
	if err := h.svc.Update(c.Request.Context(), n); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found or already completed"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update notification"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// Delete removes an uncompleted notification
func (h *NotificationHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification ID"})
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found or already completed"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete notification"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type assignRequest struct {
	NotificationIDs []uuid.UUID `json:"notification_ids"`
	Zone            string      `json:"zone"`
	AgentID         uuid.UUID   `json:"agent_id" binding:"required"`
}

// Assign assigns notifications to a field agent, either by explicit ids or
// by zone (every open unassigned record in the zone).
func (h *NotificationHandler) Assign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.NotificationIDs) == 0 && req.Zone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "notification_ids or zone is required"})
		return
	}

	var (
		updated int
		err     error
	)
	if len(req.NotificationIDs) > 0 {
		updated, err = h.svc.Assign(c.Request.Context(), req.NotificationIDs, req.AgentID)
	} else {
		updated, err = h.svc.AssignZone(c.Request.Context(), req.Zone, req.AgentID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to assign notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"assigned": updated})
}

type unassignRequest struct {
	NotificationIDs []uuid.UUID `json:"notification_ids" binding:"required,min=1"`
}

// Unassign returns notifications to the unassigned pool
func (h *NotificationHandler) Unassign(c *gin.Context) {
	var req unassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	updated, err := h.svc.Unassign(c.Request.Context(), req.NotificationIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to unassign notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unassigned": updated})
}

// Zones lists the zones currently holding notifications with their progress
func (h *NotificationHandler) Zones(c *gin.Context) {
	zones, err := h.svc.ZonesInUse(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list zones"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"zones": zones})
}

// MarkFailed flags a notification as undeliverable
func (h *NotificationHandler) MarkFailed(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification ID"})
		return
	}

	if err := h.svc.MarkFailed(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update notification"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": string(repository.StatusFailed)})
}

// Stats returns the aggregate delivery progress
func (h *NotificationHandler) Stats(c *gin.Context) {
	stats, err := h.svc.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Report streams the filtered notifications as a CSV or XLSX download
func (h *NotificationHandler) Report(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// reports are unpaginated
	f.Limit = 0
	f.Offset = 0

	stamp := time.Now().Format("20060102")
	switch c.DefaultQuery("format", "csv") {
	case "csv":
		data, err := h.svc.ExportCSV(c.Request.Context(), f)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report"})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="notificaciones_%s.csv"`, stamp))
		c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
	case "xlsx":
		data, err := h.svc.ExportXLSX(c.Request.Context(), f)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report"})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="notificaciones_%s.xlsx"`, stamp))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported report format"})
	}
}

func filterFromQuery(c *gin.Context) (repository.Filter, error) {
	var f repository.Filter

	if s := c.Query("status"); s != "" {
		status := repository.Status(s)
		switch status {
		case repository.StatusPending, repository.StatusInProgress, repository.StatusCompleted, repository.StatusFailed:
			f.Status = &status
		default:
			return f, fmt.Errorf("unknown status %q", s)
		}
	}
	f.Zone = c.Query("zone")
	if s := c.Query("assigned_to"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return f, errors.New("invalid assigned_to")
		}
		f.AssignedTo = &id
	}
	if s := c.Query("batch_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return f, errors.New("invalid batch_id")
		}
		f.BatchID = &id
	}
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return f, errors.New("invalid limit")
		}
		f.Limit = n
	}
	if s := c.Query("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return f, errors.New("invalid offset")
		}
		f.Offset = n
	}
	return f, nil
}
