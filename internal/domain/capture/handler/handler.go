// Package handler exposes the field-capture HTTP endpoints.
package handler

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nqn-field/notifica/internal/domain/capture"
	"github.com/nqn-field/notifica/internal/middleware"
)

// maxImageBytes bounds a single decoded photo or signature. The mobile
// client compresses captures to well under this.
const maxImageBytes = 8 << 20

// CaptureHandler handles capture submissions from field agents
type CaptureHandler struct {
	svc *capture.Service
}

// NewCaptureHandler creates a new capture handler
func NewCaptureHandler(svc *capture.Service) *CaptureHandler {
	return &CaptureHandler{svc: svc}
}

// RegisterRoutes registers the capture routes behind authentication.
func (h *CaptureHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	api := router.Group("/api", auth)
	api.POST("/notifications/:id/capture", h.Capture)
	api.POST("/sync", h.Sync)
}

type captureRequest struct {
	Latitude        float64 `json:"latitude" binding:"required"`
	Longitude       float64 `json:"longitude" binding:"required"`
	CapturedAt      string  `json:"captured_at"`
	PhotoBase64     string  `json:"photo_base64"`
	SignatureBase64 string  `json:"signature_base64"`
	Observations    string  `json:"observations"`
	Result          string  `json:"result"`
}

func (r *captureRequest) toInput(id uuid.UUID) (*capture.Input, error) {
	in := &capture.Input{
		NotificationID: id,
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		CapturedAt:     time.Now(),
		Observations:   r.Observations,
		Result:         r.Result,
	}

	if r.CapturedAt != "" {
		t, err := time.Parse(time.RFC3339, r.CapturedAt)
		if err != nil {
			return nil, errors.New("captured_at must be RFC 3339")
		}
		in.CapturedAt = t
	}

	var err error
	if in.Photo, err = decodeImage(r.PhotoBase64); err != nil {
		return nil, errors.New("photo_base64 is not valid base64")
	}
	if in.Signature, err = decodeImage(r.SignatureBase64); err != nil {
		return nil, errors.New("signature_base64 is not valid base64")
	}
	return in, nil
}

// decodeImage decodes a base64 payload, tolerating a data-URI prefix.
func decodeImage(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	if i := strings.Index(s, ","); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(data) > maxImageBytes {
		return nil, errors.New("image too large")
	}
	return data, nil
}

// Capture completes a single notification with the agent's field data
func (h *CaptureHandler) Capture(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification ID"})
		return
	}

	var req captureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	in, err := req.toInput(id)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.svc.Complete(c.Request.Context(), claims.UserID, in)
	if err != nil {
		h.writeCaptureError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

type syncRequest struct {
	Captures []syncItem `json:"captures" binding:"required,min=1"`
}

type syncItem struct {
	NotificationID uuid.UUID `json:"notification_id" binding:"required"`
	captureRequest
}

// Sync replays captures queued on the device while it was offline
func (h *CaptureHandler) Sync(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	inputs := make([]*capture.Input, 0, len(req.Captures))
	results := make([]capture.SyncResult, 0, len(req.Captures))
	for _, item := range req.Captures {
		in, err := item.toInput(item.NotificationID)
		if err != nil {
			results = append(results, capture.SyncResult{
				NotificationID: item.NotificationID,
				Error:          err.Error(),
			})
			continue
		}
		inputs = append(inputs, in)
	}

	results = append(results, h.svc.SyncBatch(c.Request.Context(), claims.UserID, inputs)...)

	synced := 0
	for _, r := range results {
		if r.Error == "" {
			synced++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"synced":  synced,
		"failed":  len(results) - synced,
	})
}

func (h *CaptureHandler) writeCaptureError(c *gin.Context, err error) {
	var verr *capture.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.Is(err, capture.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
	case errors.Is(err, capture.ErrAlreadyCompleted):
		c.JSON(http.StatusConflict, gin.H{"error": "notification already completed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to complete capture"})
	}
}
