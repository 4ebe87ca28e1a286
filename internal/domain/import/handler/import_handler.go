// Package handler exposes the schedule import HTTP endpoints.
package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authrepo "github.com/nqn-field/notifica/internal/domain/auth/repository"
	"github.com/nqn-field/notifica/internal/domain/import/parser"
	importservice "github.com/nqn-field/notifica/internal/domain/import/service"
	"github.com/nqn-field/notifica/internal/middleware"
)

// maxUploadBytes bounds the raw schedule text or CSV accepted per request.
const maxUploadBytes = 10 << 20

// ImportHandler handles schedule imports
type ImportHandler struct {
	svc *importservice.ImportService
}

// NewImportHandler creates a new import handler
func NewImportHandler(svc *importservice.ImportService) *ImportHandler {
	return &ImportHandler{svc: svc}
}

// RegisterRoutes registers the import routes. Imports are office work, so
// agents are kept out.
func (h *ImportHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	staff := middleware.RequireRole(authrepo.RoleAdmin, authrepo.RoleOffice)

	api := router.Group("/api/import", auth, staff)
	api.POST("/pdf-text", h.ImportPDFText)
	api.POST("/csv", h.ImportCSV)
	api.GET("/batches", h.ListBatches)
	api.GET("/batches/:id", h.GetBatch)
}

type pdfTextRequest struct {
	Text string `json:"text" binding:"required"`
}

// ImportPDFText imports notification records from the extracted text of a
// schedule PDF. With ?preview=true the text is parsed but nothing is stored.
func (h *ImportHandler) ImportPDFText(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req pdfTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	if len(req.Text) > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "schedule text too large"})
		return
	}

	if c.Query("preview") == "true" {
		c.JSON(http.StatusOK, h.svc.PreviewPDFText(req.Text))
		return
	}

	summary, err := h.svc.ImportPDFText(c.Request.Context(), claims.UserID, req.Text)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed"})
		return
	}

	c.JSON(http.StatusCreated, summary)
}

// ImportCSV imports notification records from an uploaded CSV file. The file
// arrives either as a multipart "file" part or as the raw request body.
func (h *ImportHandler) ImportCSV(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	data, err := readCSVUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !parser.DetectCSV(data) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file does not look like a notification CSV"})
		return
	}

	summary, err := h.svc.ImportCSV(c.Request.Context(), claims.UserID, data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse csv"})
		return
	}

	c.JSON(http.StatusCreated, summary)
}

func readCSVUpload(c *gin.Context) ([]byte, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, err := c.FormFile("file")
		if err != nil {
			return nil, errors.New("missing file upload")
		}
		if file.Size > maxUploadBytes {
			return nil, errors.New("file too large")
		}
		f, err := file.Open()
		if err != nil {
			return nil, errors.New("failed to read upload")
		}
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, maxUploadBytes))
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUploadBytes+1))
	if err != nil {
		return nil, errors.New("failed to read request body")
	}
	if len(data) == 0 {
		return nil, errors.New("empty request body")
	}
	if len(data) > maxUploadBytes {
		return nil, errors.New("file too large")
	}
	return data, nil
}

// ListBatches returns past import batches, newest first
func (h *ImportHandler) ListBatches(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	batches, err := h.svc.ListBatches(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list batches"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"batches": batches, "total": len(batches)})
}

// GetBatch returns one import batch with its counters and warnings
func (h *ImportHandler) GetBatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return
	}

	batch, err := h.svc.GetBatch(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, importservice.ErrBatchNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get batch"})
		return
	}

	c.JSON(http.StatusOK, batch)
}
