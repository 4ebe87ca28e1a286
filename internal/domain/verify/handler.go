package verify

import (
	_ "embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed verify.html.tmpl
var pageSource string

var page = template.Must(template.New("verify").Parse(pageSource))

// Handler serves the public verification page and its JSON variant
type Handler struct {
	svc *Service
}

// NewHandler creates a new verify handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the public verification routes. They are the only
// unauthenticated routes besides login, so they sit behind a rate limiter.
func (h *Handler) RegisterRoutes(router *gin.Engine, limit gin.HandlerFunc) {
	router.GET("/verificar/:token", limit, h.Page)
	router.GET("/api/verify/:token", limit, h.JSON)
}

type pageData struct {
	Found    bool
	Delivery *Delivery
}

// Page renders the citizen-facing verification page
func (h *Handler) Page(c *gin.Context) {
	d, err := h.svc.Lookup(c.Request.Context(), c.Param("token"))
	data := pageData{Found: err == nil, Delivery: d}

	status := http.StatusOK
	if !data.Found {
		status = http.StatusNotFound
	}

	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := page.Execute(c.Writer, data); err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
	}
}

// JSON resolves a verification token for programmatic clients
func (h *Handler) JSON(c *gin.Context) {
	d, err := h.svc.Lookup(c.Request.Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "verification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, d)
}
