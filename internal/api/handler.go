package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mandate/blog_service/internal/scrape"
	"github.com/mandate/blog_service/internal/service"
	"github.com/mandate/blog_service/internal/store"
)

type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

func NewHandler(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func RegisterRoutes(r *gin.Engine, h *Handler, requireAdmin gin.HandlerFunc) {
	v1 := r.Group("/v1")
	{
		v1.POST("/admin/login", h.Login)
		v1.GET("/articles", h.ListPublished)
		v1.GET("/articles/:slug", h.GetBySlug)
		v1.GET("/sitemap.xml", h.Sitemap)

		admin := v1.Group("/admin", requireAdmin)
		{
			admin.GET("/articles", h.ListAdmin)
			admin.GET("/articles/:slug", h.GetBySlugAdmin)
			admin.POST("/articles", h.Create)
			admin.PUT("/articles/:id", h.Update)
			admin.POST("/import", h.Import)
			admin.POST("/diagnostics", h.Diagnostics)
		}
	}
}

// Login: POST /v1/admin/login
func (h *Handler) Login(c *gin.Context) {
	var payload struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}
	token, err := h.svc.Login(payload.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// ListPublished: GET /v1/articles?cursor=...&limit=10
func (h *Handler) ListPublished(c *gin.Context) {
	cursor := parseCursor(c.Query("cursor"))
	limit := parseLimit(c.DefaultQuery("limit", "10"))
	res, err := h.svc.ListPublished(c.Request.Context(), cursor, limit)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{
			"count": len(res.Articles),
			"limit": limit,
		},
		"articles":    res.Articles,
		"next_cursor": res.NextCursor,
	})
}

// GetBySlug: GET /v1/articles/:slug (published only)
func (h *Handler) GetBySlug(c *gin.Context) {
	art, err := h.svc.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, art)
}

// Sitemap: GET /v1/sitemap.xml
func (h *Handler) Sitemap(c *gin.Context) {
	xml, err := h.svc.Sitemap(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", []byte(xml))
}

// ListAdmin: GET /v1/admin/articles?cursor=...&limit=10 (drafts included)
func (h *Handler) ListAdmin(c *gin.Context) {
	cursor := parseCursor(c.Query("cursor"))
	limit := parseLimit(c.DefaultQuery("limit", "10"))
	res, err := h.svc.ListAdmin(c.Request.Context(), cursor, limit)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{
			"count": len(res.Articles),
			"limit": limit,
		},
		"articles":    res.Articles,
		"next_cursor": res.NextCursor,
	})
}

// GetBySlugAdmin: GET /v1/admin/articles/:slug
func (h *Handler) GetBySlugAdmin(c *gin.Context) {
	art, err := h.svc.GetBySlugAdmin(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, art)
}

type articlePayload struct {
	Title     string `json:"title" binding:"required,max=200"`
	Content   string `json:"content" binding:"required"`
	Author    string `json:"author" binding:"required,max=100"`
	Published bool   `json:"published"`
}

// Create: POST /v1/admin/articles
func (h *Handler) Create(c *gin.Context) {
	var payload articlePayload
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}
	art, err := h.svc.Create(c.Request.Context(), service.ArticleInput{
		Title:     payload.Title,
		Content:   payload.Content,
		Author:    payload.Author,
		Published: payload.Published,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"article": art})
}

// Update: PUT /v1/admin/articles/:id
func (h *Handler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article id"})
		return
	}
	var payload articlePayload
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}
	art, err := h.svc.Update(c.Request.Context(), id, service.ArticleInput{
		Title:     payload.Title,
		Content:   payload.Content,
		Author:    payload.Author,
		Published: payload.Published,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article": art})
}

// Import: POST /v1/admin/import
// Body: { "source_url": "...", "publish": false }
func (h *Handler) Import(c *gin.Context) {
	var payload struct {
		SourceURL string `json:"source_url" binding:"required,url"`
		Publish   bool   `json:"publish"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}
	art, err := h.svc.Import(c.Request.Context(), payload.SourceURL, payload.Publish)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"article": art})
}

// Diagnostics: POST /v1/admin/diagnostics
// Body: { "test_url": "..." } (optional)
func (h *Handler) Diagnostics(c *gin.Context) {
	var payload struct {
		TestURL string `json:"test_url"`
	}
	// An empty body is fine; the default test URL is used.
	_ = c.ShouldBindJSON(&payload)
	report := h.svc.Diagnostics(c.Request.Context(), payload.TestURL)
	c.JSON(http.StatusOK, report)
}

// renderError maps every pipeline failure to a distinct caller-facing
// category. A more specific cause is never hidden behind a generic failure.
func (h *Handler) renderError(c *gin.Context, err error) {
	var (
		launchErr  *scrape.BrowserLaunchError
		timeoutErr *scrape.NavigationTimeoutError
		connErr    *scrape.ConnectionError
		loadErr    *scrape.PageLoadError
		validErr   *scrape.ValidationError
	)
	switch {
	case errors.As(err, &launchErr):
		h.logger.Error("import failed: browser launch", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start browser for scraping. This might be a server configuration issue. Please try again or contact support."})
	case errors.As(err, &timeoutErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "The article took too long to load. Please check if the URL is accessible and try again."})
	case errors.As(err, &connErr):
		h.logger.Error("import failed: connection", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not connect to the article page. Please check the server's network connection and try again."})
	case errors.As(err, &loadErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "The article could not be accessed. It might be private, deleted, or require login."})
	case errors.As(err, &validErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not extract enough content from the article. " + validErr.Error()})
	case errors.Is(err, service.ErrUnsupportedSource):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please provide a valid Medium URL (medium.com or Medium publication)"})
	case errors.Is(err, store.ErrSlugExists):
		c.JSON(http.StatusConflict, gin.H{"error": "An article with this title already exists"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
	default:
		h.logger.Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred. Please check the server logs and try again."})
	}
}

func parseCursor(s string) int64 {
	if s == "" {
		return 0
	}
	cursor, err := strconv.ParseInt(s, 10, 64)
	if err != nil || cursor < 0 {
		return 0
	}
	return cursor
}

// parseLimit ensures a sane integer limit, with bounds
func parseLimit(s string) int {
	l, err := strconv.Atoi(s)
	if err != nil || l <= 0 {
		return 10
	}
	if l > 50 {
		return 50
	}
	return l
}
