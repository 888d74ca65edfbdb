package api

import (
	"context"
	"net/http"
	"time"

	"llama-stylist/internal/middleware"
	"llama-stylist/internal/scene"
	"llama-stylist/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	serviceName       = "llama-stylist"
	serviceVersion    = "1.0.0"
	maxLoggedEditText = 100
)

// PatchResolver applies a free-text edit to a scene document.
type PatchResolver interface {
	ResolvePatch(ctx context.Context, doc scene.Document, editText string, options map[string]any) scene.Document
}

// StyleResolver restyles a scene document.
type StyleResolver interface {
	ResolveStyle(ctx context.Context, doc scene.Document, targetStyle string, options map[string]any) scene.Document
}

// Handler serves the stylist HTTP API.
type Handler struct {
	patcher PatchResolver
	styler  StyleResolver
	env     string
	remote  bool
	logger  *zap.Logger
	now     func() time.Time
}

// NewHandler creates the handler. remote tells /health whether a remote backend is configured.
func NewHandler(patcher PatchResolver, styler StyleResolver, env string, remote bool, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		patcher: patcher,
		styler:  styler,
		env:     env,
		remote:  remote,
		logger:  logger.Named("Handler"),
		now:     time.Now,
	}
}

// RegisterRoutes registers the handler routes.
// rateLimit may be nil. It applies only to the routes that call the backend.
func (h *Handler) RegisterRoutes(router gin.IRouter, rateLimit gin.HandlerFunc) {
	router.GET("/health", h.health)
	router.HEAD("/health", h.health)

	limited := router
	if rateLimit != nil {
		limited = router.Group("", rateLimit)
	}
	limited.POST("/patch", h.patch)
	limited.POST("/style", h.style)
}

type patchRequest struct {
	BaseJSON map[string]any `json:"baseJson" binding:"required"`
	EditText *string        `json:"editText" binding:"required"`
	Options  map[string]any `json:"options"`
}

type styleRequest struct {
	BaseJSON    map[string]any `json:"baseJson" binding:"required"`
	TargetStyle string         `json:"targetStyle" binding:"required"`
	Options     map[string]any `json:"options"`
}

type responseMetadata struct {
	Source           string `json:"source"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
	TargetStyle      string `json:"targetStyle,omitempty"`
}

type resolveResponse struct {
	Success  bool             `json:"success"`
	Data     scene.Document   `json:"data"`
	Metadata responseMetadata `json:"metadata"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type healthResponse struct {
	Service     string `json:"service"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
	Impl        string `json:"impl"`
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Service:     serviceName,
		Status:      "healthy",
		Timestamp:   h.now().UTC().Format(scene.HistoryTimeLayout),
		Version:     serviceVersion,
		Environment: h.env,
		Impl:        h.impl(),
	})
}

func (h *Handler) patch(c *gin.Context) {
	var req patchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "Invalid request data: "+err.Error())
		return
	}
	editText := *req.EditText

	h.logger.Info("Patch request received",
		zap.String("requestId", c.GetString(middleware.RequestIDKey)),
		zap.Int("editTextLength", len(editText)),
		zap.Bool("hasOptions", len(req.Options) > 0),
		zap.String("impl", h.impl()),
	)

	start := time.Now()
	patched := h.patcher.ResolvePatch(c.Request.Context(), scene.Document(req.BaseJSON), editText, req.Options)
	elapsed := time.Since(start)

	h.logAIOperation(c, "patch", elapsed, zap.String("editText", shorten(editText, maxLoggedEditText)))

	c.JSON(http.StatusOK, resolveResponse{
		Success: true,
		Data:    patched,
		Metadata: responseMetadata{
			Source:           service.ResolverSource,
			ProcessingTimeMs: elapsed.Milliseconds(),
		},
	})
}

func (h *Handler) style(c *gin.Context) {
	var req styleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "Invalid request data: "+err.Error())
		return
	}

	h.logger.Info("Style enrichment request received",
		zap.String("requestId", c.GetString(middleware.RequestIDKey)),
		zap.String("targetStyle", req.TargetStyle),
		zap.Bool("hasOptions", len(req.Options) > 0),
		zap.String("impl", h.impl()),
	)

	start := time.Now()
	enriched := h.styler.ResolveStyle(c.Request.Context(), scene.Document(req.BaseJSON), req.TargetStyle, req.Options)
	elapsed := time.Since(start)

	h.logAIOperation(c, "style_enrichment", elapsed, zap.String("targetStyle", req.TargetStyle))

	c.JSON(http.StatusOK, resolveResponse{
		Success: true,
		Data:    enriched,
		Metadata: responseMetadata{
			Source:           service.ResolverSource,
			ProcessingTimeMs: elapsed.Milliseconds(),
			TargetStyle:      req.TargetStyle,
		},
	})
}

// logAIOperation records the outcome of an AI operation. Resolvers never fail, so success is always true.
func (h *Handler) logAIOperation(c *gin.Context, operation string, elapsed time.Duration, fields ...zap.Field) {
	fields = append([]zap.Field{
		zap.String("requestId", c.GetString(middleware.RequestIDKey)),
		zap.String("operation", operation),
		zap.Int64("durationMs", elapsed.Milliseconds()),
		zap.Bool("success", true),
		zap.String("impl", h.impl()),
	}, fields...)
	h.logger.Info("AI operation", fields...)
}

func (h *Handler) impl() string {
	if h.remote {
		return "remote"
	}
	return "local"
}

// respondWithError sends the error as JSON.
func respondWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, errorResponse{Success: false, Error: message})
}

func shorten(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
