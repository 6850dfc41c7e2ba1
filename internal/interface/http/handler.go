package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/ai-chatbot/internal/domain/chat"
	"github.com/yanqian/ai-chatbot/internal/domain/news"
	"github.com/yanqian/ai-chatbot/internal/domain/qacache"
	apperrors "github.com/yanqian/ai-chatbot/pkg/errors"
)

// HealthState feeds the health endpoint. Degraded reports whether the
// vector store has failed over to its local backend; MissingCredentials
// names provider keys the process started without.
type HealthState struct {
	Version            string
	Started            time.Time
	Degraded           func() bool
	MissingCredentials func() []string
}

// Handler wires the HTTP transport to domain services.
type Handler struct {
	chatSvc chat.Service
	newsSvc news.Service
	cache   qacache.Cache
	usage   chat.UsageRecorder
	health  HealthState
	logger  *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(chatSvc chat.Service, newsSvc news.Service, cache qacache.Cache, usage chat.UsageRecorder, health HealthState, logger *slog.Logger) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		newsSvc: newsSvc,
		cache:   cache,
		usage:   usage,
		health:  health,
		logger:  logger.With("component", "http.handler"),
	}
}

// Root describes the service.
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "ai-chatbot",
		"endpoints": []string{
			"POST /chat",
			"POST /news/summary",
			"GET /health",
			"GET /api/v1/cache/stats",
			"POST /api/v1/cache/clear",
		},
	})
}

// Health reports per-component status, uptime and version. The vector store
// is checked through a live stats call; credentials are checked once at
// startup and reported as a warning, not a failure.
func (h *Handler) Health(c *gin.Context) {
	backend := "primary"
	if h.health.Degraded != nil && h.health.Degraded() {
		backend = "fallback"
	}

	vectorStatus := "healthy"
	if _, err := h.cache.Stats(c.Request.Context()); err != nil {
		vectorStatus = "unhealthy: " + err.Error()
		h.logger.Warn("vector store health check failed", "error", err)
	}

	envStatus := "healthy"
	if h.health.MissingCredentials != nil {
		if missing := h.health.MissingCredentials(); len(missing) > 0 {
			envStatus = "warning: missing " + strings.Join(missing, ", ")
		}
	}

	status := "healthy"
	if vectorStatus != "healthy" || backend == "fallback" {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         status,
		"version":        h.health.Version,
		"uptime_seconds": time.Since(h.health.Started).Seconds(),
		"vector_backend": backend,
		"services": gin.H{
			"vector_store": vectorStatus,
			"environment":  envStatus,
			"api":          "healthy",
		},
	})
}

// Chat answers one conversational turn, consulting the similarity cache first.
func (h *Handler) Chat(c *gin.Context) {
	var req chat.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.chatSvc.Run(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, domainHTTPError(err, "chat_failed"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// NewsSummary produces (or replays) a news digest for the timeframe.
func (h *Handler) NewsSummary(c *gin.Context) {
	var req news.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	result, err := h.newsSvc.Run(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, domainHTTPError(err, "news_failed"))
		return
	}
	c.JSON(http.StatusOK, result)
}

// CacheStats reports collection size plus usage counters.
func (h *Handler) CacheStats(c *gin.Context) {
	stats, err := h.cache.Stats(c.Request.Context())
	if err != nil {
		abortWithError(c, domainHTTPError(err, "stats_failed"))
		return
	}

	payload := gin.H{"cache": stats}
	if h.usage != nil {
		if lookups, err := h.usage.Lookups(c.Request.Context()); err == nil {
			payload["lookups"] = lookups
		}
		if trending, err := h.usage.TopQuestions(c.Request.Context(), 10); err == nil {
			payload["trending"] = trending
		}
	}
	c.JSON(http.StatusOK, payload)
}

// CacheClear drops and recreates the QA collection.
func (h *Handler) CacheClear(c *gin.Context) {
	cleared := h.cache.Clear(c.Request.Context())
	status := http.StatusOK
	if !cleared {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"cleared": cleared})
}

func domainHTTPError(err error, fallbackCode string) *HTTPError {
	status := http.StatusInternalServerError
	code := fallbackCode
	switch {
	case apperrors.IsCode(err, apperrors.CodeInvalidInput):
		status = http.StatusBadRequest
		code = "invalid_request"
	case apperrors.IsCode(err, apperrors.CodeConfig):
		status = http.StatusBadRequest
		code = "config_error"
	case apperrors.IsCode(err, apperrors.CodeLLM):
		status = http.StatusBadGateway
		code = "llm_error"
	case apperrors.IsCode(err, apperrors.CodeSearch):
		status = http.StatusBadGateway
		code = "search_error"
	}
	return NewHTTPError(status, code, errMessage(err), err)
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
