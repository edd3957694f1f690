package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jahiz-relay/internal/service"
	"github.com/jahiz-relay/internal/stats"
)

// ServiceInfo identifies the running service.
type ServiceInfo struct {
	Name    string
	Version string
}

// TelegramStatus reports provider connectivity.
type TelegramStatus struct {
	Connected   bool    `json:"connected"`
	BotUsername *string `json:"bot_username"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string         `json:"status"`
	Service  string         `json:"service"`
	Version  string         `json:"version"`
	Telegram TelegramStatus `json:"telegram"`
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	dispatcher *service.Dispatcher
	info       ServiceInfo
	logger     *zap.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(dispatcher *service.Dispatcher, info ServiceInfo, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		dispatcher: dispatcher,
		info:       info,
		logger:     logger.Named("health_handler"),
	}
}

// Handle processes GET /health requests. The service is degraded, not down,
// when the bot cannot be reached.
func (h *HealthHandler) Handle(c *gin.Context) {
	resp := HealthResponse{
		Status:  "healthy",
		Service: h.info.Name,
		Version: h.info.Version,
	}

	if username, ok := h.dispatcher.VerifyConnectivity(c.Request.Context()); ok {
		resp.Telegram = TelegramStatus{Connected: true, BotUsername: &username}
	} else {
		resp.Status = "degraded"
	}

	c.JSON(http.StatusOK, resp)
}

// Root processes GET / requests.
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": h.info.Name,
		"version": h.info.Version,
		"health":  "/health",
	})
}

// ReadyCheck reports whether one dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

// ReadyHandler handles readiness check requests.
type ReadyHandler struct {
	checks  map[string]ReadyCheck
	timeout time.Duration
	logger  *zap.Logger
}

// NewReadyHandler creates a new ReadyHandler. checks may be nil.
func NewReadyHandler(checks map[string]ReadyCheck, logger *zap.Logger) *ReadyHandler {
	return &ReadyHandler{
		checks:  checks,
		timeout: 2 * time.Second,
		logger:  logger.Named("ready_handler"),
	}
}

// Handle processes GET /ready requests.
func (h *ReadyHandler) Handle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"failed": failed,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// StatsHandler exposes in-process dispatch counters.
type StatsHandler struct {
	store *stats.MemoryStore
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(store *stats.MemoryStore) *StatsHandler {
	return &StatsHandler{store: store}
}

// Handle processes GET /stats requests.
func (h *StatsHandler) Handle(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Snapshot())
}
