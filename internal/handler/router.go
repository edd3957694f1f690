package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jahiz-relay/internal/service"
	"github.com/jahiz-relay/internal/stats"
)

// RouterConfig wires the HTTP surface.
type RouterConfig struct {
	Dispatcher    *service.Dispatcher
	Info          ServiceInfo
	WebhookSecret string

	// ReadyChecks run on GET /ready.
	ReadyChecks map[string]ReadyCheck

	// Stats enables GET /stats when the counters live in memory.
	Stats *stats.MemoryStore
}

// NewRouter builds the gin engine with middleware and routes registered.
func NewRouter(cfg RouterConfig, logger *zap.Logger) *gin.Engine {
	webhookHandler := NewWebhookHandler(cfg.Dispatcher, logger)
	healthHandler := NewHealthHandler(cfg.Dispatcher, cfg.Info, logger)
	readyHandler := NewReadyHandler(cfg.ReadyChecks, logger)

	router := gin.New()

	router.Use(RecoveryMiddleware(logger))
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware(logger))
	router.Use(CORSMiddleware())

	router.GET("/", healthHandler.Root)
	router.GET("/health", healthHandler.Handle)
	router.GET("/ready", readyHandler.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.Stats != nil {
		router.GET("/stats", NewStatsHandler(cfg.Stats).Handle)
	}

	webhook := router.Group("/webhook", WebhookAuth(cfg.WebhookSecret, logger))
	{
		webhook.POST("/error", webhookHandler.HandleError)
		webhook.POST("/test", webhookHandler.HandleTest)
	}

	return router
}
