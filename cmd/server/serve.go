package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jahiz-relay/internal/handler"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		Long: `Run the HTTP server that accepts error reports.

Routes:
  POST /webhook/error   relay one error report (X-Webhook-Secret required)
  POST /webhook/test    send a test notification (X-Webhook-Secret required)
  GET  /health          service and Telegram connectivity
  GET  /ready           readiness of backing stores
  GET  /stats           in-memory dispatch counters
  GET  /metrics         Prometheus metrics`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	a.logger.Info("starting Jahiz relay",
		zap.String("version", a.cfg.App.Version),
		zap.Bool("development", isDevelopment()),
	)

	a.probe(cmd.Context())

	if !isDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handler.NewRouter(handler.RouterConfig{
		Dispatcher:    a.dispatcher,
		Info:          handler.ServiceInfo{Name: a.cfg.App.Name, Version: a.cfg.App.Version},
		WebhookSecret: a.cfg.Security.WebhookSecret,
		ReadyChecks:   a.readyChecks,
		Stats:         a.memStats,
	}, a.logger)

	srv := &http.Server{
		Addr:         ":" + a.cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		if err != nil {
			a.logger.Error("server failed", zap.Error(err))
			return err
		}
		return nil
	case <-quit:
	}

	a.logger.Info("shutting down server...")

	// Give in-flight deliveries 10 seconds to finish
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		a.logger.Error("server forced to shutdown", zap.Error(err))
		return err
	}

	a.logger.Info("server stopped")
	return nil
}
