package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jahiz-relay/internal/config"
	"github.com/jahiz-relay/internal/formatter"
	"github.com/jahiz-relay/internal/handler"
	"github.com/jahiz-relay/internal/logger"
	"github.com/jahiz-relay/internal/ratelimit"
	"github.com/jahiz-relay/internal/service"
	"github.com/jahiz-relay/internal/stats"
	"github.com/jahiz-relay/internal/telegram"
	"github.com/jahiz-relay/pkg/sanitizer"
)

// app holds the wired dependencies shared by every command.
type app struct {
	cfg         *config.Config
	logger      *zap.Logger
	dispatcher  *service.Dispatcher
	memStats    *stats.MemoryStore
	readyChecks map[string]handler.ReadyCheck
	closers     []func() error
}

func isDevelopment() bool {
	return os.Getenv("GIN_MODE") != "release"
}

// newApp loads configuration and wires the dispatch pipeline.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	zapLogger, err := logger.New(logger.Options{
		Development: isDevelopment(),
		Level:       os.Getenv("LOG_LEVEL"),
		Service:     cfg.App.Name,
		Version:     cfg.App.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &app{
		cfg:         cfg,
		logger:      zapLogger,
		readyChecks: map[string]handler.ReadyCheck{},
	}

	zapLogger.Info("configuration loaded",
		zap.String("port", cfg.Server.Port),
		zap.Bool("mock_mode", cfg.Telegram.MockMode),
		zap.Int("rate_limit_max_errors", cfg.RateLimit.MaxErrors),
		zap.Duration("rate_limit_window", cfg.RateLimit.Window),
		zap.String("stats_backend", string(cfg.Stats.Backend)),
		zap.Bool("redact_secrets", cfg.Security.RedactSecrets),
	)

	var client telegram.Client
	if cfg.Telegram.MockMode {
		zapLogger.Warn("running in mock mode - notifications are logged, not sent")
		client = telegram.NewMockClient(zapLogger)
	} else {
		client = telegram.NewBotClient(&cfg.Telegram, zapLogger)
	}

	var store stats.Store
	switch cfg.Stats.Backend {
	case config.StatsMemory:
		a.memStats = stats.NewMemoryStore()
		store = a.memStats
	case config.StatsRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Stats.RedisAddr,
			Password: cfg.Stats.RedisPassword,
			DB:       cfg.Stats.RedisDB,
		})
		redisStore := stats.NewRedisStore(rdb,
			stats.WithPrefix(cfg.Stats.RedisPrefix),
			stats.WithTTL(cfg.Stats.RedisTTL),
		)
		store = redisStore
		a.readyChecks["redis"] = redisStore.Ping
		a.closers = append(a.closers, rdb.Close)
	default:
		store = stats.Nop{}
	}

	var redactor *sanitizer.Sanitizer
	if cfg.Security.RedactSecrets {
		redactor = sanitizer.New()
	}

	a.dispatcher = service.NewDispatcher(
		ratelimit.New(cfg.RateLimit.MaxErrors, cfg.RateLimit.Window),
		formatter.New(formatter.Config{
			MaxStacktrace: cfg.Formatting.MaxStacktraceLength,
			MaxMetadata:   cfg.Formatting.MaxMetadataLength,
		}),
		client,
		service.DispatcherConfig{
			Sanitizer: redactor,
			Stats:     store,
			AppName:   cfg.App.Name,
		},
		zapLogger,
	)

	return a, nil
}

// probe logs whether the bot credentials work.
func (a *app) probe(ctx context.Context) (string, bool) {
	username, ok := a.dispatcher.VerifyConnectivity(ctx)
	if ok {
		a.logger.Info("Telegram bot connected", zap.String("bot_username", "@"+username))
	} else {
		a.logger.Warn("could not connect to Telegram bot, check TELEGRAM_BOT_TOKEN")
	}
	return username, ok
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn("failed to close resource", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
