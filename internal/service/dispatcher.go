// Package service contains the business logic layer.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jahiz-relay/internal/domain"
	"github.com/jahiz-relay/internal/formatter"
	"github.com/jahiz-relay/internal/ratelimit"
	"github.com/jahiz-relay/internal/stats"
	"github.com/jahiz-relay/internal/telegram"
	"github.com/jahiz-relay/pkg/sanitizer"
)

// Dispatcher orchestrates the notification pipeline.
type Dispatcher struct {
	limiter   *ratelimit.Limiter
	formatter *formatter.Formatter
	client    telegram.Client
	sanitizer *sanitizer.Sanitizer
	stats     stats.Store
	appName   string
	newID     func() (string, error)
	now       func() time.Time
	probes    singleflight.Group
	logger    *zap.Logger
}

// DispatcherConfig contains the optional collaborators of a Dispatcher.
type DispatcherConfig struct {
	// Sanitizer masks secrets before formatting. Nil disables redaction.
	Sanitizer *sanitizer.Sanitizer

	// Stats receives one event per dispatch. Nil discards them.
	Stats stats.Store

	// AppName is reported by test notifications.
	AppName string

	// NewErrorID overrides the error id generator.
	NewErrorID func() (string, error)

	// Now overrides the clock used for default timestamps.
	Now func() time.Time
}

// NewDispatcher creates a new Dispatcher with all dependencies.
func NewDispatcher(
	limiter *ratelimit.Limiter,
	formatter *formatter.Formatter,
	client telegram.Client,
	config DispatcherConfig,
	logger *zap.Logger,
) *Dispatcher {
	d := &Dispatcher{
		limiter:   limiter,
		formatter: formatter,
		client:    client,
		sanitizer: config.Sanitizer,
		stats:     config.Stats,
		appName:   config.AppName,
		newID:     config.NewErrorID,
		now:       config.Now,
		logger:    logger.Named("dispatcher"),
	}
	if d.stats == nil {
		d.stats = stats.Nop{}
	}
	if d.newID == nil {
		d.newID = NewErrorID
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.appName == "" {
		d.appName = "Jahiz Error Tracker"
	}
	return d
}

// Dispatch runs one report through the pipeline:
// 1. Admit against the rate limiter (fingerprint, else the global key)
// 2. Assign an error id
// 3. Redact and format
// 4. Deliver once and classify the result
//
// Every path ends in one of the three outcomes. The delivery itself is
// detached from ctx cancellation and bounded only by the client's timeout.
func (d *Dispatcher) Dispatch(ctx context.Context, record *domain.ErrorRecord) domain.DispatchOutcome {
	startTime := time.Now()
	rec := record.WithDefaults(d.now())

	key := rec.Fingerprint
	if key == "" {
		key = ratelimit.GlobalKey
	}

	allowed := d.limiter.IsAllowed(key)
	rateLimitKeys.Set(float64(d.limiter.Keys()))

	if !allowed {
		remaining := d.limiter.Remaining(key)
		var resetAt *time.Time
		if at, ok := d.limiter.ResetTime(key); ok {
			resetAt = &at
		}

		d.logger.Warn("rate limit exceeded",
			zap.String("rate_key", key),
			zap.Int("remaining", remaining),
		)
		return d.finish(ctx, key, rec.Severity, domain.RateLimited(remaining, resetAt))
	}

	errorID, err := d.newID()
	if err != nil {
		d.logger.Error("error id generation failed", zap.Error(err))
		return d.finish(ctx, key, rec.Severity, domain.DeliveryFailed("", "could not allocate an error id"))
	}

	logger := d.logger.With(zap.String("error_id", errorID))
	logger.Info("received error",
		zap.String("severity", string(rec.Severity)),
		zap.String("error_type", orUnknown(rec.ErrorType)),
		zap.String("app_name", orUnknown(rec.AppName)),
		zap.String("rate_key", key),
	)

	if d.sanitizer != nil {
		rec = d.redact(rec, logger)
	}

	msg := d.formatter.Format(&rec, errorID)

	_, err = d.client.SendMessage(context.WithoutCancel(ctx), msg.Text)
	if err != nil {
		kind := domain.KindOf(err)
		deliveryFailuresTotal.WithLabelValues(string(kind)).Inc()
		logger.Error("failed to deliver error notification",
			zap.String("kind", string(kind)),
			zap.Error(err),
			zap.Duration("duration", time.Since(startTime)),
		)
		return d.finish(ctx, key, rec.Severity,
			domain.DeliveryFailed(errorID, "failed to deliver notification to Telegram: "+err.Error()))
	}

	logger.Info("error notification delivered",
		zap.Int("message_length", len(msg.Text)),
		zap.Duration("duration", time.Since(startTime)),
	)
	return d.finish(ctx, key, rec.Severity, domain.Delivered(errorID))
}

// SendTest dispatches a fixed, minimal record through the normal pipeline.
func (d *Dispatcher) SendTest(ctx context.Context) domain.DispatchOutcome {
	rec := domain.ErrorRecord{
		Message:     "This is a test notification from " + d.appName,
		Severity:    domain.SeverityInfo,
		ErrorType:   "TestNotification",
		AppName:     d.appName,
		Environment: "test",
		Timestamp:   d.now(),
	}
	return d.Dispatch(ctx, &rec)
}

// VerifyConnectivity asks the provider who the bot is. It returns the bot
// username, or false on any failure. Concurrent callers share one probe.
func (d *Dispatcher) VerifyConnectivity(ctx context.Context) (string, bool) {
	v, err, _ := d.probes.Do("identity", func() (any, error) {
		identity, err := d.client.GetIdentity(context.WithoutCancel(ctx))
		if err != nil {
			return "", err
		}
		return identity.Username, nil
	})
	if err != nil {
		d.logger.Warn("connectivity probe failed", zap.Error(err))
		return "", false
	}
	return v.(string), true
}

func (d *Dispatcher) finish(ctx context.Context, key string, severity domain.Severity, out domain.DispatchOutcome) domain.DispatchOutcome {
	dispatchTotal.WithLabelValues(string(out.Kind), string(severity)).Inc()

	ev := stats.Event{Key: key, Outcome: out.Kind, Severity: severity, At: d.now()}
	if err := d.stats.Record(context.WithoutCancel(ctx), ev); err != nil {
		d.logger.Warn("failed to record dispatch stats", zap.Error(err))
	}
	return out
}

// redact returns a copy of rec with secrets masked in the free-text fields
// most likely to carry them. The caller's record is never modified.
func (d *Dispatcher) redact(rec domain.ErrorRecord, logger *zap.Logger) domain.ErrorRecord {
	found := 0
	scrub := func(s string) string {
		out, n := d.sanitizer.RedactWithCount(s)
		found += n
		return out
	}

	rec.Message = scrub(rec.Message)
	rec.Stacktrace = scrub(rec.Stacktrace)

	if rec.Context != nil {
		c := *rec.Context
		c.RequestURL = scrub(c.RequestURL)
		if len(c.QueryParams) > 0 {
			params := make(domain.Ordered[string], len(c.QueryParams))
			for i, p := range c.QueryParams {
				params[i] = domain.Entry[string]{Key: p.Key, Value: scrub(p.Value)}
			}
			c.QueryParams = params
		}
		rec.Context = &c
	}

	if len(rec.Metadata) > 0 {
		meta := make(domain.Ordered[any], len(rec.Metadata))
		for i, e := range rec.Metadata {
			if s, ok := e.Value.(string); ok {
				e.Value = scrub(s)
			}
			meta[i] = e
		}
		rec.Metadata = meta
	}

	if found > 0 {
		logger.Info("masked secrets in report", zap.Int("secrets_found", found))
	}
	return rec
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
