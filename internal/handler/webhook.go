// Package handler contains HTTP handlers for the API.
package handler

import (
	"crypto/subtle"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jahiz-relay/internal/domain"
	"github.com/jahiz-relay/internal/service"
)

// SecretHeader carries the shared webhook secret.
const SecretHeader = "X-Webhook-Secret"

const (
	deliveredMessage   = "Error notification delivered successfully"
	testSentMessage    = "Test notification sent successfully! Check your Telegram."
	rateLimitedMessage = "Rate limit exceeded. Too many error reports."
	deliveryFailed     = "Failed to deliver notification to Telegram. Check bot configuration."
	testFailed         = "Failed to send test notification. Verify TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID."
)

// WebhookAuth rejects requests without the shared secret: 401 when the
// header is absent, 403 when it does not match.
func WebhookAuth(secret string, logger *zap.Logger) gin.HandlerFunc {
	logger = logger.Named("webhook_auth")
	want := []byte(secret)

	return func(c *gin.Context) {
		got := c.GetHeader(SecretHeader)
		if got == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"detail": "Missing webhook secret in " + SecretHeader + " header",
			})
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			logger.Warn("invalid webhook secret", zap.String("client_ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Invalid webhook secret"})
			return
		}
		c.Next()
	}
}

// WebhookHandler handles inbound error reports.
type WebhookHandler struct {
	dispatcher *service.Dispatcher
	now        func() time.Time
	logger     *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(dispatcher *service.Dispatcher, logger *zap.Logger) *WebhookHandler {
	registerJSONFieldNames()
	return &WebhookHandler{
		dispatcher: dispatcher,
		now:        time.Now,
		logger:     logger.Named("webhook_handler"),
	}
}

// HandleError processes POST /webhook/error requests.
func (h *WebhookHandler) HandleError(c *gin.Context) {
	logger := h.logger.With(zap.String("request_id", c.GetString(requestIDKey)))

	var record domain.ErrorRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		logger.Warn("invalid error report", zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": validationDetail(err)})
		return
	}

	out := h.dispatcher.Dispatch(c.Request.Context(), &record)
	h.respond(c, out, deliveredMessage, deliveryFailed)
}

// HandleTest processes POST /webhook/test requests.
func (h *WebhookHandler) HandleTest(c *gin.Context) {
	out := h.dispatcher.SendTest(c.Request.Context())
	h.respond(c, out, testSentMessage, testFailed)
}

func (h *WebhookHandler) respond(c *gin.Context, out domain.DispatchOutcome, okMessage, failMessage string) {
	switch out.Kind {
	case domain.OutcomeDelivered:
		c.JSON(http.StatusOK, domain.WebhookResponse{
			Success:   true,
			Message:   okMessage,
			ErrorID:   out.ErrorID,
			Timestamp: h.now().UTC(),
		})

	case domain.OutcomeRateLimited:
		retryAfter := retryAfterSeconds(out.ResetAt, h.now())
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"detail": domain.RateLimitDetail{
				Message:           rateLimitedMessage,
				Remaining:         out.Remaining,
				ResetAt:           out.ResetAt,
				RetryAfterSeconds: retryAfter,
			},
		})

	default:
		c.JSON(http.StatusBadGateway, gin.H{"detail": failMessage})
	}
}

// retryAfterSeconds rounds the wait up to whole seconds, never below one.
func retryAfterSeconds(resetAt *time.Time, now time.Time) int {
	if resetAt == nil {
		return 1
	}
	secs := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
