package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jahiz-relay/internal/config"
	"github.com/jahiz-relay/internal/domain"
)

// maxBodyBytes caps how much of a provider response is read.
const maxBodyBytes = 1 << 20

// BotClient implements the Client interface against the Telegram Bot API.
type BotClient struct {
	config     *config.TelegramConfig
	httpClient *http.Client
	pacer      *rate.Limiter
	apiURL     string
	logger     *zap.Logger
}

// Bot API request/response structures

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// apiResponse is the envelope every Bot API method answers with.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

type sentMessage struct {
	MessageID int64 `json:"message_id"`
}

// NewBotClient creates a Bot API client. Timeouts are applied per call from
// cfg, so the underlying http.Client carries none of its own.
func NewBotClient(cfg *config.TelegramConfig, logger *zap.Logger) *BotClient {
	limit := rate.Inf
	burst := 1
	if cfg.MaxRPS > 0 {
		limit = rate.Limit(cfg.MaxRPS)
		burst = max(1, int(cfg.MaxRPS))
	}

	return &BotClient{
		config:     cfg,
		httpClient: &http.Client{},
		pacer:      rate.NewLimiter(limit, burst),
		apiURL:     fmt.Sprintf("%s/bot%s", strings.TrimSuffix(cfg.BaseURL, "/"), cfg.BotToken),
		logger:     logger.Named("telegram_client"),
	}
}

// SendMessage posts text to the configured chat. The whole call, including
// any pacing wait, is bounded by the send timeout. Nothing is retried.
func (c *BotClient) SendMessage(ctx context.Context, text string) (*SendResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.SendTimeout)
	defer cancel()

	startTime := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues("sendMessage").Observe(time.Since(startTime).Seconds())
	}()

	if err := c.pacer.Wait(ctx); err != nil {
		apiRequestsTotal.WithLabelValues("sendMessage", "timeout").Inc()
		return nil, domain.TransportError("pace_send",
			fmt.Errorf("%w: no send slot within %s", domain.ErrDeliveryTimeout, c.config.SendTimeout))
	}

	jsonBody, err := json.Marshal(sendMessageRequest{
		ChatID:                c.config.ChatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return nil, domain.TransportError("marshal_request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/sendMessage", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, domain.TransportError("create_request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("sending Telegram message",
		zap.String("url", c.maskToken(req.URL.String())),
		zap.Int("text_length", len(text)),
	)

	status, body, err := c.do(ctx, req, "send_message")
	if err != nil {
		apiRequestsTotal.WithLabelValues("sendMessage", "transport_error").Inc()
		return nil, err
	}

	result := &SendResult{StatusCode: status, Body: body}

	// Handle HTTP errors
	if status != http.StatusOK {
		apiRequestsTotal.WithLabelValues("sendMessage", "http_error").Inc()
		c.logger.Error("Telegram API error",
			zap.Int("status", status),
			zap.String("body", truncate(string(body), 500)),
		)
		return result, domain.ProviderError("send_message",
			fmt.Errorf("%w: status %d: %s", domain.ErrProviderRejected, status, describe(body)))
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		apiRequestsTotal.WithLabelValues("sendMessage", "bad_response").Inc()
		return result, domain.ProviderError("parse_response",
			fmt.Errorf("%w: unreadable response: %v", domain.ErrProviderRejected, err))
	}

	if !resp.OK {
		apiRequestsTotal.WithLabelValues("sendMessage", "not_ok").Inc()
		c.logger.Error("Telegram response not ok",
			zap.Int("error_code", resp.ErrorCode),
			zap.String("description", resp.Description),
		)
		return result, domain.ProviderError("send_message",
			fmt.Errorf("%w: %s", domain.ErrProviderRejected, orDefault(resp.Description, "ok=false")))
	}

	var sent sentMessage
	if len(resp.Result) > 0 {
		_ = json.Unmarshal(resp.Result, &sent)
	}
	result.OK = true
	result.MessageID = sent.MessageID

	apiRequestsTotal.WithLabelValues("sendMessage", "ok").Inc()
	c.logger.Debug("Telegram message delivered",
		zap.Int64("message_id", sent.MessageID),
		zap.Duration("duration", time.Since(startTime)),
	)

	return result, nil
}

// GetIdentity calls getMe under the probe timeout.
func (c *BotClient) GetIdentity(ctx context.Context) (*Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.ProbeTimeout)
	defer cancel()

	startTime := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues("getMe").Observe(time.Since(startTime).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/getMe", nil)
	if err != nil {
		return nil, domain.TransportError("create_request", err)
	}

	status, body, err := c.do(ctx, req, "get_me")
	if err != nil {
		apiRequestsTotal.WithLabelValues("getMe", "transport_error").Inc()
		return nil, err
	}

	if status != http.StatusOK {
		apiRequestsTotal.WithLabelValues("getMe", "http_error").Inc()
		return nil, domain.ProviderError("get_me",
			fmt.Errorf("%w: status %d: %s", domain.ErrProviderRejected, status, describe(body)))
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil || !resp.OK {
		apiRequestsTotal.WithLabelValues("getMe", "not_ok").Inc()
		return nil, domain.ProviderError("get_me",
			fmt.Errorf("%w: %s", domain.ErrProviderRejected, describe(body)))
	}

	var identity Identity
	if err := json.Unmarshal(resp.Result, &identity); err != nil || identity.Username == "" {
		apiRequestsTotal.WithLabelValues("getMe", "not_ok").Inc()
		return nil, domain.ProviderError("get_me", domain.ErrEmptyIdentity)
	}

	apiRequestsTotal.WithLabelValues("getMe", "ok").Inc()
	return &identity, nil
}

// do executes req and reads the body, classifying failures as transport errors.
func (c *BotClient) do(ctx context.Context, req *http.Request, op string) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, c.transportError(ctx, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, c.transportError(ctx, op, err)
	}
	return resp.StatusCode, body, nil
}

func (c *BotClient) transportError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		c.logger.Error("Telegram API request timed out", zap.String("op", op))
		return domain.TransportError(op, domain.ErrDeliveryTimeout)
	}

	// url.Error messages embed the request URL, and with it the token.
	msg := c.maskToken(err.Error())
	c.logger.Error("Telegram API request failed", zap.String("op", op), zap.String("error", msg))
	return domain.TransportError(op, fmt.Errorf("%w: %s", domain.ErrTransport, msg))
}

// maskToken hides the bot token wherever it appears in s.
func (c *BotClient) maskToken(s string) string {
	if c.config.BotToken == "" {
		return s
	}
	return strings.ReplaceAll(s, c.config.BotToken, "***")
}

// describe extracts the provider's error description from body, falling
// back to a body excerpt.
func describe(body []byte) string {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Description != "" {
		return resp.Description
	}
	return orDefault(truncate(strings.TrimSpace(string(body)), 200), "empty response")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
