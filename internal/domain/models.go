// Package domain contains the core domain models and types.
// These models represent the business logic contracts and are independent
// of any infrastructure concerns.
package domain

import "time"

// Severity represents the severity level of a reported error.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityError    Severity = "error"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// IsValid checks if the severity value is one of the allowed values.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityError, SeverityWarning, SeverityInfo:
		return true
	default:
		return false
	}
}

// ErrorRecord is a structured error report submitted by a client application.
// Optional scalar fields use the empty value (or nil pointer) for "absent".
type ErrorRecord struct {
	// Message is the human-readable error message.
	Message string `json:"error_message" binding:"required,min=1,max=4000"`

	// Severity defaults to "error" when omitted.
	Severity Severity `json:"severity" binding:"omitempty,oneof=critical error warning info"`

	ErrorType    string `json:"error_type,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	Stacktrace   string `json:"stacktrace,omitempty" binding:"omitempty,max=10000"`
	FileName     string `json:"file_name,omitempty"`
	LineNumber   *int   `json:"line_number,omitempty" binding:"omitempty,min=0"`
	FunctionName string `json:"function_name,omitempty"`

	AppName     string `json:"app_name,omitempty"`
	AppVersion  string `json:"app_version,omitempty"`
	Environment string `json:"environment,omitempty"`
	ServiceName string `json:"service_name,omitempty"`
	Component   string `json:"component,omitempty"`

	Context *ErrorContext `json:"context,omitempty"`
	User    *UserInfo     `json:"user,omitempty"`
	Device  *DeviceInfo   `json:"device,omitempty"`

	// Tags are rendered as #key:value tokens in insertion order.
	Tags Ordered[string] `json:"tags,omitempty"`

	// Metadata holds arbitrary values; only the first 20 entries are rendered.
	Metadata Ordered[any] `json:"metadata,omitempty"`

	// Timestamp is when the error occurred. Zero means capture time.
	Timestamp time.Time `json:"timestamp"`

	// Fingerprint groups duplicate errors and keys rate limiting.
	Fingerprint string `json:"fingerprint,omitempty"`
}

// ErrorContext describes the request being served when the error occurred.
type ErrorContext struct {
	RequestURL     string            `json:"request_url,omitempty"`
	RequestMethod  string            `json:"request_method,omitempty"`
	RequestHeaders map[string]string `json:"request_headers,omitempty"`
	RequestBody    string            `json:"request_body,omitempty"`
	ResponseStatus *int              `json:"response_status,omitempty"`
	ResponseBody   string            `json:"response_body,omitempty"`
	QueryParams    Ordered[string]   `json:"query_params,omitempty"`
}

// UserInfo identifies the user who hit the error.
type UserInfo struct {
	UserID    string `json:"user_id,omitempty"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
}

// DeviceInfo describes the host the error occurred on.
// The usage gauges are percentages in [0, 100].
type DeviceInfo struct {
	Hostname     string   `json:"hostname,omitempty"`
	OS           string   `json:"os,omitempty"`
	OSVersion    string   `json:"os_version,omitempty"`
	IPAddress    string   `json:"ip_address,omitempty"`
	Architecture string   `json:"architecture,omitempty"`
	CPUUsage     *float64 `json:"cpu_usage,omitempty" binding:"omitempty,min=0,max=100"`
	MemoryUsage  *float64 `json:"memory_usage,omitempty" binding:"omitempty,min=0,max=100"`
	DiskUsage    *float64 `json:"disk_usage,omitempty" binding:"omitempty,min=0,max=100"`
}

// WithDefaults returns a copy of the record with the severity and timestamp
// defaults applied. now supplies the capture time.
func (r ErrorRecord) WithDefaults(now time.Time) ErrorRecord {
	if r.Severity == "" {
		r.Severity = SeverityError
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = now
	}
	return r
}

// FormattedMessage is a rendered notification ready for delivery.
type FormattedMessage struct {
	// Text is the HTML rich-text body, at most 4096 characters.
	Text string

	// ErrorID is the identifier the message was built for.
	ErrorID string
}

// OutcomeKind is the tri-state result of a dispatch.
type OutcomeKind string

const (
	OutcomeDelivered      OutcomeKind = "delivered"
	OutcomeRateLimited    OutcomeKind = "rate_limited"
	OutcomeDeliveryFailed OutcomeKind = "delivery_failed"
)

// DispatchOutcome is the result of dispatching one error record.
// Only the fields matching Kind are populated.
type DispatchOutcome struct {
	Kind OutcomeKind

	// ErrorID is set when Kind is OutcomeDelivered or OutcomeDeliveryFailed.
	ErrorID string

	// Remaining and ResetAt are set when Kind is OutcomeRateLimited.
	// ResetAt is nil when the key holds no admissions.
	Remaining int
	ResetAt   *time.Time

	// Reason is set when Kind is OutcomeDeliveryFailed.
	Reason string
}

// Delivered builds a successful outcome.
func Delivered(errorID string) DispatchOutcome {
	return DispatchOutcome{Kind: OutcomeDelivered, ErrorID: errorID}
}

// RateLimited builds a denial outcome.
func RateLimited(remaining int, resetAt *time.Time) DispatchOutcome {
	return DispatchOutcome{Kind: OutcomeRateLimited, Remaining: remaining, ResetAt: resetAt}
}

// DeliveryFailed builds a failure outcome.
func DeliveryFailed(errorID, reason string) DispatchOutcome {
	return DispatchOutcome{Kind: OutcomeDeliveryFailed, ErrorID: errorID, Reason: reason}
}

// WebhookResponse is returned to the reporting application on success.
type WebhookResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	ErrorID   string    `json:"error_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RateLimitDetail is the body detail of a 429 response.
type RateLimitDetail struct {
	Message           string     `json:"message"`
	Remaining         int        `json:"remaining"`
	ResetAt           *time.Time `json:"reset_at"`
	RetryAfterSeconds int        `json:"retry_after_seconds"`
}
