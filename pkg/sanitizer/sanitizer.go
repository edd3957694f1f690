// Package sanitizer masks credentials that leak into error reports before
// they are forwarded to a chat.
package sanitizer

import (
	"regexp"
	"strings"
)

// Sanitizer masks secrets in free text.
type Sanitizer struct {
	patterns []*regexp.Regexp
}

// Pattern definitions for common secrets. Addresses and e-mails are left
// alone: reports carry them on purpose in the user and device blocks.
var defaultPatterns = []*regexp.Regexp{
	// API keys
	regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[:=]\s*['"]?([a-zA-Z0-9_\-]{20,})['"]?`),
	regexp.MustCompile(`(?i)(secret[_-]?key|secretkey)\s*[:=]\s*['"]?([a-zA-Z0-9_\-]{20,})['"]?`),
	regexp.MustCompile(`(?i)(access[_-]?key|accesskey)\s*[:=]\s*['"]?([a-zA-Z0-9_\-]{16,})['"]?`),

	// Authentication tokens
	regexp.MustCompile(`(?i)(bearer\s+)[a-zA-Z0-9_\-\.]+`),
	regexp.MustCompile(`(?i)(token|auth[_-]?token)\s*[:=]\s*['"]?([a-zA-Z0-9_\-\.]{20,})['"]?`),

	// Passwords
	regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[:=]\s*['"]?([^\s'"&]{4,})['"]?`),

	// AWS credentials
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`(?i)(aws[_-]?secret[_-]?access[_-]?key)\s*[:=]\s*['"]?([a-zA-Z0-9/+=]{40})['"]?`),

	// Private keys
	regexp.MustCompile(`-----BEGIN\s+(RSA|DSA|EC|OPENSSH)?\s*PRIVATE KEY-----`),

	// Credentials embedded in connection strings
	regexp.MustCompile(`(?i)(mongodb|mysql|postgres|postgresql|redis|amqp):\/\/[^@\s]+@[^\s]+`),

	// GitHub tokens
	regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{36}`),

	// JWT tokens
	regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`),

	// Slack tokens
	regexp.MustCompile(`xox[baprs]-[0-9a-zA-Z-]+`),

	// Telegram bot tokens
	regexp.MustCompile(`\b\d{6,12}:[a-zA-Z0-9_-]{35}\b`),
}

// New creates a Sanitizer with the default patterns.
func New() *Sanitizer {
	return &Sanitizer{patterns: defaultPatterns}
}

// NewWithPatterns creates a Sanitizer with custom patterns.
func NewWithPatterns(patterns []*regexp.Regexp) *Sanitizer {
	return &Sanitizer{patterns: patterns}
}

// Redact returns text with every secret masked.
func (s *Sanitizer) Redact(text string) string {
	out, _ := s.RedactWithCount(text)
	return out
}

// RedactWithCount masks secrets and reports how many were found.
func (s *Sanitizer) RedactWithCount(text string) (string, int) {
	if text == "" {
		return text, 0
	}

	found := 0
	for _, pattern := range s.patterns {
		text = pattern.ReplaceAllStringFunc(text, func(match string) string {
			found++
			return maskValue(match)
		})
	}
	return text, found
}

// maskValue creates a masked version of a matched secret.
func maskValue(match string) string {
	if len(match) <= 8 {
		return "[REDACTED]"
	}

	// key=value and scheme:// style: keep the prefix for context
	if idx := strings.IndexAny(match, ":="); idx != -1 {
		return match[:idx+1] + "[REDACTED]"
	}

	if len(match) > 10 {
		return match[:4] + "****" + match[len(match)-4:]
	}

	return "[REDACTED]"
}
