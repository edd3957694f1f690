package formatter

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jahiz-relay/internal/domain"
)

var fixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestFormatter() *Formatter {
	return New(DefaultConfig(), WithClock(func() time.Time { return fixedTime }))
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func fullRecord() *domain.ErrorRecord {
	return &domain.ErrorRecord{
		Message:      "division by zero",
		Severity:     domain.SeverityCritical,
		ErrorType:    "ZeroDivisionError",
		ErrorCode:    "E42",
		FileName:     "app/calc.py",
		LineNumber:   intPtr(17),
		FunctionName: "divide",
		AppName:      "billing",
		AppVersion:   "2.3.1",
		Environment:  "production",
		ServiceName:  "invoices",
		Component:    "calculator",
		Context: &domain.ErrorContext{
			RequestURL:     "/api/divide",
			RequestMethod:  "POST",
			ResponseStatus: intPtr(500),
			QueryParams:    domain.Ordered[string]{{Key: "a", Value: "1"}, {Key: "b", Value: "0"}},
		},
		User: &domain.UserInfo{
			UserID:    "u-1",
			Username:  "alice",
			Email:     "alice@example.com",
			SessionID: "s-9",
			IPAddress: "10.0.0.5",
		},
		Device: &domain.DeviceInfo{
			Hostname:     "web-01",
			OS:           "Linux",
			OSVersion:    "6.1",
			IPAddress:    "10.0.0.1",
			Architecture: "x86_64",
			CPUUsage:     floatPtr(87.26),
			DiskUsage:    floatPtr(40),
		},
		Tags:        domain.Ordered[string]{{Key: "team", Value: "payments"}, {Key: "region", Value: "eu"}},
		Metadata:    domain.Ordered[any]{{Key: "order_id", Value: json.Number("991")}, {Key: "retry", Value: true}},
		Stacktrace:  "Traceback:\n  File \"calc.py\", line 17",
		Timestamp:   time.Date(2026, 5, 6, 7, 8, 9, 0, time.FixedZone("CET", 3600)),
		Fingerprint: "fp-abc",
	}
}

func TestFormat_MinimalRecord(t *testing.T) {
	f := newTestFormatter()
	rec := &domain.ErrorRecord{Message: "boom", Severity: domain.SeverityError, Timestamp: fixedTime}

	msg := f.Format(rec, "abc123")

	want := "\U0001f7e0 <b>ERROR</b> | <code>abc123</code>\n" +
		"\n" +
		"<b>Message:</b> boom\n" +
		"\n" +
		"<i>2026-01-02 03:04:05 UTC</i>"
	assert.Equal(t, want, msg.Text)
	assert.Equal(t, "abc123", msg.ErrorID)
}

func TestFormat_FullRecordBlocks(t *testing.T) {
	msg := newTestFormatter().Format(fullRecord(), "id-1")

	wantLines := []string{
		"\U0001f534 <b>CRITICAL</b> | <code>id-1</code>",
		"<b>Message:</b> division by zero",
		"<b>Type:</b> <code>ZeroDivisionError</code>",
		"<b>Code:</b> <code>E42</code>",
		"<b>Location:</b> <code>app/calc.py | line 17 | in divide()</code>",
		"<b>Application</b>",
		"  App: billing",
		"  Version: 2.3.1",
		"  Env: production",
		"  Service: invoices",
		"  Component: calculator",
		"<b>Request</b>",
		"  POST /api/divide",
		"  Status: 500",
		"  Params: a=1, b=0",
		"<b>User</b>",
		"  ID: <code>u-1</code>",
		"  Username: alice",
		"  Email: alice@example.com",
		"  Session: <code>s-9</code>",
		"  IP: <code>10.0.0.5</code>",
		"<b>Server</b>",
		"  Host: <code>web-01</code>",
		"  OS: Linux 6.1",
		"  IP: <code>10.0.0.1</code>",
		"  Arch: x86_64",
		"  Resources: CPU 87.3% | DISK 40.0%",
		"<b>Tags:</b> <code>#team:payments</code> <code>#region:eu</code>",
		"<b>Metadata</b>",
		"<pre>  order_id: 991",
		"  retry: true</pre>",
		"<b>Stacktrace</b>",
		"<pre>Traceback:",
		"  File \"calc.py\", line 17</pre>",
		"<i>2026-05-06 06:08:09 UTC</i>",
		"Fingerprint: <code>fp-abc</code>",
	}

	// Every line is present and in this exact relative order.
	pos := 0
	for _, line := range wantLines {
		idx := strings.Index(msg.Text[pos:], line)
		require.GreaterOrEqual(t, idx, 0, "missing or out of order: %q\n%s", line, msg.Text)
		pos += idx + len(line)
	}
	assert.True(t, strings.HasSuffix(msg.Text, "Fingerprint: <code>fp-abc</code>"))
}

func TestFormat_OptionalBlocksOmitted(t *testing.T) {
	rec := &domain.ErrorRecord{
		Message:  "x",
		Severity: domain.SeverityInfo,
		Context:  &domain.ErrorContext{RequestBody: "ignored"},
		User:     &domain.UserInfo{},
		Device:   &domain.DeviceInfo{},
	}
	text := newTestFormatter().Format(rec, "id").Text

	for _, absent := range []string{"Location", "Application", "Request", "User", "Server", "Tags", "Metadata", "Stacktrace"} {
		assert.NotContains(t, text, "<b>"+absent, "block %s should be omitted", absent)
	}
	assert.NotContains(t, text, "Fingerprint:")
	assert.Contains(t, text, "<i>2026-01-02 03:04:05 UTC</i>", "zero timestamp falls back to the clock")
}

func TestFormat_PartialBlocks(t *testing.T) {
	rec := &domain.ErrorRecord{
		Message:    "x",
		Severity:   domain.SeverityWarning,
		LineNumber: intPtr(0),
		Context:    &domain.ErrorContext{RequestURL: "/only-url"},
		Device:     &domain.DeviceInfo{MemoryUsage: floatPtr(12.34)},
	}
	text := newTestFormatter().Format(rec, "id").Text

	assert.Contains(t, text, "<b>Location:</b> <code>line 0</code>")
	assert.Contains(t, text, "  URL: /only-url")
	assert.Contains(t, text, "<b>Server</b>\n  Resources: MEM 12.3%\n")
	assert.NotContains(t, text, "CPU")
}

func TestFormat_UnknownSeverityFallback(t *testing.T) {
	rec := &domain.ErrorRecord{Message: "odd", Severity: domain.Severity("fatal")}
	text := newTestFormatter().Format(rec, "id").Text

	assert.True(t, strings.HasPrefix(text, "⚪ <b>UNKNOWN</b> | <code>id</code>"))
	assert.Contains(t, text, "<b>Message:</b> odd")
	assert.Contains(t, text, "<i>")
}

func TestFormat_SeverityBadges(t *testing.T) {
	tests := []struct {
		severity domain.Severity
		prefix   string
	}{
		{domain.SeverityCritical, "\U0001f534 <b>CRITICAL</b>"},
		{domain.SeverityError, "\U0001f7e0 <b>ERROR</b>"},
		{domain.SeverityWarning, "\U0001f7e1 <b>WARNING</b>"},
		{domain.SeverityInfo, "\U0001f535 <b>INFO</b>"},
		{"", "⚪ <b>UNKNOWN</b>"},
	}

	f := newTestFormatter()
	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			text := f.Format(&domain.ErrorRecord{Message: "m", Severity: tt.severity}, "id").Text
			assert.True(t, strings.HasPrefix(text, tt.prefix), "got %q", text)
		})
	}
}

func TestFormat_EscapesFreeText(t *testing.T) {
	rec := &domain.ErrorRecord{
		Message:     "a<b>&c</b>",
		Severity:    domain.SeverityError,
		ErrorType:   "<script>",
		AppName:     "R&D",
		Tags:        domain.Ordered[string]{{Key: "<k>", Value: "v&"}},
		Metadata:    domain.Ordered[any]{{Key: "html", Value: "<i>x</i>"}},
		Stacktrace:  "if a < b && c > d",
		Fingerprint: "<fp>",
	}
	text := newTestFormatter().Format(rec, "id").Text

	assert.Contains(t, text, "<b>Message:</b> a&lt;b&gt;&amp;c&lt;/b&gt;")
	assert.Contains(t, text, "<b>Type:</b> <code>&lt;script&gt;</code>")
	assert.Contains(t, text, "  App: R&amp;D")
	assert.Contains(t, text, "<code>#&lt;k&gt;:v&amp;</code>")
	assert.Contains(t, text, "  html: &lt;i&gt;x&lt;/i&gt;")
	assert.Contains(t, text, "<pre>if a &lt; b &amp;&amp; c &gt; d</pre>")
	assert.Contains(t, text, "Fingerprint: <code>&lt;fp&gt;</code>")
	assert.NotContains(t, text, "<script>")

	// Block order survives hostile input.
	assert.Less(t, strings.Index(text, "<b>Message:</b>"), strings.Index(text, "<b>Application</b>"))
	assert.Less(t, strings.Index(text, "<b>Metadata</b>"), strings.Index(text, "<b>Stacktrace</b>"))
	assert.Less(t, strings.Index(text, "<b>Stacktrace</b>"), strings.Index(text, "Fingerprint:"))
}

func TestFormat_StacktraceTruncation(t *testing.T) {
	for _, extra := range []int{1, 50, 8000} {
		t.Run(fmt.Sprintf("over_by_%d", extra), func(t *testing.T) {
			rec := &domain.ErrorRecord{
				Message:    "m",
				Severity:   domain.SeverityError,
				Stacktrace: strings.Repeat("a", DefaultMaxStacktrace+extra),
			}
			text := newTestFormatter().Format(rec, "id").Text

			want := "<pre>" + strings.Repeat("a", DefaultMaxStacktrace) + "\n... (truncated)</pre>"
			assert.Contains(t, text, want)
		})
	}

	t.Run("at_ceiling", func(t *testing.T) {
		rec := &domain.ErrorRecord{Message: "m", Stacktrace: strings.Repeat("a", DefaultMaxStacktrace)}
		text := newTestFormatter().Format(rec, "id").Text
		assert.NotContains(t, text, "truncated")
	})

	t.Run("counts_code_points", func(t *testing.T) {
		rec := &domain.ErrorRecord{Message: "m", Stacktrace: strings.Repeat("é", 30)}
		text := New(Config{MaxStacktrace: 10}).Format(rec, "id").Text
		assert.Contains(t, text, "<pre>"+strings.Repeat("é", 10)+"\n... (truncated)</pre>")
	})
}

func TestFormat_MetadataLimits(t *testing.T) {
	t.Run("first_20_entries", func(t *testing.T) {
		var meta domain.Ordered[any]
		for i := 0; i < 25; i++ {
			meta = append(meta, domain.Entry[any]{Key: fmt.Sprintf("k%02d", i), Value: i})
		}
		text := newTestFormatter().Format(&domain.ErrorRecord{Message: "m", Metadata: meta}, "id").Text

		assert.Contains(t, text, "  k00: 0")
		assert.Contains(t, text, "  k19: 19")
		assert.NotContains(t, text, "k20")
	})

	t.Run("ceiling_cut", func(t *testing.T) {
		meta := domain.Ordered[any]{{Key: "blob", Value: strings.Repeat("x", 3000)}}
		text := newTestFormatter().Format(&domain.ErrorRecord{Message: "m", Metadata: meta}, "id").Text

		start := strings.Index(text, "<pre>") + len("<pre>")
		end := strings.Index(text, "</pre>")
		body := text[start:end]
		assert.True(t, strings.HasSuffix(body, "\n  ... (truncated)"))
		assert.Equal(t, DefaultMaxMetadata, utf8.RuneCountInString(strings.TrimSuffix(body, "\n  ... (truncated)")))
	})

	t.Run("cut_never_splits_entity", func(t *testing.T) {
		// "  k: " is 5 code points; the entity straddles the ceiling of 7.
		meta := domain.Ordered[any]{{Key: "k", Value: "a&b"}}
		text := New(Config{MaxMetadata: 7}).Format(&domain.ErrorRecord{Message: "m", Metadata: meta}, "id").Text
		assert.Contains(t, text, "<pre>  k: a\n  ... (truncated)</pre>")
	})

	t.Run("value_rendering", func(t *testing.T) {
		meta := domain.Ordered[any]{
			{Key: "nil", Value: nil},
			{Key: "float", Value: 1.5},
			{Key: "obj", Value: map[string]any{"x": json.Number("1")}},
			{Key: "list", Value: []any{"a", json.Number("2")}},
		}
		text := newTestFormatter().Format(&domain.ErrorRecord{Message: "m", Metadata: meta}, "id").Text
		assert.Contains(t, text, "  nil: null")
		assert.Contains(t, text, "  float: 1.5")
		assert.Contains(t, text, `  obj: {"x":1}`)
		assert.Contains(t, text, `  list: ["a",2]`)
	})
}

func TestFormat_NeverExceedsProviderLimit(t *testing.T) {
	var tags domain.Ordered[string]
	for i := 0; i < 400; i++ {
		tags = append(tags, domain.Entry[string]{Key: fmt.Sprintf("tag%d", i), Value: "<&>"})
	}
	var meta domain.Ordered[any]
	for i := 0; i < 100; i++ {
		meta = append(meta, domain.Entry[any]{Key: fmt.Sprintf("m%d", i), Value: strings.Repeat("&", 200)})
	}

	tests := []struct {
		name       string
		rec        *domain.ErrorRecord
		wantSuffix string
	}{
		{
			name:       "escaped_message",
			rec:        &domain.ErrorRecord{Message: strings.Repeat("<", 4000)},
			wantSuffix: "\n... (truncated)\n<i>2026-01-02 03:04:05 UTC</i>",
		},
		{
			name:       "long_stacktrace",
			rec:        &domain.ErrorRecord{Message: strings.Repeat("m", 4000), Stacktrace: strings.Repeat("&", 10000)},
			wantSuffix: "\n... (truncated)\n<i>2026-01-02 03:04:05 UTC</i>",
		},
		{
			name:       "many_tags",
			rec:        &domain.ErrorRecord{Message: "m", Tags: tags, Fingerprint: "fp<1>"},
			wantSuffix: "\n... (truncated)\n<i>2026-01-02 03:04:05 UTC</i>\nFingerprint: <code>fp&lt;1&gt;</code>",
		},
		{
			name: "everything",
			rec: &domain.ErrorRecord{
				Message:     strings.Repeat("é", 4000),
				Tags:        tags,
				Metadata:    meta,
				Stacktrace:  strings.Repeat("x", 10000),
				Fingerprint: "fp-123",
			},
			wantSuffix: "\n... (truncated)\n<i>2026-01-02 03:04:05 UTC</i>\nFingerprint: <code>fp-123</code>",
		},
		{
			name:       "oversized_fingerprint",
			rec:        &domain.ErrorRecord{Message: "m", Fingerprint: strings.Repeat("f", 5000)},
			wantSuffix: "\n... (truncated)",
		},
	}

	f := newTestFormatter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := f.Format(tt.rec, "0123456789abcdef01234567").Text
			n := utf8.RuneCountInString(text)
			assert.LessOrEqual(t, n, MaxMessageLength)
			assert.True(t, strings.HasSuffix(text, tt.wantSuffix), "footer survives the cut")
			assert.True(t, strings.HasPrefix(text, "\U0001f7e0") || strings.HasPrefix(text, "⚪"), "header survives the cut")
			assert.True(t, utf8.ValidString(text))
			assert.Empty(t, closingTags(text), "every element is closed")
		})
	}
}

func TestFitMarkup(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"<pre>abcdef</pre>", 100, "<pre>abcdef</pre>"},
		{"<pre>abcdef</pre>", 14, "<pre>abc</pre>"},
		{"<b>x</b> <pre>a&amp;b", 24, "<b>x</b> <pre>a</pre>"},
		{"<pre>abcdef", 5, ""},
	}
	for _, tt := range tests {
		got := fitMarkup(tt.in, tt.n)
		assert.Equal(t, tt.want, got, "fitMarkup(%q, %d)", tt.in, tt.n)
		assert.LessOrEqual(t, utf8.RuneCountInString(got), tt.n)
	}
}

func TestClosingTags(t *testing.T) {
	assert.Equal(t, "", closingTags("<b>x</b> plain"))
	assert.Equal(t, "</pre>", closingTags("<b>x</b>\n<pre>abc"))
	assert.Equal(t, "</code></b>", closingTags("<b>a <code>b"))
	assert.Equal(t, "", closingTags("&lt;b&gt; escaped"))
}

func TestCutMarkup(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"abc", 5, "abc"},
		{"abcdef", 3, "abc"},
		{"a&amp;b", 4, "a"},
		{"a&amp;b", 6, "a&amp;"},
		{"x<b>y</b>", 6, "x<b>y"},
		{"x<b>y</b>", 3, "x"},
		{"héllo", 2, "hé"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cutMarkup(tt.in, tt.n), "cutMarkup(%q, %d)", tt.in, tt.n)
	}
}
