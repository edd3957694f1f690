// Package formatter renders error records into bounded Telegram HTML messages.
package formatter

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jahiz-relay/internal/domain"
)

// Size limits. All lengths are counted in Unicode code points.
const (
	// MaxMessageLength is the provider's hard ceiling for one message.
	MaxMessageLength = 4096

	// overflowCut bounds an oversized message whose footer cannot be kept;
	// overflowCut + len(truncationMarker) == MaxMessageLength.
	overflowCut = 4080

	// MaxMetadataEntries caps how many metadata pairs are rendered.
	MaxMetadataEntries = 20

	DefaultMaxStacktrace = 2000
	DefaultMaxMetadata   = 1000

	truncationMarker = "\n... (truncated)"
	metadataMarker   = "\n  ... (truncated)"

	timestampLayout = "2006-01-02 15:04:05 UTC"
)

type badge struct {
	emoji string
	label string
}

var severityBadges = map[domain.Severity]badge{
	domain.SeverityCritical: {"\U0001f534", "CRITICAL"},
	domain.SeverityError:    {"\U0001f7e0", "ERROR"},
	domain.SeverityWarning:  {"\U0001f7e1", "WARNING"},
	domain.SeverityInfo:     {"\U0001f535", "INFO"},
}

var fallbackBadge = badge{"⚪", "UNKNOWN"}

func badgeFor(s domain.Severity) badge {
	if b, ok := severityBadges[s]; ok {
		return b
	}
	return fallbackBadge
}

// Config holds the truncation ceilings for the variable-size blocks.
type Config struct {
	MaxStacktrace int
	MaxMetadata   int
}

// DefaultConfig returns the stock ceilings.
func DefaultConfig() Config {
	return Config{
		MaxStacktrace: DefaultMaxStacktrace,
		MaxMetadata:   DefaultMaxMetadata,
	}
}

// Formatter builds FormattedMessages. It holds no mutable state and is safe
// for concurrent use.
type Formatter struct {
	cfg Config
	now func() time.Time
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithClock sets the time used for records that carry no timestamp.
func WithClock(now func() time.Time) Option {
	return func(f *Formatter) { f.now = now }
}

// New creates a Formatter. Non-positive ceilings fall back to the defaults.
func New(cfg Config, opts ...Option) *Formatter {
	if cfg.MaxStacktrace <= 0 {
		cfg.MaxStacktrace = DefaultMaxStacktrace
	}
	if cfg.MaxMetadata <= 0 {
		cfg.MaxMetadata = DefaultMaxMetadata
	}
	f := &Formatter{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// block renders one section of the message. It returns nil when the record
// has nothing for that section.
type block func(r *domain.ErrorRecord) []string

// Format renders record for errorID. The result never exceeds
// MaxMessageLength code points.
func (f *Formatter) Format(record *domain.ErrorRecord, errorID string) domain.FormattedMessage {
	blocks := []block{
		func(r *domain.ErrorRecord) []string { return header(r, errorID) },
		summary,
		application,
		request,
		user,
		server,
		tags,
		f.metadata,
		f.stacktrace,
	}

	var body []string
	for _, b := range blocks {
		body = append(body, b(record)...)
	}
	footer := f.footer(record)

	text := strings.Join(append(body, footer...), "\n")
	if utf8.RuneCountInString(text) > MaxMessageLength {
		text = shrink(strings.Join(body, "\n"), strings.Join(footer, "\n"))
	}

	return domain.FormattedMessage{Text: text, ErrorID: errorID}
}

// shrink cuts the body of an oversized message so that body, marker and
// footer fit in MaxMessageLength. The footer is kept whole unless it alone
// would crowd out the body, in which case the joined text is cut instead.
func shrink(body, footer string) string {
	budget := MaxMessageLength - utf8.RuneCountInString(truncationMarker) - 1 - utf8.RuneCountInString(footer)
	if budget < MaxMessageLength/2 {
		return fitMarkup(body+"\n"+footer, overflowCut) + truncationMarker
	}
	return fitMarkup(body, budget) + truncationMarker + "\n" + footer
}

func header(r *domain.ErrorRecord, errorID string) []string {
	b := badgeFor(r.Severity)
	return []string{
		fmt.Sprintf("%s <b>%s</b> | <code>%s</code>", b.emoji, b.label, escape(errorID)),
		"",
	}
}

func summary(r *domain.ErrorRecord) []string {
	lines := []string{"<b>Message:</b> " + escape(r.Message)}

	if r.ErrorType != "" {
		lines = append(lines, "<b>Type:</b> <code>"+escape(r.ErrorType)+"</code>")
	}
	if r.ErrorCode != "" {
		lines = append(lines, "<b>Code:</b> <code>"+escape(r.ErrorCode)+"</code>")
	}

	var loc []string
	if r.FileName != "" {
		loc = append(loc, r.FileName)
	}
	if r.LineNumber != nil {
		loc = append(loc, fmt.Sprintf("line %d", *r.LineNumber))
	}
	if r.FunctionName != "" {
		loc = append(loc, "in "+r.FunctionName+"()")
	}
	if len(loc) > 0 {
		lines = append(lines, "<b>Location:</b> <code>"+escape(strings.Join(loc, " | "))+"</code>")
	}

	return append(lines, "")
}

// section wraps body lines under a bold title followed by a blank line.
func section(title string, body []string) []string {
	if len(body) == 0 {
		return nil
	}
	out := make([]string, 0, len(body)+2)
	out = append(out, "<b>"+title+"</b>")
	out = append(out, body...)
	return append(out, "")
}

func application(r *domain.ErrorRecord) []string {
	var body []string
	for _, f := range []struct{ label, value string }{
		{"App", r.AppName},
		{"Version", r.AppVersion},
		{"Env", r.Environment},
		{"Service", r.ServiceName},
		{"Component", r.Component},
	} {
		if f.value != "" {
			body = append(body, "  "+f.label+": "+escape(f.value))
		}
	}
	return section("Application", body)
}

func request(r *domain.ErrorRecord) []string {
	c := r.Context
	if c == nil {
		return nil
	}

	var body []string
	switch {
	case c.RequestMethod != "" && c.RequestURL != "":
		body = append(body, "  "+escape(c.RequestMethod)+" "+escape(c.RequestURL))
	case c.RequestURL != "":
		body = append(body, "  URL: "+escape(c.RequestURL))
	}
	if c.ResponseStatus != nil {
		body = append(body, fmt.Sprintf("  Status: %d", *c.ResponseStatus))
	}
	if len(c.QueryParams) > 0 {
		params := make([]string, 0, len(c.QueryParams))
		for _, p := range c.QueryParams {
			params = append(params, p.Key+"="+p.Value)
		}
		body = append(body, "  Params: "+escape(strings.Join(params, ", ")))
	}
	return section("Request", body)
}

func user(r *domain.ErrorRecord) []string {
	u := r.User
	if u == nil {
		return nil
	}

	var body []string
	if u.UserID != "" {
		body = append(body, "  ID: <code>"+escape(u.UserID)+"</code>")
	}
	if u.Username != "" {
		body = append(body, "  Username: "+escape(u.Username))
	}
	if u.Email != "" {
		body = append(body, "  Email: "+escape(u.Email))
	}
	if u.SessionID != "" {
		body = append(body, "  Session: <code>"+escape(u.SessionID)+"</code>")
	}
	if u.IPAddress != "" {
		body = append(body, "  IP: <code>"+escape(u.IPAddress)+"</code>")
	}
	return section("User", body)
}

func server(r *domain.ErrorRecord) []string {
	d := r.Device
	if d == nil {
		return nil
	}

	var body []string
	if d.Hostname != "" {
		body = append(body, "  Host: <code>"+escape(d.Hostname)+"</code>")
	}
	if d.OS != "" {
		os := d.OS
		if d.OSVersion != "" {
			os += " " + d.OSVersion
		}
		body = append(body, "  OS: "+escape(os))
	}
	if d.IPAddress != "" {
		body = append(body, "  IP: <code>"+escape(d.IPAddress)+"</code>")
	}
	if d.Architecture != "" {
		body = append(body, "  Arch: "+escape(d.Architecture))
	}

	var gauges []string
	for _, g := range []struct {
		tag   string
		value *float64
	}{
		{"CPU", d.CPUUsage},
		{"MEM", d.MemoryUsage},
		{"DISK", d.DiskUsage},
	} {
		if g.value != nil {
			gauges = append(gauges, fmt.Sprintf("%s %.1f%%", g.tag, *g.value))
		}
	}
	if len(gauges) > 0 {
		body = append(body, "  Resources: "+strings.Join(gauges, " | "))
	}

	return section("Server", body)
}

func tags(r *domain.ErrorRecord) []string {
	if len(r.Tags) == 0 {
		return nil
	}
	tokens := make([]string, 0, len(r.Tags))
	for _, t := range r.Tags {
		tokens = append(tokens, "<code>#"+escape(t.Key)+":"+escape(t.Value)+"</code>")
	}
	return []string{"<b>Tags:</b> " + strings.Join(tokens, " "), ""}
}

func (f *Formatter) metadata(r *domain.ErrorRecord) []string {
	if len(r.Metadata) == 0 {
		return nil
	}

	entries := r.Metadata
	if len(entries) > MaxMetadataEntries {
		entries = entries[:MaxMetadataEntries]
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, "  "+escape(e.Key)+": "+escape(stringify(e.Value)))
	}

	meta := strings.Join(lines, "\n")
	if utf8.RuneCountInString(meta) > f.cfg.MaxMetadata {
		meta = cutMarkup(meta, f.cfg.MaxMetadata) + metadataMarker
	}

	return []string{"<b>Metadata</b>", "<pre>" + meta + "</pre>", ""}
}

func (f *Formatter) stacktrace(r *domain.ErrorRecord) []string {
	if r.Stacktrace == "" {
		return nil
	}

	trace := r.Stacktrace
	if utf8.RuneCountInString(trace) > f.cfg.MaxStacktrace {
		trace = truncateRunes(trace, f.cfg.MaxStacktrace) + truncationMarker
	}

	return []string{"<b>Stacktrace</b>", "<pre>" + escape(trace) + "</pre>", ""}
}

func (f *Formatter) footer(r *domain.ErrorRecord) []string {
	ts := r.Timestamp
	if ts.IsZero() {
		ts = f.now()
	}

	lines := []string{"<i>" + ts.UTC().Format(timestampLayout) + "</i>"}
	if r.Fingerprint != "" {
		lines = append(lines, "Fingerprint: <code>"+escape(r.Fingerprint)+"</code>")
	}
	return lines
}
