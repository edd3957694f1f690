// Package stats keeps best-effort counters of dispatch outcomes.
//
// Only counts are kept; report contents are never stored. Callers treat a
// Record error as non-fatal.
package stats

import (
	"context"
	"time"

	"github.com/jahiz-relay/internal/domain"
)

// Event is one dispatch decision.
type Event struct {
	// Key is the rate-limit key the report was grouped under.
	Key string

	Outcome  domain.OutcomeKind
	Severity domain.Severity

	At time.Time
}

// Store persists dispatch counters.
type Store interface {
	Record(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }
