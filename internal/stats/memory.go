package stats

import (
	"context"
	"sync"

	"github.com/jahiz-relay/internal/domain"
)

// Counters tallies outcomes.
type Counters struct {
	Delivered      int64 `json:"delivered"`
	RateLimited    int64 `json:"rate_limited"`
	DeliveryFailed int64 `json:"delivery_failed"`
}

func (c *Counters) add(o domain.OutcomeKind) {
	switch o {
	case domain.OutcomeDelivered:
		c.Delivered++
	case domain.OutcomeRateLimited:
		c.RateLimited++
	case domain.OutcomeDeliveryFailed:
		c.DeliveryFailed++
	}
}

// Snapshot is a point-in-time copy of a MemoryStore.
type Snapshot struct {
	Total      Counters            `json:"total"`
	BySeverity map[string]Counters `json:"by_severity"`
	ByKey      map[string]Counters `json:"by_key,omitempty"`
}

// MemoryStore keeps counters in process memory. Nothing expires.
type MemoryStore struct {
	mu         sync.Mutex
	total      Counters
	bySeverity map[string]Counters
	byKey      map[string]Counters

	trackKeys bool
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithTrackKeys enables per-key counters. Key cardinality is the caller's
// responsibility, as with the rate limiter.
func WithTrackKeys(track bool) MemoryOption {
	return func(s *MemoryStore) { s.trackKeys = track }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		bySeverity: make(map[string]Counters),
		byKey:      make(map[string]Counters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Record(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total.add(ev.Outcome)

	sev := string(ev.Severity)
	c := s.bySeverity[sev]
	c.add(ev.Outcome)
	s.bySeverity[sev] = c

	if s.trackKeys {
		k := s.byKey[ev.Key]
		k.add(ev.Outcome)
		s.byKey[ev.Key] = k
	}
	return nil
}

// Snapshot returns a copy of all counters.
func (s *MemoryStore) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Snapshot{
		Total:      s.total,
		BySeverity: make(map[string]Counters, len(s.bySeverity)),
	}
	for k, v := range s.bySeverity {
		out.BySeverity[k] = v
	}
	if s.trackKeys {
		out.ByKey = make(map[string]Counters, len(s.byKey))
		for k, v := range s.byKey {
			out.ByKey[k] = v
		}
	}
	return out
}
