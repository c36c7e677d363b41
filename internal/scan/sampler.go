package scan

import (
	"time"

	"xrpl-amm-lab/internal/domain"
)

// Sampler admits events by transaction type and thins them to at most one
// per minimum interval. The gate is monotonic over a single sampler's
// lifetime; tail scans reuse one sampler across windows so the interval
// holds over the whole tail.
type Sampler struct {
	types       map[string]struct{}
	minInterval time.Duration
	lastEmitted time.Time
	emitted     bool
}

// NewSampler creates a sampler admitting the given transaction types.
func NewSampler(types []string, minInterval time.Duration) *Sampler {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return &Sampler{types: set, minInterval: minInterval}
}

// Admit reports whether the event passes the type filter and the interval
// gate. The first qualifying event is always admitted; after that an event
// is admitted only when at least the minimum interval has elapsed since the
// previously admitted one.
func (s *Sampler) Admit(event *domain.RawEvent) bool {
	if _, ok := s.types[event.Type]; !ok {
		return false
	}
	if s.emitted && event.Timestamp.Sub(s.lastEmitted) < s.minInterval {
		return false
	}
	s.lastEmitted = event.Timestamp
	s.emitted = true
	return true
}
