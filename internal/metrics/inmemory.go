package metrics

import (
	"sync"
	"time"
)

// InMemoryRecorder implements Recorder with in-process counters.
// Useful for tests and local debugging; not meant for production scrape.
type InMemoryRecorder struct {
	mu sync.Mutex

	creationsRecorded map[string]int64
	likesToggled      map[bool]int64
	quotaDenied       map[string]int64
	planCacheHits     int64
	planCacheMisses   int64
	generationCalls   map[string]int64
}

// NewInMemory returns a Recorder backed by in-process counters.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		creationsRecorded: make(map[string]int64),
		likesToggled:      make(map[bool]int64),
		quotaDenied:       make(map[string]int64),
		generationCalls:   make(map[string]int64),
	}
}

// IncCreationRecorded counts a ledger append by creation type.
func (r *InMemoryRecorder) IncCreationRecorded(creationType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creationsRecorded[creationType]++
}

// IncLikeToggled counts a like toggle by resulting membership.
func (r *InMemoryRecorder) IncLikeToggled(liked bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.likesToggled[liked]++
}

// IncQuotaDenied counts an admission denial by reason.
func (r *InMemoryRecorder) IncQuotaDenied(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quotaDenied[reason]++
}

// IncPlanCacheHit counts a plan-state cache hit.
func (r *InMemoryRecorder) IncPlanCacheHit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.planCacheHits++
}

// IncPlanCacheMiss counts a plan-state cache miss.
func (r *InMemoryRecorder) IncPlanCacheMiss() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.planCacheMisses++
}

// ObserveGenerationDuration counts a provider call by kind.
// Durations are not aggregated in-memory; only call counts are kept.
func (r *InMemoryRecorder) ObserveGenerationDuration(kind string, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generationCalls[kind]++
}

// Snapshot returns a copy of the current counters.
func (r *InMemoryRecorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		CreationsRecorded: make(map[string]int64, len(r.creationsRecorded)),
		LikesToggled:      make(map[bool]int64, len(r.likesToggled)),
		QuotaDenied:       make(map[string]int64, len(r.quotaDenied)),
		PlanCacheHits:     r.planCacheHits,
		PlanCacheMisses:   r.planCacheMisses,
		GenerationCalls:   make(map[string]int64, len(r.generationCalls)),
	}
	for k, v := range r.creationsRecorded {
		snap.CreationsRecorded[k] = v
	}
	for k, v := range r.likesToggled {
		snap.LikesToggled[k] = v
	}
	for k, v := range r.quotaDenied {
		snap.QuotaDenied[k] = v
	}
	for k, v := range r.generationCalls {
		snap.GenerationCalls[k] = v
	}
	return snap
}
