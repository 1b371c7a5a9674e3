// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Ledger metrics
	IncCreationRecorded(creationType string)
	IncLikeToggled(liked bool)

	// Quota metrics
	IncQuotaDenied(reason string) // reason: "limit_reached" or "pro_required"

	// Plan-state cache metrics
	IncPlanCacheHit()
	IncPlanCacheMiss()

	// Provider metrics
	ObserveGenerationDuration(kind string, duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}

// Snapshot is a point-in-time copy of recorded metrics.
type Snapshot struct {
	CreationsRecorded map[string]int64
	LikesToggled      map[bool]int64
	QuotaDenied       map[string]int64
	PlanCacheHits     int64
	PlanCacheMisses   int64
	GenerationCalls   map[string]int64
}
