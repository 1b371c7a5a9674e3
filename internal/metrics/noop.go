package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncCreationRecorded is a no-op.
func (n *NoopRecorder) IncCreationRecorded(creationType string) {}

// IncLikeToggled is a no-op.
func (n *NoopRecorder) IncLikeToggled(liked bool) {}

// IncQuotaDenied is a no-op.
func (n *NoopRecorder) IncQuotaDenied(reason string) {}

// IncPlanCacheHit is a no-op.
func (n *NoopRecorder) IncPlanCacheHit() {}

// IncPlanCacheMiss is a no-op.
func (n *NoopRecorder) IncPlanCacheMiss() {}

// ObserveGenerationDuration is a no-op.
func (n *NoopRecorder) ObserveGenerationDuration(kind string, duration time.Duration) {}
