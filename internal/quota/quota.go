// Package quota decides whether a generation request may proceed, given the
// caller's plan and free-usage counter.
package quota

import (
	"errors"

	"github.com/inkwell/inkwell/internal/model"
)

// Feature identifies a gated capability of the product.
type Feature string

const (
	FeatureArticle          Feature = "article"
	FeatureBlogTitle        Feature = "blog-title"
	FeatureImage            Feature = "image"
	FeatureRemoveBackground Feature = "remove-background"
	FeatureRemoveObject     Feature = "remove-object"
	FeatureResumeReview     Feature = "resume-review"
)

// Tier groups features by how they are metered.
type Tier int

const (
	// TierText is counted against the free allowance.
	TierText Tier = iota
	// TierPremium requires an active pro subscription.
	TierPremium
)

// Tier returns the metering class for the feature.
func (f Feature) Tier() Tier {
	switch f {
	case FeatureArticle, FeatureBlogTitle:
		return TierText
	}
	return TierPremium
}

// Admission errors.
var (
	ErrLimitReached = errors.New("free usage limit reached")
	ErrProRequired  = errors.New("feature requires pro subscription")
)

// DefaultFreeLimit is the number of free-tier text generations allowed.
const DefaultFreeLimit = 10

// Gate admits or denies generation requests.
type Gate struct {
	freeLimit int
}

// NewGate creates a Gate. A non-positive freeLimit falls back to the default.
func NewGate(freeLimit int) *Gate {
	if freeLimit <= 0 {
		freeLimit = DefaultFreeLimit
	}
	return &Gate{freeLimit: freeLimit}
}

// Admit decides whether a request for feature may proceed.
//
// The freeUsage counter is read once at admission time; the caller advances
// it only after the generation succeeds, so two concurrent requests can
// observe the same counter value. That stale read is an accepted property
// of the gate, not something Admit guards against.
func (g *Gate) Admit(plan model.Plan, freeUsage int, feature Feature) error {
	if plan.IsPro() {
		return nil
	}
	if feature.Tier() == TierPremium {
		return ErrProRequired
	}
	if freeUsage >= g.freeLimit {
		return ErrLimitReached
	}
	return nil
}

// FreeLimit returns the configured free-tier allowance.
func (g *Gate) FreeLimit() int {
	return g.freeLimit
}
