package model

// Plan is the subscription tier a user holds with the identity provider.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// IsPro returns true for users with an active pro subscription.
func (p Plan) IsPro() bool {
	return p == PlanPro
}

// PlanState mirrors the identity provider's per-user quota metadata.
// The provider owns this state; we only read it and advance the counter.
type PlanState struct {
	Plan      Plan `json:"plan"`
	FreeUsage int  `json:"free_usage"`
}

// AuthContext carries the authenticated caller through a request.
// Plan and FreeUsage are a snapshot taken at admission time.
type AuthContext struct {
	UserID    string
	Plan      Plan
	FreeUsage int
}
