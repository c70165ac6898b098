package domain

import "time"

// Plan represents the subscription tier that drives entitlements.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// Valid reports whether the plan is one of the known tiers.
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

// Action identifies a metered feature.
type Action string

const (
	ActionCodeReview Action = "code_review"
)

// User is the domain model for account holders.
type User struct {
	ID                   string
	Name                 string
	Email                string
	PasswordHash         string
	Plan                 Plan
	StripeCustomerID     *string
	StripeSubscriptionID *string
	Active               bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
