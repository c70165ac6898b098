package events

import (
	"time"

	"github.com/spec-kit/devreview-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered  EventType = "user_registered"
	EventPlanUpgraded    EventType = "plan_upgraded"
	EventPlanDowngraded  EventType = "plan_downgraded"
	EventReviewCompleted EventType = "review_completed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Email string      `json:"email"`
	Plan  domain.Plan `json:"plan"`
}

// PlanChangedPayload payload for upgrades and downgrades.
type PlanChangedPayload struct {
	OldPlan     domain.Plan `json:"old_plan"`
	NewPlan     domain.Plan `json:"new_plan"`
	CustomerRef string      `json:"customer_ref"`
}

// ReviewCompletedPayload payload.
type ReviewCompletedPayload struct {
	Language string      `json:"language"`
	Plan     domain.Plan `json:"plan"`
	Model    string      `json:"model"`
}
