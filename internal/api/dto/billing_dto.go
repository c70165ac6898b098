package dto

import "github.com/spec-kit/devreview-service/internal/domain"

// CheckoutRequest payload for starting a subscription checkout.
type CheckoutRequest struct {
	Plan string `json:"plan"`
}

// CheckoutResponse carries the hosted checkout URL.
type CheckoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

// PortalResponse carries the billing portal URL.
type PortalResponse struct {
	PortalURL string `json:"portal_url"`
}

// SubscriptionResponse reports the user's current plan state.
type SubscriptionResponse struct {
	Plan                 domain.Plan `json:"plan"`
	StripeCustomerID     *string     `json:"stripe_customer_id"`
	StripeSubscriptionID *string     `json:"stripe_subscription_id"`
}

// PlanDTO describes a purchasable plan tier.
type PlanDTO struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    int      `json:"price"`
	Currency string   `json:"currency"`
	Interval string   `json:"interval"`
	Features []string `json:"features"`
}
