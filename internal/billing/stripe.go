package billing

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/stripe/stripe-go/v79"
	portalsession "github.com/stripe/stripe-go/v79/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/spec-kit/devreview-service/internal/config"
	"github.com/spec-kit/devreview-service/internal/domain"
)

// EventType normalizes the provider event names the reconciler acts on.
type EventType string

const (
	EventCheckoutCompleted   EventType = "checkout_completed"
	EventSubscriptionDeleted EventType = "subscription_deleted"
	EventIgnored             EventType = "ignored"
)

// ErrInvalidSignature is returned when the webhook payload cannot be
// authenticated. Verification fails closed.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// ErrNotConfigured is returned when no provider secret key is set.
var ErrNotConfigured = errors.New("billing provider not configured")

// Event is a verified, normalized provider event.
type Event struct {
	ID              string
	Type            EventType
	CustomerRef     string
	SubscriptionRef string
	Plan            domain.Plan
}

// Gateway abstracts the billing provider for checkout, customer management,
// and webhook verification.
type Gateway interface {
	CreateCustomer(ctx context.Context, email, name, userID string) (string, error)
	CreateCheckoutSession(ctx context.Context, customerRef, priceID string, metadata map[string]string) (string, error)
	CreatePortalSession(ctx context.Context, customerRef string) (string, error)
	VerifyEvent(payload []byte, sigHeader string) (*Event, error)
}

// StripeGateway implements Gateway against Stripe.
type StripeGateway struct {
	cfg config.StripeConfig
}

// NewStripeGateway wires the Stripe API key and returns the gateway.
func NewStripeGateway(cfg config.StripeConfig) (*StripeGateway, error) {
	if cfg.SecretKey == "" {
		return nil, ErrNotConfigured
	}
	stripe.Key = cfg.SecretKey
	return &StripeGateway{cfg: cfg}, nil
}

// CreateCustomer creates a Stripe Customer carrying the user id in metadata.
func (g *StripeGateway) CreateCustomer(_ context.Context, email, name, userID string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
		Metadata: map[string]string{
			"user_id": userID,
		},
	}
	cust, err := customer.New(params)
	if err != nil {
		return "", err
	}
	return cust.ID, nil
}

// CreateCheckoutSession starts a subscription-mode hosted checkout and returns
// its URL. Card details never touch this service.
func (g *StripeGateway) CreateCheckoutSession(_ context.Context, customerRef, priceID string, metadata map[string]string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(customerRef),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(g.cfg.FrontendURL + "/dashboard?upgraded=true"),
		CancelURL:  stripe.String(g.cfg.FrontendURL + "/pricing"),
	}
	if len(metadata) > 0 {
		params.Metadata = metadata
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

// CreatePortalSession returns a billing-portal URL for subscription management.
func (g *StripeGateway) CreatePortalSession(_ context.Context, customerRef string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerRef),
		ReturnURL: stripe.String(g.cfg.FrontendURL + "/dashboard"),
	}
	sess, err := portalsession.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

// VerifyEvent authenticates the payload against the provider signature header
// and normalizes the events the reconciler understands. Everything else comes
// back as EventIgnored so the caller can acknowledge without acting.
func (g *StripeGateway) VerifyEvent(payload []byte, sigHeader string) (*Event, error) {
	stripeEvent, err := webhook.ConstructEventWithOptions(
		payload,
		sigHeader,
		g.cfg.WebhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return nil, ErrInvalidSignature
	}

	event := &Event{ID: stripeEvent.ID, Type: EventIgnored}

	switch stripeEvent.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(stripeEvent.Data.Raw, &sess); err != nil {
			return nil, err
		}
		event.Type = EventCheckoutCompleted
		if sess.Customer != nil {
			event.CustomerRef = sess.Customer.ID
		}
		if sess.Subscription != nil {
			event.SubscriptionRef = sess.Subscription.ID
		}
		plan := domain.Plan(sess.Metadata["plan"])
		if !plan.Valid() {
			plan = domain.PlanPro
		}
		event.Plan = plan
	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(stripeEvent.Data.Raw, &sub); err != nil {
			return nil, err
		}
		event.Type = EventSubscriptionDeleted
		if sub.Customer != nil {
			event.CustomerRef = sub.Customer.ID
		}
		event.SubscriptionRef = sub.ID
	}

	return event, nil
}
