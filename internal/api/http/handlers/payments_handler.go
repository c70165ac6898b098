package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/devreview-service/internal/api/dto"
	"github.com/spec-kit/devreview-service/internal/auth"
	"github.com/spec-kit/devreview-service/internal/domain"
	"github.com/spec-kit/devreview-service/internal/service"
	apperrors "github.com/spec-kit/devreview-service/pkg/util"
)

// PaymentsHandler exposes checkout, subscription, and webhook endpoints.
type PaymentsHandler struct {
	billing *service.BillingService
}

// NewPaymentsHandler constructs handler.
func NewPaymentsHandler(billingService *service.BillingService) *PaymentsHandler {
	return &PaymentsHandler{billing: billingService}
}

// Checkout handles POST /payments/checkout.
func (h *PaymentsHandler) Checkout(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewInvalidToken()
	}

	var req dto.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	url, err := h.billing.CreateCheckoutSession(c.Context(), user, domain.Plan(req.Plan))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": dto.CheckoutResponse{CheckoutURL: url},
	})
}

// Portal handles POST /payments/portal.
func (h *PaymentsHandler) Portal(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewInvalidToken()
	}

	url, err := h.billing.CreatePortalSession(c.Context(), user)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": dto.PortalResponse{PortalURL: url},
	})
}

// Subscription handles GET /payments/subscription.
func (h *PaymentsHandler) Subscription(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewInvalidToken()
	}

	current, err := h.billing.Subscription(c.Context(), user.ID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": dto.SubscriptionResponse{
			Plan:                 current.Plan,
			StripeCustomerID:     current.StripeCustomerID,
			StripeSubscriptionID: current.StripeSubscriptionID,
		},
	})
}

// Webhook handles POST /payments/webhook. No bearer auth: the provider
// signature header authenticates the caller instead.
func (h *PaymentsHandler) Webhook(c *fiber.Ctx) error {
	sigHeader := c.Get("Stripe-Signature")
	if err := h.billing.HandleWebhook(c.Context(), c.Body(), sigHeader); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"received": true})
}

// Plans handles GET /payments/plans.
func (h *PaymentsHandler) Plans(c *fiber.Ctx) error {
	plans := []dto.PlanDTO{
		{
			ID:       string(domain.PlanFree),
			Name:     "Free",
			Price:    0,
			Currency: "USD",
			Interval: "month",
			Features: []string{
				"5 AI code reviews per day",
				"Community support",
			},
		},
		{
			ID:       string(domain.PlanPro),
			Name:     "Pro",
			Price:    29,
			Currency: "USD",
			Interval: "month",
			Features: []string{
				"Unlimited AI code reviews",
				"Priority support",
			},
		},
		{
			ID:       string(domain.PlanEnterprise),
			Name:     "Enterprise",
			Price:    99,
			Currency: "USD",
			Interval: "month",
			Features: []string{
				"Everything in Pro",
				"SSO / SAML",
				"Dedicated success manager",
			},
		},
	}
	return c.JSON(fiber.Map{"data": plans})
}
