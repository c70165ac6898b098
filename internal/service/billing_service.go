package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/devreview-service/internal/billing"
	"github.com/spec-kit/devreview-service/internal/config"
	"github.com/spec-kit/devreview-service/internal/domain"
	"github.com/spec-kit/devreview-service/internal/events"
	"github.com/spec-kit/devreview-service/internal/repository"
	apperrors "github.com/spec-kit/devreview-service/pkg/util"
)

// BillingService owns checkout, subscription state, and webhook
// reconciliation. It is the only writer of the user's plan tier.
type BillingService struct {
	users      repository.UserRepository
	processed  repository.BillingEventRepository
	gateway    billing.Gateway
	dispatcher events.Dispatcher
	logger     *zap.Logger
	priceIDs   map[domain.Plan]string
}

// NewBillingService builds the service.
func NewBillingService(cfg config.StripeConfig, users repository.UserRepository, processed repository.BillingEventRepository, gateway billing.Gateway, dispatcher events.Dispatcher, logger *zap.Logger) *BillingService {
	priceIDs := map[domain.Plan]string{}
	if cfg.ProPriceID != "" {
		priceIDs[domain.PlanPro] = cfg.ProPriceID
	}
	if cfg.EnterprisePriceID != "" {
		priceIDs[domain.PlanEnterprise] = cfg.EnterprisePriceID
	}
	return &BillingService{
		users:      users,
		processed:  processed,
		gateway:    gateway,
		dispatcher: dispatcher,
		logger:     logger,
		priceIDs:   priceIDs,
	}
}

// CreateCheckoutSession returns a hosted checkout URL for upgrading to the
// requested plan, creating and linking a billing customer on first use.
func (s *BillingService) CreateCheckoutSession(ctx context.Context, user *domain.User, plan domain.Plan) (string, error) {
	if s.gateway == nil {
		return "", apperrors.NewUpstreamProviderError("billing", billing.ErrNotConfigured)
	}
	priceID, ok := s.priceIDs[plan]
	if !ok {
		return "", apperrors.NewValidationError("invalid plan", map[string]any{"plan": string(plan)})
	}

	customerRef, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return "", err
	}

	url, err := s.gateway.CreateCheckoutSession(ctx, customerRef, priceID, map[string]string{
		"user_id": user.ID,
		"plan":    string(plan),
	})
	if err != nil {
		return "", apperrors.NewUpstreamProviderError("billing", err)
	}
	return url, nil
}

// CreatePortalSession returns a billing-portal URL. The user must have gone
// through checkout at least once.
func (s *BillingService) CreatePortalSession(ctx context.Context, user *domain.User) (string, error) {
	if s.gateway == nil {
		return "", apperrors.NewUpstreamProviderError("billing", billing.ErrNotConfigured)
	}
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		return "", apperrors.NewValidationError("no billing customer for user", nil)
	}
	url, err := s.gateway.CreatePortalSession(ctx, *user.StripeCustomerID)
	if err != nil {
		return "", apperrors.NewUpstreamProviderError("billing", err)
	}
	return url, nil
}

// Subscription reports the user's current plan state from the ledger.
func (s *BillingService) Subscription(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// HandleWebhook verifies, dedupes, and applies a provider event. Unknown
// customers and duplicate deliveries are acknowledged without mutation so the
// provider stops retrying.
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	if s.gateway == nil {
		return apperrors.NewUpstreamProviderError("billing", billing.ErrNotConfigured)
	}

	// Verification fails closed: any error rejects the event.
	event, err := s.gateway.VerifyEvent(payload, sigHeader)
	if err != nil {
		return apperrors.NewInvalidWebhookSignature()
	}

	if event.Type == billing.EventIgnored {
		return nil
	}

	first, err := s.processed.MarkProcessed(ctx, event.ID, string(event.Type))
	if err != nil {
		return apperrors.MapError(err)
	}
	if !first {
		s.logger.Info("duplicate billing event acknowledged", zap.String("event_id", event.ID))
		return nil
	}

	switch event.Type {
	case billing.EventCheckoutCompleted:
		return s.applyCheckoutCompleted(ctx, event)
	case billing.EventSubscriptionDeleted:
		return s.applySubscriptionDeleted(ctx, event)
	}
	return nil
}

func (s *BillingService) applyCheckoutCompleted(ctx context.Context, event *billing.Event) error {
	user, ok, err := s.resolveCustomer(ctx, event)
	if err != nil || !ok {
		return err
	}

	if err := s.users.LinkStripeCustomer(ctx, user.ID, event.CustomerRef); err != nil {
		if errors.Is(err, repository.ErrCustomerMismatch) {
			return apperrors.NewConflict("billing customer reference mismatch", map[string]any{
				"user_id": user.ID,
			})
		}
		return apperrors.MapError(err)
	}

	oldPlan := user.Plan
	subRef := event.SubscriptionRef
	if err := s.users.SetPlan(ctx, user.ID, event.Plan, &subRef); err != nil {
		return apperrors.MapError(err)
	}

	s.logger.Info("plan upgraded via checkout",
		zap.String("user_id", user.ID),
		zap.String("plan", string(event.Plan)))
	s.publishPlanChange(ctx, events.EventPlanUpgraded, user.ID, oldPlan, event.Plan, event.CustomerRef)
	return nil
}

func (s *BillingService) applySubscriptionDeleted(ctx context.Context, event *billing.Event) error {
	user, ok, err := s.resolveCustomer(ctx, event)
	if err != nil || !ok {
		return err
	}

	oldPlan := user.Plan
	// Clear the subscription ref, keep the customer ref so a later
	// re-subscription reuses the same customer.
	if err := s.users.SetPlan(ctx, user.ID, domain.PlanFree, nil); err != nil {
		return apperrors.MapError(err)
	}

	s.logger.Info("plan downgraded after subscription deletion",
		zap.String("user_id", user.ID))
	s.publishPlanChange(ctx, events.EventPlanDowngraded, user.ID, oldPlan, domain.PlanFree, event.CustomerRef)
	return nil
}

// resolveCustomer maps the event's customer reference to a user. A missing
// mapping (stale or replayed event) is logged and acknowledged, not failed:
// erroring would make the provider retry an event we can never act on.
func (s *BillingService) resolveCustomer(ctx context.Context, event *billing.Event) (*domain.User, bool, error) {
	if event.CustomerRef == "" {
		s.logger.Warn("billing event missing customer reference", zap.String("event_id", event.ID))
		return nil, false, nil
	}
	user, err := s.users.GetByStripeCustomerID(ctx, event.CustomerRef)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("billing event for unknown customer",
				zap.String("event_id", event.ID),
				zap.String("customer_ref", event.CustomerRef))
			return nil, false, nil
		}
		return nil, false, apperrors.MapError(err)
	}
	return user, true, nil
}

func (s *BillingService) ensureCustomer(ctx context.Context, user *domain.User) (string, error) {
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}

	customerRef, err := s.gateway.CreateCustomer(ctx, user.Email, user.Name, user.ID)
	if err != nil {
		return "", apperrors.NewUpstreamProviderError("billing", err)
	}
	if err := s.users.LinkStripeCustomer(ctx, user.ID, customerRef); err != nil {
		if errors.Is(err, repository.ErrCustomerMismatch) {
			return "", apperrors.NewConflict("billing customer reference mismatch", nil)
		}
		return "", apperrors.MapError(err)
	}
	user.StripeCustomerID = &customerRef
	return customerRef, nil
}

func (s *BillingService) publishPlanChange(ctx context.Context, eventType events.EventType, userID string, oldPlan, newPlan domain.Plan, customerRef string) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now(),
		Payload: events.PlanChangedPayload{
			OldPlan:     oldPlan,
			NewPlan:     newPlan,
			CustomerRef: customerRef,
		},
	})
}
