package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/devreview-service/internal/billing"
	"github.com/spec-kit/devreview-service/internal/config"
	"github.com/spec-kit/devreview-service/internal/domain"
	"github.com/spec-kit/devreview-service/internal/testutil"
	apperrors "github.com/spec-kit/devreview-service/pkg/util"
)

func newTestBillingService(gateway billing.Gateway) (*BillingService, *testutil.MockUserRepository) {
	users := testutil.NewMockUserRepository()
	processed := testutil.NewMockBillingEventRepository()
	cfg := config.StripeConfig{
		ProPriceID:        "price_pro",
		EnterprisePriceID: "price_enterprise",
		FrontendURL:       "http://localhost:3000",
	}
	return NewBillingService(cfg, users, processed, gateway, nil, zap.NewNop()), users
}

func seedUser(users *testutil.MockUserRepository, customerRef string) *domain.User {
	user := &domain.User{
		ID:     "user-1",
		Name:   "Ada",
		Email:  "ada@example.com",
		Plan:   domain.PlanFree,
		Active: true,
	}
	if customerRef != "" {
		user.StripeCustomerID = &customerRef
	}
	users.Seed(user)
	return user
}

func TestBillingService_CheckoutCompletedUpgradesPlan(t *testing.T) {
	gateway := testutil.NewMockGateway()
	svc, users := newTestBillingService(gateway)
	seedUser(users, "cus_123")
	ctx := context.Background()

	gateway.NextEvent = &billing.Event{
		ID:              "evt_1",
		Type:            billing.EventCheckoutCompleted,
		CustomerRef:     "cus_123",
		SubscriptionRef: "sub_456",
		Plan:            domain.PlanPro,
	}

	if err := svc.HandleWebhook(ctx, []byte("{}"), "valid"); err != nil {
		t.Fatalf("HandleWebhook() error = %v", err)
	}

	user, err := users.GetByID(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if user.Plan != domain.PlanPro {
		t.Errorf("plan = %q, want pro", user.Plan)
	}
	if user.StripeSubscriptionID == nil || *user.StripeSubscriptionID != "sub_456" {
		t.Errorf("subscription ref = %v, want sub_456", user.StripeSubscriptionID)
	}
}

func TestBillingService_SubscriptionDeletedDowngradesPlan(t *testing.T) {
	gateway := testutil.NewMockGateway()
	svc, users := newTestBillingService(gateway)
	seedUser(users, "cus_123")
	ctx := context.Background()

	gateway.NextEvent = &billing.Event{
		ID:              "evt_1",
		Type:            billing.EventCheckoutCompleted,
		CustomerRef:     "cus_123",
		SubscriptionRef: "sub_456",
		Plan:            domain.PlanPro,
	}
	if err := svc.HandleWebhook(ctx, []byte("{}"), "valid"); err != nil {
		t.Fatalf("HandleWebhook(checkout) error = %v", err)
	}

	gateway.NextEvent = &billing.Event{
		ID:              "evt_2",
		Type:            billing.EventSubscriptionDeleted,
		CustomerRef:     "cus_123",
		SubscriptionRef: "sub_456",
	}
	if err := svc.HandleWebhook(ctx, []byte("{}"), "valid"); err != nil {
		t.Fatalf("HandleWebhook(deleted) error = %v", err)
	}

	user, _ := users.GetByID(ctx, "user-1")
	if user.Plan != domain.PlanFree {
		t.Errorf("plan = %q after deletion, want free", user.Plan)
	}
	if user.StripeSubscriptionID != nil {
		t.Errorf("subscription ref = %q, want cleared", *user.StripeSubscriptionID)
	}
	// Customer ref is retained so a re-subscription reuses the customer.
	if user.StripeCustomerID == nil || *user.StripeCustomerID != "cus_123" {
		t.Errorf("customer ref = %v, want retained cus_123", user.StripeCustomerID)
	}
}

func TestBillingService_InvalidSignatureRejected(t *testing.T) {
	gateway := testutil.NewMockGateway()
	svc, users := newTestBillingService(gateway)
	seedUser(users, "cus_123")
	ctx := context.Background()

	gateway.NextEvent = &billing.Event{
		ID:          "evt_1",
		Type:        billing.EventCheckoutCompleted,
		CustomerRef: "cus_123",
		Plan:        domain.PlanPro,
	}

	err := svc.HandleWebhook(ctx, []byte("{}"), "forged")
	if err == nil {
		t.Fatal("HandleWebhook() with bad signature succeeded")
	}
	if de := apperrors.ToDomainError(err); de.Code != "INVALID_WEBHOOK_SIGNATURE" {
		t.Errorf("error code = %q, want INVALID_WEBHOOK_SIGNATURE", de.Code)
	}

	user, _ := users.GetByID(ctx, "user-1")
	if user.Plan != domain.PlanFree {
		t.Errorf("plan = %q after rejected event, want unchanged free", user.Plan)
	}
}

func TestBillingService_UnknownCustomerAcknowledged(t *testing.T) {
	gateway := testutil.NewMockGateway()
	svc, users := newTestBillingService(gateway)
	seedUser(users, "cus_123")
	ctx := context.Background()

	gateway.NextEvent = &billing.Event{
		ID:          "evt_1",
		Type:        billing.EventCheckoutCompleted,
		CustomerRef: "cus_stranger",
		Plan:        domain.PlanPro,
	}

	// Unknown customers are acknowledged so the provider stops retrying.
	if err := svc.HandleWebhook(ctx, []byte("{}"), "valid"); err != nil {
		t.Fatalf("HandleWebhook() error = %v, want nil ack", err)
	}

	user, _ := users.GetByID(ctx, "user-1")
	if user.Plan != domain.PlanFree {
		t.Errorf("plan = %q after unknown-customer event, want unchanged free", user.Plan)
	}
}

func TestBillingService_DuplicateEventAppliedOnce(t *testing.T) {
	gateway := testutil.NewMockGateway()
	svc, users := newTestBillingService(gateway)
	seedUser(users, "cus_123")
	ctx := context.Background()

	gateway.NextEvent = &billing.Event{
		ID:              "evt_1",
		Type:            billing.EventCheckoutCompleted,
		CustomerRef:     "cus_123",
		SubscriptionRef: "sub_456",
		Plan:            domain.PlanPro,
	}
	if err := svc.HandleWebhook(ctx, []byte("{}"), "valid"); err != nil {
		t.Fatalf("HandleWebhook() error = %v", err)
	}

	// Same event id delivered again, now claiming enterprise: the duplicate
	// must be acknowledged without re-applying.
	gateway.NextEvent.Plan = domain.PlanEnterprise
	if err := svc.HandleWebhook(ctx, []byte("{}"), "valid"); err != nil {
		t.Fatalf("HandleWebhook(duplicate) error = %v", err)
	}

	user, _ := users.GetByID(ctx, "user-1")
	if user.Plan != domain.PlanPro {
		t.Errorf("plan = %q after duplicate delivery, want pro", user.Plan)
	}
}

func TestBillingService_CheckoutSession(t *testing.T) {
	gateway := testutil.NewMockGateway()
	svc, users := newTestBillingService(gateway)
	user := seedUser(users, "")
	ctx := context.Background()

	url, err := svc.CreateCheckoutSession(ctx, user, domain.PlanPro)
	if err != nil {
		t.Fatalf("CreateCheckoutSession() error = %v", err)
	}
	if url != gateway.CheckoutURL {
		t.Errorf("url = %q, want %q", url, gateway.CheckoutURL)
	}

	// First checkout creates and links a billing customer.
	stored, _ := users.GetByID(ctx, user.ID)
	if stored.StripeCustomerID == nil || *stored.StripeCustomerID == "" {
		t.Error("customer ref not linked after checkout")
	}

	// A second checkout reuses the linked customer.
	if _, err := svc.CreateCheckoutSession(ctx, stored, domain.PlanEnterprise); err != nil {
		t.Fatalf("second CreateCheckoutSession() error = %v", err)
	}
	if gateway.CustomerCounter != 1 {
		t.Errorf("created %d customers, want 1", gateway.CustomerCounter)
	}
}

func TestBillingService_CheckoutInvalidPlan(t *testing.T) {
	gateway := testutil.NewMockGateway()
	svc, users := newTestBillingService(gateway)
	user := seedUser(users, "")

	tests := []struct {
		name string
		plan domain.Plan
	}{
		{name: "free plan has no price", plan: domain.PlanFree},
		{name: "unknown plan", plan: domain.Plan("platinum")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateCheckoutSession(context.Background(), user, tt.plan); err == nil {
				t.Errorf("CreateCheckoutSession(%q) succeeded, want error", tt.plan)
			}
		})
	}
}

func TestBillingService_PortalRequiresCustomer(t *testing.T) {
	gateway := testutil.NewMockGateway()
	svc, users := newTestBillingService(gateway)
	ctx := context.Background()

	noCustomer := seedUser(users, "")
	if _, err := svc.CreatePortalSession(ctx, noCustomer); err == nil {
		t.Error("CreatePortalSession() without customer ref succeeded")
	}

	withCustomer := &domain.User{ID: "user-2", Email: "b@example.com", Plan: domain.PlanPro, Active: true}
	ref := "cus_999"
	withCustomer.StripeCustomerID = &ref
	users.Seed(withCustomer)

	url, err := svc.CreatePortalSession(ctx, withCustomer)
	if err != nil {
		t.Fatalf("CreatePortalSession() error = %v", err)
	}
	if url != gateway.PortalURL {
		t.Errorf("url = %q, want %q", url, gateway.PortalURL)
	}
}
