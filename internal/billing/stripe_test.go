package billing

import (
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/spec-kit/devreview-service/internal/config"
	"github.com/spec-kit/devreview-service/internal/domain"
)

const testWebhookSecret = "whsec_test_secret"

func newTestGateway(t *testing.T) *StripeGateway {
	t.Helper()
	gateway, err := NewStripeGateway(config.StripeConfig{
		SecretKey:     "sk_test_key",
		WebhookSecret: testWebhookSecret,
		FrontendURL:   "http://localhost:3000",
	})
	if err != nil {
		t.Fatalf("NewStripeGateway() error = %v", err)
	}
	return gateway
}

func signPayload(payload []byte, secret string) string {
	now := time.Now()
	sig := webhook.ComputeSignature(now, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(sig))
}

func TestStripeGateway_VerifyEvent_CheckoutCompleted(t *testing.T) {
	gateway := newTestGateway(t)

	payload := []byte(`{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_1",
				"object": "checkout.session",
				"customer": "cus_123",
				"subscription": "sub_456",
				"metadata": {"user_id": "user-1", "plan": "pro"}
			}
		}
	}`)

	event, err := gateway.VerifyEvent(payload, signPayload(payload, testWebhookSecret))
	if err != nil {
		t.Fatalf("VerifyEvent() error = %v", err)
	}
	if event.Type != EventCheckoutCompleted {
		t.Errorf("event type = %q, want checkout_completed", event.Type)
	}
	if event.ID != "evt_1" {
		t.Errorf("event id = %q, want evt_1", event.ID)
	}
	if event.CustomerRef != "cus_123" {
		t.Errorf("customer ref = %q, want cus_123", event.CustomerRef)
	}
	if event.SubscriptionRef != "sub_456" {
		t.Errorf("subscription ref = %q, want sub_456", event.SubscriptionRef)
	}
	if event.Plan != domain.PlanPro {
		t.Errorf("plan = %q, want pro", event.Plan)
	}
}

func TestStripeGateway_VerifyEvent_SubscriptionDeleted(t *testing.T) {
	gateway := newTestGateway(t)

	payload := []byte(`{
		"id": "evt_2",
		"object": "event",
		"type": "customer.subscription.deleted",
		"data": {
			"object": {
				"id": "sub_456",
				"object": "subscription",
				"customer": "cus_123"
			}
		}
	}`)

	event, err := gateway.VerifyEvent(payload, signPayload(payload, testWebhookSecret))
	if err != nil {
		t.Fatalf("VerifyEvent() error = %v", err)
	}
	if event.Type != EventSubscriptionDeleted {
		t.Errorf("event type = %q, want subscription_deleted", event.Type)
	}
	if event.CustomerRef != "cus_123" {
		t.Errorf("customer ref = %q, want cus_123", event.CustomerRef)
	}
	if event.SubscriptionRef != "sub_456" {
		t.Errorf("subscription ref = %q, want sub_456", event.SubscriptionRef)
	}
}

func TestStripeGateway_VerifyEvent_RejectsBadSignatures(t *testing.T) {
	gateway := newTestGateway(t)
	payload := []byte(`{"id": "evt_3", "object": "event", "type": "checkout.session.completed", "data": {"object": {}}}`)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "malformed header", header: "garbage"},
		{name: "wrong secret", header: signPayload(payload, "whsec_other_secret")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gateway.VerifyEvent(payload, tt.header)
			if !errors.Is(err, ErrInvalidSignature) {
				t.Errorf("VerifyEvent() error = %v, want ErrInvalidSignature", err)
			}
		})
	}
}

func TestStripeGateway_VerifyEvent_TamperedPayload(t *testing.T) {
	gateway := newTestGateway(t)
	payload := []byte(`{"id": "evt_4", "object": "event", "type": "checkout.session.completed", "data": {"object": {}}}`)
	header := signPayload(payload, testWebhookSecret)

	tampered := []byte(`{"id": "evt_4", "object": "event", "type": "checkout.session.completed", "data": {"object": {"customer": "cus_evil"}}}`)
	if _, err := gateway.VerifyEvent(tampered, header); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("VerifyEvent() with tampered payload error = %v, want ErrInvalidSignature", err)
	}
}

func TestStripeGateway_VerifyEvent_IgnoresOtherTypes(t *testing.T) {
	gateway := newTestGateway(t)
	payload := []byte(`{"id": "evt_5", "object": "event", "type": "invoice.paid", "data": {"object": {}}}`)

	event, err := gateway.VerifyEvent(payload, signPayload(payload, testWebhookSecret))
	if err != nil {
		t.Fatalf("VerifyEvent() error = %v", err)
	}
	if event.Type != EventIgnored {
		t.Errorf("event type = %q, want ignored", event.Type)
	}
}
