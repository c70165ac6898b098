package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/devreview-service/internal/billing"
	"github.com/spec-kit/devreview-service/internal/domain"
	"github.com/spec-kit/devreview-service/internal/repository"
	apperrors "github.com/spec-kit/devreview-service/pkg/util"
)

// MockUserRepository is an in-memory UserRepository.
type MockUserRepository struct {
	mu     sync.Mutex
	users  map[string]*domain.User
	nextID int
}

// NewMockUserRepository creates an empty repository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*domain.User)}
}

func (m *MockUserRepository) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return apperrors.NewDuplicateEmail()
		}
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	user.Active = true
	clone := *user
	m.users[user.ID] = &clone
	return nil
}

func (m *MockUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (m *MockUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *MockUserRepository) GetByStripeCustomerID(_ context.Context, customerID string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.StripeCustomerID != nil && *user.StripeCustomerID == customerID {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *MockUserRepository) LinkStripeCustomer(_ context.Context, userID, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	if user.StripeCustomerID != nil && *user.StripeCustomerID != customerID {
		return repository.ErrCustomerMismatch
	}
	user.StripeCustomerID = &customerID
	return nil
}

func (m *MockUserRepository) SetPlan(_ context.Context, userID string, plan domain.Plan, subscriptionID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	user.Plan = plan
	user.StripeSubscriptionID = subscriptionID
	return nil
}

// Seed inserts a user directly, returning its id.
func (m *MockUserRepository) Seed(user *domain.User) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", m.nextID)
	}
	clone := *user
	m.users[user.ID] = &clone
	return user.ID
}

// MockUsageRepository is an in-memory UsageRepository. Increment and
// Decrement are atomic under the mutex.
type MockUsageRepository struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewMockUsageRepository creates an empty counter store.
func NewMockUsageRepository() *MockUsageRepository {
	return &MockUsageRepository{counts: make(map[string]int64)}
}

func usageKey(userID string, action domain.Action, day string) string {
	return userID + "|" + string(action) + "|" + day
}

func (m *MockUsageRepository) Increment(_ context.Context, userID string, action domain.Action, day string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := usageKey(userID, action, day)
	m.counts[key]++
	return m.counts[key], nil
}

func (m *MockUsageRepository) Decrement(_ context.Context, userID string, action domain.Action, day string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := usageKey(userID, action, day)
	if m.counts[key] > 0 {
		m.counts[key]--
	}
	return nil
}

func (m *MockUsageRepository) Count(_ context.Context, userID string, action domain.Action, day string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[usageKey(userID, action, day)], nil
}

// MockBillingEventRepository is an in-memory BillingEventRepository.
type MockBillingEventRepository struct {
	mu   sync.Mutex
	seen map[string]bool
}

// NewMockBillingEventRepository creates an empty dedupe store.
func NewMockBillingEventRepository() *MockBillingEventRepository {
	return &MockBillingEventRepository{seen: make(map[string]bool)}
}

func (m *MockBillingEventRepository) MarkProcessed(_ context.Context, eventID, _ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[eventID] {
		return false, nil
	}
	m.seen[eventID] = true
	return true, nil
}

// MockGateway is a scriptable billing.Gateway.
type MockGateway struct {
	mu              sync.Mutex
	NextEvent       *billing.Event
	CustomerCounter int
	CheckoutURL     string
	PortalURL       string
	FailCheckout    error
}

// NewMockGateway returns a gateway with sane defaults.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		CheckoutURL: "https://checkout.test/session",
		PortalURL:   "https://portal.test/session",
	}
}

func (m *MockGateway) CreateCustomer(_ context.Context, _, _, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CustomerCounter++
	return fmt.Sprintf("cus_mock_%d", m.CustomerCounter), nil
}

func (m *MockGateway) CreateCheckoutSession(_ context.Context, _, _ string, _ map[string]string) (string, error) {
	if m.FailCheckout != nil {
		return "", m.FailCheckout
	}
	return m.CheckoutURL, nil
}

func (m *MockGateway) CreatePortalSession(_ context.Context, _ string) (string, error) {
	return m.PortalURL, nil
}

// VerifyEvent treats the literal header "valid" as a good signature and
// returns the scripted event.
func (m *MockGateway) VerifyEvent(_ []byte, sigHeader string) (*billing.Event, error) {
	if sigHeader != "valid" {
		return nil, billing.ErrInvalidSignature
	}
	if m.NextEvent == nil {
		return &billing.Event{ID: "evt_mock", Type: billing.EventIgnored}, nil
	}
	return m.NextEvent, nil
}

// MockReviewer is a scriptable ai.Reviewer.
type MockReviewer struct {
	Response string
	Err      error
	Calls    int
}

func (m *MockReviewer) Review(_ context.Context, _, _ string) (string, error) {
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

func (m *MockReviewer) Model() string {
	return "mock-model"
}
