package service

import (
	"context"
	"testing"

	"github.com/spec-kit/devreview-service/internal/config"
	"github.com/spec-kit/devreview-service/internal/domain"
	"github.com/spec-kit/devreview-service/internal/testutil"
	apperrors "github.com/spec-kit/devreview-service/pkg/util"
)

func newTestAuthService() (*AuthService, *testutil.MockUserRepository) {
	repo := testutil.NewMockUserRepository()
	cfg := config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 60,
		BcryptCost:            4,
	}
	return NewAuthService(cfg, repo, nil), repo
}

func TestAuthService_RegisterThenLogin(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	user, token, _, err := svc.Register(ctx, "Ada", "Ada@Example.com", "hunter22")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if token == "" {
		t.Fatal("Register() returned empty token")
	}
	if user.Email != "ada@example.com" {
		t.Errorf("Register() email = %q, want normalized %q", user.Email, "ada@example.com")
	}
	if user.Plan != domain.PlanFree {
		t.Errorf("Register() plan = %q, want %q", user.Plan, domain.PlanFree)
	}
	if user.PasswordHash == "hunter22" {
		t.Fatal("Register() stored the plaintext password")
	}

	logged, token, _, err := svc.Login(ctx, "ada@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if logged.ID != user.ID {
		t.Errorf("Login() user id = %q, want %q", logged.ID, user.ID)
	}
	if token == "" {
		t.Fatal("Login() returned empty token")
	}

	// The token must resolve back to the same user.
	userID, err := svc.TokenManager().Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if userID != user.ID {
		t.Errorf("Parse() userID = %q, want %q", userID, user.ID)
	}
}

func TestAuthService_LoginFailsUniformly(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	if _, _, _, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "wrong password", email: "ada@example.com", password: "wrong"},
		{name: "unknown email", email: "nobody@example.com", password: "hunter22"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := svc.Login(ctx, tt.email, tt.password)
			if err == nil {
				t.Fatal("Login() succeeded, want error")
			}
			de := apperrors.ToDomainError(err)
			if de.Code != "INVALID_CREDENTIALS" {
				t.Errorf("Login() error code = %q, want INVALID_CREDENTIALS", de.Code)
			}
		})
	}
}

func TestAuthService_DuplicateEmail(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	first, _, _, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, _, _, err = svc.Register(ctx, "Imposter", "ADA@example.com", "other-password")
	if err == nil {
		t.Fatal("second Register() succeeded, want DuplicateEmail")
	}
	if de := apperrors.ToDomainError(err); de.Code != "DUPLICATE_EMAIL" {
		t.Errorf("second Register() error code = %q, want DUPLICATE_EMAIL", de.Code)
	}

	// The first account must be unaffected.
	if _, _, _, err := svc.Login(ctx, "ada@example.com", "hunter22"); err != nil {
		t.Errorf("Login() for original account error = %v", err)
	}
	logged, _, _, _ := svc.Login(ctx, "ada@example.com", "hunter22")
	if logged.ID != first.ID {
		t.Errorf("original account id changed: %q != %q", logged.ID, first.ID)
	}
}

func TestAuthService_DeactivatedAccount(t *testing.T) {
	svc, repo := newTestAuthService()
	ctx := context.Background()

	user, _, _, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	user.Active = false
	repo.Seed(user)

	if _, _, _, err := svc.Login(ctx, "ada@example.com", "hunter22"); err == nil {
		t.Fatal("Login() for deactivated account succeeded")
	}
}
