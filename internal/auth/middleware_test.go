package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/devreview-service/internal/domain"
	"github.com/spec-kit/devreview-service/internal/testutil"
	apperrors "github.com/spec-kit/devreview-service/pkg/util"
)

func newTestApp(m *Middleware) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"code": de.Code})
		},
	})
	app.Get("/protected", m.Handle, func(c *fiber.Ctx) error {
		user, _ := UserFromContext(c)
		return c.JSON(fiber.Map{"id": user.ID})
	})
	return app
}

func TestMiddleware_RejectsBadHeaders(t *testing.T) {
	tokens := NewTokenManager("test-secret", time.Hour)
	users := testutil.NewMockUserRepository()
	app := newTestApp(NewMiddleware(tokens, users))

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Token abc"},
		{name: "garbage token", header: "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", resp.StatusCode)
			}
		})
	}
}

func TestMiddleware_ValidTokenLoadsUser(t *testing.T) {
	tokens := NewTokenManager("test-secret", time.Hour)
	users := testutil.NewMockUserRepository()
	userID := users.Seed(&domain.User{
		ID:     "user-1",
		Email:  "ada@example.com",
		Plan:   domain.PlanFree,
		Active: true,
	})
	app := newTestApp(NewMiddleware(tokens, users))

	token, _, err := tokens.Generate(userID)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestMiddleware_TokenForDeletedUser(t *testing.T) {
	tokens := NewTokenManager("test-secret", time.Hour)
	users := testutil.NewMockUserRepository()
	app := newTestApp(NewMiddleware(tokens, users))

	token, _, err := tokens.Generate("user-gone")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}
