package auth

import (
	"testing"
	"time"
)

func TestTokenManager_GenerateAndParse(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	token, exp, err := tm.Generate("user-1")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if token == "" {
		t.Fatal("Generate() returned empty token")
	}
	if !exp.After(time.Now()) {
		t.Errorf("Generate() expiry %v is not in the future", exp)
	}

	userID, err := tm.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if userID != "user-1" {
		t.Errorf("Parse() userID = %q, want %q", userID, "user-1")
	}
}

func TestTokenManager_ParseFailsUniformly(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)
	other := NewTokenManager("other-secret", time.Hour)

	goodToken, _, err := tm.Generate("user-1")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	foreignToken, _, err := other.Generate("user-1")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "malformed token", token: "not-a-jwt"},
		{name: "empty token", token: ""},
		{name: "wrong signing secret", token: foreignToken},
		{name: "tampered payload", token: goodToken + "x"},
	}

	var want string
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tm.Parse(tt.token)
			if err == nil {
				t.Fatal("Parse() succeeded, want error")
			}
			if i == 0 {
				want = err.Error()
			} else if err.Error() != want {
				t.Errorf("Parse() error %q differs from %q; failures must be indistinguishable", err.Error(), want)
			}
		})
	}
}

func TestTokenManager_ExpiredToken(t *testing.T) {
	// JWT timestamps have second precision, so the shortest reliable TTL
	// for an expiry test is one second.
	tm := NewTokenManager("test-secret", time.Second)

	token, _, err := tm.Generate("user-1")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := tm.Parse(token); err != nil {
		t.Fatalf("Parse() before expiry error = %v", err)
	}

	time.Sleep(1100 * time.Millisecond)

	if _, err := tm.Parse(token); err == nil {
		t.Fatal("Parse() succeeded after expiry, want error")
	}
}
