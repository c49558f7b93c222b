package auth

import (
	"testing"
	"time"

	"paricus-portal/internal/config"
)

func TestIssueAndVerifyAccessToken(t *testing.T) {
	m, err := NewManager(config.AuthConfig{
		JWTSecret:      "secret",
		JWTIssuer:      "issuer",
		JWTAudience:    "aud",
		AccessTokenTTL: 15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	now := time.Unix(1700000000, 0).UTC()
	tok, err := m.IssueAccess(now, Identity{
		UserID:      "user-1",
		Company:     "Flex Mobile",
		Role:        "client_user",
		Permissions: []string{"view_recordings"},
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tok == "" {
		t.Fatalf("expected token string")
	}

	claims, err := m.Verify(tok, now.Add(1*time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	id := claims.Identity()
	if id.UserID != "user-1" || id.Company != "Flex Mobile" || id.Role != "client_user" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !id.Has("view_recordings") || id.Has("manage_cache") {
		t.Fatalf("unexpected permissions: %v", id.Permissions)
	}
}

func TestVerifyRejectsExpiredAndForeignTokens(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute})
	now := time.Unix(1700000000, 0).UTC()
	tok, err := m.IssueAccess(now, Identity{UserID: "u", Role: "bpo_admin"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(tok, now.Add(10*time.Minute)); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}

	other, _ := NewManager(config.AuthConfig{JWTSecret: "other", AccessTokenTTL: time.Minute})
	if _, err := other.Verify(tok, now); err == nil {
		t.Fatalf("expected signature mismatch")
	}
}

func TestVerifyChecksAudience(t *testing.T) {
	issuer, _ := NewManager(config.AuthConfig{JWTSecret: "secret", JWTAudience: "portal", AccessTokenTTL: time.Minute})
	verifier, _ := NewManager(config.AuthConfig{JWTSecret: "secret", JWTAudience: "elsewhere", AccessTokenTTL: time.Minute})
	now := time.Now()
	tok, err := issuer.IssueAccess(now, Identity{UserID: "u", Role: "bpo_admin"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(tok, now); err == nil {
		t.Fatalf("expected audience mismatch")
	}
}

func TestIssueRequiresUserAndRole(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret"})
	if _, err := m.IssueAccess(time.Now(), Identity{UserID: "u"}); err == nil {
		t.Fatalf("expected missing role to fail")
	}
	if _, err := NewManager(config.AuthConfig{}); err == nil {
		t.Fatalf("expected missing secret to fail")
	}
}
