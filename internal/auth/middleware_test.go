package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"paricus-portal/internal/config"

	"github.com/gin-gonic/gin"
)

func TestRequireAccessToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute})

	r := gin.New()
	r.GET("/x", RequireAccessToken(m), func(c *gin.Context) {
		id, err := IdentityFrom(c.Request.Context())
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, id.Company)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", w.Code)
	}

	tok, err := m.IssueAccess(time.Now(), Identity{UserID: "u", Company: "Tempo Wireless", Role: "client_user"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "Tempo Wireless" {
		t.Fatalf("expected 200 Tempo Wireless, got %d %q", w.Code, w.Body.String())
	}
}

func TestRequireAccessToken_SchemeIsCaseInsensitive(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute})

	r := gin.New()
	r.GET("/x", RequireAccessToken(m), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("role"))
	})

	tok, err := m.IssueAccess(time.Now(), Identity{UserID: "ops", Role: "bpo_admin"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	for _, header := range []string{"bearer " + tok, "Bearer  " + tok} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Authorization", header)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK || w.Body.String() != "bpo_admin" {
			t.Fatalf("%q: expected 200 bpo_admin, got %d %q", header[:7], w.Code, w.Body.String())
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Basic "+tok)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-bearer scheme, got %d", w.Code)
	}
}
