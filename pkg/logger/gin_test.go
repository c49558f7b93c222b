package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestMiddleware_PropagatesRequestIDAndLogsSummary(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	r := gin.New()
	r.Use(Middleware(l))
	r.GET("/recordings/:id", func(c *gin.Context) {
		c.Set("user_id", "u-1")
		c.Set("role", "client_user")
		c.Set("company", "Tempo Wireless")
		From(c.Request.Context()).Info("inside handler")
		c.Status(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/recordings/MOCK-1", nil)
	req.Header.Set(headerRequestID, "rid-123")
	r.ServeHTTP(w, req)

	if got := w.Header().Get(headerRequestID); got != "rid-123" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected handler line and summary, got %d", len(lines))
	}
	if lines[0]["request_id"] != "rid-123" {
		t.Fatalf("handler logger missing request_id: %v", lines[0])
	}
	sum := lines[1]
	if sum["path"] != "/recordings/:id" || sum["status"] != float64(404) || sum["level"] != "WARN" {
		t.Fatalf("unexpected summary: %v", sum)
	}
	if sum["user_id"] != "u-1" || sum["company"] != "Tempo Wireless" {
		t.Fatalf("expected identity attrs: %v", sum)
	}
}

func TestMiddleware_GeneratesRequestIDAndQuietsHealthChecks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.Use(Middleware(l))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Header().Get(headerRequestID) == "" {
		t.Fatalf("expected generated request id")
	}
	if buf.Len() != 0 {
		t.Fatalf("health check summary should be below info: %s", buf.String())
	}
}
