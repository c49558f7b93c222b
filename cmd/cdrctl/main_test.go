package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"paricus-portal/internal/recordings"

	"gopkg.in/yaml.v3"
)

// setEnv points config at an unconfigured CDR store so commands run on synthetic data.
func setEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "local")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("CDR_DB_HOST", "")
	t.Setenv("CDR_DB_PASSWORD", "")
	t.Setenv("CACHE_BACKEND", "memory")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	return out.String(), err
}

func TestSearch_JSON(t *testing.T) {
	setEnv(t)
	out, err := run(t, "search", "--company", "Flex Mobile", "--has-audio", "true", "-n", "5")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	var page recordings.CachedPage
	if err := json.Unmarshal([]byte(out), &page); err != nil {
		t.Fatalf("decode: %v (%s)", err, out)
	}
	if len(page.Records) == 0 || page.Records[0].InteractionID != "MOCK-000001" {
		t.Fatalf("expected MOCK-000001 first, got %+v", page.Records)
	}
	for _, r := range page.Records {
		if r.CompanyName != "Flex Mobile" || !r.HasAudio() {
			t.Fatalf("record outside filter: %+v", r)
		}
	}
}

func TestGet_YAMLUsesJSONFieldNames(t *testing.T) {
	setEnv(t)
	out, err := run(t, "get", "MOCK-000001", "-o", "yaml")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if doc["interactionId"] != "MOCK-000001" || doc["companyName"] != "Flex Mobile" {
		t.Fatalf("unexpected document: %v", doc)
	}
}

func TestRejectsBadInput(t *testing.T) {
	setEnv(t)
	if _, err := run(t, "agents", "-o", "xml"); err == nil {
		t.Fatalf("expected error for unknown output format")
	}
	if _, err := run(t, "search", "--company", "Acme"); err == nil || !strings.Contains(err.Error(), "unknown company") {
		t.Fatalf("expected unknown company error, got %v", err)
	}
	if _, err := run(t, "search", "--has-audio", "maybe"); err == nil {
		t.Fatalf("expected hasAudio error")
	}
}

func TestPing_MockModeSucceeds(t *testing.T) {
	setEnv(t)
	out, err := run(t, "ping")
	if err != nil {
		t.Fatalf("ping: %v", err)
	}
	var res recordings.Connectivity
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Mode != recordings.ModeMock {
		t.Fatalf("expected mock mode, got %+v", res)
	}
}

func TestSummaryAndToken(t *testing.T) {
	setEnv(t)
	out, err := run(t, "summary", "--company", "Tempo Wireless")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !strings.Contains(out, `"Tempo Wireless"`) {
		t.Fatalf("expected company in summary: %s", out)
	}

	out, err = run(t, "token", "--user", "ops-1", "--role", "bpo_admin")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	var tok map[string]any
	if err := json.Unmarshal([]byte(out), &tok); err != nil || tok["access_token"] == "" {
		t.Fatalf("expected token, got %s (%v)", out, err)
	}
}
