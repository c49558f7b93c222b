package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		App:  AppConfig{Env: "local", Port: 8080},
		CDR:  CDRConfig{Port: 5432},
		Auth: AuthConfig{JWTSecret: "secret"},
	}
}

func TestLoad_ReportsMissingRequired(t *testing.T) {
	// Ensure a clean env by not setting anything and calling validation directly.
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_CDRStoreIsOptional(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ok, _ := c.CDR.Configured(); ok {
		t.Fatalf("expected unconfigured CDR store")
	}
}

func TestValidate_AppliesDefaults(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.CDR.Driver != DriverPostgres {
		t.Fatalf("expected pgx driver default, got %q", c.CDR.Driver)
	}
	if c.CDR.PoolMin != 2 || c.CDR.PoolMax != 10 {
		t.Fatalf("unexpected pool defaults: min=%d max=%d", c.CDR.PoolMin, c.CDR.PoolMax)
	}
	if c.Cache.Backend != CacheBackendMemory {
		t.Fatalf("expected memory cache backend, got %q", c.Cache.Backend)
	}
	if c.Cache.PageTTL != 60*time.Second || c.Cache.CountTTL != 300*time.Second {
		t.Fatalf("unexpected cache ttls: page=%s count=%s", c.Cache.PageTTL, c.Cache.CountTTL)
	}
	if c.Cache.LookupTTL <= c.Cache.PageTTL {
		t.Fatalf("expected lookup ttl above page ttl, got %s", c.Cache.LookupTTL)
	}
}

func TestValidate_PoolMinAboveMax(t *testing.T) {
	c := validConfig()
	c.CDR.PoolMin = 20
	c.CDR.PoolMax = 5
	if err := c.Validate(); err == nil {
		t.Fatalf("expected pool bounds error")
	}
}

func TestValidate_RedisBackendRequiresHost(t *testing.T) {
	c := validConfig()
	c.Cache.Backend = CacheBackendRedis
	c.Redis.Port = 6379
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for redis backend without REDIS_HOST")
	}
}

func TestValidate_ProductionRequiresIssuerAndAudience(t *testing.T) {
	c := validConfig()
	c.App.Env = "production"
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected error for production without JWT issuer/audience")
	}
	if !strings.Contains(err.Error(), "JWT_ISSUER") || !strings.Contains(err.Error(), "JWT_AUDIENCE") {
		t.Fatalf("expected both jwt errors, got %v", err)
	}
}

func TestCDRConfig_PlaceholderIsUnconfigured(t *testing.T) {
	c := CDRConfig{Host: "your-server.example.com", User: "reader", Password: "s3cret", Name: "cdr"}
	ok, reason := c.Configured()
	if ok {
		t.Fatalf("expected placeholder host to be unconfigured")
	}
	if !strings.Contains(reason, "CDR_DB_HOST") {
		t.Fatalf("unexpected reason %q", reason)
	}

	c = CDRConfig{Host: "10.0.0.5", User: "reader", Password: "your_password", Name: "cdr"}
	if ok, _ := c.Configured(); ok {
		t.Fatalf("expected placeholder password to be unconfigured")
	}

	c = CDRConfig{Host: "10.0.0.5", User: "reader", Password: "s3cret", Name: "cdr"}
	if ok, reason := c.Configured(); !ok {
		t.Fatalf("expected configured, got %q", reason)
	}
}

func TestIsPlaceholder(t *testing.T) {
	for _, v := range []string{"your_user", "<password>", "xxxx", "changeme", "sample_db", "PLACEHOLDER", "db.example.com"} {
		if !IsPlaceholder(v) {
			t.Fatalf("expected %q to be a placeholder", v)
		}
	}
	for _, v := range []string{"cdr_reader", "10.1.2.3", "Tr1cky!Pass", "interactions"} {
		if IsPlaceholder(v) {
			t.Fatalf("expected %q to be a real value", v)
		}
	}
}

func TestCDRConfig_SSLModeFromEncryptionFlags(t *testing.T) {
	cases := []struct {
		encrypt, trust bool
		want           string
	}{
		{false, false, "disable"},
		{false, true, "disable"},
		{true, true, "require"},
		{true, false, "verify-full"},
	}
	for _, tc := range cases {
		c := CDRConfig{Encrypt: tc.encrypt, TrustServerCertificate: tc.trust}
		if got := c.SSLMode(); got != tc.want {
			t.Fatalf("encrypt=%v trust=%v: expected %q, got %q", tc.encrypt, tc.trust, tc.want, got)
		}
	}
}

func TestCDRConfig_DSNQuotesPassword(t *testing.T) {
	c := CDRConfig{Host: "h", Port: 5432, User: "u", Password: "a b'c", Name: "cdr", ConnectTimeout: 15 * time.Second}
	dsn := c.DSN()
	if !strings.Contains(dsn, `password='a b\'c'`) {
		t.Fatalf("expected quoted password in dsn, got %q", dsn)
	}
	if !strings.Contains(dsn, "connect_timeout=15") {
		t.Fatalf("expected connect_timeout in dsn, got %q", dsn)
	}
}
