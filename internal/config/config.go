package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration required by the portal processes.
// All values must come from env (or a .env file picked up by Load).
// No business logic should depend on raw environment variables.
type Config struct {
	App   AppConfig
	CDR   CDRConfig
	Cache CacheConfig
	Redis RedisConfig
	Auth  AuthConfig
}

type AppConfig struct {
	Env  string
	Port int
}

// CDRConfig describes the externally-owned call-detail-record store.
//
// Every field is optional. Absent or placeholder credentials put the gateway into
// mock mode instead of failing startup; see Configured.
type CDRConfig struct {
	// Driver is the database/sql driver: "pgx" (default) or "sqlite" for a local extract.
	Driver string

	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Encrypt and TrustServerCertificate map onto the Postgres sslmode.
	Encrypt                bool
	TrustServerCertificate bool

	PoolMin int
	PoolMax int

	AcquireTimeout time.Duration
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
}

type CacheConfig struct {
	// Backend is "memory" (per-process) or "redis" (shared across replicas).
	Backend string

	PageTTL   time.Duration
	CountTTL  time.Duration
	LookupTTL time.Duration

	// MaxEntries bounds each in-memory cache category.
	MaxEntries int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration
}

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"

	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Load reads a .env file when one exists, then the process environment.
func Load() (Config, error) {
	loadDotEnv()

	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.CDR.Driver = strings.TrimSpace(os.Getenv("CDR_DB_DRIVER"))
	c.CDR.Host = strings.TrimSpace(os.Getenv("CDR_DB_HOST"))
	{
		n, err := optionalInt("CDR_DB_PORT", 5432)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.CDR.Port = n
	}
	c.CDR.User = strings.TrimSpace(os.Getenv("CDR_DB_USER"))
	c.CDR.Password = os.Getenv("CDR_DB_PASSWORD")
	c.CDR.Name = strings.TrimSpace(os.Getenv("CDR_DB_NAME"))
	c.CDR.Encrypt = envBool("CDR_DB_ENCRYPT")
	c.CDR.TrustServerCertificate = envBool("CDR_DB_TRUST_SERVER_CERTIFICATE")
	{
		n, err := optionalInt("CDR_DB_POOL_MIN", 0)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.CDR.PoolMin = n
	}
	{
		n, err := optionalInt("CDR_DB_POOL_MAX", 0)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.CDR.PoolMax = n
	}
	// Duration env vars are optional; defaults applied in Validate().
	c.CDR.AcquireTimeout = mustDuration("CDR_DB_ACQUIRE_TIMEOUT")
	c.CDR.ConnectTimeout = mustDuration("CDR_DB_CONNECT_TIMEOUT")
	c.CDR.RequestTimeout = mustDuration("CDR_DB_REQUEST_TIMEOUT")

	c.Cache.Backend = strings.TrimSpace(os.Getenv("CACHE_BACKEND"))
	c.Cache.PageTTL = mustDuration("CACHE_PAGE_TTL")
	c.Cache.CountTTL = mustDuration("CACHE_COUNT_TTL")
	c.Cache.LookupTTL = mustDuration("CACHE_LOOKUP_TTL")
	{
		n, err := optionalInt("CACHE_MAX_ENTRIES", 0)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Cache.MaxEntries = n
	}

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := optionalInt("REDIS_PORT", 6379)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	{
		n, err := optionalInt("REDIS_DB", 0)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.DB = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	// The CDR store is never required; only shape errors are reported.
	if c.CDR.Driver == "" {
		c.CDR.Driver = DriverPostgres
	}
	if c.CDR.Driver != DriverPostgres && c.CDR.Driver != DriverSQLite {
		errs = append(errs, fmt.Errorf("CDR_DB_DRIVER must be one of pgx, sqlite, got %q", c.CDR.Driver))
	}
	if c.CDR.Port <= 0 || c.CDR.Port > 65535 {
		errs = append(errs, fmt.Errorf("CDR_DB_PORT must be a valid port, got %d", c.CDR.Port))
	}
	if c.CDR.PoolMin <= 0 {
		c.CDR.PoolMin = 2
	}
	if c.CDR.PoolMax <= 0 {
		c.CDR.PoolMax = 10
	}
	if c.CDR.PoolMin > c.CDR.PoolMax {
		errs = append(errs, fmt.Errorf("CDR_DB_POOL_MIN (%d) must not exceed CDR_DB_POOL_MAX (%d)", c.CDR.PoolMin, c.CDR.PoolMax))
	}
	if c.CDR.AcquireTimeout <= 0 {
		c.CDR.AcquireTimeout = 5 * time.Second
	}
	if c.CDR.ConnectTimeout <= 0 {
		c.CDR.ConnectTimeout = 15 * time.Second
	}
	if c.CDR.RequestTimeout <= 0 {
		c.CDR.RequestTimeout = 30 * time.Second
	}

	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheBackendMemory
	}
	if c.Cache.Backend != CacheBackendMemory && c.Cache.Backend != CacheBackendRedis {
		errs = append(errs, fmt.Errorf("CACHE_BACKEND must be one of memory, redis, got %q", c.Cache.Backend))
	}
	if c.Cache.PageTTL <= 0 {
		c.Cache.PageTTL = 60 * time.Second
	}
	if c.Cache.CountTTL <= 0 {
		c.Cache.CountTTL = 300 * time.Second
	}
	if c.Cache.LookupTTL <= 0 {
		c.Cache.LookupTTL = 600 * time.Second
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 1000
	}

	if c.Cache.Backend == CacheBackendRedis {
		if c.Redis.Host == "" {
			errs = append(errs, errors.New("REDIS_HOST is required when CACHE_BACKEND=redis"))
		}
		if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		// Default: short-lived access tokens.
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Configured reports whether the CDR store can be dialed. When it cannot, reason
// names the first absent or placeholder setting.
func (c CDRConfig) Configured() (ok bool, reason string) {
	if c.Driver == DriverSQLite {
		if c.Name == "" || IsPlaceholder(c.Name) {
			return false, "CDR_DB_NAME is not set"
		}
		return true, ""
	}

	fields := []struct {
		key string
		val string
	}{
		{"CDR_DB_HOST", c.Host},
		{"CDR_DB_USER", c.User},
		{"CDR_DB_PASSWORD", c.Password},
		{"CDR_DB_NAME", c.Name},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.val) == "" {
			return false, f.key + " is not set"
		}
		if IsPlaceholder(f.val) {
			return false, f.key + " holds a placeholder value"
		}
	}
	return true, ""
}

// SSLMode derives the Postgres sslmode from the encryption flags.
func (c CDRConfig) SSLMode() string {
	switch {
	case !c.Encrypt:
		return "disable"
	case c.TrustServerCertificate:
		return "require"
	default:
		return "verify-full"
	}
}

// DSN returns the driver-specific data source name.
func (c CDRConfig) DSN() string {
	if c.Driver == DriverSQLite {
		return "file:" + c.Name + "?mode=ro&_time_format=sqlite"
	}
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d application_name=paricus-portal",
		c.Host,
		c.Port,
		c.User,
		quoteDSNValue(c.Password),
		c.Name,
		c.SSLMode(),
		int(c.ConnectTimeout.Seconds()),
	)
}

var placeholderPattern = regexp.MustCompile(`(?i)(^your[_\-. ]|^<.*>$|^x{3,}$|example\.(com|org|net)|^sample|^default$|changeme|change_me|placeholder|^\*+$)`)

// IsPlaceholder reports whether v looks like a template value copied from a sample env file.
func IsPlaceholder(v string) bool {
	return placeholderPattern.MatchString(strings.TrimSpace(v))
}

func quoteDSNValue(v string) string {
	if v == "" || strings.ContainsAny(v, ` '\`) {
		v = strings.ReplaceAll(v, `\`, `\\`)
		v = strings.ReplaceAll(v, `'`, `\'`)
		return "'" + v + "'"
	}
	return v
}

// loadDotEnv loads the first .env found in the working directory or its parent.
// Variables already present in the environment win.
func loadDotEnv() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}
	for _, p := range []string{filepath.Join(cwd, ".env"), filepath.Join(filepath.Dir(cwd), ".env")} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

// mustDuration accepts Go durations ("30s") or bare seconds ("30").
func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func envBool(key string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && b
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
