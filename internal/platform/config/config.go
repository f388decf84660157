package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the complete service configuration.
type Config struct {
	Server     ServerConfig     `json:"server"`
	Recaptcha  RecaptchaConfig  `json:"recaptcha"`
	JWT        JWTConfig        `json:"jwt"`
	Cache      CacheConfig      `json:"cache"`
	RateLimits RateLimitsConfig `json:"rateLimits"`
	Email      EmailConfig      `json:"email"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	WebDomain      string   `json:"webDomain"`
	Debug          bool     `json:"debug"`
	ProxyHeader    string   `json:"proxyHeader"`
	TrustedProxies []string `json:"trustedProxies"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RecaptchaConfig holds the settings of the captcha validation rule and its
// verification client.
type RecaptchaConfig struct {
	Enabled            bool          `json:"enabled"`
	SiteKey            string        `json:"siteKey"`
	SecretKey          string        `json:"secretKey"`
	VerifyHost         bool          `json:"verifyHost"`
	TrustedRoles       []string      `json:"trustedRoles"`
	FailOpen           bool          `json:"failOpen"`
	APIHost            string        `json:"apiHost"`
	Timeout            time.Duration `json:"timeout"`
	ScoreThreshold     float64       `json:"scoreThreshold"`
	ExpectedAction     string        `json:"expectedAction"`
	Message            string        `json:"message"`
	InvalidHostMessage string        `json:"invalidHostMessage"`
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	PublicKey string `json:"publicKey"`
}

// CacheConfig selects the storage used by rate limiting.
type CacheConfig struct {
	Backend string      `json:"backend"`
	Prefix  string      `json:"prefix"`
	Redis   RedisConfig `json:"redis"`
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	Address      string        `json:"address"`
	Password     string        `json:"password"`
	Database     int           `json:"database"`
	PoolSize     int           `json:"poolSize"`
	MinIdleConns int           `json:"minIdleConns"`
	MaxConnAge   time.Duration `json:"maxConnAge"`
}

// EmailConfig holds the SMTP relay that forwards accepted contact messages.
// An empty SMTPHost keeps messages in the log only.
type EmailConfig struct {
	SMTPHost   string   `json:"smtpHost"`
	SMTPPort   int      `json:"smtpPort"`
	SMTPUser   string   `json:"smtpUser"`
	SMTPPass   string   `json:"-"`
	From       string   `json:"from"`
	Recipients []string `json:"recipients"`
}

// RateLimitConfig holds rate limiting configuration for a specific endpoint
type RateLimitConfig struct {
	Enabled  bool          `json:"enabled"`
	Max      int           `json:"max"`
	Duration time.Duration `json:"duration"`
}

// RateLimitsConfig holds rate limiting configuration for all endpoints
type RateLimitsConfig struct {
	Contact RateLimitConfig `json:"contact"`
}

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"

	DefaultRecaptchaAPIHost = "www.google.com"
)

// LoadFromEnv loads configuration from the environment.
// It follows a clear precedence:
// 1. Explicit Environment Variables (e.g., set in the shell or by CI)
// 2. Values from the .env file (if it exists)
// 3. Hardcoded defaults
func LoadFromEnv() (*Config, error) {
	// godotenv.Load never overrides variables that are already set.
	envPaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	var loadErr error
	for _, envPath := range envPaths {
		loadErr = godotenv.Load(envPath)
		if loadErr == nil {
			break
		}
	}
	if loadErr != nil {
		fmt.Println("INFO: .env file not found, using environment variables and defaults.")
	}

	return load(os.LookupEnv)
}

// LoadFromMap loads configuration from an in-memory map.
// This is the primary helper for testing configuration logic in isolation
// without manipulating global environment variables.
func LoadFromMap(envMap map[string]string) (*Config, error) {
	return load(func(key string) (string, bool) {
		v, ok := envMap[key]
		return v, ok
	})
}

type source func(key string) (string, bool)

func load(lookup source) (*Config, error) {
	env := envReader{lookup: lookup}

	config := &Config{
		Server: ServerConfig{
			Host:           env.str("HOST", "localhost"),
			Port:           env.asInt("SERVER_PORT", 8080),
			WebDomain:      env.str("WEB_DOMAIN", "http://localhost:3000"),
			Debug:          env.asBool("DEBUG", false),
			ProxyHeader:    env.str("PROXY_HEADER", ""),
			TrustedProxies: env.list("TRUSTED_PROXIES"),
		},
		Recaptcha: RecaptchaConfig{
			Enabled:            env.asBool("RECAPTCHA_ENABLED", true),
			SiteKey:            env.str("RECAPTCHA_SITE_KEY", ""),
			SecretKey:          env.str("RECAPTCHA_KEY", ""),
			VerifyHost:         env.asBool("RECAPTCHA_VERIFY_HOST", false),
			TrustedRoles:       env.list("RECAPTCHA_TRUSTED_ROLES"),
			FailOpen:           env.asBool("RECAPTCHA_FAIL_OPEN", false),
			APIHost:            env.str("RECAPTCHA_API_HOST", DefaultRecaptchaAPIHost),
			Timeout:            env.asDuration("RECAPTCHA_TIMEOUT", 5*time.Second),
			ScoreThreshold:     env.asFloat("RECAPTCHA_SCORE_THRESHOLD", 0),
			ExpectedAction:     env.str("RECAPTCHA_EXPECTED_ACTION", ""),
			Message:            env.str("RECAPTCHA_MESSAGE", ""),
			InvalidHostMessage: env.str("RECAPTCHA_INVALID_HOST_MESSAGE", ""),
		},
		JWT: JWTConfig{
			PublicKey: env.str("JWT_PUBLIC_KEY", ""),
		},
		Cache: CacheConfig{
			Backend: env.str("CACHE_BACKEND", CacheBackendMemory),
			Prefix:  env.str("CACHE_PREFIX", "recaptcha:"),
			Redis: RedisConfig{
				Address:      env.str("REDIS_ADDRESS", "localhost:6379"),
				Password:     env.str("REDIS_PASSWORD", ""),
				Database:     env.asInt("REDIS_DATABASE", 0),
				PoolSize:     env.asInt("REDIS_POOL_SIZE", 10),
				MinIdleConns: env.asInt("REDIS_MIN_IDLE_CONNS", 5),
				MaxConnAge:   time.Duration(env.asInt("REDIS_MAX_CONN_AGE", 300)) * time.Second,
			},
		},
		RateLimits: RateLimitsConfig{
			Contact: RateLimitConfig{
				Enabled:  env.asBool("RATE_LIMIT_CONTACT_ENABLED", true),
				Max:      env.asInt("RATE_LIMIT_CONTACT_MAX", 10),
				Duration: env.asDuration("RATE_LIMIT_CONTACT_DURATION", 1*time.Hour),
			},
		},
		Email: EmailConfig{
			SMTPHost:   env.str("SMTP_HOST", ""),
			SMTPPort:   env.asInt("SMTP_PORT", 587),
			SMTPUser:   env.str("SMTP_USER", ""),
			SMTPPass:   env.str("SMTP_PASS", ""),
			From:       env.str("SMTP_FROM", "noreply@localhost"),
			Recipients: env.list("CONTACT_RECIPIENTS"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration for required fields
func (c *Config) Validate() error {
	var errors []string

	if c.Recaptcha.Enabled && strings.TrimSpace(c.Recaptcha.SecretKey) == "" {
		errors = append(errors, "RECAPTCHA_KEY is required when RECAPTCHA_ENABLED is true")
	}
	if strings.TrimSpace(c.Recaptcha.APIHost) == "" {
		errors = append(errors, "RECAPTCHA_API_HOST cannot be empty")
	}
	if c.Recaptcha.ScoreThreshold < 0 || c.Recaptcha.ScoreThreshold > 1 {
		errors = append(errors, "RECAPTCHA_SCORE_THRESHOLD must be between 0 and 1")
	}
	if c.Recaptcha.Timeout <= 0 {
		errors = append(errors, "RECAPTCHA_TIMEOUT must be positive")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}

	validBackends := []string{CacheBackendMemory, CacheBackendRedis}
	if !contains(validBackends, c.Cache.Backend) {
		errors = append(errors, fmt.Sprintf("CACHE_BACKEND must be one of: %s", strings.Join(validBackends, ", ")))
	}

	if c.RateLimits.Contact.Enabled && c.RateLimits.Contact.Max <= 0 {
		errors = append(errors, "RATE_LIMIT_CONTACT_MAX must be positive")
	}

	if c.Email.SMTPHost != "" && len(c.Email.Recipients) == 0 {
		errors = append(errors, "CONTACT_RECIPIENTS is required when SMTP_HOST is set")
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// redactedValue replaces secrets in Redacted copies.
const redactedValue = "***"

// Redacted returns a copy of c with every secret blanked, safe to log.
func (c *Config) Redacted() Config {
	out := *c
	out.Server.TrustedProxies = append([]string(nil), c.Server.TrustedProxies...)
	out.Recaptcha.TrustedRoles = append([]string(nil), c.Recaptcha.TrustedRoles...)
	out.Email.Recipients = append([]string(nil), c.Email.Recipients...)

	out.Recaptcha.SecretKey = redact(c.Recaptcha.SecretKey)
	out.Cache.Redis.Password = redact(c.Cache.Redis.Password)
	out.Email.SMTPPass = redact(c.Email.SMTPPass)
	return out
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return redactedValue
}

// envReader reads typed values, falling back to the default when a key is
// unset, empty or unparsable.
type envReader struct {
	lookup source
}

func (e envReader) raw(key string) (string, bool) {
	value, ok := e.lookup(key)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

func (e envReader) str(key, defaultValue string) string {
	if value, ok := e.raw(key); ok {
		return value
	}
	return defaultValue
}

func (e envReader) asInt(key string, defaultValue int) int {
	if value, ok := e.raw(key); ok {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (e envReader) asFloat(key string, defaultValue float64) float64 {
	if value, ok := e.raw(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func (e envReader) asBool(key string, defaultValue bool) bool {
	if value, ok := e.raw(key); ok {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func (e envReader) asDuration(key string, defaultValue time.Duration) time.Duration {
	if value, ok := e.raw(key); ok {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// list splits a comma separated value, dropping blanks.
func (e envReader) list(key string) []string {
	value, ok := e.raw(key)
	if !ok {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
