package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Submit modes for the final booking request.
const (
	SubmitModeAwait = "await"
	SubmitModeAsync = "async"
)

// Supported OTP provider integrations.
const (
	OTPProviderTwoFactor = "twofactor"
	OTPProviderFirebase  = "firebase"
)

// Config holds all configuration values
type Config struct {
	// Server configuration
	Port        int    `json:"port"`
	Environment string `json:"environment"`

	// Redis configuration
	RedisURI      string        `json:"redis_uri"`
	RedisPassword string        `json:"redis_password"`
	RedisDB       int           `json:"redis_db"`
	SessionTTL    time.Duration `json:"session_ttl"`

	// Catalog API configuration
	CatalogBaseURL  string        `json:"catalog_base_url"`
	CatalogCacheTTL time.Duration `json:"catalog_cache_ttl"`

	// OTP provider configuration
	OTPProvider        string        `json:"otp_provider"`
	OTPResendCooldown  time.Duration `json:"otp_resend_cooldown"`
	OTPSessionTTL      time.Duration `json:"otp_session_ttl"`
	TwoFactorBaseURL   string        `json:"two_factor_base_url"`
	TwoFactorAPIKey    string        `json:"two_factor_api_key"`
	FirebaseBaseURL    string        `json:"firebase_base_url"`
	FirebaseAPIKey     string        `json:"firebase_api_key"`
	DefaultCountryCode string        `json:"default_country_code"`

	// Submission configuration
	SubmitURL  string `json:"submit_url"`
	SubmitMode string `json:"submit_mode"`

	// Tracing configuration
	TracingEnabled  bool   `json:"tracing_enabled"`
	TracingEndpoint string `json:"tracing_endpoint"`
}

var (
	AppConfig *Config
)

// LoadConfig loads configuration from environment variables
func LoadConfig() error {
	port, err := strconv.Atoi(getEnvOrDefault("PORT", "8080"))
	if err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnvOrDefault("REDIS_DB", "0"))
	if err != nil {
		return fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	sessionTTL, err := time.ParseDuration(getEnvOrDefault("SESSION_TTL", "1h"))
	if err != nil {
		return fmt.Errorf("invalid SESSION_TTL: %w", err)
	}

	catalogCacheTTL, err := time.ParseDuration(getEnvOrDefault("CATALOG_CACHE_TTL", "15m"))
	if err != nil {
		return fmt.Errorf("invalid CATALOG_CACHE_TTL: %w", err)
	}

	otpResendCooldown, err := time.ParseDuration(getEnvOrDefault("OTP_RESEND_COOLDOWN", "30s"))
	if err != nil {
		return fmt.Errorf("invalid OTP_RESEND_COOLDOWN: %w", err)
	}

	otpSessionTTL, err := time.ParseDuration(getEnvOrDefault("OTP_SESSION_TTL", "10m"))
	if err != nil {
		return fmt.Errorf("invalid OTP_SESSION_TTL: %w", err)
	}

	// Catalog and submit endpoints live on the external backend and have no
	// sensible defaults
	catalogBaseURL := os.Getenv("CATALOG_BASE_URL")
	if catalogBaseURL == "" {
		return fmt.Errorf("CATALOG_BASE_URL environment variable is required")
	}

	otpProvider := getEnvOrDefault("OTP_PROVIDER", OTPProviderTwoFactor)
	switch otpProvider {
	case OTPProviderTwoFactor:
		if os.Getenv("TWO_FACTOR_API_KEY") == "" {
			return fmt.Errorf("TWO_FACTOR_API_KEY environment variable is required for the twofactor provider")
		}
	case OTPProviderFirebase:
		if os.Getenv("FIREBASE_API_KEY") == "" {
			return fmt.Errorf("FIREBASE_API_KEY environment variable is required for the firebase provider")
		}
	default:
		return fmt.Errorf("invalid OTP_PROVIDER: %s", otpProvider)
	}

	submitMode := getEnvOrDefault("SUBMIT_MODE", SubmitModeAwait)
	if submitMode != SubmitModeAwait && submitMode != SubmitModeAsync {
		return fmt.Errorf("invalid SUBMIT_MODE: %s", submitMode)
	}

	AppConfig = &Config{
		// Server configuration
		Port:        port,
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),

		// Redis configuration
		RedisURI:      getEnvOrDefault("REDIS_URI", "localhost:6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,
		SessionTTL:    sessionTTL,

		// Catalog API configuration
		CatalogBaseURL:  catalogBaseURL,
		CatalogCacheTTL: catalogCacheTTL,

		// OTP provider configuration
		OTPProvider:        otpProvider,
		OTPResendCooldown:  otpResendCooldown,
		OTPSessionTTL:      otpSessionTTL,
		TwoFactorBaseURL:   getEnvOrDefault("TWO_FACTOR_BASE_URL", "https://2factor.in/API/V1"),
		TwoFactorAPIKey:    os.Getenv("TWO_FACTOR_API_KEY"),
		FirebaseBaseURL:    getEnvOrDefault("FIREBASE_BASE_URL", "https://identitytoolkit.googleapis.com"),
		FirebaseAPIKey:     os.Getenv("FIREBASE_API_KEY"),
		DefaultCountryCode: getEnvOrDefault("DEFAULT_COUNTRY_CODE", "91"),

		// Submission configuration
		SubmitURL:  getEnvOrDefault("SUBMIT_URL", catalogBaseURL+"/car/submit-request"),
		SubmitMode: submitMode,

		// Tracing configuration
		TracingEnabled:  getEnvOrDefault("TRACING_ENABLED", "false") == "true",
		TracingEndpoint: getEnvOrDefault("TRACING_ENDPOINT", "localhost:4317"),
	}

	return nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
