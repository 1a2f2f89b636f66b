package app

import (
	"os"
	"strconv"
	"time"

	"github.com/plumtrips/backend/internal/tbo"
	"github.com/plumtrips/backend/pkg/jwtx"
)

type Config struct {
	PublicBaseURL   string // Required: this service's public base URL, used as token issuer
	FrontendBaseURL string // Where browser flows land after OAuth (default: PublicBaseURL)

	SessionSecret string        // Required: HS256 key for session tokens
	SessionTTL    time.Duration // Optional: session lifetime (default: 30 days)

	SSOPrivateKeyFile    string        // Optional: PEM file with the RS256 ticket key; generated if absent
	SSORedeemKey         string        // Required to enable redemption: shared secret the relying party presents
	SSOAudience          string        // Optional: accepted relying party (default: helloviza)
	SSORelyingPartyBase  string        // Optional: relying party base URL (default: https://helloviza.com)
	SSODefaultReturnPath string        // Optional: where the relying party lands users (default: /)
	SSOTicketTTL         time.Duration // Optional: ticket lifetime (default: 2 minutes)

	GoogleClientID     string // Optional: Google OAuth is disabled when empty
	GoogleClientSecret string
	GoogleRedirectURL  string

	TBOBaseURL   string // Optional: TBO proxy endpoints are disabled when empty
	TBOAuthURL   string
	TBOClientID  string
	TBOUserName  string
	TBOPassword  string
	TBOEndUserIP string
	TBOTokenTTL  time.Duration // Optional: upstream token cache TTL (default: 25 minutes)

	CookieDomain string // Optional: empty means host-only cookies
	CookieSecure bool   // Optional: default true; disable only in local dev

	DatabaseFile         string        // Optional: SQLite database path (default: ./plumtrips.db)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired row cleanup interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		PublicBaseURL:   getEnvOrDefault("PT_PUBLIC_BASE_URL", "http://localhost:8080"),
		FrontendBaseURL: os.Getenv("PT_FRONTEND_BASE_URL"),

		SessionSecret: os.Getenv("PT_SESSION_SECRET"),
		SessionTTL:    getEnvDurationOrDefault("PT_SESSION_TTL", jwtx.DefaultSessionTTL),

		SSOPrivateKeyFile:    os.Getenv("PT_SSO_PRIVATE_KEY_FILE"),
		SSORedeemKey:         os.Getenv("PT_SSO_REDEEM_KEY"),
		SSOAudience:          getEnvOrDefault("PT_SSO_AUDIENCE", "helloviza"),
		SSORelyingPartyBase:  getEnvOrDefault("PT_SSO_RELYING_PARTY_BASE", "https://helloviza.com"),
		SSODefaultReturnPath: getEnvOrDefault("PT_SSO_DEFAULT_RETURN_PATH", "/"),
		SSOTicketTTL:         getEnvDurationOrDefault("PT_SSO_TICKET_TTL", jwtx.DefaultTicketTTL),

		GoogleClientID:     os.Getenv("PT_GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("PT_GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("PT_GOOGLE_REDIRECT_URL"),

		TBOBaseURL:   os.Getenv("PT_TBO_BASE_URL"),
		TBOAuthURL:   os.Getenv("PT_TBO_AUTH_URL"),
		TBOClientID:  os.Getenv("PT_TBO_CLIENT_ID"),
		TBOUserName:  os.Getenv("PT_TBO_USERNAME"),
		TBOPassword:  os.Getenv("PT_TBO_PASSWORD"),
		TBOEndUserIP: getEnvOrDefault("PT_TBO_END_USER_IP", "127.0.0.1"),
		TBOTokenTTL:  getEnvDurationOrDefault("PT_TBO_TOKEN_TTL", tbo.DefaultTokenTTL),

		CookieDomain: os.Getenv("PT_COOKIE_DOMAIN"),
		CookieSecure: getEnvBoolOrDefault("PT_COOKIE_SECURE", true),

		DatabaseFile:         getEnvOrDefault("PT_DATABASE_FILE", "plumtrips.db"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),
	}

	if cfg.FrontendBaseURL == "" {
		cfg.FrontendBaseURL = cfg.PublicBaseURL
	}
	if cfg.GoogleRedirectURL == "" {
		cfg.GoogleRedirectURL = cfg.PublicBaseURL + "/api/oauth/google/callback"
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are taken as minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
