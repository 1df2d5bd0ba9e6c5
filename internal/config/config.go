package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session store backends.
const (
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"
)

// Config contains runtime configuration values.
type Config struct {
	Environment string
	HTTPPort    string
	ServiceName string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	ShutdownTimeout  time.Duration

	DatabaseURL  string
	SessionStore string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ProviderClientID     string
	ProviderClientSecret string
	ProviderAdminKey     string
	ProviderRedirectURI  string
	ProviderAuthorizeURL string
	ProviderTokenURL     string
	ProviderProfileURL   string
	ProviderUnlinkURL    string
	ProviderTimeout      time.Duration

	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	OAuthStateTTL      time.Duration

	// ReactivateOnLogin controls what happens when a deactivated identity
	// completes a social login: true reactivates the account, false rejects
	// the login as unauthorized.
	ReactivateOnLogin bool

	ClientRedirectURL string
	CookieDomain      string
	CookieSameSite    string

	RateLimitRPM        int
	RateLimitBurst      int
	RateLimitIdleWindow time.Duration
	TelemetryEndpoint   string
	TelemetryInsecure   bool

	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSAllowCredentials bool
}

// Load reads configuration from environment variables with sane defaults.
// Missing provider credentials or signing secrets fail here, before any
// request is served.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment: getEnv("APP_ENV", "development"),
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		ServiceName: getEnv("SERVICE_NAME", "folioo-auth"),

		HTTPReadTimeout:  getDuration("HTTP_READ_TIMEOUT", 10*time.Second),
		HTTPWriteTimeout: getDuration("HTTP_WRITE_TIMEOUT", 20*time.Second),
		ShutdownTimeout:  getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		DatabaseURL:  os.Getenv("DATABASE_URL"),
		SessionStore: strings.ToLower(getEnv("SESSION_STORE", SessionStorePostgres)),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),

		ProviderClientID:     strings.TrimSpace(os.Getenv("PROVIDER_CLIENT_ID")),
		ProviderClientSecret: strings.TrimSpace(os.Getenv("PROVIDER_CLIENT_SECRET")),
		ProviderAdminKey:     strings.TrimSpace(os.Getenv("PROVIDER_ADMIN_KEY")),
		ProviderRedirectURI:  strings.TrimSpace(os.Getenv("PROVIDER_REDIRECT_URI")),
		ProviderAuthorizeURL: getEnv("PROVIDER_AUTHORIZE_URL", "https://kauth.kakao.com/oauth/authorize"),
		ProviderTokenURL:     getEnv("PROVIDER_TOKEN_URL", "https://kauth.kakao.com/oauth/token"),
		ProviderProfileURL:   getEnv("PROVIDER_PROFILE_URL", "https://kapi.kakao.com/v2/user/me"),
		ProviderUnlinkURL:    getEnv("PROVIDER_UNLINK_URL", "https://kapi.kakao.com/v1/user/unlink"),
		ProviderTimeout:      getDuration("PROVIDER_TIMEOUT", 10*time.Second),

		AccessTokenSecret:  strings.TrimSpace(os.Getenv("JWT_ACCESS_SECRET")),
		RefreshTokenSecret: strings.TrimSpace(os.Getenv("JWT_REFRESH_SECRET")),
		AccessTokenTTL:     getDuration("ACCESS_TOKEN_TTL", 900*time.Second),
		RefreshTokenTTL:    getDuration("REFRESH_TOKEN_TTL", 1209600*time.Second),
		OAuthStateTTL:      getDuration("OAUTH_STATE_TTL", 10*time.Minute),

		ReactivateOnLogin: getBool("REACTIVATE_ON_LOGIN", true),

		ClientRedirectURL: strings.TrimSpace(os.Getenv("CLIENT_REDIRECT_URL")),
		CookieDomain:      os.Getenv("COOKIE_DOMAIN"),
		CookieSameSite:    strings.ToLower(getEnv("COOKIE_SAMESITE", "lax")),

		RateLimitRPM:        getInt("RATE_LIMIT_RPM", 600),
		RateLimitBurst:      getInt("RATE_LIMIT_BURST", 0),
		RateLimitIdleWindow: getDuration("RATE_LIMIT_IDLE_WINDOW", 5*time.Minute),
		TelemetryEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure:   getBool("OTEL_EXPORTER_OTLP_INSECURE", true),

		CORSAllowedOrigins:   getList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		CORSAllowedMethods:   getList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
		CORSAllowedHeaders:   getList("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type"}),
		CORSAllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", true),
	}

	if cfg.ProviderClientID == "" {
		return Config{}, fmt.Errorf("PROVIDER_CLIENT_ID is required")
	}
	if cfg.ProviderRedirectURI == "" {
		return Config{}, fmt.Errorf("PROVIDER_REDIRECT_URI is required")
	}
	if cfg.ProviderAdminKey == "" {
		return Config{}, fmt.Errorf("PROVIDER_ADMIN_KEY is required")
	}
	if cfg.AccessTokenSecret == "" || cfg.RefreshTokenSecret == "" {
		return Config{}, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET are required")
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return Config{}, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	switch cfg.SessionStore {
	case SessionStorePostgres, SessionStoreRedis:
	default:
		return Config{}, fmt.Errorf("SESSION_STORE must be %q or %q", SessionStorePostgres, SessionStoreRedis)
	}

	return cfg, nil
}

// SecureCookies reports whether credential cookies must carry the Secure flag.
// SameSite=None requires Secure regardless of environment.
func (c Config) SecureCookies() bool {
	if c.CookieSameSite == "none" {
		return true
	}
	return c.Environment == "production"
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if sec, err := strconv.Atoi(v); err == nil {
			return time.Duration(sec) * time.Second
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}
