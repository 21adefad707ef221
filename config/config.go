package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aether-community/backend/internal/notify"
)

// DefaultSessionSecret is the development signing secret. It is rejected in production.
const DefaultSessionSecret = "change-me-in-production"

// EnvProduction is the APP_ENV value for production deployments.
const EnvProduction = "production"

// Config holds application configuration loaded from environment.
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Airtable AirtableConfig
	Redis    RedisConfig
	Session  SessionConfig
	Tokens   TokenConfig
	Email    EmailConfig
	Google   GoogleConfig
}

// AppConfig holds deployment-wide settings.
type AppConfig struct {
	Env     string // development | production
	BaseURL string // public origin used in email links, e.g. https://aether.community
}

// Production reports whether the app runs in production.
func (c AppConfig) Production() bool {
	return c.Env == EnvProduction
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all (e.g. http://localhost:3000,http://localhost:3001)
	WorkerMetricsPort  string // email worker /metrics listener; empty disables it
}

// AirtableConfig holds the record store settings. An empty APIKey selects the in-memory store.
type AirtableConfig struct {
	APIKey         string
	BaseID         string
	URL            string
	TimeoutSec     int
	MembersTable   string
	EventsTable    string
	RSVPsTable     string
	ResourcesTable string
	UpdatesTable   string
	SupportTable   string
}

// Enabled reports whether Airtable credentials are configured.
func (c AirtableConfig) Enabled() bool {
	return c.APIKey != "" && c.BaseID != ""
}

// RedisConfig holds Redis connection settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr            string
	Password        string
	DB              int
	ProfileCacheSec int
}

// SessionConfig holds session cookie signing settings.
type SessionConfig struct {
	Secret      string
	ExpireHours int
	CookieName  string
}

// TokenConfig holds email link lifetimes.
type TokenConfig struct {
	VerificationMinutes int
	LoginMinutes        int
}

// EmailConfig for SMTP / HTTP API delivery.
type EmailConfig struct {
	FromAddress string
	FromName    string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
	APIURL      string // optional JSON send endpoint
	APIKey      string
	TimeoutSec  int
	UseQueue    bool // hand emails to the worker through Redis
}

// Transport returns the delivery settings for notify.TransportFromConfig.
func (c EmailConfig) Transport() notify.TransportConfig {
	return notify.TransportConfig{
		SMTP: notify.SMTPConfig{
			Host:     c.SMTPHost,
			Port:     c.SMTPPort,
			Username: c.SMTPUser,
			Password: c.SMTPPass,
		},
		APIURL:  c.APIURL,
		APIKey:  c.APIKey,
		Timeout: time.Duration(c.TimeoutSec) * time.Second,
	}
}

// GoogleConfig holds Google sign-in credentials. Empty ClientID disables it.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	baseURL := strings.TrimRight(getEnv("BASE_URL", "http://localhost:3000"), "/")
	cfg := &Config{
		App: AppConfig{
			Env:     getEnv("APP_ENV", "development"),
			BaseURL: baseURL,
		},
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001"),
			WorkerMetricsPort:  getEnv("WORKER_METRICS_PORT", "9091"),
		},
		Airtable: AirtableConfig{
			APIKey:         getEnv("AIRTABLE_API_KEY", ""),
			BaseID:         getEnv("AIRTABLE_BASE_ID", ""),
			URL:            getEnv("AIRTABLE_API_URL", ""),
			TimeoutSec:     getEnvInt("AIRTABLE_TIMEOUT_SEC", 10),
			MembersTable:   getEnv("AIRTABLE_MEMBERS_TABLE", "Members"),
			EventsTable:    getEnv("AIRTABLE_EVENTS_TABLE", "Events"),
			RSVPsTable:     getEnv("AIRTABLE_RSVPS_TABLE", "RSVPs"),
			ResourcesTable: getEnv("AIRTABLE_RESOURCES_TABLE", "Knowledge"),
			UpdatesTable:   getEnv("AIRTABLE_UPDATES_TABLE", "Updates"),
			SupportTable:   getEnv("AIRTABLE_SUPPORT_TABLE", "Support"),
		},
		Redis: RedisConfig{
			Addr:            getEnv("REDIS_ADDR", ""),
			Password:        getEnv("REDIS_PASSWORD", ""),
			DB:              getEnvInt("REDIS_DB", 0),
			ProfileCacheSec: getEnvInt("PROFILE_CACHE_SEC", 300),
		},
		Session: SessionConfig{
			Secret:      getEnv("SESSION_SECRET", DefaultSessionSecret),
			ExpireHours: getEnvInt("SESSION_EXPIRE_HOURS", 168),
			CookieName:  getEnv("SESSION_COOKIE_NAME", "aether_session"),
		},
		Tokens: TokenConfig{
			VerificationMinutes: getEnvInt("VERIFICATION_TOKEN_TTL_MINUTES", 30),
			LoginMinutes:        getEnvInt("LOGIN_TOKEN_TTL_MINUTES", 15),
		},
		Email: EmailConfig{
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "noreply@aether.community"),
			FromName:    getEnv("EMAIL_FROM_NAME", "Aether"),
			SMTPHost:    getEnv("SMTP_HOST", ""),
			SMTPPort:    getEnvInt("SMTP_PORT", 587),
			SMTPUser:    getEnv("SMTP_USER", ""),
			SMTPPass:    getEnv("SMTP_PASS", ""),
			APIURL:      getEnv("EMAIL_API_URL", ""),
			APIKey:      getEnv("EMAIL_API_KEY", ""),
			TimeoutSec:  getEnvInt("EMAIL_TIMEOUT_SEC", 15),
			UseQueue:    getEnvBool("EMAIL_USE_QUEUE", false),
		},
		Google: GoogleConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", baseURL+"/auth/google/callback"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.App.BaseURL == "" {
		errs = append(errs, errors.New("BASE_URL is required"))
	}
	if c.Session.Secret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required"))
	}
	if c.App.Production() && c.Session.Secret == DefaultSessionSecret {
		errs = append(errs, errors.New("SESSION_SECRET must be changed in production"))
	}
	if c.Session.ExpireHours <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_EXPIRE_HOURS must be positive, got %d", c.Session.ExpireHours))
	}
	if c.Tokens.VerificationMinutes <= 0 || c.Tokens.LoginMinutes <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	if c.Email.UseQueue && c.Redis.Addr == "" {
		errs = append(errs, errors.New("EMAIL_USE_QUEUE requires REDIS_ADDR"))
	}
	if c.Google.ClientID != "" && c.Google.ClientSecret == "" {
		errs = append(errs, errors.New("GOOGLE_CLIENT_SECRET is required when GOOGLE_CLIENT_ID is set"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SessionTTL returns the session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.ExpireHours) * time.Hour
}

// VerificationTTL returns the lifetime of signup verification links.
func (c *Config) VerificationTTL() time.Duration {
	return time.Duration(c.Tokens.VerificationMinutes) * time.Minute
}

// LoginTTL returns the lifetime of login links.
func (c *Config) LoginTTL() time.Duration {
	return time.Duration(c.Tokens.LoginMinutes) * time.Minute
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
