package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"coldsend-backend/models"
)

// JobQueue backends
const (
	JobQueueSheets   = "sheets"
	JobQueuePostgres = "postgres"
)

// Config holds the process configuration read from the environment
type Config struct {
	Port    string
	DevMode bool

	GeminiModel  string
	SettingsFile string
	Defaults     models.Settings

	MicrosoftClientID     string
	MicrosoftClientSecret string
	MicrosoftTenantID     string
	RedirectURL           string

	StateDir           string
	StateEncryptionKey string
	StateSigningKey    string

	MailTimezone string

	AllowedOrigins []string

	JobQueueBackend       string
	GoogleSheetID         string
	GoogleCredentialsFile string
	DatabaseURL           string
	PollInterval          time.Duration
}

// Load reads the configuration from the environment, applying defaults
func Load() (*Config, error) {
	cfg := &Config{
		Port:    getEnv("PORT", "3000"),
		DevMode: getBool("DEV_MODE"),

		GeminiModel:  os.Getenv("GEMINI_MODEL"),
		SettingsFile: getEnv("SETTINGS_FILE", "settings.json"),
		Defaults: models.Settings{
			UserName:      os.Getenv("USER_NAME"),
			UserAbout:     os.Getenv("USER_ABOUT"),
			APIKey:        os.Getenv("GEMINI_API_KEY"),
			SignatureHTML: os.Getenv("SIGNATURE_HTML"),
			ResumePath:    os.Getenv("RESUME_PATH"),
			ApolloAPIKey:  os.Getenv("APOLLO_API_KEY"),
		},

		MicrosoftClientID:     os.Getenv("MICROSOFT_CLIENT_ID"),
		MicrosoftClientSecret: os.Getenv("MICROSOFT_CLIENT_SECRET"),
		MicrosoftTenantID:     getEnv("MICROSOFT_TENANT_ID", "common"),
		RedirectURL:           os.Getenv("MICROSOFT_REDIRECT_URL"),

		StateDir:           getEnv("STATE_DIR", "data"),
		StateEncryptionKey: os.Getenv("STATE_ENCRYPTION_KEY"),
		StateSigningKey:    os.Getenv("STATE_SIGNING_KEY"),

		MailTimezone: os.Getenv("MAIL_TIMEZONE"),

		AllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),

		JobQueueBackend:       strings.ToLower(getEnv("JOBQUEUE_BACKEND", JobQueueSheets)),
		GoogleSheetID:         os.Getenv("GOOGLE_SHEET_ID"),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		PollInterval:          time.Minute,
	}

	if cfg.RedirectURL == "" {
		cfg.RedirectURL = fmt.Sprintf("http://localhost:%s/auth/callback", cfg.Port)
	}

	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid POLL_INTERVAL %q: %w", v, err)
		}
		cfg.PollInterval = d
	}

	switch cfg.JobQueueBackend {
	case JobQueueSheets, JobQueuePostgres:
	default:
		return nil, fmt.Errorf("unknown JOBQUEUE_BACKEND: %s", cfg.JobQueueBackend)
	}

	return cfg, nil
}

// OAuthConfigured reports whether the Microsoft app registration is set
func (c *Config) OAuthConfigured() bool {
	return c.MicrosoftClientID != "" && c.MicrosoftClientSecret != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
