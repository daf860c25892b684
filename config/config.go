package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from the environment.
type Config struct {
	Port        string
	DatabaseURL string

	SMTPHost  string
	SMTPPort  int
	SMTPUser  string
	SMTPPass  string
	FromEmail string

	CloudinaryURL string
	GeoAPIBaseURL string

	// AdminEmails is the allow-list of addresses that may request an OTP.
	// AdminForwards maps an alias address to extra addresses the code is
	// also delivered to. Both are policy data, injected here instead of
	// being baked into handlers.
	AdminEmails   []string
	AdminForwards map[string][]string

	OTPTTL        time.Duration
	SessionTTL    time.Duration
	SendTimeout   time.Duration
	RetryInterval time.Duration
}

// Load reads configuration from .env and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	cfg := &Config{
		Port:          envOr("PORT", "8080"),
		DatabaseURL:   databaseURL,
		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPPort:      intEnv("SMTP_PORT", 587),
		SMTPUser:      os.Getenv("SMTP_USER"),
		SMTPPass:      os.Getenv("SMTP_PASS"),
		FromEmail:     os.Getenv("FROM_EMAIL"),
		CloudinaryURL: os.Getenv("CLOUDINARY_URL"),
		GeoAPIBaseURL: envOr("GEO_API_BASE_URL", "https://ipapi.co"),
		AdminEmails:   splitList(os.Getenv("ADMIN_EMAILS")),
		AdminForwards: parseForwards(os.Getenv("ADMIN_FORWARDS")),
		OTPTTL:        time.Duration(intEnv("OTP_TTL_MINUTES", 10)) * time.Minute,
		SessionTTL:    time.Duration(intEnv("SESSION_TTL_HOURS", 12)) * time.Hour,
		SendTimeout:   time.Duration(intEnv("SEND_TIMEOUT_SECONDS", 30)) * time.Second,
		RetryInterval: time.Duration(intEnv("RETRY_INTERVAL_MINUTES", 0)) * time.Minute,
	}

	if cfg.FromEmail == "" {
		cfg.FromEmail = cfg.SMTPUser
	}

	return cfg, nil
}

// IsAdminEmail reports whether the address is on the allow-list. Comparison is
// case-insensitive.
func (c *Config) IsAdminEmail(email string) bool {
	for _, admin := range c.AdminEmails {
		if strings.EqualFold(admin, email) {
			return true
		}
	}
	return false
}

// ForwardsFor returns the extra delivery addresses configured for an alias, or
// nil when the address has no forwarding rule.
func (c *Config) ForwardsFor(email string) []string {
	return c.AdminForwards[strings.ToLower(email)]
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("%s is not a number, defaulting to %d", key, fallback)
		return fallback
	}
	return n
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseForwards parses "alias@x.com=a@x.com|b@x.com;other@x.com=c@x.com".
func parseForwards(value string) map[string][]string {
	forwards := make(map[string][]string)
	for _, rule := range strings.Split(value, ";") {
		alias, targets, ok := strings.Cut(rule, "=")
		if !ok {
			continue
		}
		alias = strings.ToLower(strings.TrimSpace(alias))
		if alias == "" {
			continue
		}
		for _, target := range strings.Split(targets, "|") {
			target = strings.TrimSpace(target)
			if target != "" {
				forwards[alias] = append(forwards[alias], target)
			}
		}
	}
	return forwards
}
