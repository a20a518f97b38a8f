// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
)

// DemoUserID is the fixed owner used when DEV_MODE bypasses authentication.
const DemoUserID = "kplanner_demo_user"

// Config carries everything the server needs at startup. It is built once in
// main and passed down explicitly; nothing here is a package-level singleton.
type Config struct {
	ServerAddr string
	DevMode    bool
	AuthSecret string

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	AMQPURL string

	// Active entity ceilings per owner.
	CompanyActiveLimit    int
	AdCampaignActiveLimit int
	AdGroupActiveLimit    int

	// Pagination and batch processing.
	DefaultPage           int
	PageSize              int
	MaxPageSize           int
	BatchSize             int
	MaxKeywordsPerRequest int
}

// Load reads configuration from the environment. Call godotenv.Load first if
// a .env file should participate.
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddr: envOr("SERVER_ADDR", ":8080"),
		DevMode:    os.Getenv("DEV_MODE") == "true",
		AuthSecret: os.Getenv("AUTH_SECRET"),

		DBUser:     envOr("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBHost:     envOr("DB_HOST", "localhost"),
		DBPort:     envOr("DB_PORT", "5432"),
		DBName:     envOr("DB_NAME", "kplanner"),

		AMQPURL: os.Getenv("AMQP_URL"),

		CompanyActiveLimit:    envIntOr("COMPANY_ACTIVE_LIMIT", 3),
		AdCampaignActiveLimit: envIntOr("AD_CAMPAIGN_ACTIVE_LIMIT", 5),
		AdGroupActiveLimit:    envIntOr("AD_GROUP_ACTIVE_LIMIT", 7),

		DefaultPage:           1,
		PageSize:              envIntOr("PAGE_SIZE", 50),
		MaxPageSize:           envIntOr("MAX_PAGE_SIZE", 100),
		BatchSize:             envIntOr("BATCH_SIZE", 25),
		MaxKeywordsPerRequest: envIntOr("MAX_KEYWORDS_PER_REQUEST", 100),
	}

	if !cfg.DevMode && cfg.AuthSecret == "" {
		return nil, fmt.Errorf("AUTH_SECRET is required when DEV_MODE is not enabled")
	}

	return cfg, nil
}

// DSN assembles the Postgres connection string from its components.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// ActiveLimit returns the ceiling for the given hierarchy level index
// (0 = company, 1 = campaign, 2 = ad group).
func (c *Config) ActiveLimits() [3]int {
	return [3]int{c.CompanyActiveLimit, c.AdCampaignActiveLimit, c.AdGroupActiveLimit}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
