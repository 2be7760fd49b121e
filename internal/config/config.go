// Package config loads process configuration from the environment.
//
// Everything is read once at startup: a missing required value is a boot
// failure, never a per-request error. A .env file in the working directory is
// loaded first (godotenv) so local development doesn't need exported shell
// variables; real deployments set the environment directly and ship no .env.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all process-wide settings. Established once in main and
// read-only thereafter.
type Config struct {
	Port        int
	TemplateDir string

	// Session
	SessionSecret string

	// Twitter OAuth app credentials + app-only bearer token for metrics
	TwitterClientID     string
	TwitterClientSecret string
	TwitterCallbackURL  string
	TwitterBearerToken  string

	// Document store
	MongoURI string
	MongoDB  string

	// Background metrics refresher; zero disables it.
	MetricsRefreshInterval time.Duration
}

// Load reads the configuration from the environment.
//
// Required: SESSION_SECRET, TWITTER_CLIENT_ID, TWITTER_CLIENT_SECRET,
// TWITTER_BEARER_TOKEN, MONGO_URI. Everything else has a default.
func Load() (*Config, error) {
	// Ignore a missing .env — it's a development convenience, not a requirement.
	_ = godotenv.Load()

	cfg := &Config{
		Port:                   8080,
		TemplateDir:            "web/templates",
		MongoURI:               os.Getenv("MONGO_URI"),
		MongoDB:                "fellowdash",
		SessionSecret:          os.Getenv("SESSION_SECRET"),
		TwitterClientID:        os.Getenv("TWITTER_CLIENT_ID"),
		TwitterClientSecret:    os.Getenv("TWITTER_CLIENT_SECRET"),
		TwitterCallbackURL:     os.Getenv("TWITTER_CALLBACK_URL"),
		TwitterBearerToken:     os.Getenv("TWITTER_BEARER_TOKEN"),
		MetricsRefreshInterval: time.Hour,
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("config: invalid PORT %q: %w", portStr, err)
		}
		cfg.Port = port
	}

	if dir := os.Getenv("TEMPLATE_DIR"); dir != "" {
		cfg.TemplateDir = dir
	}
	if db := os.Getenv("MONGO_DB"); db != "" {
		cfg.MongoDB = db
	}
	if cfg.TwitterCallbackURL == "" {
		cfg.TwitterCallbackURL = fmt.Sprintf("http://localhost:%d/auth/twitter", cfg.Port)
	}

	if intervalStr := os.Getenv("METRICS_REFRESH_INTERVAL"); intervalStr != "" {
		interval, err := time.ParseDuration(intervalStr)
		if err != nil {
			return nil, fmt.Errorf("config: invalid METRICS_REFRESH_INTERVAL %q: %w", intervalStr, err)
		}
		cfg.MetricsRefreshInterval = interval
	}

	// Required values — fail the boot, not the first request that needs them.
	missing := []string{}
	for name, value := range map[string]string{
		"SESSION_SECRET":        cfg.SessionSecret,
		"TWITTER_CLIENT_ID":     cfg.TwitterClientID,
		"TWITTER_CLIENT_SECRET": cfg.TwitterClientSecret,
		"TWITTER_BEARER_TOKEN":  cfg.TwitterBearerToken,
		"MONGO_URI":             cfg.MongoURI,
	} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	if len(missing) > 0 {
		return nil, fmt.Errorf("config: missing required environment variables: %v", missing)
	}

	return cfg, nil
}
