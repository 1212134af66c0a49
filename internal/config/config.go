package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type APIConfig struct {
	Addr           string
	DatabaseURL    string
	AdminToken     string
	PricingURL     string
	PricingAPIKey  string
	PricingTimeout time.Duration
	DiscordToken   string
	DiscordChannel string
}

type WorkerConfig struct {
	DatabaseURL    string
	PricingURL     string
	PricingAPIKey  string
	PricingTimeout time.Duration
	DiscordToken   string
	DiscordChannel string
	WeekLength     time.Duration
	CheckEvery     time.Duration
	RunOnce        bool
}

type CLIConfig struct {
	APIBaseURL string
	AdminToken string
}

func LoadAPIFromEnv() (APIConfig, error) {
	_ = godotenv.Load()

	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("VSIM_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:           addr,
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		AdminToken:     strings.TrimSpace(os.Getenv("VSIM_ADMIN_TOKEN")),
		PricingURL:     strings.TrimRight(strings.TrimSpace(os.Getenv("VSIM_PRICING_URL")), "/"),
		PricingAPIKey:  strings.TrimSpace(os.Getenv("VSIM_PRICING_API_KEY")),
		PricingTimeout: envDurationDefault("VSIM_PRICING_TIMEOUT", 5*time.Second),
		DiscordToken:   strings.TrimSpace(os.Getenv("VSIM_DISCORD_TOKEN")),
		DiscordChannel: strings.TrimSpace(os.Getenv("VSIM_DISCORD_CHANNEL")),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.AdminToken == "" {
		return cfg, fmt.Errorf("VSIM_ADMIN_TOKEN is required")
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	_ = godotenv.Load()

	cfg := WorkerConfig{
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		PricingURL:     strings.TrimRight(strings.TrimSpace(os.Getenv("VSIM_PRICING_URL")), "/"),
		PricingAPIKey:  strings.TrimSpace(os.Getenv("VSIM_PRICING_API_KEY")),
		PricingTimeout: envDurationDefault("VSIM_PRICING_TIMEOUT", 5*time.Second),
		DiscordToken:   strings.TrimSpace(os.Getenv("VSIM_DISCORD_TOKEN")),
		DiscordChannel: strings.TrimSpace(os.Getenv("VSIM_DISCORD_CHANNEL")),
		WeekLength:     envDurationDefault("VSIM_WEEK_LENGTH", 168*time.Hour),
		CheckEvery:     envDurationDefault("VSIM_CHECK_EVERY", time.Minute),
		RunOnce:        envBoolDefault("VSIM_WORKER_RUN_ONCE", false),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	_ = godotenv.Load()
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("VSIM_API_BASE_URL", "http://localhost:8080"), "/"),
		AdminToken: strings.TrimSpace(os.Getenv("VSIM_ADMIN_TOKEN")),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
