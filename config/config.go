package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string   `yaml:"port"`
	Mode        string   `yaml:"mode"`
	CORSOrigins []string `yaml:"cors_origins"`

	StoreDriver string `yaml:"store_driver"`
	DatabaseDSN string `yaml:"database_dsn"`

	FirebaseCredentials string `yaml:"firebase_credentials"`
	FirebaseProjectID   string `yaml:"firebase_project_id"`
	StorageBucket       string `yaml:"storage_bucket"`
	NotifyTopic         string `yaml:"notify_topic"`

	GeminiAPIKey    string        `yaml:"gemini_api_key"`
	GeminiModel     string        `yaml:"gemini_model"`
	GeminiBaseURL   string        `yaml:"gemini_base_url"`
	AnalysisTimeout time.Duration `yaml:"analysis_timeout"`

	JWTSecret string        `yaml:"jwt_secret"`
	JWTTTL    time.Duration `yaml:"jwt_ttl"`

	AdminBootstrapEmail    string `yaml:"admin_bootstrap_email"`
	AdminBootstrapPassword string `yaml:"admin_bootstrap_password"`

	RedisAddr    string `yaml:"redis_addr"`
	RedisChannel string `yaml:"redis_channel"`

	SweepSchedule string        `yaml:"sweep_schedule"`
	SweepAfter    time.Duration `yaml:"sweep_after"`

	OTelEnabled  bool   `yaml:"otel_enabled"`
	OTelEndpoint string `yaml:"otel_endpoint"`
}

func Default() *Config {
	return &Config{
		Port:                "8080",
		Mode:                "development",
		CORSOrigins:         []string{"*"},
		StoreDriver:         "firestore",
		NotifyTopic:         "admin-critical",
		GeminiModel:         "gemini-2.5-flash",
		AnalysisTimeout:     60 * time.Second,
		JWTTTL:              12 * time.Hour,
		AdminBootstrapEmail: "admin@civicsense.ai",
		RedisChannel:        "complaint-events",
		SweepSchedule:       "0 */5 * * * *",
		SweepAfter:          10 * time.Minute,
	}
}

// Load reads .env (if present), then the YAML file named by CONFIG_FILE,
// then environment variables. Later sources win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("PORT", &c.Port)
	str("APP_MODE", &c.Mode)
	if v, ok := lookup("CORS_ORIGINS"); ok && strings.TrimSpace(v) != "" {
		c.CORSOrigins = splitList(v)
	}
	str("STORE_DRIVER", &c.StoreDriver)
	str("DATABASE_DSN", &c.DatabaseDSN)
	str("GOOGLE_APPLICATION_CREDENTIALS", &c.FirebaseCredentials)
	str("FIREBASE_PROJECT_ID", &c.FirebaseProjectID)
	str("FIREBASE_STORAGE_BUCKET", &c.StorageBucket)
	str("NOTIFY_TOPIC", &c.NotifyTopic)
	str("GEMINI_API_KEY", &c.GeminiAPIKey)
	str("GEMINI_MODEL", &c.GeminiModel)
	str("GEMINI_BASE_URL", &c.GeminiBaseURL)
	str("JWT_SECRET_KEY", &c.JWTSecret)
	str("ADMIN_BOOTSTRAP_EMAIL", &c.AdminBootstrapEmail)
	str("ADMIN_BOOTSTRAP_PASSWORD", &c.AdminBootstrapPassword)
	str("REDIS_ADDR", &c.RedisAddr)
	str("REDIS_CHANNEL", &c.RedisChannel)
	str("SWEEP_SCHEDULE", &c.SweepSchedule)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &c.OTelEndpoint)

	for key, dst := range map[string]*time.Duration{
		"ANALYSIS_TIMEOUT": &c.AnalysisTimeout,
		"JWT_TTL":          &c.JWTTTL,
		"SWEEP_AFTER":      &c.SweepAfter,
	} {
		if err := dur(key, dst); err != nil {
			return err
		}
	}

	if v, ok := lookup("OTEL_ENABLED"); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid OTEL_ENABLED: %w", err)
		}
		c.OTelEnabled = b
	}
	c.StoreDriver = strings.ToLower(c.StoreDriver)
	return nil
}

// Validate checks the settings the HTTP server cannot run without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	return c.ValidateStore()
}

// ValidateStore checks only what opening the store and analyzer needs.
func (c *Config) ValidateStore() error {
	switch c.StoreDriver {
	case "firestore":
	case "mysql", "postgres", "sqlite":
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_DSN is required for store driver %q", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.AnalysisTimeout <= 0 {
		return fmt.Errorf("ANALYSIS_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	m := strings.ToLower(c.Mode)
	return m == "prod" || m == "production" || m == "release"
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
