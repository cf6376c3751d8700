// Package config loads service settings from the environment (and an optional .env).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/ZanzyTHEbar/idea-forge/internal/errors"
	"github.com/ZanzyTHEbar/idea-forge/internal/storage"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime settings
type Config struct {
	Port            string
	GinMode         string
	LogLevel        string
	CORSOrigins     []string
	IPLimitPerMin   int
	JWTSecret       string
	TrustUserHeader bool
	AdminToken      string
	Profiling       bool

	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	OpenAITemperature float32
	OpenAIMaxTokens   int
	OpenAITimeout     time.Duration

	GenerationLimit  int
	GenerationWindow time.Duration
	CompletionLimit  int
	CompletionWindow time.Duration

	StoreDriver   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DataDir       string

	AggregateCacheTTL time.Duration
}

var defaults = map[string]any{
	"PORT":                "8080",
	"GIN_MODE":            "release",
	"LOG_LEVEL":           "info",
	"CORS_ORIGINS":        "http://localhost:5173,http://localhost:3000",
	"IP_LIMIT_PER_MIN":    60,
	"OPENAI_MODEL":        "gpt-4o-mini",
	"OPENAI_TEMPERATURE":  0.7,
	"OPENAI_MAX_TOKENS":   1500,
	"OPENAI_TIMEOUT":      "60s",
	"GENERATION_LIMIT":    10,
	"GENERATION_WINDOW":   "24h",
	"COMPLETION_LIMIT":    5,
	"COMPLETION_WINDOW":   "5m",
	"STORE_DRIVER":        storage.DriverMemory,
	"REDIS_DB":            0,
	"DATA_DIR":            "./data",
	"AGGREGATE_CACHE_TTL": "0s",
	"TRUST_USER_HEADER":   false,
}

// Load reads the given .env files, which must exist, and then the environment.
// With no arguments ./.env is loaded when present.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			return nil, apperrors.NewConfigurationError(fmt.Sprintf("failed to load %s", f), err)
		}
	}
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Port:            v.GetString("PORT"),
		GinMode:         v.GetString("GIN_MODE"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		CORSOrigins:     splitList(v.GetString("CORS_ORIGINS")),
		IPLimitPerMin:   v.GetInt("IP_LIMIT_PER_MIN"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		TrustUserHeader: v.GetBool("TRUST_USER_HEADER"),
		AdminToken:      v.GetString("ADMIN_TOKEN"),
		Profiling:       v.GetBool("ENABLE_PROFILING"),

		OpenAIAPIKey:      v.GetString("OPENAI_API_KEY"),
		OpenAIBaseURL:     v.GetString("OPENAI_BASE_URL"),
		OpenAIModel:       v.GetString("OPENAI_MODEL"),
		OpenAITemperature: float32(v.GetFloat64("OPENAI_TEMPERATURE")),
		OpenAIMaxTokens:   v.GetInt("OPENAI_MAX_TOKENS"),
		OpenAITimeout:     v.GetDuration("OPENAI_TIMEOUT"),

		GenerationLimit:  v.GetInt("GENERATION_LIMIT"),
		GenerationWindow: v.GetDuration("GENERATION_WINDOW"),
		CompletionLimit:  v.GetInt("COMPLETION_LIMIT"),
		CompletionWindow: v.GetDuration("COMPLETION_WINDOW"),

		StoreDriver:   strings.ToLower(v.GetString("STORE_DRIVER")),
		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),
		DataDir:       v.GetString("DATA_DIR"),

		AggregateCacheTTL: v.GetDuration("AGGREGATE_CACHE_TTL"),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error

	if c.OpenAIAPIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required"))
	}
	if c.OpenAITemperature < 0 || c.OpenAITemperature > 2 {
		errs = append(errs, fmt.Errorf("OPENAI_TEMPERATURE must be between 0 and 2, got %v", c.OpenAITemperature))
	}
	if c.OpenAIMaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("OPENAI_MAX_TOKENS must be positive, got %d", c.OpenAIMaxTokens))
	}
	if c.OpenAITimeout <= 0 {
		errs = append(errs, fmt.Errorf("OPENAI_TIMEOUT must be positive, got %s", c.OpenAITimeout))
	}
	if c.GenerationLimit <= 0 || c.GenerationWindow <= 0 {
		errs = append(errs, errors.New("GENERATION_LIMIT and GENERATION_WINDOW must be positive"))
	}
	if c.CompletionLimit <= 0 || c.CompletionWindow <= 0 {
		errs = append(errs, errors.New("COMPLETION_LIMIT and COMPLETION_WINDOW must be positive"))
	}
	if c.IPLimitPerMin <= 0 {
		errs = append(errs, fmt.Errorf("IP_LIMIT_PER_MIN must be positive, got %d", c.IPLimitPerMin))
	}

	switch c.StoreDriver {
	case storage.DriverMemory:
	case storage.DriverRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when STORE_DRIVER=redis"))
		}
	case storage.DriverSQLite:
		if c.DataDir == "" {
			errs = append(errs, errors.New("DATA_DIR is required when STORE_DRIVER=sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be memory, redis or sqlite, got %q", c.StoreDriver))
	}

	if len(errs) > 0 {
		return apperrors.NewConfigurationError("invalid configuration", errors.Join(errs...))
	}
	return nil
}
