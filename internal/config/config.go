// Package config loads runtime settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Driver names accepted in DB_DRIVER.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	DBDriver string
	DBDSN    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CacheTTL        time.Duration
	CacheMaxEntries int

	MatchThreshold   float64
	LearnedThreshold float64
	Parallelism      int

	RulesPath     string
	TemplatesPath string

	LogLevel       string
	LogDevelopment bool

	OpenAIAPIKey string
	OpenAIModel  string
	EnhanceRPS   float64
}

// Load reads the given .env files (".env" when none are named; a missing
// file is not an error) and then the environment.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(files...); err != nil {
		return Config{}, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := Config{
		DBDriver: strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		DBDSN:    getEnv("DB_DSN", filepath.Join("data", "field-mapper.db")),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		CacheTTL:        time.Duration(getEnvInt("CACHE_TTL_SEC", 300)) * time.Second,
		CacheMaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 1000),

		MatchThreshold:   getEnvFloat("MATCH_THRESHOLD", 0.7),
		LearnedThreshold: getEnvFloat("LEARNED_THRESHOLD", 0.9),
		Parallelism:      getEnvInt("PARALLELISM", 0),

		RulesPath:     getEnv("RULES_PATH", ""),
		TemplatesPath: getEnv("TEMPLATES_PATH", filepath.Join("configs", "templates.yaml")),

		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogDevelopment: getEnvBool("LOG_DEVELOPMENT", false),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", ""),
		EnhanceRPS:   getEnvFloat("ENHANCE_RPS", 3),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error

	switch c.DBDriver {
	case DriverMemory, DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER: unsupported driver %q", c.DBDriver))
	}

	if c.MatchThreshold < 0 || c.MatchThreshold > 1 {
		errs = append(errs, fmt.Errorf("MATCH_THRESHOLD: %v is outside [0, 1]", c.MatchThreshold))
	}

	if c.LearnedThreshold < 0 || c.LearnedThreshold > 1 {
		errs = append(errs, fmt.Errorf("LEARNED_THRESHOLD: %v is outside [0, 1]", c.LearnedThreshold))
	}

	if c.CacheTTL < 0 {
		errs = append(errs, errors.New("CACHE_TTL_SEC must not be negative"))
	}

	return errors.Join(errs...)
}

// EnhancementEnabled reports whether an OpenAI key is configured.
func (c Config) EnhancementEnabled() bool {
	return strings.TrimSpace(c.OpenAIAPIKey) != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}

	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}

	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(getEnv(key, ""))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
