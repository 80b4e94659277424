// Package config holds the service configuration: runtime settings from
// the environment, scoring profiles from a YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Ramsey-B/fern/pkg/blocking"
	"github.com/Ramsey-B/fern/pkg/models"
)

type Config struct {
	AppName    string
	Port       int
	LogLevel   string
	PrettyLogs bool

	HTTPServerWriteTimeout time.Duration
	HTTPServerReadTimeout  time.Duration
	HTTPServerIdleTimeout  time.Duration

	// Reference database (sqlite file with the account and contact corpora)
	DatabasePath string

	// Scoring profile file
	ScoringConfigPath string

	// Fitted-model cache directory; empty disables caching
	ModelCacheDir string

	TracingEnabled bool
}

// Load reads the runtime configuration from the environment. Defaults are
// usable for local development; only the database path has no default.
func Load() (*Config, error) {
	cfg := &Config{
		AppName:                envString("APP_NAME", "fern-api"),
		Port:                   envInt("PORT", 3004),
		LogLevel:               envString("LOG_LEVEL", "info"),
		PrettyLogs:             envBool("PRETTY_LOGS", false),
		HTTPServerWriteTimeout: envDuration("HTTP_SERVER_WRITE_TIMEOUT", 30*time.Second),
		HTTPServerReadTimeout:  envDuration("HTTP_SERVER_READ_TIMEOUT", 30*time.Second),
		HTTPServerIdleTimeout:  envDuration("HTTP_SERVER_IDLE_TIMEOUT", 10*time.Second),
		DatabasePath:           envString("DB_PATH", ""),
		ScoringConfigPath:      envString("SCORING_CONFIG_PATH", "scoring.yaml"),
		ModelCacheDir:          envString("MODEL_CACHE_DIR", ".fern-cache"),
		TracingEnabled:         envBool("TRACING_ENABLED", false),
	}

	if cfg.DatabasePath == "" {
		return nil, fmt.Errorf("configuration error: DB_PATH is required")
	}
	return cfg, nil
}

// ScoringFile is the YAML scoring profile. Account weights and the account
// threshold are mandatory; contact settings fall back to defaults.
type ScoringFile struct {
	Account PassProfile    `yaml:"account" validate:"required"`
	Contact ContactProfile `yaml:"contact"`

	Blocking struct {
		TopN          int     `yaml:"top_n"`
		MinSimilarity float64 `yaml:"min_similarity"`
	} `yaml:"blocking"`
}

type PassProfile struct {
	Weights      map[string]float64 `yaml:"weights"`
	Penalties    map[string]float64 `yaml:"penalties"`
	MinimumScore float64            `yaml:"minimum_final_score"`
}

// ContactProfile names its threshold minimum_contact_score, matching the
// configuration surface the report consumers already use.
type ContactProfile struct {
	Weights      map[string]float64 `yaml:"weights"`
	Penalties    map[string]float64 `yaml:"penalties"`
	MinimumScore float64            `yaml:"minimum_contact_score"`
}

// LoadScoring parses and validates a scoring profile. Invalid profiles are
// configuration errors and fail before any record is processed.
func LoadScoring(path string) (models.ScoringConfig, models.ScoringConfig, blocking.Config, error) {
	var zero models.ScoringConfig

	raw, err := os.ReadFile(path)
	if err != nil {
		return zero, zero, blocking.Config{}, fmt.Errorf("configuration error: failed to read scoring profile %s: %w", path, err)
	}

	var file ScoringFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return zero, zero, blocking.Config{}, fmt.Errorf("configuration error: failed to parse scoring profile %s: %w", path, err)
	}

	if err := validator.New().Struct(file); err != nil {
		return zero, zero, blocking.Config{}, fmt.Errorf("configuration error: invalid scoring profile %s: %w", path, err)
	}
	if len(file.Account.Weights) == 0 {
		return zero, zero, blocking.Config{}, fmt.Errorf("configuration error: scoring profile %s has no account weights", path)
	}
	if file.Account.MinimumScore <= 0 {
		return zero, zero, blocking.Config{}, fmt.Errorf("configuration error: scoring profile %s is missing account minimum_final_score", path)
	}
	for field, w := range file.Account.Weights {
		if w < 0 {
			return zero, zero, blocking.Config{}, fmt.Errorf("configuration error: account weight for %q is negative", field)
		}
	}

	account := models.ScoringConfig{
		Weights:   file.Account.Weights,
		Penalties: file.Account.Penalties,
		MinScore:  file.Account.MinimumScore,
	}
	contact := models.ScoringConfig{
		Weights:   file.Contact.Weights,
		Penalties: file.Contact.Penalties,
		MinScore:  file.Contact.MinimumScore,
	}
	if contact.MinScore <= 0 {
		contact.MinScore = models.DefaultContactMinScore
	}

	blockCfg := blocking.DefaultConfig()
	if file.Blocking.TopN > 0 {
		blockCfg.TopN = file.Blocking.TopN
	}
	if file.Blocking.MinSimilarity > 0 {
		blockCfg.MinSimilarity = file.Blocking.MinSimilarity
	}

	return account, contact, blockCfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
