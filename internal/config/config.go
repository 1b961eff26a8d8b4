package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"covermig/internal/domain"
)

// ProfileConfig is the per-run tuning snapshot. It is persisted inside the
// checkpoint so a resumed run keeps the parameters it started with.
type ProfileConfig struct {
	BatchSize      int    `json:"batchSize"`
	MaxTitleID     int64  `json:"maxId,omitempty"`
	RefFormat      int    `json:"refFormat,omitempty"`
	BaselineLocale string `json:"baselineLocale,omitempty"`
}

// Config is the full run configuration, loaded from the environment.
type Config struct {
	ProfileName string // migration profile to run
	RunID       string // checkpoint identity; defaults to the profile name

	SourceDir string // inventory export directory
	SourceURL string // paginated listing API base URL (alternative to SourceDir)

	TargetDriver string // sqlite | mysql | postgres | mongodb
	TargetDSN    string

	StateDir string // checkpoint files + run-history database

	Schedule string // optional cron expression for unattended re-runs
	Watch    bool   // re-run when the inventory directory changes

	Profile ProfileConfig
}

// Defaults.
const (
	DefaultBatchSize = 500
	DefaultStateDir  = ".covermig"
	DefaultLocale    = "en"
)

// ErrConfig marks a fatal configuration problem. The engine refuses to
// process any file when Load returns an error wrapping it.
var ErrConfig = errors.New("invalid configuration")

// Load reads configuration from the environment. envFile, when non-empty,
// is loaded first via godotenv; a missing env file is not an error so the
// same binary runs in containers where only real env vars exist.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: load %s: %v", ErrConfig, envFile, err)
		}
	}

	cfg := &Config{
		ProfileName:  getenv("COVERMIG_PROFILE", "covers"),
		SourceDir:    os.Getenv("COVERMIG_SOURCE_DIR"),
		SourceURL:    os.Getenv("COVERMIG_SOURCE_URL"),
		TargetDriver: getenv("COVERMIG_TARGET_DRIVER", "sqlite"),
		TargetDSN:    os.Getenv("COVERMIG_TARGET_DSN"),
		StateDir:     getenv("COVERMIG_STATE_DIR", DefaultStateDir),
		Schedule:     os.Getenv("COVERMIG_SCHEDULE"),
		Profile: ProfileConfig{
			BatchSize:      DefaultBatchSize,
			RefFormat:      domain.DefaultReferenceFormat,
			BaselineLocale: getenv("COVERMIG_BASELINE_LOCALE", DefaultLocale),
		},
	}
	cfg.RunID = getenv("COVERMIG_RUN_ID", cfg.ProfileName)

	if v := os.Getenv("COVERMIG_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: COVERMIG_BATCH_SIZE=%q must be a positive integer", ErrConfig, v)
		}
		cfg.Profile.BatchSize = n
	}
	if v := os.Getenv("COVERMIG_MAX_TITLE_ID"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: COVERMIG_MAX_TITLE_ID=%q must be a positive integer", ErrConfig, v)
		}
		cfg.Profile.MaxTitleID = n
	}
	if v := os.Getenv("COVERMIG_REF_FORMAT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: COVERMIG_REF_FORMAT=%q must be an integer", ErrConfig, v)
		}
		cfg.Profile.RefFormat = n
	}
	if v := os.Getenv("COVERMIG_WATCH"); v != "" {
		cfg.Watch = v == "1" || v == "true" || v == "yes"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SourceDir == "" && c.SourceURL == "" {
		return fmt.Errorf("%w: one of COVERMIG_SOURCE_DIR or COVERMIG_SOURCE_URL is required", ErrConfig)
	}
	if c.SourceDir != "" && c.SourceURL != "" {
		return fmt.Errorf("%w: COVERMIG_SOURCE_DIR and COVERMIG_SOURCE_URL are mutually exclusive", ErrConfig)
	}
	if c.TargetDSN == "" {
		return fmt.Errorf("%w: COVERMIG_TARGET_DSN is required", ErrConfig)
	}
	switch c.TargetDriver {
	case "sqlite", "mysql", "postgres", "mongodb":
	default:
		return fmt.Errorf("%w: unsupported target driver %q", ErrConfig, c.TargetDriver)
	}
	if c.Watch && c.SourceDir == "" {
		return fmt.Errorf("%w: COVERMIG_WATCH requires COVERMIG_SOURCE_DIR", ErrConfig)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
