package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// DefaultBaseDir is the shared TEOTIL3 data directory on the JupyterHub.
const DefaultBaseDir = "/home/jovyan/shared/common/teotil3"

// Config holds all settings, populated from environment variables.
type Config struct {
	// TEOTIL3 data locations.
	BaseDir         string
	ScenarioDataDir string
	// ModelInputCSV is the baseline model input; "{year}" is replaced with
	// the run year.
	ModelInputCSV   string
	AgriTemplateDir string

	// Regine geometry and reference tables.
	DatabaseURL     string
	RegineShapefile string

	// Treatment-type vocabulary.
	TreatmentTypesURL     string
	TreatmentTypesTimeout time.Duration
	TreatmentTypesTTL     time.Duration
	RedisAddr             string

	// Run summaries; publishing is off when KafkaBrokers is empty.
	KafkaBrokers []string
	KafkaTopic   string

	// Dashboard.
	HTTPAddr            string
	DashboardSummaryCSV string
	DashboardInfoMD     string
	DashboardRateLimit  float64

	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	typesTimeout, err := parseDuration("TREATMENT_TYPES_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	typesTTL, err := parseDuration("TREATMENT_TYPES_TTL", "24h")
	if err != nil {
		return nil, err
	}
	rateLimit, err := parseRate("DASHBOARD_RATE_LIMIT", "20")
	if err != nil {
		return nil, err
	}

	scenDir := sharedcfg.EnvOrDefault("SCENARIO_DATA_DIR", filepath.Join("data", "scenarios"))
	cfg := &Config{
		BaseDir:         sharedcfg.EnvOrDefault("TEOTIL3_BASE_DIR", DefaultBaseDir),
		ScenarioDataDir: scenDir,
		ModelInputCSV: sharedcfg.EnvOrDefault("MODEL_INPUT_CSV",
			filepath.Join(scenDir, "oslomod_teotil3_input_data_baseline_{year}.csv")),
		AgriTemplateDir: sharedcfg.EnvOrDefault("AGRI_TEMPLATE_DIR", filepath.Join(scenDir, "agri")),

		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RegineShapefile: os.Getenv("REGINE_SHAPEFILE"),

		TreatmentTypesURL: sharedcfg.EnvOrDefault("TREATMENT_TYPES_URL",
			"https://raw.githubusercontent.com/NIVANorge/teotil3/refs/heads/main/data/point_source_treatment_types.csv"),
		TreatmentTypesTimeout: typesTimeout,
		TreatmentTypesTTL:     typesTTL,
		RedisAddr:             os.Getenv("REDIS_ADDR"),

		KafkaBrokers: sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "teotil3-scenario-runs"),

		HTTPAddr:            sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		DashboardSummaryCSV: sharedcfg.EnvOrDefault("DASHBOARD_SUMMARY_CSV", filepath.Join("data", "results_summary.csv")),
		DashboardInfoMD:     sharedcfg.EnvOrDefault("DASHBOARD_INFO_MD", filepath.Join("data", "scenario_info_nor.md")),
		DashboardRateLimit:  rateLimit,

		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	return cfg, nil
}

// ValidateRun checks the settings a scenario run needs beyond the defaults.
func (c *Config) ValidateRun() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.BaseDir == "" {
		return errors.New("TEOTIL3_BASE_DIR is required")
	}
	return nil
}

// PublishEnabled reports whether run summaries go to Kafka.
func (c *Config) PublishEnabled() bool { return len(c.KafkaBrokers) > 0 }

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseRate(key, fallback string) (float64, error) {
	v, err := strconv.ParseFloat(sharedcfg.EnvOrDefault(key, fallback), 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive number", key)
	}
	return v, nil
}
