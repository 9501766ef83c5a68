package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type s3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type config struct {
	DatabaseURL     string        `yaml:"database_url"`
	StagingDir      string        `yaml:"staging_dir"`
	KeepStaged      bool          `yaml:"keep_staged"`
	S3              s3Config      `yaml:"s3"`
	BatchSize       int           `yaml:"load_batch_size"`
	PriorDayPeriods []int         `yaml:"prior_day_periods"`
	ReportDir       string        `yaml:"report_dir"`
	PushgatewayURL  string        `yaml:"pushgateway_url"`
	WebhookURL      string        `yaml:"notify_webhook_url"`
	WebhookSecret   string        `yaml:"notify_jwt_secret"`
	RunTimeout      time.Duration `yaml:"run_timeout"`
	DryRun          bool          `yaml:"dry_run"`
}

// loadConfig reads the environment, then overlays the YAML file named by
// ENERGY_CONFIG.
func loadConfig() (config, error) {
	priorDay, err := parsePeriods(getenvDefault("PRIOR_DAY_PERIODS", "1,2"))
	if err != nil {
		return config{}, err
	}
	cfg := config{
		DatabaseURL: getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		StagingDir:  getenvDefault("STAGING_DIR", ""),
		KeepStaged:  getenvBool("STAGING_KEEP", false),
		S3: s3Config{
			Endpoint:  getenvDefault("S3_ENDPOINT", "s3.amazonaws.com"),
			Bucket:    getenvDefault("S3_BUCKET", ""),
			Prefix:    getenvDefault("S3_PREFIX", ""),
			AccessKey: getenvDefault("AWS_ACCESS_KEY", ""),
			SecretKey: getenvDefault("AWS_SECRET_KEY", ""),
			Region:    getenvDefault("AWS_REGION", "eu-west-2"),
			UseSSL:    getenvBool("S3_USE_SSL", true),
		},
		BatchSize:       getenvIntDefault("LOAD_BATCH_SIZE", 1000),
		PriorDayPeriods: priorDay,
		ReportDir:       getenvDefault("REPORT_DIR", ""),
		PushgatewayURL:  getenvDefault("PUSHGATEWAY_URL", ""),
		WebhookURL:      getenvDefault("NOTIFY_WEBHOOK_URL", ""),
		WebhookSecret:   getenvDefault("NOTIFY_JWT_SECRET", ""),
		RunTimeout:      getenvDuration("RUN_TIMEOUT", 10*time.Minute),
		DryRun:          getenvBool("DRY_RUN", false),
	}

	if path := os.Getenv("ENERGY_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	return cfg, cfg.validate()
}

func (c config) validate() error {
	if c.DatabaseURL == "" && !c.DryRun {
		return errors.New("config: DATABASE_URL or PG_DSN is required")
	}
	if c.StagingDir == "" && c.S3.Bucket == "" {
		return errors.New("config: STAGING_DIR or S3_BUCKET is required")
	}
	if c.RunTimeout <= 0 {
		return errors.New("config: RUN_TIMEOUT must be positive")
	}
	for _, p := range c.PriorDayPeriods {
		if p < 1 || p > 48 {
			return fmt.Errorf("config: prior day period %d out of range", p)
		}
	}
	return nil
}

// obscure keeps the first and last three characters of a secret. Secrets of
// six characters or fewer keep only the first and last, three or fewer keep
// nothing.
func obscure(secret string) string {
	runes := []rune(secret)
	n := len(runes)
	switch {
	case n <= 3:
		return strings.Repeat("*", n)
	case n <= 6:
		return string(runes[0]) + strings.Repeat("*", n-2) + string(runes[n-1])
	default:
		return string(runes[:3]) + strings.Repeat("*", n-6) + string(runes[n-3:])
	}
}

func parsePeriods(value string) ([]int, error) {
	var out []int
	for _, part := range splitCSV(value) {
		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("config: PRIOR_DAY_PERIODS: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
