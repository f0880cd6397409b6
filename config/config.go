package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Coinhub   CoinhubConfig   `yaml:"coinhub"`
	Assets    []string        `yaml:"assets"`
	Collector CollectorConfig `yaml:"collector"`
	Source    SourceConfig    `yaml:"source"`
	Storage   StorageConfig   `yaml:"storage"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type CoinhubConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type CollectorConfig struct {
	CoarseIntervalSeconds int `yaml:"coarse_interval_seconds"`
	FineIntervalSeconds   int `yaml:"fine_interval_seconds"`
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
}

// CoarseInterval returns the coarse cadence sleep as a duration.
func (c CollectorConfig) CoarseInterval() time.Duration {
	return time.Duration(c.CoarseIntervalSeconds) * time.Second
}

// FineInterval returns the fine cadence sleep as a duration.
func (c CollectorConfig) FineInterval() time.Duration {
	return time.Duration(c.FineIntervalSeconds) * time.Second
}

// RequestTimeout bounds one upstream fetch.
func (c CollectorConfig) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

type SourceConfig struct {
	Binance BinanceSourceConfig `yaml:"binance"`
}

type BinanceSourceConfig struct {
	Quote             string `yaml:"quote"`
	Period            string `yaml:"period"`
	RequestsPerSecond int    `yaml:"requests_per_second"`
	Burst             int    `yaml:"burst"`
}

type StorageConfig struct {
	Root string   `yaml:"root"`
	S3   S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type DashboardConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Address         string `yaml:"address"`
	ChartPoints     int    `yaml:"chart_points"`
	DisplayTimezone string `yaml:"display_timezone"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Collector: CollectorConfig{
			CoarseIntervalSeconds: 1800,
			FineIntervalSeconds:   60,
			RequestTimeoutSeconds: 10,
		},
		Source: SourceConfig{
			Binance: BinanceSourceConfig{
				Quote:             "USDT",
				Period:            "1h",
				RequestsPerSecond: 5,
				Burst:             1,
			},
		},
		Dashboard: DashboardConfig{
			Enabled:         true,
			Address:         "0.0.0.0:10000",
			ChartPoints:     60,
			DisplayTimezone: "Asia/Bangkok",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}

	// The original deployment exposes the dashboard port via PORT.
	if v := os.Getenv("PORT"); v != "" {
		config.Dashboard.Address = "0.0.0.0:" + strings.TrimSpace(v)
	}

	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Coinhub.Name == "" {
		return fmt.Errorf("coinhub.name is required")
	}

	if cfg.Coinhub.Version == "" {
		return fmt.Errorf("coinhub.version is required")
	}

	if len(cfg.Assets) == 0 {
		return fmt.Errorf("assets must list at least one symbol")
	}
	seen := make(map[string]struct{}, len(cfg.Assets))
	for _, asset := range cfg.Assets {
		if strings.TrimSpace(asset) == "" {
			return fmt.Errorf("assets must not contain empty symbols")
		}
		if _, dup := seen[asset]; dup {
			return fmt.Errorf("assets contains duplicate symbol '%s'", asset)
		}
		seen[asset] = struct{}{}
	}

	if cfg.Collector.CoarseIntervalSeconds <= 0 {
		return fmt.Errorf("collector.coarse_interval_seconds must be greater than 0")
	}
	if cfg.Collector.FineIntervalSeconds <= 0 {
		return fmt.Errorf("collector.fine_interval_seconds must be greater than 0")
	}

	if cfg.Source.Binance.RequestsPerSecond <= 0 {
		return fmt.Errorf("source.binance.requests_per_second must be greater than 0")
	}

	if cfg.Storage.Root == "" {
		return fmt.Errorf("storage.root is required")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	if cfg.Dashboard.Enabled && cfg.Dashboard.ChartPoints < 3 {
		return fmt.Errorf("dashboard.chart_points must be at least 3")
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
