package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete repolens configuration
type Config struct {
	Version int    `json:"version" mapstructure:"version"`
	DataDir string `json:"dataDir" mapstructure:"dataDir"`

	Analysis AnalysisConfig `json:"analysis" mapstructure:"analysis"`
	Batch    BatchConfig    `json:"batch" mapstructure:"batch"`
	Cache    CacheConfig    `json:"cache" mapstructure:"cache"`
	Insights InsightsConfig `json:"insights" mapstructure:"insights"`
	Server   ServerConfig   `json:"server" mapstructure:"server"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
}

// AnalysisConfig contains single-repository analyzer settings
type AnalysisConfig struct {
	MaxFileSizeBytes int      `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
	IncludeHidden    bool     `json:"includeHidden" mapstructure:"includeHidden"`
	IgnoreDirs       []string `json:"ignoreDirs" mapstructure:"ignoreDirs"`
}

// BatchConfig contains batch orchestration settings
type BatchConfig struct {
	DefaultConcurrency int `json:"defaultConcurrency" mapstructure:"defaultConcurrency"`
	MaxConcurrency     int `json:"maxConcurrency" mapstructure:"maxConcurrency"`
}

// CacheConfig contains cache TTL settings
type CacheConfig struct {
	AnalysisTtlSeconds int `json:"analysisTtlSeconds" mapstructure:"analysisTtlSeconds"`
	BatchTtlSeconds    int `json:"batchTtlSeconds" mapstructure:"batchTtlSeconds"`
}

// InsightsConfig contains the framework sets used for integration detection.
// These default to the fixed sets the combined-insights computer was designed
// around but can be extended per deployment.
type InsightsConfig struct {
	FrontendFrameworks []string `json:"frontendFrameworks" mapstructure:"frontendFrameworks"`
	BackendFrameworks  []string `json:"backendFrameworks" mapstructure:"backendFrameworks"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port int `json:"port" mapstructure:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		DataDir: ".repolens",
		Analysis: AnalysisConfig{
			MaxFileSizeBytes: 1000000,
			IncludeHidden:    false,
			IgnoreDirs: []string{
				"node_modules", ".git", "vendor", "dist", "build",
				"target", "__pycache__", ".venv",
			},
		},
		Batch: BatchConfig{
			DefaultConcurrency: 3,
			MaxConcurrency:     16,
		},
		Cache: CacheConfig{
			AnalysisTtlSeconds: 3600,
			BatchTtlSeconds:    3600,
		},
		Insights: InsightsConfig{
			FrontendFrameworks: []string{"react", "vue", "angular", "svelte"},
			BackendFrameworks:  []string{"express", "nest", "django", "flask", "spring"},
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from <dataDir>/config.json, falling back to
// defaults when no config file exists. Environment variables prefixed with
// REPOLENS_ override file values.
func LoadConfig(dataDir string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("version", defaults.Version)
	v.SetDefault("dataDir", dataDir)
	v.SetDefault("analysis.maxFileSizeBytes", defaults.Analysis.MaxFileSizeBytes)
	v.SetDefault("analysis.includeHidden", defaults.Analysis.IncludeHidden)
	v.SetDefault("analysis.ignoreDirs", defaults.Analysis.IgnoreDirs)
	v.SetDefault("batch.defaultConcurrency", defaults.Batch.DefaultConcurrency)
	v.SetDefault("batch.maxConcurrency", defaults.Batch.MaxConcurrency)
	v.SetDefault("cache.analysisTtlSeconds", defaults.Cache.AnalysisTtlSeconds)
	v.SetDefault("cache.batchTtlSeconds", defaults.Cache.BatchTtlSeconds)
	v.SetDefault("insights.frontendFrameworks", defaults.Insights.FrontendFrameworks)
	v.SetDefault("insights.backendFrameworks", defaults.Insights.BackendFrameworks)
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.level", defaults.Logging.Level)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(dataDir)
	v.SetEnvPrefix("REPOLENS")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// No config file: defaults plus env overrides.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to <dataDir>/config.json
func (c *Config) Save(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dataDir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Batch.DefaultConcurrency < 1 {
		return fmt.Errorf("batch.defaultConcurrency must be >= 1, got %d", c.Batch.DefaultConcurrency)
	}
	if c.Batch.MaxConcurrency < c.Batch.DefaultConcurrency {
		return fmt.Errorf("batch.maxConcurrency (%d) must be >= batch.defaultConcurrency (%d)",
			c.Batch.MaxConcurrency, c.Batch.DefaultConcurrency)
	}
	if c.Analysis.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("analysis.maxFileSizeBytes must be positive, got %d", c.Analysis.MaxFileSizeBytes)
	}
	if c.Cache.AnalysisTtlSeconds < 0 || c.Cache.BatchTtlSeconds < 0 {
		return fmt.Errorf("cache TTLs must not be negative")
	}
	return nil
}
