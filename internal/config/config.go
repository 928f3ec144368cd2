package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	OpenAI         OpenAIConfig         `yaml:"openai"`
	Logging        LoggingConfig        `yaml:"logging"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	Metrics        MetricsConfig        `yaml:"metrics"`
}

type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        string   `yaml:"port"`
	CorsOrigins []string `yaml:"cors_origins"`
}

type OpenAIConfig struct {
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	Temperature       float64 `yaml:"temperature"`
	RequestTimeoutSec int     `yaml:"request_timeout"`
	ConnectTimeoutSec int     `yaml:"connect_timeout"`
}

// RequestTimeout returns the per-request deadline for upstream calls.
func (c OpenAIConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// ConnectTimeout returns the dial timeout for upstream connections.
func (c OpenAIConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSec) * time.Second
}

type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	ReportCaller bool   `yaml:"report_caller"`
	File         string `yaml:"file"`
	MaxSizeMB    int    `yaml:"max_size_mb"`
	MaxBackups   int    `yaml:"max_backups"`
	MaxAgeDays   int    `yaml:"max_age_days"`
}

type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold uint32        `yaml:"failure_threshold"`
	SuccessThreshold uint32        `yaml:"success_threshold"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxRequests      uint32        `yaml:"max_requests"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoadYAML loads configuration from YAML file with environment variable overrides
func LoadYAML(configPath string) (*Config, error) {
	// Opportunistically load a .env file so local runs behave like the deployed service
	if err := godotenv.Load(); err == nil {
		logrus.Info("Loaded environment variables from .env file")
	}

	// Set default config path if not provided
	if configPath == "" {
		configPath = "config.yaml"
	}

	config := getDefaultConfig()

	// Load YAML file if it exists
	if _, err := os.Stat(configPath); err == nil {
		yamlFile, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand environment variables in YAML content
		expandedYAML := os.ExpandEnv(string(yamlFile))

		if err := yaml.Unmarshal([]byte(expandedYAML), config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		logrus.WithField("config_file", configPath).Info("Loaded configuration from YAML file")
	} else {
		logrus.WithField("config_file", configPath).Debug("Config file not found, using defaults and environment variables")
	}

	// Apply environment variable overrides
	config = applyEnvironmentOverrides(config)

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// getDefaultConfig returns a configuration with sensible defaults
func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        "8080",
			CorsOrigins: []string{"*"},
		},
		OpenAI: OpenAIConfig{
			BaseURL:           "https://api.openai.com/v1",
			Model:             "gpt-4o-mini",
			Temperature:       0.7,
			RequestTimeoutSec: 30,
			ConnectTimeoutSec: 10,
		},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "auto",
			ReportCaller: false,
			MaxSizeMB:    50,
			MaxBackups:   3,
			MaxAgeDays:   28,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          60 * time.Second,
			MaxRequests:      3,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to config
func applyEnvironmentOverrides(config *Config) *Config {
	// Server overrides
	if val := os.Getenv("HOST"); val != "" {
		config.Server.Host = val
	}
	if val := os.Getenv("PORT"); val != "" {
		config.Server.Port = val
	}
	if val := os.Getenv("CORS_ORIGINS"); val != "" {
		config.Server.CorsOrigins = strings.Split(val, ",")
		for i := range config.Server.CorsOrigins {
			config.Server.CorsOrigins[i] = strings.TrimSpace(config.Server.CorsOrigins[i])
		}
	}

	// OpenAI overrides (names match the legacy Python deployment)
	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		config.OpenAI.APIKey = val
	}
	if val := os.Getenv("OPENAI_API_BASE"); val != "" {
		config.OpenAI.BaseURL = val
	}
	if val := os.Getenv("OPENAI_MODEL"); val != "" {
		config.OpenAI.Model = val
	}
	if val := os.Getenv("OPENAI_TEMPERATURE"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			config.OpenAI.Temperature = f
		}
	}
	if val := os.Getenv("REQUEST_TIMEOUT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			config.OpenAI.RequestTimeoutSec = i
		}
	}
	if val := os.Getenv("CONNECT_TIMEOUT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			config.OpenAI.ConnectTimeoutSec = i
		}
	}

	// Logging overrides
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		config.Logging.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		config.Logging.Format = val
	}
	if val := os.Getenv("LOG_REPORT_CALLER"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			config.Logging.ReportCaller = b
		}
	}
	if val := os.Getenv("LOG_FILE"); val != "" {
		config.Logging.File = val
	}

	// Circuit breaker overrides
	if val := os.Getenv("CIRCUIT_BREAKER_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			config.CircuitBreaker.Enabled = b
		}
	}
	if val := os.Getenv("CIRCUIT_BREAKER_FAILURE_THRESHOLD"); val != "" {
		if i, err := strconv.ParseUint(val, 10, 32); err == nil {
			config.CircuitBreaker.FailureThreshold = uint32(i)
		}
	}
	if val := os.Getenv("CIRCUIT_BREAKER_SUCCESS_THRESHOLD"); val != "" {
		if i, err := strconv.ParseUint(val, 10, 32); err == nil {
			config.CircuitBreaker.SuccessThreshold = uint32(i)
		}
	}
	if val := os.Getenv("CIRCUIT_BREAKER_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			config.CircuitBreaker.Timeout = d
		}
	}
	if val := os.Getenv("CIRCUIT_BREAKER_MAX_REQUESTS"); val != "" {
		if i, err := strconv.ParseUint(val, 10, 32); err == nil {
			config.CircuitBreaker.MaxRequests = uint32(i)
		}
	}

	// Metrics overrides
	if val := os.Getenv("METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			config.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("METRICS_PATH"); val != "" {
		config.Metrics.Path = val
	}

	return config
}

// validateConfig validates the configuration and returns errors for invalid values
func validateConfig(config *Config) error {
	var errors []string

	// Validate required fields
	if config.OpenAI.APIKey == "" {
		errors = append(errors, "OPENAI_API_KEY is required - set it in the environment or a .env file")
	}

	if config.OpenAI.BaseURL == "" {
		errors = append(errors, "OPENAI_API_BASE must not be empty")
	}

	if config.OpenAI.Model == "" {
		errors = append(errors, "OPENAI_MODEL must not be empty")
	}

	if config.OpenAI.Temperature < 0 || config.OpenAI.Temperature > 2 {
		errors = append(errors, fmt.Sprintf("OPENAI_TEMPERATURE must be between 0.0 and 2.0 (current: %.2f)", config.OpenAI.Temperature))
	}

	if config.OpenAI.RequestTimeoutSec <= 0 {
		errors = append(errors, fmt.Sprintf("REQUEST_TIMEOUT must be a positive number of seconds (current: %d)", config.OpenAI.RequestTimeoutSec))
	}

	if config.OpenAI.ConnectTimeoutSec <= 0 {
		errors = append(errors, fmt.Sprintf("CONNECT_TIMEOUT must be a positive number of seconds (current: %d)", config.OpenAI.ConnectTimeoutSec))
	}

	if config.Metrics.Enabled && !strings.HasPrefix(config.Metrics.Path, "/") {
		errors = append(errors, fmt.Sprintf("METRICS_PATH must start with '/' (current: %q)", config.Metrics.Path))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// Load loads configuration without an explicit config file path.
func Load() (*Config, error) {
	return LoadYAML("")
}
