// Package config holds the settings of an e2ekit run.
//
// Settings are read from a YAML file whose keys match the field names below
// (Browser, Headless, TimeoutSeconds, ...) and may be overridden from the
// environment with E2E_<UPPER_SNAKE_KEY> variables, e.g. E2E_BROWSER=firefox.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for run settings
const (
	DefaultBrowser        = "chrome"
	DefaultTimeoutSeconds = 30
	DefaultTestDataPath   = "TestData"
	DefaultReportsDir     = "Reports"
	DefaultScreenshotsDir = "Screenshots"
	DefaultDriversDir     = "WebDrivers"
	DefaultLogDir         = "Logs"
	DefaultLogLevel       = "info"

	// EnvPrefix prefixes every environment override
	EnvPrefix = "E2E_"
)

// Config represents the configuration of one test run
type Config struct {
	// Browser engine name: chrome, firefox, edge or safari
	Browser string `yaml:"Browser" json:"browser"`

	// Headless runs the browser without a visible window
	Headless bool `yaml:"Headless" json:"headless"`

	// TimeoutSeconds bounds every wait and page load
	TimeoutSeconds int `yaml:"TimeoutSeconds" json:"timeout_seconds"`

	// ScreenshotOnFailure captures a screenshot when a scenario fails
	ScreenshotOnFailure bool `yaml:"ScreenshotOnFailure" json:"screenshot_on_failure"`

	// EngineExtraArguments are appended to the engine's launch arguments as-is
	EngineExtraArguments []string `yaml:"EngineExtraArguments,omitempty" json:"engine_extra_arguments"`

	// EnginePreferences are engine-specific preferences (Firefox user prefs)
	EnginePreferences map[string]any `yaml:"EnginePreferences,omitempty" json:"engine_preferences"`

	// Report system information
	ApplicationName string `yaml:"ApplicationName" json:"application_name"`
	Environment     string `yaml:"Environment" json:"environment"`

	// Filesystem layout
	TestDataPath   string `yaml:"TestDataPath" json:"test_data_path"`
	ReportsDir     string `yaml:"ReportsDir" json:"reports_dir"`
	ScreenshotsDir string `yaml:"ScreenshotsDir" json:"screenshots_dir"`
	DriversDir     string `yaml:"DriversDir" json:"drivers_dir"`
	LogDir         string `yaml:"LogDir" json:"log_dir"`

	// LogLevel: debug, info, warn or error
	LogLevel string `yaml:"LogLevel" json:"log_level"`

	// Workers > 1 runs scenarios on a pool, each worker with its own session
	Workers int `yaml:"Workers" json:"workers"`

	// IsolateSessions gives every scenario its own browser session
	IsolateSessions bool `yaml:"IsolateSessions" json:"isolate_sessions"`

	// PrometheusFile, when set, receives a textfile export of the run metrics
	PrometheusFile string `yaml:"PrometheusFile" json:"prometheus_file"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	return &Config{
		Browser:             DefaultBrowser,
		Headless:            false,
		TimeoutSeconds:      DefaultTimeoutSeconds,
		ScreenshotOnFailure: true,
		ApplicationName:     "Test Application",
		Environment:         "Test",
		TestDataPath:        DefaultTestDataPath,
		ReportsDir:          DefaultReportsDir,
		ScreenshotsDir:      DefaultScreenshotsDir,
		DriversDir:          DefaultDriversDir,
		LogDir:              DefaultLogDir,
		LogLevel:            DefaultLogLevel,
		Workers:             1,
	}
}

// Timeout returns TimeoutSeconds as a duration
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Browser) == "" {
		return fmt.Errorf("browser is required")
	}

	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive, got %d", c.TimeoutSeconds)
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}

	validLevels := map[string]bool{
		"debug":   true,
		"info":    true,
		"warn":    true,
		"warning": true,
		"error":   true,
	}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s (must be 'debug', 'info', 'warn', or 'error')", c.LogLevel)
	}

	for key, value := range c.EnginePreferences {
		switch value.(type) {
		case bool, int, int64, float64, string:
		default:
			return fmt.Errorf("engine preference %q has unsupported type %T", key, value)
		}
	}

	return nil
}

// Load reads the file at path (if non-empty) over the defaults, applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFile loads configuration from a YAML file
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// Marshal renders the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
