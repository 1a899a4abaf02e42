package config

import (
	"fmt"
	"strconv"
	"strings"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from E2E_* variables found through lookup.
// List values are comma separated; empty items are dropped.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			return nil
		}
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = parsed
		return nil
	}
	integer := func(key string, dst *int) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			return nil
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = parsed
		return nil
	}

	str("BROWSER", &c.Browser)
	str("APPLICATION_NAME", &c.ApplicationName)
	str("ENVIRONMENT", &c.Environment)
	str("TEST_DATA_PATH", &c.TestDataPath)
	str("REPORTS_DIR", &c.ReportsDir)
	str("SCREENSHOTS_DIR", &c.ScreenshotsDir)
	str("DRIVERS_DIR", &c.DriversDir)
	str("LOG_DIR", &c.LogDir)
	str("LOG_LEVEL", &c.LogLevel)
	str("PROMETHEUS_FILE", &c.PrometheusFile)

	for key, dst := range map[string]*bool{
		"HEADLESS":              &c.Headless,
		"SCREENSHOT_ON_FAILURE": &c.ScreenshotOnFailure,
		"ISOLATE_SESSIONS":      &c.IsolateSessions,
	} {
		if err := boolean(key, dst); err != nil {
			return err
		}
	}

	for key, dst := range map[string]*int{
		"TIMEOUT_SECONDS": &c.TimeoutSeconds,
		"WORKERS":         &c.Workers,
	} {
		if err := integer(key, dst); err != nil {
			return err
		}
	}

	if v, ok := lookup(EnvPrefix + "ENGINE_EXTRA_ARGUMENTS"); ok {
		c.EngineExtraArguments = splitList(v)
	}

	return nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
