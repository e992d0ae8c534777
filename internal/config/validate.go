package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateTimeouts(); err != nil {
		return err
	}
	if err := c.validateConverter(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case "sqlite":
		return nil
	case "postgres":
		if strings.TrimSpace(c.Store.DSN) == "" {
			return fmt.Errorf("store.dsn must be set when store.driver is postgres (or set %s)", databaseURLEnv)
		}
		return nil
	default:
		return fmt.Errorf("store.driver: unsupported value %q (want sqlite or postgres)", c.Store.Driver)
	}
}

func (c *Config) validateTimeouts() error {
	return ensurePositiveMap(map[string]int{
		"inspector.timeout_seconds":       c.Inspector.TimeoutSeconds,
		"converter.timeout_seconds":       c.Converter.TimeoutSeconds,
		"converter.probe_timeout_seconds": c.Converter.ProbeTimeoutSeconds,
		"youtube.resolve_timeout_seconds": c.YouTube.ResolveTimeoutSeconds,
		"workflow.queue_poll_interval":    c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval":   c.Workflow.ErrorRetryInterval,
		"workflow.workers":                c.Workflow.Workers,
	})
}

func (c *Config) validateConverter() error {
	switch c.Converter.Format {
	case "wav", "mp3", "flac":
	default:
		return fmt.Errorf("converter.format: unsupported value %q (want wav, mp3, or flac)", c.Converter.Format)
	}
	switch c.Converter.Quality {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("converter.quality: unsupported value %q (want low, medium, or high)", c.Converter.Quality)
	}
	if c.Converter.SampleRate < 0 {
		return errors.New("converter.sample_rate must be >= 0")
	}
	if c.Converter.Channels < 0 {
		return errors.New("converter.channels must be >= 0")
	}
	if c.Inspector.SettleSeconds < 0 {
		return errors.New("inspector.settle_seconds must be >= 0")
	}
	if c.Inspector.SettleSeconds >= c.Inspector.TimeoutSeconds {
		return errors.New("inspector.settle_seconds must be less than inspector.timeout_seconds")
	}
	if c.Inspector.HostIntervalSeconds < 0 {
		return errors.New("inspector.host_interval_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if t := c.Workflow.ConfidenceThreshold; math.IsNaN(t) || t < 0 || t > 1 {
		return errors.New("workflow.confidence_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	switch c.Logging.Format {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
