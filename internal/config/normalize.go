package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStore()
	c.normalizeInspector()
	c.normalizeConverter()
	c.normalizeYouTube()
	c.normalizeLifecycle()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.AudioDir) == "" {
		c.Paths.AudioDir = defaultAudioDir
	}
	if c.Paths.AudioDir, err = expandPath(c.Paths.AudioDir); err != nil {
		return fmt.Errorf("paths.audio_dir: %w", err)
	}
	c.Paths.CommitteesFile = strings.TrimSpace(c.Paths.CommitteesFile)
	if c.Paths.CommitteesFile != "" {
		if c.Paths.CommitteesFile, err = expandPath(c.Paths.CommitteesFile); err != nil {
			return fmt.Errorf("paths.committees_file: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeStore() {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" {
		c.Store.Driver = defaultStoreDriver
	}
	c.Store.DSN = strings.TrimSpace(c.Store.DSN)
	if c.Store.DSN == "" {
		if value, ok := os.LookupEnv(databaseURLEnv); ok {
			c.Store.DSN = strings.TrimSpace(value)
		}
	}
	if c.Store.MaxOpenConns <= 0 {
		if c.Store.Driver == "postgres" {
			c.Store.MaxOpenConns = defaultPostgresMaxOpenConns
		} else {
			c.Store.MaxOpenConns = defaultSQLiteMaxOpenConns
		}
	}
}

func (c *Config) normalizeInspector() {
	c.Inspector.ChromePath = strings.TrimSpace(c.Inspector.ChromePath)
	c.Inspector.UserAgent = strings.TrimSpace(c.Inspector.UserAgent)
	if c.Inspector.UserAgent == "" {
		c.Inspector.UserAgent = defaultUserAgent
	}
	if c.Inspector.TimeoutSeconds == 0 {
		c.Inspector.TimeoutSeconds = defaultInspectorTimeout
	}
}

func (c *Config) normalizeConverter() {
	c.Converter.FFmpegBinary = strings.TrimSpace(c.Converter.FFmpegBinary)
	if c.Converter.FFmpegBinary == "" {
		c.Converter.FFmpegBinary = defaultFFmpegBinary
	}
	c.Converter.FFprobeBinary = strings.TrimSpace(c.Converter.FFprobeBinary)
	if c.Converter.FFprobeBinary == "" {
		c.Converter.FFprobeBinary = defaultFFprobeBinary
	}
	c.Converter.Format = strings.ToLower(strings.TrimSpace(c.Converter.Format))
	if c.Converter.Format == "" {
		c.Converter.Format = defaultAudioFormat
	}
	c.Converter.Quality = strings.ToLower(strings.TrimSpace(c.Converter.Quality))
	if c.Converter.Quality == "" {
		c.Converter.Quality = defaultAudioQuality
	}
	if c.Converter.TimeoutSeconds == 0 {
		c.Converter.TimeoutSeconds = defaultConverterTimeout
	}
	if c.Converter.ProbeTimeoutSeconds == 0 {
		c.Converter.ProbeTimeoutSeconds = defaultProbeTimeout
	}
}

func (c *Config) normalizeYouTube() {
	c.YouTube.YtdlpBinary = strings.TrimSpace(c.YouTube.YtdlpBinary)
	if c.YouTube.YtdlpBinary == "" {
		c.YouTube.YtdlpBinary = defaultYtdlpBinary
	}
	if c.YouTube.ResolveTimeoutSeconds == 0 {
		c.YouTube.ResolveTimeoutSeconds = defaultYtdlpResolveTimeout
	}
}

func (c *Config) normalizeLifecycle() {
	if len(c.Lifecycle.StatusMapping) == 0 {
		c.Lifecycle.StatusMapping = DefaultStatusMapping()
		return
	}
	normalized := make(map[string]string, len(c.Lifecycle.StatusMapping))
	for stage, status := range c.Lifecycle.StatusMapping {
		normalized[strings.ToLower(strings.TrimSpace(stage))] = strings.ToLower(strings.TrimSpace(status))
	}
	for stage, status := range DefaultStatusMapping() {
		if _, ok := normalized[stage]; !ok {
			normalized[stage] = status
		}
	}
	c.Lifecycle.StatusMapping = normalized
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
