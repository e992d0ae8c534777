package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir        string `toml:"data_dir"`
	LogDir         string `toml:"log_dir"`
	AudioDir       string `toml:"audio_dir"`
	CommitteesFile string `toml:"committees_file"`
}

// Store selects the hearing database backend.
type Store struct {
	Driver       string `toml:"driver"`
	DSN          string `toml:"dsn"`
	MaxOpenConns int    `toml:"max_open_conns"`
}

// Inspector contains headless browser settings for hearing page inspection.
type Inspector struct {
	TimeoutSeconds      int    `toml:"timeout_seconds"`
	SettleSeconds       int    `toml:"settle_seconds"`
	ChromePath          string `toml:"chrome_path"`
	Headless            bool   `toml:"headless"`
	UserAgent           string `toml:"user_agent"`
	HostIntervalSeconds int    `toml:"host_interval_seconds"`
}

// Converter contains transcoder settings.
type Converter struct {
	FFmpegBinary        string `toml:"ffmpeg_binary"`
	FFprobeBinary       string `toml:"ffprobe_binary"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
	ProbeTimeoutSeconds int    `toml:"probe_timeout_seconds"`
	Format              string `toml:"format"`
	Quality             string `toml:"quality"`
	SampleRate          int    `toml:"sample_rate"`
	Channels            int    `toml:"channels"`
}

// YouTube contains yt-dlp settings used to resolve and enrich YouTube streams.
type YouTube struct {
	YtdlpBinary           string `toml:"ytdlp_binary"`
	ResolveTimeoutSeconds int    `toml:"resolve_timeout_seconds"`
	EnrichMetadata        bool   `toml:"enrich_metadata"`
}

// Workflow contains configuration for daemon timing and concurrency.
type Workflow struct {
	Workers             int     `toml:"workers"`
	QueuePollInterval   int     `toml:"queue_poll_interval"`
	ErrorRetryInterval  int     `toml:"error_retry_interval"`
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
}

// Lifecycle holds the operator-configurable stage to status projection.
type Lifecycle struct {
	StatusMapping map[string]string `toml:"status_mapping"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for hearingcap.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and audio directories plus the committee table
//   - Store: sqlite or postgres hearing database
//   - Inspector: headless browser page inspection
//   - Converter: ffmpeg/ffprobe transcoding
//   - YouTube: yt-dlp resolution and metadata enrichment
//   - Workflow: worker count, polling, and the sync confidence gate
//   - Lifecycle: stage to status mapping
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Store     Store     `toml:"store"`
	Inspector Inspector `toml:"inspector"`
	Converter Converter `toml:"converter"`
	YouTube   YouTube   `toml:"youtube"`
	Workflow  Workflow  `toml:"workflow"`
	Lifecycle Lifecycle `toml:"lifecycle"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/hearingcap/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("hearingcap.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.AudioDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "hearings.db")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "hearingcap.lock")
}

// InspectorTimeout returns the hard wall-clock limit for one page inspection.
func (c *Config) InspectorTimeout() time.Duration {
	return time.Duration(c.Inspector.TimeoutSeconds) * time.Second
}

// ConverterTimeout returns the hard subprocess limit for one conversion.
func (c *Config) ConverterTimeout() time.Duration {
	return time.Duration(c.Converter.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
