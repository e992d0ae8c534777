package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"hearingcap/internal/config"
	"hearingcap/internal/hearing"
	"hearingcap/internal/logging"
	"hearingcap/internal/pipeline"
)

type commandContext struct {
	configPath string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	// pipelineOpts and preflight are overridden by tests.
	pipelineOpts []pipeline.Option
	preflight    func() error
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.configPath))
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// logger returns a stderr-only logger so command output on stdout stays clean.
func (c *commandContext) logger() *slog.Logger {
	cfg, err := c.ensureConfig()
	if err != nil {
		return logging.NewNop()
	}
	logger, err := logging.NewFromConfig(cfg, false)
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func (c *commandContext) buildPipeline() (*pipeline.Pipeline, *slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := c.logger()
	p, err := pipeline.Build(cfg, logger, c.pipelineOpts...)
	if err != nil {
		return nil, nil, err
	}
	return p, logger, nil
}

func (c *commandContext) withStore(fn func(*hearing.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	store, err := hearing.Open(cfg)
	if err != nil {
		return fmt.Errorf("open hearing store: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func (c *commandContext) withLifecycle(fn func(*hearing.Store, *hearing.Lifecycle) error) error {
	return c.withStore(func(store *hearing.Store) error {
		lifecycle, err := hearing.LifecycleFromConfig(c.config, store, c.logger())
		if err != nil {
			return err
		}
		return fn(store, lifecycle)
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
