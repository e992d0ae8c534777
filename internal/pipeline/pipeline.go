// Package pipeline assembles the extraction and conversion components from
// configuration for the daemon and the CLI.
package pipeline

import (
	"fmt"
	"log/slog"

	"hearingcap/internal/committee"
	"hearingcap/internal/config"
	"hearingcap/internal/convert"
	"hearingcap/internal/extract"
	"hearingcap/internal/inspect"
	"hearingcap/internal/orchestrator"
	"hearingcap/internal/services/ytdlp"
	"hearingcap/internal/workflow"
)

// Pipeline holds the wired components. Registry is immutable after Build.
type Pipeline struct {
	Registry     *committee.Registry
	Inspector    inspect.Inspector
	Orchestrator *orchestrator.Orchestrator
	Converter    *convert.Converter
	YouTube      *ytdlp.Client
	audioDir     string
	format       string
}

// Option customizes Build.
type Option func(*buildOptions)

type buildOptions struct {
	inspector inspect.Inspector
	convOpts  []convert.Option
}

// WithInspector replaces the headless browser inspector.
func WithInspector(inspector inspect.Inspector) Option {
	return func(o *buildOptions) { o.inspector = inspector }
}

// WithConverterOptions passes extra options to the converter.
func WithConverterOptions(opts ...convert.Option) Option {
	return func(o *buildOptions) { o.convOpts = append(o.convOpts, opts...) }
}

// Build loads the committee table and constructs every component. Committee
// table errors are fatal.
func Build(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	var options buildOptions
	for _, opt := range opts {
		opt(&options)
	}

	registry, err := committee.Load(cfg.Paths.CommitteesFile)
	if err != nil {
		return nil, err
	}

	inspector := options.inspector
	if inspector == nil {
		inspector = inspect.NewChromeInspector(inspect.OptionsFromConfig(cfg), logger)
	}

	yt, err := ytdlp.New(cfg.YouTube.YtdlpBinary, cfg.YouTube.ResolveTimeoutSeconds)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp client: %w", err)
	}
	var fetcher extract.MetadataFetcher
	if cfg.YouTube.EnrichMetadata {
		fetcher = yt
	}

	orch := orchestrator.New(registry, logger,
		extract.NewISVPExtractor(inspector, registry, logger),
		extract.NewYouTubeExtractor(fetcher, logger),
	)

	convOpts := append([]convert.Option{convert.WithResolver(yt), convert.WithLogger(logger)}, options.convOpts...)
	converter, err := convert.New(convert.SettingsFromConfig(cfg), convOpts...)
	if err != nil {
		return nil, fmt.Errorf("converter: %w", err)
	}

	return &Pipeline{
		Registry:     registry,
		Inspector:    inspector,
		Orchestrator: orch,
		Converter:    converter,
		YouTube:      yt,
		audioDir:     cfg.Paths.AudioDir,
		format:       cfg.Converter.Format,
	}, nil
}

// Handlers returns the workflow stages the core runs, in stage order.
func (p *Pipeline) Handlers(logger *slog.Logger) []workflow.Handler {
	return []workflow.Handler{
		workflow.NewAnalyzeHandler(p.Orchestrator, logger),
		workflow.NewCaptureHandler(p.Orchestrator, p.Converter, p.audioDir, p.format, logger),
	}
}
