package convert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"hearingcap/internal/config"
	"hearingcap/internal/extract"
	"hearingcap/internal/inspect"
	"hearingcap/internal/logging"
	"hearingcap/internal/services"
)

// Audio formats.
const (
	FormatWAV  = "wav"
	FormatMP3  = "mp3"
	FormatFLAC = "flac"
)

// hlsProtocolWhitelist lets ffmpeg follow HLS playlists across the protocols
// CDN manifests reference.
const hlsProtocolWhitelist = "file,http,https,tcp,tls,crypto"

var mp3Bitrates = map[string]string{
	"low":    "64k",
	"medium": "128k",
	"high":   "192k",
}

// ConversionResult reports one conversion attempt. DurationSeconds is nil
// when the output could not be probed; that does not affect Success.
type ConversionResult struct {
	Success         bool              `json:"success"`
	OutputPath      string            `json:"output_path"`
	DurationSeconds *float64          `json:"duration_seconds,omitempty"`
	FileSizeBytes   int64             `json:"file_size_bytes"`
	ErrorMessage    string            `json:"error_message,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`

	// Err carries the classified failure (services.ErrConversionTimeout or
	// services.ErrConversionFailed) for callers that need errors.Is.
	Err error `json:"-"`
}

// Request holds per-call overrides. Empty fields fall back to the converter
// settings; Format also falls back to the output extension first.
type Request struct {
	DurationLimit time.Duration
	Format        string
	Quality       string
}

// Settings configures a Converter.
type Settings struct {
	FFmpegBinary  string
	FFprobeBinary string
	Timeout       time.Duration
	ProbeTimeout  time.Duration
	Format        string
	Quality       string
	SampleRate    int
	Channels      int
}

// SettingsFromConfig maps the [converter] config section.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		FFmpegBinary:  cfg.Converter.FFmpegBinary,
		FFprobeBinary: cfg.Converter.FFprobeBinary,
		Timeout:       cfg.ConverterTimeout(),
		ProbeTimeout:  time.Duration(cfg.Converter.ProbeTimeoutSeconds) * time.Second,
		Format:        cfg.Converter.Format,
		Quality:       cfg.Converter.Quality,
		SampleRate:    cfg.Converter.SampleRate,
		Channels:      cfg.Converter.Channels,
	}
}

// Option configures the converter.
type Option func(*Converter)

// WithExecutor injects a custom ffmpeg executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Converter) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithProber injects a custom duration prober.
func WithProber(prober Prober) Option {
	return func(c *Converter) {
		if prober != nil {
			c.prober = prober
		}
	}
}

// WithResolver enables YouTube inputs.
func WithResolver(resolver Resolver) Option {
	return func(c *Converter) {
		c.resolver = resolver
	}
}

// WithLogger sets the converter logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) {
		c.logger = logging.NewComponentLogger(logger, "converter")
	}
}

// Converter wraps ffmpeg.
type Converter struct {
	settings Settings
	exec     Executor
	prober   Prober
	resolver Resolver
	logger   *slog.Logger
}

// New constructs a converter.
func New(settings Settings, opts ...Option) (*Converter, error) {
	settings.FFmpegBinary = strings.TrimSpace(settings.FFmpegBinary)
	if settings.FFmpegBinary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 1800 * time.Second
	}
	if settings.ProbeTimeout <= 0 {
		settings.ProbeTimeout = 30 * time.Second
	}
	if settings.Format == "" {
		settings.Format = FormatWAV
	}
	if settings.Quality == "" {
		settings.Quality = "medium"
	}
	c := &Converter{
		settings: settings,
		exec:     commandExecutor{},
		prober:   ffprobeProber{binary: settings.FFprobeBinary},
		logger:   logging.NewComponentLogger(nil, "converter"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Convert transcodes stream into outputPath. It never returns an error;
// failures are reported through the result.
func (c *Converter) Convert(ctx context.Context, stream extract.StreamDescriptor, outputPath string, req Request) ConversionResult {
	logger := logging.WithContext(ctx, c.logger).With(logging.String(logging.FieldURL, stream.URL))
	result := ConversionResult{OutputPath: outputPath, Metadata: map[string]string{"stream_url": stream.URL}}
	fail := func(marker error, message string, cause error) ConversionResult {
		result.Success = false
		result.Err = services.Wrap(marker, "converter", "convert", fmt.Sprintf("%s: %s", stream.URL, message), cause)
		result.ErrorMessage = result.Err.Error()
		removePartial(outputPath)
		logging.WarnWithContext(logger, "conversion failed", "conversion_failed",
			logging.String("output", outputPath),
			logging.String("error_kind", services.Kind(result.Err)),
			logging.Error(result.Err),
			logging.String(logging.FieldErrorHint, "retry the hearing later or check the stream url"),
			logging.String(logging.FieldImpact, "no audio artifact produced"),
		)
		return result
	}

	if err := stream.Validate(); err != nil {
		return fail(services.ErrConversionFailed, "invalid stream", err)
	}
	if strings.TrimSpace(outputPath) == "" {
		return fail(services.ErrConversionFailed, "output path required", nil)
	}
	format, err := c.resolveFormat(outputPath, req.Format)
	if err != nil {
		return fail(services.ErrConversionFailed, "unsupported format", err)
	}
	quality := strings.ToLower(strings.TrimSpace(req.Quality))
	if quality == "" {
		quality = c.settings.Quality
	}
	if _, ok := mp3Bitrates[quality]; !ok {
		return fail(services.ErrConversionFailed, fmt.Sprintf("unsupported quality %q", quality), nil)
	}
	result.Metadata["format"] = format
	if source := stream.Meta(extract.MetaSource); source != "" {
		result.Metadata["source"] = source
	}

	if err := ctx.Err(); err != nil {
		return fail(services.ErrConversionFailed, "canceled before start", err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fail(services.ErrConversionFailed, "create output directory", err)
	}

	input := stream.URL
	if stream.FormatType == extract.FormatYouTube {
		if c.resolver == nil {
			return fail(services.ErrConversionFailed, "youtube input needs yt-dlp", nil)
		}
		input, err = c.resolver.ResolveAudioURL(ctx, stream.URL)
		if err != nil {
			return fail(services.ErrConversionFailed, "resolve youtube audio", err)
		}
	}

	args := c.buildArgs(stream, input, outputPath, format, quality, req.DurationLimit)
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.settings.Timeout)
	defer cancel()

	tail := newTailBuffer(stderrTailLines)
	start := time.Now()
	logger.Info("conversion started",
		logging.String(logging.FieldEventType, "conversion_started"),
		logging.String("output", outputPath),
		logging.String("format", format),
	)
	runErr := c.exec.Run(runCtx, c.settings.FFmpegBinary, args, tail)
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fail(services.ErrConversionTimeout, fmt.Sprintf("ffmpeg exceeded %s", c.settings.Timeout), withStderr(runErr, tail))
	}
	if runErr != nil {
		return fail(services.ErrConversionFailed, "ffmpeg failed", withStderr(runErr, tail))
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return fail(services.ErrConversionFailed, "output missing after ffmpeg exit", err)
	}
	if info.Size() == 0 {
		return fail(services.ErrConversionFailed, "output is empty", withStderr(nil, tail))
	}

	result.Success = true
	result.FileSizeBytes = info.Size()
	probeCtx, cancelProbe := context.WithTimeout(context.WithoutCancel(ctx), c.settings.ProbeTimeout)
	defer cancelProbe()
	if probe, err := c.prober.Probe(probeCtx, outputPath); err != nil {
		logger.Debug("duration probe failed", logging.Error(err))
	} else if seconds, ok := probe.Duration(); ok {
		result.DurationSeconds = &seconds
	}

	logger.Info("conversion completed",
		logging.String(logging.FieldEventType, "conversion_completed"),
		logging.String("output", outputPath),
		logging.Int64("bytes", result.FileSizeBytes),
		logging.Duration("elapsed", time.Since(start)),
	)
	return result
}

func (c *Converter) resolveFormat(outputPath, requested string) (string, error) {
	if format := FormatFromPath(outputPath); format != "" {
		return format, nil
	}
	format := strings.ToLower(strings.TrimSpace(requested))
	if format == "" {
		format = c.settings.Format
	}
	if _, ok := codecArgs(format, "medium"); !ok {
		return "", fmt.Errorf("format %q", format)
	}
	return format, nil
}

func (c *Converter) buildArgs(stream extract.StreamDescriptor, input, outputPath, format, quality string, limit time.Duration) []string {
	args := []string{"-hide_banner", "-nostdin", "-y", "-loglevel", "error"}
	if ua := stream.Meta(extract.MetaUserAgent); ua != "" {
		args = append(args, "-user_agent", ua)
	}
	if referer := stream.Meta(extract.MetaReferer); referer != "" {
		args = append(args, "-headers", "Referer: "+referer+"\r\n")
	}
	if stream.FormatType == extract.FormatHLS || inspect.IsManifestURL(input) {
		args = append(args, "-protocol_whitelist", hlsProtocolWhitelist)
	}
	args = append(args, "-i", input)
	if limit > 0 {
		args = append(args, "-t", strconv.FormatFloat(limit.Seconds(), 'f', -1, 64))
	}
	args = append(args, "-vn")
	codec, _ := codecArgs(format, quality)
	args = append(args, codec...)
	if c.settings.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(c.settings.SampleRate))
	}
	if c.settings.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(c.settings.Channels))
	}
	args = append(args, "-f", format, outputPath)
	return args
}

func codecArgs(format, quality string) ([]string, bool) {
	switch format {
	case FormatWAV:
		return []string{"-c:a", "pcm_s16le"}, true
	case FormatMP3:
		bitrate, ok := mp3Bitrates[quality]
		if !ok {
			bitrate = mp3Bitrates["medium"]
		}
		return []string{"-c:a", "libmp3lame", "-b:a", bitrate}, true
	case FormatFLAC:
		return []string{"-c:a", "flac"}, true
	default:
		return nil, false
	}
}

// FormatFromPath returns the audio format named by the output extension, or "".
func FormatFromPath(path string) string {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case FormatWAV, FormatMP3, FormatFLAC:
		return ext
	default:
		return ""
	}
}

// SidecarPath returns the JSON sidecar location for an output file.
func SidecarPath(outputPath string) string {
	return outputPath + ".json"
}

// WriteSidecar stores the result next to its output file.
func WriteSidecar(result ConversionResult) error {
	if result.OutputPath == "" {
		return errors.New("write sidecar: result has no output path")
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}
	if err := os.WriteFile(SidecarPath(result.OutputPath), append(payload, '\n'), 0o644); err != nil {
		return fmt.Errorf("write sidecar: %w", err)
	}
	return nil
}

func withStderr(err error, tail *tailBuffer) error {
	detail := tail.String()
	switch {
	case err == nil && detail == "":
		return nil
	case err == nil:
		return errors.New(detail)
	case detail == "":
		return err
	default:
		return fmt.Errorf("%w: %s", err, detail)
	}
}

func removePartial(path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	_ = os.Remove(path)
}
