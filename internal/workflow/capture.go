package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"hearingcap/internal/committee"
	"hearingcap/internal/convert"
	"hearingcap/internal/extract"
	"hearingcap/internal/hearing"
	"hearingcap/internal/logging"
	"hearingcap/internal/orchestrator"
	"hearingcap/internal/services"
)

// StreamSource runs extraction with fallback.
type StreamSource interface {
	ExtractStreams(ctx context.Context, rawURL, preferred string) (orchestrator.Result, error)
}

// AudioConverter transcodes one stream candidate.
type AudioConverter interface {
	Convert(ctx context.Context, stream extract.StreamDescriptor, outputPath string, req convert.Request) convert.ConversionResult
}

// CaptureHandler moves analyzed hearings to captured by producing an audio
// artifact under audioDir.
type CaptureHandler struct {
	source    StreamSource
	converter AudioConverter
	audioDir  string
	format    string
	logger    *slog.Logger
}

// NewCaptureHandler builds the capture stage.
func NewCaptureHandler(source StreamSource, converter AudioConverter, audioDir, format string, logger *slog.Logger) *CaptureHandler {
	if format == "" {
		format = convert.FormatWAV
	}
	return &CaptureHandler{
		source:    source,
		converter: converter,
		audioDir:  audioDir,
		format:    format,
		logger:    logging.NewComponentLogger(logger, "capture"),
	}
}

func (c *CaptureHandler) Name() string         { return "capture" }
func (c *CaptureHandler) Stage() hearing.Stage { return hearing.StageAnalyzed }

// OutputPath returns where the audio for h is written. Rows that would
// resolve outside audioDir are rejected.
func (c *CaptureHandler) OutputPath(h *hearing.Hearing) (string, error) {
	if !committee.ValidCode(h.CommitteeCode) {
		return "", services.Wrap(services.ErrValidation, "capture", "output path",
			fmt.Sprintf("hearing %d has invalid committee code %q", h.ID, h.CommitteeCode), nil)
	}
	if _, err := time.Parse(hearing.DateLayout, h.Date); err != nil {
		return "", services.Wrap(services.ErrValidation, "capture", "output path",
			fmt.Sprintf("hearing %d has invalid date %q", h.ID, h.Date), err)
	}
	root := filepath.Clean(c.audioDir)
	path := filepath.Join(root, h.CommitteeCode, fmt.Sprintf("%s-%d.%s", h.Date, h.ID, c.format))
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", services.Wrap(services.ErrValidation, "capture", "output path",
			fmt.Sprintf("hearing %d output escapes audio_dir", h.ID), err)
	}
	return path, nil
}

// Execute tries each stream URL (senate first, then youtube, then the rest)
// and each extracted candidate in order until one converts.
func (c *CaptureHandler) Execute(ctx context.Context, h *hearing.Hearing) (Outcome, error) {
	logger := logging.WithContext(ctx, c.logger)
	output, err := c.OutputPath(h)
	if err != nil {
		return Outcome{}, err
	}

	var lastErr error
	for _, key := range captureOrder(h.Streams) {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		pageURL := h.Streams[key]
		result, err := c.source.ExtractStreams(ctx, pageURL, preferredExtractor(key))
		if err != nil {
			lastErr = err
			continue
		}
		for _, candidate := range result.Streams {
			if err := ctx.Err(); err != nil {
				return Outcome{}, err
			}
			conversion := c.converter.Convert(ctx, candidate, output, convert.Request{})
			if !conversion.Success {
				lastErr = conversion.Err
				if lastErr == nil {
					lastErr = errors.New(conversion.ErrorMessage)
				}
				continue
			}
			if conversion.Metadata == nil {
				conversion.Metadata = map[string]string{}
			}
			conversion.Metadata["hearing_id"] = fmt.Sprint(h.ID)
			conversion.Metadata["extractor"] = result.Extractor
			conversion.Metadata["page_url"] = pageURL
			if err := convert.WriteSidecar(conversion); err != nil {
				logger.Warn("sidecar write failed", logging.Error(err),
					logging.String(logging.FieldEventType, "sidecar_failed"),
					logging.String(logging.FieldImpact, "audio kept without result metadata"))
			}
			logger.Info("hearing captured",
				logging.String(logging.FieldEventType, "capture_completed"),
				logging.String(logging.FieldExtractor, result.Extractor),
				logging.String("output", conversion.OutputPath),
				logging.Int64("bytes", conversion.FileSizeBytes),
			)
			return Outcome{}, nil
		}
	}
	if lastErr == nil {
		lastErr = services.Wrap(services.ErrNoStreamsFound, "capture", "execute",
			fmt.Sprintf("hearing %d has no stream urls", h.ID), nil)
	}
	return Outcome{}, lastErr
}

func (c *CaptureHandler) HealthCheck(context.Context) Health {
	switch {
	case c.source == nil:
		return Unhealthy(c.Name(), "extraction not configured")
	case c.converter == nil:
		return Unhealthy(c.Name(), "converter not configured")
	case strings.TrimSpace(c.audioDir) == "":
		return Unhealthy(c.Name(), "audio_dir not configured")
	}
	return Healthy(c.Name())
}

func captureOrder(streams map[string]string) []string {
	keys := make([]string, 0, len(streams))
	for key := range streams {
		keys = append(keys, key)
	}
	rank := func(key string) int {
		switch preferredExtractor(key) {
		case "isvp":
			return 0
		case "youtube":
			return 1
		default:
			return 2
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if ri, rj := rank(keys[i]), rank(keys[j]); ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
	return keys
}
