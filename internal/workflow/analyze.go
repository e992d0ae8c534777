package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"hearingcap/internal/hearing"
	"hearingcap/internal/logging"
	"hearingcap/internal/orchestrator"
	"hearingcap/internal/services"
)

// Detector classifies a stream URL without I/O.
type Detector interface {
	DetectPlatform(rawURL string) orchestrator.Detection
}

// AnalyzeHandler moves discovered hearings to analyzed once each stream URL
// has a recognized platform.
type AnalyzeHandler struct {
	detector Detector
	logger   *slog.Logger
}

// NewAnalyzeHandler builds the analyze stage.
func NewAnalyzeHandler(detector Detector, logger *slog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{detector: detector, logger: logging.NewComponentLogger(logger, "analyze")}
}

func (a *AnalyzeHandler) Name() string         { return "analyze" }
func (a *AnalyzeHandler) Stage() hearing.Stage { return hearing.StageDiscovered }

// Execute rewrites the stream map keyed by detected platform. URLs on unknown
// platforms keep their original key. Hearings without any recognized stream
// fail the stage.
func (a *AnalyzeHandler) Execute(ctx context.Context, h *hearing.Hearing) (Outcome, error) {
	logger := logging.WithContext(ctx, a.logger)
	if len(h.Streams) == 0 {
		return Outcome{}, services.Wrap(services.ErrValidation, "analyze", "execute",
			fmt.Sprintf("hearing %d has no stream urls", h.ID), nil)
	}

	keys := make([]string, 0, len(h.Streams))
	for key := range h.Streams {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	streams := make(map[string]string, len(h.Streams))
	recognized := 0
	for _, key := range keys {
		rawURL := strings.TrimSpace(h.Streams[key])
		detection := a.detector.DetectPlatform(rawURL)
		platform := detection.Platform
		if platform == orchestrator.PlatformUnknown {
			platform = strings.ToLower(strings.TrimSpace(key))
		} else {
			recognized++
		}
		streams[uniqueKey(streams, platform)] = rawURL
		logger.Debug("stream classified",
			logging.String(logging.FieldURL, rawURL),
			logging.String("platform", detection.Platform),
			logging.Float64("confidence", detection.Confidence),
			logging.String("committee", detection.Committee),
		)
	}
	if recognized == 0 {
		return Outcome{}, services.Wrap(services.ErrValidation, "analyze", "execute",
			fmt.Sprintf("hearing %d has no stream on a supported platform", h.ID), nil)
	}
	return Outcome{Streams: streams}, nil
}

func (a *AnalyzeHandler) HealthCheck(context.Context) Health {
	if a.detector == nil {
		return Unhealthy(a.Name(), "platform detector not configured")
	}
	return Healthy(a.Name())
}

func uniqueKey(existing map[string]string, key string) string {
	if _, taken := existing[key]; !taken {
		return key
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", key, i)
		if _, taken := existing[candidate]; !taken {
			return candidate
		}
	}
}

// preferredExtractor maps a normalized stream key to an extractor hint.
func preferredExtractor(key string) string {
	switch strings.SplitN(key, "_", 2)[0] {
	case orchestrator.PlatformSenate:
		return "isvp"
	case orchestrator.PlatformYouTube:
		return "youtube"
	default:
		return ""
	}
}
