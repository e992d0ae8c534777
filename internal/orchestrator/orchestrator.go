package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"hearingcap/internal/committee"
	"hearingcap/internal/extract"
	"hearingcap/internal/logging"
	"hearingcap/internal/services"
)

// Platforms reported by DetectPlatform.
const (
	PlatformSenate  = "senate"
	PlatformYouTube = "youtube"
	PlatformUnknown = "unknown"
)

// Congressional types reported by DetectPlatform.
const (
	TypeSenateCommittee = "senate_committee"
	TypeHouseCommittee  = "house_committee"
	TypeUnknown         = "unknown"
)

// Detection describes the platform a URL most likely belongs to.
// RecommendedExtractor is empty when there is no preference.
type Detection struct {
	Platform             string   `json:"platform"`
	CongressionalType    string   `json:"congressional_type"`
	Committee            string   `json:"committee,omitempty"`
	Confidence           float64  `json:"confidence"`
	RecommendedExtractor string   `json:"recommended_extractor,omitempty"`
	AvailableExtractors  []string `json:"available_extractors"`
}

// Result is the winning extractor's output.
type Result struct {
	Streams   []extract.StreamDescriptor `json:"streams"`
	Extractor string                     `json:"extractor"`
	Detection Detection                  `json:"detection"`
}

// Orchestrator owns an ordered list of extractors. Registration order is the
// fallback priority.
type Orchestrator struct {
	extractors []extract.Extractor
	registry   *committee.Registry
	logger     *slog.Logger
}

// New constructs an orchestrator. registry may be nil.
func New(registry *committee.Registry, logger *slog.Logger, extractors ...extract.Extractor) *Orchestrator {
	filtered := make([]extract.Extractor, 0, len(extractors))
	for _, ext := range extractors {
		if ext != nil {
			filtered = append(filtered, ext)
		}
	}
	return &Orchestrator{
		extractors: filtered,
		registry:   registry,
		logger:     logging.NewComponentLogger(logger, "orchestrator"),
	}
}

// ExtractorNames lists registered extractors in priority order.
func (o *Orchestrator) ExtractorNames() []string {
	names := make([]string, 0, len(o.extractors))
	for _, ext := range o.extractors {
		names = append(names, ext.Name())
	}
	return names
}

// DetectPlatform classifies a URL by host. It performs no I/O.
func (o *Orchestrator) DetectPlatform(rawURL string) Detection {
	detection := Detection{
		Platform:            PlatformUnknown,
		CongressionalType:   TypeUnknown,
		Confidence:          0.1,
		AvailableExtractors: o.ExtractorNames(),
	}
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		detection.Confidence = 0
		return detection
	}
	host := strings.ToLower(parsed.Hostname())

	var (
		c        committee.Committee
		resolved bool
	)
	if o.registry != nil {
		c, resolved = o.registry.Resolve(rawURL)
		if resolved {
			detection.Committee = c.Code
		}
	}

	switch {
	case extract.IsSenateHost(host):
		detection.Platform = PlatformSenate
		detection.CongressionalType = TypeSenateCommittee
		detection.RecommendedExtractor = "isvp"
		detection.Confidence = 0.9
		if resolved && c.ISVPCompatible {
			detection.Confidence = 0.95
		}
	case extract.IsYouTubeHost(host):
		detection.Platform = PlatformYouTube
		detection.CongressionalType = TypeHouseCommittee
		detection.RecommendedExtractor = "youtube"
		detection.Confidence = 0.9
	case host == "house.gov" || strings.HasSuffix(host, ".house.gov"):
		detection.CongressionalType = TypeHouseCommittee
		detection.Confidence = 0.3
	}
	if detection.RecommendedExtractor != "" && !o.has(detection.RecommendedExtractor) {
		detection.RecommendedExtractor = ""
	}
	return detection
}

// ExtractStreams runs extractors in order: the preferred platform when it
// names a registered extractor, then the detected recommendation, then
// registration order. The first non-empty result wins; results are never
// merged. When every extractor comes back empty the error wraps
// services.ErrNoStreamsFound. A canceled context stops further attempts.
func (o *Orchestrator) ExtractStreams(ctx context.Context, rawURL, preferred string) (Result, error) {
	rawURL = strings.TrimSpace(rawURL)
	detection := o.DetectPlatform(rawURL)
	logger := logging.WithContext(ctx, o.logger).With(logging.String(logging.FieldURL, rawURL))

	preferred = strings.ToLower(strings.TrimSpace(preferred))
	if preferred != "" && !o.has(preferred) {
		logging.WarnWithContext(logger, "ignoring unknown preferred platform", "preferred_platform_invalid",
			logging.String("preferred", preferred),
			logging.String(logging.FieldErrorHint, "use one of: "+strings.Join(o.ExtractorNames(), ", ")),
			logging.String(logging.FieldImpact, "detected platform order is used instead"),
		)
		preferred = ""
	}

	order := o.order(preferred, detection.RecommendedExtractor)
	tried := make([]string, 0, len(order))
	for _, ext := range order {
		if err := ctx.Err(); err != nil {
			return Result{Detection: detection}, fmt.Errorf("extract streams for %s: %w", rawURL, err)
		}
		tried = append(tried, ext.Name())
		streams := ext.ExtractStreams(ctx, rawURL)
		if len(streams) == 0 {
			logger.Debug("extractor returned no streams", logging.String(logging.FieldExtractor, ext.Name()))
			continue
		}
		reason := "registration order"
		switch ext.Name() {
		case preferred:
			reason = "preferred platform"
		case detection.RecommendedExtractor:
			reason = "detected platform"
		}
		attrs := append(logging.DecisionAttrs("extractor", ext.Name(), reason),
			logging.String(logging.FieldExtractor, ext.Name()),
			logging.Int("streams", len(streams)),
			logging.String("platform", detection.Platform),
		)
		logger.Info("streams extracted", logging.Args(attrs...)...)
		return Result{Streams: streams, Extractor: ext.Name(), Detection: detection}, nil
	}

	return Result{Detection: detection}, services.Wrap(
		services.ErrNoStreamsFound,
		"orchestrator",
		"extract streams",
		fmt.Sprintf("%s (tried %s)", rawURL, strings.Join(tried, ", ")),
		nil,
	)
}

func (o *Orchestrator) order(preferred, recommended string) []extract.Extractor {
	ordered := make([]extract.Extractor, 0, len(o.extractors))
	seen := make(map[string]struct{}, len(o.extractors))
	push := func(ext extract.Extractor) {
		if _, ok := seen[ext.Name()]; ok {
			return
		}
		seen[ext.Name()] = struct{}{}
		ordered = append(ordered, ext)
	}
	for _, name := range []string{preferred, recommended} {
		if ext := o.lookup(name); ext != nil {
			push(ext)
		}
	}
	for _, ext := range o.extractors {
		push(ext)
	}
	return ordered
}

func (o *Orchestrator) lookup(name string) extract.Extractor {
	if name == "" {
		return nil
	}
	for _, ext := range o.extractors {
		if ext.Name() == name {
			return ext
		}
	}
	return nil
}

func (o *Orchestrator) has(name string) bool {
	return o.lookup(name) != nil
}
