package extract

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"hearingcap/internal/committee"
	"hearingcap/internal/inspect"
	"hearingcap/internal/logging"
)

// ISVPExtractor finds HLS manifests behind Senate ISVP players. Candidates
// come from sniffed network traffic, then ISVP player markup, then the
// committee's manifest templates.
type ISVPExtractor struct {
	inspector inspect.Inspector
	registry  *committee.Registry
	logger    *slog.Logger
}

// NewISVPExtractor constructs an ISVP extractor. registry may be nil, which
// disables template candidates.
func NewISVPExtractor(inspector inspect.Inspector, registry *committee.Registry, logger *slog.Logger) *ISVPExtractor {
	return &ISVPExtractor{
		inspector: inspector,
		registry:  registry,
		logger:    logging.NewComponentLogger(logger, "isvp-extractor"),
	}
}

// Name implements Extractor.
func (e *ISVPExtractor) Name() string { return "isvp" }

// CanExtract matches senate.gov hosts, the Senate media CDN, and any host the
// registry maps to an ISVP-compatible committee.
func (e *ISVPExtractor) CanExtract(rawURL string) bool {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return false
	}
	if IsSenateHost(parsed.Hostname()) {
		return true
	}
	if e.registry != nil {
		if c, ok := e.registry.Resolve(rawURL); ok && c.ISVPCompatible {
			return true
		}
	}
	return false
}

// ExtractStreams implements Extractor.
func (e *ISVPExtractor) ExtractStreams(ctx context.Context, rawURL string) []StreamDescriptor {
	logger := logging.WithContext(ctx, e.logger).With(logging.String(logging.FieldURL, rawURL))
	rawURL = strings.TrimSpace(rawURL)

	if inspect.IsManifestURL(rawURL) {
		desc := StreamDescriptor{
			URL:        rawURL,
			FormatType: FormatHLS,
			Metadata:   map[string]string{MetaSource: SourceDirect, MetaStreamType: streamType(rawURL)},
		}
		if err := desc.Validate(); err != nil {
			logger.Warn("direct manifest rejected", logging.Error(err), logging.String(logging.FieldEventType, "isvp_direct_invalid"))
			return nil
		}
		return []StreamDescriptor{desc}
	}

	var (
		c            committee.Committee
		hasCommittee bool
	)
	if e.registry != nil {
		c, hasCommittee = e.registry.Resolve(rawURL)
	}

	var evidence inspect.Evidence
	if e.inspector != nil {
		var err error
		evidence, err = e.inspector.Inspect(ctx, rawURL)
		if err != nil {
			logging.WarnWithContext(logger, "page inspection failed; continuing without page evidence", "isvp_inspect_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check chrome availability and page reachability"),
				logging.String(logging.FieldImpact, "only template candidates are considered"),
			)
		}
	}

	set := newCandidateSet()
	for _, req := range evidence.ManifestRequests() {
		set.add(req.URL, candidate{
			source:    SourceNetwork,
			referer:   headerValue(req.Headers, "Referer"),
			userAgent: headerValue(req.Headers, "User-Agent"),
		})
	}
	isvpPlayers := evidence.PlayersOfType(inspect.PlayerISVP)
	for _, player := range isvpPlayers {
		for _, stream := range player.PotentialStreams {
			if inspect.IsManifestURL(stream) || strings.Contains(strings.ToLower(stream), "hls") {
				set.add(stream, candidate{source: SourceDOM})
			}
		}
	}
	if hasCommittee {
		dateCode, ok := committee.ExtractDateCode(rawURL)
		if !ok {
			for _, player := range isvpPlayers {
				if dateCode, ok = committee.DateCodeFromPlayer(c, player.Src); ok {
					break
				}
			}
		}
		if ok {
			for _, manifest := range committee.StreamTemplates(c, dateCode) {
				set.add(manifest, candidate{source: SourceTemplate})
			}
		}
	}

	title := TitleFromURL(rawURL)
	descriptors := make([]StreamDescriptor, 0, len(set.order))
	for _, manifest := range set.order {
		desc := e.describe(manifest, set.byURL[manifest], rawURL, title, c.Code)
		if err := desc.Validate(); err != nil {
			logger.Debug("dropping malformed candidate", logging.Error(err))
			continue
		}
		descriptors = append(descriptors, desc)
	}

	if len(descriptors) == 0 {
		logger.Info("no isvp streams found",
			logging.String(logging.FieldEventType, "isvp_no_streams"),
			logging.Int("network_requests", len(evidence.NetworkRequests)),
			logging.Int("players", len(evidence.PlayersFound)),
			logging.Bool("partial", evidence.Partial),
		)
		return nil
	}
	logger.Debug("isvp streams found", logging.Int("count", len(descriptors)))
	return descriptors
}

func (e *ISVPExtractor) describe(manifest string, cand candidate, pageURL, title, committeeCode string) StreamDescriptor {
	referer := cand.referer
	if referer == "" {
		referer = pageURL
	}
	meta := map[string]string{
		MetaSource:     cand.source,
		MetaReferer:    referer,
		MetaStreamType: streamType(manifest),
	}
	if cand.userAgent != "" {
		meta[MetaUserAgent] = cand.userAgent
	}
	if committeeCode != "" {
		meta[MetaCommittee] = committeeCode
	}
	return StreamDescriptor{
		URL:        manifest,
		FormatType: FormatHLS,
		Title:      title,
		Metadata:   meta,
	}
}

// IsSenateHost reports whether host belongs to senate.gov or the Senate media CDN.
func IsSenateHost(host string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "senate.gov" || strings.HasSuffix(host, ".senate.gov") {
		return true
	}
	return strings.HasPrefix(host, "www-senate-gov-") && strings.HasSuffix(host, ".akamaized.net")
}

func streamType(manifest string) string {
	if strings.Contains(manifest, "/live/") {
		return "live"
	}
	return "archive"
}

func headerValue(headers map[string]string, name string) string {
	for key, value := range headers {
		if strings.EqualFold(key, name) {
			return value
		}
	}
	return ""
}

type candidate struct {
	source    string
	referer   string
	userAgent string
}

// sourceRank orders candidate provenance; a lower rank wins on conflict.
var sourceRank = map[string]int{
	SourceNetwork:  0,
	SourceDOM:      1,
	SourceTemplate: 2,
}

type candidateSet struct {
	order []string
	byURL map[string]candidate
}

func newCandidateSet() *candidateSet {
	return &candidateSet{byURL: make(map[string]candidate)}
}

func (s *candidateSet) add(rawURL string, cand candidate) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return
	}
	existing, ok := s.byURL[rawURL]
	if !ok {
		s.order = append(s.order, rawURL)
		s.byURL[rawURL] = cand
		return
	}
	if sourceRank[cand.source] < sourceRank[existing.source] {
		s.byURL[rawURL] = cand
	}
}
