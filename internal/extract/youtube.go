package extract

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"hearingcap/internal/logging"
	"hearingcap/internal/services/ytdlp"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// MetadataFetcher supplies optional title/duration enrichment for a video.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, videoURL string) (*ytdlp.Metadata, error)
}

// YouTubeExtractor resolves a YouTube page URL to its canonical watch URL.
type YouTubeExtractor struct {
	fetcher MetadataFetcher
	logger  *slog.Logger
}

// NewYouTubeExtractor constructs an extractor. A nil fetcher disables enrichment.
func NewYouTubeExtractor(fetcher MetadataFetcher, logger *slog.Logger) *YouTubeExtractor {
	return &YouTubeExtractor{
		fetcher: fetcher,
		logger:  logging.NewComponentLogger(logger, "youtube-extractor"),
	}
}

// Name implements Extractor.
func (e *YouTubeExtractor) Name() string { return "youtube" }

// CanExtract matches any youtube.com, youtu.be or youtube-nocookie.com URL,
// including channel pages that ExtractStreams cannot resolve.
func (e *YouTubeExtractor) CanExtract(rawURL string) bool {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	return IsYouTubeHost(parsed.Hostname())
}

// ExtractStreams implements Extractor.
func (e *YouTubeExtractor) ExtractStreams(ctx context.Context, rawURL string) []StreamDescriptor {
	logger := logging.WithContext(ctx, e.logger).With(logging.String(logging.FieldURL, rawURL))
	id, ok := VideoID(rawURL)
	if !ok {
		logger.Info("no video id in youtube url; channel pages need external discovery",
			logging.String(logging.FieldEventType, "youtube_no_video_id"),
		)
		return nil
	}

	canonical := CanonicalWatchURL(id)
	desc := StreamDescriptor{
		URL:        canonical,
		FormatType: FormatYouTube,
		Metadata: map[string]string{
			MetaSource:     SourceYouTube,
			MetaReferer:    strings.TrimSpace(rawURL),
			MetaVideoID:    id,
			MetaStreamType: "video",
		},
	}

	if e.fetcher != nil {
		meta, err := e.fetcher.FetchMetadata(ctx, canonical)
		if err != nil {
			logger.Debug("youtube metadata enrichment failed", logging.Error(err))
		} else {
			desc.Title = meta.Title
			if meta.Duration > 0 {
				duration := meta.Duration
				desc.Duration = &duration
			}
			if meta.IsLive {
				desc.Metadata[MetaStreamType] = "live"
			}
		}
	}
	return []StreamDescriptor{desc}
}

// IsYouTubeHost reports whether host serves YouTube pages.
func IsYouTubeHost(host string) bool {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(host)), "www.") {
	case "youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be", "youtube-nocookie.com":
		return true
	default:
		return false
	}
}

// VideoID extracts the video id from watch, embed, shorts, live, /v/ and
// youtu.be URLs.
func VideoID(rawURL string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || !IsYouTubeHost(parsed.Hostname()) {
		return "", false
	}
	segments := strings.FieldsFunc(parsed.Path, func(r rune) bool { return r == '/' })

	var id string
	if strings.EqualFold(strings.TrimPrefix(parsed.Hostname(), "www."), "youtu.be") {
		if len(segments) > 0 {
			id = segments[0]
		}
	} else if len(segments) == 1 && segments[0] == "watch" {
		id = parsed.Query().Get("v")
	} else if len(segments) >= 2 {
		switch segments[0] {
		case "embed", "shorts", "live", "v", "e":
			id = segments[1]
		}
	}
	if id == "" || !videoIDPattern.MatchString(id) {
		return "", false
	}
	if id == "live_stream" || id == "videoseries" {
		return "", false
	}
	return id, true
}

// CanonicalWatchURL returns the www.youtube.com watch URL for a video id.
func CanonicalWatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(id)
}
