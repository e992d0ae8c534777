package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Stream formats.
const (
	FormatHLS     = "hls"
	FormatMP4     = "mp4"
	FormatYouTube = "youtube"
)

// Metadata keys carried on a StreamDescriptor.
const (
	MetaSource     = "source"
	MetaReferer    = "referer"
	MetaUserAgent  = "user_agent"
	MetaCommittee  = "committee"
	MetaStreamType = "stream_type"
	MetaVideoID    = "video_id"
)

// Values for MetaSource.
const (
	SourceNetwork  = "network"
	SourceDOM      = "dom"
	SourceTemplate = "template"
	SourceDirect   = "direct"
	SourceYouTube  = "youtube"
)

// StreamDescriptor is one candidate media stream for a hearing.
type StreamDescriptor struct {
	URL        string            `json:"url"`
	FormatType string            `json:"format_type"`
	Quality    string            `json:"quality,omitempty"`
	Duration   *float64          `json:"duration,omitempty"`
	Title      string            `json:"title,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Meta returns a metadata value or "".
func (d StreamDescriptor) Meta(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}

// Validate checks that the descriptor names an absolute http(s) URL and a known format.
func (d StreamDescriptor) Validate() error {
	parsed, err := url.Parse(strings.TrimSpace(d.URL))
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("stream url %q is not an absolute http(s) url", d.URL)
	}
	switch d.FormatType {
	case FormatHLS, FormatMP4, FormatYouTube:
		return nil
	default:
		return fmt.Errorf("stream %s has unsupported format %q", d.URL, d.FormatType)
	}
}

// Extractor turns a hearing page URL into candidate streams. CanExtract is a
// pure pattern match. ExtractStreams may perform I/O but never fails; errors
// are logged and yield an empty list.
type Extractor interface {
	Name() string
	CanExtract(rawURL string) bool
	ExtractStreams(ctx context.Context, rawURL string) []StreamDescriptor
}
