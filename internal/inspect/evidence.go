package inspect

import (
	"context"
	"strings"
	"time"
)

// Player types reported in Evidence.PlayersFound.
const (
	PlayerISVP    = "isvp"
	PlayerHTML5   = "html5"
	PlayerYouTube = "youtube"
	PlayerHLS     = "hls"
)

// Request is one network request observed while the page loaded.
type Request struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Player is a media widget recognized in the page DOM.
type Player struct {
	Type             string   `json:"type"`
	Src              string   `json:"src,omitempty"`
	PotentialStreams []string `json:"potential_streams"`
}

// Evidence is everything one page inspection gathered. Partial is set when the
// wall-clock limit expired before the page finished loading.
type Evidence struct {
	PageURL         string        `json:"page_url"`
	NetworkRequests []Request     `json:"network_requests"`
	PlayersFound    []Player      `json:"players_found"`
	Partial         bool          `json:"partial"`
	Elapsed         time.Duration `json:"elapsed"`
}

// Inspector loads a page and returns the evidence it gathered. Timeouts
// produce partial evidence rather than an error.
type Inspector interface {
	Inspect(ctx context.Context, pageURL string) (Evidence, error)
}

// InspectorFunc adapts a function to the Inspector interface.
type InspectorFunc func(ctx context.Context, pageURL string) (Evidence, error)

// Inspect calls f.
func (f InspectorFunc) Inspect(ctx context.Context, pageURL string) (Evidence, error) {
	return f(ctx, pageURL)
}

// ManifestRequests returns network requests whose URL path ends in .m3u8.
func (e Evidence) ManifestRequests() []Request {
	var out []Request
	for _, req := range e.NetworkRequests {
		if IsManifestURL(req.URL) {
			out = append(out, req)
		}
	}
	return out
}

// PlayersOfType returns players matching typ.
func (e Evidence) PlayersOfType(typ string) []Player {
	var out []Player
	for _, p := range e.PlayersFound {
		if p.Type == typ {
			out = append(out, p)
		}
	}
	return out
}

// IsManifestURL reports whether rawURL points at an HLS playlist, ignoring any
// query string or fragment.
func IsManifestURL(rawURL string) bool {
	trimmed := strings.TrimSpace(rawURL)
	if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.HasSuffix(strings.ToLower(trimmed), ".m3u8")
}
