package inspect

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var manifestPattern = regexp.MustCompile(`(?i)https?://[^\s"'<>\\]+?\.m3u8(?:\?[^\s"'<>\\]*)?`)

// ParsePlayers recognizes media players in rendered page HTML. ISVP iframes,
// HTML5 video elements and YouTube embeds each become a Player. Manifest URLs
// found in any attribute or inline script are attached to the ISVP players,
// or reported as a standalone hls player when the page has none.
func ParsePlayers(html, pageURL string) ([]Player, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	base, _ := url.Parse(pageURL)

	var players []Player
	doc.Find("iframe, embed").Each(func(_ int, s *goquery.Selection) {
		src := resolveRef(base, firstAttr(s, "src", "data-src"))
		switch {
		case src == "":
		case isISVPSource(src):
			players = append(players, Player{Type: PlayerISVP, Src: src, PotentialStreams: queryManifests(src)})
		case isYouTubeEmbed(src):
			players = append(players, Player{Type: PlayerYouTube, Src: src, PotentialStreams: []string{src}})
		}
	})

	doc.Find("video").Each(func(_ int, s *goquery.Selection) {
		var sources []string
		if src := resolveRef(base, firstAttr(s, "src", "data-src")); src != "" {
			sources = appendUnique(sources, src)
		}
		s.Find("source").Each(func(_ int, source *goquery.Selection) {
			if src := resolveRef(base, firstAttr(source, "src", "data-src")); src != "" {
				sources = appendUnique(sources, src)
			}
		})
		player := Player{Type: PlayerHTML5, PotentialStreams: sources}
		if len(sources) > 0 {
			player.Src = sources[0]
		}
		players = append(players, player)
	})

	var swept []string
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		for _, node := range s.Nodes {
			for _, attr := range node.Attr {
				if IsManifestURL(attr.Val) {
					swept = appendUnique(swept, resolveRef(base, strings.TrimSpace(attr.Val)))
					continue
				}
				swept = appendUnique(swept, manifestURLs(attr.Val)...)
			}
		}
	})
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		swept = appendUnique(swept, manifestURLs(s.Text())...)
	})
	if len(swept) == 0 {
		return players, nil
	}

	attached := false
	for i := range players {
		if players[i].Type == PlayerISVP {
			players[i].PotentialStreams = appendUnique(players[i].PotentialStreams, swept...)
			attached = true
		}
	}
	if !attached {
		players = append(players, Player{Type: PlayerHLS, PotentialStreams: swept})
	}
	return players, nil
}

func isISVPSource(src string) bool {
	parsed, err := url.Parse(src)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	if host != "senate.gov" && !strings.HasSuffix(host, ".senate.gov") {
		return false
	}
	return strings.Contains(strings.ToLower(parsed.Path), "/isvp")
}

func isYouTubeEmbed(src string) bool {
	parsed, err := url.Parse(src)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	switch host {
	case "youtube.com", "youtube-nocookie.com", "m.youtube.com":
		return strings.HasPrefix(parsed.Path, "/embed/")
	default:
		return false
	}
}

// queryManifests returns manifest URLs carried in a player's query parameters.
func queryManifests(src string) []string {
	parsed, err := url.Parse(src)
	if err != nil {
		return nil
	}
	var out []string
	for _, values := range parsed.Query() {
		for _, value := range values {
			out = appendUnique(out, manifestURLs(value)...)
		}
	}
	return out
}

func manifestURLs(text string) []string {
	if !strings.Contains(strings.ToLower(text), ".m3u8") {
		return nil
	}
	text = strings.ReplaceAll(text, `\/`, "/")
	return manifestPattern.FindAllString(text, -1)
}

func firstAttr(s *goquery.Selection, names ...string) string {
	for _, name := range names {
		if value, ok := s.Attr(name); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func resolveRef(base *url.URL, ref string) string {
	if ref == "" || strings.HasPrefix(ref, "javascript:") || strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "blob:") {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		return parsed.String()
	}
	return base.ResolveReference(parsed).String()
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if v == "" {
			continue
		}
		seen := false
		for _, existing := range dst {
			if existing == v {
				seen = true
				break
			}
		}
		if !seen {
			dst = append(dst, v)
		}
	}
	return dst
}
