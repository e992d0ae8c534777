package committee

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// LiveManifestTemplate is the Senate media CDN layout for live and recently
// archived ISVP streams.
const LiveManifestTemplate = "https://www-senate-gov-media-srs.akamaized.net/hls/live/{stream_id}/{url_pattern}/{url_pattern}{date}/master.m3u8"

var placeholderPattern = regexp.MustCompile(`\{[^{}]*\}`)

var knownPlaceholders = map[string]struct{}{
	"{stream_id}":   {},
	"{url_pattern}": {},
	"{date}":        {},
}

// StreamTemplates expands the live and archive manifest templates for a
// committee and MMDDYY date code. Committees that are not ISVP-compatible and
// unparseable date codes yield an empty list.
func StreamTemplates(c Committee, dateCode string) []string {
	if !c.ISVPCompatible || c.StreamID == "" || c.URLPattern == "" {
		return nil
	}
	if !ValidDateCode(dateCode) {
		return nil
	}
	replacer := strings.NewReplacer(
		"{stream_id}", c.StreamID,
		"{url_pattern}", c.URLPattern,
		"{date}", dateCode,
	)
	urls := []string{replacer.Replace(LiveManifestTemplate)}
	if c.ArchivePattern != "" {
		archive := replacer.Replace(c.ArchivePattern)
		if archive != urls[0] {
			urls = append(urls, archive)
		}
	}
	return urls
}

func checkTemplate(pattern string) error {
	for _, placeholder := range placeholderPattern.FindAllString(pattern, -1) {
		if _, ok := knownPlaceholders[placeholder]; !ok {
			return fmt.Errorf("unknown placeholder %s", placeholder)
		}
	}
	expanded := placeholderPattern.ReplaceAllString(pattern, "x")
	parsed, err := url.Parse(expanded)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("not an absolute URL template: %q", pattern)
	}
	return nil
}
