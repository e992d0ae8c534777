package extract

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	dateLikeSegment   = regexp.MustCompile(`^\d{1,4}(?:[-_.]\d{1,4}){0,2}$`)
	alphaSegment      = regexp.MustCompile(`[A-Za-z]`)
	pageExtension     = regexp.MustCompile(`^\.[A-Za-z]+$`)
	segmentSeparators = strings.NewReplacer("-", " ", "_", " ", "+", " ", ".", " ")
)

// TitleFromURL builds a readable title from the date-like and alphabetic path
// segments of a hearing page URL.
func TitleFromURL(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	var parts []string
	for _, segment := range strings.Split(parsed.Path, "/") {
		segment, err := url.PathUnescape(segment)
		if err != nil || segment == "" {
			continue
		}
		switch {
		case dateLikeSegment.MatchString(segment):
			parts = append(parts, segment)
		case alphaSegment.MatchString(segment):
			if ext := path.Ext(segment); pageExtension.MatchString(ext) {
				segment = strings.TrimSuffix(segment, ext)
			}
			words := strings.Fields(segmentSeparators.Replace(segment))
			if len(words) > 0 {
				parts = append(parts, strings.Join(words, " "))
			}
		}
	}
	return cases.Title(language.English).String(strings.Join(parts, " "))
}
