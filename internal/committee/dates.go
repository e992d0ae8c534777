package committee

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

type datePattern struct {
	re *regexp.Regexp
	// twoDigitYear marks patterns whose captures are already MM, DD, YY.
	twoDigitYear bool
}

// Checked in order; the first pattern yielding a valid calendar date wins.
var datePatterns = []datePattern{
	{re: regexp.MustCompile(`/(\d{2})(\d{2})(\d{2})(?:/|$)`), twoDigitYear: true},
	{re: regexp.MustCompile(`/(\d{1,2})/(\d{1,2})/(\d{4})(?:/|$)`)},
	{re: regexp.MustCompile(`(?:^|[^\d])(\d{1,2})-(\d{1,2})-(\d{4})(?:[^\d]|$)`)},
	{re: regexp.MustCompile(`(?:^|[^\d])(\d{1,2})_(\d{1,2})_(\d{4})(?:[^\d]|$)`)},
}

var dateCodePattern = regexp.MustCompile(`^\d{6}$`)

// ExtractDateCode parses a hearing date from the URL path and query and
// returns it as MMDDYY.
func ExtractDateCode(rawURL string) (string, bool) {
	subject := strings.TrimSpace(rawURL)
	if parsed, err := url.Parse(subject); err == nil && parsed.Host != "" {
		subject = parsed.EscapedPath()
		if parsed.RawQuery != "" {
			subject += "?" + parsed.RawQuery
		}
	}
	for _, pattern := range datePatterns {
		for _, match := range overlappingMatches(pattern.re, subject) {
			month, _ := strconv.Atoi(match[1])
			day, _ := strconv.Atoi(match[2])
			year, _ := strconv.Atoi(match[3])
			if !pattern.twoDigitYear {
				year %= 100
			}
			code := fmt.Sprintf("%02d%02d%02d", month, day, year)
			if ValidDateCode(code) {
				return code, true
			}
		}
	}
	return "", false
}

// overlappingMatches is FindAllStringSubmatch except that a trailing
// delimiter consumed by one match can start the next.
func overlappingMatches(re *regexp.Regexp, s string) [][]string {
	var matches [][]string
	for offset := 0; offset < len(s); {
		loc := re.FindStringSubmatchIndex(s[offset:])
		if loc == nil {
			break
		}
		match := make([]string, len(loc)/2)
		for i := range match {
			if loc[2*i] >= 0 {
				match[i] = s[offset+loc[2*i] : offset+loc[2*i+1]]
			}
		}
		matches = append(matches, match)

		next := offset + loc[1]
		if last := s[next-1]; last < '0' || last > '9' {
			next--
		}
		if next <= offset {
			next = offset + 1
		}
		offset = next
	}
	return matches
}

// DateCodeFromPlayer reads the date code from an ISVP player source such as
// https://www.senate.gov/isvp/?comm=commerce&filename=commerce062625.
func DateCodeFromPlayer(c Committee, playerSrc string) (string, bool) {
	if c.URLPattern == "" {
		return "", false
	}
	parsed, err := url.Parse(strings.TrimSpace(playerSrc))
	if err != nil {
		return "", false
	}
	filename := strings.TrimSpace(parsed.Query().Get("filename"))
	rest, ok := strings.CutPrefix(filename, c.URLPattern)
	if !ok || len(rest) < 6 {
		return "", false
	}
	code := rest[:6]
	if !ValidDateCode(code) {
		return "", false
	}
	return code, true
}

// ValidDateCode reports whether code is MMDDYY with a plausible month and day.
func ValidDateCode(code string) bool {
	if !dateCodePattern.MatchString(code) {
		return false
	}
	month, _ := strconv.Atoi(code[0:2])
	day, _ := strconv.Atoi(code[2:4])
	return month >= 1 && month <= 12 && day >= 1 && day <= 31
}
