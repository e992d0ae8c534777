package committee

import (
	"bytes"
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"hearingcap/internal/services"
)

//go:embed committees.toml
var defaultTable []byte

// Chamber values accepted in the committee table.
const (
	ChamberSenate = "senate"
	ChamberHouse  = "house"
	ChamberJoint  = "joint"
)

var (
	codePattern     = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
	streamIDPattern = regexp.MustCompile(`^\d+$`)
)

// Committee is one entry of the static committee table.
type Committee struct {
	Code           string `toml:"code"`
	Name           string `toml:"name"`
	Chamber        string `toml:"chamber"`
	BaseURL        string `toml:"base_url"`
	HearingsPath   string `toml:"hearings_path"`
	ISVPCompatible bool   `toml:"isvp_compatible"`
	StreamID       string `toml:"stream_id"`
	URLPattern     string `toml:"url_pattern"`
	ArchivePattern string `toml:"archive_pattern"`
	Priority       int    `toml:"priority"`
	YouTubeChannel string `toml:"youtube_channel"`
}

// Domain returns the base_url host without a leading "www.".
func (c Committee) Domain() string {
	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return ""
	}
	return stripWWW(parsed.Hostname())
}

// HearingsURL joins base_url and hearings_path.
func (c Committee) HearingsURL() string {
	if c.HearingsPath == "" {
		return c.BaseURL
	}
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(c.HearingsPath, "/")
}

type table struct {
	Committees []Committee `toml:"committee"`
}

// Registry is an immutable, validated set of committees.
type Registry struct {
	committees []Committee
	byCode     map[string]int
}

// Load reads the committee table at path, or the built-in table when path is empty.
func Load(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return Parse(defaultTable, "built-in committee table")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "committee", "load", fmt.Sprintf("read %s", path), err)
	}
	return Parse(data, path)
}

// Default returns the built-in registry.
func Default() (*Registry, error) {
	return Load("")
}

// Parse decodes and validates a committee table. source names the table in errors.
func Parse(data []byte, source string) (*Registry, error) {
	var decoded table
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&decoded); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "committee", "parse", source, err)
	}
	return New(decoded.Committees)
}

// New validates committees and builds a registry from them.
func New(committees []Committee) (*Registry, error) {
	reg := &Registry{
		committees: make([]Committee, 0, len(committees)),
		byCode:     make(map[string]int, len(committees)),
	}
	for _, c := range committees {
		c = normalize(c)
		if err := validate(c); err != nil {
			return nil, err
		}
		if _, dup := reg.byCode[c.Code]; dup {
			return nil, invalid(c.Code, "code", "duplicate committee code")
		}
		reg.byCode[c.Code] = len(reg.committees)
		reg.committees = append(reg.committees, c)
	}
	return reg, nil
}

// All returns the committees ordered by priority, then code.
func (r *Registry) All() []Committee {
	out := append([]Committee(nil), r.committees...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// Len reports the number of committees.
func (r *Registry) Len() int { return len(r.committees) }

// Lookup returns the committee with the given code.
func (r *Registry) Lookup(code string) (Committee, bool) {
	idx, ok := r.byCode[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return Committee{}, false
	}
	return r.committees[idx], true
}

// Resolve matches the URL host against each committee's base_url domain. The
// longest matching domain wins; ties go to the lower priority, then the code.
func (r *Registry) Resolve(rawURL string) (Committee, bool) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return Committee{}, false
	}
	host := stripWWW(strings.ToLower(parsed.Hostname()))

	var (
		best  Committee
		found bool
	)
	for _, c := range r.committees {
		domain := c.Domain()
		if domain == "" || (host != domain && !strings.HasSuffix(host, "."+domain)) {
			continue
		}
		if !found || moreSpecific(c, best) {
			best, found = c, true
		}
	}
	return best, found
}

func moreSpecific(candidate, current Committee) bool {
	if a, b := len(candidate.Domain()), len(current.Domain()); a != b {
		return a > b
	}
	if candidate.Priority != current.Priority {
		return candidate.Priority < current.Priority
	}
	return candidate.Code < current.Code
}

func normalize(c Committee) Committee {
	c.Code = strings.ToLower(strings.TrimSpace(c.Code))
	c.Chamber = strings.ToLower(strings.TrimSpace(c.Chamber))
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.HearingsPath = strings.TrimSpace(c.HearingsPath)
	c.StreamID = strings.TrimSpace(c.StreamID)
	c.URLPattern = strings.TrimSpace(c.URLPattern)
	c.ArchivePattern = strings.TrimSpace(c.ArchivePattern)
	c.YouTubeChannel = strings.TrimSpace(c.YouTubeChannel)
	return c
}

// ValidCode reports whether code is a well-formed committee code.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

func validate(c Committee) error {
	if !codePattern.MatchString(c.Code) {
		return invalid(c.Code, "code", "must be lowercase letters, digits, '-' or '_'")
	}
	switch c.Chamber {
	case ChamberSenate, ChamberHouse, ChamberJoint:
	default:
		return invalid(c.Code, "chamber", fmt.Sprintf("unsupported value %q", c.Chamber))
	}
	parsed, err := url.Parse(c.BaseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return invalid(c.Code, "base_url", fmt.Sprintf("not an absolute http(s) URL: %q", c.BaseURL))
	}
	if c.Priority < 0 {
		return invalid(c.Code, "priority", "must be >= 0")
	}
	if c.ISVPCompatible {
		if !streamIDPattern.MatchString(c.StreamID) {
			return invalid(c.Code, "stream_id", "isvp committees need a numeric stream_id")
		}
		if c.URLPattern == "" || strings.ContainsAny(c.URLPattern, "/?# ") {
			return invalid(c.Code, "url_pattern", "isvp committees need a single path segment url_pattern")
		}
	}
	if c.ArchivePattern != "" {
		if err := checkTemplate(c.ArchivePattern); err != nil {
			return invalid(c.Code, "archive_pattern", err.Error())
		}
	}
	return nil
}

func invalid(code, field, message string) error {
	if code == "" {
		code = "<empty>"
	}
	return services.Wrap(services.ErrConfiguration, "committee", "validate", fmt.Sprintf("%s.%s: %s", code, field, message), nil)
}

func stripWWW(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
