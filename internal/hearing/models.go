package hearing

import (
	"fmt"
	"math"
	"strings"
	"time"

	"hearingcap/internal/committee"
	"hearingcap/internal/services"
)

// DateLayout is the storage format of hearing dates.
const DateLayout = "2006-01-02"

// Hearing is a persisted hearing record.
type Hearing struct {
	ID              int64             `json:"id"`
	CommitteeCode   string            `json:"committee_code"`
	Title           string            `json:"hearing_title"`
	Date            string            `json:"hearing_date"`
	Type            string            `json:"hearing_type"`
	Streams         map[string]string `json:"streams"`
	SyncConfidence  float64           `json:"sync_confidence"`
	Status          Status            `json:"status"`
	Stage           Stage             `json:"processing_stage"`
	StatusUpdatedAt time.Time         `json:"status_updated_at"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	ErrorMessage    string            `json:"error_message,omitempty"`
}

// Clone returns a deep copy.
func (h *Hearing) Clone() *Hearing {
	if h == nil {
		return nil
	}
	clone := *h
	if h.Streams != nil {
		clone.Streams = make(map[string]string, len(h.Streams))
		for k, v := range h.Streams {
			clone.Streams[k] = v
		}
	}
	return &clone
}

// Errored reports whether the last stage attempt recorded a failure.
func (h *Hearing) Errored() bool {
	return strings.TrimSpace(h.ErrorMessage) != ""
}

// NewHearing describes a hearing found by discovery.
type NewHearing struct {
	CommitteeCode  string
	Title          string
	Date           string
	Type           string
	Streams        map[string]string
	SyncConfidence float64
}

// Validate normalizes and checks the discovery payload.
func (n *NewHearing) Validate() error {
	n.CommitteeCode = strings.ToLower(strings.TrimSpace(n.CommitteeCode))
	n.Title = strings.TrimSpace(n.Title)
	n.Date = strings.TrimSpace(n.Date)
	n.Type = strings.TrimSpace(n.Type)
	switch {
	case n.CommitteeCode == "":
		return discoverError("committee code required")
	case !committee.ValidCode(n.CommitteeCode):
		return discoverError(fmt.Sprintf("committee code %q is not a valid code", n.CommitteeCode))
	case n.Title == "":
		return discoverError("title required")
	case math.IsNaN(n.SyncConfidence) || n.SyncConfidence < 0 || n.SyncConfidence > 1:
		return discoverError(fmt.Sprintf("sync confidence %.2f outside [0,1]", n.SyncConfidence))
	}
	if _, err := time.Parse(DateLayout, n.Date); err != nil {
		return discoverError(fmt.Sprintf("date %q is not YYYY-MM-DD", n.Date))
	}
	for platform, url := range n.Streams {
		if strings.TrimSpace(platform) == "" || strings.TrimSpace(url) == "" {
			return discoverError("streams need a platform and url")
		}
	}
	return nil
}

func discoverError(msg string) error {
	return services.Wrap(services.ErrValidation, "hearing", "discover", msg, nil)
}

// Transition is a compare-and-swap stage update.
type Transition struct {
	ID     int64
	From   Stage
	To     Stage
	Status Status
	// Streams replaces the stored stream map when non-nil.
	Streams map[string]string
	At      time.Time
}

// Stats summarizes hearings per stage.
type Stats struct {
	Total   int
	ByStage map[Stage]int
	Errored int
}

func staleError(id int64, expected, actual Stage) error {
	return services.Wrap(services.ErrStaleStage, "lifecycle", "advance",
		fmt.Sprintf("hearing %d is at %s, expected %s", id, actual, expected), nil)
}

func notFoundError(id int64) error {
	return services.Wrap(services.ErrNotFound, "hearing", "lookup", fmt.Sprintf("hearing %d", id), nil)
}
