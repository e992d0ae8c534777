package hearing

import (
	"fmt"
	"maps"
	"strings"

	"hearingcap/internal/config"
	"hearingcap/internal/services"
)

// Stage is a discrete step in a hearing's lifecycle.
type Stage string

const (
	StageDiscovered  Stage = "discovered"
	StageAnalyzed    Stage = "analyzed"
	StageCaptured    Stage = "captured"
	StageTranscribed Stage = "transcribed"
	StageReviewed    Stage = "reviewed"
	StagePublished   Stage = "published"
)

var stageOrder = []Stage{
	StageDiscovered,
	StageAnalyzed,
	StageCaptured,
	StageTranscribed,
	StageReviewed,
	StagePublished,
}

// Stages returns every stage in lifecycle order.
func Stages() []Stage {
	return append([]Stage(nil), stageOrder...)
}

// Index returns the position of s in lifecycle order, or -1 when unknown.
func (s Stage) Index() int {
	for i, candidate := range stageOrder {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool { return s.Index() >= 0 }

// Terminal reports whether s is the final stage.
func (s Stage) Terminal() bool { return s == StagePublished }

// Next returns the single stage after s.
func (s Stage) Next() (Stage, bool) {
	idx := s.Index()
	if idx < 0 || idx+1 >= len(stageOrder) {
		return "", false
	}
	return stageOrder[idx+1], true
}

// Before reports whether s precedes other.
func (s Stage) Before(other Stage) bool {
	return s.Index() < other.Index()
}

// ParseStage converts user input into a Stage.
func ParseStage(value string) (Stage, error) {
	stage := Stage(strings.ToLower(strings.TrimSpace(value)))
	if !stage.Valid() {
		return "", services.Wrap(services.ErrValidation, "hearing", "parse stage", fmt.Sprintf("unknown stage %q", value), nil)
	}
	return stage, nil
}

// Status is the operator-facing projection of Stage.
type Status string

const (
	StatusNew        Status = "new"
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusReview     Status = "review"
	StatusComplete   Status = "complete"
)

var statusOrder = []Status{
	StatusNew,
	StatusQueued,
	StatusProcessing,
	StatusReview,
	StatusComplete,
}

// Rank returns the position of s in status order, or -1 when unknown.
func (s Status) Rank() int {
	for i, candidate := range statusOrder {
		if candidate == s {
			return i
		}
	}
	return -1
}

// StatusMapping projects each stage onto a status.
type StatusMapping map[Stage]Status

var defaultStatusMapping = func() StatusMapping {
	mapping, err := NewStatusMapping(config.DefaultStatusMapping())
	if err != nil {
		panic(fmt.Sprintf("built-in status mapping: %v", err))
	}
	return mapping
}()

// DefaultStatusMapping returns the projection used when [lifecycle] is empty.
func DefaultStatusMapping() StatusMapping {
	return maps.Clone(defaultStatusMapping)
}

// NewStatusMapping validates a stage to status table read from config.
// Every stage must be mapped, statuses must never regress along stage order,
// and only published may map to complete.
func NewStatusMapping(raw map[string]string) (StatusMapping, error) {
	mapping := make(StatusMapping, len(stageOrder))
	for key, value := range raw {
		stage := Stage(strings.ToLower(strings.TrimSpace(key)))
		if !stage.Valid() {
			return nil, mappingError(fmt.Sprintf("unknown stage %q", key))
		}
		status := Status(strings.ToLower(strings.TrimSpace(value)))
		if status.Rank() < 0 {
			return nil, mappingError(fmt.Sprintf("stage %s maps to unknown status %q", stage, value))
		}
		mapping[stage] = status
	}
	if err := mapping.Validate(); err != nil {
		return nil, err
	}
	return mapping, nil
}

// Validate checks completeness and monotonicity.
func (m StatusMapping) Validate() error {
	previous := -1
	for _, stage := range stageOrder {
		status, ok := m[stage]
		if !ok {
			return mappingError(fmt.Sprintf("stage %s is not mapped", stage))
		}
		rank := status.Rank()
		if rank < 0 {
			return mappingError(fmt.Sprintf("stage %s maps to unknown status %q", stage, status))
		}
		if rank < previous {
			return mappingError(fmt.Sprintf("stage %s maps to %s which regresses from the previous stage", stage, status))
		}
		if (status == StatusComplete) != stage.Terminal() {
			return mappingError(fmt.Sprintf("only %s may map to %s (stage %s maps to %s)", StagePublished, StatusComplete, stage, status))
		}
		previous = rank
	}
	return nil
}

// StatusFor returns the status projected from stage.
func (m StatusMapping) StatusFor(stage Stage) Status {
	if status, ok := m[stage]; ok {
		return status
	}
	return DefaultStatusMapping()[stage]
}

func mappingError(msg string) error {
	return services.Wrap(services.ErrConfiguration, "lifecycle", "status_mapping", msg, nil)
}
