package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration     = errors.New("configuration error")
	ErrNoStreamsFound    = errors.New("no streams found")
	ErrConversionTimeout = errors.New("conversion timeout")
	ErrConversionFailed  = errors.New("conversion failed")
	ErrStaleStage        = errors.New("stale stage")
	ErrPartialAnalysis   = errors.New("partial analysis")
	ErrExternalTool      = errors.New("external tool error")
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns the taxonomy name for err, or "unknown" when no marker matches.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "ConfigurationError"
	case errors.Is(err, ErrNoStreamsFound):
		return "NoStreamsFound"
	case errors.Is(err, ErrConversionTimeout):
		return "ConversionTimeout"
	case errors.Is(err, ErrConversionFailed):
		return "ConversionFailed"
	case errors.Is(err, ErrStaleStage):
		return "StaleStage"
	case errors.Is(err, ErrPartialAnalysis):
		return "PartialAnalysis"
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrExternalTool):
		return "ExternalToolError"
	default:
		return "unknown"
	}
}

// Retryable reports whether a caller may schedule another attempt for err.
// The pipeline itself never retries; this only informs the caller's policy.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrNoStreamsFound),
		errors.Is(err, ErrConversionTimeout),
		errors.Is(err, ErrConversionFailed),
		errors.Is(err, ErrStaleStage):
		return true
	default:
		return false
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
