package services_test

import (
	"errors"
	"strings"
	"testing"

	"hearingcap/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrConversionFailed, "converter", "ffmpeg", "https://example.test/a.m3u8", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrConversionFailed) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"converter", "ffmpeg", "https://example.test/a.m3u8"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestKindAndRetryable(t *testing.T) {
	cases := []struct {
		err       error
		kind      string
		retryable bool
	}{
		{services.Wrap(services.ErrNoStreamsFound, "orchestrator", "extract", "url", nil), "NoStreamsFound", true},
		{services.Wrap(services.ErrConversionTimeout, "converter", "run", "url", nil), "ConversionTimeout", true},
		{services.Wrap(services.ErrConversionFailed, "converter", "run", "url", nil), "ConversionFailed", true},
		{services.Wrap(services.ErrStaleStage, "lifecycle", "advance", "hearing 1", nil), "StaleStage", true},
		{services.Wrap(services.ErrConfiguration, "committee", "load", "bad", nil), "ConfigurationError", false},
		{errors.New("plain"), "unknown", false},
	}
	for _, tc := range cases {
		if got := services.Kind(tc.err); got != tc.kind {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.kind)
		}
		if got := services.Retryable(tc.err); got != tc.retryable {
			t.Fatalf("Retryable(%v) = %v, want %v", tc.err, got, tc.retryable)
		}
	}
	if services.Kind(nil) != "" {
		t.Fatal("expected empty kind for nil")
	}
}
