package ffprobe

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result, err := Parse([]byte(`{
		"streams": [{"index":0,"codec_type":"audio","codec_name":"pcm_s16le","sample_rate":"16000","channels":1,"duration":"60.5"}],
		"format": {"duration":"61.25","size":"1936000","format_name":"wav"}
	}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got, ok := result.Duration(); !ok || got != 61.25 {
		t.Fatalf("unexpected duration %v %v", got, ok)
	}
	if result.SizeBytes() != 1936000 {
		t.Fatalf("unexpected size %d", result.SizeBytes())
	}
	audio, ok := result.AudioStream()
	if !ok || audio.CodecName != "pcm_s16le" || audio.Channels != 1 {
		t.Fatalf("unexpected audio stream %+v", audio)
	}
}

func TestDurationFallsBackToStream(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "video"}, {CodecType: "audio", Duration: "42"}},
		Format:  Format{Duration: "N/A"},
	}
	if got, ok := result.Duration(); !ok || got != 42 {
		t.Fatalf("expected stream duration fallback, got %v %v", got, ok)
	}
}

func TestDurationUnavailable(t *testing.T) {
	cases := []Result{
		{},
		{Format: Format{Duration: "bad"}},
		{Format: Format{Duration: "-1"}, Streams: []Stream{{CodecType: "audio", Duration: "nope"}}},
	}
	for _, result := range cases {
		if got, ok := result.Duration(); ok {
			t.Fatalf("expected no duration for %+v, got %v", result, got)
		}
	}
	if (Result{Format: Format{Size: "-1"}}).SizeBytes() != 0 {
		t.Fatal("expected negative size to report 0")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestInspectUsesBinary(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "ffprobe")
	script := "#!/bin/sh\necho '{\"streams\":[],\"format\":{\"duration\":\"12.5\"}}'\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	result, err := Inspect(context.Background(), stub, "/tmp/audio.wav")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if got, ok := result.Duration(); !ok || got != 12.5 {
		t.Fatalf("unexpected duration %v %v", got, ok)
	}
	if _, err := Inspect(context.Background(), stub, "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
