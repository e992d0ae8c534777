package convert_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"hearingcap/internal/convert"
	"hearingcap/internal/extract"
	"hearingcap/internal/media/ffprobe"
	"hearingcap/internal/services"
)

type stubExecutor struct {
	mu      sync.Mutex
	calls   int
	args    []string
	binary  string
	stderr  string
	write   string
	err     error
	block   bool
	started chan struct{}
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, stderr io.Writer) error {
	s.mu.Lock()
	s.calls++
	s.binary = binary
	s.args = append([]string(nil), args...)
	s.mu.Unlock()
	output := args[len(args)-1]
	if s.write != "" {
		if err := os.WriteFile(output, []byte(s.write), 0o644); err != nil {
			return err
		}
	}
	if s.stderr != "" {
		_, _ = io.WriteString(stderr, s.stderr)
	}
	if s.block {
		if s.started != nil {
			close(s.started)
		}
		<-ctx.Done()
		return ctx.Err()
	}
	return s.err
}

type stubProber struct {
	result ffprobe.Result
	err    error
}

func (s stubProber) Probe(context.Context, string) (ffprobe.Result, error) {
	return s.result, s.err
}

type stubResolver struct {
	url string
	err error
}

func (s stubResolver) ResolveAudioURL(context.Context, string) (string, error) {
	return s.url, s.err
}

func baseSettings() convert.Settings {
	return convert.Settings{
		FFmpegBinary:  "ffmpeg",
		FFprobeBinary: "ffprobe",
		Timeout:       5 * time.Second,
		Format:        convert.FormatWAV,
		Quality:       "medium",
		SampleRate:    16000,
		Channels:      1,
	}
}

func hlsStream() extract.StreamDescriptor {
	return extract.StreamDescriptor{
		URL:        "https://www-senate-gov-media-srs.akamaized.net/hls/live/2036779/commerce/commerce062625/master.m3u8",
		FormatType: extract.FormatHLS,
		Metadata: map[string]string{
			extract.MetaSource:    extract.SourceNetwork,
			extract.MetaReferer:   "https://www.commerce.senate.gov/2025/6/nominations",
			extract.MetaUserAgent: "hearingcap-test",
		},
	}
}

func newConverter(t *testing.T, settings convert.Settings, opts ...convert.Option) *convert.Converter {
	t.Helper()
	conv, err := convert.New(settings, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return conv
}

func argValue(args []string, flag string) (string, bool) {
	idx := slices.Index(args, flag)
	if idx < 0 || idx+1 >= len(args) {
		return "", false
	}
	return args[idx+1], true
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := convert.New(convert.Settings{}); err == nil {
		t.Fatal("expected error for missing ffmpeg binary")
	}
}

func TestConvertSuccessBuildsHLSArgs(t *testing.T) {
	exec := &stubExecutor{write: "RIFF"}
	prober := stubProber{result: ffprobe.Result{Format: ffprobe.Format{Duration: "5421.50"}}}
	conv := newConverter(t, baseSettings(), convert.WithExecutor(exec), convert.WithProber(prober))

	output := filepath.Join(t.TempDir(), "nested", "hearing.wav")
	result := conv.Convert(context.Background(), hlsStream(), output, convert.Request{})
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.OutputPath != output || result.FileSizeBytes != 4 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.DurationSeconds == nil || *result.DurationSeconds != 5421.5 {
		t.Fatalf("expected duration 5421.5, got %v", result.DurationSeconds)
	}
	if result.Err != nil || result.ErrorMessage != "" {
		t.Fatalf("unexpected error on success: %+v", result)
	}

	args := exec.args
	if got, _ := argValue(args, "-headers"); got != "Referer: https://www.commerce.senate.gov/2025/6/nominations\r\n" {
		t.Fatalf("unexpected referer header %q", got)
	}
	if got, _ := argValue(args, "-user_agent"); got != "hearingcap-test" {
		t.Fatalf("unexpected user agent %q", got)
	}
	if _, ok := argValue(args, "-protocol_whitelist"); !ok {
		t.Fatalf("expected protocol whitelist for hls input: %v", args)
	}
	if got, _ := argValue(args, "-c:a"); got != "pcm_s16le" {
		t.Fatalf("unexpected codec %q", got)
	}
	if got, _ := argValue(args, "-ar"); got != "16000" {
		t.Fatalf("unexpected sample rate %q", got)
	}
	if got, _ := argValue(args, "-ac"); got != "1" {
		t.Fatalf("unexpected channels %q", got)
	}
	if !slices.Contains(args, "-vn") {
		t.Fatalf("expected -vn in %v", args)
	}
	if _, ok := argValue(args, "-t"); ok {
		t.Fatalf("did not expect duration limit: %v", args)
	}
	if slices.Index(args, "-headers") > slices.Index(args, "-i") {
		t.Fatalf("input options must precede -i: %v", args)
	}
}

func TestConvertFormatFromExtensionAndLimit(t *testing.T) {
	exec := &stubExecutor{write: "ID3"}
	conv := newConverter(t, baseSettings(), convert.WithExecutor(exec), convert.WithProber(stubProber{}))

	output := filepath.Join(t.TempDir(), "hearing.MP3")
	result := conv.Convert(context.Background(), hlsStream(), output, convert.Request{
		DurationLimit: 30 * time.Second,
		Format:        convert.FormatFLAC,
		Quality:       "high",
	})
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if got, _ := argValue(exec.args, "-c:a"); got != "libmp3lame" {
		t.Fatalf("extension should pick mp3, got codec %q", got)
	}
	if got, _ := argValue(exec.args, "-b:a"); got != "192k" {
		t.Fatalf("unexpected bitrate %q", got)
	}
	if got, _ := argValue(exec.args, "-t"); got != "30" {
		t.Fatalf("unexpected limit %q", got)
	}
	if got, _ := argValue(exec.args, "-f"); got != "mp3" {
		t.Fatalf("unexpected muxer %q", got)
	}
	if result.Metadata["format"] != "mp3" {
		t.Fatalf("unexpected metadata %v", result.Metadata)
	}
}

func TestConvertRejectsUnknownFormat(t *testing.T) {
	exec := &stubExecutor{write: "x"}
	conv := newConverter(t, baseSettings(), convert.WithExecutor(exec))
	output := filepath.Join(t.TempDir(), "hearing.bin")
	result := conv.Convert(context.Background(), hlsStream(), output, convert.Request{Format: "ogg"})
	if result.Success || exec.calls != 0 {
		t.Fatalf("expected rejection before ffmpeg, got %+v calls=%d", result, exec.calls)
	}
	if !errors.Is(result.Err, services.ErrConversionFailed) {
		t.Fatalf("expected ErrConversionFailed, got %v", result.Err)
	}
}

func TestConvertFailureRemovesPartialOutput(t *testing.T) {
	exec := &stubExecutor{
		write:  "partial",
		stderr: "[https @ 0x1] Connection refused\nError opening input file\n",
		err:    errors.New("exit status 1"),
	}
	conv := newConverter(t, baseSettings(), convert.WithExecutor(exec), convert.WithProber(stubProber{}))

	output := filepath.Join(t.TempDir(), "hearing.wav")
	result := conv.Convert(context.Background(), hlsStream(), output, convert.Request{})
	if result.Success {
		t.Fatal("expected failure")
	}
	if !errors.Is(result.Err, services.ErrConversionFailed) {
		t.Fatalf("expected ErrConversionFailed, got %v", result.Err)
	}
	if !strings.Contains(result.ErrorMessage, "Error opening input file") {
		t.Fatalf("expected stderr tail in message, got %q", result.ErrorMessage)
	}
	if _, err := os.Stat(output); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected partial output removed, stat err=%v", err)
	}
}

func TestConvertEmptyOutputFails(t *testing.T) {
	exec := &stubExecutor{}
	conv := newConverter(t, baseSettings(), convert.WithExecutor(exec))
	output := filepath.Join(t.TempDir(), "hearing.wav")
	if err := os.WriteFile(output, nil, 0o644); err != nil {
		t.Fatalf("seed output: %v", err)
	}
	result := conv.Convert(context.Background(), hlsStream(), output, convert.Request{})
	if result.Success {
		t.Fatal("expected failure for empty output")
	}
	if _, err := os.Stat(output); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected empty output removed, stat err=%v", err)
	}
}

func TestConvertTimeout(t *testing.T) {
	settings := baseSettings()
	settings.Timeout = 50 * time.Millisecond
	exec := &stubExecutor{write: "partial", block: true}
	conv := newConverter(t, settings, convert.WithExecutor(exec))

	output := filepath.Join(t.TempDir(), "hearing.wav")
	result := conv.Convert(context.Background(), hlsStream(), output, convert.Request{})
	if result.Success {
		t.Fatal("expected timeout failure")
	}
	if !errors.Is(result.Err, services.ErrConversionTimeout) {
		t.Fatalf("expected ErrConversionTimeout, got %v", result.Err)
	}
	if services.Kind(result.Err) != "ConversionTimeout" {
		t.Fatalf("unexpected kind %q", services.Kind(result.Err))
	}
	if _, err := os.Stat(output); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected partial output removed, stat err=%v", err)
	}
}

func TestConvertCanceledBeforeStart(t *testing.T) {
	exec := &stubExecutor{write: "x"}
	conv := newConverter(t, baseSettings(), convert.WithExecutor(exec))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := conv.Convert(ctx, hlsStream(), filepath.Join(t.TempDir(), "hearing.wav"), convert.Request{})
	if result.Success || exec.calls != 0 {
		t.Fatalf("expected no ffmpeg run after cancel, got %+v calls=%d", result, exec.calls)
	}
}

func TestConvertIgnoresCancelAfterStart(t *testing.T) {
	started := make(chan struct{})
	settings := baseSettings()
	settings.Timeout = 200 * time.Millisecond
	exec := &stubExecutor{block: true, started: started}
	conv := newConverter(t, settings, convert.WithExecutor(exec))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan convert.ConversionResult, 1)
	go func() {
		done <- conv.Convert(ctx, hlsStream(), filepath.Join(t.TempDir(), "hearing.wav"), convert.Request{})
	}()
	<-started
	cancel()
	result := <-done
	if !errors.Is(result.Err, services.ErrConversionTimeout) {
		t.Fatalf("running conversion should only stop on its own timeout, got %v", result.Err)
	}
}

func TestConvertProbeFailureKeepsSuccess(t *testing.T) {
	exec := &stubExecutor{write: "RIFF"}
	conv := newConverter(t, baseSettings(), convert.WithExecutor(exec), convert.WithProber(stubProber{err: errors.New("ffprobe missing")}))
	result := conv.Convert(context.Background(), hlsStream(), filepath.Join(t.TempDir(), "hearing.wav"), convert.Request{})
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.DurationSeconds != nil {
		t.Fatalf("expected absent duration, got %v", *result.DurationSeconds)
	}
}

func TestConvertYouTubeRequiresResolver(t *testing.T) {
	exec := &stubExecutor{write: "x"}
	conv := newConverter(t, baseSettings(), convert.WithExecutor(exec))
	stream := extract.StreamDescriptor{URL: "https://www.youtube.com/watch?v=XYZ", FormatType: extract.FormatYouTube}
	result := conv.Convert(context.Background(), stream, filepath.Join(t.TempDir(), "hearing.wav"), convert.Request{})
	if result.Success || exec.calls != 0 {
		t.Fatalf("expected failure without resolver, got %+v", result)
	}
}

func TestConvertYouTubeUsesResolvedURL(t *testing.T) {
	exec := &stubExecutor{write: "RIFF"}
	resolver := stubResolver{url: "https://rr1.googlevideo.com/videoplayback?id=XYZ"}
	conv := newConverter(t, baseSettings(), convert.WithExecutor(exec), convert.WithProber(stubProber{}), convert.WithResolver(resolver))
	stream := extract.StreamDescriptor{URL: "https://www.youtube.com/watch?v=XYZ", FormatType: extract.FormatYouTube}

	result := conv.Convert(context.Background(), stream, filepath.Join(t.TempDir(), "hearing.wav"), convert.Request{})
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if got, _ := argValue(exec.args, "-i"); got != resolver.url {
		t.Fatalf("expected resolved input, got %q", got)
	}
	if _, ok := argValue(exec.args, "-protocol_whitelist"); ok {
		t.Fatalf("did not expect hls whitelist for direct media: %v", exec.args)
	}
}

func TestConvertYouTubeResolveFailure(t *testing.T) {
	exec := &stubExecutor{write: "x"}
	conv := newConverter(t, baseSettings(), convert.WithExecutor(exec), convert.WithResolver(stubResolver{err: errors.New("video unavailable")}))
	stream := extract.StreamDescriptor{URL: "https://www.youtube.com/watch?v=XYZ", FormatType: extract.FormatYouTube}
	result := conv.Convert(context.Background(), stream, filepath.Join(t.TempDir(), "hearing.wav"), convert.Request{})
	if result.Success || !strings.Contains(result.ErrorMessage, "video unavailable") {
		t.Fatalf("expected resolve failure, got %+v", result)
	}
}

func TestConvertRejectsInvalidStream(t *testing.T) {
	exec := &stubExecutor{write: "x"}
	conv := newConverter(t, baseSettings(), convert.WithExecutor(exec))
	stream := extract.StreamDescriptor{URL: "master.m3u8", FormatType: extract.FormatHLS}
	result := conv.Convert(context.Background(), stream, filepath.Join(t.TempDir(), "hearing.wav"), convert.Request{})
	if result.Success || exec.calls != 0 {
		t.Fatalf("expected validation failure, got %+v", result)
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a unix shell")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestConvertUnreachableStreamWithRealProcess(t *testing.T) {
	script := writeScript(t, `for last; do :; done
printf partial > "$last"
echo "https://example.invalid/master.m3u8: Connection refused" >&2
exit 1
`)
	settings := baseSettings()
	settings.FFmpegBinary = script
	conv := newConverter(t, settings, convert.WithProber(stubProber{}))

	output := filepath.Join(t.TempDir(), "hearing.wav")
	stream := extract.StreamDescriptor{URL: "https://example.invalid/master.m3u8", FormatType: extract.FormatHLS}
	result := conv.Convert(context.Background(), stream, output, convert.Request{})
	if result.Success {
		t.Fatal("expected failure for unreachable stream")
	}
	if !strings.Contains(result.ErrorMessage, "Connection refused") {
		t.Fatalf("expected stderr in message, got %q", result.ErrorMessage)
	}
	if _, err := os.Stat(output); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no output file, stat err=%v", err)
	}
}

func TestConvertTimeoutKillsRealProcess(t *testing.T) {
	script := writeScript(t, "sleep 30\n")
	settings := baseSettings()
	settings.FFmpegBinary = script
	settings.Timeout = 200 * time.Millisecond
	conv := newConverter(t, settings, convert.WithProber(stubProber{}))

	start := time.Now()
	result := conv.Convert(context.Background(), hlsStream(), filepath.Join(t.TempDir(), "hearing.wav"), convert.Request{})
	if !errors.Is(result.Err, services.ErrConversionTimeout) {
		t.Fatalf("expected timeout, got %v", result.Err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("ffmpeg was not killed promptly: %s", elapsed)
	}
}

func TestFormatFromPath(t *testing.T) {
	cases := map[string]string{
		"/tmp/a.wav":  "wav",
		"/tmp/a.FLAC": "flac",
		"a.mp3":       "mp3",
		"a.ogg":       "",
		"noext":       "",
	}
	for path, want := range cases {
		if got := convert.FormatFromPath(path); got != want {
			t.Errorf("FormatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestWriteSidecarOmitsUnknownDuration(t *testing.T) {
	output := filepath.Join(t.TempDir(), "hearing.wav")
	result := convert.ConversionResult{Success: true, OutputPath: output, FileSizeBytes: 10}
	if err := convert.WriteSidecar(result); err != nil {
		t.Fatalf("WriteSidecar: %v", err)
	}
	data, err := os.ReadFile(convert.SidecarPath(output))
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode sidecar: %v", err)
	}
	if _, ok := decoded["duration_seconds"]; ok {
		t.Fatalf("duration should be omitted: %s", data)
	}
	if decoded["success"] != true || decoded["output_path"] != output {
		t.Fatalf("unexpected sidecar %s", data)
	}
	if err := convert.WriteSidecar(convert.ConversionResult{}); err == nil {
		t.Fatal("expected error without output path")
	}
}
