package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hearingcap/internal/config"
	"hearingcap/internal/hearing"
	"hearingcap/internal/inspect"
	"hearingcap/internal/pipeline"
	"hearingcap/internal/testsupport"
)

const testManifest = "https://www-senate-gov-media-srs.akamaized.net/hls/live/2036779/commerce/commerce062625/master.m3u8"

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	binDir := filepath.Join(base, "bin")
	cfg.Converter.FFmpegBinary = writeStub(t, binDir, "ffmpeg", "for last; do :; done\nprintf RIFF > \"$last\"\n")
	cfg.Converter.FFprobeBinary = writeStub(t, binDir, "ffprobe", "exit 1\n")
	cfg.YouTube.YtdlpBinary = writeStub(t, binDir, "yt-dlp", "exit 1\n")

	configPath := filepath.Join(base, "hearingcap.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeStub(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return path
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
audio_dir = %q

[store]
driver = "sqlite"

[converter]
ffmpeg_binary = %q
ffprobe_binary = %q

[youtube]
ytdlp_binary = %q
`,
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Paths.AudioDir,
		cfg.Converter.FFmpegBinary,
		cfg.Converter.FFprobeBinary,
		cfg.YouTube.YtdlpBinary,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// senateInspector reports the test manifest as a sniffed network request on
// senate.gov pages and nothing elsewhere.
func senateInspector() inspect.Inspector {
	return inspect.InspectorFunc(func(_ context.Context, pageURL string) (inspect.Evidence, error) {
		evidence := inspect.Evidence{PageURL: pageURL}
		if strings.Contains(pageURL, ".senate.gov/") {
			evidence.NetworkRequests = []inspect.Request{{URL: testManifest}}
		}
		return evidence, nil
	})
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	ctx := newCommandContext()
	ctx.pipelineOpts = []pipeline.Option{pipeline.WithInspector(senateInspector())}
	ctx.preflight = func() error { return nil }

	cmd := buildRootCommand(ctx)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func (env *cliTestEnv) openStore(t *testing.T) *hearing.Store {
	t.Helper()
	return testsupport.MustOpenStore(t, env.cfg)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
