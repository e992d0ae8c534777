package convert

import (
	"context"
	"io"
	"os/exec"
	"time"

	"hearingcap/internal/media/ffprobe"
)

// waitDelay bounds how long Wait blocks on output pipes after a kill.
const waitDelay = 5 * time.Second

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, stderr io.Writer) error
}

// Prober reads duration metadata from a finished output file.
type Prober interface {
	Probe(ctx context.Context, path string) (ffprobe.Result, error)
}

// Resolver turns a YouTube watch URL into a direct media URL ffmpeg can read.
type Resolver interface {
	ResolveAudioURL(ctx context.Context, videoURL string) (string, error)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdout = io.Discard
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay
	isolateProcessGroup(cmd)
	return cmd.Run()
}

type ffprobeProber struct {
	binary string
}

func (p ffprobeProber) Probe(ctx context.Context, path string) (ffprobe.Result, error) {
	return ffprobe.Inspect(ctx, p.binary, path)
}
