package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Output(ctx context.Context, binary string, args []string) (stdout []byte, stderr []byte, err error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client runs yt-dlp with a per-call timeout.
type Client struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// New constructs a yt-dlp client.
func New(binary string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary returns the configured yt-dlp command.
func (c *Client) Binary() string { return c.binary }

// Metadata is the subset of yt-dlp's JSON info dict used for stream descriptors.
type Metadata struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Duration    float64 `json:"duration"`
	UploadDate  string  `json:"upload_date"`
	Uploader    string  `json:"uploader"`
	ChannelURL  string  `json:"channel_url"`
	IsLive      bool    `json:"is_live"`
	WasLive     bool    `json:"was_live"`
	LiveStatus  string  `json:"live_status"`
	WebpageURL  string  `json:"webpage_url"`
	Description string  `json:"description"`
}

// FetchMetadata reads the info dict for a single video without downloading it.
func (c *Client) FetchMetadata(ctx context.Context, videoURL string) (*Metadata, error) {
	stdout, err := c.run(ctx, "-J", "--no-warnings", "--no-playlist", "--skip-download", videoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(stdout, &meta); err != nil {
		return nil, fmt.Errorf("parse metadata JSON: %w", err)
	}
	if meta.ID == "" {
		return nil, errors.New("invalid metadata: missing or empty id")
	}
	return &meta, nil
}

// ResolveAudioURL returns a direct media URL for the best audio-only format,
// falling back to the best combined format.
func (c *Client) ResolveAudioURL(ctx context.Context, videoURL string) (string, error) {
	stdout, err := c.run(ctx, "-g", "-f", "bestaudio/best", "--no-warnings", "--no-playlist", videoURL)
	if err != nil {
		return "", fmt.Errorf("resolve audio url: %w", err)
	}
	for _, line := range strings.Split(string(stdout), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			return line, nil
		}
	}
	return "", errors.New("resolve audio url: yt-dlp printed no url")
}

func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	stdout, stderr, err := c.exec.Output(ctx, c.binary, args)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s timed out after %s: %w", c.binary, c.timeout, ctx.Err())
		}
		if detail := strings.TrimSpace(string(stderr)); detail != "" {
			return nil, fmt.Errorf("%w: %s", err, detail)
		}
		return nil, err
	}
	return stdout, nil
}

type commandExecutor struct{}

func (commandExecutor) Output(ctx context.Context, binary string, args []string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
