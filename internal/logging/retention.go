package logging

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const rotatedLogPattern = "hearingcap-*.log"

// RotateLog moves an existing daemon log aside as hearingcap-<timestamp>.log so
// each daemon run starts a fresh file. A missing log is not an error.
func RotateLog(dir string, now time.Time) (string, error) {
	current := filepath.Join(dir, LogFileName)
	if _, err := os.Stat(current); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("stat daemon log: %w", err)
	}
	rotated := filepath.Join(dir, fmt.Sprintf("hearingcap-%s.log", now.UTC().Format("20060102T150405Z")))
	if err := os.Rename(current, rotated); err != nil {
		return "", fmt.Errorf("rotate daemon log: %w", err)
	}
	return rotated, nil
}

// PruneRotatedLogs removes rotated daemon logs older than retentionDays.
// A retentionDays value of 0 disables pruning.
func PruneRotatedLogs(logger *slog.Logger, dir string, retentionDays int, now time.Time) int {
	if retentionDays <= 0 || strings.TrimSpace(dir) == "" {
		return 0
	}
	cutoff := now.AddDate(0, 0, -retentionDays)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if matched, _ := filepath.Match(rotatedLogPattern, entry.Name()); !matched {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check file permissions and log_dir ownership"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("log pruned", String("path", path), String(FieldEventType, "log_pruned"))
		}
	}
	return removed
}
