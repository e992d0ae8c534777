// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe in metadata-only mode against a local file or URL.
// Result helpers report duration, size and the primary audio stream, with an
// explicit ok flag when ffprobe did not report a usable value.
package ffprobe
