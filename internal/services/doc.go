// Package services defines shared utilities consumed by the extraction,
// conversion, and lifecycle packages.
//
// Key responsibilities:
//   - Context helpers that stamp hearing IDs, stage names, and correlation
//     identifiers for logging.
//   - The error taxonomy (configuration, no streams, conversion timeout or
//     failure, stale stage, partial analysis) plus the Wrap helper that tags
//     failures with a marker callers can test with errors.Is.
//
// Use these helpers when wiring new pipeline code so error classification and
// observability stay uniform across the capture path.
package services
