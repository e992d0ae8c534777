// Package config loads, normalizes, and validates hearingcap configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// HEARINGCAP_DATABASE_URL. The Config type centralizes every knob the capture
// daemon and CLI need: storage, browser inspection, transcoding, lifecycle
// status mapping, and logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
