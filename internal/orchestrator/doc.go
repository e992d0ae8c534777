// Package orchestrator detects which platform serves a hearing page and runs
// the matching extractors in order, falling back to the next one when an
// extractor finds nothing.
//
// Extractors run one at a time within a call. Concurrent browser sessions
// against the same committee site trip anti-automation defenses, so
// parallelism belongs at the hearing level, not here.
package orchestrator
