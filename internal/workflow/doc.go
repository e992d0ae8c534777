// Package workflow drives hearings through the stages the core owns.
//
// The Manager polls the hearing store for work at each registered handler's
// stage and runs up to workflow.workers hearings concurrently. The analyze
// handler (discovered -> analyzed) classifies every stream URL and relies on
// the lifecycle's confidence gate; the capture handler (analyzed -> captured)
// extracts stream candidates and converts the first one that succeeds.
// Later stages belong to external transcription and review services.
//
// Failures are recorded on the hearing and never retried automatically; an
// operator clears them with `hearingcap hearings retry`.
package workflow
