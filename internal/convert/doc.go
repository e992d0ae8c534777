// Package convert transcodes a chosen stream into a local audio file with
// ffmpeg and reports the outcome as a ConversionResult.
//
// The ffmpeg subprocess runs in its own process group under a hard timeout
// and is detached from caller cancellation once started; a canceled context
// only prevents a conversion from starting. Partial output never survives a
// failed conversion.
package convert
