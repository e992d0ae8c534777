// Package hearing persists hearing records and enforces their stage
// lifecycle.
//
// A hearing moves one stage at a time from discovered to published. Every
// advancement is a compare-and-swap on the current stage: the SQL store
// issues UPDATE ... WHERE processing_stage = expected so concurrent workers
// in separate processes cannot advance the same hearing twice, and
// MemoryStore applies the same rule under a mutex for single-process use.
//
// Status is a coarser projection of stage configured by the operator
// ([lifecycle] status_mapping). NewStatusMapping rejects mappings that would
// let status regress relative to stage order or report "complete" before
// publication.
package hearing
