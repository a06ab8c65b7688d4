// Package pipeline normalizes located fuzzing runs.
//
// A Dispatcher fans out over runs with a bounded errgroup. Each run goes
// through its own Pipeline of steps: prepare-output, normalize,
// deduplicate, copy-metadata and, when a Recorder is configured, record.
// A failing run is logged and reported in the Summary; it never stops
// its siblings. Unknown engine or target tokens are setup errors and
// abort the batch before any output is written.
package pipeline
