// Package progress carries run and fetch-task milestones from the workers to
// pluggable sinks. Emitting never blocks a fetch; a background goroutine
// batches events and fans them out to log, metrics, and tally sinks.
package progress
