// Package sinks implements progress consumers: structured logging, Prometheus
// collectors, and an in-memory tally that backs the run status endpoint.
package sinks
