// Package sinks implements concrete progress consumers: the console status
// printer, structured logging, and Prometheus collectors. Each sink
// satisfies progress.Sink.
package sinks
