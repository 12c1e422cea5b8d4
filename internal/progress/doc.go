// Package progress turns batch results into run events and fans them out to
// pluggable sinks such as the console status printer, structured logs, or
// Prometheus collectors. Delivery is synchronous and in emission order.
package progress
