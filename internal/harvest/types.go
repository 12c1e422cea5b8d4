// Package harvest defines the per-item pipeline shared by every execution
// strategy: fetch one topic from a content source, persist its payload, and
// summarise the outcome as a serialisable Result.
package harvest

import "time"

// ErrorKind classifies why an item was skipped. The zero value means success.
type ErrorKind string

// Supported failure classifications.
const (
	KindNone               ErrorKind = ""
	KindNotFound           ErrorKind = "not_found"
	KindAmbiguousMatch     ErrorKind = "ambiguous_match"
	KindTimeout            ErrorKind = "timeout"
	KindOrchestrationFault ErrorKind = "orchestration_fault"
	KindUnexpected         ErrorKind = "unexpected"
)

// Label returns a low-cardinality label for metrics and logs.
func (k ErrorKind) Label() string {
	if k == KindNone {
		return "none"
	}
	return string(k)
}

// Page is the detail record returned by a ContentSource.
type Page struct {
	// Title is the canonical name after redirects and normalisation.
	Title string
	// References are the page's external links in source order.
	References []string
}

// Outcome is the result of processing one identifier before persistence.
type Outcome struct {
	Identifier    string
	CanonicalName string
	Payload       []string
	Kind          ErrorKind
	Detail        string
}

// OK reports whether the outcome carries a payload to persist.
func (o Outcome) OK() bool {
	return o.Kind == KindNone
}

// Result summarises a fully handled item. It is the only value that crosses
// the worker-process boundary, so every field must survive JSON encoding.
type Result struct {
	Identifier string        `json:"identifier"`
	Key        string        `json:"key,omitempty"`
	Kind       ErrorKind     `json:"kind,omitempty"`
	Detail     string        `json:"detail,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
}

// OK reports whether the item was written.
func (r Result) OK() bool {
	return r.Kind == KindNone
}

// Fault builds the Result used when the orchestration layer, not the
// pipeline, lost an item.
func Fault(identifier string, detail string) Result {
	return Result{
		Identifier: identifier,
		Kind:       KindOrchestrationFault,
		Detail:     detail,
	}
}

// Aggregate tallies a batch. OK+Skipped always equals the number of
// identifiers submitted to a strategy.
type Aggregate struct {
	OK      int
	Skipped int
}

// Add counts one result.
func (a *Aggregate) Add(r Result) {
	if r.OK() {
		a.OK++
		return
	}
	a.Skipped++
}

// Total returns the number of results counted.
func (a Aggregate) Total() int {
	return a.OK + a.Skipped
}
