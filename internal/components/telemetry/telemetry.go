package telemetry

import (
	"fmt"
)

// API is what alerts components log and count through. Tests swap in a
// Recorder to assert that a failure was reported.
type API interface {
	// ReportBroken reports a component that failed and needs attention.
	//
	// The id names the component, not the line that failed: a missing state
	// script in the alerts page is `session.fetch-state`. Put the detail in
	// params or in the wrapped error.
	//
	// Ids are lowercase, dotted by component, with dashes inside a method
	// name (`session.fetch-state`, `repository.mutate`).
	ReportBroken(id string, params ...any)

	// ReportWarning reports something odd that did not stop the operation,
	// a stale session or a non-200 mutation. Ids follow ReportBroken.
	ReportWarning(id string, params ...any)

	// ReportDebug is only shown with --verbose.
	ReportDebug(msg string, params ...any)

	// ReportCount records a point-in-time count, the number of monitors
	// after a list or the sequence number of an http request. Points are
	// not summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace so the session, the
// repository and the http client can share one sink.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scoped(id string) string {
	return fmt.Sprintf("%s: %s", s.namespace, id)
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scoped(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scoped(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scoped(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scoped(id), count)
}
