package telemetry

// API is how every component of the pipeline logs and counts. Components take it
// as a dependency so tests can swap in a Recorder.
//
// Ids name the component that reported, not the line that did: `client.request`,
// `pipeline.process-filing`. They are lowercase, with underscores in package
// names and dashes in method names. Wrap an API in a ScopedAPI to prefix the
// package instead of spelling it out in every id.
type API interface {
	// ReportBroken reports a failure that needs attention.
	ReportBroken(id string, params ...any)
	// ReportWarning reports input the pipeline skipped or could not fully use,
	// such as a malformed search row or an unresolved filer.
	ReportWarning(id string, params ...any)
	ReportDebug(msg string, params ...any)
	// ReportCount reports a running total, each call replaces the previous value.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id it reports with a namespace.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scope(id string) string {
	return s.namespace + ": " + id
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scope(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scope(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scope(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scope(id), count)
}
