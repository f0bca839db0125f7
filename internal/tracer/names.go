package tracer

// Span names. One span per run, one per action inside it, one per upstream
// call the action makes.
const (
	SpanRunExecute    = "run.execute"
	SpanRunAction     = "run.action"
	SpanDirectoryCall = "directory.call"
	SpanTokenExchange = "broker.exchange"
)

// Attribute keys shared across the engine's spans.
const (
	AttrTenantID   = "tenant_id"
	AttrRunID      = "run_id"
	AttrSubject    = "subject"
	AttrActionName = "action"
	AttrAttempt    = "attempt"
	AttrStatusCode = "http.status_code"
	AttrCacheHit   = "cache.hit"
	AttrOutcome    = "outcome"
)

// Event names.
const (
	EventRetryScheduled = "retry.scheduled"
	EventTokenRefreshed = "token.refreshed"
	EventRunCancelled   = "run.cancelled"
)
