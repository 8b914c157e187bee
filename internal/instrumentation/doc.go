// Package instrumentation holds the Prometheus collectors and the OpenTelemetry
// tracer provider used by the HTTP layer and the Google API clients.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without observability in tests.
package instrumentation
