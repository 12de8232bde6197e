// Package instrumentation provides OpenTelemetry (OTEL) instrumentation for
// the vcs-auth library.
//
// This package enables observability across all library layers through:
//   - Metrics: counters, histograms, and gauges for token lifecycle, storage,
//     provider API, and security operations
//   - Traces: distributed tracing for refresh flows and provider calls
//
// # Quick Start
//
//	inst, err := instrumentation.New(instrumentation.Config{
//		ServiceName:    "dashboard-api",
//		ServiceVersion: "1.0.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer inst.Shutdown(context.Background())
//
// Pass the instance to stores and registries via their SetInstrumentation
// methods. When Config.Enabled is false, all providers are no-ops and the
// instruments cost nothing to record against.
//
// # Scopes
//
// Meters and tracers are namespaced per layer: "lifecycle" for token refresh
// and exchange, "storage" for credential persistence, "provider" for outbound
// VCS API calls, and "security" for encryption and rate limiting.
package instrumentation
