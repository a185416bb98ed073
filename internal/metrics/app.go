// Package metrics emits relay-domain counters through the global telemetry
// system. All helpers are no-ops until observability.InitMetrics runs.
package metrics

import (
	"strconv"
	"time"

	"github.com/simplifygenai/chatrelay/internal/observability"
)

// Relay metric names following Prometheus conventions
const (
	RelayRequestsTotal   = "relay_requests_total"
	RelayDurationMs      = "relay_upstream_duration_ms"
	RelayStreamChunks    = "relay_stream_chunks_total"
	RelayStreamBytes     = "relay_stream_bytes_total"
	RateLimitRejected    = "rate_limit_rejected_total"
	RateLimitTracked     = "rate_limit_tracked_clients"
	AuthVerifyTotal      = "auth_verify_total"
	FeatureDeniedTotal   = "feature_denied_total"
)

// RecordRelay records one upstream relay call with its outcome.
func RecordRelay(route string, status int, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	labels := map[string]string{
		"route":  route,
		"status": strconv.Itoa(status),
	}

	_ = observability.TelemetrySystem.Counter(RelayRequestsTotal, 1, labels)
	_ = observability.TelemetrySystem.Histogram(RelayDurationMs, duration, map[string]string{
		"route": route,
	})
}

// RecordStreamProgress accumulates passthrough chunk and byte counts for a
// streaming relay.
func RecordStreamProgress(route string, chunks int64, bytes int64) {
	if observability.TelemetrySystem == nil {
		return
	}

	labels := map[string]string{"route": route}
	_ = observability.TelemetrySystem.Counter(RelayStreamChunks, float64(chunks), labels)
	_ = observability.TelemetrySystem.Counter(RelayStreamBytes, float64(bytes), labels)
}

// RecordRateLimited records one rejected admission.
func RecordRateLimited(route string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RateLimitRejected,
			1,
			map[string]string{"route": route},
		)
	}
}

// SetTrackedClients sets the number of client keys the limiter currently holds.
func SetTrackedClients(count int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			RateLimitTracked,
			float64(count),
			nil,
		)
	}
}

// RecordAuthVerify records one identity verification attempt.
func RecordAuthVerify(outcome string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			AuthVerifyTotal,
			1,
			map[string]string{"outcome": outcome},
		)
	}
}

// RecordFeatureDenied records a request to a disabled feature route.
func RecordFeatureDenied(feature string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			FeatureDeniedTotal,
			1,
			map[string]string{"feature": feature},
		)
	}
}
