// Package metrics provides standardised metric emission helpers over the
// StatsD sink.
package metrics

import (
	"time"

	obserrors "github.com/edbridge/portal-api/internal/observability/errors"
	"github.com/edbridge/portal-api/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultAllowed = "allowed"
	ResultDenied  = "denied"
)

// AuthDecisionMetric captures details about one access decision for metric emission.
type AuthDecisionMetric struct {
	Allowed  bool
	Reason   string
	Duration time.Duration
	Err      error
}

// EmitAuthDecision emits standardised access decision metrics.
func EmitAuthDecision(sink statsd.Sink, in AuthDecisionMetric) {
	if sink == nil {
		return
	}

	result := ResultDenied
	if in.Allowed {
		result = ResultAllowed
	}

	tags := map[string]string{
		"result": result,
		"reason": in.Reason,
	}

	if in.Err != nil && !in.Allowed {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("auth.decision", 1, tags)

	if in.Duration > 0 {
		sink.Timing("auth.decision_duration", in.Duration, CloneTags(tags))
	}
}

// EmitProviderRetry counts a retried identity provider call.
func EmitProviderRetry(sink statsd.Sink, operation string, err error) {
	if sink == nil {
		return
	}
	tags := map[string]string{"operation": operation}
	if class := obserrors.Classify(err); class != "" {
		tags["error_class"] = class
	}
	sink.Count("idp.retry", 1, tags)
}

// EmitKeySetRefresh counts a signing key set refresh attempt.
func EmitKeySetRefresh(sink statsd.Sink, result string) {
	if sink == nil {
		return
	}
	sink.Count("jwks.refresh", 1, map[string]string{"result": result})
}

// CloneTags creates a shallow copy of a tag map, filtering out empty maps.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
