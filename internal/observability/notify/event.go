package notify

import (
	"context"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// ProvisionFailurePayload captures the canonical data we emit when account
// provisioning stops part-way, leaving an orphaned identity at the provider.
type ProvisionFailurePayload struct {
	Subject    string
	Email      string
	Group      string
	FailedStep string
	Error      string
	Severity   string
	OccurredAt time.Time
	Metadata   map[string]string
}

// Sink describes a destination capable of consuming provisioning failure notifications.
type Sink interface {
	SendProvisionFailure(ctx context.Context, payload ProvisionFailurePayload) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, payload ProvisionFailurePayload) error

// SendProvisionFailure implements the Sink interface.
func (f SinkFunc) SendProvisionFailure(ctx context.Context, payload ProvisionFailurePayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
