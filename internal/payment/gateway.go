package payment

import (
	"context"
	"errors"
)

// Status is the gateway-reported outcome of one payment attempt.
type Status string

const (
	StatusCompleted Status = "Completed"
	StatusPending   Status = "Pending"
	StatusFailed    Status = "Failed"
	StatusUnknown   Status = "Unknown"
)

var (
	// ErrGatewayUnavailable covers network failures and gateway 5xx
	// responses. Callers may retry with backoff.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrGatewayRejected covers gateway 4xx responses. The attempt is
	// permanently rejected and must not be retried as-is.
	ErrGatewayRejected = errors.New("payment gateway rejected request")
)

// Initiation is the gateway's answer to a new payment request.
type Initiation struct {
	CorrelationID string
	RedirectURL   string
}

// Gateway is the thin adapter over the external payment provider.
// Lookup is read-only against the provider and safe to call repeatedly.
type Gateway interface {
	Initiate(ctx context.Context, orderRef string, amount int64) (*Initiation, error)
	Lookup(ctx context.Context, correlationID string) (Status, error)
}
