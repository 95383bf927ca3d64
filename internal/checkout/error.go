package checkout

import "errors"

var (
	// -- Validation & Input --
	ErrNoItems          = errors.New("checkout has no items")
	ErrInvalidQuantity  = errors.New("item quantity must be greater than zero")
	ErrInvalidMethod    = errors.New("unsupported payment method")

	// -- Resource State --
	ErrSessionNotFound = errors.New("checkout session not found")
	ErrInvalidState    = errors.New("operation not allowed in current session state")

	// ErrConflict means a status compare-and-swap lost a race: the session's
	// status changed between read and commit. Callers should re-read and,
	// for idempotent operations, adopt the winner's result.
	ErrConflict = errors.New("checkout session was modified concurrently")

	// ErrCorrelationMismatch means a caller supplied a payment reference
	// that does not belong to the session. Security-relevant; rejected
	// outright without touching the gateway or session state.
	ErrCorrelationMismatch = errors.New("payment reference does not match session")
)
