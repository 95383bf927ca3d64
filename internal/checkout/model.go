package checkout

import (
	"time"

	"github.com/google/uuid"
)

// Status is the checkout session state. Finalized and Failed are terminal.
type Status string

const (
	StatusPending          Status = "PENDING"
	StatusPaymentInitiated Status = "PAYMENT_INITIATED"
	StatusPaid             Status = "PAID"
	StatusFinalized        Status = "FINALIZED"
	StatusFailed           Status = "FAILED"
)

// PaymentMethod identifies the payment channel chosen at checkout.
type PaymentMethod string

const (
	MethodKhalti         PaymentMethod = "KHALTI"
	MethodCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
)

// Session is the durable record spanning cart capture through payment to
// order creation. Sessions are never deleted; terminal sessions remain as an
// audit trail.
type Session struct {
	ID      uuid.UUID
	OwnerID uint
	Status  Status

	Items           []LineItem
	ShippingAddress Address
	PaymentMethod   PaymentMethod

	// TotalPrice is in minor currency units (paisa) and equals the sum of
	// item subtotals at creation time. It is never recomputed afterwards.
	TotalPrice int64

	// PaymentRef is the correlation id (Khalti pidx) issued by the gateway.
	// Nil until payment has been initiated.
	PaymentRef *string

	PaidAt      *time.Time
	FinalizedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LineItem is a frozen snapshot of one cart line, captured at checkout time.
// Prices are immutable post-snapshot; the catalog is never consulted again.
type LineItem struct {
	ID        uuid.UUID
	SessionID uuid.UUID

	ProductRef  string
	Name        string
	VariantName string

	UnitPrice int64
	Quantity  int
	Subtotal  int64
}

// Address is the shipping address snapshot stored on the session.
type Address struct {
	ReceiverName string
	Phone        string
	Line1        string
	Line2        *string
	City         string
	District     string
	PostalCode   string
}
