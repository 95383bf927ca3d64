package order

import (
	"time"

	"pasal-be/internal/checkout"

	"github.com/google/uuid"
)

// Order is the permanent record created from a paid checkout session.
// Every field except delivery state is a verbatim copy of the session at
// finalize time; the order outlives the session for audit purposes.
type Order struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	OwnerID   uint

	Items           []Item
	ShippingAddress checkout.Address
	PaymentMethod   checkout.PaymentMethod
	TotalPrice      int64

	// IsPaid is always true at creation; orders only exist for paid sessions.
	IsPaid bool
	PaidAt time.Time

	IsDelivered bool

	PaymentStatus string
	PaymentRef    string

	CreatedAt time.Time
}

// Item mirrors the session's frozen line-item snapshot.
type Item struct {
	ID      uuid.UUID
	OrderID uuid.UUID

	ProductRef  string
	Name        string
	VariantName string

	UnitPrice int64
	Quantity  int
	Subtotal  int64
}

const paymentStatusPaid = "PAID"
