package order

import (
	"context"
	"errors"
	"time"

	"pasal-be/internal/checkout"
	"pasal-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionStore is the slice of the checkout repository the finalizer needs.
type SessionStore interface {
	GetSession(ctx context.Context, sessionID uuid.UUID) (*checkout.Session, error)
}

// CartClearer schedules the post-finalize cart clear. Enqueue must never
// block or fail the finalize call.
type CartClearer interface {
	Enqueue(ownerID uint)
}

type Service interface {
	// Finalize converts a Paid session into an Order exactly once. Repeat
	// and concurrent calls all observe the same order.
	Finalize(ctx context.Context, sessionID uuid.UUID, ownerID uint) (*Order, error)

	GetOrder(ctx context.Context, orderID uuid.UUID, ownerID uint) (*Order, error)
}

type service struct {
	repo     Repository
	sessions SessionStore
	carts    CartClearer
}

func NewService(repo Repository, sessions SessionStore, carts CartClearer) Service {
	return &service{repo: repo, sessions: sessions, carts: carts}
}

func (s *service) Finalize(ctx context.Context, sessionID uuid.UUID, ownerID uint) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Finalize"),
		zap.String("session_id", sessionID.String()),
	)

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.OwnerID != ownerID {
		return nil, ErrUnauthorized
	}

	switch session.Status {
	case checkout.StatusFinalized:
		// Already converted; hand back the existing order.
		return s.repo.GetBySessionID(ctx, sessionID)
	case checkout.StatusPaid:
	default:
		log.Warn("finalize rejected",
			zap.String("status", string(session.Status)),
		)
		return nil, checkout.ErrInvalidState
	}

	o := buildOrder(session)

	err = s.repo.CreateFromSession(ctx, o)
	if errors.Is(err, checkout.ErrConflict) {
		// Lost the finalize race: the winner's order is authoritative.
		log.Info("finalize lost race, returning winner's order")
		return s.repo.GetBySessionID(ctx, sessionID)
	}
	if err != nil {
		return nil, err
	}

	log.Info("order finalized",
		zap.String("order_id", o.ID.String()),
		zap.Int64("total_price", o.TotalPrice),
	)

	// Best effort: the order is already authoritative, so a cart-clear
	// failure must not surface to the caller. The clearer retries and
	// reports exhaustion on its own.
	s.carts.Enqueue(session.OwnerID)

	return o, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID, ownerID uint) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.OwnerID != ownerID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// buildOrder copies the session snapshot verbatim into a new order record.
func buildOrder(session *checkout.Session) *Order {
	o := &Order{
		ID:              uuid.New(),
		SessionID:       session.ID,
		OwnerID:         session.OwnerID,
		ShippingAddress: session.ShippingAddress,
		PaymentMethod:   session.PaymentMethod,
		TotalPrice:      session.TotalPrice,
		IsPaid:          true,
		IsDelivered:     false,
		PaymentStatus:   paymentStatusPaid,
		CreatedAt:       time.Now(),
	}

	if session.PaidAt != nil {
		o.PaidAt = *session.PaidAt
	}
	if session.PaymentRef != nil {
		o.PaymentRef = *session.PaymentRef
	}

	o.Items = make([]Item, 0, len(session.Items))
	for _, it := range session.Items {
		o.Items = append(o.Items, Item{
			ID:          uuid.New(),
			OrderID:     o.ID,
			ProductRef:  it.ProductRef,
			Name:        it.Name,
			VariantName: it.VariantName,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			Subtotal:    it.Subtotal,
		})
	}

	return o
}
