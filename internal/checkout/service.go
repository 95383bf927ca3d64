package checkout

import (
	"context"
	"errors"
	"time"

	"pasal-be/internal/logger"
	"pasal-be/internal/payment"
	"pasal-be/internal/utils"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// CreateSessionParams is the checkout request: frozen item snapshots priced
// by the catalog collaborator at call time, plus shipping and channel choice.
type CreateSessionParams struct {
	OwnerID         uint
	Items           []ItemParams
	ShippingAddress Address
	PaymentMethod   PaymentMethod
}

type ItemParams struct {
	ProductRef  string
	Name        string
	VariantName string
	UnitPrice   int64
	Quantity    int
}

// PaymentInitiation is returned by InitiatePayment: the gateway correlation
// id plus the URL the client is redirected to.
type PaymentInitiation struct {
	PaymentRef  string
	RedirectURL string
}

// VerifyResult reports the terminal outcome of payment verification.
type VerifyResult struct {
	Status Status
	PaidAt *time.Time
}

type Service interface {
	CreateSession(ctx context.Context, params CreateSessionParams) (*Session, error)
	GetSession(ctx context.Context, sessionID uuid.UUID, ownerID uint) (*Session, error)
	InitiatePayment(ctx context.Context, sessionID uuid.UUID) (*PaymentInitiation, error)
	VerifyPayment(ctx context.Context, sessionID uuid.UUID, claimedRef string) (*VerifyResult, error)
}

type service struct {
	repo    Repository
	gateway payment.Gateway
}

func NewService(repo Repository, gateway payment.Gateway) Service {
	return &service{repo: repo, gateway: gateway}
}

var validMethods = map[PaymentMethod]bool{
	MethodKhalti:         true,
	MethodCashOnDelivery: true,
}

func (s *service) CreateSession(ctx context.Context, params CreateSessionParams) (*Session, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateSession"),
		zap.Uint("owner_id", params.OwnerID),
		zap.Int("item_count", len(params.Items)),
	)

	if len(params.Items) == 0 {
		log.Warn("checkout rejected: no items")
		return nil, ErrNoItems
	}
	if !validMethods[params.PaymentMethod] {
		log.Warn("checkout rejected: unsupported payment method",
			zap.String("payment_method", string(params.PaymentMethod)),
		)
		return nil, ErrInvalidMethod
	}

	sessionID := uuid.New()
	items := make([]LineItem, 0, len(params.Items))
	var total int64

	for i, in := range params.Items {
		if in.Quantity <= 0 {
			log.Warn("checkout rejected: invalid quantity",
				zap.Int("index", i),
				zap.String("product_ref", in.ProductRef),
				zap.Int("quantity", in.Quantity),
			)
			return nil, ErrInvalidQuantity
		}

		subtotal := in.UnitPrice * int64(in.Quantity)
		total += subtotal

		items = append(items, LineItem{
			ID:          uuid.New(),
			SessionID:   sessionID,
			ProductRef:  in.ProductRef,
			Name:        in.Name,
			VariantName: in.VariantName,
			UnitPrice:   in.UnitPrice,
			Quantity:    in.Quantity,
			Subtotal:    subtotal,
		})
	}

	session := &Session{
		ID:              sessionID,
		OwnerID:         params.OwnerID,
		Status:          StatusPending,
		Items:           items,
		ShippingAddress: params.ShippingAddress,
		PaymentMethod:   params.PaymentMethod,
		TotalPrice:      total,
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		log.Error("failed to create checkout session", zap.Error(err))
		return nil, err
	}

	log.Info("checkout session created",
		zap.String("session_id", session.ID.String()),
		zap.Int64("total_price", total),
	)

	return session, nil
}

func (s *service) GetSession(ctx context.Context, sessionID uuid.UUID, ownerID uint) (*Session, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.OwnerID != ownerID {
		// Do not leak existence of other owners' sessions.
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// InitiatePayment moves a Pending session to PaymentInitiated by requesting
// a payment from the gateway and storing the returned correlation id.
func (s *service) InitiatePayment(ctx context.Context, sessionID uuid.UUID) (*PaymentInitiation, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "InitiatePayment"),
		zap.String("session_id", sessionID.String()),
	)

	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != StatusPending {
		log.Warn("initiate payment rejected",
			zap.String("status", string(session.Status)),
		)
		return nil, ErrInvalidState
	}

	orderRef := utils.GenerateOrderReference()

	var initiation *payment.Initiation
	err = retry.Do(ctx, gatewayBackoff(), func(ctx context.Context) error {
		var gwErr error
		initiation, gwErr = s.gateway.Initiate(ctx, orderRef, session.TotalPrice)
		if errors.Is(gwErr, payment.ErrGatewayUnavailable) {
			return retry.RetryableError(gwErr)
		}
		return gwErr
	})
	if err != nil {
		log.Error("payment initiation failed at gateway", zap.Error(err))
		return nil, err
	}

	err = s.repo.UpdateStatus(ctx, sessionID, StatusPending, StatusPaymentInitiated, StatusUpdate{
		PaymentRef: &initiation.CorrelationID,
	})
	if err != nil {
		// The gateway already issued a correlation id; the session did not
		// record it. Reconciliation has to resolve this payment attempt.
		log.Error("payment initiated but session transition failed",
			zap.String("payment_ref", initiation.CorrelationID),
			zap.Bool("reconciliation_required", true),
			zap.Error(err),
		)
		return nil, err
	}

	log.Info("payment initiated",
		zap.String("payment_ref", initiation.CorrelationID),
	)

	return &PaymentInitiation{
		PaymentRef:  initiation.CorrelationID,
		RedirectURL: initiation.RedirectURL,
	}, nil
}

// VerifyPayment confirms the payment outcome with the gateway and applies
// the Paid or Failed transition. The caller-supplied reference is only a
// hint that triggers verification: the lookup always uses the stored
// correlation id, and the gateway is the sole source of truth.
func (s *service) VerifyPayment(ctx context.Context, sessionID uuid.UUID, claimedRef string) (*VerifyResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "VerifyPayment"),
		zap.String("session_id", sessionID.String()),
	)

	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// Idempotency: a session already past verification returns its terminal
	// result without another gateway round trip.
	switch session.Status {
	case StatusPaid, StatusFinalized:
		return &VerifyResult{Status: StatusPaid, PaidAt: session.PaidAt}, nil
	case StatusFailed:
		return &VerifyResult{Status: StatusFailed}, nil
	case StatusPaymentInitiated:
	default:
		return nil, ErrInvalidState
	}

	if session.PaymentRef == nil || *session.PaymentRef != claimedRef {
		log.Warn("payment reference mismatch",
			zap.String("claimed_ref", claimedRef),
		)
		return nil, ErrCorrelationMismatch
	}

	var status payment.Status
	err = retry.Do(ctx, gatewayBackoff(), func(ctx context.Context) error {
		var gwErr error
		status, gwErr = s.gateway.Lookup(ctx, *session.PaymentRef)
		if errors.Is(gwErr, payment.ErrGatewayUnavailable) {
			return retry.RetryableError(gwErr)
		}
		return gwErr
	})
	if err != nil {
		log.Error("payment lookup failed at gateway", zap.Error(err))
		return nil, err
	}

	if status == payment.StatusCompleted {
		now := time.Now()
		err = s.repo.UpdateStatus(ctx, sessionID, StatusPaymentInitiated, StatusPaid, StatusUpdate{
			PaidAt: &now,
		})
		if errors.Is(err, ErrConflict) {
			// A concurrent verify won; adopt its outcome.
			return s.VerifyPayment(ctx, sessionID, claimedRef)
		}
		if err != nil {
			return nil, err
		}

		log.Info("payment verified", zap.String("payment_ref", claimedRef))
		return &VerifyResult{Status: StatusPaid, PaidAt: &now}, nil
	}

	log.Warn("payment not completed",
		zap.String("payment_ref", claimedRef),
		zap.String("gateway_status", string(status)),
	)

	err = s.repo.UpdateStatus(ctx, sessionID, StatusPaymentInitiated, StatusFailed, StatusUpdate{})
	if errors.Is(err, ErrConflict) {
		return s.VerifyPayment(ctx, sessionID, claimedRef)
	}
	if err != nil {
		return nil, err
	}

	return &VerifyResult{Status: StatusFailed}, nil
}

func gatewayBackoff() retry.Backoff {
	return retry.WithMaxRetries(2, retry.NewExponential(200*time.Millisecond))
}
