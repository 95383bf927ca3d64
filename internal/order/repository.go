package order

import (
	"context"
	"database/sql"
	"errors"

	"pasal-be/internal/checkout"
	"pasal-be/internal/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	// CreateFromSession persists the order and flips the session from Paid
	// to Finalized in one transaction. Losing the race on either the
	// conditional session update or the unique session index yields
	// checkout.ErrConflict; the caller re-reads the winner's order.
	CreateFromSession(ctx context.Context, o *Order) error

	GetByID(ctx context.Context, orderID uuid.UUID) (*Order, error)
	GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*Order, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateFromSession(ctx context.Context, o *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateFromSession"),
		zap.String("order_id", o.ID.String()),
		zap.String("session_id", o.SessionID.String()),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return err
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, session_id, owner_id, payment_method, total_price,
			is_paid, paid_at, is_delivered, payment_status, payment_ref,
			receiver_name, phone, address_line1, address_line2,
			city, district, postal_code,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`,
		o.ID,
		o.SessionID,
		o.OwnerID,
		o.PaymentMethod,
		o.TotalPrice,
		o.IsPaid,
		o.PaidAt,
		o.IsDelivered,
		o.PaymentStatus,
		o.PaymentRef,
		o.ShippingAddress.ReceiverName,
		o.ShippingAddress.Phone,
		o.ShippingAddress.Line1,
		o.ShippingAddress.Line2,
		o.ShippingAddress.City,
		o.ShippingAddress.District,
		o.ShippingAddress.PostalCode,
		o.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			log.Warn("order already exists for session")
			return checkout.ErrConflict
		}
		log.Error("failed to insert order", zap.Error(err))
		return err
	}

	for i, item := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, line_no, product_ref, name, variant_name,
				unit_price, quantity, subtotal
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`,
			item.ID,
			o.ID,
			i,
			item.ProductRef,
			item.Name,
			item.VariantName,
			item.UnitPrice,
			item.Quantity,
			item.Subtotal,
		)
		if err != nil {
			log.Error("failed to insert order item",
				zap.String("product_ref", item.ProductRef),
				zap.Error(err),
			)
			return err
		}
	}

	// The order-creation-and-transition pair is atomic: a session no longer
	// in PAID aborts the whole transaction.
	res, err := tx.ExecContext(ctx, `
		UPDATE checkout_sessions
		SET status = $1, finalized_at = NOW(), updated_at = NOW()
		WHERE id = $2
		  AND status = $3
	`, checkout.StatusFinalized, o.SessionID, checkout.StatusPaid)
	if err != nil {
		log.Error("failed to finalize session", zap.Error(err))
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		log.Warn("session left paid state before finalize committed")
		return checkout.ErrConflict
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit finalize transaction", zap.Error(err))
		return err
	}

	committed = true
	log.Info("order created from session")

	return nil
}

func (r *repository) GetByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	return r.getOrder(ctx, `WHERE id = $1`, orderID)
}

func (r *repository) GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*Order, error) {
	return r.getOrder(ctx, `WHERE session_id = $1`, sessionID)
}

func (r *repository) getOrder(ctx context.Context, where string, arg any) (*Order, error) {
	var o Order

	query := `
		SELECT
			id, session_id, owner_id, payment_method, total_price,
			is_paid, paid_at, is_delivered, payment_status, payment_ref,
			receiver_name, phone, address_line1, address_line2,
			city, district, postal_code,
			created_at
		FROM orders
	` + where

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&o.ID,
		&o.SessionID,
		&o.OwnerID,
		&o.PaymentMethod,
		&o.TotalPrice,
		&o.IsPaid,
		&o.PaidAt,
		&o.IsDelivered,
		&o.PaymentStatus,
		&o.PaymentRef,
		&o.ShippingAddress.ReceiverName,
		&o.ShippingAddress.Phone,
		&o.ShippingAddress.Line1,
		&o.ShippingAddress.Line2,
		&o.ShippingAddress.City,
		&o.ShippingAddress.District,
		&o.ShippingAddress.PostalCode,
		&o.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_ref, name, variant_name, unit_price, quantity, subtotal
		FROM order_items
		WHERE order_id = $1
		ORDER BY line_no
	`, o.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item Item
		err := rows.Scan(
			&item.ID,
			&item.ProductRef,
			&item.Name,
			&item.VariantName,
			&item.UnitPrice,
			&item.Quantity,
			&item.Subtotal,
		)
		if err != nil {
			return nil, err
		}
		item.OrderID = o.ID
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &o, nil
}
