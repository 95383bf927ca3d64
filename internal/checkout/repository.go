package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pasal-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StatusUpdate carries the fields set alongside a status transition. Only
// non-nil fields are written.
type StatusUpdate struct {
	PaymentRef  *string
	PaidAt      *time.Time
	FinalizedAt *time.Time
}

type Repository interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, sessionID uuid.UUID) (*Session, error)

	// UpdateStatus is the single mutation primitive for session state. The
	// update is conditional on the current status; if the session is no
	// longer in `from` at commit time the call fails with ErrConflict.
	UpdateStatus(ctx context.Context, sessionID uuid.UUID, from, to Status, set StatusUpdate) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateSession(ctx context.Context, session *Session) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateSession"),
		zap.String("session_id", session.ID.String()),
		zap.Int("item_count", len(session.Items)),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO checkout_sessions (
			id, owner_id, status, payment_method, total_price,
			receiver_name, phone, address_line1, address_line2,
			city, district, postal_code
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		session.ID,
		session.OwnerID,
		session.Status,
		session.PaymentMethod,
		session.TotalPrice,
		session.ShippingAddress.ReceiverName,
		session.ShippingAddress.Phone,
		session.ShippingAddress.Line1,
		session.ShippingAddress.Line2,
		session.ShippingAddress.City,
		session.ShippingAddress.District,
		session.ShippingAddress.PostalCode,
	)
	if err != nil {
		log.Error("failed to insert checkout session", zap.Error(err))
		return err
	}

	for i, item := range session.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO checkout_session_items (
				id, session_id, line_no, product_ref, name, variant_name,
				unit_price, quantity, subtotal
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`,
			item.ID,
			session.ID,
			i,
			item.ProductRef,
			item.Name,
			item.VariantName,
			item.UnitPrice,
			item.Quantity,
			item.Subtotal,
		)
		if err != nil {
			log.Error("failed to insert checkout session item",
				zap.Int("item_index", i),
				zap.String("product_ref", item.ProductRef),
				zap.Error(err),
			)
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit checkout session transaction", zap.Error(err))
		return err
	}

	committed = true
	log.Info("checkout session persisted")

	return nil
}

func (r *repository) GetSession(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	var s Session

	query := `
		SELECT
			id, owner_id, status, payment_method, total_price,
			payment_ref, paid_at, finalized_at,
			receiver_name, phone, address_line1, address_line2,
			city, district, postal_code,
			created_at, updated_at
		FROM checkout_sessions
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&s.ID,
		&s.OwnerID,
		&s.Status,
		&s.PaymentMethod,
		&s.TotalPrice,
		&s.PaymentRef,
		&s.PaidAt,
		&s.FinalizedAt,
		&s.ShippingAddress.ReceiverName,
		&s.ShippingAddress.Phone,
		&s.ShippingAddress.Line1,
		&s.ShippingAddress.Line2,
		&s.ShippingAddress.City,
		&s.ShippingAddress.District,
		&s.ShippingAddress.PostalCode,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_ref, name, variant_name, unit_price, quantity, subtotal
		FROM checkout_session_items
		WHERE session_id = $1
		ORDER BY line_no
	`, s.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item LineItem
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
		item.SessionID = s.ID
		s.Items = append(s.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &s, nil
}

func (r *repository) UpdateStatus(
	ctx context.Context,
	sessionID uuid.UUID,
	from, to Status,
	set StatusUpdate,
) error {

	query := `UPDATE checkout_sessions SET status = $1, updated_at = NOW()`
	args := []any{to}
	argIndex := 2

	if set.PaymentRef != nil {
		query += fmt.Sprintf(", payment_ref = $%d", argIndex)
		args = append(args, *set.PaymentRef)
		argIndex++
	}
	if set.PaidAt != nil {
		query += fmt.Sprintf(", paid_at = $%d", argIndex)
		args = append(args, *set.PaidAt)
		argIndex++
	}
	if set.FinalizedAt != nil {
		query += fmt.Sprintf(", finalized_at = $%d", argIndex)
		args = append(args, *set.FinalizedAt)
		argIndex++
	}

	query += fmt.Sprintf(" WHERE id = $%d AND status = $%d", argIndex, argIndex+1)
	args = append(args, sessionID, from)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Distinguish a lost race from a missing session.
		var exists bool
		err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM checkout_sessions WHERE id = $1)`,
			sessionID,
		).Scan(&exists)
		if err != nil {
			return err
		}
		if !exists {
			return ErrSessionNotFound
		}
		return ErrConflict
	}

	return nil
}
