package cart

import (
	"context"
	"database/sql"
)

type Repository interface {
	// ClearCart removes every cart row for the owner. Clearing an already
	// empty cart is a no-op, which keeps retries idempotent.
	ClearCart(ctx context.Context, ownerID uint) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ClearCart(ctx context.Context, ownerID uint) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM carts
		WHERE owner_id = $1
	`, ownerID)
	return err
}
