package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_ClearCart(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM carts\s+WHERE owner_id = \$1`).
			WithArgs(uint(1)).
			WillReturnResult(sqlmock.NewResult(0, 3))

		assert.NoError(t, repo.ClearCart(ctx, 1))
	})

	t.Run("EmptyCartIsNoop", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM carts`).
			WithArgs(uint(2)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.NoError(t, repo.ClearCart(ctx, 2))
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM carts`).
			WithArgs(uint(3)).
			WillReturnError(errors.New("db down"))

		assert.Error(t, repo.ClearCart(ctx, 3))
	})
}
