package order

import "errors"

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrUnauthorized  = errors.New("unauthorized")
)

// Postgres unique-violation code, used to detect a finalize race lost on the
// orders.session_id unique index.
const pgUniqueViolation = "23505"
