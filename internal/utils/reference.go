package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateOrderReference builds the purchase reference sent to the payment
// gateway. Uniqueness comes from the timestamp plus a random suffix; the
// gateway only requires it to be distinguishable per payment attempt.
func GenerateOrderReference() string {
	now := time.Now().UTC()
	datePart := now.Format("20060102-150405")

	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		n = big.NewInt(now.UnixNano() % 10000)
	}

	return fmt.Sprintf("ORD-%s-%04d", datePart, n.Int64())
}
