package cart

import (
	"context"
	"sync"
	"time"

	"pasal-be/internal/logger"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// Clearer drains cart-clear requests queued after order finalization. The
// clear is a best-effort side effect: the order is already committed, so
// failures are retried with backoff and, once exhausted, logged for
// reconciliation instead of being surfaced to the finalize caller.
type Clearer struct {
	repo Repository

	queue chan uint
	wg    sync.WaitGroup

	attemptBase time.Duration
	maxRetries  uint64
}

func NewClearer(repo Repository) *Clearer {
	return &Clearer{
		repo:        repo,
		queue:       make(chan uint, 256),
		attemptBase: 500 * time.Millisecond,
		maxRetries:  4,
	}
}

// Start launches the worker draining the queue. It returns immediately;
// the worker stops when ctx is cancelled and Wait unblocks once the
// in-flight clear finishes.
func (c *Clearer) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case ownerID := <-c.queue:
				c.clear(ctx, ownerID)
			}
		}
	}()
}

func (c *Clearer) Wait() {
	c.wg.Wait()
}

// Enqueue never blocks the caller. A full queue is itself a reconciliation
// case and is logged as such.
func (c *Clearer) Enqueue(ownerID uint) {
	select {
	case c.queue <- ownerID:
	default:
		logger.L().Error("cart clear queue full, dropping request",
			zap.Uint("owner_id", ownerID),
			zap.Bool("reconciliation_required", true),
		)
	}
}

func (c *Clearer) clear(ctx context.Context, ownerID uint) {
	log := logger.L().With(zap.Uint("owner_id", ownerID))

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.attemptBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.repo.ClearCart(ctx, ownerID); err != nil {
			log.Warn("cart clear attempt failed", zap.Error(err))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		log.Error("cart clear failed after retries",
			zap.Bool("reconciliation_required", true),
			zap.Error(err),
		)
		return
	}

	log.Info("cart cleared")
}
