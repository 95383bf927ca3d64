package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyRepo fails a configured number of times before succeeding.
type flakyRepo struct {
	mu       sync.Mutex
	failures int
	calls    int
	cleared  []uint
}

func (f *flakyRepo) ClearCart(ctx context.Context, ownerID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("transient store error")
	}
	f.cleared = append(f.cleared, ownerID)
	return nil
}

func (f *flakyRepo) snapshot() (int, []uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, append([]uint(nil), f.cleared...)
}

func newTestClearer(repo Repository) *Clearer {
	c := NewClearer(repo)
	c.attemptBase = time.Millisecond
	return c
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestClearer_ClearsAfterTransientFailures(t *testing.T) {
	repo := &flakyRepo{failures: 2}
	clearer := newTestClearer(repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clearer.Start(ctx)

	clearer.Enqueue(42)

	waitFor(t, func() bool {
		_, cleared := repo.snapshot()
		return len(cleared) == 1
	})

	calls, cleared := repo.snapshot()
	assert.Equal(t, 3, calls)
	assert.Equal(t, []uint{42}, cleared)
}

func TestClearer_GivesUpAfterExhaustedRetries(t *testing.T) {
	repo := &flakyRepo{failures: 100}
	clearer := newTestClearer(repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clearer.Start(ctx)

	clearer.Enqueue(7)

	// maxRetries=4 means five attempts in total, then the clear is
	// abandoned and logged for reconciliation.
	waitFor(t, func() bool {
		calls, _ := repo.snapshot()
		return calls == 5
	})

	time.Sleep(20 * time.Millisecond)
	calls, cleared := repo.snapshot()
	assert.Equal(t, 5, calls)
	assert.Empty(t, cleared)
}

func TestClearer_EnqueueNeverBlocks(t *testing.T) {
	repo := &flakyRepo{}
	clearer := newTestClearer(repo)
	// Worker not started: queue fills up, Enqueue must still return.

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			clearer.Enqueue(uint(i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
}

func TestClearer_StopsOnCancel(t *testing.T) {
	repo := &flakyRepo{}
	clearer := newTestClearer(repo)

	ctx, cancel := context.WithCancel(context.Background())
	clearer.Start(ctx)
	cancel()

	waitDone := make(chan struct{})
	go func() {
		clearer.Wait()
		close(waitDone)
	}()

	select {
	case <-waitDone:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
	require.NotPanics(t, func() { clearer.Enqueue(1) })
}
