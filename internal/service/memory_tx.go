package service

import (
	"context"
	"sync"
)

// MemoryTx serialises multi-step mutations over the in-memory student and
// course collections. Every service sharing entities shares one MemoryTx.
type MemoryTx struct {
	mu sync.RWMutex
}

// NewMemoryTx returns an unlocked transaction guard.
func NewMemoryTx() *MemoryTx {
	return &MemoryTx{}
}

// RunInTx runs fn while holding the exclusive lock. fn must not call back
// into RunInTx or View.
func (t *MemoryTx) RunInTx(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn()
}

// View runs fn under the shared lock.
func (t *MemoryTx) View(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return fn()
}
