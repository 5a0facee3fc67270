package memory

import (
	"context"
	"sync"
	"time"

	"github.com/auprolis-code/auprolis/internal/domain"
)

// LockManager is an in-process implementation of domain.LockManager with the
// same contract as the Redis one: Acquire does not block, and a lock held
// past its TTL can be reclaimed (a crashed holder must not wedge an asset).
type LockManager struct {
	mu    sync.Mutex
	locks map[string]time.Time // key -> expiry
}

// NewLockManager creates an in-process lock manager.
func NewLockManager() *LockManager {
	return &LockManager{locks: make(map[string]time.Time)}
}

// Acquire attempts to obtain the lock for key with the given TTL. It returns
// domain.ErrLockHeld when the lock is held and unexpired. The returned
// unlock function is safe to call multiple times.
func (lm *LockManager) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	now := time.Now()
	if expiry, ok := lm.locks[key]; ok && now.Before(expiry) {
		return nil, domain.ErrLockHeld
	}
	expiry := now.Add(ttl)
	lm.locks[key] = expiry

	released := false
	unlock := func() {
		lm.mu.Lock()
		defer lm.mu.Unlock()
		if released {
			return
		}
		released = true
		// Only delete our own grant; a reclaimed lock belongs to the new
		// holder.
		if e, ok := lm.locks[key]; ok && e.Equal(expiry) {
			delete(lm.locks, key)
		}
	}
	return unlock, nil
}

// Compile-time interface check.
var _ domain.LockManager = (*LockManager)(nil)
