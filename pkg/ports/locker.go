package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken with DistributedLocker.Lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes a critical section across replicas sharing a
// save store. The Redis store takes it around the auto-save replace, so two
// instances saving the same story cannot both keep an auto-save.
type DistributedLocker interface {
	// Lock acquires the lock for key (e.g. "autosave:<story-id>"), waiting
	// until it is free or ctx is done. The lock expires after ttl if its
	// holder disappears. The returned UnlockFunc must be called once the
	// replace is done; it does not release a lock now held by someone else.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
