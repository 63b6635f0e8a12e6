package kv

import (
	"context"
	"time"

	"github.com/hamed0406/uptimecore/internal/domain"
)

// Leaser hands out per-monitor leases so that only one cycle at a time
// works on a monitor, across goroutines and across processes sharing the
// same KV.
type Leaser struct {
	store Store
	owner string
}

func NewLeaser(store Store, owner string) *Leaser {
	return &Leaser{store: store, owner: owner}
}

// Acquire returns ok=false when another holder owns the lease. The returned
// release func is safe to call once the work is done; an expired lease is
// never deleted on behalf of a newer holder.
func (l *Leaser) Acquire(ctx context.Context, id domain.MonitorID, ttl time.Duration) (release func(), ok bool, err error) {
	key := LeaseKey(id)
	ok, err = l.store.PutIfAbsent(ctx, key, l.owner, ttl)
	if err != nil || !ok {
		return func() {}, ok, err
	}
	return func() {
		// Get+Delete is not atomic; the worst case is dropping a lease that
		// expired and was re-acquired by the same owner id.
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if v, found, err := l.store.Get(rctx, key); err == nil && found && v == l.owner {
			_ = l.store.Delete(rctx, key)
		}
	}, true, nil
}
