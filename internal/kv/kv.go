// Package kv is the ephemeral key-value port used for heartbeat timestamps,
// notification dedup markers and per-monitor leases. Entries carry their own
// TTL and need no explicit cleanup.
package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/hamed0406/uptimecore/internal/domain"
)

// Store is implemented by any ephemeral KV backend. A ttl <= 0 means the
// entry does not expire.
type Store interface {
	// Get returns ok=false for missing or expired keys.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	// PutIfAbsent stores value only when key is missing or expired.
	PutIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// HeartbeatTTL bounds how long a pushed heartbeat is remembered.
const HeartbeatTTL = 30 * 24 * time.Hour

func HeartbeatKey(id domain.MonitorID) string { return "heartbeat:" + string(id) }

func NotifiedKey(id domain.MonitorID, checkID int64) string {
	return fmt.Sprintf("notified:%s:%d", id, checkID)
}

func LeaseKey(id domain.MonitorID) string { return "lease:" + string(id) }

// RecordHeartbeat stores at as the latest heartbeat for the monitor.
func RecordHeartbeat(ctx context.Context, s Store, id domain.MonitorID, at time.Time) error {
	return s.Put(ctx, HeartbeatKey(id), at.UTC().Format(time.RFC3339Nano), HeartbeatTTL)
}

// LastHeartbeat returns the latest pushed heartbeat, ok=false when none.
func LastHeartbeat(ctx context.Context, s Store, id domain.MonitorID) (time.Time, bool, error) {
	v, ok, err := s.Get(ctx, HeartbeatKey(id))
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse heartbeat %q: %w", v, err)
	}
	return t, true, nil
}
