package memory

import (
	"context"
	"testing"
	"time"

	"github.com/hamed0406/uptimecore/internal/kv"
)

func TestStore_PutGetExpire(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)
	s := New().WithClock(func() time.Time { return now })

	if err := s.Put(ctx, "a", "1", time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if v, ok, _ := s.Get(ctx, "a"); !ok || v != "1" {
		t.Fatalf("want 1, got %q ok=%v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := s.Get(ctx, "a"); ok {
		t.Fatalf("entry should have expired")
	}
}

func TestStore_PutIfAbsent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)
	s := New().WithClock(func() time.Time { return now })

	ok, _ := s.PutIfAbsent(ctx, "lease", "x", time.Minute)
	if !ok {
		t.Fatal("first PutIfAbsent should win")
	}
	ok, _ = s.PutIfAbsent(ctx, "lease", "y", time.Minute)
	if ok {
		t.Fatal("second PutIfAbsent should lose while the entry is live")
	}
	now = now.Add(time.Minute)
	ok, _ = s.PutIfAbsent(ctx, "lease", "y", time.Minute)
	if !ok {
		t.Fatal("PutIfAbsent should win once the entry expired")
	}
}

func TestHeartbeatRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()
	at := time.Date(2025, 8, 18, 12, 0, 0, 123, time.UTC)
	if err := kv.RecordHeartbeat(ctx, s, "job", at); err != nil {
		t.Fatalf("RecordHeartbeat: %v", err)
	}
	got, ok, err := kv.LastHeartbeat(ctx, s, "job")
	if err != nil || !ok || !got.Equal(at) {
		t.Fatalf("want %v, got %v ok=%v err=%v", at, got, ok, err)
	}
	if _, ok, _ := kv.LastHeartbeat(ctx, s, "other"); ok {
		t.Fatal("no heartbeat expected for other monitor")
	}
}

func TestLeaser_ExclusiveUntilReleased(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := kv.NewLeaser(s, "proc-a")
	b := kv.NewLeaser(s, "proc-b")

	release, ok, err := a.Acquire(ctx, "m1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("a should acquire: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := b.Acquire(ctx, "m1", time.Minute); ok {
		t.Fatal("b must not acquire a held lease")
	}
	release()
	if _, ok, _ := b.Acquire(ctx, "m1", time.Minute); !ok {
		t.Fatal("b should acquire after release")
	}
}

func TestStore_SweepDropsExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)
	s := New().WithClock(func() time.Time { return now })

	_ = s.Put(ctx, kv.NotifiedKey("m1", 1), "x", time.Minute)
	_ = s.Put(ctx, kv.NotifiedKey("m1", 2), "x", time.Hour)
	_ = s.Put(ctx, "forever", "x", 0)

	now = now.Add(2 * time.Minute)
	n, err := s.Sweep(ctx)
	if err != nil || n != 1 {
		t.Fatalf("want 1 swept, got %d (%v)", n, err)
	}
	if _, ok, _ := s.Get(ctx, "forever"); !ok {
		t.Fatal("entries without ttl must survive a sweep")
	}
}
