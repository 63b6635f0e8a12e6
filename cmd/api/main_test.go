package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestStartWorkers_WaitCoversInFlightWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var finished atomic.Int32

	slow := func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		finished.Add(1)
		return ctx.Err()
	}
	failing := func(context.Context) error {
		finished.Add(1)
		return errors.New("boom")
	}

	g := startWorkers(ctx, zap.NewNop(), map[string]func(context.Context) error{
		"cycle":    slow,
		"backstop": slow,
		"other":    failing,
	})
	cancel()
	if err := g.Wait(); err != nil {
		t.Fatalf("worker errors are logged, not returned: %v", err)
	}
	if n := finished.Load(); n != 3 {
		t.Fatalf("Wait returned before every worker finished: %d/3", n)
	}
}
