package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestAcquireBurstThenWaits(t *testing.T) {
	l := New(1, 1)
	ctx := context.Background()

	start := time.Now()
	if err := l.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if err := l.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
		t.Fatalf("second acquire returned after %v, expected ~1s wait", elapsed)
	}
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	l := New(1, 1)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := l.Acquire(ctx); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestAcquireConcurrentCallers(t *testing.T) {
	l := New(100, 10)
	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- l.Acquire(context.Background())
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestBurstDefaultsToRate(t *testing.T) {
	l := New(5, 0)
	if l.burst != 5 {
		t.Fatalf("expected burst 5, got %f", l.burst)
	}
}
