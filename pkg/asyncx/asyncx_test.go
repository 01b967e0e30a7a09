package asyncx

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestMap_PreservesOrder(t *testing.T) {
	items := []int{5, 3, 8, 1}
	out, err := Map(context.Background(), items, func(_ context.Context, n int) (int, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10, nil
	})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	for i, n := range items {
		if out[i] != n*10 {
			t.Fatalf("order lost: %v", out)
		}
	}
}

func TestMap_FirstErrorWins(t *testing.T) {
	boom := errors.New("boom")
	_, err := Map(context.Background(), []int{1, 2, 3}, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, boom
		}
		return n, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestPool_LimitsConcurrency(t *testing.T) {
	const workers = 3
	var inFlight, peak atomic.Int32

	items := make([]int, 20)
	_, err := Pool(context.Background(), workers, items, func(_ context.Context, n int) (int, error) {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		return n, nil
	})
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if peak.Load() > workers {
		t.Fatalf("concurrency exceeded %d workers: %d", workers, peak.Load())
	}
}

func TestPool_PreservesOrder(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	out, err := Pool(context.Background(), 2, items, func(_ context.Context, s string) (string, error) {
		return s + s, nil
	})
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	for i, s := range items {
		if out[i] != s+s {
			t.Fatalf("order lost: %v", out)
		}
	}
}

func TestPool_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Pool(ctx, 2, []int{1, 2, 3}, func(context.Context, int) (int, error) {
		return 0, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	calls := 0
	val, err := RetryWithBackoff(context.Background(), 3, time.Millisecond, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	if err != nil || val != "ok" {
		t.Fatalf("expected success after retries, got %q, %v", val, err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRetryWithBackoff_ExhaustsAttempts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := RetryWithBackoff(context.Background(), 3, time.Millisecond, func(context.Context) (int, error) {
		calls++
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}
