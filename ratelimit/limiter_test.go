package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAcquire_BurstThenPaced(t *testing.T) {
	r := NewRegistry(Budget{RefillRate: 50, Burst: 2})
	defer r.Close()
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 2; i++ {
		if err := r.Acquire(ctx, "https://a.example"); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("burst acquires should be immediate, took %v", elapsed)
	}

	// Third token needs a refill at 50/s, so roughly 20ms.
	start = time.Now()
	if err := r.Acquire(ctx, "https://a.example"); err != nil {
		t.Fatalf("third acquire: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("third acquire should have waited for refill, took %v", elapsed)
	}
}

func TestAcquire_OriginsIndependent(t *testing.T) {
	r := NewRegistry(Budget{RefillRate: 1, Burst: 1})
	defer r.Close()
	ctx := context.Background()

	start := time.Now()
	if err := r.Acquire(ctx, "https://a.example"); err != nil {
		t.Fatal(err)
	}
	if err := r.Acquire(ctx, "https://b.example"); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("different origins must not share a bucket, took %v", elapsed)
	}
}

func TestConfigure_PinsBudget(t *testing.T) {
	r := NewRegistry(Budget{RefillRate: 1, Burst: 1})
	defer r.Close()
	ctx := context.Background()

	r.Configure("https://fast.example", Budget{RefillRate: 1000, Burst: 10})

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := r.Acquire(ctx, "https://fast.example"); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("configured burst not honored, took %v", elapsed)
	}
}

func TestSetBackoff_SupersedesTokens(t *testing.T) {
	r := NewRegistry(Budget{RefillRate: 1000, Burst: 10})
	defer r.Close()
	ctx := context.Background()

	wait := 80 * time.Millisecond
	r.SetBackoff("https://slow.example", time.Now().Add(wait))

	start := time.Now()
	if err := r.Acquire(ctx, "https://slow.example"); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < wait-10*time.Millisecond {
		t.Errorf("backoff deadline not honored despite available tokens: %v", elapsed)
	}
}

func TestSetBackoff_LaterDeadlineWins(t *testing.T) {
	r := NewRegistry(Budget{RefillRate: 1000, Burst: 10})
	defer r.Close()

	later := time.Now().Add(100 * time.Millisecond)
	r.SetBackoff("https://o.example", later)
	r.SetBackoff("https://o.example", time.Now().Add(10*time.Millisecond))

	start := time.Now()
	if err := r.Acquire(context.Background(), "https://o.example"); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("earlier deadline overwrote the later one: waited only %v", elapsed)
	}
}

func TestAcquire_ContextCancelled(t *testing.T) {
	r := NewRegistry(Budget{RefillRate: 1000, Burst: 10})
	defer r.Close()

	r.SetBackoff("https://stuck.example", time.Now().Add(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := r.Acquire(ctx, "https://stuck.example"); err == nil {
		t.Fatal("expected context error while backoff pending")
	}
}
