package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	attempts := 0
	targetAttempts := 3

	err := Retry(context.Background(), 5, 0, func() error {
		attempts++
		if attempts < targetAttempts {
			return errors.New("transient error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Retry returned unexpected error: %v", err)
	}
	if attempts != targetAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, targetAttempts)
	}
}

func TestRetryAllFail(t *testing.T) {
	attempts := 0
	maxAttempts := 3

	err := Retry(context.Background(), maxAttempts, 0, func() error {
		attempts++
		return errors.New("persistent error")
	})

	if err == nil {
		t.Fatal("Retry should return error when all attempts fail")
	}
	if attempts != maxAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, maxAttempts)
	}
}

// FakeClock implements Clock with a controllable current time and recorded
// sleeps. Sleeping advances the fake time instantly.
type FakeClock struct {
	Current time.Time
	Slept   []time.Duration
}

// Now returns the fake current time.
func (c *FakeClock) Now() time.Time { return c.Current }

// Sleep records the requested duration and advances the fake time.
func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d < 0 {
		d = 0
	}
	c.Slept = append(c.Slept, d)
	c.Current = c.Current.Add(d)
	return nil
}

func TestRetryScheduleDelaysAndStop(t *testing.T) {
	clock := &FakeClock{Current: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)}
	delays := []time.Duration{0, 2 * time.Second, 2 * time.Second}

	calls := 0
	done, err := RetrySchedule(context.Background(), clock, delays, func(attempt int) (bool, error) {
		calls++
		return attempt == 1, nil
	})
	if err != nil {
		t.Fatalf("RetrySchedule: %v", err)
	}
	if !done {
		t.Fatal("RetrySchedule should report done on the second attempt")
	}
	if calls != 2 {
		t.Errorf("fn called %d times, want 2", calls)
	}
	// The first attempt is immediate; only the second delay should have run.
	want := []time.Duration{0, 2 * time.Second}
	if len(clock.Slept) != len(want) {
		t.Fatalf("recorded sleeps = %v, want %v", clock.Slept, want)
	}
	for i := range want {
		if clock.Slept[i] != want[i] {
			t.Errorf("sleep[%d] = %v, want %v", i, clock.Slept[i], want[i])
		}
	}
}

func TestRetryScheduleExhausted(t *testing.T) {
	clock := &FakeClock{Current: time.Now()}
	wantErr := errors.New("still pending")

	done, err := RetrySchedule(context.Background(), clock, []time.Duration{0, 0, 0}, func(int) (bool, error) {
		return false, wantErr
	})
	if done {
		t.Fatal("RetrySchedule should not report done")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}

func TestRetryScheduleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	clock := &FakeClock{Current: time.Now()}
	done, err := RetrySchedule(ctx, clock, []time.Duration{time.Second}, func(int) (bool, error) {
		t.Fatal("fn should not run after cancellation")
		return false, nil
	})
	if done {
		t.Fatal("cancelled schedule should not report done")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRealClockSleepZero(t *testing.T) {
	start := time.Now()
	if err := (RealClock{}).Sleep(context.Background(), 0); err != nil {
		t.Fatalf("Sleep(0): %v", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("Sleep(0) should return immediately")
	}
}

func TestRateLimiterNew(t *testing.T) {
	rl := NewRateLimiter(60)
	if rl == nil {
		t.Fatal("NewRateLimiter returned nil")
	}
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait should not block: %v", err)
	}
}

func TestMarketDate(t *testing.T) {
	// 1 AM UTC is still the previous evening in New York.
	ts := time.Date(2025, 6, 3, 1, 0, 0, 0, time.UTC)
	if got := MarketDate(ts); got != "2025-06-02" {
		t.Errorf("MarketDate = %q, want 2025-06-02", got)
	}

	sameDay := time.Date(2025, 6, 2, 20, 0, 0, 0, time.UTC)
	if !SameMarketDay(ts, sameDay) {
		t.Error("timestamps on the same NY date should compare equal")
	}
}
