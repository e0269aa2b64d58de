// ABOUTME: Tests for the fixed-interval poller
// ABOUTME: Covers immediate first fetch, last-good retention, and deterministic shutdown

package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPollerFetchesImmediatelyAndOnInterval(t *testing.T) {
	var calls atomic.Int32
	p := New("test", 20*time.Millisecond, func(context.Context) (int32, error) {
		return calls.Add(1), nil
	})

	p.Start(context.Background())
	defer p.Stop()

	deadline := time.Now().Add(time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if calls.Load() < 3 {
		t.Fatalf("expected at least 3 fetches, got %d", calls.Load())
	}
	if v, ok := p.Latest(); !ok || v < 1 {
		t.Errorf("Latest() = %d, %v", v, ok)
	}
}

func TestPollKeepsLastGoodValue(t *testing.T) {
	fail := false
	p := New("test", time.Hour, func(context.Context) (string, error) {
		if fail {
			return "", errors.New("backend down")
		}
		return "ok", nil
	})

	if _, err := p.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	firstUpdate := p.UpdatedAt()

	fail = true
	v, err := p.Poll(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if v != "ok" {
		t.Errorf("expected last good value on error, got %q", v)
	}
	if latest, ok := p.Latest(); !ok || latest != "ok" {
		t.Errorf("Latest() = %q, %v", latest, ok)
	}
	if p.Err() == nil {
		t.Error("expected Err() to report the failure")
	}
	if !p.UpdatedAt().Equal(firstUpdate) {
		t.Error("failed poll must not move UpdatedAt")
	}

	fail = false
	p.Poll(context.Background())
	if p.Err() != nil {
		t.Error("expected Err() cleared after success")
	}
}

func TestLatestBeforeFirstFetch(t *testing.T) {
	p := New("test", time.Hour, func(context.Context) (int, error) { return 1, nil })
	if _, ok := p.Latest(); ok {
		t.Error("expected no value before first fetch")
	}
}

func TestOnResult(t *testing.T) {
	p := New("test", time.Hour, func(context.Context) (int, error) { return 7, nil })
	var got int
	p.OnResult(func(v int, err error) { got = v })

	p.Poll(context.Background())
	if got != 7 {
		t.Errorf("expected listener to receive 7, got %d", got)
	}
}

func TestStopWaitsAndHaltsFetching(t *testing.T) {
	var calls atomic.Int32
	p := New("test", 5*time.Millisecond, func(context.Context) (int, error) {
		calls.Add(1)
		return 0, nil
	})

	p.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	p.Stop()

	if p.Running() {
		t.Error("expected poller stopped")
	}
	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	if calls.Load() != after {
		t.Errorf("fetches continued after Stop: %d -> %d", after, calls.Load())
	}

	// Idempotent
	p.Stop()
}

func TestContextCancellationStopsLoop(t *testing.T) {
	var calls atomic.Int32
	p := New("test", 5*time.Millisecond, func(context.Context) (int, error) {
		calls.Add(1)
		return 0, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)

	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	if calls.Load() != after {
		t.Errorf("fetches continued after cancel: %d -> %d", after, calls.Load())
	}
	p.Stop()
}

func TestStartTwiceIsNoop(t *testing.T) {
	var calls atomic.Int32
	p := New("test", time.Hour, func(context.Context) (int, error) {
		calls.Add(1)
		return 0, nil
	})

	p.Start(context.Background())
	p.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	p.Stop()

	if calls.Load() != 1 {
		t.Errorf("expected one immediate fetch, got %d", calls.Load())
	}
}
