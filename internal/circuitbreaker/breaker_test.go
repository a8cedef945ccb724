package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errTarget = errors.New("target failed")

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestBreaker(cfg Config) (*Breaker, *clock) {
	c := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	b := New("endpoint:1", cfg)
	b.now = c.now
	return b, c
}

func TestOpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 2, Cooldown: time.Minute})

	for i := 0; i < 2; i++ {
		if err := b.Execute(func() error { return errTarget }); !errors.Is(err, errTarget) {
			t.Fatalf("expected target error, got %v", err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("expected open state, got %s", b.State())
	}

	called := false
	err := b.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrOpen) || called {
		t.Fatalf("expected fast failure while open, got %v (called=%v)", err, called)
	}
	if b.Snapshot().Rejected != 1 {
		t.Fatalf("expected one rejected call, got %d", b.Snapshot().Rejected)
	}
}

func TestHalfOpenTrials(t *testing.T) {
	b, c := newTestBreaker(Config{Threshold: 1, Cooldown: time.Second, Trials: 2})

	_ = b.Execute(func() error { return errTarget })
	c.t = c.t.Add(2 * time.Second)

	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("expected trial call to pass, got %v", err)
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("expected half-open after one trial, got %s", b.State())
	}
	_ = b.Execute(func() error { return nil })
	if b.State() != StateClosed {
		t.Fatalf("expected closed after two trials, got %s", b.State())
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b, c := newTestBreaker(Config{Threshold: 3, Cooldown: time.Second})

	for i := 0; i < 3; i++ {
		_ = b.Execute(func() error { return errTarget })
	}
	c.t = c.t.Add(2 * time.Second)
	_ = b.Execute(func() error { return errTarget })

	if b.State() != StateOpen {
		t.Fatalf("expected failed trial to reopen, got %s", b.State())
	}
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected cooldown to restart, got %v", err)
	}
}

func TestSuccessResetsFailures(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 2})

	_ = b.Execute(func() error { return errTarget })
	_ = b.Execute(func() error { return nil })
	_ = b.Execute(func() error { return errTarget })

	snap := b.Snapshot()
	if snap.State != StateClosed || snap.ConsecutiveFailures != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.LastFailure == nil {
		t.Fatal("expected last failure to be recorded")
	}
}

func TestReset(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 1, Cooldown: time.Hour})

	_ = b.Execute(func() error { return errTarget })
	b.Reset()

	if b.State() != StateClosed {
		t.Fatalf("expected closed after reset, got %s", b.State())
	}
	if err := b.Allow(); err != nil {
		t.Fatalf("expected calls to be admitted after reset, got %v", err)
	}
}
