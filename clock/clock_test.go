package clock

import (
	"testing"
	"time"
)

func TestMonotonic(t *testing.T) {
	c := New()
	defer c.Close()

	prev := c.Now()
	for i := 0; i < 5; i++ {
		time.Sleep(2 * time.Millisecond)
		next := c.Now()
		if next < prev {
			t.Fatalf("Now() went backwards: %d -> %d", prev, next)
		}
		prev = next
	}
}

func TestPausePreservesVirtualTime(t *testing.T) {
	c := New()
	defer c.Close()

	time.Sleep(20 * time.Millisecond)
	c.Pause()
	frozen := c.Now()

	time.Sleep(30 * time.Millisecond)
	if got := c.Now(); got != frozen {
		t.Fatalf("Now() moved while paused: %d -> %d", frozen, got)
	}

	c.Start()
	time.Sleep(5 * time.Millisecond)
	if got := c.Now(); got < frozen {
		t.Fatalf("Now() did not resume advancing: frozen=%d got=%d", frozen, got)
	}
}

func TestSetTimeoutFiresAfterDelay(t *testing.T) {
	c := New()
	defer c.Close()

	fired := make(chan struct{})
	c.SetTimeout(func() { close(fired) }, 10)

	select {
	case <-fired:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout did not fire")
	}
}

func TestPauseDefersTimeout(t *testing.T) {
	c := New()
	defer c.Close()

	fired := make(chan struct{})
	c.Pause()
	c.SetTimeout(func() { close(fired) }, 10)

	select {
	case <-fired:
		t.Fatal("timeout fired while paused")
	case <-time.After(50 * time.Millisecond):
	}

	c.Start()
	select {
	case <-fired:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout did not fire after resume")
	}
}

func TestSetTimeoutOverwriteDiagnostic(t *testing.T) {
	c := New()
	defer c.Close()

	c.SetTimeout(func() {}, 10_000)
	c.SetTimeout(func() {}, 10_000)

	select {
	case d := <-c.Diagnostics:
		if d.Code != "clock_timeout_overwrite" {
			t.Fatalf("unexpected diagnostic code: %q", d.Code)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected a diagnostic for the overwritten timeout")
	}
}
