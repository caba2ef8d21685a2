package deadline

import (
	"context"
	"testing"
	"time"

	"github.com/robocof/robocof/internal/detector"
	"github.com/robocof/robocof/internal/errors"
)

func TestNew(t *testing.T) {
	if _, err := New(0); !errors.IsConfiguration(err) {
		t.Errorf("New(0) error = %v, want ConfigurationError", err)
	}
	if _, err := New(-time.Second); err == nil {
		t.Error("New(-1s) should fail")
	}

	c, err := New(2 * time.Second)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.IsInfinite() || c.Duration() != 2*time.Second || c.String() != "2s" {
		t.Errorf("unexpected controller %v", c)
	}

	start := time.Now()
	if d, ok := c.Deadline(start); !ok || !d.Equal(start.Add(2*time.Second)) {
		t.Errorf("Deadline() = %v, %v", d, ok)
	}
	if _, ok := Infinite().Deadline(start); ok {
		t.Error("infinite controller should have no deadline")
	}
}

func TestRun_Expires(t *testing.T) {
	c, err := New(40 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	out := c.Run(context.Background())
	elapsed := time.Since(start)

	if out.Kind != detector.KindConclusive || !out.Result.Expired {
		t.Fatalf("expected expired outcome, got %+v", out)
	}
	if elapsed < 40*time.Millisecond {
		t.Errorf("expired early after %v", elapsed)
	}
}

func TestRun_Canceled(t *testing.T) {
	c, err := New(time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if out := c.Run(ctx); !out.Canceled() {
		t.Errorf("expected canceled outcome, got %+v", out)
	}
}

func TestInfinite_NeverCompletes(t *testing.T) {
	c := Infinite()
	if !c.IsInfinite() || c.String() != "infinite" {
		t.Fatalf("unexpected controller %v", c)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan detector.Outcome, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case out := <-done:
		t.Fatalf("infinite controller completed: %+v", out)
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	select {
	case out := <-done:
		if !out.Canceled() {
			t.Errorf("expected canceled outcome, got %+v", out)
		}
	case <-time.After(time.Second):
		t.Fatal("infinite controller ignored cancellation")
	}
}
