package identity

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robocof/robocof/internal/detector"
	"github.com/robocof/robocof/internal/errors"
	"github.com/robocof/robocof/internal/event"
	"github.com/robocof/robocof/internal/frame"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestNewRegistry(t *testing.T) {
	t.Run("empty dir means empty registry", func(t *testing.T) {
		reg, err := NewRegistry("", nil, nil)
		if err != nil {
			t.Fatalf("NewRegistry() error = %v", err)
		}
		if reg.Len() != 0 {
			t.Errorf("Len() = %d, want 0", reg.Len())
		}
	})

	t.Run("loads yaml files", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "alice.yaml", "display_name: Alice\naliases: [ali]\n")
		writeFile(t, dir, "bob.yml", "name: Bob\n")
		writeFile(t, dir, "notes.txt", "ignored")
		writeFile(t, dir, ".hidden.yaml", "name: ghost\n")

		reg, err := NewRegistry(dir, nil, nil)
		if err != nil {
			t.Fatalf("NewRegistry() error = %v", err)
		}
		names := reg.Names()
		if len(names) != 2 || names[0] != "Bob" || names[1] != "alice" {
			t.Errorf("Names() = %v, want [Bob alice]", names)
		}
	})

	t.Run("missing dir fails", func(t *testing.T) {
		if _, err := NewRegistry(filepath.Join(t.TempDir(), "nope"), nil, nil); err == nil {
			t.Error("expected error for missing directory")
		}
	})

	t.Run("duplicate names fail", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.yaml", "name: alice\n")
		writeFile(t, dir, "b.yaml", "name: ALICE\n")
		if _, err := NewRegistry(dir, nil, nil); err == nil {
			t.Error("expected duplicate error")
		}
	})

	t.Run("conflicting alias fails", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.yaml", "name: alice\naliases: [boss]\n")
		writeFile(t, dir, "b.yaml", "name: bob\naliases: [boss]\n")
		if _, err := NewRegistry(dir, nil, nil); err == nil {
			t.Error("expected alias conflict error")
		}
	})

	t.Run("malformed yaml fails", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.yaml", "name: [unterminated\n")
		if _, err := NewRegistry(dir, nil, nil); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestLookup(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "alice.yaml", "name: Alice\naliases: [ali]\n")
	reg, err := NewRegistry(dir, nil, nil)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	for _, name := range []string{"Alice", "alice", " ALICE ", "ali"} {
		u, ok := reg.Lookup(name)
		if !ok || u.Name != "Alice" {
			t.Errorf("Lookup(%q) = %v, %v", name, u, ok)
		}
	}
	if reg.Contains("bob") {
		t.Error("Contains(bob) = true")
	}
	if _, err := reg.Require("bob"); !errors.Is(err, errors.ErrUnknownUser) {
		t.Errorf("Require(bob) error = %v, want ErrUnknownUser", err)
	}
}

func TestAddRemove(t *testing.T) {
	dir := t.TempDir()
	bus := event.NewBus(nil)
	var reloads atomic.Int32
	bus.Subscribe(event.TypeRegistryReloaded, func(event.Event) { reloads.Add(1) })

	reg, err := NewRegistry(dir, nil, bus)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	if err := reg.Add(User{Name: "Carol", DisplayName: "Carol C"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if !reg.Contains("carol") {
		t.Error("Carol not found after Add")
	}
	if err := reg.Add(User{Name: "carol"}); err == nil {
		t.Error("expected error adding a duplicate")
	}
	if err := reg.Add(User{Name: "../evil"}); err == nil {
		t.Error("expected error for a path-like name")
	}

	if err := reg.Remove("Carol"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d after Remove", reg.Len())
	}
	if err := reg.Remove("Carol"); !errors.Is(err, errors.ErrUnknownUser) {
		t.Errorf("Remove() of missing user = %v", err)
	}

	// initial load, add, remove
	if got := reloads.Load(); got != 3 {
		t.Errorf("reload events = %d, want 3", got)
	}
}

func TestReloadKeepsPreviousOnError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "alice.yaml", "name: alice\n")
	reg, err := NewRegistry(dir, nil, nil)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	writeFile(t, dir, "broken.yaml", ":::\n\t- nope")
	if err := reg.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if !reg.Contains("alice") {
		t.Error("previous contents were dropped")
	}
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	bus := event.NewBus(nil)
	reloaded := make(chan int, 8)
	bus.Subscribe(event.TypeRegistryReloaded, func(e event.Event) {
		reloaded <- e.(event.RegistryReloadedEvent).Users
	})

	reg, err := NewRegistry(dir, nil, bus)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	<-reloaded

	if err := reg.Watch(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer reg.Stop()

	writeFile(t, dir, "dave.yaml", "name: dave\n")

	deadline := time.After(3 * time.Second)
	for {
		select {
		case n := <-reloaded:
			if n == 1 && reg.Contains("dave") {
				return
			}
		case <-deadline:
			t.Fatal("registry was not reloaded after a file was added")
		}
	}
}

func TestStopWithoutWatch(t *testing.T) {
	reg, _ := NewRegistry("", nil, nil)
	reg.Stop()
	if err := reg.Watch(); err == nil {
		t.Error("Watch() without a directory should fail")
	}
}

func TestRecognizer(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "alice.yaml", "name: Alice\naliases: [ali]\n")
	reg, err := NewRegistry(dir, nil, nil)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	raw := detector.FaceRecognizerFunc(func(ctx context.Context, f *frame.Frame) ([]string, error) {
		return []string{"ali", "stranger"}, nil
	})
	names, err := reg.Recognizer(raw).Recognize(context.Background(), &frame.Frame{})
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if len(names) != 2 || names[0] != "Alice" || names[1] != "" {
		t.Errorf("Recognize() = %q, want [Alice \"\"]", names)
	}
	if got := detector.Match(names, "alice"); got != detector.IdentityCorrect {
		t.Errorf("Match() = %v, want correct", got)
	}
}
