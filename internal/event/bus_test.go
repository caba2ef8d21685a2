package event

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/robocof/robocof/internal/logging"
)

func TestBus_Subscribe(t *testing.T) {
	bus := NewBus(nil)

	called := false
	id := bus.Subscribe(TypeRunStarted, func(e Event) {
		called = true
	})

	if id == "" {
		t.Error("Subscribe should return a non-empty ID")
	}
	if bus.SubscriptionCount() != 1 {
		t.Errorf("Expected 1 subscription, got %d", bus.SubscriptionCount())
	}
	if called {
		t.Error("Handler should not be called until an event is published")
	}
}

func TestBus_Publish(t *testing.T) {
	bus := NewBus(nil)

	var received Event
	bus.Subscribe(TypeRunStarted, func(e Event) {
		received = e
	})

	bus.Publish(NewRunStartedEvent("run-1", 5*time.Second, false, []string{"gesture", "identity"}))

	if received == nil {
		t.Fatal("Handler should have received the event")
	}
	started, ok := received.(RunStartedEvent)
	if !ok {
		t.Fatalf("expected RunStartedEvent, got %T", received)
	}
	if started.RunID != "run-1" || started.Timeout != 5*time.Second {
		t.Errorf("unexpected payload: %+v", started)
	}
}

func TestBus_PublishMultipleHandlers(t *testing.T) {
	bus := NewBus(nil)

	callCount := 0
	bus.Subscribe("test.event", func(e Event) { callCount++ })
	bus.Subscribe("test.event", func(e Event) { callCount++ })

	bus.Publish(newBaseEvent("test.event"))

	if callCount != 2 {
		t.Errorf("Expected both handlers to be called, got %d calls", callCount)
	}
}

func TestBus_PublishNoMatchingHandlers(t *testing.T) {
	bus := NewBus(nil)

	bus.Subscribe("other.event", func(e Event) {
		t.Error("Handler should not be called for non-matching event type")
	})

	bus.Publish(newBaseEvent("test.event"))
}

func TestBus_PublishOrder(t *testing.T) {
	bus := NewBus(nil)

	var order []string
	bus.SubscribeAll(func(e Event) { order = append(order, "all") })
	bus.Subscribe(TypeRunDecided, func(e Event) { order = append(order, "first") })
	bus.Subscribe(TypeRunDecided, func(e Event) { order = append(order, "second") })

	bus.Publish(NewRunDecidedEvent("run-1", "USER_ABORT", "gesture", time.Second, ""))

	if got := strings.Join(order, ","); got != "first,second,all" {
		t.Errorf("handler order = %s, want first,second,all", got)
	}
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus(nil)

	var types []string
	bus.SubscribeAll(func(e Event) {
		types = append(types, e.EventType())
	})

	bus.Publish(NewDetectorSampledEvent("run-1", "gesture", "OPEN_PALM"))
	bus.Publish(NewDetectorCompletedEvent("run-1", "gesture", "conclusive", "USER_ABORT"))
	bus.Publish(NewRegistryReloadedEvent(3, ""))

	want := []string{TypeDetectorSampled, TypeDetectorCompleted, TypeRegistryReloaded}
	if len(types) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(types))
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, types[i], want[i])
		}
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil)

	called := false
	id := bus.Subscribe(TypeCallbackDelivered, func(e Event) { called = true })

	if !bus.Unsubscribe(id) {
		t.Error("Unsubscribe should return true for existing subscription")
	}
	if bus.Unsubscribe(id) {
		t.Error("Unsubscribe should return false for removed subscription")
	}
	if bus.Unsubscribe("sub-999") {
		t.Error("Unsubscribe should return false for unknown ID")
	}

	bus.Publish(NewCallbackDeliveredEvent(7, "http://robot/cb", "CARRY_OUT_ACTION", 1, ""))
	if called {
		t.Error("Handler should not be called after unsubscribe")
	}
	if bus.SubscriptionCount() != 0 {
		t.Errorf("Expected 0 subscriptions, got %d", bus.SubscriptionCount())
	}
}

func TestBus_UnsubscribeKeepsOthers(t *testing.T) {
	bus := NewBus(nil)

	var calls []string
	first := bus.Subscribe("test.event", func(e Event) { calls = append(calls, "a") })
	bus.Subscribe("test.event", func(e Event) { calls = append(calls, "b") })

	bus.Unsubscribe(first)
	bus.Publish(newBaseEvent("test.event"))

	if len(calls) != 1 || calls[0] != "b" {
		t.Errorf("calls = %v, want [b]", calls)
	}
}

func TestBus_HandlerPanicIsRecovered(t *testing.T) {
	var buf bytes.Buffer
	bus := NewBus(logging.NewWriterLogger(&buf, logging.LevelDebug))

	secondCalled := false
	bus.Subscribe("test.event", func(e Event) { panic("handler exploded") })
	bus.Subscribe("test.event", func(e Event) { secondCalled = true })

	bus.Publish(newBaseEvent("test.event"))

	if !secondCalled {
		t.Error("handlers after a panicking one should still run")
	}
	if !strings.Contains(buf.String(), "handler exploded") {
		t.Errorf("expected panic to be logged, got %q", buf.String())
	}
}

func TestBus_NilPublish(t *testing.T) {
	var bus *Bus
	bus.Publish(newBaseEvent("test.event"))
}

func TestBus_Clear(t *testing.T) {
	bus := NewBus(nil)

	bus.Subscribe("a", func(e Event) {})
	bus.Subscribe("b", func(e Event) {})
	bus.SubscribeAll(func(e Event) {})

	if bus.SubscriptionCount() != 3 {
		t.Errorf("Expected 3 subscriptions, got %d", bus.SubscriptionCount())
	}
	bus.Clear()
	if bus.SubscriptionCount() != 0 {
		t.Errorf("Expected 0 subscriptions after clear, got %d", bus.SubscriptionCount())
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	count := 0
	bus.Subscribe(TypeDetectorSampled, func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bus.Publish(NewDetectorSampledEvent("run-1", "gesture", "THUMB_UP"))
			}
		}()
	}
	wg.Wait()

	if count != 1000 {
		t.Errorf("Expected 1000 handler calls, got %d", count)
	}
}

func TestBus_ConcurrentSubscribe(t *testing.T) {
	bus := NewBus(nil)

	var wg sync.WaitGroup
	ids := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- bus.Subscribe("test.event", func(e Event) {})
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		if seen[id] {
			t.Errorf("duplicate subscription ID %s", id)
		}
		seen[id] = true
	}
	if bus.SubscriptionCount() != 50 {
		t.Errorf("Expected 50 subscriptions, got %d", bus.SubscriptionCount())
	}
}

func TestEventTimestamps(t *testing.T) {
	before := time.Now()
	e := NewRunDecidedEvent("run-1", "TIMEOUT", "deadline", 2*time.Second, "")
	after := time.Now()

	if e.Timestamp().Before(before) || e.Timestamp().After(after) {
		t.Errorf("timestamp %v not within [%v, %v]", e.Timestamp(), before, after)
	}
	if e.EventType() != TypeRunDecided {
		t.Errorf("EventType() = %s", e.EventType())
	}
}
