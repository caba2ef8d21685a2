// Package event provides a pub-sub event bus for decoupled communication
// between the arbiter and the components that observe it.
//
// # Main Types
//
//   - [Event]: interface implemented by every event (EventType, Timestamp)
//   - [Bus]: synchronous, concurrency-safe dispatcher
//   - [Handler]: func(Event)
//
// # Event Categories
//
// Arbitration runs:
//   - [RunStartedEvent]: frame source, detectors and deadline are running
//   - [RunDecidedEvent]: the run returned its decision
//
// Detectors:
//   - [DetectorSampledEvent]: one classification round produced an observation
//   - [DetectorCompletedEvent]: the arbiter evaluated a finished task
//
// Service:
//   - [RegistryReloadedEvent]: identity references were (re)loaded
//   - [CallbackDeliveredEvent]: a deferred decision was delivered
//
// # Thread Safety
//
// The [Bus] is safe for concurrent use. Handlers are called synchronously on
// the publisher's goroutine and protected against panics.
//
// # Basic Usage
//
//	bus := event.NewBus(logger)
//	bus.Subscribe(event.TypeRunDecided, func(e event.Event) {
//	    decided := e.(event.RunDecidedEvent)
//	    fmt.Println(decided.Decision)
//	})
package event
