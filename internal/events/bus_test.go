package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSubscribeAndEmitSync(t *testing.T) {
	bus := NewBus()
	defer bus.Stop()

	var mu sync.Mutex
	var got []Event
	bus.Subscribe(EventChat, "collector", func(_ context.Context, ev Event) error {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
		return nil
	})

	ev := Event{Type: EventChat, Source: "map", Payload: ChatPayload{Message: "hello"}}
	if err := bus.EmitSync(context.Background(), ev); err != nil {
		t.Fatalf("EmitSync: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	if p, ok := got[0].Payload.(ChatPayload); !ok || p.Message != "hello" {
		t.Fatalf("payload = %#v", got[0].Payload)
	}
}

func TestEmitAsyncDelivers(t *testing.T) {
	bus := NewBus()

	done := make(chan struct{})
	bus.Subscribe(EventServerTick, "waiter", func(context.Context, Event) error {
		close(done)
		return nil
	})

	bus.Emit(context.Background(), Event{Type: EventServerTick, Source: "map"})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("handler never ran")
	}
	bus.Stop()
}

func TestEmitSyncReturnsFirstError(t *testing.T) {
	bus := NewBus()
	defer bus.Stop()

	wantErr := errors.New("journal full")
	bus.Subscribe(EventItemGained, "failing", func(context.Context, Event) error {
		return wantErr
	})

	err := bus.EmitSync(context.Background(), Event{Type: EventItemGained})
	if !errors.Is(err, wantErr) {
		t.Fatalf("EmitSync error = %v, want %v", err, wantErr)
	}
}

func TestPanickingHandlerIsContained(t *testing.T) {
	bus := NewBus()
	defer bus.Stop()

	var ran bool
	bus.Subscribe(EventMapChange, "panicker", func(context.Context, Event) error {
		panic("boom")
	})
	bus.Subscribe(EventMapChange, "survivor", func(context.Context, Event) error {
		ran = true
		return nil
	})

	if err := bus.EmitSync(context.Background(), Event{Type: EventMapChange}); err != nil {
		t.Fatalf("EmitSync: %v", err)
	}
	if !ran {
		t.Fatal("second handler did not run after first panicked")
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Stop()

	bus.Subscribe(EventChat, "a", func(context.Context, Event) error { return nil })
	bus.Subscribe(EventChat, "b", func(context.Context, Event) error { return nil })
	if n := bus.HandlerCount(EventChat); n != 2 {
		t.Fatalf("HandlerCount = %d, want 2", n)
	}

	bus.Unsubscribe(EventChat, "a")
	if n := bus.HandlerCount(EventChat); n != 1 {
		t.Fatalf("HandlerCount after Unsubscribe = %d, want 1", n)
	}
}

func TestStoppedBusDropsEvents(t *testing.T) {
	bus := NewBus()

	var called bool
	bus.Subscribe(EventShutdown, "late", func(context.Context, Event) error {
		called = true
		return nil
	})
	bus.Stop()

	if err := bus.EmitSync(context.Background(), Event{Type: EventShutdown}); err != nil {
		t.Fatalf("EmitSync on stopped bus: %v", err)
	}
	if called {
		t.Fatal("handler ran after Stop")
	}
	select {
	case <-bus.StopCh():
	default:
		t.Fatal("StopCh not closed after Stop")
	}
}
