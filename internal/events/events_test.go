package events_test

import (
	"sync"
	"testing"

	"github.com/arjunv/modfetch/internal/events"
)

func TestDispatcher_DispatchReachesListener(t *testing.T) {
	d := events.NewDispatcher()

	var mu sync.Mutex
	var received []events.Event

	d.Register(events.ListenerFunc(func(e events.Event) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, e)
	}), events.SyncExecutor{})

	d.Dispatch(events.Event{Kind: events.TaskAdded, TaskID: 1})

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 || received[0].TaskID != 1 {
		t.Fatalf("expected one event for task 1, got %+v", received)
	}
}

func TestDispatcher_UnregisterStopsDelivery(t *testing.T) {
	d := events.NewDispatcher()

	var count int
	handle := d.Register(events.ListenerFunc(func(events.Event) { count++ }), events.SyncExecutor{})

	d.Dispatch(events.Event{Kind: events.TaskAdded})
	d.Unregister(handle)
	d.Dispatch(events.Event{Kind: events.TaskAdded})

	if count != 1 {
		t.Errorf("expected exactly one delivered event, got %d", count)
	}
}

func TestDispatcher_ClearRemovesAllListeners(t *testing.T) {
	d := events.NewDispatcher()

	var count int
	d.Register(events.ListenerFunc(func(events.Event) { count++ }), events.SyncExecutor{})
	d.Register(events.ListenerFunc(func(events.Event) { count++ }), events.SyncExecutor{})

	d.Clear()
	d.Dispatch(events.Event{Kind: events.TaskAdded})

	if count != 0 {
		t.Errorf("expected no events after Clear, got %d", count)
	}
}

func TestDispatcher_PanicInListenerDoesNotPropagate(t *testing.T) {
	d := events.NewDispatcher()

	d.Register(events.ListenerFunc(func(events.Event) {
		panic("boom")
	}), events.SyncExecutor{})

	d.Dispatch(events.Event{Kind: events.TaskFailed})
}
