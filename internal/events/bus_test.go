package events_test

import (
	"testing"

	"turnstile/internal/events"
	"turnstile/internal/record"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := events.NewBus(4)
	a, cancelA := bus.Subscribe()
	b, cancelB := bus.Subscribe()
	defer cancelA()
	defer cancelB()

	bus.Publish(events.Recognized(record.Record{ID: "A001"}))

	for name, sub := range map[string]<-chan events.Event{"a": a, "b": b} {
		select {
		case ev := <-sub:
			if ev.Type != events.TypeRecognized || ev.Record.ID != "A001" {
				t.Fatalf("%s: unexpected event %+v", name, ev)
			}
		default:
			t.Fatalf("%s: expected buffered event", name)
		}
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := events.NewBus(1)
	sub, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(events.Suppressed("k1"))
	bus.Publish(events.Suppressed("k2")) // dropped, buffer full

	ev := <-sub
	if ev.Key != "k1" {
		t.Fatalf("expected first event retained, got %q", ev.Key)
	}
	select {
	case ev := <-sub:
		t.Fatalf("expected second event dropped, got %+v", ev)
	default:
	}
}

func TestCancelClosesChannel(t *testing.T) {
	bus := events.NewBus(4)
	sub, cancel := bus.Subscribe()
	cancel()

	if _, ok := <-sub; ok {
		t.Fatal("expected closed channel after cancel")
	}
	// Publishing after cancel must not panic.
	bus.Publish(events.QueueFull(1))
}

func TestCloseTerminatesSubscribers(t *testing.T) {
	bus := events.NewBus(4)
	sub, _ := bus.Subscribe()
	bus.Close()

	if _, ok := <-sub; ok {
		t.Fatal("expected closed channel after bus close")
	}

	late, cancel := bus.Subscribe()
	defer cancel()
	if _, ok := <-late; ok {
		t.Fatal("subscriptions after close must be closed immediately")
	}
}
