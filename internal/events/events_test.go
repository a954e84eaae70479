package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/axonworks/axon/internal/config"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	bus, err := NewBus(config.EventsConfig{
		Port:    -1, // random port
		DataDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("failed to create bus: %v", err)
	}
	t.Cleanup(bus.Close)
	return bus
}

func TestPublishExecutionEvent(t *testing.T) {
	bus := newTestBus(t)

	pub, err := NewPublisher(bus)
	if err != nil {
		t.Fatalf("failed to create publisher: %v", err)
	}
	defer pub.Close()

	sub, err := nats.Connect(bus.ClientURL())
	if err != nil {
		t.Fatalf("connect subscriber: %v", err)
	}
	defer sub.Close()

	received := make(chan Event, 1)
	_, err = sub.Subscribe(TopicExecutionsAll, func(msg *nats.Msg) {
		var ev Event
		if err := json.Unmarshal(msg.Data, &ev); err == nil {
			received <- ev
		}
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := sub.Flush(); err != nil {
		t.Fatalf("flush subscription: %v", err)
	}

	pub.Publish(Event{
		Type:        ExecutionStarted,
		ExecutionID: "exec-1",
		Process:     "CopyProcess",
	})
	pub.Flush()

	select {
	case ev := <-received:
		if ev.Type != ExecutionStarted {
			t.Errorf("expected execution_started, got %s", ev.Type)
		}
		if ev.ExecutionID != "exec-1" {
			t.Errorf("unexpected execution id: %s", ev.ExecutionID)
		}
		if ev.At.IsZero() {
			t.Error("expected timestamp to be stamped")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestTaskEventsUseTaskTopic(t *testing.T) {
	bus := newTestBus(t)

	pub, err := NewPublisher(bus)
	if err != nil {
		t.Fatalf("failed to create publisher: %v", err)
	}
	defer pub.Close()

	sub, err := nats.Connect(bus.ClientURL())
	if err != nil {
		t.Fatalf("connect subscriber: %v", err)
	}
	defer sub.Close()

	received := make(chan string, 1)
	_, err = sub.Subscribe(TopicTasksAll, func(msg *nats.Msg) {
		received <- msg.Subject
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := sub.Flush(); err != nil {
		t.Fatalf("flush subscription: %v", err)
	}

	pub.Publish(Event{
		Type:        TaskCompleted,
		ExecutionID: "exec-2",
		Process:     "CopyProcess",
		Task:        "generate_copy",
	})
	pub.Flush()

	select {
	case subject := <-received:
		if subject != TopicTask("exec-2") {
			t.Errorf("unexpected subject: %s", subject)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestNilPublisherIsSafe(t *testing.T) {
	var pub *Publisher

	// Must not panic.
	pub.Publish(Event{Type: ExecutionStarted, ExecutionID: "x"})
	pub.Flush()
	pub.Close()
}
