package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Topics carrying execution lifecycle events.
const (
	TopicExecutionsAll = "events.execution.>"
	TopicTasksAll      = "events.task.>"
)

func TopicExecution(executionID string) string {
	return fmt.Sprintf("events.execution.%s", executionID)
}

func TopicTask(executionID string) string {
	return fmt.Sprintf("events.task.%s", executionID)
}

// Event is the envelope published for every lifecycle transition.
type Event struct {
	Type        string         `json:"type"`
	ExecutionID string         `json:"execution_id"`
	Process     string         `json:"process"`
	Task        string         `json:"task,omitempty"`
	Detail      map[string]any `json:"detail,omitempty"`
	At          time.Time      `json:"at"`
}

// Event types.
const (
	ExecutionStarted   = "execution_started"
	ExecutionCompleted = "execution_completed"
	ExecutionFailed    = "execution_failed"
	TaskStarted        = "task_started"
	TaskCompleted      = "task_completed"
)

// Publisher writes events to the bus. A nil *Publisher is valid and
// drops everything, so callers never need to branch on configuration.
type Publisher struct {
	conn *nats.Conn
}

func NewPublisher(bus *Bus) (*Publisher, error) {
	conn, err := nats.Connect(bus.ClientURL())
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Publisher{conn: conn}, nil
}

func NewPublisherFromURL(url string) (*Publisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Publisher{conn: conn}, nil
}

func (p *Publisher) Publish(ev Event) {
	if p == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	topic := TopicExecution(ev.ExecutionID)
	if ev.Task != "" {
		topic = TopicTask(ev.ExecutionID)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("marshal event", "type", ev.Type, "error", err)
		return
	}
	if err := p.conn.Publish(topic, data); err != nil {
		slog.Warn("publish event", "topic", topic, "error", err)
	}
}

func (p *Publisher) Flush() {
	if p == nil {
		return
	}
	_ = p.conn.Flush()
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.conn.Close()
}
