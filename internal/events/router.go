package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harborline/freight-notifier/pkg/observability"
)

// Queue names for the task broker.
const (
	QueueMilestone = "milestone.notifications"
	QueueRate      = "rate.notifications"
)

// Task is one unit of delivery work placed on a queue. The event payload
// rides along untouched; the worker parses it by event type.
type Task struct {
	ID        string          `json:"id"`
	EventID   string          `json:"event_id"`
	EventType EventType       `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	Enqueued  time.Time       `json:"enqueued"`
}

// RoutingRule maps an event type to its delivery queue.
type RoutingRule struct {
	Queue string
}

// DefaultRoutingRules covers the event types that produce an email.
// Status events are observed but route nowhere.
var DefaultRoutingRules = map[EventType]RoutingRule{
	EventSOBConfirmed:  {Queue: QueueMilestone},
	EventRateConfirmed: {Queue: QueueRate},
}

// Publisher is the task broker as the router sees it.
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

// Router turns intake events into queued delivery tasks.
type Router struct {
	broker Publisher
	rules  map[EventType]RoutingRule
	logger *observability.Logger
}

func NewRouter(broker Publisher, logger *observability.Logger) *Router {
	return &Router{broker: broker, rules: DefaultRoutingRules, logger: logger}
}

// HandleMessage is the Kafka consumer callback. A malformed or unroutable
// message is logged and dropped; the intake keeps moving.
func (r *Router) HandleMessage(key, value []byte) error {
	var event Event
	if err := json.Unmarshal(value, &event); err != nil {
		r.logger.Warn("dropping malformed booking event", "key", string(key), "error", err)
		return nil
	}
	if err := r.Route(context.Background(), &event); err != nil {
		r.logger.Error("failed to route booking event", "event", event.ID, "type", event.Type, "error", err)
	}
	return nil
}

// Route enqueues a delivery task for the event, or does nothing for event
// types that carry no notification.
func (r *Router) Route(ctx context.Context, event *Event) error {
	rule, ok := r.rules[event.Type]
	if !ok {
		r.logger.Debug("no routing rule for event type", "event", event.ID, "type", event.Type)
		return nil
	}

	task := Task{
		ID:        "task_" + event.ID,
		EventID:   event.ID,
		EventType: event.Type,
		Payload:   event.Data,
		Enqueued:  time.Now().UTC(),
	}
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery task: %w", err)
	}

	if err := r.broker.Publish(ctx, rule.Queue, body); err != nil {
		return fmt.Errorf("failed to enqueue delivery task: %w", err)
	}
	r.logger.Info("booking event routed", "event", event.ID, "type", event.Type, "queue", rule.Queue)
	return nil
}
