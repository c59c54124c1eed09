package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/harborline/freight-notifier/pkg/observability"
)

func testLogger() *observability.Logger {
	return observability.NewLogger("events-test", "test", "error")
}

type fakeBroker struct {
	published map[string][][]byte
	err       error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{published: make(map[string][][]byte)}
}

func (b *fakeBroker) Publish(ctx context.Context, queue string, body []byte) error {
	if b.err != nil {
		return b.err
	}
	b.published[queue] = append(b.published[queue], body)
	return nil
}

func TestRouteMilestoneEvent(t *testing.T) {
	broker := newFakeBroker()
	router := NewRouter(broker, testLogger())

	event, err := NewEvent(EventSOBConfirmed, MilestoneEventData{
		BookingNo:      "HBL-4471",
		CustomerEmails: "buyer@acme.test",
	})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}

	if err := router.Route(context.Background(), event); err != nil {
		t.Fatalf("Route: %v", err)
	}

	bodies := broker.published[QueueMilestone]
	if len(bodies) != 1 {
		t.Fatalf("milestone queue got %d tasks, want 1", len(bodies))
	}

	var task Task
	if err := json.Unmarshal(bodies[0], &task); err != nil {
		t.Fatalf("task did not unmarshal: %v", err)
	}
	if task.EventID != event.ID || task.EventType != EventSOBConfirmed {
		t.Errorf("task = %+v, want event %s carried through", task, event.ID)
	}

	var payload MilestoneEventData
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		t.Fatalf("payload did not unmarshal: %v", err)
	}
	if payload.BookingNo != "HBL-4471" {
		t.Errorf("payload booking = %q, want the original event data untouched", payload.BookingNo)
	}
}

func TestRouteRateEventGoesToRateQueue(t *testing.T) {
	broker := newFakeBroker()
	router := NewRouter(broker, testLogger())

	event, _ := NewEvent(EventRateConfirmed, RateEventData{BookingNo: "HBL-1", SalesEmails: "iyer@harborline.test"})
	if err := router.Route(context.Background(), event); err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(broker.published[QueueRate]) != 1 || len(broker.published[QueueMilestone]) != 0 {
		t.Errorf("published = %v, want the rate queue only", broker.published)
	}
}

func TestRouteStatusEventRoutesNowhere(t *testing.T) {
	broker := newFakeBroker()
	router := NewRouter(broker, testLogger())

	event, _ := NewEvent(EventSIFiled, map[string]string{"booking_no": "HBL-1"})
	if err := router.Route(context.Background(), event); err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(broker.published) != 0 {
		t.Errorf("status event published tasks: %v", broker.published)
	}
}

func TestRouteBrokerFailureSurfaces(t *testing.T) {
	broker := newFakeBroker()
	broker.err = errors.New("broker down")
	router := NewRouter(broker, testLogger())

	event, _ := NewEvent(EventSOBConfirmed, MilestoneEventData{BookingNo: "HBL-1"})
	if err := router.Route(context.Background(), event); err == nil {
		t.Fatal("expected the publish error to surface")
	}
}

func TestHandleMessageDropsMalformedEvents(t *testing.T) {
	broker := newFakeBroker()
	router := NewRouter(broker, testLogger())

	if err := router.HandleMessage([]byte("k"), []byte("{not json")); err != nil {
		t.Fatalf("malformed intake message must be dropped, got %v", err)
	}
	if len(broker.published) != 0 {
		t.Errorf("malformed message published tasks: %v", broker.published)
	}
}
