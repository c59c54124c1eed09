package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType identifies a booking lifecycle event.
type EventType string

const (
	// Milestone events
	EventSOBConfirmed  EventType = "booking.sob_confirmed"
	EventRateConfirmed EventType = "booking.rate_confirmed"

	// Status events, consumed for logging only
	EventSIFiled    EventType = "booking.si_filed"
	EventBLReleased EventType = "booking.bl_released"
)

// Event is the envelope for booking events on the intake topic.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// MilestoneEventData carries everything needed to notify a customer that
// their cargo is shipped on board. Producers send the full payload; the
// notifier holds no state about the event.
type MilestoneEventData struct {
	BookingNo      string `json:"booking_no"`
	CustomerName   string `json:"customer_name"`
	CustomerEmails string `json:"customer_emails"`
	SalesEmails    string `json:"sales_emails"`
	LocationTag    string `json:"location,omitempty"`
	Vessel         string `json:"vessel,omitempty"`
	Voyage         string `json:"voyage,omitempty"`
	SOBDate        string `json:"sob_date,omitempty"`
	Origin         string `json:"pol,omitempty"`
	Destination    string `json:"fpod,omitempty"`
	ContainerNo    string `json:"container_no,omitempty"`
	Line           string `json:"line,omitempty"`
}

// RateEventData carries a confirmed selling rate for the internal
// sales notification.
type RateEventData struct {
	BookingNo     string `json:"booking_no"`
	CustomerName  string `json:"customer_name"`
	SalesEmails   string `json:"sales_emails"`
	LocationTag   string `json:"location,omitempty"`
	BuyRate       string `json:"buy_rate"`
	SellRate      string `json:"sell_rate"`
	EquipmentType string `json:"equipment_type,omitempty"`
	Origin        string `json:"pol,omitempty"`
	Destination   string `json:"fpod,omitempty"`
}

// NewEvent wraps data in an envelope with a fresh ID and timestamp.
func NewEvent(eventType EventType, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:        "evt_" + uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      dataBytes,
	}, nil
}

// ParseMilestoneData parses the event data as MilestoneEventData.
func (e *Event) ParseMilestoneData() (*MilestoneEventData, error) {
	var data MilestoneEventData
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ParseRateData parses the event data as RateEventData.
func (e *Event) ParseRateData() (*RateEventData, error) {
	var data RateEventData
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
