package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// EventPayload is the closed set of per-type event data shapes.
type EventPayload interface {
	EventType() EventType
	isEventPayload()
}

// MedicationPayload describes a single dose occurrence.
type MedicationPayload struct {
	PrescriptionID string    `json:"prescription_id"`
	MedicationName string    `json:"medication_name"`
	Dosage         string    `json:"dosage,omitempty"`
	Frequency      string    `json:"frequency"`
	DoseTime       time.Time `json:"dose_time"`
	Critical       bool      `json:"critical,omitempty"`
}

func (MedicationPayload) EventType() EventType { return EventTypeMedication }
func (MedicationPayload) isEventPayload()      {}

// FeedingPayload describes a feeding due instant.
type FeedingPayload struct {
	ScheduleID     string    `json:"schedule_id"`
	FoodType       string    `json:"food_type,omitempty"`
	Amount         string    `json:"amount,omitempty"`
	IntervalHours  float64   `json:"interval_hours"`
	DueAt          time.Time `json:"due_at"`
	OverdueMinutes int       `json:"overdue_minutes"`
	Intensity      int       `json:"intensity"`
}

func (FeedingPayload) EventType() EventType { return EventTypeFeeding }
func (FeedingPayload) isEventPayload()      {}

// AgeSchedulePayload describes a vaccination, checkup or milestone row applied to a subject.
type AgeSchedulePayload struct {
	ScheduleItemID string       `json:"schedule_item_id"`
	Name           string       `json:"name"`
	Kind           ScheduleKind `json:"kind"`
	DoseNumber     int          `json:"dose_number"`
	Requirement    Requirement  `json:"requirement"`
	AgeMonths      int          `json:"age_months"`
	MinAgeMonths   int          `json:"min_age_months"`
	MaxAgeMonths   int          `json:"max_age_months"`
}

func (p AgeSchedulePayload) EventType() EventType { return p.Kind.EventType() }
func (AgeSchedulePayload) isEventPayload()        {}

// AlertPayload mirrors a public-health alert.
type AlertPayload struct {
	SourceAlertID string        `json:"source_alert_id"`
	Title         string        `json:"title"`
	Message       string        `json:"message,omitempty"`
	Severity      AlertSeverity `json:"severity"`
	Region        string        `json:"region"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty"`
}

func (AlertPayload) EventType() EventType { return EventTypePublicHealthAlert }
func (AlertPayload) isEventPayload()      {}

// CustomPayload carries user-authored reminder text.
type CustomPayload struct {
	Title string `json:"title"`
	Notes string `json:"notes,omitempty"`
}

func (CustomPayload) EventType() EventType { return EventTypeCustom }
func (CustomPayload) isEventPayload()      {}

// EventData stores a payload as a JSONB envelope tagged with its event type.
type EventData struct {
	Payload EventPayload
}

type eventDataEnvelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshalJSON implements json.Marshaler.
func (d EventData) MarshalJSON() ([]byte, error) {
	if d.Payload == nil {
		return []byte("null"), nil
	}
	raw, err := json.Marshal(d.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(eventDataEnvelope{Type: d.Payload.EventType(), Data: raw})
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *EventData) UnmarshalJSON(b []byte) error {
	if string(b) == "null" || len(b) == 0 {
		d.Payload = nil
		return nil
	}
	var env eventDataEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	payload, err := decodePayload(env.Type, env.Data)
	if err != nil {
		return err
	}
	d.Payload = payload
	return nil
}

func decodePayload(t EventType, raw json.RawMessage) (EventPayload, error) {
	switch t {
	case EventTypeMedication:
		var p MedicationPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case EventTypeFeeding:
		var p FeedingPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case EventTypeVaccination, EventTypeCheckup, EventTypeLifecycleMilestone:
		var p AgeSchedulePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		if p.Kind == "" {
			p.Kind = scheduleKindFor(t)
		}
		return p, nil
	case EventTypePublicHealthAlert:
		var p AlertPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case EventTypeCustom:
		var p CustomPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown event data type %q", t)
	}
}

// Value implements driver.Valuer.
func (d EventData) Value() (driver.Value, error) {
	if d.Payload == nil {
		return []byte("{}"), nil
	}
	return d.MarshalJSON()
}

// Scan implements sql.Scanner.
func (d *EventData) Scan(value interface{}) error {
	if value == nil {
		d.Payload = nil
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for EventData", value)
	}
	if len(b) == 0 || string(b) == "{}" {
		d.Payload = nil
		return nil
	}
	return d.UnmarshalJSON(b)
}
