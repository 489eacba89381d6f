package models

import (
	"fmt"
	"time"
)

// EventType classifies a care event.
type EventType string

const (
	EventTypeMedication         EventType = "medication"
	EventTypeFeeding            EventType = "feeding"
	EventTypeCheckup            EventType = "checkup"
	EventTypeVaccination        EventType = "vaccination"
	EventTypePublicHealthAlert  EventType = "public_health_alert"
	EventTypeLifecycleMilestone EventType = "lifecycle_milestone"
	EventTypeCustom             EventType = "custom"
)

// AllEventTypes lists every event type in a stable order.
var AllEventTypes = []EventType{
	EventTypeMedication,
	EventTypeFeeding,
	EventTypeCheckup,
	EventTypeVaccination,
	EventTypePublicHealthAlert,
	EventTypeLifecycleMilestone,
	EventTypeCustom,
}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	for _, known := range AllEventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Category is the coarse grouping the priority adjuster reasons about.
type Category string

const (
	CategoryMedication  Category = "medication"
	CategoryFeeding     Category = "feeding"
	CategoryCheckup     Category = "checkup"
	CategoryEnvironment Category = "environment"
	CategoryCustom      Category = "custom"
)

// Category maps an event type onto its behaviour category.
func (t EventType) Category() Category {
	switch t {
	case EventTypeMedication:
		return CategoryMedication
	case EventTypeFeeding:
		return CategoryFeeding
	case EventTypeCheckup, EventTypeVaccination, EventTypeLifecycleMilestone:
		return CategoryCheckup
	case EventTypePublicHealthAlert:
		return CategoryEnvironment
	default:
		return CategoryCustom
	}
}

// Pinned categories are never re-prioritised from behaviour.
func (c Category) Pinned() bool {
	return c == CategoryEnvironment
}

// EventStatus tracks the event lifecycle.
type EventStatus string

const (
	EventStatusPending   EventStatus = "pending"
	EventStatusActive    EventStatus = "active"
	EventStatusCompleted EventStatus = "completed"
	EventStatusMissed    EventStatus = "missed"
	EventStatusCancelled EventStatus = "cancelled"
)

// Open reports whether the event still awaits user action.
func (s EventStatus) Open() bool {
	return s == EventStatusPending || s == EventStatusActive
}

// CareEvent is the scheduled, typed reminder unit.
type CareEvent struct {
	ID                 string      `db:"id" json:"id"`
	OwnerUserID        string      `db:"owner_user_id" json:"owner_user_id"`
	SubjectID          *string     `db:"subject_id" json:"subject_id,omitempty"`
	EventType          EventType   `db:"event_type" json:"event_type"`
	EventData          EventData   `db:"event_data" json:"event_data"`
	NaturalKey         string      `db:"natural_key" json:"natural_key"`
	Title              string      `db:"title" json:"title"`
	ScheduledTime      time.Time   `db:"scheduled_time" json:"scheduled_time"`
	Status             EventStatus `db:"status" json:"status"`
	Priority           Priority    `db:"priority" json:"priority"`
	PriorityAdjustedAt *time.Time  `db:"priority_adjusted_at" json:"priority_adjusted_at,omitempty"`
	CompletedAt        *time.Time  `db:"completed_at" json:"completed_at,omitempty"`
	PointsEarned       int         `db:"points_earned" json:"points_earned"`
	ExperienceEarned   int         `db:"experience_earned" json:"experience_earned"`
	CreatedAt          time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at" json:"updated_at"`
}

// SubjectKey is the subject id or "" for the owner themself, matching the dedup index.
func (e CareEvent) SubjectKey() string {
	if e.SubjectID == nil {
		return ""
	}
	return *e.SubjectID
}

// CareEventCandidate is a generator's request to create one pending event.
type CareEventCandidate struct {
	OwnerUserID   string
	SubjectID     *string
	NaturalKey    string
	Title         string
	ScheduledTime time.Time
	Priority      Priority
	Payload       EventPayload
}

// EventType derives the type from the payload so the two can never disagree.
func (c CareEventCandidate) EventType() EventType {
	if c.Payload == nil {
		return ""
	}
	return c.Payload.EventType()
}

// Validate checks the fields the store relies on.
func (c CareEventCandidate) Validate() error {
	switch {
	case c.OwnerUserID == "":
		return fmt.Errorf("candidate owner is required")
	case c.Payload == nil:
		return fmt.Errorf("candidate payload is required")
	case c.NaturalKey == "":
		return fmt.Errorf("candidate natural key is required")
	case c.ScheduledTime.IsZero():
		return fmt.Errorf("candidate scheduled time is required")
	case !c.Priority.Valid():
		return fmt.Errorf("candidate priority %q is invalid", c.Priority)
	}
	return nil
}

// Event materialises the candidate as a new pending event (id and timestamps assigned by the store).
func (c CareEventCandidate) Event() *CareEvent {
	return &CareEvent{
		OwnerUserID:   c.OwnerUserID,
		SubjectID:     c.SubjectID,
		EventType:     c.EventType(),
		EventData:     EventData{Payload: c.Payload},
		NaturalKey:    c.NaturalKey,
		Title:         c.Title,
		ScheduledTime: c.ScheduledTime.UTC(),
		Status:        EventStatusPending,
		Priority:      c.Priority,
	}
}

// UpsertResult reports whether an upsert created a new row.
type UpsertResult struct {
	Created bool
	Event   *CareEvent
}

// CareEventFilter constrains pending listings.
type CareEventFilter struct {
	OwnerUserID string
	SubjectID   *string
	EventType   EventType
	Statuses    []EventStatus
	Limit       int
}

// Natural key builders. Instants are normalised to UTC so keys are stable across zones.

// MedicationKey identifies one dose occurrence of a prescription.
func MedicationKey(prescriptionID string, occurrence time.Time) string {
	return fmt.Sprintf("rx:%s:%s", prescriptionID, occurrence.UTC().Format(time.RFC3339))
}

// FeedingKey identifies one due instant of a feeding schedule.
func FeedingKey(scheduleID string, due time.Time) string {
	return fmt.Sprintf("feed:%s:%s", scheduleID, due.UTC().Format(time.RFC3339))
}

// FeedingKeyPrefix matches every key of a feeding schedule.
func FeedingKeyPrefix(scheduleID string) string {
	return fmt.Sprintf("feed:%s:", scheduleID)
}

// AgeScheduleKey identifies one dose of a master-schedule row for a subject.
func AgeScheduleKey(itemID string, doseNumber int) string {
	return fmt.Sprintf("vax:%s:%d", itemID, doseNumber)
}

// AlertKey identifies a public-health alert.
func AlertKey(sourceAlertID string) string {
	return "alert:" + sourceAlertID
}

// CustomKey identifies a user-authored event.
func CustomKey(id string) string {
	return "custom:" + id
}
