package models

import "time"

// ScheduleKind selects which event type a master-schedule row produces.
type ScheduleKind string

const (
	ScheduleKindVaccination ScheduleKind = "vaccination"
	ScheduleKindCheckup     ScheduleKind = "checkup"
	ScheduleKindMilestone   ScheduleKind = "milestone"
)

// EventType maps the row kind onto the event it generates.
func (k ScheduleKind) EventType() EventType {
	switch k {
	case ScheduleKindCheckup:
		return EventTypeCheckup
	case ScheduleKindMilestone:
		return EventTypeLifecycleMilestone
	default:
		return EventTypeVaccination
	}
}

func scheduleKindFor(t EventType) ScheduleKind {
	switch t {
	case EventTypeCheckup:
		return ScheduleKindCheckup
	case EventTypeLifecycleMilestone:
		return ScheduleKindMilestone
	default:
		return ScheduleKindVaccination
	}
}

// Requirement grades how strongly a row is recommended.
type Requirement string

const (
	RequirementRequired    Requirement = "required"
	RequirementRecommended Requirement = "recommended"
	RequirementOptional    Requirement = "optional"
)

// AgeScheduleItem is one row of the master vaccination / checkup / milestone schedule.
type AgeScheduleItem struct {
	ID             string       `db:"id" json:"id"`
	Name           string       `db:"name" json:"name"`
	Kind           ScheduleKind `db:"kind" json:"kind"`
	DoseNumber     int          `db:"dose_number" json:"dose_number"`
	MinAgeMonths   int          `db:"min_age_months" json:"min_age_months"`
	MaxAgeMonths   *int         `db:"max_age_months" json:"max_age_months,omitempty"`
	Requirement    Requirement  `db:"requirement" json:"requirement"`
	GenderRequired *string      `db:"gender_required" json:"gender_required,omitempty"`
}

// Applies reports whether a subject of the given age (months) and gender falls in the row's window.
func (r AgeScheduleItem) Applies(ageMonths int, gender string) bool {
	if ageMonths < r.MinAgeMonths {
		return false
	}
	if r.MaxAgeMonths != nil && ageMonths > *r.MaxAgeMonths {
		return false
	}
	if r.GenderRequired != nil && *r.GenderRequired != "" && *r.GenderRequired != gender {
		return false
	}
	return true
}

// AdministeredRecord marks a (subject, row, dose) as done.
type AdministeredRecord struct {
	ID             string    `db:"id" json:"id"`
	SubjectID      string    `db:"subject_id" json:"subject_id"`
	ScheduleItemID string    `db:"schedule_item_id" json:"schedule_item_id"`
	DoseNumber     int       `db:"dose_number" json:"dose_number"`
	AdministeredAt time.Time `db:"administered_at" json:"administered_at"`
	EventID        *string   `db:"event_id" json:"event_id,omitempty"`
}

// AdministeredKey identifies a record for set membership.
type AdministeredKey struct {
	ScheduleItemID string
	DoseNumber     int
}
