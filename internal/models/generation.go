package models

import "time"

// Domain names a generator.
type Domain string

const (
	DomainMedication  Domain = "medication"
	DomainFeeding     Domain = "feeding"
	DomainVaccination Domain = "vaccination"
	DomainHealthAlert Domain = "health_alert"
)

// DomainError is one isolated generator failure.
type DomainError struct {
	Domain  Domain `json:"domain"`
	Scope   string `json:"scope"`
	Message string `json:"message"`
}

// GenerationReport summarises a RunForOwner pass.
type GenerationReport struct {
	OwnerUserID string         `json:"owner_user_id"`
	Created     map[Domain]int `json:"created"`
	Existing    map[Domain]int `json:"existing"`
	TotalErrors int            `json:"total_errors"`
	Errors      []DomainError  `json:"errors"`
	Duration    time.Duration  `json:"duration"`
}

// NewGenerationReport returns a report with initialised counters.
func NewGenerationReport(ownerID string) *GenerationReport {
	return &GenerationReport{
		OwnerUserID: ownerID,
		Created:     make(map[Domain]int),
		Existing:    make(map[Domain]int),
		Errors:      []DomainError{},
	}
}

// TotalCreated sums created counts across domains.
func (r *GenerationReport) TotalCreated() int {
	total := 0
	for _, n := range r.Created {
		total += n
	}
	return total
}

// SweepReport summarises one missed-event sweep.
type SweepReport struct {
	Marked        int           `json:"marked"`
	AlertsExpired int           `json:"alerts_expired"`
	Duration      time.Duration `json:"duration"`
}

// CreateCustomEventRequest is a user-authored reminder.
type CreateCustomEventRequest struct {
	SubjectID     *string   `json:"subject_id,omitempty"`
	Title         string    `json:"title" validate:"required,max=200"`
	Notes         string    `json:"notes,omitempty" validate:"max=2000"`
	ScheduledTime time.Time `json:"scheduled_time" validate:"required"`
	Priority      Priority  `json:"priority,omitempty" validate:"omitempty,oneof=low normal high urgent"`
}
