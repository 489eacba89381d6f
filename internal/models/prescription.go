package models

import (
	"time"

	"github.com/lib/pq"
)

// Frequency describes how often a prescription is taken.
type Frequency string

const (
	FrequencyOnceDaily       Frequency = "once_daily"
	FrequencyTwiceDaily      Frequency = "twice_daily"
	FrequencyThreeTimesDaily Frequency = "three_times_daily"
	FrequencyFourTimesDaily  Frequency = "four_times_daily"
	FrequencyEvery4Hours     Frequency = "every_4_hours"
	FrequencyEvery6Hours     Frequency = "every_6_hours"
	FrequencyEvery8Hours     Frequency = "every_8_hours"
	FrequencyAsNeeded        Frequency = "as_needed"
	FrequencyWeekly          Frequency = "weekly"
)

// TimeSensitive reports frequencies whose doses must not drift.
func (f Frequency) TimeSensitive() bool {
	switch f {
	case FrequencyEvery4Hours, FrequencyEvery6Hours, FrequencyEvery8Hours,
		FrequencyThreeTimesDaily, FrequencyFourTimesDaily:
		return true
	}
	return false
}

// Prescription is an active medication regimen. ReminderTimes are local "HH:MM" values.
type Prescription struct {
	ID             string         `db:"id" json:"id"`
	OwnerUserID    string         `db:"owner_user_id" json:"owner_user_id"`
	SubjectID      *string        `db:"subject_id" json:"subject_id,omitempty"`
	MedicationName string         `db:"medication_name" json:"medication_name"`
	Dosage         string         `db:"dosage" json:"dosage,omitempty"`
	Frequency      Frequency      `db:"frequency" json:"frequency"`
	ReminderTimes  pq.StringArray `db:"reminder_times" json:"reminder_times"`
	TimeZone       string         `db:"time_zone" json:"time_zone"`
	StartDate      time.Time      `db:"start_date" json:"start_date"`
	EndDate        *time.Time     `db:"end_date" json:"end_date,omitempty"`
	IsCritical     bool           `db:"is_critical" json:"is_critical"`
	IsActive       bool           `db:"is_active" json:"is_active"`
}
