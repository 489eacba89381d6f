package models

import "time"

// FeedingSchedule drives feeding reminders for one subject.
type FeedingSchedule struct {
	ID                  string     `db:"id" json:"id"`
	OwnerUserID         string     `db:"owner_user_id" json:"owner_user_id" validate:"required"`
	SubjectID           *string    `db:"subject_id" json:"subject_id,omitempty"`
	FoodType            string     `db:"food_type" json:"food_type,omitempty"`
	Amount              string     `db:"amount" json:"amount,omitempty"`
	IntervalHours       float64    `db:"interval_hours" json:"interval_hours" validate:"gt=0"`
	LastFeedingTime     *time.Time `db:"last_feeding_time" json:"last_feeding_time,omitempty"`
	ReminderLeadMinutes int        `db:"reminder_lead_minutes" json:"reminder_lead_minutes" validate:"gte=0"`
	IsActive            bool       `db:"is_active" json:"is_active"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// Interval returns the feeding interval as a duration.
func (s FeedingSchedule) Interval() time.Duration {
	return time.Duration(s.IntervalHours * float64(time.Hour))
}

// Lead returns how early the reminder fires before the due time.
func (s FeedingSchedule) Lead() time.Duration {
	return time.Duration(s.ReminderLeadMinutes) * time.Minute
}

// FeedingAnchor is the most recent missed or cancelled feeding event of a schedule.
type FeedingAnchor struct {
	ScheduleID    string      `db:"schedule_id"`
	Status        EventStatus `db:"status"`
	ScheduledTime time.Time   `db:"scheduled_time"`
}

// RecordFeedingRequest confirms a feeding outside a reminder.
type RecordFeedingRequest struct {
	FedAt *time.Time `json:"fed_at"`
}
