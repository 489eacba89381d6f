package models

import "time"

// Reward is the points and experience an event type grants on completion.
type Reward struct {
	Points     int `json:"points"`
	Experience int `json:"experience"`
}

// DefaultRewards are applied when a completion request carries no explicit values.
var DefaultRewards = map[EventType]Reward{
	EventTypeMedication:         {Points: 10, Experience: 15},
	EventTypeFeeding:            {Points: 5, Experience: 10},
	EventTypeCheckup:            {Points: 20, Experience: 30},
	EventTypeVaccination:        {Points: 50, Experience: 75},
	EventTypeLifecycleMilestone: {Points: 30, Experience: 40},
	EventTypePublicHealthAlert:  {Points: 5, Experience: 5},
	EventTypeCustom:             {Points: 5, Experience: 5},
}

// LevelForExperience returns the highest level L >= 1 with xp >= 50*L*(L-1).
func LevelForExperience(xp int) int {
	level := 1
	for xp >= 50*(level+1)*level {
		level++
	}
	return level
}

// UserProgress is the cumulative gamification state of an owner.
type UserProgress struct {
	UserID          string    `db:"user_id" json:"user_id"`
	TotalPoints     int       `db:"total_points" json:"total_points"`
	TotalExperience int       `db:"total_experience" json:"total_experience"`
	Level           int       `db:"level" json:"level"`
	EventsCompleted int       `db:"events_completed" json:"events_completed"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// CompleteRequest finalises an event; nil rewards fall back to DefaultRewards.
type CompleteRequest struct {
	EventID     string `json:"-"`
	OwnerUserID string `json:"-"`
	Points      *int   `json:"points,omitempty" validate:"omitempty,gte=0"`
	Experience  *int   `json:"experience,omitempty" validate:"omitempty,gte=0"`
}

// ProgressTotals is the post-completion snapshot.
type ProgressTotals struct {
	Points     int `json:"points"`
	Experience int `json:"experience"`
	Level      int `json:"level"`
}

// CompletionResult is returned by a successful completion.
type CompletionResult struct {
	Success          bool           `json:"success"`
	EventID          string         `json:"event_id"`
	PointsEarned     int            `json:"points_earned"`
	ExperienceEarned int            `json:"experience_earned"`
	NewTotals        ProgressTotals `json:"new_totals"`
	LeveledUp        bool           `json:"leveled_up"`
}
