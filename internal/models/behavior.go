package models

import "time"

// ResolvedEvent is a terminal event inside the behaviour window.
type ResolvedEvent struct {
	ID          string      `db:"id"`
	OwnerUserID string      `db:"owner_user_id"`
	SubjectID   *string     `db:"subject_id"`
	EventType   EventType   `db:"event_type"`
	Status      EventStatus `db:"status"`
	ResolvedAt  time.Time   `db:"resolved_at"`
}

// BehaviorKey groups statistics per owner, subject and category.
type BehaviorKey struct {
	OwnerUserID string
	SubjectID   string
	Category    Category
}

// BehaviorStat is recomputed from resolved events on every adjustment pass.
type BehaviorStat struct {
	Key       BehaviorKey
	Missed    int
	Completed int
	Dismissed int

	missedAt    []time.Time
	completedAt []time.Time
}

// Record folds one resolved event into the stat.
func (s *BehaviorStat) Record(ev ResolvedEvent) {
	switch ev.Status {
	case EventStatusMissed:
		s.Missed++
		s.missedAt = append(s.missedAt, ev.ResolvedAt)
	case EventStatusCompleted:
		s.Completed++
		s.completedAt = append(s.completedAt, ev.ResolvedAt)
	case EventStatusCancelled:
		s.Dismissed++
	}
}

// MissedSince counts misses resolved strictly after t.
func (s *BehaviorStat) MissedSince(t time.Time) int {
	return countAfter(s.missedAt, t)
}

// CompletedSince counts completions resolved strictly after t.
func (s *BehaviorStat) CompletedSince(t time.Time) int {
	return countAfter(s.completedAt, t)
}

func countAfter(instants []time.Time, t time.Time) int {
	n := 0
	for _, at := range instants {
		if at.After(t) {
			n++
		}
	}
	return n
}

// AdjustmentReason explains a priority change.
type AdjustmentReason string

const (
	ReasonRepeatedMisses        AdjustmentReason = "repeated_misses"
	ReasonConsistentCompletions AdjustmentReason = "consistent_completions"
)

// PriorityAdjustment records one applied priority change.
type PriorityAdjustment struct {
	ID          string           `db:"id" json:"id"`
	EventID     string           `db:"event_id" json:"event_id"`
	OldPriority Priority         `db:"old_priority" json:"old_priority"`
	NewPriority Priority         `db:"new_priority" json:"new_priority"`
	Reason      AdjustmentReason `db:"reason" json:"reason"`
	AdjustedAt  time.Time        `db:"adjusted_at" json:"adjusted_at"`
}

// AdjustmentReport summarises one adjuster pass.
type AdjustmentReport struct {
	OwnerUserID string               `json:"owner_user_id"`
	Evaluated   int                  `json:"evaluated"`
	Applied     []PriorityAdjustment `json:"applied"`
	Skipped     int                  `json:"skipped"`
	Duration    time.Duration        `json:"duration"`
}
