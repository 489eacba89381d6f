package models

import "time"

// AlertSeverity grades a public-health alert.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// RegionNationwide applies to every household.
const RegionNationwide = "nationwide"

// HealthAlert is an entry of the public-health alert feed.
type HealthAlert struct {
	ID           string        `db:"id" json:"id"`
	Title        string        `db:"title" json:"title"`
	Message      string        `db:"message" json:"message"`
	Severity     AlertSeverity `db:"severity" json:"severity"`
	Region       string        `db:"region" json:"region"`
	MinAgeMonths *int          `db:"min_age_months" json:"min_age_months,omitempty"`
	MaxAgeMonths *int          `db:"max_age_months" json:"max_age_months,omitempty"`
	IsActive     bool          `db:"is_active" json:"is_active"`
	PublishedAt  time.Time     `db:"published_at" json:"published_at"`
	ExpiresAt    *time.Time    `db:"expires_at" json:"expires_at,omitempty"`
}

// AgeTargeted reports whether the alert carries an age band.
func (a HealthAlert) AgeTargeted() bool {
	return a.MinAgeMonths != nil || a.MaxAgeMonths != nil
}

// MatchesAge reports whether ageMonths falls inside the alert's age band.
func (a HealthAlert) MatchesAge(ageMonths int) bool {
	if a.MinAgeMonths != nil && ageMonths < *a.MinAgeMonths {
		return false
	}
	if a.MaxAgeMonths != nil && ageMonths > *a.MaxAgeMonths {
		return false
	}
	return true
}

// ActiveAt reports whether the alert is live at now.
func (a HealthAlert) ActiveAt(now time.Time) bool {
	if !a.IsActive {
		return false
	}
	if a.ExpiresAt != nil && !now.Before(*a.ExpiresAt) {
		return false
	}
	return true
}
