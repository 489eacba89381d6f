package models

import "time"

// Household is the owner user plus the region their alerts are scoped to.
type Household struct {
	OwnerUserID string `db:"owner_user_id" json:"owner_user_id"`
	Region      string `db:"region" json:"region"`
}

// Dependent is a child, elder or pet cared for by an owner.
type Dependent struct {
	ID          string    `db:"id" json:"id"`
	OwnerUserID string    `db:"owner_user_id" json:"owner_user_id"`
	Name        string    `db:"name" json:"name"`
	Kind        string    `db:"kind" json:"kind"`
	Gender      string    `db:"gender" json:"gender"`
	BirthDate   time.Time `db:"birth_date" json:"birth_date"`
}

// Scope is the unit a generator runs against: the owner themself (Dependent nil) or one dependent.
type Scope struct {
	Household Household
	Dependent *Dependent
}

// OwnerUserID returns the owning user of the scope.
func (s Scope) OwnerUserID() string {
	return s.Household.OwnerUserID
}

// SubjectID returns the dependent id, or nil for the owner scope.
func (s Scope) SubjectID() *string {
	if s.Dependent == nil {
		return nil
	}
	id := s.Dependent.ID
	return &id
}

// Label names the scope in reports and logs.
func (s Scope) Label() string {
	if s.Dependent == nil {
		return "owner"
	}
	return s.Dependent.ID
}

// AgeInMonths counts whole calendar months between birth and now.
func AgeInMonths(birth, now time.Time) int {
	if now.Before(birth) {
		return 0
	}
	months := (now.Year()-birth.Year())*12 + int(now.Month()) - int(birth.Month())
	if now.Day() < birth.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
