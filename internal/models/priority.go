package models

// Priority orders events for presentation. Tiers: low < normal < high < urgent.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var priorityTiers = []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent}

// Rank returns the tier index, or -1 for unknown values.
func (p Priority) Rank() int {
	for i, tier := range priorityTiers {
		if tier == p {
			return i
		}
	}
	return -1
}

// Valid reports whether p is a known tier.
func (p Priority) Valid() bool {
	return p.Rank() >= 0
}

// Escalate moves one tier up, capped at urgent.
func (p Priority) Escalate() Priority {
	r := p.Rank()
	if r < 0 {
		return PriorityNormal
	}
	if r >= len(priorityTiers)-1 {
		return PriorityUrgent
	}
	return priorityTiers[r+1]
}

// Deescalate moves one tier down, floored at low.
func (p Priority) Deescalate() Priority {
	r := p.Rank()
	if r < 0 {
		return PriorityNormal
	}
	if r == 0 {
		return PriorityLow
	}
	return priorityTiers[r-1]
}

// Below reports whether p is a strictly lower tier than other.
func (p Priority) Below(other Priority) bool {
	return p.Rank() < other.Rank()
}
