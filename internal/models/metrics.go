package models

import "time"

// EngineMetrics is a point-in-time summary of engine activity since process start.
type EngineMetrics struct {
	RequestsTotal       uint64    `json:"requests_total"`
	CacheHitRatio       float64   `json:"cache_hit_ratio"`
	EventsCreated       uint64    `json:"events_created"`
	EventsExisting      uint64    `json:"events_existing"`
	GeneratorErrors     uint64    `json:"generator_errors"`
	PriorityAdjustments uint64    `json:"priority_adjustments"`
	EventsCompleted     uint64    `json:"events_completed"`
	EventsMissed        uint64    `json:"events_missed"`
	Goroutines          int       `json:"goroutines"`
	GeneratedAt         time.Time `json:"generated_at"`
}
