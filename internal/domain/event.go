package domain

import "time"

// EventType represents the kind of clone event.
type EventType string

const (
	EventProgress EventType = "progress"
	EventLog      EventType = "log"
	EventError    EventType = "error"
	EventComplete EventType = "complete"
)

// Event is a notification published while a clone job runs.
type Event struct {
	JobID     string    `json:"job_id"`
	Type      EventType `json:"type"`
	Message   string    `json:"message,omitempty"`
	Percent   float64   `json:"percent,omitempty"`
	Success   *bool     `json:"success,omitempty"`
	Stats     *Stats    `json:"stats,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
