package entities

import "time"

// EventType categorizes a RunEvent
type EventType string

const (
	EventStatus         EventType = "status"
	EventActionStart    EventType = "action_start"
	EventAction         EventType = "action"
	EventActionComplete EventType = "action_complete"
	EventWarning        EventType = "warning"
	EventError          EventType = "error"
)

// RunEvent is a progress, result or failure notification emitted during a run
type RunEvent struct {
	Type       EventType       `json:"type"`
	Message    string          `json:"message,omitempty"`
	Action     Action          `json:"action,omitempty"`
	Step       int             `json:"step,omitempty"`
	TotalSteps int             `json:"total_steps,omitempty"`
	Status     RunStatus       `json:"status,omitempty"`
	Target     string          `json:"target,omitempty"`
	Count      *int            `json:"count,omitempty"`
	Preview    []ExtractedItem `json:"preview,omitempty"`
	Fatal      bool            `json:"fatal,omitempty"`
	RunID      string          `json:"run_id,omitempty"`
	Time       time.Time       `json:"time"`
}
