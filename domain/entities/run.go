package entities

import "time"

// Run represents one executed plan and its outcome
type Run struct {
	ID         string    `json:"id"`
	Input      string    `json:"input"`
	Status     RunStatus `json:"status"`
	StepCount  int       `json:"step_count"`
	Results    Results   `json:"results,omitempty"`
	Errors     int       `json:"errors"`
	Warnings   int       `json:"warnings"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// RunStatus represents the status of a run
type RunStatus string

const (
	RunStatusReady     RunStatus = "ready"
	RunStatusCompleted RunStatus = "completed"
	RunStatusStopped   RunStatus = "stopped"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)
