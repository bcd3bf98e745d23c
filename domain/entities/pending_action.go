package entities

// RiskLevel grades how much a step can change state on a remote site
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// PendingAction is a plan step that needs confirmation before the plan runs
type PendingAction struct {
	Step   int       `json:"step"`
	Action Action    `json:"action"`
	Risk   RiskLevel `json:"risk"`
	Reason string    `json:"reason"`
}
