package interfaces

import "browser_agent/domain/entities"

// StepGuard grades plan steps before they run
type StepGuard interface {
	// AssessStep returns the risk level of a step and why
	AssessStep(step entities.Step) (entities.RiskLevel, string)

	// PendingActions returns the steps of a plan that require confirmation
	PendingActions(plan entities.Plan) []entities.PendingAction
}
