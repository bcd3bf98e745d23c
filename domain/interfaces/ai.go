package interfaces

import (
	"browser_agent/domain/entities"
	"context"
)

// IntentParser converts free text into a structured intent
type IntentParser interface {
	// ParseIntent classifies text and extracts its parameters
	ParseIntent(ctx context.Context, text string) (entities.Intent, error)
}

// PlanGenerator produces a plan for an intent
type PlanGenerator interface {
	// GeneratePlan returns the ordered steps that fulfil intent
	GeneratePlan(intent entities.Intent) entities.Plan
}

// SiteCatalog resolves site profiles by name
type SiteCatalog interface {
	// Profile returns the named profile, or the default profile and false
	Profile(name string) (entities.SiteProfile, bool)

	// ProfileForURL returns the profile whose site hosts rawURL, or the default profile and false
	ProfileForURL(rawURL string) (entities.SiteProfile, bool)
}
