// Package planner turns intents into action plans using site profiles.
package planner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"browser_agent/domain/entities"
	"browser_agent/domain/interfaces"

	"github.com/sirupsen/logrus"
)

const (
	searchInputTimeout = 10 * time.Second
	defaultCategory    = "restaurants"
)

// Generator builds plans from rules and the site catalog
type Generator struct {
	sites           interfaces.SiteCatalog
	comparisonSites []string
	logger          *logrus.Logger
}

// NewGenerator - creates new plan generator. comparisonSites are used when a comparison
// names fewer than two sites.
func NewGenerator(sites interfaces.SiteCatalog, comparisonSites []string, logger *logrus.Logger) *Generator {
	return &Generator{
		sites:           sites,
		comparisonSites: comparisonSites,
		logger:          logger,
	}
}

// GeneratePlan - returns the steps for intent. Intents that cannot be served produce a
// single Unsupported step.
func (g *Generator) GeneratePlan(in entities.Intent) entities.Plan {
	var plan entities.Plan
	switch in.Kind {
	case entities.IntentProductSearch:
		plan = g.productSearch(in)
	case entities.IntentLocalDiscovery:
		plan = g.localDiscovery(in)
	case entities.IntentFormFill:
		plan = g.formFill(in)
	case entities.IntentComparison:
		plan = g.comparison(in)
	case entities.IntentNavigation:
		plan = g.navigation(in)
	default:
		plan = unsupported(in.Kind)
	}

	g.logger.WithFields(logrus.Fields{
		"intent": in.Kind,
		"steps":  len(plan),
	}).Debug("plan generated")
	return plan
}

func (g *Generator) productSearch(in entities.Intent) entities.Plan {
	profile, _ := g.sites.Profile(in.Site)
	query := in.Query
	if query == "" {
		query = in.ProductName
	}

	plan := searchSteps(profile, query, true)
	if in.Filters.MaxPrice != nil || in.Filters.MinPrice != nil {
		plan = append(plan, entities.FilterPrice{
			MinPrice: in.Filters.MinPrice,
			MaxPrice: in.Filters.MaxPrice,
		})
	}
	return append(plan, extractStep(profile, resultCount(in.Filters.Count)))
}

func (g *Generator) localDiscovery(in entities.Intent) entities.Plan {
	profile, _ := g.sites.Profile(string(entities.SiteTagListing))
	if in.Site != "" {
		if p, ok := g.sites.Profile(in.Site); ok && p.Tag == entities.SiteTagListing {
			profile = p
		}
	}

	category := in.Category
	if category == "" {
		category = defaultCategory
	}
	query := category
	if in.Location != "" {
		query = fmt.Sprintf("%s near %s", category, in.Location)
	}

	plan := searchSteps(profile, query, false)
	if in.Filters.MinRating != nil {
		plan = append(plan, entities.FilterRating{MinRating: in.Filters.MinRating})
	}
	extract := extractStep(profile, resultCount(in.Filters.Count))
	extract.MinRating = in.Filters.MinRating
	return append(plan, extract)
}

func (g *Generator) formFill(in entities.Intent) entities.Plan {
	var plan entities.Plan
	if in.URL != "" {
		plan = append(plan, entities.Navigate{URL: in.URL, WaitUntil: entities.LoadStateNetworkIdle})
	}

	fields := make([]string, 0, len(in.FormData))
	for f := range in.FormData {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		plan = append(plan, entities.FillFormField{
			FieldName:        f,
			Value:            in.FormData[f],
			GenerateIfNeeded: true,
		})
	}
	return append(plan, entities.SubmitForm{WaitAfter: entities.LoadStateNetworkIdle})
}

// comparison - one search and single-item extraction per site
func (g *Generator) comparison(in entities.Intent) entities.Plan {
	sites := in.Sites
	if len(sites) < 2 {
		sites = g.comparisonSites
	}
	query := in.ProductName
	if query == "" {
		query = in.Query
	}

	var plan entities.Plan
	for _, site := range sites {
		profile, ok := g.sites.Profile(site)
		if !ok {
			g.logger.WithField("site", site).Warn("no profile for comparison site, skipping")
			continue
		}
		plan = append(plan, searchSteps(profile, query, false)...)
		plan = append(plan, extractStep(profile, 1))
	}
	if len(plan) == 0 {
		return unsupported(in.Kind)
	}
	return plan
}

func (g *Generator) navigation(in entities.Intent) entities.Plan {
	if in.URL == "" {
		return entities.Plan{entities.Unsupported{Reason: "No URL found to navigate to."}}
	}
	return entities.Plan{entities.Navigate{URL: in.URL, WaitUntil: entities.LoadStateNetworkIdle}}
}

// searchSteps - open the site, type the query and submit it
func searchSteps(profile entities.SiteProfile, query string, waitForInput bool) entities.Plan {
	plan := entities.Plan{entities.Navigate{URL: profile.URL, WaitUntil: entities.LoadStateNetworkIdle}}
	if waitForInput {
		plan = append(plan, entities.WaitFor{Selectors: profile.SearchInput, Timeout: searchInputTimeout})
	}
	return append(plan,
		entities.Type{Selectors: profile.SearchInput, Value: query, ClearFirst: waitForInput},
		entities.Click{Selectors: profile.SearchButton, WaitAfter: entities.LoadStateNetworkIdle},
	)
}

func extractStep(profile entities.SiteProfile, count int) entities.ExtractProducts {
	return entities.ExtractProducts{
		ContainerSelectors: profile.ContainerSelectors,
		Fields:             profile.Fields,
		Count:              count,
		Site:               profile.Name,
	}
}

func resultCount(n int) int {
	if n <= 0 {
		return entities.DefaultResultCount
	}
	return n
}

func unsupported(kind entities.IntentKind) entities.Plan {
	if kind == "" {
		kind = entities.IntentUnknown
	}
	supported := []string{
		string(entities.IntentProductSearch),
		string(entities.IntentLocalDiscovery),
		string(entities.IntentFormFill),
	}
	return entities.Plan{entities.Unsupported{
		Reason: fmt.Sprintf("Intent '%s' not handled yet. Please try: %s, or %s.",
			kind, strings.Join(supported, ", "), entities.IntentComparison),
	}}
}

var _ interfaces.PlanGenerator = (*Generator)(nil)
