// Package extraction turns a page HTML snapshot into validated, filtered items.
//
// Site adaptation is data: every container and field lookup is driven by ordered
// selector lists taken from the step and its site profile.
package extraction

import (
	"fmt"
	"regexp"
	"strings"

	"browser_agent/domain/entities"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

const (
	maxContainers   = 20
	minNameLength   = 3
	maxNameLength   = 150
	minProductPrice = 100
)

// Input describes one extraction request
type Input struct {
	Snapshot           entities.PageSnapshot
	Profile            entities.SiteProfile
	ContainerSelectors []string
	Fields             entities.FieldSelectors
	Count              int
	MinRating          *float64
	MinPrice           *int64
	MaxPrice           *int64
}

// Report is the outcome of one extraction
type Report struct {
	Items entities.Results
	// Strategy names the selector that found containers, or "heuristic"
	Strategy   string
	Containers int
	Valid      int
	// RatingFiltered is the surviving count after the rating filter, nil when not applied
	RatingFiltered *int
	// PriceFiltered is the surviving count after the price filter, nil when not applied
	PriceFiltered *int
}

// Pipeline extracts items from page snapshots
type Pipeline struct {
	logger *logrus.Logger
}

// NewPipeline - creates new extraction pipeline
func NewPipeline(logger *logrus.Logger) *Pipeline {
	return &Pipeline{logger: logger}
}

// Extract - runs container discovery, field extraction, validation, filtering and truncation.
// It only fails when the snapshot cannot be parsed at all.
func (p *Pipeline) Extract(in Input) (Report, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(in.Snapshot.HTML))
	if err != nil {
		return Report{}, fmt.Errorf("failed to parse page content: %w", err)
	}

	tag := in.Profile.Tag
	if tag == "" {
		tag = entities.SiteTagGenericProduct
	}

	containers, strategy := p.discoverContainers(doc, in)
	report := Report{Strategy: strategy, Containers: len(containers)}

	fields := fieldPlan{
		name:          mergeSelectors(in.Fields.Name, in.Profile.Fields.Name),
		price:         mergeSelectors(in.Fields.Price, in.Profile.Fields.Price),
		rating:        mergeSelectors(in.Fields.Rating, in.Profile.Fields.Rating),
		url:           mergeSelectors(in.Fields.URL, in.Profile.Fields.URL),
		priceFromText: in.Profile.PriceFromText,
		baseURL:       in.Snapshot.URL,
	}

	var valid entities.Results
	for i, container := range containers {
		item, ok := p.extractContainer(container, fields, i)
		if !ok {
			continue
		}
		item.Site = tag
		if tag == entities.SiteTagListing && item.Price != nil && *item.Price <= 0 {
			item.Price = nil
		}
		if !isValid(item, tag) {
			continue
		}
		valid = append(valid, item)
	}
	report.Valid = len(valid)

	filtered := valid
	if in.MinRating != nil && tag == entities.SiteTagListing {
		filtered = filterByRating(filtered, *in.MinRating)
		n := len(filtered)
		report.RatingFiltered = &n
	}
	if (in.MinPrice != nil || in.MaxPrice != nil) && tag == entities.SiteTagGenericProduct {
		filtered = filterByPrice(filtered, in.MinPrice, in.MaxPrice)
		n := len(filtered)
		report.PriceFiltered = &n
	}

	count := in.Count
	if count <= 0 {
		count = entities.DefaultResultCount
	}
	if len(filtered) > count {
		filtered = filtered[:count]
	}
	report.Items = filtered

	p.logger.WithFields(logrus.Fields{
		"strategy":   report.Strategy,
		"containers": report.Containers,
		"valid":      report.Valid,
		"returned":   len(report.Items),
	}).Debug("extraction finished")

	return report, nil
}

// discoverContainers - first selector with matches wins, otherwise heuristic scan
func (p *Pipeline) discoverContainers(doc *goquery.Document, in Input) ([]*goquery.Selection, string) {
	for _, selector := range mergeSelectors(in.ContainerSelectors, in.Profile.ContainerSelectors) {
		matches := findSafe(doc.Selection, selector)
		if matches.Length() == 0 {
			continue
		}
		p.logger.Debugf("found %d containers with %s", matches.Length(), selector)
		return firstN(matches, maxContainers), selector
	}

	return heuristicContainers(doc, in.Profile), "heuristic"
}

// heuristicContainers - innermost divs holding an item link and text matching the site pattern
func heuristicContainers(doc *goquery.Document, profile entities.SiteProfile) []*goquery.Selection {
	if profile.ItemLink == "" || profile.HeuristicPattern == "" {
		return nil
	}
	pattern, err := regexp.Compile(profile.HeuristicPattern)
	if err != nil {
		return nil
	}

	qualifying := doc.Find("div").FilterFunction(func(_ int, s *goquery.Selection) bool {
		if findSafe(s, profile.ItemLink).Length() == 0 {
			return false
		}
		if profile.HeuristicExclude != "" && findSafe(s, profile.HeuristicExclude).Length() > 0 {
			return false
		}
		return pattern.MatchString(s.Text())
	})

	innermost := qualifying.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return !s.Find("div").IsSelection(qualifying)
	})
	return firstN(innermost, maxContainers)
}

func firstN(sel *goquery.Selection, n int) []*goquery.Selection {
	out := make([]*goquery.Selection, 0, min(sel.Length(), n))
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		out = append(out, s)
		return len(out) < n
	})
	return out
}

// findSafe - Find that treats selector panics as no match
func findSafe(sel *goquery.Selection, selector string) (found *goquery.Selection) {
	defer func() {
		if recover() != nil {
			found = sel.Slice(0, 0)
		}
	}()
	return sel.Find(selector)
}

func mergeSelectors(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
