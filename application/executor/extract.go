package executor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"browser_agent/application/extraction"
	"browser_agent/domain/entities"
)

// scrolls once so lazily rendered results make it into the snapshot
const lazyLoadScript = `() => { window.scrollTo(0, document.body.scrollHeight / 2); return true; }`

const noResultsWarning = "No valid products found. The page structure might have changed. Try a different search query."

// extractProducts - snapshots the page and runs the extraction pipeline over it.
// Any failure here is reported as an Error event and yields no items.
func (r *run) extractProducts(ctx context.Context, s entities.ExtractProducts) error {
	count := s.Count
	if count <= 0 {
		count = entities.DefaultResultCount
	}
	r.action(ctx, s.Action(), fmt.Sprintf("Extracting top %d results...", count))

	profile := r.extractionProfile(s.Site)
	if ready := joinSelectors(profile.ReadySelectors); ready != "" {
		if _, err := r.attempt(ctx, "wait for results", func(ctx context.Context) error {
			_, err := r.page.WaitForSelector(ctx, ready, r.cfg.ExtractReadyTimeout)
			return err
		}); err != nil {
			return err
		}
	}
	if _, err := r.attempt(ctx, "lazy-load scroll", func(ctx context.Context) error {
		_, err := r.page.Evaluate(ctx, lazyLoadScript)
		return err
	}); err != nil {
		return err
	}
	if err := r.sleep(ctx, r.cfg.ExtractSettleDelay); err != nil {
		return err
	}

	html, err := r.page.Content(ctx)
	if err != nil {
		if errors.Is(err, entities.ErrDriverUnavailable) || ctx.Err() != nil {
			return err
		}
		r.extractionFailed(ctx, s.Action(), err)
		return nil
	}
	title, _ := r.page.Title(ctx)

	report, err := r.pipeline.Extract(extraction.Input{
		Snapshot:           entities.PageSnapshot{URL: r.page.URL(), Title: title, HTML: html},
		Profile:            profile,
		ContainerSelectors: s.ContainerSelectors,
		Fields:             s.Fields,
		Count:              count,
		MinRating:          firstFloat(s.MinRating, r.carried.minRating),
		MinPrice:           firstInt(s.MinPrice, r.carried.minPrice),
		MaxPrice:           firstInt(s.MaxPrice, r.carried.maxPrice),
	})
	if err != nil {
		r.extractionFailed(ctx, s.Action(), err)
		return nil
	}

	if report.RatingFiltered != nil {
		minRating := firstFloat(s.MinRating, r.carried.minRating)
		r.emit(ctx, entities.RunEvent{
			Type:    entities.EventAction,
			Action:  entities.ActionFilterRating,
			Message: fmt.Sprintf("Filtered: %d restaurants with %s+ rating", *report.RatingFiltered, strconv.FormatFloat(*minRating, 'f', -1, 64)),
			Count:   report.RatingFiltered,
		})
	}
	if report.PriceFiltered != nil {
		r.emit(ctx, entities.RunEvent{
			Type:    entities.EventAction,
			Action:  entities.ActionFilterPrice,
			Message: fmt.Sprintf("Filtered: %d items", *report.PriceFiltered),
			Count:   report.PriceFiltered,
		})
	}

	if len(report.Items) == 0 {
		r.warn(ctx, s.Action(), noResultsWarning)
		return nil
	}

	n := len(report.Items)
	preview := append([]entities.ExtractedItem(nil), report.Items[:min(2, n)]...)
	r.emit(ctx, entities.RunEvent{
		Type:    entities.EventAction,
		Action:  s.Action(),
		Message: fmt.Sprintf("✓ Extracted %d valid results", n),
		Count:   &n,
		Preview: preview,
	})
	r.results = append(r.results, report.Items...)
	return nil
}

func (r *run) extractionFailed(ctx context.Context, action entities.Action, err error) {
	title, titleErr := r.page.Title(ctx)
	if titleErr != nil {
		title = "unknown"
	}
	r.emit(ctx, entities.RunEvent{
		Type:    entities.EventError,
		Action:  action,
		Message: fmt.Sprintf("Extraction error: %v. Page title: %s", err, title),
	})
}

// extractionProfile - profile named by the step, else the one matching the page URL
func (r *run) extractionProfile(site string) entities.SiteProfile {
	if r.sites == nil {
		return entities.SiteProfile{Tag: entities.SiteTagGenericProduct}
	}
	if site != "" {
		if profile, ok := r.sites.Profile(site); ok {
			return profile
		}
	}
	return r.currentProfile()
}

func joinSelectors(selectors []string) string {
	return strings.Join(selectors, ", ")
}

func firstFloat(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstInt(vals ...*int64) *int64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
