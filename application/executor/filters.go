package executor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"browser_agent/domain/entities"
)

// filterPrice - records the bounds for the next extraction and tries the site's own
// max-price input. The UI part is best effort.
func (r *run) filterPrice(ctx context.Context, s entities.FilterPrice) error {
	r.action(ctx, s.Action(), fmt.Sprintf("Filtering: ₹%s-%s", boundText(s.MinPrice, "0"), boundText(s.MaxPrice, "any")))
	r.carried.minPrice = s.MinPrice
	r.carried.maxPrice = s.MaxPrice

	if s.MaxPrice == nil {
		return nil
	}
	if err := r.sleep(ctx, r.cfg.SettleDelay); err != nil {
		return err
	}

	profile := r.currentProfile()
	value := strconv.FormatInt(*s.MaxPrice, 10)
	chain := make([]strategy, 0, len(profile.MaxPriceInputs))
	for _, selector := range profile.MaxPriceInputs {
		selector := selector // per-iteration copy; go directive is 1.21
		chain = append(chain, strategy{name: selector, run: func(ctx context.Context) error {
			if err := r.page.Fill(ctx, selector, value, r.cfg.UIFilterTimeout); err != nil {
				return err
			}
			return r.page.Press(ctx, enterKey)
		}})
	}

	used, err := r.firstSuccess(ctx, chain)
	if err != nil {
		return err
	}
	if used == "" {
		r.logger.Debug("no price filter control on page, filtering after extraction")
		return nil
	}
	r.action(ctx, s.Action(), "Price filter applied")
	if err := r.waitSoft(ctx, s.Action(), entities.LoadStateNetworkIdle, r.cfg.FilterLoadTimeout, ""); err != nil {
		return err
	}
	return r.sleep(ctx, r.cfg.FilterSettleDelay)
}

// filterRating - records the minimum rating and clicks the site's rating control when present
func (r *run) filterRating(ctx context.Context, s entities.FilterRating) error {
	r.carried.minRating = s.MinRating
	if s.MinRating == nil {
		return nil
	}
	rating := strconv.FormatFloat(*s.MinRating, 'f', -1, 64)
	r.action(ctx, s.Action(), fmt.Sprintf("Rating: %s+", rating))

	profile := r.currentProfile()
	chain := make([]strategy, 0, len(profile.RatingControls))
	for _, control := range profile.RatingControls {
		selector := strings.ReplaceAll(control, "{rating}", rating)
		chain = append(chain, strategy{name: selector, run: func(ctx context.Context) error {
			return r.page.Click(ctx, selector, r.cfg.UIFilterTimeout)
		}})
	}

	used, err := r.firstSuccess(ctx, chain)
	if err != nil {
		return err
	}
	if used == "" {
		r.logger.Debug("no rating control on page, filtering after extraction")
		return nil
	}
	r.action(ctx, s.Action(), "Rating filter applied")
	return r.waitSoft(ctx, s.Action(), entities.LoadStateNetworkIdle, r.cfg.FilterLoadTimeout, "")
}

// currentProfile - profile of the site the page is on, falling back to the catalog default
func (r *run) currentProfile() entities.SiteProfile {
	if r.sites == nil {
		return entities.SiteProfile{}
	}
	profile, _ := r.sites.ProfileForURL(r.page.URL())
	return profile
}

func boundText(v *int64, unset string) string {
	if v == nil {
		return unset
	}
	return strconv.FormatInt(*v, 10)
}
