package extraction

import "browser_agent/domain/entities"

// isValid applies the site's validity predicate
func isValid(item entities.ExtractedItem, tag entities.SiteTag) bool {
	if len([]rune(item.Name)) < minNameLength {
		return false
	}
	if tag == entities.SiteTagListing {
		return true
	}
	return item.Price != nil && *item.Price >= minProductPrice
}

// filterByRating drops items with a missing or lower rating
func filterByRating(items entities.Results, minRating float64) entities.Results {
	out := make(entities.Results, 0, len(items))
	for _, item := range items {
		if item.Rating != nil && *item.Rating >= minRating {
			out = append(out, item)
		}
	}
	return out
}

// filterByPrice drops items whose known price is outside [min, max]; unknown prices pass
func filterByPrice(items entities.Results, minPrice, maxPrice *int64) entities.Results {
	out := make(entities.Results, 0, len(items))
	for _, item := range items {
		if item.Price == nil {
			out = append(out, item)
			continue
		}
		if minPrice != nil && *item.Price < *minPrice {
			continue
		}
		if maxPrice != nil && *item.Price > *maxPrice {
			continue
		}
		out = append(out, item)
	}
	return out
}
