package entities

import (
	"encoding/json"
	"strconv"
)

const (
	// DefaultResultCount is used when an extraction step does not request a count
	DefaultResultCount = 3

	// UnknownValue marks an absent optional field on generic-product items
	UnknownValue = "N/A"
)

// ExtractedItem is one normalized record produced by the extraction pipeline
type ExtractedItem struct {
	Name   string
	Price  *int64
	Rating *float64
	URL    string
	Site   SiteTag
}

// Results is the ordered list of items produced by a run
type Results []ExtractedItem

// PriceText - formats the price as digits, or empty when unknown
func (i ExtractedItem) PriceText() string {
	if i.Price == nil {
		return ""
	}
	return strconv.FormatInt(*i.Price, 10)
}

// RatingText - formats the rating, using the site's sentinel when unknown
func (i ExtractedItem) RatingText() string {
	if i.Rating == nil {
		return i.missing()
	}
	return strconv.FormatFloat(*i.Rating, 'f', -1, 64)
}

// URLText - returns the URL, using the site's sentinel when unknown
func (i ExtractedItem) URLText() string {
	if i.URL == "" {
		return i.missing()
	}
	return i.URL
}

func (i ExtractedItem) missing() string {
	if i.Site == SiteTagGenericProduct {
		return UnknownValue
	}
	return ""
}

// MarshalJSON keeps the string-valued wire shape consumers expect
func (i ExtractedItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"name":   i.Name,
		"price":  i.PriceText(),
		"rating": i.RatingText(),
		"url":    i.URLText(),
	})
}
