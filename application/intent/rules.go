// Package intent classifies free-text commands without a language model.
package intent

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"browser_agent/domain/entities"
	"browser_agent/domain/interfaces"
)

var (
	maxPricePattern = regexp.MustCompile(`(?i)\b(?:under|below|max(?:imum)?|less than|up ?to|within)\s*(?:rs\.?|₹|\$)?\s*(\d[\d,]*)\s*(k\b)?`)
	minPricePattern = regexp.MustCompile(`(?i)\b(?:above|over|min(?:imum)?|more than|at least)\s*(?:rs\.?|₹|\$)?\s*(\d[\d,]*)\s*(k\b)?`)
	countPattern    = regexp.MustCompile(`(?i)\b(?:top|first|best)\s*(\d+)`)
	ratingPattern   = regexp.MustCompile(`(?i)(\d(?:\.\d)?)\s*\+?\s*(?:★|stars?|rating)|rating[:\s]+(?:of\s+)?(\d(?:\.\d+)?)`)
	urlPattern      = regexp.MustCompile(`(?i)\bhttps?://\S+|\b(?:www\.)?[a-z0-9-]+\.(?:com|in|org|net|io|co)(?:/\S*)?\b`)
	locationPattern = regexp.MustCompile(`\b(?:near|in|around)\s+([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)*)`)
)

var (
	comparisonWords = []string{"compare", "comparison", " vs ", "versus"}
	formWords       = []string{"fill", "submit", "register", "signup", "sign up", "form"}
	localWords      = []string{"near", "places", "restaurants", "restaurant", "cafes", "pizza", "delivery"}
	searchWords     = []string{"find", "search", "show", "get", "book", "buy", "look for"}
	navigationWords = []string{"go to", "open", "visit", "navigate"}
	formFields      = []string{"email", "phone", "name"}
)

var (
	leadingFiller = map[string]bool{
		"find": true, "search": true, "show": true, "get": true, "book": true, "buy": true,
		"look": true, "for": true, "a": true, "an": true, "the": true, "me": true,
		"top": true, "first": true, "best": true, "compare": true, "prices": true,
		"price": true, "of": true, "on": true, "cheap": true, "some": true,
	}
	subjectStop = map[string]bool{
		"under": true, "below": true, "above": true, "over": true, "near": true, "with": true,
		"rating": true, "on": true, "from": true, "in": true, "across": true, "between": true,
		"within": true, "places": true, "restaurants": true, "less": true, "more": true,
		"max": true, "min": true, "at": true, "and": true, "vs": true,
		"prices": true, "price": true,
	}
)

// RuleParser - keyword and pattern based intent parser
type RuleParser struct {
	sites []string
}

// NewRuleParser - creates parser that recognizes the given site names
func NewRuleParser(sites []string) *RuleParser {
	lower := make([]string, 0, len(sites))
	for _, s := range sites {
		lower = append(lower, strings.ToLower(s))
	}
	return &RuleParser{sites: lower}
}

// ParseIntent - never fails; unrecognized text yields the unknown intent
func (p *RuleParser) ParseIntent(_ context.Context, text string) (entities.Intent, error) {
	return p.Parse(text), nil
}

// Parse - classifies text and extracts filters, sites and subject
func (p *RuleParser) Parse(text string) entities.Intent {
	lower := " " + strings.ToLower(text) + " "
	in := entities.Intent{Kind: entities.IntentUnknown}

	in.Filters = parseFilters(text)
	in.Sites = p.mentionedSites(lower)
	if len(in.Sites) > 0 {
		in.Site = in.Sites[0]
	}
	if m := urlPattern.FindString(text); m != "" {
		in.URL = normalizeURL(m)
	}

	switch {
	case containsAny(lower, comparisonWords):
		in.Kind = entities.IntentComparison
		in.ProductName = subject(text, p.sites)
	case containsAny(lower, formWords):
		in.Kind = entities.IntentFormFill
		in.FormData = map[string]string{}
		for _, f := range formFields {
			if strings.Contains(lower, f) {
				in.FormData[f] = ""
			}
		}
	case containsAny(lower, localWords):
		in.Kind = entities.IntentLocalDiscovery
		if m := locationPattern.FindStringSubmatch(text); m != nil {
			in.Location = m[1]
		}
		in.Category = subject(text, p.sites)
	case in.URL != "" && containsAny(lower, navigationWords):
		in.Kind = entities.IntentNavigation
	case containsAny(lower, searchWords):
		in.Kind = entities.IntentProductSearch
		in.ProductName = subject(text, p.sites)
		in.Query = in.ProductName
	case in.URL != "":
		in.Kind = entities.IntentNavigation
	}
	return in
}

func parseFilters(text string) entities.IntentFilters {
	var f entities.IntentFilters
	if m := maxPricePattern.FindStringSubmatch(text); m != nil {
		f.MaxPrice = priceValue(m[1], m[2])
	}
	if m := minPricePattern.FindStringSubmatch(text); m != nil {
		f.MinPrice = priceValue(m[1], m[2])
	}
	if m := countPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			f.Count = n
		}
	}
	if m := ratingPattern.FindStringSubmatch(text); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if r, err := strconv.ParseFloat(raw, 64); err == nil && r >= 1 && r <= 5 {
			f.MinRating = &r
		}
	}
	return f
}

func priceValue(digits, thousands string) *int64 {
	v, err := strconv.ParseInt(strings.ReplaceAll(digits, ",", ""), 10, 64)
	if err != nil {
		return nil
	}
	if thousands != "" {
		v *= 1000
	}
	return &v
}

func (p *RuleParser) mentionedSites(lower string) []string {
	var found []string
	for _, s := range p.sites {
		if strings.Contains(lower, s) {
			found = append(found, s)
		}
	}
	return found
}

// subject - the words naming what the user is after, up to five
func subject(text string, sites []string) string {
	skip := make(map[string]bool, len(sites))
	for _, s := range sites {
		skip[s] = true
	}

	var words []string
	for _, w := range strings.Fields(text) {
		key := strings.ToLower(strings.Trim(w, ".,!?:;\"'"))
		if key == "" {
			continue
		}
		if len(words) == 0 && (leadingFiller[key] || isNumber(key)) {
			continue
		}
		if subjectStop[key] || skip[key] || strings.ContainsAny(key, "₹$") {
			if len(words) > 0 {
				break
			}
			continue
		}
		words = append(words, strings.Trim(w, ".,!?:;\"'"))
		if len(words) == 5 {
			break
		}
	}
	return strings.Join(words, " ")
}

func normalizeURL(raw string) string {
	raw = strings.TrimRight(raw, ".,;)")
	if !strings.HasPrefix(strings.ToLower(raw), "http") {
		return "https://" + raw
	}
	return raw
}

func isNumber(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

var _ interfaces.IntentParser = (*RuleParser)(nil)
