package extraction

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"browser_agent/domain/entities"

	"github.com/PuerkitoBio/goquery"
)

var (
	// amounts may be grouped by commas, spaces or NBSP; a group is 2 or 3 digits
	currencyPricePattern = regexp.MustCompile(`(?:₹|Rs\.?|\$|€|£)[\s\x{00A0}\x{202F}]*(\d+(?:[, \x{00A0}\x{202F}]\d{2,3}\b)*)`)
	digitRunPattern      = regexp.MustCompile(`\d+(?:[, \x{00A0}\x{202F}]\d{2,3}\b)*`)
	decimalPattern       = regexp.MustCompile(`\d+(?:\.\d+)?`)
	whitespacePattern    = regexp.MustCompile(`\s+`)
)

type fieldPlan struct {
	name          []string
	price         []string
	rating        []string
	url           []string
	priceFromText bool
	baseURL       string
}

// fieldReader - fills one field of an item
type fieldReader struct {
	field string
	read  func(item *entities.ExtractedItem)
}

func (f fieldPlan) readers(container *goquery.Selection) []fieldReader {
	return []fieldReader{
		{"name", func(item *entities.ExtractedItem) { item.Name = extractName(container, f.name) }},
		{"price", func(item *entities.ExtractedItem) { item.Price = extractPrice(container, f.price, f.priceFromText) }},
		{"rating", func(item *entities.ExtractedItem) { item.Rating = extractRating(container, f.rating) }},
		{"url", func(item *entities.ExtractedItem) { item.URL = extractURL(container, f.url, f.baseURL) }},
	}
}

// extractContainer - reads every field of one container; a failing field is skipped,
// a failing container is dropped
func (p *Pipeline) extractContainer(container *goquery.Selection, fields fieldPlan, index int) (entities.ExtractedItem, bool) {
	return p.readContainer(fields.readers(container), index)
}

func (p *Pipeline) readContainer(readers []fieldReader, index int) (item entities.ExtractedItem, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Debugf("skipping container %d: %v", index, r)
			item, ok = entities.ExtractedItem{}, false
		}
	}()

	for _, reader := range readers {
		p.readField(reader, &item, index)
	}
	return item, true
}

func (p *Pipeline) readField(reader fieldReader, item *entities.ExtractedItem, index int) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Debugf("skipping %s of container %d: %v", reader.field, index, r)
		}
	}()
	reader.read(item)
}

func extractName(container *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		el := findSafe(container, selector).First()
		if el.Length() == 0 {
			continue
		}
		if name := NormalizeName(elementValue(el)); name != "" {
			return name
		}
	}
	return ""
}

func extractPrice(container *goquery.Selection, selectors []string, fromText bool) *int64 {
	for _, selector := range selectors {
		el := findSafe(container, selector).First()
		if el.Length() == 0 {
			continue
		}
		if price, ok := ParsePrice(el.Text()); ok {
			return &price
		}
	}
	if !fromText {
		return nil
	}
	m := currencyPricePattern.FindStringSubmatch(container.Text())
	if m == nil {
		return nil
	}
	if price, ok := parseDigits(m[1]); ok {
		return &price
	}
	return nil
}

func extractRating(container *goquery.Selection, selectors []string) *float64 {
	for _, selector := range selectors {
		el := findSafe(container, selector).First()
		if el.Length() == 0 {
			continue
		}
		if rating, ok := ParseRating(el.Text()); ok {
			return &rating
		}
	}
	return nil
}

func extractURL(container *goquery.Selection, selectors []string, baseURL string) string {
	for _, selector := range selectors {
		var href string
		findSafe(container, selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href = strings.TrimSpace(s.AttrOr("href", ""))
			return href == ""
		})
		if href == "" {
			continue
		}
		return AbsoluteURL(baseURL, href)
	}
	return ""
}

// elementValue prefers the title attribute, which holds untruncated names on most sites
func elementValue(el *goquery.Selection) string {
	if title := strings.TrimSpace(el.AttrOr("title", "")); title != "" {
		return title
	}
	return el.Text()
}

// NormalizeName - collapses whitespace, rejects short names and truncates long ones
func NormalizeName(raw string) string {
	name := strings.TrimSpace(whitespacePattern.ReplaceAllString(raw, " "))
	if len([]rune(name)) < minNameLength {
		return ""
	}
	if runes := []rune(name); len(runes) > maxNameLength {
		name = string(runes[:maxNameLength])
	}
	return name
}

// ParsePrice - parses currency text such as "₹1,23,456" into 123456.
// A currency-marked amount wins over the first bare number.
func ParsePrice(text string) (int64, bool) {
	if m := currencyPricePattern.FindStringSubmatch(text); m != nil {
		return parseDigits(m[1])
	}
	return parseDigits(digitRunPattern.FindString(text))
}

func parseDigits(s string) (int64, bool) {
	s = strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 10, 63)
	if err != nil {
		return 0, false
	}
	return int64(v), true
}

// ParseRating - accepts the first decimal in text when it lies in [1,5]
func ParseRating(text string) (float64, bool) {
	m := decimalPattern.FindString(text)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || v < 1 || v > 5 {
		return 0, false
	}
	return v, true
}

// AbsoluteURL - resolves href against the page URL
func AbsoluteURL(base, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return ""
	}
	return b.ResolveReference(ref).String()
}
