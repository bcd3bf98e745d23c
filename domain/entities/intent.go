package entities

// IntentKind is the classified goal of a user request
type IntentKind string

const (
	IntentProductSearch  IntentKind = "product_search"
	IntentLocalDiscovery IntentKind = "local_discovery"
	IntentFormFill       IntentKind = "form_fill"
	IntentComparison     IntentKind = "comparison"
	IntentNavigation     IntentKind = "navigation"
	IntentUnknown        IntentKind = "unknown"
)

// Intent is the structured form of a free-text request
type Intent struct {
	Kind        IntentKind        `json:"intent"`
	Site        string            `json:"site,omitempty"`
	Query       string            `json:"query,omitempty"`
	ProductName string            `json:"product_name,omitempty"`
	Location    string            `json:"location,omitempty"`
	Category    string            `json:"category,omitempty"`
	Filters     IntentFilters     `json:"filters"`
	FormData    map[string]string `json:"form_data,omitempty"`
	URL         string            `json:"url,omitempty"`
	Sites       []string          `json:"sites,omitempty"`
}

// IntentFilters holds the constraints a user asked for
type IntentFilters struct {
	MaxPrice  *int64   `json:"max_price,omitempty"`
	MinPrice  *int64   `json:"min_price,omitempty"`
	MinRating *float64 `json:"rating_min,omitempty"`
	Count     int      `json:"count,omitempty"`
	SortBy    string   `json:"sort_by,omitempty"`
}
