package entities

// SiteTag selects the extraction strategy and validity rule
type SiteTag string

const (
	SiteTagGenericProduct SiteTag = "generic-product"
	SiteTagListing        SiteTag = "listing"
)

// SiteProfile describes how to search and extract items on one site.
// Selector lists are ordered; earlier entries are preferred.
type SiteProfile struct {
	Name string  `yaml:"name"`
	Tag  SiteTag `yaml:"tag"`
	URL  string  `yaml:"url"`

	SearchInput  []string `yaml:"search_input"`
	SearchButton []string `yaml:"search_button"`

	// ReadySelectors signal that results have rendered
	ReadySelectors     []string       `yaml:"ready"`
	ContainerSelectors []string       `yaml:"containers"`
	Fields             FieldSelectors `yaml:"fields"`

	// ItemLink locates the item's own link inside a container
	ItemLink string `yaml:"item_link"`
	// HeuristicPattern is matched against container text during the fallback scan
	HeuristicPattern string `yaml:"heuristic_pattern"`
	// HeuristicExclude drops fallback candidates containing this selector
	HeuristicExclude string `yaml:"heuristic_exclude"`
	// PriceFromText enables a container-wide text scan when no price selector matches
	PriceFromText bool `yaml:"price_from_text"`

	MaxPriceInputs []string `yaml:"max_price_inputs"`
	RatingControls []string `yaml:"rating_controls"`
}
