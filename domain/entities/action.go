package entities

import "time"

// Action represents the kind of step a plan can contain
type Action string

const (
	ActionNavigate        Action = "navigate"
	ActionWaitFor         Action = "wait_for"
	ActionType            Action = "type"
	ActionClick           Action = "click"
	ActionFilterPrice     Action = "filter_price"
	ActionFilterRating    Action = "filter_rating"
	ActionExtractProducts Action = "extract_products"
	ActionFillFormField   Action = "fill_form_field"
	ActionSubmitForm      Action = "submit_form"
	ActionUnsupported     Action = "unsupported"
)

// LoadState is a page readiness condition used by navigation and post-action waits
type LoadState string

const (
	LoadStateLoad             LoadState = "load"
	LoadStateDOMContentLoaded LoadState = "domcontentloaded"
	LoadStateNetworkIdle      LoadState = "networkidle"
)

// Step is a single declarative automation instruction.
// The set of implementations is closed; dispatch is a type switch.
type Step interface {
	Action() Action
	isStep()
}

// Navigate - goes to URL and waits for WaitUntil
type Navigate struct {
	URL       string    `json:"url"`
	WaitUntil LoadState `json:"wait_until,omitempty"`
}

// WaitFor - waits for one of the candidate selectors to become visible
type WaitFor struct {
	Selectors []string      `json:"selector"`
	Timeout   time.Duration `json:"timeout,omitempty"`
}

// Type - enters text into the first resolvable input
type Type struct {
	Selectors  []string `json:"selector"`
	Value      string   `json:"value"`
	ClearFirst bool     `json:"clear_first,omitempty"`
}

// Click - clicks the first clickable candidate, pressing Enter as a last resort
type Click struct {
	Selectors []string  `json:"selector"`
	WaitAfter LoadState `json:"wait_after,omitempty"`
}

// FilterPrice - applies a price range through the site UI when possible
type FilterPrice struct {
	MinPrice *int64 `json:"min_price,omitempty"`
	MaxPrice *int64 `json:"max_price,omitempty"`
}

// FilterRating - applies a minimum rating through the site UI when possible
type FilterRating struct {
	MinRating *float64 `json:"min_rating,omitempty"`
}

// FieldSelectors holds ordered candidate selectors per extracted field
type FieldSelectors struct {
	Name   []string `json:"name,omitempty" yaml:"name"`
	Price  []string `json:"price,omitempty" yaml:"price"`
	Rating []string `json:"rating,omitempty" yaml:"rating"`
	URL    []string `json:"url,omitempty" yaml:"url"`
}

// ExtractProducts - extracts up to Count items from the current page
type ExtractProducts struct {
	ContainerSelectors []string       `json:"product_selector"`
	Fields             FieldSelectors `json:"fields"`
	Count              int            `json:"count"`
	Site               string         `json:"site"`
	MinRating          *float64       `json:"min_rating,omitempty"`
	MinPrice           *int64         `json:"min_price,omitempty"`
	MaxPrice           *int64         `json:"max_price,omitempty"`
}

// FillFormField - fills the input named FieldName, synthesizing a value when needed
type FillFormField struct {
	FieldName        string `json:"field_name"`
	Value            string `json:"value,omitempty"`
	GenerateIfNeeded bool   `json:"generate_if_needed,omitempty"`
}

// SubmitForm - submits the current form
type SubmitForm struct {
	WaitAfter LoadState `json:"wait_after,omitempty"`
}

// Unsupported - terminates the run with Reason
type Unsupported struct {
	Reason string `json:"reason"`
}

func (Navigate) Action() Action        { return ActionNavigate }
func (WaitFor) Action() Action         { return ActionWaitFor }
func (Type) Action() Action            { return ActionType }
func (Click) Action() Action           { return ActionClick }
func (FilterPrice) Action() Action     { return ActionFilterPrice }
func (FilterRating) Action() Action    { return ActionFilterRating }
func (ExtractProducts) Action() Action { return ActionExtractProducts }
func (FillFormField) Action() Action   { return ActionFillFormField }
func (SubmitForm) Action() Action      { return ActionSubmitForm }
func (Unsupported) Action() Action     { return ActionUnsupported }

func (Navigate) isStep()        {}
func (WaitFor) isStep()         {}
func (Type) isStep()            {}
func (Click) isStep()           {}
func (FilterPrice) isStep()     {}
func (FilterRating) isStep()    {}
func (ExtractProducts) isStep() {}
func (FillFormField) isStep()   {}
func (SubmitForm) isStep()      {}
func (Unsupported) isStep()     {}
