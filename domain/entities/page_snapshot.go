package entities

// PageSnapshot is the page state the extraction pipeline works on
type PageSnapshot struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	HTML  string `json:"html"`
}
