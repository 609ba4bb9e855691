package domain

// Citation is a grounding source returned alongside a search-augmented answer.
type Citation struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}
