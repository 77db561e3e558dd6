package core

// CategoryTotal is one row of a category-wise spending summary: the category
// label and the sum of amounts across that category's records. Summaries
// never contain zero-valued rows; a category with no matching records is
// simply absent.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}
