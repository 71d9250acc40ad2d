// Package search provides full-text search over decision documents, backed by
// Meilisearch when available and PostgreSQL FTS otherwise.
package search

// Document is the data indexed per decision document. Content is the raw
// markdown body.
type Document struct {
	ID      string `json:"id"`
	CycleID string `json:"cycleId"`
	UserID  string `json:"userId"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Query describes a search request.
type Query struct {
	Text         string
	FilterUserID string // empty = all users
	Limit        int
	Offset       int
}

// Result is a single search hit.
type Result struct {
	ID      string `json:"id"`
	CycleID string `json:"cycleId"`
	UserID  string `json:"userId"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Response is the envelope returned to callers.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}
