// Package search defines the book and chapter collections and the engines
// that host them: a Typesense server, a local bleve index, or SQLite FTS5.
package search

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a collection does not exist.
var ErrNotFound = errors.New("collection not found")

// Default pagination.
const (
	DefaultPerPage = 20
	HighlightStart = "<mark>"
	HighlightEnd   = "</mark>"
)

// Engine hosts search collections.
type Engine interface {
	// Health reports whether the engine can serve requests.
	Health(ctx context.Context) error

	// DeleteCollection drops a collection. Missing collections return ErrNotFound.
	DeleteCollection(ctx context.Context, name string) error

	// CreateCollection creates an empty collection from schema.
	CreateCollection(ctx context.Context, schema Schema) error

	// Import creates docs in one batch. The returned slice has one entry per
	// document in input order. A non-nil error means the whole batch failed.
	Import(ctx context.Context, collection string, docs []Document) ([]ImportResult, error)

	// Search runs a query against a collection.
	Search(ctx context.Context, collection string, q Query) (*SearchResult, error)

	// Close releases resources.
	Close() error
}

// ImportResult is the outcome for one imported document.
type ImportResult struct {
	ID      string `json:"id,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Query is a full-text query. An empty Text or "*" matches everything.
type Query struct {
	Text    string
	QueryBy []string
	Weights []int // parallel to QueryBy; nil means equal weights
	FacetBy []string
	Page    int // 1-based
	PerPage int

	// FilterBookSlug restricts results to documents whose book_slug equals it.
	FilterBookSlug string
}

// Normalize fills in pagination defaults.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage <= 0 {
		q.PerPage = DefaultPerPage
	}
	return q
}

// MatchAll reports whether the query has no text constraint.
func (q Query) MatchAll() bool {
	return q.Text == "" || q.Text == "*"
}

// Weight returns the weight for QueryBy[i].
func (q Query) Weight(i int) int {
	if i < len(q.Weights) && q.Weights[i] > 0 {
		return q.Weights[i]
	}
	return 1
}

// Hit is one matching document.
type Hit struct {
	Document   Document
	Highlights map[string]string // field -> snippet with <mark> tags
	Score      float64
}

// FacetCount is one facet value and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// SearchResult is a page of hits.
type SearchResult struct {
	Found  int
	Page   int
	Hits   []Hit
	Facets map[string][]FacetCount
}
