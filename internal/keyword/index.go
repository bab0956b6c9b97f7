// Package keyword provides filename keyword search over catalog records.
package keyword

import "context"

// Index defines name indexing and search operations. Entries are keyed by
// catalog record ID and hold only the source name; visual similarity is
// handled elsewhere.
type Index interface {
	Index(ctx context.Context, id, sourceName string) error
	Search(ctx context.Context, query string, limit int) ([]*Result, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Close() error
}

// Result is a single name search hit.
type Result struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}
