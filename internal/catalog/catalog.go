// Package catalog persists indexed image records.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/sokkuri/sokkuri/internal/feature"
)

// ErrNotFound is returned when no record exists for the requested id.
var ErrNotFound = errors.New("catalog: record not found")

// Record is one indexed image. Records are replaced wholesale on re-index and
// removed only by Delete or a full Clear.
type Record struct {
	ID         string         `json:"id"`
	SourceName string         `json:"source_name"`
	ImageRef   string         `json:"image_ref,omitempty"`
	Vector     feature.Vector `json:"vector"`
	// SourceMtime and SourceSize identify the file state that produced the
	// vector, for incremental re-index. Zero for non-file uploads.
	SourceMtime int64     `json:"source_mtime,omitempty"`
	SourceSize  int64     `json:"source_size,omitempty"`
	IndexedAt   time.Time `json:"indexed_at"`
}

// Store persists image records. GetAll returns records in insertion order,
// which the ranker relies on for stable tie-breaking. Implementations must
// tolerate a single writer with concurrent readers; callers serialize mutations.
type Store interface {
	Add(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	GetAll(ctx context.Context) ([]*Record, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
	Close() error
}
