package search

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sokkuri/sokkuri/internal/catalog"
	"github.com/sokkuri/sokkuri/internal/config"
	"github.com/sokkuri/sokkuri/internal/embedding"
	"github.com/sokkuri/sokkuri/internal/feature"
	"github.com/sokkuri/sokkuri/internal/keyword"
)

// Service wires the feature pipeline, catalog store, and ranker behind one
// API. All dependencies are injected; there is no ambient state.
type Service struct {
	provider embedding.Provider
	composer *feature.Composer
	store    catalog.Store
	names    keyword.Index // optional; nil disables name search
	ranker   *Ranker
	config   *config.SearchConfig
	logger   *zap.Logger

	// writeMu enforces the single-writer discipline on catalog mutations so a
	// clear-then-reindex is never observed half done by another writer.
	writeMu sync.Mutex
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets a logger for pipeline events.
func WithServiceLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithNameIndex attaches a filename keyword index kept in sync with the catalog.
func WithNameIndex(idx keyword.Index) ServiceOption {
	return func(s *Service) { s.names = idx }
}

// NewService creates a search service with the given dependencies.
func NewService(
	provider embedding.Provider,
	composer *feature.Composer,
	store catalog.Store,
	ranker *Ranker,
	cfg *config.SearchConfig,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		provider: provider,
		composer: composer,
		store:    store,
		ranker:   ranker,
		config:   cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Extract runs the full feature pipeline on img: provider inference plus the
// auxiliary descriptors, composed into a layout-tagged vector.
func (s *Service) Extract(ctx context.Context, img image.Image) (feature.Vector, error) {
	emb, err := s.provider.Infer(ctx, img)
	if err != nil {
		return feature.Vector{}, fmt.Errorf("embedding inference: %w", err)
	}
	vec := s.composer.Compose(emb, img)
	if vec.IsZero() {
		return feature.Vector{}, fmt.Errorf("feature composition produced the zero sentinel (embedding length %d, expected %d)",
			len(emb), s.composer.TotalLen()-feature.ColorLen-s.composer.Version().PatternLen())
	}
	return vec, nil
}

// IndexInput describes the image being indexed.
type IndexInput struct {
	ID          string `json:"id,omitempty"`
	SourceName  string `json:"source_name"`
	ImageRef    string `json:"image_ref,omitempty"`
	SourceMtime int64  `json:"source_mtime,omitempty"`
	SourceSize  int64  `json:"source_size,omitempty"`
}

// IndexImage extracts features for img and persists a catalog record. An empty
// id gets a generated UUID. Either a complete record is written or nothing is.
func (s *Service) IndexImage(ctx context.Context, img image.Image, input IndexInput) (*catalog.Record, error) {
	vec, err := s.Extract(ctx, img)
	if err != nil {
		return nil, err
	}
	if input.ID == "" {
		input.ID = uuid.New().String()
	}
	rec := &catalog.Record{
		ID:          input.ID,
		SourceName:  input.SourceName,
		ImageRef:    input.ImageRef,
		Vector:      vec,
		SourceMtime: input.SourceMtime,
		SourceSize:  input.SourceSize,
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.store.Add(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to store record: %w", err)
	}
	if s.names != nil {
		if err := s.names.Index(ctx, rec.ID, rec.SourceName); err != nil {
			return nil, fmt.Errorf("failed to index name: %w", err)
		}
	}
	if s.logger != nil {
		s.logger.Debug("image indexed", zap.String("id", rec.ID), zap.String("source", rec.SourceName))
	}
	return rec, nil
}

// Options are per-search parameters.
type Options struct {
	// TopK limits the number of results; 0 selects the configured default.
	TopK int
	// ExcludeID removes the named record from the candidates (the query image
	// itself when already indexed).
	ExcludeID string
	// IncludeBreakdown attaches per-segment sub-scores to each result.
	IncludeBreakdown bool
}

// Response is the result of one similarity search.
type Response struct {
	Results     []*Result `json:"results"`
	Total       int       `json:"total"`
	Scanned     int       `json:"scanned"`
	Skipped     int       `json:"skipped"`
	QueryTimeMs int64     `json:"query_time_ms"`
}

// Search extracts features from the query image and ranks the catalog against them.
func (s *Service) Search(ctx context.Context, img image.Image, opts Options) (*Response, error) {
	vec, err := s.Extract(ctx, img)
	if err != nil {
		return nil, err
	}
	return s.SearchVector(ctx, vec, opts)
}

// SearchByID ranks the catalog against an already-indexed record's vector,
// excluding the record itself.
func (s *Service) SearchByID(ctx context.Context, id string, opts Options) (*Response, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	opts.ExcludeID = id
	return s.SearchVector(ctx, rec.Vector, opts)
}

// SearchVector ranks the catalog against an externally-produced feature vector.
func (s *Service) SearchVector(ctx context.Context, query feature.Vector, opts Options) (*Response, error) {
	start := time.Now()
	topK := opts.TopK
	if topK <= 0 {
		topK = s.config.TopK
	}
	if s.config.MaxTopK > 0 && topK > s.config.MaxTopK {
		topK = s.config.MaxTopK
	}
	records, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	results, stats := s.ranker.Rank(query, records, opts.ExcludeID, topK, opts.IncludeBreakdown)
	return &Response{
		Results:     results,
		Total:       len(results),
		Scanned:     stats.Scanned,
		Skipped:     stats.Skipped,
		QueryTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

// SearchByName runs filename keyword search and resolves hits to catalog records.
func (s *Service) SearchByName(ctx context.Context, query string, limit int) ([]*Result, error) {
	if s.names == nil {
		return nil, fmt.Errorf("name index not configured")
	}
	if limit <= 0 {
		limit = s.config.TopK
	}
	hits, err := s.names.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	results := make([]*Result, 0, len(hits))
	for i, hit := range hits {
		rec, err := s.store.Get(ctx, hit.ID)
		if err != nil {
			continue
		}
		results = append(results, &Result{Record: rec, Score: hit.Score, Rank: i + 1})
	}
	return results, nil
}

// Clear removes every record from the catalog and the name index.
func (s *Service) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear catalog: %w", err)
	}
	if s.names != nil {
		if err := s.names.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear name index: %w", err)
		}
	}
	return nil
}

// Delete removes one record from the catalog and the name index.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if s.names != nil {
		if err := s.names.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete name entry: %w", err)
		}
	}
	return nil
}

// Count returns the number of catalog records.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}
