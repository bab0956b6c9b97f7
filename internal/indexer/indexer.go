// Package indexer builds the image catalog from files and directories.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/sokkuri/sokkuri/internal/catalog"
	"github.com/sokkuri/sokkuri/internal/fileid"
	"github.com/sokkuri/sokkuri/internal/imaging"
	"github.com/sokkuri/sokkuri/internal/search"
)

// Indexer indexes image files into the catalog through the search service's
// feature pipeline. Batches process images in small concurrent groups; catalog
// writes stay serialized inside the service.
type Indexer struct {
	service   *search.Service
	store     catalog.Store
	groupSize int
	exts      []string
	logger    *zap.Logger // optional; when set, logs per-file events
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets a logger for debug output (file indexed, file skipped, etc.).
func WithLogger(l *zap.Logger) Option {
	return func(idx *Indexer) { idx.logger = l }
}

// WithGroupSize sets the per-batch concurrency (default 3).
func WithGroupSize(n int) Option {
	return func(idx *Indexer) {
		if n > 0 {
			idx.groupSize = n
		}
	}
}

// New creates an indexer. allowedExts filters which files are indexed
// (empty = all registered image formats).
func New(service *search.Service, store catalog.Store, allowedExts []string, opts ...Option) *Indexer {
	idx := &Indexer{
		service:   service,
		store:     store,
		groupSize: 3,
		exts:      allowedExts,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Summary is the outcome tally of one batch. A batch always completes; a
// failure on one image never aborts the rest.
type Summary struct {
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type fileStatus int

const (
	statusIndexed fileStatus = iota
	statusSkipped
	statusFailed
)

// IndexFile reads and indexes a single image file. The record ID is derived
// from the absolute path so re-indexing replaces the same record. Unchanged
// files (same mtime and size) are skipped.
func (idx *Indexer) IndexFile(ctx context.Context, path string) error {
	status, err := idx.indexOne(ctx, path)
	if status == statusFailed {
		return err
	}
	return nil
}

func (idx *Indexer) indexOne(ctx context.Context, path string) (fileStatus, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return statusFailed, fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if len(idx.exts) > 0 && !extensionAllowed(ext, idx.exts) {
		return statusFailed, fmt.Errorf("extension %q not in allowed list", ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return statusFailed, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return statusFailed, fmt.Errorf("not a regular file: %s", absPath)
	}
	id := fileid.ImageID(absPath)
	if idx.unchanged(ctx, id, absPath, info) {
		if idx.logger != nil {
			idx.logger.Debug("indexer skipping unchanged file", zap.String("path", absPath))
		}
		return statusSkipped, nil
	}
	img, err := imaging.DecodeFile(absPath)
	if err != nil {
		return statusFailed, err
	}
	_, err = idx.service.IndexImage(ctx, img, search.IndexInput{
		ID:          id,
		SourceName:  filepath.Base(absPath),
		ImageRef:    absPath,
		SourceMtime: info.ModTime().UnixNano(),
		SourceSize:  info.Size(),
	})
	if err != nil {
		return statusFailed, err
	}
	if idx.logger != nil {
		idx.logger.Debug("indexer file indexed", zap.String("path", absPath), zap.String("id", id))
	}
	return statusIndexed, nil
}

// unchanged reports whether the file is already indexed with the same mtime and size.
func (idx *Indexer) unchanged(ctx context.Context, id, absPath string, info os.FileInfo) bool {
	rec, err := idx.store.Get(ctx, id)
	if err != nil {
		return false
	}
	return rec.ImageRef == absPath &&
		rec.SourceMtime == info.ModTime().UnixNano() &&
		rec.SourceSize == info.Size()
}

// IndexDirectory walks dir recursively and indexes every matching regular
// file. Images are processed in groups of the configured concurrency, in
// input order across groups, and the batch always runs to completion: the
// returned summary tallies successes, unchanged skips, and failures.
func (idx *Indexer) IndexDirectory(ctx context.Context, dir string) (*Summary, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absDir)
	}

	var paths []string
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if len(idx.exts) > 0 && !extensionAllowed(ext, idx.exts) {
			return nil
		}
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	var mu sync.Mutex
	for start := 0; start < len(paths); start += idx.groupSize {
		end := start + idx.groupSize
		if end > len(paths) {
			end = len(paths)
		}
		var wg sync.WaitGroup
		for _, path := range paths[start:end] {
			wg.Add(1)
			go func(p string) {
				defer wg.Done()
				status, indexErr := idx.indexOne(ctx, p)
				mu.Lock()
				switch status {
				case statusIndexed:
					summary.Indexed++
				case statusSkipped:
					summary.Skipped++
				case statusFailed:
					summary.Failed++
				}
				mu.Unlock()
				if indexErr != nil && idx.logger != nil {
					idx.logger.Warn("indexer file failed", zap.String("path", p), zap.Error(indexErr))
				}
			}(path)
		}
		wg.Wait()
	}
	return summary, nil
}

// Remove deletes the record for a watched file that was removed. A missing
// record is not an error.
func (idx *Indexer) Remove(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	err = idx.service.Delete(ctx, fileid.ImageID(absPath))
	if errors.Is(err, catalog.ErrNotFound) {
		return nil
	}
	return err
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
