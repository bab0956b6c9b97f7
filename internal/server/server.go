// Package server provides the HTTP API for Sokkuri.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sokkuri/sokkuri/internal/catalog"
	"github.com/sokkuri/sokkuri/internal/config"
	"github.com/sokkuri/sokkuri/internal/indexer"
	"github.com/sokkuri/sokkuri/internal/search"
	"github.com/sokkuri/sokkuri/internal/watcher"
)

// Server is the HTTP server for the Sokkuri API.
type Server struct {
	service *search.Service
	indexer *indexer.Indexer
	store   catalog.Store
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server

	// watch endpoints are enabled only when a watcher is attached
	watch      *watcher.Watcher
	configPath string
	configMu   sync.Mutex
}

// NewServer creates a server with the given dependencies.
func NewServer(
	service *search.Service,
	idx *indexer.Indexer,
	store catalog.Store,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		service: service,
		indexer: idx,
		store:   store,
		config:  cfg,
		logger:  logger,
	}
}

// EnableWatch attaches a running watcher so its roots can be managed over the
// API. configPath, when non-empty, is where root changes are persisted.
func (s *Server) EnableWatch(w *watcher.Watcher, configPath string) {
	s.watch = w
	s.configPath = configPath
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/search/name", s.handleSearchByName)
	r.Post("/api/v1/images", s.handleIndexImage)
	r.Get("/api/v1/images/{id}", s.handleGetImage)
	r.Delete("/api/v1/images/{id}", s.handleDeleteImage)
	r.Post("/api/v1/index", s.handleIndexDirectory)
	r.Delete("/api/v1/catalog", s.handleClearCatalog)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/api/v1/watch/directories", s.handleWatchDirectoriesList)
	r.Post("/api/v1/watch/directories", s.handleWatchDirectoriesAdd)
	r.Delete("/api/v1/watch/directories", s.handleWatchDirectoriesRemove)
	r.Get("/health", s.handleHealth)

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
