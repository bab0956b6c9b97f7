package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sokkuri/sokkuri/internal/catalog"
	"github.com/sokkuri/sokkuri/internal/config"
	"github.com/sokkuri/sokkuri/internal/embedding"
	"github.com/sokkuri/sokkuri/internal/imaging"
	"github.com/sokkuri/sokkuri/internal/search"
)

// maxUploadBytes bounds multipart image uploads.
const maxUploadBytes = 32 << 20

// handleSearch runs a similarity search. The query is either an uploaded
// image (multipart field "image") or the ID of an indexed record (form field
// "id"). Optional fields: "top_k", "breakdown".
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "expected multipart form")
		return
	}
	opts := search.Options{}
	if v := r.FormValue("top_k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid top_k")
			return
		}
		opts.TopK = n
	}
	opts.IncludeBreakdown = r.FormValue("breakdown") == "true"

	file, header, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
		img, decodeErr := imaging.Decode(file)
		if decodeErr != nil {
			s.respondError(w, http.StatusBadRequest, "undecodable image")
			return
		}
		s.logger.Debug("search request", zap.String("file", header.Filename), zap.Int("top_k", opts.TopK))
		response, searchErr := s.service.Search(r.Context(), img, opts)
		if searchErr != nil {
			s.respondSearchError(w, searchErr)
			return
		}
		s.respondJSON(w, http.StatusOK, response)
		return
	}

	id := r.FormValue("id")
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "either image upload or id is required")
		return
	}
	s.logger.Debug("search by id request", zap.String("id", id), zap.Int("top_k", opts.TopK))
	response, err := s.service.SearchByID(r.Context(), id, opts)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "image not found")
			return
		}
		s.respondSearchError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) respondSearchError(w http.ResponseWriter, err error) {
	s.logger.Error("search failed", zap.Error(err))
	if errors.Is(err, embedding.ErrProviderNotReady) {
		s.respondError(w, http.StatusServiceUnavailable, "embedding provider not ready")
		return
	}
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) handleSearchByName(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	s.logger.Debug("name search request", zap.String("q", query), zap.Int("limit", limit))
	results, err := s.service.SearchByName(r.Context(), query, limit)
	if err != nil {
		s.logger.Error("name search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"total":   len(results),
	})
}

// handleIndexImage indexes an uploaded image (multipart field "image").
// Optional "id" overrides the generated record ID.
func (s *Server) handleIndexImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "expected multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "image upload is required")
		return
	}
	defer file.Close()
	img, err := imaging.Decode(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "undecodable image")
		return
	}
	input := search.IndexInput{
		ID:         r.FormValue("id"),
		SourceName: header.Filename,
	}
	s.logger.Debug("index image request", zap.String("id", input.ID), zap.String("file", header.Filename))
	rec, err := s.service.IndexImage(r.Context(), img, input)
	if err != nil {
		s.logger.Error("indexing failed", zap.Error(err))
		if errors.Is(err, embedding.ErrProviderNotReady) {
			s.respondError(w, http.StatusServiceUnavailable, "embedding provider not ready")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": rec.ID, "status": "indexed"})
}

type indexDirectoryRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleIndexDirectory(w http.ResponseWriter, r *http.Request) {
	var req indexDirectoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	s.logger.Debug("index directory request", zap.String("path", req.Path))
	summary, err := s.indexer.IndexDirectory(r.Context(), req.Path)
	if err != nil {
		s.logger.Error("directory indexing failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "image not found")
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete image request", zap.String("id", id))
	if _, err := s.store.Get(r.Context(), id); errors.Is(err, catalog.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "image not found")
		return
	}
	if err := s.service.Delete(r.Context(), id); err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleClearCatalog(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("clear catalog request")
	if err := s.service.Clear(r.Context()); err != nil {
		s.logger.Error("clear failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.service.Count(r.Context())
	if err != nil {
		s.logger.Error("status: count images failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"images": count,
		"config": map[string]interface{}{
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"layout_version":       s.config.Search.LayoutVersion,
			"top_k":                s.config.Search.TopK,
			"model_path":           s.config.Embedding.ModelPath,
			"database_path":        s.config.Storage.DatabasePath,
			"name_index_path":      s.config.Storage.NameIndexPath,
		},
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistWatchDirectories() {
	if s.configPath == "" {
		return
	}
	s.configMu.Lock()
	s.config.Watch.Directories = s.watch.Directories()
	err := config.Save(s.configPath, s.config)
	s.configMu.Unlock()
	if err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
