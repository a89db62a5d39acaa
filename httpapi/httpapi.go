// Package httpapi exposes an IndexManager over HTTP: GET /search, GET
// /status, POST /reindex, and an ambient GET /healthz.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nexus-search/blaze"
	"github.com/nexus-search/blaze/ingest"
)

// Server wires an IndexManager into a chi router.
type Server struct {
	manager *blaze.IndexManager
	logger  *slog.Logger
	router  chi.Router
}

// New builds a Server ready to Serve. logger may be nil (falls back to
// slog.Default()).
func New(manager *blaze.IndexManager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{manager: manager, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/search", s.handleSearch)
	r.Get("/status", s.handleStatus)
	r.Post("/reindex", s.handleReindex)
	s.router = r

	return s
}

// ServeHTTP implements http.Handler, delegating to the chi router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type searchResponse struct {
	Results []searchHit `json:"results"`
}

type searchHit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	opts := blaze.SearchOptions{}
	if fuzzy, err := strconv.ParseBool(r.URL.Query().Get("fuzzy")); err == nil {
		opts.Fuzzy = fuzzy
	}
	if maxResults, err := strconv.Atoi(r.URL.Query().Get("maxResults")); err == nil {
		opts.MaxResults = maxResults
	}

	results, err := s.manager.Search(r.Context(), query, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	hits := make([]searchHit, len(results))
	for i, res := range results {
		hits[i] = searchHit{ID: res.ID, Score: res.Score}
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: hits})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Status())
}

type reindexRequest struct {
	Directory string `json:"directory"`
}

type reindexResponse struct {
	Indexed int `json:"indexed"`
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	var req reindexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &blaze.ValidationError{Field: "body", Reason: err.Error()})
		return
	}

	docs, err := ingest.Directory(req.Directory)
	if err != nil {
		writeError(w, err)
		return
	}

	added, err := s.manager.AddDocuments(docs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reindexResponse{Indexed: added})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}
