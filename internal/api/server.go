package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Teal-Insights/ccdr-extraction-workflow/internal/config"
	"github.com/Teal-Insights/ccdr-extraction-workflow/internal/content"
	"github.com/Teal-Insights/ccdr-extraction-workflow/internal/store"
)

// Server is the HTTP API over the content store and renderer.
type Server struct {
	router chi.Router
	store  *store.Store
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(st *store.Store, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		store: st,
		log:   log,
		cfg:   cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/publications", s.handleSavePublication)
		r.Get("/api/publications/{pubID}", s.handleGetPublication)
		r.Delete("/api/publications/{pubID}", s.handleDeletePublication)
		r.Post("/api/publications/{pubID}/documents", s.handleSaveDocument)

		r.Post("/api/documents/{docID}/nodes", s.handleIngestNodes)
		r.Get("/api/documents/{docID}/nodes", s.handleRootNodes)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)

		r.Get("/api/nodes/{nodeID}/html", s.handleRenderNode)
		r.Get("/api/nodes/{nodeID}/context", s.handleRenderContext)
		r.Get("/api/nodes/{nodeID}/children", s.handleChildren)
		r.Get("/api/nodes/{nodeID}/relations", s.handleListRelations)
		r.Post("/api/nodes/{nodeID}/embeddings", s.handleAddEmbedding)
		r.Get("/api/nodes/{nodeID}/embeddings", s.handleGetEmbedding)

		r.Post("/api/relations", s.handleAddRelation)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// storeError maps core errors onto HTTP statuses: validation failures are
// 422, structural rejections 400, missing ids 404.
func storeError(w http.ResponseWriter, err error) {
	var validation *content.ValidationError
	var structural *content.StructuralError
	switch {
	case errors.As(err, &validation):
		jsonError(w, validation.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &structural):
		jsonError(w, structural.Error(), http.StatusBadRequest)
	case errors.Is(err, content.ErrNotFound):
		jsonError(w, "not found", http.StatusNotFound)
	default:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}
