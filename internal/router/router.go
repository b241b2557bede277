package router

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/leca/file-gateway/internal/config"
	"github.com/leca/file-gateway/internal/handler"
	"github.com/leca/file-gateway/internal/source"
)

// Server holds the application dependencies and HTTP router.
type Server struct {
	Resolver *source.Resolver
	Config   *config.Config
	Router   chi.Router
}

// New creates a new Server with a fully configured chi router.
func New(resolver *source.Resolver, cfg *config.Config) *Server {
	s := &Server{Resolver: resolver, Config: cfg}

	h := &handler.Handler{
		Resolver: resolver,
		Config:   cfg,
	}

	r := chi.NewRouter()

	// CORS — must be before other middleware to handle preflight OPTIONS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check.
	r.Get("/health", s.Health)

	// Download endpoints.
	r.Get("/download_file", h.DownloadFile)
	r.Get("/download_url", h.DownloadURL)

	s.Router = r
	return s
}

// Health returns a simple health-check response.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		log.Printf("Health: failed to encode response: %v", err)
	}
}
