// Package server exposes cached content, preferences and trigger state over
// HTTP for a UI running alongside the engine.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/julianstephens/devotional/internal/coordinator"
	"github.com/julianstephens/devotional/internal/logger"
	"github.com/julianstephens/devotional/internal/models"
	"github.com/julianstephens/devotional/internal/storage"
)

// Scheduler is the part of the notification scheduler the API drives
type Scheduler interface {
	RescheduleAllFromPreferences(ctx context.Context) error
	Status(ctx context.Context) ([]models.TriggerStatus, error)
}

type Server struct {
	store     storage.ContentStore
	content   *coordinator.Coordinator
	scheduler Scheduler
	router    chi.Router
	log       *log.Logger
}

// New builds the router. content should refresh with the interactive retry
// policy.
func New(store storage.ContentStore, content *coordinator.Coordinator, scheduler Scheduler) *Server {
	s := &Server{
		store:     store,
		content:   content,
		scheduler: scheduler,
		log:       logger.Component("server"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*", "tauri://localhost"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/entries", s.handleEntries)
		r.Get("/entries/{id}", s.handleEntry)
		r.Get("/today", s.handleToday)
		r.Get("/nugget", s.handleNugget)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/preferences", s.handleGetPreferences)
		r.Put("/preferences", s.handlePutPreferences)
		r.Get("/triggers", s.handleTriggers)
		r.Post("/open", s.handleOpen)
	})

	s.router = r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HTTPServer returns an *http.Server listening on addr
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("Request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "duration", time.Since(start))
	})
}
