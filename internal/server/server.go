package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"crucible/internal/config"
	"crucible/internal/llm"
	"crucible/internal/pipeline"
	"crucible/internal/storage"
	"crucible/web"
)

// Server is the HTTP server for the crucible API and playground.
type Server struct {
	cfg      *config.Config
	engine   pipeline.Runner
	gen      llm.Client
	store    storage.Store
	profiles map[string]*llm.Profile
	pipe     *pipeline.Pipeline
	active   *RunManager
	router   chi.Router
	http     *http.Server
	log      zerolog.Logger
}

// New creates a new Server. gen may be nil when no generator is
// configured; generation endpoints then answer 503.
func New(cfg *config.Config, eng pipeline.Runner, gen llm.Client, store storage.Store, profiles map[string]*llm.Profile, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		engine:   eng,
		gen:      gen,
		store:    store,
		profiles: profiles,
		active:   NewRunManager(),
		router:   chi.NewRouter(),
		log:      logger,
	}
	s.pipe = &pipeline.Pipeline{Gen: gen, Runner: eng, Log: logger}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	// Global middleware
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(jsonContentType)

		// Execution and generation run guest code, so the number of
		// concurrent requests is capped
		r.Group(func(r chi.Router) {
			r.Use(middleware.Throttle(s.cfg.Server.Throttle))
			r.Post("/execute", s.handleExecute)
			r.Post("/generate", s.handleGenerate)
			r.Post("/generate-and-execute", s.handleGenerateAndExecute)
		})

		r.Post("/validate", s.handleValidate)
		r.Post("/check", s.handleCheck)
		r.Get("/policy", s.handlePolicy)
		r.Get("/stats", s.handleStats)
		r.Get("/models", s.handleListModels)

		// Run history
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/runs/{id}/export", s.handleExportRun)
		r.Delete("/runs/{id}", s.handleDeleteRun)

		// In-flight executions
		r.Get("/active", s.handleListActive)
		r.Delete("/active/{id}", s.handleCancelActive)

		// WebSocket (no JSON content-type)
		r.Get("/ws", s.handleWebSocket)
	})

	// Playground
	r.Handle("/*", pageHandler())
}

// jsonContentType sets Content-Type to application/json for API routes.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestLogger emits one line per request at debug level.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		})
	}
}

// pageHandler serves the embedded playground. Paths that don't match a
// static file fall back to index.html.
func pageHandler() http.Handler {
	dist, _ := fs.Sub(web.Assets, "dist")
	fileServer := http.FileServer(http.FS(dist))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")

		if f, err := dist.Open(name); err == nil {
			f.Close()
			fileServer.ServeHTTP(w, r)
			return
		}

		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}

// Start begins listening on the given port.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.http = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	s.log.Info().Str("url", "http://localhost"+addr).Msg("server listening")
	if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown interrupts in-flight executions and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down")
	s.active.CancelAll()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.http.Shutdown(shutdownCtx)
}
