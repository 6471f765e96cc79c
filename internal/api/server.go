package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mwantia/ideascube/pkg/backup"
	"github.com/mwantia/ideascube/pkg/db/store"
	"github.com/mwantia/ideascube/pkg/log"
	"github.com/mwantia/ideascube/pkg/metrics"
)

// BackupRepository is the part of backup.Repository served over HTTP
type BackupRepository interface {
	CreateFormat(ctx context.Context, format backup.Format) (*backup.Archive, error)
	Format() backup.Format
	List() ([]*backup.Archive, error)
	Load(name string, src io.Reader) (*backup.Archive, error)
	Get(name string) (*backup.Archive, error)
	Open(name string) (io.ReadCloser, *backup.Archive, error)
	Delete(name string) error
	Restore(ctx context.Context, name string) error
}

// Searcher queries the search index
type Searcher interface {
	Search(ctx context.Context, q store.SearchQuery) ([]store.SearchHit, error)
	Health(ctx context.Context) error
}

type Options struct {
	Backups BackupRepository
	Search  Searcher
	Logger  log.LoggerService
	// MaxUploadBytes bounds uploaded archives. Zero disables the limit.
	MaxUploadBytes int64
	Metrics        bool
}

// Server serves the admin API
type Server struct {
	backups   BackupRepository
	search    Searcher
	log       log.LoggerService
	maxUpload int64
	metrics   bool
}

func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}

	return &Server{
		backups:   opts.Backups,
		search:    opts.Search,
		log:       logger,
		maxUpload: opts.MaxUploadBytes,
		metrics:   opts.Metrics,
	}
}

// Handler builds the chi router of the API
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/health", s.handleHealth)
	if s.metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/backups", func(r chi.Router) {
			r.Get("/", s.handleListBackups)
			r.Post("/", s.handleCreateBackup)
			r.Post("/upload", s.handleUploadBackup)

			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", s.handleGetBackup)
				r.Delete("/", s.handleDeleteBackup)
				r.Get("/download", s.handleDownloadBackup)
				r.Post("/restore", s.handleRestoreBackup)
			})
		})

		r.Get("/search", s.handleSearch)
	})

	return r
}

// observe logs each request and records it by route pattern
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		pattern := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}

		duration := time.Since(start)
		metrics.RecordAPIRequest(r.Method, pattern, status, duration)
		s.log.With("request_id", middleware.GetReqID(r.Context())).Debug("%s %s %d %s", r.Method, r.URL.Path, status, duration)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.search != nil {
		if err := s.search.Health(r.Context()); err != nil {
			s.log.Warn("Health check failed: %v", err)
			s.respondJSON(w, http.StatusServiceUnavailable, &Response{
				Status: "error",
				Error:  &APIError{Code: "UNHEALTHY", Message: err.Error()},
			})
			return
		}
	}

	s.respondData(w, http.StatusOK, map[string]string{"status": "ok"})
}
