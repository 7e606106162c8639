package server

import (
	"context"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	gosync "sync"
	"time"

	"github.com/wesm/interviewlens/internal/config"
	"github.com/wesm/interviewlens/internal/dashboard"
	"github.com/wesm/interviewlens/internal/importer"
	"github.com/wesm/interviewlens/internal/store"
)

// VersionInfo holds build-time version metadata.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// Server is the HTTP server for the dashboard JSON API.
type Server struct {
	mu      gosync.RWMutex
	cfg     config.Config
	loader  *dashboard.Loader
	boards  *dashboard.Registry
	mux     *http.ServeMux
	httpSrv *http.Server
	version VersionInfo

	// Optional local store and importer. Without them the
	// stats and import endpoints report 404.
	store    *store.DB
	importer *importer.Importer

	// handlerDelay is injected before each timeout-wrapped
	// handler, used only by tests to guarantee handlers
	// exceed a short timeout. Zero in production.
	handlerDelay time.Duration
}

// New creates a new Server reading sessions through loader.
func New(
	cfg config.Config, loader *dashboard.Loader, opts ...Option,
) *Server {
	s := &Server{
		cfg:    cfg,
		loader: loader,
		boards: dashboard.NewRegistry(loader),
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the build-time version metadata.
func WithVersion(v VersionInfo) Option {
	return func(s *Server) { s.version = v }
}

// WithStore enables the stats endpoint. Nil is ignored.
func WithStore(db *store.DB) Option {
	return func(s *Server) {
		if db != nil {
			s.store = db
		}
	}
}

// WithImporter enables the import endpoint. Nil is ignored.
func WithImporter(im *importer.Importer) Option {
	return func(s *Server) {
		if im != nil {
			s.importer = im
		}
	}
}

func (s *Server) routes() {
	load, meta := s.routeTimeouts()

	s.mux.Handle("GET /api/v1/sessions",
		s.withTimeout(load, s.handleListSessions))
	s.mux.Handle("GET /api/v1/sessions/{id}",
		s.withTimeout(load, s.handleGetSession))
	s.mux.Handle("GET /api/v1/summary",
		s.withTimeout(load, s.handleSummary))

	s.mux.Handle("GET /api/v1/dashboard",
		s.withTimeout(load, s.handleGetDashboard))
	s.mux.Handle("POST /api/v1/dashboard/select",
		s.withTimeout(load, s.handleSelect))
	s.mux.Handle("POST /api/v1/dashboard/refresh",
		s.withTimeout(load, s.handleRefresh))

	s.mux.Handle("GET /api/v1/stats",
		s.withTimeout(meta, s.handleGetStats))
	s.mux.Handle("GET /api/v1/version",
		s.withTimeout(meta, s.handleGetVersion))

	// Import: no timeout, a large directory may take a while.
	s.mux.HandleFunc("POST /api/v1/import", s.handleImport)
}

func (s *Server) handleGetVersion(
	w http.ResponseWriter, _ *http.Request,
) {
	writeJSON(w, http.StatusOK, s.version)
}

// SetPort updates the listen port (for testing).
func (s *Server) SetPort(port int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Port = port
}

// Handler returns the http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(logMiddleware(s.mux))
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.mu.RLock()
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	s.mu.RUnlock()
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()
	log.Printf("Starting server at http://%s", addr)
	return srv.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.httpSrv
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// FindAvailablePort finds an available port starting from the
// given port, binding to the specified host.
func FindAvailablePort(host string, start int) int {
	for port := start; port < start+100; port++ {
		addr := net.JoinHostPort(host, strconv.Itoa(port))
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			ln.Close()
			return port
		}
	}
	return start
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set(
				"Access-Control-Allow-Methods", "GET, POST, OPTIONS",
			)
			w.Header().Set(
				"Access-Control-Allow-Headers", "Content-Type",
			)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			log.Printf("%s %s", r.Method, r.URL.Path)
		}
		next.ServeHTTP(w, r)
	})
}
