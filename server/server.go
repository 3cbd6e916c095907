package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pg_exporter/log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Scraper triggers one collection pass over every enabled collector.
type Scraper interface {
	Scrape(ctx context.Context)
}

// Pinger checks database reachability for the health endpoint.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	addr          string
	scrapeTimeout time.Duration
	scraper       Scraper
	registry      *prometheus.Registry
	db            Pinger
	version       string
}

func New(addr string, scrapeTimeout time.Duration, scraper Scraper, registry *prometheus.Registry, db Pinger, version string) *Server {
	return &Server{
		addr:          addr,
		scrapeTimeout: scrapeTimeout,
		scraper:       scraper,
		registry:      registry,
		db:            db,
		version:       version,
	}
}

// Handler builds the HTTP mux serving /metrics and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metricsHandler())
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully. Any
// in-flight scrape is given up to the scrape timeout to drain.
func (s *Server) Run() error {
	httpServer := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Logger.Infof("listening on %s", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Logger.Infof("shutting down: signal=%s", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.scrapeTimeout)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

// metricsHandler runs a full collection pass, then renders the shared
// registry once as the scrape response. The scrape timeout aborts the entire
// in-flight pass, not individual collectors.
func (s *Server) metricsHandler() http.Handler {
	render := promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.scrapeTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.scrapeTimeout)
			defer cancel()
		}

		s.scraper.Scrape(ctx)
		render.ServeHTTP(w, r)
	})
}

type health struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := health{Name: "pg_exporter", Version: s.version, Database: "ok"}
	status := http.StatusOK
	if err := s.db.PingContext(ctx); err != nil {
		log.Logger.Errorf("health check ping failed: error=%v", err)
		resp.Database = "error"
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Logger.Errorf("health response encoding failed: error=%v", err)
	}
}
