// Package server exposes an editing session over HTTP: a live preview page,
// a small JSON API for the editor and style panel, exports delivered as
// one-shot downloads, and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/gaurav-prasanna/markify/core/export"
	"github.com/gaurav-prasanna/markify/core/session"
)

const (
	maxBodySize     = 8 << 20
	shutdownTimeout = 10 * time.Second
)

// Notices keeps the most recent user-facing message. It implements
// core.Notifier so the export coordinator can report through it.
type Notices struct {
	mu   sync.Mutex
	last string
}

// Notify records msg.
func (n *Notices) Notify(msg string) {
	n.mu.Lock()
	n.last = msg
	n.mu.Unlock()
}

// Last returns the most recent message.
func (n *Notices) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last
}

// Config wires a Server.
type Config struct {
	Session     *session.Session
	Coordinator *export.Coordinator
	// Downloads must be the trigger Coordinator delivers to.
	Downloads *Downloads
	Notices   *Notices
	Gatherer  prometheus.Gatherer
	Logger    *slog.Logger
	// Origins lists the browser origins allowed to call the API. No CORS
	// headers are sent when it is empty.
	Origins []string
}

// Server serves one editing session.
type Server struct {
	session   *session.Session
	coord     *export.Coordinator
	downloads *Downloads
	notices   *Notices
	gatherer  prometheus.Gatherer
	logger    *slog.Logger
	origins   []string
}

// New creates a Server.
func New(cfg Config) *Server {
	s := &Server{
		session:   cfg.Session,
		coord:     cfg.Coordinator,
		downloads: cfg.Downloads,
		notices:   cfg.Notices,
		gatherer:  cfg.Gatherer,
		logger:    cfg.Logger,
		origins:   cfg.Origins,
	}
	if s.notices == nil {
		s.notices = &Notices{}
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Router builds the HTTP handler.
func (s *Server) Router() (http.Handler, error) {
	gz, err := gzhttp.NewWrapper(gzhttp.MinSize(1024))
	if err != nil {
		return nil, fmt.Errorf("configuring compression: %w", err)
	}

	r := chi.NewRouter()
	if len(s.origins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			ExposedHeaders: []string{"Content-Disposition"},
			MaxAge:         300,
		}).Handler)
	}
	r.Use(func(next http.Handler) http.Handler { return gz(next) })
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug),
		NoColor: true,
	}))

	r.Get("/", s.handlePage)
	r.Route("/api", func(r chi.Router) {
		r.Get("/markdown", s.handleGetMarkdown)
		r.Put("/markdown", s.handlePutMarkdown)
		r.Put("/richtext", s.handlePutRichText)
		r.Get("/styles", s.handleGetStyles)
		r.Put("/styles", s.handlePutStyles)
		r.Get("/preview", s.handlePreview)
		r.Get("/status", s.handleStatus)
		r.Post("/export/{format}", s.handleExport)
	})
	r.Get(DownloadPrefix+"{id}", s.handleDownload)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	return r, nil
}

// ListenOrigins returns the browser origins under which a server listening
// on addr is reached. A wildcard host yields the loopback names.
func ListenOrigins(addr string) []string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return []string{"http://" + addr}
	}
	switch host {
	case "", "0.0.0.0", "::", "localhost", "127.0.0.1":
		return []string{"http://localhost:" + port, "http://127.0.0.1:" + port}
	}
	return []string{"http://" + net.JoinHostPort(host, port)}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	handler, err := s.Router()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving on %s: %w", addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
