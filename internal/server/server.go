// Package server exposes the search engine over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/codesearch/codesearch/codesearch"
	"github.com/codesearch/codesearch/internal/logging"
)

// Engine is what the server needs from *codesearch.Engine.
type Engine interface {
	Search(ctx context.Context, raw string, userID int64) ([]codesearch.SearchResult, error)
	Stats(ctx context.Context) (*codesearch.StatsResult, error)
}

type Config struct {
	// UserHeader carries the id of the user, set by a trusted upstream
	// proxy after authentication.
	UserHeader     string
	RequestTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	// RateLimit is searches per second per user; 0 disables limiting.
	RateLimit float64
	RateBurst int
}

type Server struct {
	engine  Engine
	cfg     Config
	logger  *slog.Logger
	limiter *rateLimiter
	handler http.Handler
}

func New(engine Engine, cfg Config, logger *slog.Logger) *Server {
	if cfg.UserHeader == "" {
		cfg.UserHeader = "X-User-ID"
	}
	s := &Server{
		engine: engine,
		cfg:    cfg,
		logger: logging.Default(logger).With("component", "server"),
	}
	if cfg.RateLimit > 0 {
		s.limiter = newRateLimiter(rate.Limit(cfg.RateLimit), max(1, cfg.RateBurst))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /search", s.handleSearch)
	s.handler = s.requestID(s.accessLog(mux))
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve accepts connections on listener until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		wg.Wait()
	}()
	if s.limiter != nil {
		s.limiter.startCleanup(ctx, &wg, time.Minute, 10*time.Minute)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	s.logger.Info("listening", "addr", listener.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("stopped")
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}
