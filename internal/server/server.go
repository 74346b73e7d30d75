// Package server is the HTTP daemon: it takes a game record, plays one AI
// move and returns the updated record.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/kigster/gomoku-ansi-c-sub000/internal/config"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/engine"
	"github.com/kigster/gomoku-ansi-c-sub000/internal/store"
)

const Version = "1.0.0"

type Options struct {
	Config *config.Store
	Table  *engine.TranspositionTable
	// Store is optional; without it nothing survives a restart.
	Store  *store.Store
	Logger *slog.Logger
	// Seed drives opening randomization; zero picks one from the clock.
	Seed int64
}

type Server struct {
	cfg     *config.Store
	tt      *engine.TranspositionTable
	store   *store.Store
	logger  *slog.Logger
	hub     *Hub
	started time.Time

	// cacheLog and aiLog carry the "ai:cache" and "ai" components.
	cacheLog *slog.Logger
	aiLog    *slog.Logger

	slots    *semaphore.Weighted
	maxSlots int64
	flight   singleflight.Group
	limiter  *rate.Limiter

	rngMu sync.Mutex
	rng   *rand.Rand

	persistOnce sync.Once
}

func New(opts Options) *Server {
	cfg := opts.Config.Get()
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	tt := opts.Table
	if tt == nil {
		tt = cfg.NewTable()
	}
	logger := opts.Logger.With("component", "backend")
	s := &Server{
		cfg:      opts.Config,
		tt:       tt,
		store:    opts.Store,
		logger:   logger,
		cacheLog: opts.Logger.With("component", "ai:cache"),
		aiLog:    opts.Logger.With("component", "ai"),
		hub:      NewHub(logger),
		started:  time.Now(),
		slots:    semaphore.NewWeighted(cfg.Server.MaxSearches),
		maxSlots: cfg.Server.MaxSearches,
		limiter:  rate.NewLimiter(limitOf(cfg.Server), cfg.Server.RateBurst),
		rng:      rand.New(rand.NewSource(seed)),
	}
	ttEntries.Set(float64(tt.Count()))
	return s
}

func limitOf(sc config.ServerConfig) rate.Limit {
	if sc.RatePerSecond <= 0 {
		return rate.Inf
	}
	return rate.Limit(sc.RatePerSecond)
}

// ApplyConfig picks up a reloaded configuration. The number of search
// slots is fixed at startup.
func (s *Server) ApplyConfig(cfg config.Config) {
	s.limiter.SetLimit(limitOf(cfg.Server))
	s.limiter.SetBurst(cfg.Server.RateBurst)
	if cfg.Server.MaxSearches != s.maxSlots {
		s.logger.Warn("max_searches changes need a restart", "running", s.maxSlots, "configured", cfg.Server.MaxSearches)
	}
}

func (s *Server) Table() *engine.TranspositionTable {
	return s.tt
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.With(s.rateLimit).Post("/gomoku/play", s.handlePlay)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Get("/cache/tt", s.handleCacheStatus)
		r.Delete("/cache/tt", s.handleCacheClear)
		r.Get("/cache/tt/entries", s.handleCacheEntries)
		r.Get("/games", s.handleGameList)
		r.Get("/games/{id}", s.handleGame)
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/ws/games", s.serveWS)
	return r
}

// Run serves on addr until ctx ends, then shuts down gracefully and
// persists the transposition table.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hubCtx, cancelHub := context.WithCancel(context.Background())
	defer cancelHub()
	go s.hub.Run(hubCtx.Done())

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
		close(serverErrCh)
	}()
	s.logger.Info("listening", "addr", ln.Addr().String(), "version", Version)

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received", "reason", context.Cause(ctx))
	case err, ok := <-serverErrCh:
		if ok {
			runErr = err
			s.logger.Error("server error", "error", err)
		}
	}

	wait := time.Duration(s.cfg.Get().Server.ShutdownWaitMs) * time.Millisecond
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), wait)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Warn("graceful shutdown failed", "error", err)
		if closeErr := server.Close(); closeErr != nil && !errors.Is(closeErr, http.ErrServerClosed) {
			s.logger.Error("forced close failed", "error", closeErr)
		}
	}
	s.Persist("shutdown")
	return runErr
}

// Restore loads the stored transposition table snapshot, if any.
func (s *Server) Restore() {
	if s.store == nil {
		s.cacheLog.Info("restored TT persistence: 0 entries (disabled)")
		return
	}
	n, err := s.store.LoadTable(s.tt)
	if err != nil {
		s.cacheLog.Warn("failed to restore TT persistence", "error", err)
		return
	}
	ttEntries.Set(float64(n))
	s.cacheLog.Info("restored TT persistence", "entries", n)
}

// Persist writes the transposition table snapshot once per process.
func (s *Server) Persist(reason string) {
	s.persistOnce.Do(func() {
		if s.store == nil {
			return
		}
		n, err := s.store.SaveTable(s.tt)
		if err != nil {
			s.cacheLog.Error("failed to store TT persistence", "reason", reason, "error", err)
			return
		}
		s.cacheLog.Info("stored TT persistence", "reason", reason, "entries", n)
	})
}

// Busy reports whether every search slot is taken.
func (s *Server) Busy() bool {
	if !s.slots.TryAcquire(1) {
		return true
	}
	s.slots.Release(1)
	return false
}

func (s *Server) newRand() *rand.Rand {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return rand.New(rand.NewSource(s.rng.Int63()))
}

// FormatUptime renders seconds as "1d 2h 3m 4s", leaving out leading
// zero units.
func FormatUptime(d time.Duration) string {
	secs := int64(d / time.Second)
	days, hours := secs/86400, (secs%86400)/3600
	minutes, rest := (secs%3600)/60, secs%60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, rest)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, rest)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, rest)
	}
	return fmt.Sprintf("%ds", rest)
}

// ParseBind accepts "host:port" or a bare port.
func ParseBind(s string) (string, error) {
	host, portStr := "", s
	if i := strings.LastIndex(s, ":"); i >= 0 {
		host, portStr = strings.Trim(s[:i], "[]"), s[i+1:]
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", fmt.Errorf("invalid bind address %q: expected host:port or port", s)
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}
