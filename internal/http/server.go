package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"presupuesto/internal/cache"
	"presupuesto/internal/core"
	"presupuesto/internal/ledger"
	"presupuesto/internal/log"
	"presupuesto/internal/middleware/ratelimit"
	"presupuesto/internal/middleware/security"
	"presupuesto/internal/middleware/trace"
	"presupuesto/internal/storage"
)

const (
	defaultCacheTTL  = 5 * time.Minute
	cacheCleanupTick = 10 * time.Minute
	// monthWindow is how many months the month selector offers, starting at
	// the seed month.
	monthWindow = 37
)

// Options tune NewServer. The zero value is usable.
type Options struct {
	RateLimitPerMinute int
	CacheTTL           time.Duration
	// Pinger backs /readyz; nil reports the store as not checked.
	Pinger storage.Pinger
	Logger *log.Logger
}

// Server exposes the ledger as a JSON API.
type Server struct {
	http.Server
	ledger *ledger.Manager
	pinger storage.Pinger
	logger *log.Logger

	summaries *cache.Versioned[core.MonthSummary]
	history   *cache.Versioned[[]core.HistoryRow]
	caches    *cache.Manager

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	started      time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. Call Shutdown to stop its background goroutines.
func NewServer(addr string, l *ledger.Manager, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	rlConfig := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		rlConfig.RequestsPerMinute = opts.RateLimitPerMinute
	}

	s := &Server{
		ledger:    l,
		pinger:    opts.Pinger,
		logger:    logger,
		summaries: cache.NewVersioned(cache.NewLRUCache[core.MonthSummary](100, ttl), l.Version),
		history:   cache.NewVersioned(cache.NewLRUCache[[]core.HistoryRow](10, ttl), l.Version),
		caches:    cache.NewManager(logger),
		limiter:   ratelimit.NewLimiter(rlConfig),
		detector:  security.NewDetector(),
		started:   time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)
	s.caches.Register(s.summaries)
	s.caches.Register(s.history)
	s.caches.StartCleanup(cacheCleanupTick)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/months", s.handleListMonths)
	mux.HandleFunc("GET /api/months/{month}", s.handleMonth)
	mux.HandleFunc("POST /api/months/{month}/navigate", s.handleNavigate)
	mux.HandleFunc("GET /api/months/{month}/summary", s.handleSummary)
	mux.HandleFunc("GET /api/months/{month}/tips", s.handleTips)
	mux.HandleFunc("GET /api/months/{month}/export.csv", s.handleMonthCSV)
	mux.HandleFunc("GET /api/history", s.handleHistory)

	mux.HandleFunc("POST /api/months/{month}/{kind}", s.handleCreateEntry)
	mux.HandleFunc("PUT /api/months/{month}/{kind}/{id}", s.handleUpdateEntry)
	mux.HandleFunc("DELETE /api/months/{month}/{kind}/{id}", s.handleDeleteEntry)
	mux.HandleFunc("POST /api/months/{month}/ahorros/{id}/deposit", s.handleDeposit)
	mux.HandleFunc("GET /api/months/{month}/{kind}/{id}/schedule", s.handleSchedule)

	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("GET /api/export/history.csv", s.handleHistoryCSV)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("POST /api/rates/parse", s.handleParseRate)

	var h http.Handler = mux
	h = s.limiter.Middleware(rlConfig.Methods, s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r), log.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	})(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(func(r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request blocked",
			log.FieldPath, r.URL.Path, log.FieldUserAgent, r.Header.Get("User-Agent"))
	})(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops the background goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// summary returns the cached summary of k for the current ledger version.
func (s *Server) summary(ctx context.Context, k core.MonthKey) (core.MonthSummary, error) {
	return s.summaries.Get(k.String(), func() (core.MonthSummary, error) {
		return s.ledger.Summary(ctx, k)
	})
}
