// Package http exposes the dashboard API. Every read endpoint works for
// anonymous callers; the trust gate only decides whether the figures leaving
// the process are real or scaled.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finlens/internal/auth"
	"finlens/internal/cache"
	"finlens/internal/core"
	"finlens/internal/dataset"
	"finlens/internal/insights"
	"finlens/internal/middleware/ratelimit"
	"finlens/internal/middleware/security"
	"finlens/internal/middleware/trace"
)

// SessionCookieName carries the session ID issued by login.
const SessionCookieName = "session_token"

// Options wires the server's collaborators. Advisor may be nil when insights
// are not configured.
type Options struct {
	Addr    string
	Source  dataset.Source
	Gate    *auth.Gate
	Advisor insights.Advisor

	// Requests per minute; zero means the limiter's default.
	GlobalRateLimit   int
	LoginRateLimit    int
	InsightsRateLimit int
}

type Server struct {
	http.Server

	source  dataset.Source
	gate    *auth.Gate
	advisor insights.Advisor

	// Raw summary of the full dataset. Obfuscation happens per request after
	// the gate, so trusted and guest callers share this entry.
	summaryCache *cache.LRUCache[core.Summary]
	cacheManager *cache.Manager

	globalLimiter   *ratelimit.Limiter
	loginLimiter    *ratelimit.Limiter
	insightsLimiter *ratelimit.Limiter

	traceMW *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    opts.Addr,
			Handler: mux,
		},
		source:       opts.Source,
		gate:         opts.Gate,
		advisor:      opts.Advisor,
		summaryCache: cache.NewLRUCache[core.Summary](16, 5*time.Minute),
		cacheManager: cache.NewManager(),

		globalLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.GlobalRateLimit,
		}),
		loginLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: limitOrDefault(opts.LoginRateLimit, 5),
		}),
		insightsLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: limitOrDefault(opts.InsightsRateLimit, 10),
		}),

		traceMW: trace.NewMiddleware(extractClientIP),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	chain := func(h http.Handler) http.Handler {
		return s.traceMW.Middleware(headers.Middleware(s.globalLimiter.Middleware(extractClientIP, nil)(h)))
	}
	api := func(h http.HandlerFunc) http.Handler { return chain(h) }

	mux.Handle("GET /api/summary", api(s.handleSummary))
	mux.Handle("GET /api/expenses", api(s.handleExpenses))
	mux.Handle("GET /api/income", api(s.handleIncome))
	mux.Handle("GET /api/search", api(s.handleSearch))
	mux.Handle("GET /api/categories", api(s.handleCategories))
	mux.Handle("GET /api/tags", api(s.handleTags))

	mux.Handle("POST /api/insights",
		chain(s.insightsLimiter.Middleware(extractClientIP, nil)(http.HandlerFunc(s.handleInsights))))
	mux.Handle("POST /api/auth/login",
		chain(s.loginLimiter.Middleware(extractClientIP, nil)(http.HandlerFunc(s.handleLogin))))
	mux.Handle("POST /api/auth/logout", api(s.handleLogout))
	mux.Handle("GET /api/auth/status", api(s.handleAuthStatus))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	return s
}

func limitOrDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// InvalidateCaches drops computed views, called after a dataset reload.
func (s *Server) InvalidateCaches() {
	s.summaryCache.Clear()
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.globalLimiter.Stop()
		s.loginLimiter.Stop()
		s.insightsLimiter.Stop()
		if s.gate != nil {
			s.gate.Stop()
		}

		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
