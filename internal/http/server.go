// Package http serves the JSON API: budget dashboard, weekly and
// month-over-month analysis, income planning, and record creation.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/services"
)

type Server struct {
	http.Server
	tracker     *services.Tracker
	rateLimiter *rateLimiter
	metrics     *securityMetrics
	clock       func() time.Time

	// Read-side caches, invalidated on writes and swept by the manager.
	dashboardCache  *cache.LRU[services.DashboardView]
	weeklyCache     *cache.LRU[[]core.WeeklyTotal]
	comparisonCache *cache.LRU[core.MonthComparison]
	cacheManager    *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires routes, middleware and caches around the tracker.
func NewServer(addr string, tracker *services.Tracker) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		tracker:         tracker,
		rateLimiter:     newRateLimiter(),
		metrics:         &securityMetrics{},
		clock:           time.Now,
		dashboardCache:  cache.NewLRU[services.DashboardView](100, 5*time.Minute),
		weeklyCache:     cache.NewLRU[[]core.WeeklyTotal](10, 5*time.Minute),
		comparisonCache: cache.NewLRU[core.MonthComparison](100, 5*time.Minute),
		cacheManager:    cache.NewManager(),
	}

	s.cacheManager.Register(s.dashboardCache)
	s.cacheManager.Register(s.weeklyCache)
	s.cacheManager.Register(s.comparisonCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/api/dashboard", s.withMiddleware(s.handleDashboard))
	mux.HandleFunc("/api/analysis/weekly", s.withMiddleware(s.handleWeeklyAnalysis))
	mux.HandleFunc("/api/analysis/comparison", s.withMiddleware(s.handleComparison))
	mux.HandleFunc("/api/planner", s.withMiddleware(s.handlePlanner))
	mux.HandleFunc("/api/reminder", s.withMiddleware(s.handleReminder))
	mux.HandleFunc("/api/categories", s.withMiddleware(s.handleCategories))
	mux.HandleFunc("/api/expenses", s.withMiddleware(s.handleCreateExpense))
	mux.HandleFunc("/api/income", s.withMiddleware(s.handleCreateIncome))
	mux.HandleFunc("/api/budgets", s.withMiddleware(s.handleCreateAllocation))

	return s
}

// withClock overrides the time source used for period defaults, for tests.
func (s *Server) withClock(clock func() time.Time) *Server {
	s.clock = clock
	return s
}

// withMiddleware adds security headers, request tracing, and rate limiting
// on mutating requests.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		if detectSuspiciousRequest(r, s.metrics) {
			slog.WarnContext(ctx, "Suspicious request pattern",
				"request_id", requestID, "client_ip", clientIP, "url", r.URL.String())
		}

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, s.metrics) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// invalidatePeriod drops every cached view a write to period can change.
// The weekly analysis spans all periods, so it always goes. Comparisons look
// one month back, so the following period's entry goes too.
func (s *Server) invalidatePeriod(p core.Period) {
	s.dashboardCache.Delete(p.String())
	s.comparisonCache.Delete(p.String())
	s.comparisonCache.Delete(p.Next().String())
	s.weeklyCache.Delete(weeklyCacheKey)
}

// Shutdown stops the background cleanup goroutines and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
