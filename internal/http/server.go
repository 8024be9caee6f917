// Package http serves the JSON API and the HTMX dashboard.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"kosh/internal/cache"
	"kosh/internal/core"
	"kosh/internal/middleware/ratelimit"
	"kosh/internal/middleware/security"
	"kosh/internal/middleware/trace"
	"kosh/internal/services"
	"kosh/internal/store"
	appweb "kosh/web"
)

type Server struct {
	http.Server
	templates *template.Template

	store  store.Store
	txns   *services.TransactionService
	recalc *services.RecalcService

	epoch           core.Date
	recordAfterHour int

	limiter *ratelimit.Limiter
	janitor *cache.Janitor

	// dashboard aggregates are recomputed at most once per TTL window
	statsCache   *cache.LRU[core.DashboardStats]
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, st store.Store, txns *services.TransactionService, recalc *services.RecalcService, epoch core.Date, recordAfterHour int) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:           st,
		txns:            txns,
		recalc:          recalc,
		epoch:           epoch,
		recordAfterHour: recordAfterHour,
		limiter:         ratelimit.New(ratelimit.DefaultConfig()),
		statsCache:      cache.NewLRU[core.DashboardStats](16, 5*time.Minute),
	}
	s.janitor = cache.NewJanitor(s.statsCache)
	go s.janitor.Run(10 * time.Minute)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssets(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	secure := security.Headers(security.DefaultHeadersConfig())
	limited := s.limiter.Middleware(trace.ExtractClientIP)
	chain := func(h http.HandlerFunc) http.Handler {
		return trace.Middleware(limited(secure(h)))
	}

	mux.Handle("/", chain(s.handleIndex))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.Handle("/api/accounts", chain(s.handleAccounts))
	mux.Handle("/api/categories", chain(s.handleCategories))
	mux.Handle("/api/transactions", chain(s.handleTransactions))
	mux.Handle("/api/dashboard/stats", chain(s.handleDashboardStats))
	mux.Handle("/api/networth/history", chain(s.handleNetWorthHistory))
	mux.Handle("/api/networth/record", chain(s.handleNetWorthRecord))
	mux.Handle("/api/investments", chain(s.handleInvestments))
	mux.Handle("/api/investments/update", chain(s.handleInvestmentUpdate))
	mux.Handle("/api/recalculate", chain(s.handleRecalculate))

	// HTMX surface
	mux.Handle("/transactions", chain(s.handleTransactionForm))
	mux.Handle("/ui/dashboard", chain(s.handleDashboardPartial))

	return s
}

// Shutdown stops the background goroutines along with the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.janitor.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// invalidateStats drops cached dashboard aggregates after a write.
func (s *Server) invalidateStats() {
	s.statsCache.Purge()
}
