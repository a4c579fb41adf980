// Package http serves the dashboard and the JSON API.
package http

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"syntego/internal/log"
	"syntego/internal/middleware/ratelimit"
	"syntego/internal/middleware/security"
	"syntego/internal/services"
	appweb "syntego/web"
)

// Options tune the server. Zero values fall back to sensible defaults.
type Options struct {
	RequestsPerMinute int
	// TrustProxy makes the rate limiter key clients by X-Forwarded-For.
	TrustProxy bool
}

type Server struct {
	*http.Server

	ledger    *services.LedgerService
	insights  *services.InsightService
	templates *template.Template
	limiter   *ratelimit.Limiter
	logger    *log.Logger
}

// NewServer wires the router. Call Shutdown to stop it and its rate limiter.
func NewServer(addr string, ls *services.LedgerService, is *services.InsightService, opts Options, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Discard()
	}
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		ledger:    ls,
		insights:  is,
		templates: t,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
		logger:    logger.WithComponent(log.ComponentHTTP),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(log.Middleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", handleHealth)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		r.With(security.StaticAssetMiddleware(3600)).
			Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(sub))))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	limited := s.limiter.Middleware(clientIP(opts.TrustProxy), s.onRateLimited)

	r.Get("/", s.handleDashboard)
	r.Group(func(r chi.Router) {
		r.Use(limited)
		r.Post("/transactions", s.handleAddForm)
		r.Post("/transactions/delete", s.handleDeleteForm)
		r.Post("/ask", s.handleAskForm)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/transactions", s.handleListTransactions)
		r.Get("/overview", s.handleOverview)
		r.Get("/breakdown", s.handleBreakdown)
		r.Get("/alerts", s.handleAlerts)
		r.Group(func(r chi.Router) {
			r.Use(limited)
			r.Post("/transactions", s.handleCreateTransaction)
			r.Delete("/transactions", s.handleDeleteTransactions)
			r.Post("/advice", s.handleAdvice)
		})
	})

	s.Server = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// advice requests may wait on the provider
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}
	return s, nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

// ListenAndServe blocks until the server stops. A graceful shutdown is not an error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("Starting HTTP server", "addr", s.Addr)
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, r.RemoteAddr, "path", r.URL.Path)
	w.Header().Set("Retry-After", "60")
	if strings.HasPrefix(r.URL.Path, "/api/") {
		JSONError(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
		return
	}
	http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
}

// clientIP returns the key used for rate limiting. Forwarding headers are
// only honoured behind a trusted proxy.
func clientIP(trustProxy bool) func(*http.Request) string {
	return func(r *http.Request) string {
		if trustProxy {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first := strings.TrimSpace(strings.Split(xff, ",")[0])
				if net.ParseIP(first) != nil {
					return first
				}
			}
			if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
				return xri
			}
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return r.RemoteAddr
		}
		return host
	}
}
