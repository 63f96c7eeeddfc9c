package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MagicKrazik/ALPHA/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Services are the application services exposed over HTTP.
type Services struct {
	Profiles *service.ProfileService
	Alerts   *service.AlertService
	Rules    *service.RuleService
}

// Server is the risk engine HTTP API.
type Server struct {
	router   *chi.Mux
	http     *http.Server
	services Services
	checks   map[string]HealthCheck
	logger   *zap.Logger
}

// NewServer builds the router. checks are run by /healthz.
func NewServer(addr string, services Services, checks map[string]HealthCheck, logger *zap.Logger) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		services: services,
		checks:   checks,
		logger:   logger,
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.healthz)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/cases/{caseID}", func(r chi.Router) {
			r.Get("/risk-profile", s.getRiskProfile)
			r.Get("/alerts", s.listCaseAlerts)
		})

		r.Route("/alerts/{alertID}", func(r chi.Router) {
			r.Post("/acknowledge", s.acknowledgeAlert)
			r.Post("/resolve", s.resolveAlert)
			r.Post("/dismiss", s.dismissAlert)
		})

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", s.listRules)
			r.Post("/", s.createRule)
			r.Post("/validate", s.validateRule)
			r.Get("/{ruleID}", s.getRule)
			r.Put("/{ruleID}", s.updateRule)
		})

		r.Get("/risk-factors", s.listRiskFactors)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until Shutdown. http.ErrServerClosed is not an error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := map[string]string{}
	healthy := true
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			healthy = false
			status[name] = err.Error()
			continue
		}
		status[name] = "ok"
	}

	if !healthy {
		writeJSON(w, http.StatusServiceUnavailable, Result[map[string]string]{
			Code: ResultError, Type: "error", Message: "unhealthy", Result: status,
		})
		return
	}
	writeJSON(w, http.StatusOK, Ok(status))
}
