package api

import (
	"emi-engine/internal/api/handler"
	mw "emi-engine/internal/api/middleware"
	"emi-engine/internal/config"
	"emi-engine/internal/domain/loan"
	"emi-engine/internal/pkg/clock"
	"log/slog"
	"net/http"
	"time"

	_ "emi-engine/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/traceid"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// SetupRouter wires the HTTP surface. A nil rateLimiter disables limiting.
func SetupRouter(loanService loan.LoanService, rateLimiter *mw.RateLimiterMiddleware, clk clock.Clock, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(router, rateLimiter, logger)
	setupMetricsEndpoint(router, cfg, logger)
	setupAuthRoutes(router, clk, cfg, logger)
	setupLoanRoutes(router, loanService, clk, cfg, logger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	setupSwaggerEndpoint(router, logger)

	return router
}

func setupMiddleware(router *chi.Mux, rateLimiter *mw.RateLimiterMiddleware, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(traceid.Middleware)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(60 * time.Second))
	if rateLimiter != nil {
		router.Use(rateLimiter.Middleware)
	}
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupSwaggerEndpoint(router *chi.Mux, logger *slog.Logger) {
	logger.Info("Setting up Swagger UI endpoint", "path", "/swagger/")
	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
}

func setupAuthRoutes(router *chi.Mux, clk clock.Clock, cfg *config.Config, logger *slog.Logger) {
	authHandler := handler.NewAuthHandler(cfg.Server.Auth, clk, logger)
	router.Route("/auth", func(r chi.Router) {
		r.Post("/token", authHandler.GenerateBearerToken)
	})
}

func setupLoanRoutes(router *chi.Mux, loanService loan.LoanService, clk clock.Clock, cfg *config.Config, logger *slog.Logger) {
	loanHandler := handler.NewLoanHandler(loanService, clk, logger)
	ledgerHandler := handler.NewLedgerHandler(loanService, logger)

	router.Group(func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))

		r.Route("/loans", func(r chi.Router) {
			r.Post("/", loanHandler.CreateLoan)
			r.Route("/{loanID}", func(r chi.Router) {
				r.Get("/", loanHandler.GetLoan)
				r.Put("/schedule", loanHandler.GenerateSchedule)
				r.Get("/closure", loanHandler.GetClosure)
				r.Get("/ledger", loanHandler.GetLoanLedger)
				r.Get("/payments", loanHandler.ListPayments)
			})
		})
		r.Post("/installments/{installmentID}/payments", loanHandler.RecordPayment)
		r.Get("/ledger/summary", ledgerHandler.GetSummary)
	})
}
