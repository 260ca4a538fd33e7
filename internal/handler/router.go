package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
	"github.com/boddenberg/carteira-recebiveis-go/internal/infra/observability"
	"github.com/boddenberg/carteira-recebiveis-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// Everything under /v1 except the login route requires a Bearer token.
func NewRouter(portfolio *service.PortfolioService, authSvc *service.AuthService, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(portfolio))
	r.Get("/readyz", readyzHandler(portfolio))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		if portfolio == nil || authSvc == nil {
			r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusServiceUnavailable, "carteira indisponível: store não configurado")
			}))
			return
		}

		r.Post("/auth/login", authLoginHandler(authSvc, logger))

		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(authSvc, logger))

			// =============================================
			// Clientes
			// =============================================
			r.Get("/clients", listClientsHandler(portfolio))
			r.Post("/clients", createClientHandler(portfolio, logger))
			r.Get("/clients/{clientId}", getClientHandler(portfolio, logger))
			r.Put("/clients/{clientId}", updateClientHandler(portfolio, logger))
			r.Delete("/clients/{clientId}", deleteClientHandler(portfolio, logger))

			// =============================================
			// Operações
			// =============================================
			r.Get("/operations", listOperationsHandler(portfolio, logger))
			r.Post("/operations", createOperationHandler(portfolio, logger))
			r.Get("/operations/{operationId}", getOperationHandler(portfolio, logger))
			r.Delete("/operations/{operationId}", deleteOperationHandler(portfolio, logger))
			r.Put("/operations/{operationId}/status", setOperationStatusHandler(portfolio, logger))
			r.Get("/operations/{operationId}/receipts", listOperationReceiptsHandler(portfolio, logger))
			r.Post("/installments/preview", previewInstallmentsHandler(portfolio, logger))

			// =============================================
			// Recebimentos
			// =============================================
			r.Get("/receipts", listReceiptsHandler(portfolio, logger))
			r.Post("/receipts", createReceiptHandler(portfolio, logger))
			r.Delete("/receipts/{receiptId}", deleteReceiptHandler(portfolio, logger))

			// =============================================
			// Painel & lembretes
			// =============================================
			r.Get("/portfolio/snapshot", snapshotHandler(portfolio, logger))
			r.Get("/portfolio/report", reportHandler(portfolio, logger))
			r.Post("/portfolio/refresh", refreshHandler(portfolio, logger))
			r.Post("/reminders/{operationId}/dismiss", dismissReminderHandler(portfolio, logger))
			r.Delete("/reminders/{operationId}/dismiss", restoreReminderHandler(portfolio, logger))

			// =============================================
			// Usuários
			// =============================================
			r.Get("/users", listUsersHandler(authSvc, logger))
			r.Post("/users", createUserHandler(authSvc, logger))
			r.Delete("/users/{userId}", deleteUserHandler(authSvc, logger))

			r.Get("/metrics/carteira", carteiraMetricsHandler(metrics))
		})
	})

	return r
}

// ============================================================
// Health
// ============================================================

func healthzHandler(portfolio *service.PortfolioService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "carteira-api", Status: "healthy", LastChecked: now},
		}
		if portfolio != nil {
			start := time.Now()
			status := "healthy"
			if err := portfolio.Ping(r.Context()); err != nil {
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "store", Status: status, LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overall := "healthy"
		for _, s := range services {
			if s.Status != "healthy" {
				overall = s.Status
			}
		}
		writeJSON(w, http.StatusOK, domain.HealthStatus{Status: overall, Services: services})
	}
}

// readyzHandler answers 503 until the first successful load of the portfolio.
func readyzHandler(portfolio *service.PortfolioService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if portfolio != nil && !portfolio.Ready() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func carteiraMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetCarteiraSnapshot())
	}
}
