package handler

import (
	"net/http"

	"github.com/boddenberg/carteira-recebiveis-go/internal/report"
	"github.com/boddenberg/carteira-recebiveis-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Painel, relatório e lembretes
// ============================================================

func snapshotHandler(portfolio *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/portfolio/snapshot")
		defer span.End()

		snap, err := portfolio.Snapshot(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func reportHandler(portfolio *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/portfolio/report")
		defer span.End()

		snap, err := portfolio.Snapshot(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if err := report.RenderSnapshot(w, snap); err != nil {
			logger.Warn("report: write failed", zap.Error(err))
		}
	}
}

func refreshHandler(portfolio *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/portfolio/refresh")
		defer span.End()

		if err := portfolio.Refresh(ctx); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func dismissReminderHandler(portfolio *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/reminders/{operationId}/dismiss")
		defer span.End()

		id, err := pathID(r, "operationId")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := portfolio.DismissReminder(ctx, UserIDFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func restoreReminderHandler(portfolio *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/reminders/{operationId}/dismiss")
		defer span.End()

		id, err := pathID(r, "operationId")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := portfolio.RestoreReminder(ctx, UserIDFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
