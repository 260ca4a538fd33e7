package handler

import (
	"net/http"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
	"github.com/boddenberg/carteira-recebiveis-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Operações
// ============================================================

type statusRequest struct {
	Status  domain.Status `json:"status"`
	Confirm bool          `json:"confirm"`
}

func listOperationsHandler(portfolio *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/operations")
		defer span.End()

		clientID, err := queryID(r, "clientId")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		filter := domain.OperationFilter{ClientID: clientID}
		if s := domain.Status(r.URL.Query().Get("status")); s != "" {
			if !s.Valid() {
				handleServiceError(w, &domain.ErrValidation{Field: "status", Message: "status desconhecido: " + string(s)}, logger)
				return
			}
			filter.Status = s
		}
		writeJSON(w, http.StatusOK, portfolio.ListOperations(ctx, filter))
	}
}

func getOperationHandler(portfolio *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/operations/{operationId}")
		defer span.End()

		id, err := pathID(r, "operationId")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		view, err := portfolio.GetOperation(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func createOperationHandler(portfolio *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/operations")
		defer span.End()

		var req domain.OperationRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(
			attribute.Int64("client.id", req.ClientID),
			attribute.Int("installments", req.Installments),
		)

		batch, err := portfolio.CreateOperation(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, batch)
	}
}

// previewInstallmentsHandler expands a request without storing anything.
func previewInstallmentsHandler(portfolio *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/installments/preview")
		defer span.End()

		var req domain.OperationRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		ops, err := portfolio.PreviewOperation(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, ops)
	}
}

func deleteOperationHandler(portfolio *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/operations/{operationId}")
		defer span.End()

		id, err := pathID(r, "operationId")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int64("operation.id", id))

		if err := portfolio.DeleteOperation(ctx, id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func setOperationStatusHandler(portfolio *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/operations/{operationId}/status")
		defer span.End()

		id, err := pathID(r, "operationId")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		var req statusRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(
			attribute.Int64("operation.id", id),
			attribute.String("status.target", string(req.Status)),
		)

		view, err := portfolio.SetOperationStatus(ctx, id, req.Status, req.Confirm)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}
