package handler

import (
	"net/http"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
	"github.com/boddenberg/carteira-recebiveis-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Recebimentos
// ============================================================

func listReceiptsHandler(portfolio *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/receipts")
		defer span.End()

		opID, err := queryID(r, "operationId")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, portfolio.ListReceipts(ctx, opID))
	}
}

func listOperationReceiptsHandler(portfolio *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/operations/{operationId}/receipts")
		defer span.End()

		id, err := pathID(r, "operationId")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if _, err := portfolio.GetOperation(ctx, id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, portfolio.ListReceipts(ctx, &id))
	}
}

func createReceiptHandler(portfolio *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/receipts")
		defer span.End()

		var draft domain.ReceiptDraft
		if err := decodeBody(r, &draft); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(
			attribute.Int64("operation.id", draft.OperationID),
			attribute.Bool("receipt.extension", draft.NewDueDate != nil),
		)

		rec, err := portfolio.CreateReceipt(ctx, draft)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	}
}

func deleteReceiptHandler(portfolio *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/receipts/{receiptId}")
		defer span.End()

		id, err := pathID(r, "receiptId")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := portfolio.DeleteReceipt(ctx, id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
