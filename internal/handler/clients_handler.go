package handler

import (
	"net/http"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
	"github.com/boddenberg/carteira-recebiveis-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Clientes
// ============================================================

func listClientsHandler(portfolio *service.PortfolioService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/clients")
		defer span.End()

		writeJSON(w, http.StatusOK, portfolio.ListClients(ctx))
	}
}

func getClientHandler(portfolio *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/clients/{clientId}")
		defer span.End()

		id, err := pathID(r, "clientId")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		c, err := portfolio.GetClient(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func createClientHandler(portfolio *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/clients")
		defer span.End()

		var draft domain.ClientDraft
		if err := decodeBody(r, &draft); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		c, err := portfolio.CreateClient(ctx, draft)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

func updateClientHandler(portfolio *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/clients/{clientId}")
		defer span.End()

		id, err := pathID(r, "clientId")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int64("client.id", id))

		var patch domain.ClientPatch
		if err := decodeBody(r, &patch); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		c, err := portfolio.UpdateClient(ctx, id, patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func deleteClientHandler(portfolio *service.PortfolioService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/clients/{clientId}")
		defer span.End()

		id, err := pathID(r, "clientId")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int64("client.id", id))

		if err := portfolio.DeleteClient(ctx, id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
