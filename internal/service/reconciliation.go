package service

import (
	"context"
	"errors"
	"time"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Receipt reconciliation
// ============================================================
//
// Every step waits for the store to acknowledge the previous one, and the
// whole sequence holds the operation's lock: the principal total read after
// an insert always includes that insert and no concurrent one.

// ListReceipts returns the receipts of one operation, or all when operationID is nil.
func (s *PortfolioService) ListReceipts(ctx context.Context, operationID *int64) []domain.Receipt {
	_, span := portfolioTracer.Start(ctx, "PortfolioService.ListReceipts")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if operationID == nil {
		return append([]domain.Receipt(nil), s.receipts...)
	}
	return filterSlice(s.receipts, func(r domain.Receipt) bool { return r.OperationID == *operationID })
}

// CreateReceipt records a payment or a due-date extension and applies its
// effect on the operation status.
//
// An extension moves the due date and reopens the operation without looking
// at the amounts. A payment marks the operation paid once the principal of
// all its receipts reaches the nominal value.
//
// If the status update fails the receipt stays recorded and the error is
// returned; the operation keeps its previous status.
func (s *PortfolioService) CreateReceipt(ctx context.Context, draft domain.ReceiptDraft) (*domain.Receipt, error) {
	ctx, span := portfolioTracer.Start(ctx, "PortfolioService.CreateReceipt")
	defer span.End()
	span.SetAttributes(attribute.Int64("operation.id", draft.OperationID))
	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("create_receipt", time.Since(start)) }()

	if err := validateReceiptDraft(draft); err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, draft.OperationID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	op, err := s.store.GetOperation(ctx, draft.OperationID)
	if err != nil {
		return nil, s.storeErr("carregar operação", err)
	}

	saved, err := s.store.InsertReceipt(ctx, &domain.Receipt{
		OperationID:        draft.OperationID,
		DataRecebimento:    draft.DataRecebimento,
		ValorTotalRecebido: draft.ValorTotalRecebido.Round2(),
		ValorPrincipalPago: draft.ValorPrincipalPago.Round2(),
		ValorJurosPago:     draft.ValorJurosPago.Round2(),
		FormaPagamento:     draft.FormaPagamento,
		Notes:              draft.Notes,
		NewDueDate:         draft.NewDueDate,
	})
	if err != nil {
		return nil, s.storeErr("registrar recebimento", err)
	}

	s.mu.Lock()
	s.receipts = append(s.receipts, *saved)
	s.version++
	s.mu.Unlock()

	s.logger.Info("receipt recorded",
		zap.Int64("receipt_id", saved.ID),
		zap.Int64("operation_id", saved.OperationID),
		zap.String("principal", saved.ValorPrincipalPago.StringFixed()),
		zap.Bool("extension", saved.IsExtension()),
	)

	if saved.IsExtension() {
		err = s.applyExtension(ctx, op, *saved.NewDueDate)
	} else {
		err = s.applySettlement(ctx, op)
	}
	if err != nil {
		s.logger.Error("receipt recorded but operation status not updated",
			zap.Int64("receipt_id", saved.ID),
			zap.Int64("operation_id", saved.OperationID),
			zap.Error(err),
		)
		return nil, err
	}
	return saved, nil
}

func (s *PortfolioService) applyExtension(ctx context.Context, op *domain.Operation, due domain.Date) error {
	next, err := Transition(op.Status, TriggerExtension, domain.StatusAberto)
	if err != nil && !errors.Is(err, domain.ErrNoChange) {
		return err
	}
	patch := domain.OperationPatch{DueDate: &due, Status: &next}
	if err := s.patchOperation(ctx, op.ID, patch, "prorrogar vencimento"); err != nil {
		return err
	}

	s.metrics.IncrReceipt("extension")
	if op.Status != next {
		s.metrics.IncrStatusTransition(op.Status, next)
	}
	s.logger.Info("operation due date extended",
		zap.Int64("operation_id", op.ID),
		zap.String("due_date", due.String()),
	)
	return nil
}

func (s *PortfolioService) applySettlement(ctx context.Context, op *domain.Operation) error {
	s.metrics.IncrReceipt("settlement")
	if op.Status == domain.StatusPago {
		return nil
	}

	opID := op.ID
	receipts, err := s.store.ListReceipts(ctx, domain.ReceiptFilter{OperationID: &opID})
	if err != nil {
		return s.storeErr("somar recebimentos", err)
	}
	if !TotalPrincipalPaid(op.ID, receipts).GreaterThanOrEqual(op.NominalValue) {
		return nil
	}

	next, err := Transition(op.Status, TriggerSettlement, domain.StatusPago)
	if err != nil {
		return err
	}
	if err := s.patchOperation(ctx, op.ID, domain.OperationPatch{Status: &next}, "quitar operação"); err != nil {
		return err
	}
	s.metrics.IncrStatusTransition(op.Status, next)
	s.logger.Info("operation settled", zap.Int64("operation_id", op.ID))
	return nil
}

// DeleteReceipt removes a receipt. When that leaves a paid operation short
// of its nominal value, the operation returns to overdue or open depending on
// its due date. If the operation is gone by then, only the receipt deletion
// counts.
func (s *PortfolioService) DeleteReceipt(ctx context.Context, id int64) error {
	ctx, span := portfolioTracer.Start(ctx, "PortfolioService.DeleteReceipt")
	defer span.End()
	span.SetAttributes(attribute.Int64("receipt.id", id))

	rec, err := s.store.GetReceipt(ctx, id)
	if err != nil {
		return s.storeErr("carregar recebimento", err)
	}

	unlock, err := s.locks.Lock(ctx, rec.OperationID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.store.DeleteReceipt(ctx, id); err != nil {
		return s.storeErr("excluir recebimento", err)
	}
	s.mu.Lock()
	s.receipts = filterSlice(s.receipts, func(r domain.Receipt) bool { return r.ID != id })
	s.version++
	s.mu.Unlock()
	s.logger.Info("receipt deleted", zap.Int64("receipt_id", id), zap.Int64("operation_id", rec.OperationID))

	op, err := s.store.GetOperation(ctx, rec.OperationID)
	if domain.IsNotFound(err) {
		s.logger.Warn("operation of deleted receipt no longer exists", zap.Int64("operation_id", rec.OperationID))
		return nil
	}
	if err != nil {
		return s.storeErr("carregar operação", err)
	}
	if op.Status != domain.StatusPago {
		return nil
	}

	opID := op.ID
	remaining, err := s.store.ListReceipts(ctx, domain.ReceiptFilter{OperationID: &opID})
	if err != nil {
		return s.storeErr("somar recebimentos", err)
	}
	if TotalPrincipalPaid(op.ID, remaining).GreaterThanOrEqual(op.NominalValue) {
		return nil
	}

	next, err := Transition(op.Status, TriggerReversal, StatusAfterReversal(*op, s.Today()))
	if err != nil {
		return err
	}
	if err := s.patchOperation(ctx, op.ID, domain.OperationPatch{Status: &next}, "reabrir operação"); err != nil {
		return err
	}
	s.metrics.IncrReceipt("reversal")
	s.metrics.IncrStatusTransition(op.Status, next)
	s.logger.Info("operation reopened after receipt deletion",
		zap.Int64("operation_id", op.ID),
		zap.String("status", string(next)),
	)
	return nil
}
