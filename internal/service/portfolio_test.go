package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
	"github.com/boddenberg/carteira-recebiveis-go/internal/infra/cache"
	"github.com/boddenberg/carteira-recebiveis-go/internal/infra/observability"
	"github.com/boddenberg/carteira-recebiveis-go/internal/service"

	"go.uber.org/zap"
)

// fixedNow falls on 2025-06-10 in UTC, the default location.
var fixedNow = time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

func newPortfolio(t *testing.T, store *fakeStore) (*service.PortfolioService, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetrics()
	svc := service.NewPortfolioService(store, cache.New[domain.Snapshot](time.Minute), metrics, zap.NewNop(), service.PortfolioOptions{
		Now: func() time.Time { return fixedNow },
	})
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	return svc, metrics
}

func createOp(t *testing.T, svc *service.PortfolioService, req domain.OperationRequest) domain.Operation {
	t.Helper()
	batch, err := svc.CreateOperation(context.Background(), req)
	if err != nil {
		t.Fatalf("create operation: %v", err)
	}
	return batch.Operations[0]
}

func storedStatus(t *testing.T, store *fakeStore, id int64) domain.Operation {
	t.Helper()
	op, err := store.GetOperation(context.Background(), id)
	if err != nil {
		t.Fatalf("get operation %d: %v", id, err)
	}
	return *op
}

func TestCreateReceipt_CompletesPaymentAcrossReceipts(t *testing.T) {
	store := newFakeStore()
	svc, metrics := newPortfolio(t, store)
	ctx := context.Background()

	op := createOp(t, svc, domain.OperationRequest{
		Type:         domain.OperationDuplicata,
		TitleNumber:  "D-500",
		NominalValue: money("500"),
		DueDate:      date("2025-06-30"),
		Taxa:         rateOf(2),
	})

	if _, err := svc.CreateReceipt(ctx, domain.ReceiptDraft{
		OperationID: op.ID, DataRecebimento: date("2025-06-05"), ValorPrincipalPago: money("300"), ValorTotalRecebido: money("300"),
	}); err != nil {
		t.Fatalf("first receipt: %v", err)
	}
	if got := storedStatus(t, store, op.ID).Status; got != domain.StatusAberto {
		t.Fatalf("expected aberto after partial payment, got %s", got)
	}

	if _, err := svc.CreateReceipt(ctx, domain.ReceiptDraft{
		OperationID: op.ID, DataRecebimento: date("2025-06-08"), ValorPrincipalPago: money("200"), ValorTotalRecebido: money("210"), ValorJurosPago: money("10"),
	}); err != nil {
		t.Fatalf("second receipt: %v", err)
	}
	if got := storedStatus(t, store, op.ID).Status; got != domain.StatusPago {
		t.Fatalf("expected pago, got %s", got)
	}

	view, err := svc.GetOperation(ctx, op.ID)
	if err != nil {
		t.Fatal(err)
	}
	if view.Status != domain.StatusPago {
		t.Errorf("working copy not mirrored: %s", view.Status)
	}

	m := metrics.GetCarteiraSnapshot()
	if m.ReceiptsApplied != 2 {
		t.Errorf("expected 2 receipts applied, got %d", m.ReceiptsApplied)
	}
	if m.StatusTransitions["aberto->pago"] != 1 {
		t.Errorf("expected one aberto->pago transition, got %v", m.StatusTransitions)
	}
}

func TestCreateReceipt_ExtensionReopensWithoutCompletionCheck(t *testing.T) {
	store := newFakeStore()
	svc, _ := newPortfolio(t, store)
	ctx := context.Background()

	op := createOp(t, svc, domain.OperationRequest{
		Type:         domain.OperationCheque,
		NominalValue: money("100"),
		DueDate:      date("2025-05-01"),
	})
	// Mark overdue in the store, as a legacy record would be.
	atrasado := domain.StatusAtrasado
	if err := store.UpdateOperation(ctx, op.ID, domain.OperationPatch{Status: &atrasado}); err != nil {
		t.Fatal(err)
	}

	newDue := date("2025-06-01")
	if _, err := svc.CreateReceipt(ctx, domain.ReceiptDraft{
		OperationID:        op.ID,
		DataRecebimento:    date("2025-05-20"),
		ValorPrincipalPago: money("100"), // would settle it if this were a payment
		NewDueDate:         &newDue,
	}); err != nil {
		t.Fatalf("extension: %v", err)
	}

	got := storedStatus(t, store, op.ID)
	if got.Status != domain.StatusAberto {
		t.Errorf("expected aberto, got %s", got.Status)
	}
	if !got.DueDate.Equal(newDue) {
		t.Errorf("expected due date %s, got %s", newDue, got.DueDate)
	}
}

func TestDeleteReceipt_ReversesToOverdueWhenPastDue(t *testing.T) {
	store := newFakeStore()
	svc, metrics := newPortfolio(t, store)
	ctx := context.Background()

	op := createOp(t, svc, domain.OperationRequest{
		Type:         domain.OperationDuplicata,
		NominalValue: money("100"),
		DueDate:      date("2025-05-01"),
	})
	rec, err := svc.CreateReceipt(ctx, domain.ReceiptDraft{
		OperationID: op.ID, DataRecebimento: date("2025-05-02"), ValorPrincipalPago: money("100"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := storedStatus(t, store, op.ID).Status; got != domain.StatusPago {
		t.Fatalf("expected pago, got %s", got)
	}

	if err := svc.DeleteReceipt(ctx, rec.ID); err != nil {
		t.Fatalf("delete receipt: %v", err)
	}
	if got := storedStatus(t, store, op.ID).Status; got != domain.StatusAtrasado {
		t.Errorf("expected atrasado after reversal, got %s", got)
	}
	if n := metrics.GetCarteiraSnapshot().ReceiptsReversed; n != 1 {
		t.Errorf("expected 1 reversal, got %d", n)
	}
}

func TestDeleteReceipt_ReversesToOpenWhenNotDue(t *testing.T) {
	store := newFakeStore()
	svc, _ := newPortfolio(t, store)
	ctx := context.Background()

	op := createOp(t, svc, domain.OperationRequest{
		Type:         domain.OperationDuplicata,
		NominalValue: money("100"),
		DueDate:      date("2025-07-01"),
	})
	rec, err := svc.CreateReceipt(ctx, domain.ReceiptDraft{
		OperationID: op.ID, DataRecebimento: date("2025-06-10"), ValorPrincipalPago: money("100"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteReceipt(ctx, rec.ID); err != nil {
		t.Fatal(err)
	}
	if got := storedStatus(t, store, op.ID).Status; got != domain.StatusAberto {
		t.Errorf("expected aberto, got %s", got)
	}
}

func TestDeleteReceipt_KeepsPaidWhenStillCovered(t *testing.T) {
	store := newFakeStore()
	svc, _ := newPortfolio(t, store)
	ctx := context.Background()

	op := createOp(t, svc, domain.OperationRequest{
		Type:         domain.OperationDuplicata,
		NominalValue: money("100"),
		DueDate:      date("2025-07-01"),
	})
	if _, err := svc.CreateReceipt(ctx, domain.ReceiptDraft{
		OperationID: op.ID, DataRecebimento: date("2025-06-10"), ValorPrincipalPago: money("100"),
	}); err != nil {
		t.Fatal(err)
	}
	extra, err := svc.CreateReceipt(ctx, domain.ReceiptDraft{
		OperationID: op.ID, DataRecebimento: date("2025-06-10"), ValorPrincipalPago: money("5"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteReceipt(ctx, extra.ID); err != nil {
		t.Fatal(err)
	}
	if got := storedStatus(t, store, op.ID).Status; got != domain.StatusPago {
		t.Errorf("expected pago to stay, got %s", got)
	}
}

func TestDeleteReceipt_NotFound(t *testing.T) {
	svc, _ := newPortfolio(t, newFakeStore())
	err := svc.DeleteReceipt(context.Background(), 404)
	if !domain.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestCreateReceipt_UnknownOperation(t *testing.T) {
	svc, _ := newPortfolio(t, newFakeStore())
	_, err := svc.CreateReceipt(context.Background(), domain.ReceiptDraft{
		OperationID: 99, DataRecebimento: date("2025-06-10"), ValorPrincipalPago: money("1"),
	})
	if !domain.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestCreateReceipt_StoreFailureLeavesNoTrace(t *testing.T) {
	store := newFakeStore()
	svc, metrics := newPortfolio(t, store)
	ctx := context.Background()

	op := createOp(t, svc, domain.OperationRequest{
		Type: domain.OperationDuplicata, NominalValue: money("100"), DueDate: date("2025-07-01"),
	})
	store.failInsertReceipt = true

	_, err := svc.CreateReceipt(ctx, domain.ReceiptDraft{
		OperationID: op.ID, DataRecebimento: date("2025-06-10"), ValorPrincipalPago: money("100"),
	})
	var se *domain.ErrStore
	if !errors.As(err, &se) {
		t.Fatalf("expected store error, got %v", err)
	}
	if se.Action != "registrar recebimento" {
		t.Errorf("unexpected action %q", se.Action)
	}
	if n := len(svc.ListReceipts(ctx, &op.ID)); n != 0 {
		t.Errorf("receipt must not be mirrored, found %d", n)
	}
	if store.updateCalls != 0 {
		t.Errorf("status must not be touched, got %d updates", store.updateCalls)
	}
	if metrics.GetCarteiraSnapshot().StoreErrors != 1 {
		t.Errorf("expected 1 store error counted")
	}
}

func TestCreateReceipt_ValidationBeforeWrite(t *testing.T) {
	store := newFakeStore()
	svc, _ := newPortfolio(t, store)

	_, err := svc.CreateReceipt(context.Background(), domain.ReceiptDraft{
		OperationID: 1, DataRecebimento: date("2025-06-10"), ValorPrincipalPago: money("-1"),
	})
	var ve *domain.ErrValidation
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, n := store.counts(); n != 0 {
		t.Errorf("nothing should be stored")
	}
}

func TestCreateReceipt_ConcurrentPaymentsSettleOnce(t *testing.T) {
	store := newFakeStore()
	svc, metrics := newPortfolio(t, store)
	ctx := context.Background()

	op := createOp(t, svc, domain.OperationRequest{
		Type: domain.OperationDuplicata, NominalValue: money("1000"), DueDate: date("2025-07-01"),
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.CreateReceipt(ctx, domain.ReceiptDraft{
				OperationID: op.ID, DataRecebimento: date("2025-06-10"), ValorPrincipalPago: money("100"),
			}); err != nil {
				t.Errorf("receipt: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := storedStatus(t, store, op.ID).Status; got != domain.StatusPago {
		t.Errorf("expected pago, got %s", got)
	}
	if n := metrics.GetCarteiraSnapshot().StatusTransitions["aberto->pago"]; n != 1 {
		t.Errorf("expected exactly one settlement transition, got %d", n)
	}
	if n := len(svc.ListReceipts(ctx, &op.ID)); n != 10 {
		t.Errorf("expected 10 receipts mirrored, got %d", n)
	}
}

// ============================================================
// Operations & clients
// ============================================================

func TestCreateOperation_DefaultsToClientRate(t *testing.T) {
	store := newFakeStore()
	svc, _ := newPortfolio(t, store)
	ctx := context.Background()

	client, err := svc.CreateClient(ctx, domain.ClientDraft{Name: "Mercado Boa Vista", TaxaJurosMensal: domain.NewRate(5)})
	if err != nil {
		t.Fatal(err)
	}
	op := createOp(t, svc, domain.OperationRequest{
		ClientID: client.ID, Type: domain.OperationDuplicata, NominalValue: money("1000"), DueDate: date("2025-07-01"),
	})
	if op.NetValue.StringFixed() != "1050.00" {
		t.Errorf("expected 1050.00, got %s", op.NetValue.StringFixed())
	}
	if !op.IssueDate.Equal(date("2025-06-10")) {
		t.Errorf("issue date should default to today, got %s", op.IssueDate)
	}
}

func TestCreateOperation_InstallmentsAllOrNothing(t *testing.T) {
	store := newFakeStore()
	svc, _ := newPortfolio(t, store)
	ctx := context.Background()

	batch, err := svc.CreateOperation(ctx, domain.OperationRequest{
		TitleNumber: "P", NominalValue: money("1000"), DueDate: date("2025-07-15"), Installments: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !batch.Expanded || len(batch.Operations) != 3 {
		t.Fatalf("expected 3 expanded operations, got %+v", batch)
	}

	store.failInsertOps = true
	_, err = svc.CreateOperation(ctx, domain.OperationRequest{
		NominalValue: money("1000"), DueDate: date("2025-07-15"), Installments: 4,
	})
	var se *domain.ErrStore
	if !errors.As(err, &se) {
		t.Fatalf("expected store error, got %v", err)
	}
	if ops, _ := store.counts(); ops != 3 {
		t.Errorf("failed batch must store nothing, store has %d", ops)
	}
	if n := len(svc.ListOperations(ctx, domain.OperationFilter{})); n != 3 {
		t.Errorf("failed batch must not be mirrored, working copy has %d", n)
	}
}

func TestCreateOperation_Rejections(t *testing.T) {
	store := newFakeStore()
	svc, _ := newPortfolio(t, store)
	ctx := context.Background()

	_, err := svc.CreateOperation(ctx, domain.OperationRequest{NominalValue: money("10"), DueDate: date("2025-07-01"), Installments: 61})
	var br *domain.ErrBusinessRule
	if !errors.As(err, &br) {
		t.Errorf("expected business rule violation for 61 installments, got %v", err)
	}

	_, err = svc.CreateOperation(ctx, domain.OperationRequest{Type: domain.OperationDuplicata, NominalValue: money("10")})
	var ve *domain.ErrValidation
	if !errors.As(err, &ve) || ve.Field != "dueDate" {
		t.Errorf("expected dueDate validation error, got %v", err)
	}

	_, err = svc.CreateOperation(ctx, domain.OperationRequest{ClientID: 42, Type: domain.OperationDuplicata, NominalValue: money("10"), DueDate: date("2025-07-01")})
	if !domain.IsNotFound(err) {
		t.Errorf("expected unknown client, got %v", err)
	}

	if ops, _ := store.counts(); ops != 0 {
		t.Errorf("nothing should be stored, got %d", ops)
	}
}

func TestDeleteClient_Cascades(t *testing.T) {
	store := newFakeStore()
	svc, _ := newPortfolio(t, store)
	ctx := context.Background()

	client, err := svc.CreateClient(ctx, domain.ClientDraft{Name: "Oficina Dois Irmãos"})
	if err != nil {
		t.Fatal(err)
	}
	batch, err := svc.CreateOperation(ctx, domain.OperationRequest{
		ClientID: client.ID, NominalValue: money("900"), DueDate: date("2025-07-01"), Installments: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, op := range batch.Operations {
		if _, err := svc.CreateReceipt(ctx, domain.ReceiptDraft{
			OperationID: op.ID, DataRecebimento: date("2025-06-10"), ValorPrincipalPago: money("50"),
		}); err != nil {
			t.Fatal(err)
		}
	}

	if err := svc.DeleteClient(ctx, client.ID); err != nil {
		t.Fatalf("delete client: %v", err)
	}

	if ops, recs := store.counts(); ops != 0 || recs != 0 {
		t.Errorf("store kept %d operations and %d receipts", ops, recs)
	}
	cid := client.ID
	if n := len(svc.ListOperations(ctx, domain.OperationFilter{ClientID: &cid})); n != 0 {
		t.Errorf("working copy kept %d operations", n)
	}
	if n := len(svc.ListReceipts(ctx, nil)); n != 0 {
		t.Errorf("working copy kept %d receipts", n)
	}
}

func TestListOperations_FiltersByEffectiveStatus(t *testing.T) {
	store := newFakeStore()
	svc, _ := newPortfolio(t, store)
	ctx := context.Background()

	late := createOp(t, svc, domain.OperationRequest{Type: domain.OperationCheque, NominalValue: money("10"), DueDate: date("2025-06-01")})
	createOp(t, svc, domain.OperationRequest{Type: domain.OperationCheque, NominalValue: money("10"), DueDate: date("2025-06-20")})

	views := svc.ListOperations(ctx, domain.OperationFilter{Status: domain.StatusAtrasado})
	if len(views) != 1 || views[0].ID != late.ID {
		t.Fatalf("expected only the overdue operation, got %+v", views)
	}
	if views[0].StoredStatus != domain.StatusAberto {
		t.Errorf("stored status should stay aberto, got %s", views[0].StoredStatus)
	}
}

func TestSetOperationStatus_ManualPaymentNeedsConfirmation(t *testing.T) {
	store := newFakeStore()
	svc, _ := newPortfolio(t, store)
	ctx := context.Background()

	op := createOp(t, svc, domain.OperationRequest{Type: domain.OperationCheque, NominalValue: money("10"), DueDate: date("2025-06-20")})

	_, err := svc.SetOperationStatus(ctx, op.ID, domain.StatusPago, false)
	var ve *domain.ErrValidation
	if !errors.As(err, &ve) {
		t.Fatalf("expected confirmation error, got %v", err)
	}

	view, err := svc.SetOperationStatus(ctx, op.ID, domain.StatusPago, true)
	if err != nil {
		t.Fatal(err)
	}
	if view.Status != domain.StatusPago {
		t.Errorf("expected pago, got %s", view.Status)
	}

	_, err = svc.SetOperationStatus(ctx, op.ID, domain.StatusAberto, true)
	var br *domain.ErrBusinessRule
	if !errors.As(err, &br) {
		t.Errorf("reopening by hand must be rejected, got %v", err)
	}

	before := store.updateCalls
	if _, err := svc.SetOperationStatus(ctx, op.ID, domain.StatusPago, true); err != nil {
		t.Errorf("same status should be a no-op, got %v", err)
	}
	if store.updateCalls != before {
		t.Errorf("no-op must not write to the store")
	}
}

// ============================================================
// Snapshot
// ============================================================

func TestSnapshot_CacheNeverSurvivesReceipt(t *testing.T) {
	store := newFakeStore()
	svc, metrics := newPortfolio(t, store)
	ctx := context.Background()

	op := createOp(t, svc, domain.OperationRequest{Type: domain.OperationDuplicata, NominalValue: money("1000"), DueDate: date("2025-06-12")})

	first, err := svc.Snapshot(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Snapshot(ctx, "user-1"); err != nil {
		t.Fatal(err)
	}
	if rate := metrics.GetCarteiraSnapshot().SnapshotCacheRatio; rate != 0.5 {
		t.Errorf("expected one hit out of two, got %v", rate)
	}

	if _, err := svc.CreateReceipt(ctx, domain.ReceiptDraft{
		OperationID: op.ID, DataRecebimento: date("2025-06-10"), ValorPrincipalPago: money("400"),
	}); err != nil {
		t.Fatal(err)
	}

	after, err := svc.Snapshot(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if first.ActiveCapital.StringFixed() != "1000.00" || after.ActiveCapital.StringFixed() != "600.00" {
		t.Errorf("stale snapshot: before %s after %s", first.ActiveCapital.StringFixed(), after.ActiveCapital.StringFixed())
	}
}

func TestSnapshot_DismissedReminders(t *testing.T) {
	store := newFakeStore()
	svc, _ := newPortfolio(t, store)
	ctx := context.Background()

	op := createOp(t, svc, domain.OperationRequest{Type: domain.OperationDuplicata, NominalValue: money("10"), DueDate: date("2025-06-12")})

	if err := svc.DismissReminder(ctx, "user-1", op.ID); err != nil {
		t.Fatal(err)
	}
	snap, _ := svc.Snapshot(ctx, "user-1")
	if len(snap.Reminders) != 0 {
		t.Errorf("dismissed reminder still shown")
	}
	other, _ := svc.Snapshot(ctx, "user-2")
	if len(other.Reminders) != 1 {
		t.Errorf("dismissal must be per user")
	}

	if err := svc.RestoreReminder(ctx, "user-1", op.ID); err != nil {
		t.Fatal(err)
	}
	snap, _ = svc.Snapshot(ctx, "user-1")
	if len(snap.Reminders) != 1 {
		t.Errorf("restored reminder missing")
	}
}

func TestSnapshot_DismissalReadFailureStillAggregates(t *testing.T) {
	store := newFakeStore()
	svc, _ := newPortfolio(t, store)
	createOp(t, svc, domain.OperationRequest{Type: domain.OperationDuplicata, NominalValue: money("10"), DueDate: date("2025-06-12")})

	store.failDismissals = true
	snap, err := svc.Snapshot(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("snapshot should not fail: %v", err)
	}
	if len(snap.Reminders) != 1 {
		t.Errorf("expected the reminder to show, got %d", len(snap.Reminders))
	}
}

func TestRefresh_FailureKeepsPreviousState(t *testing.T) {
	store := newFakeStore()
	svc, _ := newPortfolio(t, store)
	ctx := context.Background()
	createOp(t, svc, domain.OperationRequest{Type: domain.OperationDuplicata, NominalValue: money("10"), DueDate: date("2025-06-12")})

	store.failList = true
	err := svc.Refresh(ctx)
	var se *domain.ErrStore
	if !errors.As(err, &se) {
		t.Fatalf("expected store error, got %v", err)
	}
	if n := len(svc.ListOperations(ctx, domain.OperationFilter{})); n != 1 {
		t.Errorf("previous state lost, have %d operations", n)
	}
}

func rateOf(p float64) *domain.Rate {
	r := domain.NewRate(p)
	return &r
}

func TestRefresh_KeepsWritesMadeDuringLoad(t *testing.T) {
	store := newFakeStore()
	svc, _ := newPortfolio(t, store)
	ctx := context.Background()

	var once sync.Once
	store.beforeListOps = func() {
		once.Do(func() {
			if _, err := svc.CreateOperation(ctx, domain.OperationRequest{
				Type: domain.OperationCheque, NominalValue: money("80"), DueDate: date("2025-07-01"),
			}); err != nil {
				t.Errorf("create during refresh: %v", err)
			}
		})
	}

	if err := svc.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if ops := svc.ListOperations(ctx, domain.OperationFilter{}); len(ops) != 1 {
		t.Fatalf("operation written during refresh was dropped, have %d", len(ops))
	}
}

func TestRefresh_GivesUpWhenWritesNeverStop(t *testing.T) {
	store := newFakeStore()
	svc, _ := newPortfolio(t, store)
	ctx := context.Background()

	store.beforeListOps = func() {
		if _, err := svc.CreateOperation(ctx, domain.OperationRequest{
			Type: domain.OperationCheque, NominalValue: money("10"), DueDate: date("2025-07-01"),
		}); err != nil {
			t.Errorf("create during refresh: %v", err)
		}
	}

	err := svc.Refresh(ctx)
	if !errors.Is(err, service.ErrRefreshRaced) {
		t.Fatalf("expected ErrRefreshRaced, got %v", err)
	}
	var se *domain.ErrStore
	if !errors.As(err, &se) {
		t.Errorf("expected a store error naming the action, got %T", err)
	}
	store.beforeListOps = nil
	if ops := svc.ListOperations(ctx, domain.OperationFilter{}); len(ops) != 3 {
		t.Errorf("writes made by the service must stay in the working copy, have %d", len(ops))
	}
}
