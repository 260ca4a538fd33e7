// Package service provides the business logic layer (use cases).
// PortfolioService owns the working copy of clients, operations and receipts
// and sequences every mutation against the store; the pure calculators
// (accrual, installments, status, aggregator) live alongside it.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
	"github.com/boddenberg/carteira-recebiveis-go/internal/infra/observability"
	"github.com/boddenberg/carteira-recebiveis-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var portfolioTracer = otel.Tracer("service/portfolio")

// PortfolioOptions tune a PortfolioService. Zero values pick defaults.
type PortfolioOptions struct {
	Location       *time.Location
	ReminderWindow int
	Now            func() time.Time
}

// PortfolioService is the single owner of the in-memory collections. Reads
// work on copies; writes go to the store first and are mirrored only after
// the store acknowledges them.
type PortfolioService struct {
	store   port.Store
	cache   port.Cache[domain.Snapshot]
	metrics *observability.Metrics
	logger  *zap.Logger
	loc     *time.Location
	now     func() time.Time
	window  int
	locks   *opLocks

	mu       sync.RWMutex
	clients  []domain.Client
	ops      []domain.Operation
	receipts []domain.Receipt
	version  uint64
	loaded   bool
}

// NewPortfolioService creates a portfolio service. Call Refresh before serving reads.
func NewPortfolioService(store port.Store, cache port.Cache[domain.Snapshot], metrics *observability.Metrics, logger *zap.Logger, opts PortfolioOptions) *PortfolioService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ReminderWindow <= 0 {
		opts.ReminderWindow = DefaultReminderWindow
	}
	return &PortfolioService{
		store:   store,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		loc:     opts.Location,
		now:     opts.Now,
		window:  opts.ReminderWindow,
		locks:   newOpLocks(),
	}
}

// Today is the current civil date in the configured time zone.
func (s *PortfolioService) Today() domain.Date {
	return domain.DateOf(s.now().In(s.loc))
}

// ============================================================
// Loading
// ============================================================

// refreshAttempts bounds how often Refresh reloads when writes keep landing
// while the lists are being read.
const refreshAttempts = 3

// ErrRefreshRaced is returned by Refresh when every attempt overlapped a write.
var ErrRefreshRaced = errors.New("a carteira mudou durante a leitura")

// Refresh reloads the three collections from the store concurrently. On any
// failure the previous state is kept and the error is returned. A load that
// overlaps a write is discarded and read again, so the swap never drops a
// record the service has just stored.
func (s *PortfolioService) Refresh(ctx context.Context) error {
	ctx, span := portfolioTracer.Start(ctx, "PortfolioService.Refresh")
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("refresh", time.Since(start)) }()

	for attempt := 1; attempt <= refreshAttempts; attempt++ {
		s.mu.RLock()
		seen := s.version
		s.mu.RUnlock()

		clients, ops, receipts, err := s.loadAll(ctx)
		if err != nil {
			s.logger.Error("portfolio refresh failed", zap.Error(err))
			return err
		}

		s.mu.Lock()
		if s.version != seen {
			s.mu.Unlock()
			s.logger.Warn("portfolio changed during refresh, reloading", zap.Int("attempt", attempt))
			continue
		}
		s.clients, s.ops, s.receipts = clients, ops, receipts
		s.loaded = true
		s.version++
		s.mu.Unlock()

		s.logger.Info("portfolio loaded",
			zap.Int("clients", len(clients)),
			zap.Int("operations", len(ops)),
			zap.Int("receipts", len(receipts)),
		)
		return nil
	}
	s.metrics.IncrStoreError("carregar carteira")
	return &domain.ErrStore{Action: "carregar carteira", Err: ErrRefreshRaced}
}

func (s *PortfolioService) loadAll(ctx context.Context) ([]domain.Client, []domain.Operation, []domain.Receipt, error) {
	var (
		clients  []domain.Client
		ops      []domain.Operation
		receipts []domain.Receipt
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		clients, err = s.store.ListClients(gctx)
		return s.storeErr("carregar clientes", err)
	})
	g.Go(func() error {
		var err error
		ops, err = s.store.ListOperations(gctx, domain.OperationFilter{})
		return s.storeErr("carregar operações", err)
	})
	g.Go(func() error {
		var err error
		receipts, err = s.store.ListReceipts(gctx, domain.ReceiptFilter{})
		return s.storeErr("carregar recebimentos", err)
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	return clients, ops, receipts, nil
}

// Ready reports whether a Refresh has succeeded at least once.
func (s *PortfolioService) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Ping checks the store.
func (s *PortfolioService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ============================================================
// Clients
// ============================================================

func (s *PortfolioService) ListClients(ctx context.Context) []domain.Client {
	_, span := portfolioTracer.Start(ctx, "PortfolioService.ListClients")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Client(nil), s.clients...)
}

func (s *PortfolioService) GetClient(ctx context.Context, id int64) (*domain.Client, error) {
	_, span := portfolioTracer.Start(ctx, "PortfolioService.GetClient")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "client", ID: fmt.Sprint(id)}
}

func (s *PortfolioService) CreateClient(ctx context.Context, draft domain.ClientDraft) (*domain.Client, error) {
	ctx, span := portfolioTracer.Start(ctx, "PortfolioService.CreateClient")
	defer span.End()

	if err := validateClientDraft(draft); err != nil {
		return nil, err
	}
	saved, err := s.store.InsertClient(ctx, &domain.Client{
		Name:            draft.Name,
		Document:        draft.Document,
		Email:           draft.Email,
		Phone:           draft.Phone,
		Address:         draft.Address,
		LimiteCredito:   draft.LimiteCredito.Round2(),
		TaxaJurosMensal: draft.TaxaJurosMensal,
		Notes:           draft.Notes,
	})
	if err != nil {
		return nil, s.storeErr("criar cliente", err)
	}

	s.mu.Lock()
	s.clients = append(s.clients, *saved)
	s.version++
	s.mu.Unlock()

	s.logger.Info("client created", zap.Int64("client_id", saved.ID), zap.String("name", saved.Name))
	return saved, nil
}

func (s *PortfolioService) UpdateClient(ctx context.Context, id int64, patch domain.ClientPatch) (*domain.Client, error) {
	ctx, span := portfolioTracer.Start(ctx, "PortfolioService.UpdateClient")
	defer span.End()
	span.SetAttributes(attribute.Int64("client.id", id))

	if err := validateClientPatch(patch); err != nil {
		return nil, err
	}
	if err := s.store.UpdateClient(ctx, id, patch); err != nil {
		return nil, s.storeErr("atualizar cliente", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	for i := range s.clients {
		if s.clients[i].ID == id {
			patch.Apply(&s.clients[i])
			c := s.clients[i]
			return &c, nil
		}
	}
	// Stored but not in the working copy yet; the next Refresh picks it up.
	return nil, &domain.ErrNotFound{Resource: "client", ID: fmt.Sprint(id)}
}

// DeleteClient removes the client; the store cascades to its operations and
// their receipts and the working copy mirrors that.
func (s *PortfolioService) DeleteClient(ctx context.Context, id int64) error {
	ctx, span := portfolioTracer.Start(ctx, "PortfolioService.DeleteClient")
	defer span.End()
	span.SetAttributes(attribute.Int64("client.id", id))

	if err := s.store.DeleteClient(ctx, id); err != nil {
		return s.storeErr("excluir cliente", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients = filterSlice(s.clients, func(c domain.Client) bool { return c.ID != id })
	removed := map[int64]bool{}
	s.ops = filterSlice(s.ops, func(op domain.Operation) bool {
		if op.ClientID == id {
			removed[op.ID] = true
			return false
		}
		return true
	})
	s.receipts = filterSlice(s.receipts, func(r domain.Receipt) bool { return !removed[r.OperationID] })
	s.version++

	s.logger.Info("client deleted", zap.Int64("client_id", id), zap.Int("operations_removed", len(removed)))
	return nil
}

// ============================================================
// Operations
// ============================================================

// ListOperations returns operations with effective status and derived
// balances. A status filter matches the effective status.
func (s *PortfolioService) ListOperations(ctx context.Context, filter domain.OperationFilter) []domain.OperationView {
	_, span := portfolioTracer.Start(ctx, "PortfolioService.ListOperations")
	defer span.End()

	today := s.Today()
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make(map[int64]string, len(s.clients))
	for _, c := range s.clients {
		names[c.ID] = c.Name
	}
	byOp := receiptsByOperation(s.receipts)

	out := make([]domain.OperationView, 0, len(s.ops))
	for _, op := range s.ops {
		v := s.viewOf(op, byOp[op.ID], today, names)
		if !filter.Match(v.Operation) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// GetOperation returns one operation view from the working copy.
func (s *PortfolioService) GetOperation(ctx context.Context, id int64) (*domain.OperationView, error) {
	_, span := portfolioTracer.Start(ctx, "PortfolioService.GetOperation")
	defer span.End()

	today := s.Today()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, op := range s.ops {
		if op.ID != id {
			continue
		}
		names := map[int64]string{}
		for _, c := range s.clients {
			if c.ID == op.ClientID {
				names[c.ID] = c.Name
			}
		}
		v := s.viewOf(op, receiptsByOperation(s.receipts)[op.ID], today, names)
		return &v, nil
	}
	return nil, &domain.ErrNotFound{Resource: "operation", ID: fmt.Sprint(id)}
}

func (s *PortfolioService) viewOf(op domain.Operation, receipts []domain.Receipt, today domain.Date, names map[int64]string) domain.OperationView {
	v := domain.OperationView{
		Operation:    op,
		StoredStatus: op.Status,
		Balances:     RemainingBalances(op, receipts),
		ClientName:   names[op.ClientID],
	}
	v.Status = EffectiveStatus(op, today)
	return v
}

// PreviewOperation resolves the rate and expands the request without storing anything.
func (s *PortfolioService) PreviewOperation(ctx context.Context, req domain.OperationRequest) ([]domain.Operation, error) {
	_, span := portfolioTracer.Start(ctx, "PortfolioService.PreviewOperation")
	defer span.End()

	rate, err := s.prepareOperation(&req)
	if err != nil {
		return nil, err
	}
	return ExpandInstallments(req, rate)
}

// CreateOperation validates the request, expands installments and stores the
// whole batch at once. Nothing is stored when validation or expansion fails.
func (s *PortfolioService) CreateOperation(ctx context.Context, req domain.OperationRequest) (*domain.OperationBatch, error) {
	ctx, span := portfolioTracer.Start(ctx, "PortfolioService.CreateOperation")
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("create_operation", time.Since(start)) }()

	rate, err := s.prepareOperation(&req)
	if err != nil {
		return nil, err
	}
	drafts, err := ExpandInstallments(req, rate)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("operation.count", len(drafts)))

	saved, err := s.store.InsertOperations(ctx, drafts)
	if err != nil {
		return nil, s.storeErr("criar operação", err)
	}

	s.mu.Lock()
	s.ops = append(s.ops, saved...)
	s.version++
	s.mu.Unlock()

	ids := make([]int64, len(saved))
	for i, op := range saved {
		ids[i] = op.ID
	}
	s.logger.Info("operations created",
		zap.Int64("client_id", req.ClientID),
		zap.Int64s("operation_ids", ids),
		zap.String("nominal_value", req.NominalValue.StringFixed()),
	)
	return &domain.OperationBatch{Operations: saved, Expanded: len(saved) > 1}, nil
}

// prepareOperation validates req in place and resolves the rate: the request
// rate, else the client's monthly rate, else zero.
func (s *PortfolioService) prepareOperation(req *domain.OperationRequest) (domain.Rate, error) {
	if err := validateOperationRequest(req); err != nil {
		return domain.Rate{}, err
	}
	if req.IssueDate.IsZero() {
		req.IssueDate = s.Today()
	}

	var client *domain.Client
	if req.ClientID != 0 {
		s.mu.RLock()
		for _, c := range s.clients {
			if c.ID == req.ClientID {
				c := c
				client = &c
				break
			}
		}
		s.mu.RUnlock()
		if client == nil {
			return domain.Rate{}, &domain.ErrNotFound{Resource: "client", ID: fmt.Sprint(req.ClientID)}
		}
	}

	switch {
	case req.Taxa != nil:
		return *req.Taxa, nil
	case client != nil:
		return client.TaxaJurosMensal, nil
	default:
		return domain.Rate{}, nil
	}
}

// DeleteOperation removes an operation and, through the store cascade, its receipts.
func (s *PortfolioService) DeleteOperation(ctx context.Context, id int64) error {
	ctx, span := portfolioTracer.Start(ctx, "PortfolioService.DeleteOperation")
	defer span.End()
	span.SetAttributes(attribute.Int64("operation.id", id))

	unlock, err := s.locks.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.store.DeleteOperation(ctx, id); err != nil {
		return s.storeErr("excluir operação", err)
	}

	s.mu.Lock()
	s.ops = filterSlice(s.ops, func(op domain.Operation) bool { return op.ID != id })
	s.receipts = filterSlice(s.receipts, func(r domain.Receipt) bool { return r.OperationID != id })
	s.version++
	s.mu.Unlock()

	s.logger.Info("operation deleted", zap.Int64("operation_id", id))
	return nil
}

// SetOperationStatus is the manual status change. Only marking an open or
// overdue operation as paid is allowed, and only with confirm set.
// Setting the status it already has is a no-op.
func (s *PortfolioService) SetOperationStatus(ctx context.Context, id int64, target domain.Status, confirm bool) (*domain.OperationView, error) {
	ctx, span := portfolioTracer.Start(ctx, "PortfolioService.SetOperationStatus")
	defer span.End()
	span.SetAttributes(attribute.Int64("operation.id", id), attribute.String("status.target", string(target)))

	unlock, err := s.locks.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	op, err := s.store.GetOperation(ctx, id)
	if err != nil {
		return nil, s.storeErr("carregar operação", err)
	}

	current := EffectiveStatus(*op, s.Today())
	next, err := Transition(current, TriggerManual, target)
	if errors.Is(err, domain.ErrNoChange) {
		return s.GetOperation(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	if !confirm {
		return nil, &domain.ErrValidation{Field: "confirm", Message: "confirme a baixa manual da operação"}
	}

	if err := s.patchOperation(ctx, id, domain.OperationPatch{Status: &next}, "atualizar status da operação"); err != nil {
		return nil, err
	}
	s.metrics.IncrStatusTransition(current, next)
	s.logger.Info("operation status set manually",
		zap.Int64("operation_id", id),
		zap.String("from", string(current)),
		zap.String("to", string(next)),
	)
	return s.GetOperation(ctx, id)
}

// patchOperation writes patch to the store and mirrors it on success.
func (s *PortfolioService) patchOperation(ctx context.Context, id int64, patch domain.OperationPatch, action string) error {
	if err := s.store.UpdateOperation(ctx, id, patch); err != nil {
		return s.storeErr(action, err)
	}
	s.mu.Lock()
	for i := range s.ops {
		if s.ops[i].ID == id {
			patch.Apply(&s.ops[i])
			break
		}
	}
	s.version++
	s.mu.Unlock()
	return nil
}

// ============================================================
// Snapshot & reminders
// ============================================================

// Snapshot aggregates the working copy for userID. Results are cached per
// day, data version and user; any mutation bumps the version, so a cached
// snapshot never outlives a change to the collections or the dismissals.
func (s *PortfolioService) Snapshot(ctx context.Context, userID string) (domain.Snapshot, error) {
	ctx, span := portfolioTracer.Start(ctx, "PortfolioService.Snapshot")
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("snapshot", time.Since(start)) }()

	today := s.Today()
	s.mu.RLock()
	in := SnapshotInput{
		Clients:    append([]domain.Client(nil), s.clients...),
		Operations: append([]domain.Operation(nil), s.ops...),
		Receipts:   append([]domain.Receipt(nil), s.receipts...),
		Today:      today,
		Window:     s.window,
	}
	version := s.version
	s.mu.RUnlock()

	key := fmt.Sprintf("snapshot:%s:%d:%s", today, version, userID)
	if s.cache != nil {
		if snap, ok := s.cache.Get(key); ok {
			s.metrics.IncrCacheHit("snapshot")
			return snap, nil
		}
	}
	s.metrics.IncrCacheMiss("snapshot")

	in.Dismissed = map[int64]bool{}
	if userID != "" {
		ids, err := s.store.ListDismissedReminders(ctx, userID)
		if err != nil {
			// Reminders still show; hiding them is a convenience.
			s.metrics.IncrStoreError("carregar lembretes ocultos")
			s.logger.Warn("failed to load dismissed reminders", zap.String("user_id", userID), zap.Error(err))
		}
		for _, id := range ids {
			in.Dismissed[id] = true
		}
	}

	snap := BuildSnapshot(in)
	s.metrics.ObserveSnapshot(snap)
	if s.cache != nil {
		s.cache.Set(key, snap)
	}
	return snap, nil
}

func (s *PortfolioService) DismissReminder(ctx context.Context, userID string, operationID int64) error {
	ctx, span := portfolioTracer.Start(ctx, "PortfolioService.DismissReminder")
	defer span.End()

	if _, err := s.GetOperation(ctx, operationID); err != nil {
		return err
	}
	if err := s.store.DismissReminder(ctx, userID, operationID); err != nil {
		return s.storeErr("ocultar lembrete", err)
	}
	s.bump()
	return nil
}

func (s *PortfolioService) RestoreReminder(ctx context.Context, userID string, operationID int64) error {
	ctx, span := portfolioTracer.Start(ctx, "PortfolioService.RestoreReminder")
	defer span.End()

	if err := s.store.RestoreReminder(ctx, userID, operationID); err != nil {
		return s.storeErr("restaurar lembrete", err)
	}
	s.bump()
	return nil
}

func (s *PortfolioService) bump() {
	s.mu.Lock()
	s.version++
	s.mu.Unlock()
}

// ============================================================
// Helpers
// ============================================================

// storeErr wraps a store failure so it names the action. Not-found and
// already-typed errors pass through unchanged.
func (s *PortfolioService) storeErr(action string, err error) error {
	if err == nil {
		return nil
	}
	var nf *domain.ErrNotFound
	var se *domain.ErrStore
	if errors.As(err, &nf) || errors.As(err, &se) || errors.Is(err, context.Canceled) {
		return err
	}
	s.metrics.IncrStoreError(action)
	return &domain.ErrStore{Action: action, Err: err}
}

func filterSlice[T any](in []T, keep func(T) bool) []T {
	out := in[:0:0]
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
