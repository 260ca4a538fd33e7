package gormstore

import (
	"context"
	"strconv"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
	"github.com/boddenberg/carteira-recebiveis-go/internal/infra/rows"

	"gorm.io/gorm"
)

// ============================================================
// Clients
// ============================================================

func (s *Store) ListClients(ctx context.Context) ([]domain.Client, error) {
	ctx, span := tracer.Start(ctx, "GormStore.ListClients")
	defer span.End()

	var list []rows.Client
	if err := s.db.WithContext(ctx).Order("id").Find(&list).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Client, len(list))
	for i, r := range list {
		out[i] = r.ToDomain()
	}
	return out, nil
}

func (s *Store) InsertClient(ctx context.Context, c *domain.Client) (*domain.Client, error) {
	ctx, span := tracer.Start(ctx, "GormStore.InsertClient")
	defer span.End()

	row := rows.ClientFromDomain(*c)
	row.ID = 0
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, translate(err, "client", c.Name)
	}
	out := row.ToDomain()
	return &out, nil
}

func (s *Store) UpdateClient(ctx context.Context, id int64, patch domain.ClientPatch) error {
	ctx, span := tracer.Start(ctx, "GormStore.UpdateClient")
	defer span.End()

	return s.patch(ctx, &rows.Client{}, "client", id, rows.ClientPatchColumns(patch))
}

// DeleteClient removes the client with its operations, their receipts and
// any dismissals pointing at them, in one transaction.
func (s *Store) DeleteClient(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "GormStore.DeleteClient")
	defer span.End()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var opIDs []int64
		if err := tx.Model(&rows.Operation{}).Where("client_id = ?", id).Pluck("id", &opIDs).Error; err != nil {
			return err
		}
		if err := deleteOperationTree(tx, opIDs); err != nil {
			return err
		}
		res := tx.Delete(&rows.Client{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound("client", id)
		}
		return nil
	})
}

// ============================================================
// Operations
// ============================================================

func (s *Store) ListOperations(ctx context.Context, filter domain.OperationFilter) ([]domain.Operation, error) {
	ctx, span := tracer.Start(ctx, "GormStore.ListOperations")
	defer span.End()

	q := s.db.WithContext(ctx).Order("id")
	if filter.ClientID != nil {
		q = q.Where("client_id = ?", *filter.ClientID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	var list []rows.Operation
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Operation, len(list))
	for i, r := range list {
		out[i] = r.ToDomain()
	}
	return out, nil
}

func (s *Store) GetOperation(ctx context.Context, id int64) (*domain.Operation, error) {
	ctx, span := tracer.Start(ctx, "GormStore.GetOperation")
	defer span.End()

	var row rows.Operation
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, translate(err, "operation", strconv.FormatInt(id, 10))
	}
	op := row.ToDomain()
	return &op, nil
}

// InsertOperations stores the whole batch in one transaction.
func (s *Store) InsertOperations(ctx context.Context, ops []domain.Operation) ([]domain.Operation, error) {
	ctx, span := tracer.Start(ctx, "GormStore.InsertOperations")
	defer span.End()

	if len(ops) == 0 {
		return nil, nil
	}
	batch := make([]rows.Operation, len(ops))
	for i, op := range ops {
		batch[i] = rows.OperationFromDomain(op)
		batch[i].ID = 0
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&batch).Error
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Operation, len(batch))
	for i, r := range batch {
		out[i] = r.ToDomain()
	}
	return out, nil
}

func (s *Store) UpdateOperation(ctx context.Context, id int64, patch domain.OperationPatch) error {
	ctx, span := tracer.Start(ctx, "GormStore.UpdateOperation")
	defer span.End()

	return s.patch(ctx, &rows.Operation{}, "operation", id, rows.OperationPatchColumns(patch))
}

func (s *Store) DeleteOperation(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "GormStore.DeleteOperation")
	defer span.End()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&rows.Operation{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return notFound("operation", id)
		}
		return deleteOperationTree(tx, []int64{id})
	})
}

// deleteOperationTree removes operations together with their receipts and dismissals.
func deleteOperationTree(tx *gorm.DB, opIDs []int64) error {
	if len(opIDs) == 0 {
		return nil
	}
	if err := tx.Where("operation_id IN ?", opIDs).Delete(&rows.Receipt{}).Error; err != nil {
		return err
	}
	if err := tx.Where("operation_id IN ?", opIDs).Delete(&rows.Dismissal{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", opIDs).Delete(&rows.Operation{}).Error
}

// ============================================================
// Receipts
// ============================================================

func (s *Store) ListReceipts(ctx context.Context, filter domain.ReceiptFilter) ([]domain.Receipt, error) {
	ctx, span := tracer.Start(ctx, "GormStore.ListReceipts")
	defer span.End()

	q := s.db.WithContext(ctx).Order("id")
	if filter.OperationID != nil {
		q = q.Where("operation_id = ?", *filter.OperationID)
	}
	var list []rows.Receipt
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Receipt, len(list))
	for i, r := range list {
		out[i] = r.ToDomain()
	}
	return out, nil
}

func (s *Store) GetReceipt(ctx context.Context, id int64) (*domain.Receipt, error) {
	ctx, span := tracer.Start(ctx, "GormStore.GetReceipt")
	defer span.End()

	var row rows.Receipt
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, translate(err, "receipt", strconv.FormatInt(id, 10))
	}
	rec := row.ToDomain()
	return &rec, nil
}

func (s *Store) InsertReceipt(ctx context.Context, r *domain.Receipt) (*domain.Receipt, error) {
	ctx, span := tracer.Start(ctx, "GormStore.InsertReceipt")
	defer span.End()

	row := rows.ReceiptFromDomain(*r)
	row.ID = 0
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	out := row.ToDomain()
	return &out, nil
}

func (s *Store) DeleteReceipt(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "GormStore.DeleteReceipt")
	defer span.End()

	res := s.db.WithContext(ctx).Delete(&rows.Receipt{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("receipt", id)
	}
	return nil
}

// patch applies cols to one row. An empty patch only checks existence.
func (s *Store) patch(ctx context.Context, model any, resource string, id int64, cols map[string]any) error {
	db := s.db.WithContext(ctx)
	if len(cols) == 0 {
		var n int64
		if err := db.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return notFound(resource, id)
		}
		return nil
	}
	res := db.Model(model).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(resource, id)
	}
	return nil
}
