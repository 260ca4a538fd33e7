package supabase

import (
	"context"
	"fmt"
	"net/http"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
	"github.com/boddenberg/carteira-recebiveis-go/internal/infra/rows"

	"go.uber.org/zap"
)

// ============================================================
// ReceiptStore
// ============================================================

func (c *Client) ListReceipts(ctx context.Context, filter domain.ReceiptFilter) ([]domain.Receipt, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListReceipts")
	defer span.End()

	path := "receipts?select=*&order=id.asc"
	if filter.OperationID != nil {
		path = fmt.Sprintf("receipts?select=*&operation_id=eq.%d&order=id.asc", *filter.OperationID)
	}
	body, err := c.read(ctx, rows.TableReceipts, path)
	if err != nil {
		return nil, err
	}
	list, err := decodeRows[rows.Receipt](body, rows.TableReceipts)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Receipt, len(list))
	for i, r := range list {
		out[i] = r.ToDomain()
	}
	return out, nil
}

func (c *Client) GetReceipt(ctx context.Context, id int64) (*domain.Receipt, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetReceipt")
	defer span.End()

	body, err := c.getByID(ctx, rows.TableReceipts, "receipt", id)
	if err != nil {
		return nil, err
	}
	r, err := single[rows.Receipt](body, rows.TableReceipts)
	if err != nil {
		return nil, err
	}
	rec := r.ToDomain()
	return &rec, nil
}

func (c *Client) InsertReceipt(ctx context.Context, rec *domain.Receipt) (*domain.Receipt, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertReceipt")
	defer span.End()

	body, err := c.write(ctx, http.MethodPost, rows.TableReceipts, "receipts", rows.ReceiptInsert(*rec), preferRepresentation)
	if err != nil {
		return nil, err
	}
	saved, err := single[rows.Receipt](body, rows.TableReceipts)
	if err != nil {
		return nil, err
	}
	out := saved.ToDomain()
	c.logger.Info("receipt stored",
		zap.Int64("receipt_id", out.ID),
		zap.Int64("operation_id", out.OperationID),
		zap.Bool("extension", out.IsExtension()),
	)
	return &out, nil
}

func (c *Client) DeleteReceipt(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteReceipt")
	defer span.End()

	path := fmt.Sprintf("receipts?id=eq.%d", id)
	body, err := c.write(ctx, http.MethodDelete, rows.TableReceipts, path, nil, preferRepresentation)
	if err != nil {
		return err
	}
	return expectAffected(body, "receipt", id)
}
