package supabase

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
	"github.com/boddenberg/carteira-recebiveis-go/internal/infra/rows"

	"go.uber.org/zap"
)

// ============================================================
// OperationStore
// ============================================================

func (c *Client) ListOperations(ctx context.Context, filter domain.OperationFilter) ([]domain.Operation, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListOperations")
	defer span.End()

	q := []string{"select=*"}
	if filter.ClientID != nil {
		q = append(q, fmt.Sprintf("client_id=eq.%d", *filter.ClientID))
	}
	if filter.Status != "" {
		q = append(q, "status=eq."+string(filter.Status))
	}
	q = append(q, "order=id.asc")

	body, err := c.read(ctx, rows.TableOperations, "operations?"+strings.Join(q, "&"))
	if err != nil {
		return nil, err
	}
	list, err := decodeRows[rows.Operation](body, rows.TableOperations)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Operation, len(list))
	for i, r := range list {
		out[i] = r.ToDomain()
	}
	return out, nil
}

func (c *Client) GetOperation(ctx context.Context, id int64) (*domain.Operation, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetOperation")
	defer span.End()

	body, err := c.getByID(ctx, rows.TableOperations, "operation", id)
	if err != nil {
		return nil, err
	}
	r, err := single[rows.Operation](body, rows.TableOperations)
	if err != nil {
		return nil, err
	}
	op := r.ToDomain()
	return &op, nil
}

// InsertOperations posts the batch as one JSON array; PostgREST runs a
// multi-row insert in a single statement, so the batch lands whole or not at all.
func (c *Client) InsertOperations(ctx context.Context, ops []domain.Operation) ([]domain.Operation, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertOperations")
	defer span.End()

	if len(ops) == 0 {
		return nil, nil
	}
	payload := make([]map[string]any, len(ops))
	for i, op := range ops {
		payload[i] = rows.OperationInsert(op)
	}
	body, err := c.write(ctx, http.MethodPost, rows.TableOperations, "operations", payload, preferRepresentation)
	if err != nil {
		return nil, err
	}
	list, err := decodeRows[rows.Operation](body, rows.TableOperations)
	if err != nil {
		return nil, err
	}
	if len(list) != len(ops) {
		return nil, fmt.Errorf("insert operations: expected %d rows, got %d", len(ops), len(list))
	}
	out := make([]domain.Operation, len(list))
	for i, r := range list {
		out[i] = r.ToDomain()
	}
	c.logger.Info("operations stored", zap.Int("count", len(out)))
	return out, nil
}

func (c *Client) UpdateOperation(ctx context.Context, id int64, patch domain.OperationPatch) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateOperation")
	defer span.End()

	cols := rows.OperationPatchColumns(patch)
	if len(cols) == 0 {
		_, err := c.getByID(ctx, rows.TableOperations, "operation", id)
		return err
	}
	path := fmt.Sprintf("operations?id=eq.%d", id)
	body, err := c.write(ctx, http.MethodPatch, rows.TableOperations, path, cols, preferRepresentation)
	if err != nil {
		return err
	}
	return expectAffected(body, "operation", id)
}

func (c *Client) DeleteOperation(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteOperation")
	defer span.End()

	path := fmt.Sprintf("operations?id=eq.%d", id)
	body, err := c.write(ctx, http.MethodDelete, rows.TableOperations, path, nil, preferRepresentation)
	if err != nil {
		return err
	}
	return expectAffected(body, "operation", id)
}
