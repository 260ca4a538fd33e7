package supabase

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
	"github.com/boddenberg/carteira-recebiveis-go/internal/infra/rows"

	"go.uber.org/zap"
)

// ============================================================
// ClientStore
// ============================================================

func (c *Client) ListClients(ctx context.Context) ([]domain.Client, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListClients")
	defer span.End()

	body, err := c.read(ctx, rows.TableClients, "clients?select=*&order=id.asc")
	if err != nil {
		return nil, err
	}
	list, err := decodeRows[rows.Client](body, rows.TableClients)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Client, len(list))
	for i, r := range list {
		out[i] = r.ToDomain()
	}
	return out, nil
}

func (c *Client) InsertClient(ctx context.Context, cl *domain.Client) (*domain.Client, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertClient")
	defer span.End()

	body, err := c.write(ctx, http.MethodPost, rows.TableClients, "clients", rows.ClientInsert(*cl), preferRepresentation)
	if err != nil {
		return nil, err
	}
	saved, err := single[rows.Client](body, rows.TableClients)
	if err != nil {
		return nil, err
	}
	out := saved.ToDomain()
	c.logger.Info("client stored", zap.Int64("client_id", out.ID))
	return &out, nil
}

func (c *Client) UpdateClient(ctx context.Context, id int64, patch domain.ClientPatch) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateClient")
	defer span.End()

	cols := rows.ClientPatchColumns(patch)
	if len(cols) == 0 {
		// Nothing to write; still report a missing row.
		_, err := c.getByID(ctx, rows.TableClients, "client", id)
		return err
	}
	path := fmt.Sprintf("clients?id=eq.%d", id)
	body, err := c.write(ctx, http.MethodPatch, rows.TableClients, path, cols, preferRepresentation)
	if err != nil {
		return err
	}
	return expectAffected(body, "client", id)
}

func (c *Client) DeleteClient(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteClient")
	defer span.End()

	// operations.client_id is declared ON DELETE CASCADE, and so is
	// receipts.operation_id, so one DELETE removes the whole tree.
	path := fmt.Sprintf("clients?id=eq.%d", id)
	body, err := c.write(ctx, http.MethodDelete, rows.TableClients, path, nil, preferRepresentation)
	if err != nil {
		return err
	}
	return expectAffected(body, "client", id)
}

// getByID fetches the raw row of a numeric-keyed table.
func (c *Client) getByID(ctx context.Context, table, resource string, id int64) ([]byte, error) {
	body, err := c.read(ctx, table, fmt.Sprintf("%s?id=eq.%d&limit=1", table, id))
	if err != nil {
		return nil, err
	}
	if isEmpty(body) {
		return nil, &domain.ErrNotFound{Resource: resource, ID: strconv.FormatInt(id, 10)}
	}
	return body, nil
}

// single decodes a one-row representation.
func single[T any](body []byte, what string) (*T, error) {
	list, err := decodeRows[T](body, what)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("decode %s: empty representation", what)
	}
	return &list[0], nil
}

// expectAffected turns an empty PATCH/DELETE representation into NotFound.
func expectAffected(body []byte, resource string, id int64) error {
	if isEmpty(body) {
		return &domain.ErrNotFound{Resource: resource, ID: strconv.FormatInt(id, 10)}
	}
	return nil
}

func isEmpty(body []byte) bool {
	s := string(body)
	return s == "" || s == "[]" || s == "null"
}
