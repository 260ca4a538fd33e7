package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
	"github.com/boddenberg/carteira-recebiveis-go/internal/infra/rows"
)

// ============================================================
// UserStore
// ============================================================

func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListUsers")
	defer span.End()

	body, err := c.read(ctx, rows.TableUsers, "users?select=*&order=created_at.asc")
	if err != nil {
		return nil, err
	}
	return decodeUsers(body)
}

func (c *Client) GetUser(ctx context.Context, id string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetUser")
	defer span.End()

	return c.findUser(ctx, "id=eq."+url.QueryEscape(id), id)
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetUserByEmail")
	defer span.End()

	return c.findUser(ctx, "email=eq."+url.QueryEscape(email), email)
}

func (c *Client) findUser(ctx context.Context, cond, key string) (*domain.User, error) {
	body, err := c.read(ctx, rows.TableUsers, fmt.Sprintf("users?select=*&%s&limit=1", cond))
	if err != nil {
		return nil, err
	}
	users, err := decodeUsers(body)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, &domain.ErrNotFound{Resource: "user", ID: key}
	}
	return &users[0], nil
}

// InsertUser relies on the unique index on email; a duplicate comes back
// from PostgREST as 409 and surfaces as ErrConflict.
func (c *Client) InsertUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertUser")
	defer span.End()

	body, err := c.write(ctx, http.MethodPost, rows.TableUsers, "users", rows.UserInsert(*u), preferRepresentation)
	if err != nil {
		return nil, err
	}
	saved, err := single[rows.User](body, rows.TableUsers)
	if err != nil {
		return nil, err
	}
	out := saved.ToDomain()
	return &out, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteUser")
	defer span.End()

	body, err := c.write(ctx, http.MethodDelete, rows.TableUsers, "users?id=eq."+url.QueryEscape(id), nil, preferRepresentation)
	if err != nil {
		return err
	}
	if isEmpty(body) {
		return &domain.ErrNotFound{Resource: "user", ID: id}
	}
	return nil
}

func decodeUsers(body []byte) ([]domain.User, error) {
	list, err := decodeRows[rows.User](body, rows.TableUsers)
	if err != nil {
		return nil, err
	}
	out := make([]domain.User, len(list))
	for i, r := range list {
		out[i] = r.ToDomain()
	}
	return out, nil
}
