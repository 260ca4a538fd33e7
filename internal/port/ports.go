// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations (Supabase PostgREST, SQL via gorm).
package port

import (
	"context"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
)

// ClientStore persists clients. DeleteClient cascades to the client's
// operations and their receipts.
type ClientStore interface {
	ListClients(ctx context.Context) ([]domain.Client, error)
	InsertClient(ctx context.Context, c *domain.Client) (*domain.Client, error)
	UpdateClient(ctx context.Context, id int64, patch domain.ClientPatch) error
	DeleteClient(ctx context.Context, id int64) error
}

// OperationStore persists operations. InsertOperations is all-or-nothing:
// either every operation of the batch is stored or none is.
type OperationStore interface {
	ListOperations(ctx context.Context, filter domain.OperationFilter) ([]domain.Operation, error)
	GetOperation(ctx context.Context, id int64) (*domain.Operation, error)
	InsertOperations(ctx context.Context, ops []domain.Operation) ([]domain.Operation, error)
	UpdateOperation(ctx context.Context, id int64, patch domain.OperationPatch) error
	DeleteOperation(ctx context.Context, id int64) error
}

// ReceiptStore persists receipts.
type ReceiptStore interface {
	ListReceipts(ctx context.Context, filter domain.ReceiptFilter) ([]domain.Receipt, error)
	GetReceipt(ctx context.Context, id int64) (*domain.Receipt, error)
	InsertReceipt(ctx context.Context, r *domain.Receipt) (*domain.Receipt, error)
	DeleteReceipt(ctx context.Context, id int64) error
}

// UserStore persists back-office users.
type UserStore interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	InsertUser(ctx context.Context, u *domain.User) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// PreferenceStore persists per-user preferences that live apart from the
// operations themselves.
type PreferenceStore interface {
	ListDismissedReminders(ctx context.Context, userID string) ([]int64, error)
	DismissReminder(ctx context.Context, userID string, operationID int64) error
	RestoreReminder(ctx context.Context, userID string, operationID int64) error
}

// Store is the full persistence port.
type Store interface {
	ClientStore
	OperationStore
	ReceiptStore
	UserStore
	PreferenceStore
	Ping(ctx context.Context) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
