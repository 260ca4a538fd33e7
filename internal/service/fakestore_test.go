package service_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
)

var errStoreDown = errors.New("connection refused")

// fakeStore is an in-memory port.Store. Setting a fail* field makes the
// matching call fail with errStoreDown.
type fakeStore struct {
	mu        sync.Mutex
	nextID    int64
	clients   map[int64]domain.Client
	ops       map[int64]domain.Operation
	receipts  map[int64]domain.Receipt
	users     map[string]domain.User
	dismissed map[string]map[int64]bool

	failList          bool
	failInsertOps     bool
	failInsertReceipt bool
	failUpdateOp      bool
	failDismissals    bool

	updateCalls int

	// beforeListOps runs at the start of ListOperations, outside the lock.
	beforeListOps func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		clients:   map[int64]domain.Client{},
		ops:       map[int64]domain.Operation{},
		receipts:  map[int64]domain.Receipt{},
		users:     map[string]domain.User{},
		dismissed: map[string]map[int64]bool{},
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func notFound(resource string, id any) error {
	return &domain.ErrNotFound{Resource: resource, ID: fmt.Sprint(id)}
}

func (f *fakeStore) Ping(context.Context) error { return nil }

// --- clients ---

func (f *fakeStore) ListClients(context.Context) ([]domain.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList {
		return nil, errStoreDown
	}
	out := make([]domain.Client, 0, len(f.clients))
	for _, c := range f.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) InsertClient(_ context.Context, c *domain.Client) (*domain.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	saved := *c
	saved.ID = f.id()
	saved.CreatedAt = time.Now()
	f.clients[saved.ID] = saved
	return &saved, nil
}

func (f *fakeStore) UpdateClient(_ context.Context, id int64, patch domain.ClientPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clients[id]
	if !ok {
		return notFound("client", id)
	}
	patch.Apply(&c)
	f.clients[id] = c
	return nil
}

func (f *fakeStore) DeleteClient(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.clients[id]; !ok {
		return notFound("client", id)
	}
	delete(f.clients, id)
	for opID, op := range f.ops {
		if op.ClientID == id {
			f.deleteOperationLocked(opID)
		}
	}
	return nil
}

// --- operations ---

func (f *fakeStore) ListOperations(_ context.Context, filter domain.OperationFilter) ([]domain.Operation, error) {
	if f.beforeListOps != nil {
		f.beforeListOps()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList {
		return nil, errStoreDown
	}
	var out []domain.Operation
	for _, op := range f.ops {
		if filter.Match(op) {
			out = append(out, op)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) GetOperation(_ context.Context, id int64) (*domain.Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	op, ok := f.ops[id]
	if !ok {
		return nil, notFound("operation", id)
	}
	return &op, nil
}

func (f *fakeStore) InsertOperations(_ context.Context, ops []domain.Operation) ([]domain.Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsertOps {
		return nil, errStoreDown
	}
	out := make([]domain.Operation, len(ops))
	for i, op := range ops {
		op.ID = f.id()
		op.CreatedAt = time.Now()
		f.ops[op.ID] = op
		out[i] = op
	}
	return out, nil
}

func (f *fakeStore) UpdateOperation(_ context.Context, id int64, patch domain.OperationPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.failUpdateOp {
		return errStoreDown
	}
	op, ok := f.ops[id]
	if !ok {
		return notFound("operation", id)
	}
	patch.Apply(&op)
	f.ops[id] = op
	return nil
}

func (f *fakeStore) DeleteOperation(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ops[id]; !ok {
		return notFound("operation", id)
	}
	f.deleteOperationLocked(id)
	return nil
}

func (f *fakeStore) deleteOperationLocked(id int64) {
	delete(f.ops, id)
	for rid, r := range f.receipts {
		if r.OperationID == id {
			delete(f.receipts, rid)
		}
	}
}

// --- receipts ---

func (f *fakeStore) ListReceipts(_ context.Context, filter domain.ReceiptFilter) ([]domain.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList {
		return nil, errStoreDown
	}
	var out []domain.Receipt
	for _, r := range f.receipts {
		if filter.OperationID == nil || r.OperationID == *filter.OperationID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) GetReceipt(_ context.Context, id int64) (*domain.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.receipts[id]
	if !ok {
		return nil, notFound("receipt", id)
	}
	return &r, nil
}

func (f *fakeStore) InsertReceipt(_ context.Context, r *domain.Receipt) (*domain.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsertReceipt {
		return nil, errStoreDown
	}
	if _, ok := f.ops[r.OperationID]; !ok {
		return nil, notFound("operation", r.OperationID)
	}
	saved := *r
	saved.ID = f.id()
	saved.CreatedAt = time.Now()
	f.receipts[saved.ID] = saved
	return &saved, nil
}

func (f *fakeStore) DeleteReceipt(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.receipts[id]; !ok {
		return notFound("receipt", id)
	}
	delete(f.receipts, id)
	return nil
}

// --- users ---

func (f *fakeStore) ListUsers(context.Context) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeStore) GetUser(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	return &u, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, notFound("user", email)
}

func (f *fakeStore) InsertUser(_ context.Context, u *domain.User) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	saved := *u
	saved.CreatedAt = time.Now()
	f.users[saved.ID] = saved
	return &saved, nil
}

func (f *fakeStore) DeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return notFound("user", id)
	}
	delete(f.users, id)
	return nil
}

// --- preferences ---

func (f *fakeStore) ListDismissedReminders(_ context.Context, userID string) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDismissals {
		return nil, errStoreDown
	}
	var ids []int64
	for id := range f.dismissed[userID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeStore) DismissReminder(_ context.Context, userID string, operationID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dismissed[userID] == nil {
		f.dismissed[userID] = map[int64]bool{}
	}
	f.dismissed[userID][operationID] = true
	return nil
}

func (f *fakeStore) RestoreReminder(_ context.Context, userID string, operationID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.dismissed[userID], operationID)
	return nil
}

// counts returns how many operations and receipts the store holds.
func (f *fakeStore) counts() (ops, receipts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ops), len(f.receipts)
}
