// Package rows is the single mapping between domain entities and the store's
// snake_case columns. Both the PostgREST adapter (json tags) and the SQL
// adapter (gorm tags) read and write through these types.
package rows

import (
	"time"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
)

// Table names.
const (
	TableClients    = "clients"
	TableOperations = "operations"
	TableReceipts   = "receipts"
	TableUsers      = "users"
	TableDismissals = "reminder_dismissals"
)

// ============================================================
// Clients
// ============================================================

type Client struct {
	ID              int64        `json:"id" gorm:"primaryKey;autoIncrement"`
	Name            string       `json:"name" gorm:"not null"`
	Document        string       `json:"document"`
	Email           string       `json:"email"`
	Phone           string       `json:"phone"`
	Address         string       `json:"address"`
	LimiteCredito   domain.Money `json:"limite_credito" gorm:"type:numeric(14,2);not null;default:0"`
	TaxaJurosMensal domain.Rate  `json:"taxa_juros_mensal" gorm:"type:numeric(8,4);not null;default:0"`
	Notes           string       `json:"notes"`
	CreatedAt       time.Time    `json:"created_at" gorm:"autoCreateTime"`
}

func (Client) TableName() string { return TableClients }

func (r Client) ToDomain() domain.Client {
	return domain.Client{
		ID:              r.ID,
		Name:            r.Name,
		Document:        r.Document,
		Email:           r.Email,
		Phone:           r.Phone,
		Address:         r.Address,
		LimiteCredito:   r.LimiteCredito,
		TaxaJurosMensal: r.TaxaJurosMensal,
		Notes:           r.Notes,
		CreatedAt:       r.CreatedAt,
	}
}

func ClientFromDomain(c domain.Client) Client {
	return Client{
		ID:              c.ID,
		Name:            c.Name,
		Document:        c.Document,
		Email:           c.Email,
		Phone:           c.Phone,
		Address:         c.Address,
		LimiteCredito:   c.LimiteCredito,
		TaxaJurosMensal: c.TaxaJurosMensal,
		Notes:           c.Notes,
	}
}

// ClientInsert is the column map for a new client; the store assigns id and created_at.
func ClientInsert(c domain.Client) map[string]any {
	return map[string]any{
		"name":              c.Name,
		"document":          c.Document,
		"email":             c.Email,
		"phone":             c.Phone,
		"address":           c.Address,
		"limite_credito":    c.LimiteCredito,
		"taxa_juros_mensal": c.TaxaJurosMensal,
		"notes":             c.Notes,
	}
}

// ClientPatchColumns lists only the columns the patch sets.
func ClientPatchColumns(p domain.ClientPatch) map[string]any {
	cols := map[string]any{}
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Document != nil {
		cols["document"] = *p.Document
	}
	if p.Email != nil {
		cols["email"] = *p.Email
	}
	if p.Phone != nil {
		cols["phone"] = *p.Phone
	}
	if p.Address != nil {
		cols["address"] = *p.Address
	}
	if p.LimiteCredito != nil {
		cols["limite_credito"] = *p.LimiteCredito
	}
	if p.TaxaJurosMensal != nil {
		cols["taxa_juros_mensal"] = *p.TaxaJurosMensal
	}
	if p.Notes != nil {
		cols["notes"] = *p.Notes
	}
	return cols
}

// ============================================================
// Operations
// ============================================================

// Operation keeps client_id nullable; an unassigned operation has no client.
type Operation struct {
	ID           int64        `json:"id" gorm:"primaryKey;autoIncrement"`
	ClientID     *int64       `json:"client_id" gorm:"index"`
	Type         string       `json:"type" gorm:"not null"`
	TitleNumber  string       `json:"title_number"`
	NominalValue domain.Money `json:"nominal_value" gorm:"type:numeric(14,2);not null"`
	NetValue     domain.Money `json:"net_value" gorm:"type:numeric(14,2);not null"`
	IssueDate    domain.Date  `json:"issue_date" gorm:"type:date"`
	DueDate      domain.Date  `json:"due_date" gorm:"type:date;not null;index"`
	Taxa         domain.Rate  `json:"taxa" gorm:"type:numeric(8,4);not null;default:0"`
	Status       string       `json:"status" gorm:"not null;index"`
	Notes        string       `json:"notes"`
	CreatedAt    time.Time    `json:"created_at" gorm:"autoCreateTime"`
}

func (Operation) TableName() string { return TableOperations }

func (r Operation) ToDomain() domain.Operation {
	op := domain.Operation{
		ID:           r.ID,
		Type:         domain.OperationType(r.Type),
		TitleNumber:  r.TitleNumber,
		NominalValue: r.NominalValue,
		NetValue:     r.NetValue,
		IssueDate:    r.IssueDate,
		DueDate:      r.DueDate,
		Taxa:         r.Taxa,
		Status:       domain.Status(r.Status),
		Notes:        r.Notes,
		CreatedAt:    r.CreatedAt,
	}
	if r.ClientID != nil {
		op.ClientID = *r.ClientID
	}
	return op
}

func OperationFromDomain(op domain.Operation) Operation {
	return Operation{
		ID:           op.ID,
		ClientID:     nullableID(op.ClientID),
		Type:         string(op.Type),
		TitleNumber:  op.TitleNumber,
		NominalValue: op.NominalValue,
		NetValue:     op.NetValue,
		IssueDate:    op.IssueDate,
		DueDate:      op.DueDate,
		Taxa:         op.Taxa,
		Status:       string(op.Status),
		Notes:        op.Notes,
	}
}

func OperationInsert(op domain.Operation) map[string]any {
	return map[string]any{
		"client_id":     nullableID(op.ClientID),
		"type":          string(op.Type),
		"title_number":  op.TitleNumber,
		"nominal_value": op.NominalValue,
		"net_value":     op.NetValue,
		"issue_date":    op.IssueDate,
		"due_date":      op.DueDate,
		"taxa":          op.Taxa,
		"status":        string(op.Status),
		"notes":         op.Notes,
	}
}

func OperationPatchColumns(p domain.OperationPatch) map[string]any {
	cols := map[string]any{}
	if p.DueDate != nil {
		cols["due_date"] = *p.DueDate
	}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	if p.Notes != nil {
		cols["notes"] = *p.Notes
	}
	return cols
}

// ============================================================
// Receipts
// ============================================================

type Receipt struct {
	ID                 int64        `json:"id" gorm:"primaryKey;autoIncrement"`
	OperationID        int64        `json:"operation_id" gorm:"not null;index"`
	DataRecebimento    domain.Date  `json:"data_recebimento" gorm:"type:date;not null"`
	ValorTotalRecebido domain.Money `json:"valor_total_recebido" gorm:"type:numeric(14,2);not null;default:0"`
	ValorPrincipalPago domain.Money `json:"valor_principal_pago" gorm:"type:numeric(14,2);not null;default:0"`
	ValorJurosPago     domain.Money `json:"valor_juros_pago" gorm:"type:numeric(14,2);not null;default:0"`
	FormaPagamento     string       `json:"forma_pagamento"`
	Notes              string       `json:"notes"`
	NewDueDate         *domain.Date `json:"new_due_date" gorm:"type:date"`
	CreatedAt          time.Time    `json:"created_at" gorm:"autoCreateTime"`
}

func (Receipt) TableName() string { return TableReceipts }

func (r Receipt) ToDomain() domain.Receipt {
	rec := domain.Receipt{
		ID:                 r.ID,
		OperationID:        r.OperationID,
		DataRecebimento:    r.DataRecebimento,
		ValorTotalRecebido: r.ValorTotalRecebido,
		ValorPrincipalPago: r.ValorPrincipalPago,
		ValorJurosPago:     r.ValorJurosPago,
		FormaPagamento:     r.FormaPagamento,
		Notes:              r.Notes,
		CreatedAt:          r.CreatedAt,
	}
	if r.NewDueDate != nil && !r.NewDueDate.IsZero() {
		d := *r.NewDueDate
		rec.NewDueDate = &d
	}
	return rec
}

func ReceiptFromDomain(r domain.Receipt) Receipt {
	return Receipt{
		ID:                 r.ID,
		OperationID:        r.OperationID,
		DataRecebimento:    r.DataRecebimento,
		ValorTotalRecebido: r.ValorTotalRecebido,
		ValorPrincipalPago: r.ValorPrincipalPago,
		ValorJurosPago:     r.ValorJurosPago,
		FormaPagamento:     r.FormaPagamento,
		Notes:              r.Notes,
		NewDueDate:         r.NewDueDate,
	}
}

func ReceiptInsert(r domain.Receipt) map[string]any {
	cols := map[string]any{
		"operation_id":         r.OperationID,
		"data_recebimento":     r.DataRecebimento,
		"valor_total_recebido": r.ValorTotalRecebido,
		"valor_principal_pago": r.ValorPrincipalPago,
		"valor_juros_pago":     r.ValorJurosPago,
		"forma_pagamento":      r.FormaPagamento,
		"notes":                r.Notes,
		"new_due_date":         nil,
	}
	if r.IsExtension() {
		cols["new_due_date"] = *r.NewDueDate
	}
	return cols
}

// ============================================================
// Users & preferences
// ============================================================

type User struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"not null"`
	Email        string    `json:"email" gorm:"not null;uniqueIndex"`
	PasswordHash string    `json:"password_hash" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (User) TableName() string { return TableUsers }

func (r User) ToDomain() domain.User {
	return domain.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
	}
}

func UserFromDomain(u domain.User) User {
	return User{ID: u.ID, Name: u.Name, Email: u.Email, PasswordHash: u.PasswordHash}
}

func UserInsert(u domain.User) map[string]any {
	return map[string]any{
		"id":            u.ID,
		"name":          u.Name,
		"email":         u.Email,
		"password_hash": u.PasswordHash,
	}
}

// Dismissal is one hidden reminder of one user.
type Dismissal struct {
	UserID      string    `json:"user_id" gorm:"primaryKey"`
	OperationID int64     `json:"operation_id" gorm:"primaryKey;autoIncrement:false"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (Dismissal) TableName() string { return TableDismissals }

// All lists every row type, in dependency order, for schema migration.
func All() []any {
	return []any{&Client{}, &Operation{}, &Receipt{}, &User{}, &Dismissal{}}
}

func nullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
