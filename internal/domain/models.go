// Package domain defines the core business entities of the receivables
// portfolio: clients, discounted titles ("operações") and the receipts
// recorded against them. These types are independent of the store and use the
// camelCase names of the API; the snake_case store naming lives in infra/rows.
package domain

import "time"

// ============================================================
// Clients
// ============================================================

// Client is a business customer that discounts titles with us.
type Client struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Document        string    `json:"document,omitempty"` // CPF or CNPJ
	Email           string    `json:"email,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	Address         string    `json:"address,omitempty"`
	LimiteCredito   Money     `json:"limiteCredito"`
	TaxaJurosMensal Rate      `json:"taxaJurosMensal"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ClientDraft is the payload to create a client.
type ClientDraft struct {
	Name            string `json:"name"`
	Document        string `json:"document,omitempty"`
	Email           string `json:"email,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Address         string `json:"address,omitempty"`
	LimiteCredito   Money  `json:"limiteCredito"`
	TaxaJurosMensal Rate   `json:"taxaJurosMensal"`
	Notes           string `json:"notes,omitempty"`
}

// ClientPatch holds the fields of a client update; nil means unchanged.
type ClientPatch struct {
	Name            *string `json:"name,omitempty"`
	Document        *string `json:"document,omitempty"`
	Email           *string `json:"email,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	Address         *string `json:"address,omitempty"`
	LimiteCredito   *Money  `json:"limiteCredito,omitempty"`
	TaxaJurosMensal *Rate   `json:"taxaJurosMensal,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

// Apply copies the set fields of p onto c.
func (p ClientPatch) Apply(c *Client) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Document != nil {
		c.Document = *p.Document
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.Address != nil {
		c.Address = *p.Address
	}
	if p.LimiteCredito != nil {
		c.LimiteCredito = *p.LimiteCredito
	}
	if p.TaxaJurosMensal != nil {
		c.TaxaJurosMensal = *p.TaxaJurosMensal
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
}

// ============================================================
// Operations
// ============================================================

// OperationType is the kind of discounted title.
type OperationType string

const (
	OperationDuplicata    OperationType = "duplicata"
	OperationCheque       OperationType = "cheque"
	OperationParcelamento OperationType = "parcelamento"
)

// Valid reports whether t is one of the known title kinds.
func (t OperationType) Valid() bool {
	switch t {
	case OperationDuplicata, OperationCheque, OperationParcelamento:
		return true
	}
	return false
}

// Status is the lifecycle state of an operation.
type Status string

const (
	StatusAberto   Status = "aberto"
	StatusPago     Status = "pago"
	StatusAtrasado Status = "atrasado"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusAberto, StatusPago, StatusAtrasado:
		return true
	}
	return false
}

// Active reports whether the operation still carries receivable balance.
func (s Status) Active() bool { return s == StatusAberto || s == StatusAtrasado }

// Operation is one discounted title. NetValue is fixed at creation; balances
// are always derived from receipts.
type Operation struct {
	ID           int64         `json:"id"`
	ClientID     int64         `json:"clientId"` // 0 = unassigned
	Type         OperationType `json:"type"`
	TitleNumber  string        `json:"titleNumber"`
	NominalValue Money         `json:"nominalValue"`
	NetValue     Money         `json:"netValue"`
	IssueDate    Date          `json:"issueDate"`
	DueDate      Date          `json:"dueDate"`
	Taxa         Rate          `json:"taxa"`
	Status       Status        `json:"status"`
	Notes        string        `json:"notes,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// OperationRequest is what the user submits; it may expand into several
// operations when Installments >= 2.
type OperationRequest struct {
	ClientID     int64         `json:"clientId"`
	Type         OperationType `json:"type"`
	TitleNumber  string        `json:"titleNumber"`
	NominalValue Money         `json:"nominalValue"`
	IssueDate    Date          `json:"issueDate"`
	DueDate      Date          `json:"dueDate"`
	Taxa         *Rate         `json:"taxa,omitempty"` // nil = client's default rate
	Installments int           `json:"installments,omitempty"`
	Notes        string        `json:"notes,omitempty"`
}

// OperationPatch is a partial update of an operation.
type OperationPatch struct {
	DueDate *Date   `json:"dueDate,omitempty"`
	Status  *Status `json:"status,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

// Apply copies the set fields of p onto op.
func (p OperationPatch) Apply(op *Operation) {
	if p.DueDate != nil {
		op.DueDate = *p.DueDate
	}
	if p.Status != nil {
		op.Status = *p.Status
	}
	if p.Notes != nil {
		op.Notes = *p.Notes
	}
}

// OperationFilter restricts a list to equality matches; zero values mean "any".
type OperationFilter struct {
	ClientID *int64
	Status   Status
}

// Match reports whether op satisfies the filter.
func (f OperationFilter) Match(op Operation) bool {
	if f.ClientID != nil && op.ClientID != *f.ClientID {
		return false
	}
	if f.Status != "" && op.Status != f.Status {
		return false
	}
	return true
}

// OperationBatch is the result of createOperation: one operation, or the
// installments of an expanded request in due-date order.
type OperationBatch struct {
	Operations []Operation `json:"operations"`
	Expanded   bool        `json:"expanded"`
}

// OperationView is an operation as presented: effective status and derived
// balances, recomputed on every read.
type OperationView struct {
	Operation
	StoredStatus Status   `json:"storedStatus"`
	Balances     Balances `json:"balances"`
	ClientName   string   `json:"clientName"`
}

// Balances are the derived remainders of an operation given its receipts.
type Balances struct {
	OriginalInterest   Money `json:"originalInterest"`
	PaidPrincipal      Money `json:"paidPrincipal"`
	PaidInterest       Money `json:"paidInterest"`
	RemainingPrincipal Money `json:"remainingPrincipal"`
	RemainingInterest  Money `json:"remainingInterest"`
	CurrentDebt        Money `json:"currentDebt"`
}

// ============================================================
// Receipts
// ============================================================

// Receipt is one payment, or due-date extension, against an operation.
type Receipt struct {
	ID                 int64     `json:"id"`
	OperationID        int64     `json:"operationId"`
	DataRecebimento    Date      `json:"dataRecebimento"`
	ValorTotalRecebido Money     `json:"valorTotalRecebido"`
	ValorPrincipalPago Money     `json:"valorPrincipalPago"`
	ValorJurosPago     Money     `json:"valorJurosPago"`
	FormaPagamento     string    `json:"formaPagamento,omitempty"`
	Notes              string    `json:"notes,omitempty"`
	NewDueDate         *Date     `json:"newDueDate,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

// IsExtension reports whether the receipt extends the due date instead of settling.
func (r Receipt) IsExtension() bool { return r.NewDueDate != nil && !r.NewDueDate.IsZero() }

// ReceiptDraft is the payload of createReceipt.
type ReceiptDraft struct {
	OperationID        int64  `json:"operationId"`
	DataRecebimento    Date   `json:"dataRecebimento"`
	ValorTotalRecebido Money  `json:"valorTotalRecebido"`
	ValorPrincipalPago Money  `json:"valorPrincipalPago"`
	ValorJurosPago     Money  `json:"valorJurosPago"`
	FormaPagamento     string `json:"formaPagamento,omitempty"`
	Notes              string `json:"notes,omitempty"`
	NewDueDate         *Date  `json:"newDueDate,omitempty"`
}

// ReceiptFilter restricts a receipt list; nil OperationID means all.
type ReceiptFilter struct {
	OperationID *int64
}

// ============================================================
// Users & preferences
// ============================================================

// User is a back-office operator.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewUserRequest is the payload to create a user.
type NewUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body for POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
	UserID      string `json:"userId"`
	UserName    string `json:"userName"`
}

// ReminderDismissal records that a user hid the due-date reminder of an operation.
type ReminderDismissal struct {
	UserID      string    `json:"userId"`
	OperationID int64     `json:"operationId"`
	CreatedAt   time.Time `json:"createdAt"`
}
