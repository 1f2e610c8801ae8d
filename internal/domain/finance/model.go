// Package finance provides accounts payable/receivable and cash flow entries.
package finance

import (
	"context"
	"time"

	"atelier/internal/core/apperror"
	"atelier/internal/core/entity"
	"atelier/internal/core/id"
	"atelier/internal/core/types"
)

// Account statuses. PAID doubles as RECEIVED on the receivable side.
const (
	StatusPending   = "PENDING"
	StatusPartial   = "PARTIAL"
	StatusPaid      = "PAID"
	StatusOverdue   = "OVERDUE"
	StatusCancelled = "CANCELLED"
)

// AccountKind distinguishes payables from receivables.
type AccountKind string

const (
	KindPayable    AccountKind = "PAYABLE"
	KindReceivable AccountKind = "RECEIVABLE"
)

// Account represents one payable or receivable obligation.
type Account struct {
	entity.BaseDocument

	Kind AccountKind `db:"kind" json:"kind"`

	Description string `db:"description" json:"description"`

	// PartyID references the supplier (payable) or customer (receivable)
	PartyID id.ID `db:"party_id" json:"partyId"`

	// OrderID links the account to the originating document, if any
	OrderID *id.ID `db:"order_id" json:"orderId,omitempty"`

	Category string `db:"category" json:"category,omitempty"`

	Amount     types.Money `db:"amount" json:"amount"`
	PaidAmount types.Money `db:"paid_amount" json:"paidAmount"`

	DueDate time.Time `db:"due_date" json:"dueDate"`

	Status string `db:"status" json:"status"`

	// PaidAt is set when the account reaches PAID
	PaidAt *time.Time `db:"paid_at" json:"paidAt,omitempty"`
}

// NewAccount creates a pending account.
func NewAccount(kind AccountKind, description string, partyID id.ID, amount types.Money, dueDate time.Time) *Account {
	return &Account{
		BaseDocument: entity.NewBaseDocument(),
		Kind:         kind,
		Description:  description,
		PartyID:      partyID,
		Amount:       amount,
		PaidAmount:   types.Zero(),
		DueDate:      dueDate,
		Status:       StatusPending,
	}
}

// Validate implements entity.Validatable.
func (a *Account) Validate(ctx context.Context) error {
	if a.Kind != KindPayable && a.Kind != KindReceivable {
		return apperror.NewValidation("invalid account kind").
			WithDetail("field", "kind")
	}
	if a.Description == "" {
		return apperror.NewValidation("description is required").
			WithDetail("field", "description")
	}
	if !a.Amount.IsPositive() {
		return apperror.NewValidation("amount must be positive").
			WithDetail("field", "amount")
	}
	if a.PaidAmount.IsNegative() {
		return apperror.NewValidation("paid amount cannot be negative").
			WithDetail("field", "paidAmount")
	}
	if a.DueDate.IsZero() {
		return apperror.NewValidation("due date is required").
			WithDetail("field", "dueDate")
	}
	return nil
}

// DeriveStatus recomputes status from the paid amount, preserving terminal
// states. now is used for the overdue upgrade.
func (a *Account) DeriveStatus(now time.Time) {
	if a.Status == StatusCancelled {
		return
	}

	switch {
	case a.PaidAmount.GreaterThanOrEqual(a.Amount):
		a.Status = StatusPaid
		if a.PaidAt == nil {
			t := now
			a.PaidAt = &t
		}
	case a.PaidAmount.IsPositive():
		a.Status = StatusPartial
	default:
		a.Status = StatusPending
	}

	if a.Status != StatusPaid && now.After(a.DueDate) {
		a.Status = StatusOverdue
	}
}

// IsTerminal reports whether no further payments apply.
func (a *Account) IsTerminal() bool {
	return a.Status == StatusPaid || a.Status == StatusCancelled
}

// Outstanding returns the unpaid remainder.
func (a *Account) Outstanding() types.Money {
	rest := a.Amount.Sub(a.PaidAmount)
	if rest.IsNegative() {
		return types.Zero()
	}
	return rest
}

// CashFlowType classifies a cash flow entry.
type CashFlowType string

const (
	FlowIncome  CashFlowType = "INCOME"
	FlowExpense CashFlowType = "EXPENSE"
)

// CashFlowEntry is one realized income or expense line.
type CashFlowEntry struct {
	entity.BaseDocument

	Type     CashFlowType `db:"type" json:"type"`
	Category string       `db:"category" json:"category"`

	Description string `db:"description" json:"description,omitempty"`

	Amount types.Money `db:"amount" json:"amount"`

	UnitID *id.ID `db:"unit_id" json:"unitId,omitempty"`

	// Date is the business date of the movement
	Date time.Time `db:"date" json:"date"`
}

// NewCashFlowEntry creates a cash flow entry.
func NewCashFlowEntry(flowType CashFlowType, category string, amount types.Money, date time.Time) *CashFlowEntry {
	return &CashFlowEntry{
		BaseDocument: entity.NewBaseDocument(),
		Type:         flowType,
		Category:     category,
		Amount:       amount,
		Date:         date,
	}
}

// Validate implements entity.Validatable.
func (e *CashFlowEntry) Validate(ctx context.Context) error {
	if e.Type != FlowIncome && e.Type != FlowExpense {
		return apperror.NewValidation("invalid cash flow type").
			WithDetail("field", "type")
	}
	if e.Category == "" {
		return apperror.NewValidation("category is required").
			WithDetail("field", "category")
	}
	if !e.Amount.IsPositive() {
		return apperror.NewValidation("amount must be positive").
			WithDetail("field", "amount")
	}
	if e.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}
	return nil
}
