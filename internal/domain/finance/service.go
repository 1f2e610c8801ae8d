package finance

import (
	"context"
	"time"

	"atelier/internal/core/apperror"
	"atelier/internal/core/id"
	"atelier/internal/core/tx"
	"atelier/internal/core/types"
	"atelier/pkg/logger"
)

// Repository defines data access for accounts and cash flow entries.
type Repository interface {
	CreateAccount(ctx context.Context, a *Account) error
	GetAccountByID(ctx context.Context, accountID id.ID) (*Account, error)
	// GetAccountForUpdate locks the account row for a payment.
	GetAccountForUpdate(ctx context.Context, accountID id.ID) (*Account, error)
	UpdateAccount(ctx context.Context, a *Account, expectedVersion int) error
	ListAccounts(ctx context.Context, filter AccountFilter) ([]*Account, int64, error)

	CreateCashFlowEntry(ctx context.Context, e *CashFlowEntry) error
	GetCashFlowEntryByID(ctx context.Context, entryID id.ID) (*CashFlowEntry, error)
	UpdateCashFlowEntry(ctx context.Context, e *CashFlowEntry) error
	DeleteCashFlowEntry(ctx context.Context, entryID id.ID) error
	ListCashFlowEntries(ctx context.Context, filter CashFlowFilter) ([]*CashFlowEntry, int64, error)
}

// AccountFilter narrows account queries.
type AccountFilter struct {
	Kind     *AccountKind
	PartyID  *id.ID
	Status   *string
	DueFrom  *time.Time
	DueTo    *time.Time
	Category *string
	Limit    int
	Offset   int
}

// CashFlowFilter narrows cash flow queries.
type CashFlowFilter struct {
	Type     *CashFlowType
	Category *string
	UnitID   *id.ID
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}

// Service provides business logic for finance.
type Service struct {
	repo      Repository
	txManager tx.Manager

	// now is swappable for tests
	now func() time.Time
}

// NewService creates a new finance service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateAccount validates and persists a new account.
func (s *Service) CreateAccount(ctx context.Context, a *Account) error {
	if err := a.Validate(ctx); err != nil {
		return err
	}
	a.DeriveStatus(s.now())
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.CreateAccount(ctx, a)
	})
}

// CreateReceivableFromOrder opens a receivable for a confirmed sales order.
func (s *Service) CreateReceivableFromOrder(ctx context.Context, orderID, customerID id.ID, description string, amount types.Money, dueDate time.Time) error {
	a := NewAccount(KindReceivable, description, customerID, amount, dueDate)
	a.OrderID = &orderID
	a.Category = "sales"
	if err := a.Validate(ctx); err != nil {
		return err
	}
	// Caller already holds the transaction.
	return s.repo.CreateAccount(ctx, a)
}

// CreateRefundExpense records the cash leaving for a processed return.
// Caller already holds the transaction.
func (s *Service) CreateRefundExpense(ctx context.Context, description string, amount types.Money, unitID *id.ID) error {
	e := NewCashFlowEntry(FlowExpense, "returns", amount, s.now())
	e.Description = description
	e.UnitID = unitID
	if err := e.Validate(ctx); err != nil {
		return err
	}
	return s.repo.CreateCashFlowEntry(ctx, e)
}

// CreateCustomerCredit opens a payable toward the customer for a refund
// settled as store credit. Caller already holds the transaction.
func (s *Service) CreateCustomerCredit(ctx context.Context, returnID, customerID id.ID, description string, amount types.Money) error {
	a := NewAccount(KindPayable, description, customerID, amount, s.now())
	a.OrderID = &returnID
	a.Category = "returns"
	if err := a.Validate(ctx); err != nil {
		return err
	}
	return s.repo.CreateAccount(ctx, a)
}

// GetAccount retrieves an account, upgrading to OVERDUE on read when due.
func (s *Service) GetAccount(ctx context.Context, accountID id.ID) (*Account, error) {
	a, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("account", accountID.String())
		}
		return nil, err
	}
	if !a.IsTerminal() {
		a.DeriveStatus(s.now())
	}
	return a, nil
}

// RegisterPayment records a payment (payable) or receipt (receivable)
// against an account. Amount must be positive, may not exceed the
// outstanding remainder, and the paid amount never decreases.
func (s *Service) RegisterPayment(ctx context.Context, accountID id.ID, amount types.Money) (*Account, error) {
	if !amount.IsPositive() {
		return nil, apperror.NewValidation("payment amount must be positive").
			WithDetail("field", "amount")
	}

	var account *Account
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetAccountForUpdate(ctx, accountID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("account", accountID.String())
			}
			return err
		}

		if a.IsTerminal() {
			return apperror.NewInvalidTransition("account", a.Status, "pay")
		}
		if amount.GreaterThan(a.Outstanding()) {
			return apperror.NewValidation("payment exceeds outstanding amount").
				WithDetail("outstanding", a.Outstanding().String())
		}

		// The save must match the row at the version it was locked at;
		// Touch only advances the in-memory copy.
		expected := a.Version
		a.PaidAmount = a.PaidAmount.Add(amount)
		a.DeriveStatus(s.now())
		a.Touch()

		if err := s.repo.UpdateAccount(ctx, a, expected); err != nil {
			return err
		}

		// Realized payment lands in the cash flow.
		flowType := FlowExpense
		if a.Kind == KindReceivable {
			flowType = FlowIncome
		}
		category := a.Category
		if category == "" {
			category = "accounts"
		}
		entry := NewCashFlowEntry(flowType, category, amount, s.now())
		entry.Description = a.Description
		if err := s.repo.CreateCashFlowEntry(ctx, entry); err != nil {
			return err
		}

		account = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "payment registered",
		"account_id", account.ID,
		"kind", account.Kind,
		"status", account.Status,
	)

	return account, nil
}

// CancelAccount voids an account with no payments applied.
func (s *Service) CancelAccount(ctx context.Context, accountID id.ID) (*Account, error) {
	var account *Account
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetAccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if a.IsTerminal() {
			return apperror.NewInvalidTransition("account", a.Status, "cancel")
		}
		if a.PaidAmount.IsPositive() {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule,
				"cannot cancel an account with payments applied")
		}
		expected := a.Version
		a.Status = StatusCancelled
		a.Touch()
		account = a
		return s.repo.UpdateAccount(ctx, a, expected)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// ListAccounts returns accounts matching the filter, with the overdue
// upgrade applied on read.
func (s *Service) ListAccounts(ctx context.Context, filter AccountFilter) ([]*Account, int64, error) {
	accounts, total, err := s.repo.ListAccounts(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	for _, a := range accounts {
		if !a.IsTerminal() {
			a.DeriveStatus(now)
		}
	}
	return accounts, total, nil
}

// --- Cash flow entries ---

// CreateCashFlowEntry validates and persists a manual entry.
func (s *Service) CreateCashFlowEntry(ctx context.Context, e *CashFlowEntry) error {
	if err := e.Validate(ctx); err != nil {
		return err
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.CreateCashFlowEntry(ctx, e)
	})
}

// UpdateCashFlowEntry modifies an entry.
func (s *Service) UpdateCashFlowEntry(ctx context.Context, e *CashFlowEntry) error {
	if err := e.Validate(ctx); err != nil {
		return err
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.UpdateCashFlowEntry(ctx, e)
	})
}

// DeleteCashFlowEntry removes an entry.
func (s *Service) DeleteCashFlowEntry(ctx context.Context, entryID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.DeleteCashFlowEntry(ctx, entryID)
	})
}

// GetCashFlowEntry retrieves an entry.
func (s *Service) GetCashFlowEntry(ctx context.Context, entryID id.ID) (*CashFlowEntry, error) {
	e, err := s.repo.GetCashFlowEntryByID(ctx, entryID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("cash flow entry", entryID.String())
		}
		return nil, err
	}
	return e, nil
}

// ListCashFlowEntries returns entries matching the filter.
func (s *Service) ListCashFlowEntries(ctx context.Context, filter CashFlowFilter) ([]*CashFlowEntry, int64, error) {
	return s.repo.ListCashFlowEntries(ctx, filter)
}
