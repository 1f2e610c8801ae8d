package returns

import (
	"context"
	"fmt"
	"strings"
	"time"

	"atelier/internal/core/apperror"
	appctx "atelier/internal/core/context"
	"atelier/internal/core/id"
	"atelier/internal/core/tx"
	"atelier/internal/core/types"
	"atelier/internal/domain/ledger"
	"atelier/pkg/logger"
	"atelier/pkg/numerator"
)

// Repository defines data access for returns.
type Repository interface {
	Create(ctx context.Context, r *Return) error
	GetByID(ctx context.Context, returnID id.ID) (*Return, error)
	Update(ctx context.Context, r *Return, expectedVersion int) error
	List(ctx context.Context, filter ListFilter) ([]*Return, int64, error)
}

// ListFilter narrows return queries.
type ListFilter struct {
	CustomerID *id.ID
	Status     *string
	Type       *ReturnType
	FromDate   *time.Time
	ToDate     *time.Time
	Limit      int
	Offset     int
}

// StockRecorder is the ledger surface used to reinstate stock.
type StockRecorder interface {
	RecordMovement(ctx context.Context, input ledger.RecordMovementInput) (*ledger.Movement, error)
}

// RefundPoster is the finance surface used to settle refunds. Cash refunds
// become expense cash flow entries; store credit opens a payable toward
// the customer.
type RefundPoster interface {
	CreateRefundExpense(ctx context.Context, description string, amount types.Money, unitID *id.ID) error
	CreateCustomerCredit(ctx context.Context, returnID, customerID id.ID, description string, amount types.Money) error
}

// RefundMethodStoreCredit settles the refund as credit toward the customer.
const RefundMethodStoreCredit = "STORE_CREDIT"

// Service provides business logic for returns.
type Service struct {
	repo      Repository
	txManager tx.Manager
	numerator *numerator.Service
	stock     StockRecorder
	refunds   RefundPoster
}

// NewService creates a new returns service.
func NewService(repo Repository, txManager tx.Manager, num *numerator.Service, stock StockRecorder, refunds RefundPoster) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		numerator: num,
		stock:     stock,
		refunds:   refunds,
	}
}

// Create validates and persists a pending return.
func (s *Service) Create(ctx context.Context, r *Return) error {
	if err := r.Validate(ctx); err != nil {
		return err
	}

	if r.Number == "" {
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("DV"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		r.Number = number
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, r)
	})
}

// GetByID retrieves a return with its items.
func (s *Service) GetByID(ctx context.Context, returnID id.ID) (*Return, error) {
	r, err := s.repo.GetByID(ctx, returnID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("return", returnID.String())
		}
		return nil, err
	}
	return r, nil
}

// Approve accepts a pending return.
func (s *Service) Approve(ctx context.Context, returnID id.ID) (*Return, error) {
	return s.review(ctx, returnID, StatusApproved, "approve")
}

// Reject declines a pending return.
func (s *Service) Reject(ctx context.Context, returnID id.ID) (*Return, error) {
	return s.review(ctx, returnID, StatusRejected, "reject")
}

func (s *Service) review(ctx context.Context, returnID id.ID, status, verb string) (*Return, error) {
	r, err := s.GetByID(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if err := r.GuardStatus("return", verb, StatusPending); err != nil {
		return nil, err
	}

	expected := r.Version
	r.ReviewedBy = appctx.GetUserID(ctx)
	r.SetStatus(status)

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, r, expected)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ProcessInput describes how an approved return is settled.
type ProcessInput struct {
	ReturnToStock bool
	RefundMethod  string
	RefundAmount  *types.Money
}

// ProcessResult reports what happened to each line.
type ProcessResult struct {
	Return *Return `json:"return"`

	// Reinstated lists item IDs put back into sellable stock
	Reinstated []id.ID `json:"reinstated"`

	// Skipped lists item IDs excluded from reinstatement because of their
	// condition (damaged or defective goods are never silently restocked)
	Skipped []id.ID `json:"skipped"`
}

// Process settles an approved return. When returnToStock is set, each line in
// sellable condition produces one IN movement; damaged and defective lines
// are skipped and reported. The refund is posted to finance in the same
// transaction: an expense cash flow entry for cash refunds, a payable toward
// the customer for store credit.
func (s *Service) Process(ctx context.Context, returnID id.ID, input ProcessInput) (*ProcessResult, error) {
	r, err := s.GetByID(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if err := r.GuardStatus("return", "process", StatusApproved); err != nil {
		return nil, err
	}

	if input.RefundMethod != "" {
		method := input.RefundMethod
		r.RefundMethod = &method
	}
	if input.RefundAmount != nil {
		if input.RefundAmount.IsNegative() {
			return nil, apperror.NewValidation("refund amount cannot be negative").
				WithDetail("field", "refundAmount")
		}
		r.RefundAmount = input.RefundAmount
	} else {
		total := r.TotalValue()
		r.RefundAmount = &total
	}

	result := &ProcessResult{Return: r}
	expected := r.Version

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if input.ReturnToStock {
			for _, item := range r.Items {
				if !item.Condition.Sellable() {
					result.Skipped = append(result.Skipped, item.ID)
					continue
				}

				_, err := s.stock.RecordMovement(ctx, ledger.RecordMovementInput{
					ProductID:  item.ProductID,
					VariantID:  item.VariantID,
					UnitID:     r.UnitID,
					Type:       ledger.MovementIn,
					Reason:     ledger.ReasonReturn,
					Quantity:   item.Quantity,
					DocumentID: &r.ID,
				})
				if err != nil {
					return err
				}
				result.Reinstated = append(result.Reinstated, item.ID)
			}
		}

		if r.RefundAmount.IsPositive() {
			description := fmt.Sprintf("Refund for return %s", r.Number)
			if r.RefundMethod != nil && strings.EqualFold(*r.RefundMethod, RefundMethodStoreCredit) {
				if err := s.refunds.CreateCustomerCredit(ctx, r.ID, r.CustomerID, description, *r.RefundAmount); err != nil {
					return err
				}
			} else {
				if err := s.refunds.CreateRefundExpense(ctx, description, *r.RefundAmount, r.UnitID); err != nil {
					return err
				}
			}
		}

		r.SetStatus(StatusProcessed)
		return s.repo.Update(ctx, r, expected)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "return processed",
		"return_id", r.ID,
		"number", r.Number,
		"reinstated", len(result.Reinstated),
		"skipped", len(result.Skipped),
	)

	return result, nil
}

// List returns return documents matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Return, int64, error) {
	return s.repo.List(ctx, filter)
}
