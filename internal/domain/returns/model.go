// Package returns provides the Return document: customer returns and
// exchanges with an approval workflow and optional stock reinstatement.
package returns

import (
	"context"

	"atelier/internal/core/apperror"
	"atelier/internal/core/entity"
	"atelier/internal/core/id"
	"atelier/internal/core/types"
)

// Return statuses.
const (
	StatusPending   = "PENDING"
	StatusApproved  = "APPROVED"
	StatusRejected  = "REJECTED"
	StatusProcessed = "PROCESSED"
)

// ReturnType distinguishes refunds from exchanges.
type ReturnType string

const (
	TypeReturn   ReturnType = "RETURN"
	TypeExchange ReturnType = "EXCHANGE"
)

// ItemCondition describes the state of a returned item.
type ItemCondition string

const (
	ConditionNew       ItemCondition = "NEW"
	ConditionUsed      ItemCondition = "USED"
	ConditionDamaged   ItemCondition = "DAMAGED"
	ConditionDefective ItemCondition = "DEFECTIVE"
)

// Sellable reports whether the condition allows reinstatement to stock.
func (c ItemCondition) Sellable() bool {
	return c == ConditionNew || c == ConditionUsed
}

// Return represents a customer return or exchange request.
type Return struct {
	entity.Document

	Type       ReturnType `db:"type" json:"type"`
	CustomerID id.ID      `db:"customer_id" json:"customerId"`

	// OrderID links the return to the original sales order, if known
	OrderID *id.ID `db:"order_id" json:"orderId,omitempty"`

	// UnitID is where reinstated goods land
	UnitID *id.ID `db:"unit_id" json:"unitId,omitempty"`

	Reason string `db:"reason" json:"reason"`

	// RefundMethod and RefundAmount are set at processing time
	RefundMethod *string      `db:"refund_method" json:"refundMethod,omitempty"`
	RefundAmount *types.Money `db:"refund_amount" json:"refundAmount,omitempty"`

	// ReviewedBy records who approved or rejected the request
	ReviewedBy string `db:"reviewed_by" json:"reviewedBy,omitempty"`

	Items []Item `db:"-" json:"items"`
}

// Item is one returned line.
type Item struct {
	ID        id.ID  `db:"id" json:"id"`
	ReturnID  id.ID  `db:"return_id" json:"returnId"`
	ProductID id.ID  `db:"product_id" json:"productId"`
	VariantID *id.ID `db:"variant_id" json:"variantId,omitempty"`

	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice types.Money    `db:"unit_price" json:"unitPrice"`

	Condition ItemCondition `db:"condition" json:"condition"`
}

// NewReturn creates a pending return request.
func NewReturn(returnType ReturnType, customerID id.ID, reason string) *Return {
	return &Return{
		Document:   entity.NewDocument(StatusPending),
		Type:       returnType,
		CustomerID: customerID,
		Reason:     reason,
	}
}

// Validate implements entity.Validatable.
func (r *Return) Validate(ctx context.Context) error {
	if err := r.Document.Validate(ctx); err != nil {
		return err
	}
	if r.Type != TypeReturn && r.Type != TypeExchange {
		return apperror.NewValidation("invalid return type").
			WithDetail("field", "type").
			WithDetail("value", string(r.Type))
	}
	if id.IsNil(r.CustomerID) {
		return apperror.NewValidation("customer is required").
			WithDetail("field", "customerId")
	}
	if r.Reason == "" {
		return apperror.NewValidation("reason is required").
			WithDetail("field", "reason")
	}
	if len(r.Items) == 0 {
		return apperror.NewValidation("return requires at least one item").
			WithDetail("field", "items")
	}
	for i, item := range r.Items {
		if id.IsNil(item.ProductID) {
			return apperror.NewValidation("item product is required").
				WithDetail("line", i)
		}
		if !item.Quantity.IsPositive() {
			return apperror.NewValidation("item quantity must be positive").
				WithDetail("line", i)
		}
		switch item.Condition {
		case ConditionNew, ConditionUsed, ConditionDamaged, ConditionDefective:
		default:
			return apperror.NewValidation("invalid item condition").
				WithDetail("line", i).
				WithDetail("value", string(item.Condition))
		}
	}
	return nil
}

// TotalValue sums quantity * unitPrice across lines.
func (r *Return) TotalValue() types.Money {
	total := types.Zero()
	for _, item := range r.Items {
		total = total.Add(item.UnitPrice.Mul(item.Quantity.Decimal()))
	}
	return total
}
