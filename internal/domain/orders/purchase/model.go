// Package purchase provides the PurchaseOrder document: ordering goods from
// suppliers and receiving them into stock.
package purchase

import (
	"context"

	"atelier/internal/core/apperror"
	"atelier/internal/core/entity"
	"atelier/internal/core/id"
	"atelier/internal/core/types"
)

// Order statuses.
const (
	StatusDraft     = "DRAFT"
	StatusPending   = "PENDING"
	StatusApproved  = "APPROVED"
	StatusPartial   = "PARTIAL"
	StatusReceived  = "RECEIVED"
	StatusCancelled = "CANCELLED"
)

// Order represents a purchase order to a supplier.
type Order struct {
	entity.Document

	SupplierID id.ID `db:"supplier_id" json:"supplierId"`

	// UnitID is the destination store unit for received goods
	UnitID *id.ID `db:"unit_id" json:"unitId,omitempty"`

	// ExpectedAt is the agreed delivery date
	ExpectedAt *string `db:"expected_at" json:"expectedAt,omitempty"`

	Discount types.Money `db:"discount" json:"discount"`
	Shipping types.Money `db:"shipping" json:"shipping"`

	Subtotal types.Money `db:"subtotal" json:"subtotal"`
	Total    types.Money `db:"total" json:"total"`

	Items []Item `db:"-" json:"items"`
}

// Item is one purchase order line.
type Item struct {
	ID        id.ID  `db:"id" json:"id"`
	OrderID   id.ID  `db:"order_id" json:"orderId"`
	ProductID id.ID  `db:"product_id" json:"productId"`
	VariantID *id.ID `db:"variant_id" json:"variantId,omitempty"`

	Quantity types.Quantity `db:"quantity" json:"quantity"`
	UnitCost types.Money    `db:"unit_cost" json:"unitCost"`
	Discount types.Money    `db:"discount" json:"discount"`

	// ReceivedQuantity accumulates across partial receipts
	ReceivedQuantity types.Quantity `db:"received_quantity" json:"receivedQuantity"`

	TotalCost types.Money `db:"total_cost" json:"totalCost"`
}

// NewOrder creates a draft purchase order.
func NewOrder(supplierID id.ID) *Order {
	return &Order{
		Document:   entity.NewDocument(StatusDraft),
		SupplierID: supplierID,
		Discount:   types.Zero(),
		Shipping:   types.Zero(),
		Subtotal:   types.Zero(),
		Total:      types.Zero(),
	}
}

// Validate implements entity.Validatable.
func (o *Order) Validate(ctx context.Context) error {
	if err := o.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(o.SupplierID) {
		return apperror.NewValidation("supplier is required").
			WithDetail("field", "supplierId")
	}
	if len(o.Items) == 0 {
		return apperror.NewValidation("order requires at least one item").
			WithDetail("field", "items")
	}
	for i, item := range o.Items {
		if id.IsNil(item.ProductID) {
			return apperror.NewValidation("item product is required").
				WithDetail("line", i)
		}
		if !item.Quantity.IsPositive() {
			return apperror.NewValidation("item quantity must be positive").
				WithDetail("line", i)
		}
		if item.UnitCost.IsNegative() || item.Discount.IsNegative() {
			return apperror.NewValidation("item cost and discount cannot be negative").
				WithDetail("line", i)
		}
	}
	return nil
}

// RecalculateTotals recomputes line and order totals.
// Line total = quantity * unitCost - discount; order total adds shipping and
// subtracts the order-level discount.
func (o *Order) RecalculateTotals() {
	subtotal := types.Zero()
	for i := range o.Items {
		item := &o.Items[i]
		line := item.UnitCost.Mul(item.Quantity.Decimal()).Sub(item.Discount)
		item.TotalCost = line
		subtotal = subtotal.Add(line)
	}
	o.Subtotal = subtotal
	o.Total = subtotal.Sub(o.Discount).Add(o.Shipping)
}

// IsFullyReceived reports whether every line reached its ordered quantity.
func (o *Order) IsFullyReceived() bool {
	for _, item := range o.Items {
		if item.ReceivedQuantity < item.Quantity {
			return false
		}
	}
	return true
}

// IsEditable reports whether items may still change.
func (o *Order) IsEditable() bool {
	return o.Status == StatusDraft || o.Status == StatusPending
}
