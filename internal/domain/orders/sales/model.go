// Package sales provides the SalesOrder document.
package sales

import (
	"context"

	"atelier/internal/core/apperror"
	"atelier/internal/core/entity"
	"atelier/internal/core/id"
	"atelier/internal/core/types"
)

// Order statuses.
const (
	StatusDraft      = "DRAFT"
	StatusPending    = "PENDING"
	StatusConfirmed  = "CONFIRMED"
	StatusProcessing = "PROCESSING"
	StatusShipped    = "SHIPPED"
	StatusDelivered  = "DELIVERED"
	StatusCancelled  = "CANCELLED"
)

// Order represents a sales order to a customer.
type Order struct {
	entity.Document

	CustomerID id.ID `db:"customer_id" json:"customerId"`

	// UnitID is the fulfilling store unit
	UnitID *id.ID `db:"unit_id" json:"unitId,omitempty"`

	// Channel distinguishes store/ecommerce sales
	Channel string `db:"channel" json:"channel,omitempty"`

	Discount types.Money `db:"discount" json:"discount"`
	Shipping types.Money `db:"shipping" json:"shipping"`

	Subtotal types.Money `db:"subtotal" json:"subtotal"`
	Total    types.Money `db:"total" json:"total"`

	Items []Item `db:"-" json:"items"`
}

// Item is one sales order line.
type Item struct {
	ID        id.ID  `db:"id" json:"id"`
	OrderID   id.ID  `db:"order_id" json:"orderId"`
	ProductID id.ID  `db:"product_id" json:"productId"`
	VariantID *id.ID `db:"variant_id" json:"variantId,omitempty"`

	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice types.Money    `db:"unit_price" json:"unitPrice"`
	Discount  types.Money    `db:"discount" json:"discount"`

	TotalPrice types.Money `db:"total_price" json:"totalPrice"`
}

// NewOrder creates a draft sales order.
func NewOrder(customerID id.ID) *Order {
	return &Order{
		Document:   entity.NewDocument(StatusDraft),
		CustomerID: customerID,
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
	if id.IsNil(o.CustomerID) {
		return apperror.NewValidation("customer is required").
			WithDetail("field", "customerId")
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
		if item.UnitPrice.IsNegative() || item.Discount.IsNegative() {
			return apperror.NewValidation("item price and discount cannot be negative").
				WithDetail("line", i)
		}
	}
	return nil
}

// RecalculateTotals recomputes line and order totals.
// subtotal = sum(unitPrice*qty - discount); total = subtotal - orderDiscount + shipping.
func (o *Order) RecalculateTotals() {
	subtotal := types.Zero()
	for i := range o.Items {
		item := &o.Items[i]
		line := item.UnitPrice.Mul(item.Quantity.Decimal()).Sub(item.Discount)
		item.TotalPrice = line
		subtotal = subtotal.Add(line)
	}
	o.Subtotal = subtotal
	o.Total = subtotal.Sub(o.Discount).Add(o.Shipping)
}

// IsEditable reports whether items may still change.
func (o *Order) IsEditable() bool {
	return o.Status == StatusDraft || o.Status == StatusPending
}
