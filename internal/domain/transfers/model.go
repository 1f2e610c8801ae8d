// Package transfers provides the StockTransfer document: moving goods
// between store units through a request/approve/ship/receive workflow.
package transfers

import (
	"context"
	"time"

	"atelier/internal/core/apperror"
	"atelier/internal/core/entity"
	"atelier/internal/core/id"
	"atelier/internal/core/types"
)

// Transfer statuses.
const (
	StatusRequested = "REQUESTED"
	StatusApproved  = "APPROVED"
	StatusShipped   = "SHIPPED"
	StatusReceived  = "RECEIVED"
	StatusCancelled = "CANCELLED"
)

// Transfer represents a stock transfer between two units.
type Transfer struct {
	entity.Document

	FromUnitID id.ID `db:"from_unit_id" json:"fromUnitId"`
	ToUnitID   id.ID `db:"to_unit_id" json:"toUnitId"`

	RequestedBy string `db:"requested_by" json:"requestedBy,omitempty"`
	ApprovedBy  string `db:"approved_by" json:"approvedBy,omitempty"`

	ApprovedAt *time.Time `db:"approved_at" json:"approvedAt,omitempty"`
	ShippedAt  *time.Time `db:"shipped_at" json:"shippedAt,omitempty"`
	ReceivedAt *time.Time `db:"received_at" json:"receivedAt,omitempty"`

	Items []Item `db:"-" json:"items"`
}

// Item is one transfer line. Shipped and received quantities are set as the
// workflow advances; shipped defaults to requested at ship time.
type Item struct {
	ID         id.ID  `db:"id" json:"id"`
	TransferID id.ID  `db:"transfer_id" json:"transferId"`
	ProductID  id.ID  `db:"product_id" json:"productId"`
	VariantID  *id.ID `db:"variant_id" json:"variantId,omitempty"`

	RequestedQty types.Quantity  `db:"requested_qty" json:"requestedQty"`
	ShippedQty   *types.Quantity `db:"shipped_qty" json:"shippedQty,omitempty"`
	ReceivedQty  *types.Quantity `db:"received_qty" json:"receivedQty,omitempty"`
}

// NewTransfer creates a transfer request.
func NewTransfer(fromUnitID, toUnitID id.ID) *Transfer {
	return &Transfer{
		Document:   entity.NewDocument(StatusRequested),
		FromUnitID: fromUnitID,
		ToUnitID:   toUnitID,
	}
}

// Validate implements entity.Validatable.
func (t *Transfer) Validate(ctx context.Context) error {
	if err := t.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(t.FromUnitID) || id.IsNil(t.ToUnitID) {
		return apperror.NewValidation("both source and destination units are required").
			WithDetail("field", "fromUnitId")
	}
	if t.FromUnitID == t.ToUnitID {
		return apperror.NewValidation("source and destination units must differ").
			WithDetail("field", "toUnitId")
	}
	if len(t.Items) == 0 {
		return apperror.NewValidation("transfer requires at least one item").
			WithDetail("field", "items")
	}
	for i, item := range t.Items {
		if id.IsNil(item.ProductID) {
			return apperror.NewValidation("item product is required").
				WithDetail("line", i)
		}
		if !item.RequestedQty.IsPositive() {
			return apperror.NewValidation("requested quantity must be positive").
				WithDetail("line", i)
		}
	}
	return nil
}
