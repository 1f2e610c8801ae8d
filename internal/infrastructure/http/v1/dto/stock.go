package dto

import (
	"atelier/internal/core/id"
	"atelier/internal/core/types"
	"atelier/internal/domain/ledger"
)

// RecordMovementRequest is the payload for posting a stock movement.
type RecordMovementRequest struct {
	ProductID id.ID  `json:"productId" binding:"required"`
	VariantID *id.ID `json:"variantId"`
	UnitID    *id.ID `json:"unitId"`

	Type   string `json:"type" binding:"required"`
	Reason string `json:"reason" binding:"required"`

	Quantity types.Quantity `json:"quantity"`

	UnitCost   *types.Money `json:"unitCost"`
	DocumentID *id.ID       `json:"documentId"`
	Notes      string       `json:"notes"`
}

// ToInput maps the request onto the ledger input.
func (r RecordMovementRequest) ToInput() ledger.RecordMovementInput {
	return ledger.RecordMovementInput{
		ProductID:  r.ProductID,
		VariantID:  r.VariantID,
		UnitID:     r.UnitID,
		Type:       ledger.MovementType(r.Type),
		Reason:     ledger.MovementReason(r.Reason),
		Quantity:   r.Quantity,
		UnitCost:   r.UnitCost,
		DocumentID: r.DocumentID,
		Notes:      r.Notes,
	}
}
