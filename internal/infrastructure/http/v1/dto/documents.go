package dto

import (
	"atelier/internal/core/id"
	"atelier/internal/core/types"
	"atelier/internal/domain/orders/purchase"
	"atelier/internal/domain/returns"
	"atelier/internal/domain/transfers"
)

// UpdateStatusRequest moves a document to a new lifecycle status.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// DocumentLine overrides the posted quantity for one document item.
// Used by receipts and transfer ship/receive confirmations.
type DocumentLine struct {
	ItemID   id.ID          `json:"itemId" binding:"required"`
	Quantity types.Quantity `json:"quantity"`
}

// ReceiveOrderRequest posts a (possibly partial) goods receipt.
type ReceiveOrderRequest struct {
	UnitID *id.ID         `json:"unitId"`
	Lines  []DocumentLine `json:"lines"`
}

// ReceiptLines maps the request lines to the purchase input.
func (r ReceiveOrderRequest) ReceiptLines() []purchase.ReceiptLine {
	lines := make([]purchase.ReceiptLine, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = purchase.ReceiptLine{ItemID: l.ItemID, Quantity: l.Quantity}
	}
	return lines
}

// ShipTransferRequest confirms the outbound side of a transfer.
// Lines are optional overrides; omitted items ship the requested quantity.
type ShipTransferRequest struct {
	Lines []DocumentLine `json:"lines"`
}

func (r ShipTransferRequest) ShipLines() []transfers.ShipLine {
	lines := make([]transfers.ShipLine, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = transfers.ShipLine{ItemID: l.ItemID, Quantity: l.Quantity}
	}
	return lines
}

// ReceiveTransferRequest confirms the inbound side of a transfer.
type ReceiveTransferRequest struct {
	Lines []DocumentLine `json:"lines"`
}

func (r ReceiveTransferRequest) ReceiveLines() []transfers.ReceiveLine {
	lines := make([]transfers.ReceiveLine, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = transfers.ReceiveLine{ItemID: l.ItemID, Quantity: l.Quantity}
	}
	return lines
}

// ProcessReturnRequest settles an approved return.
type ProcessReturnRequest struct {
	ReturnToStock bool         `json:"returnToStock"`
	RefundMethod  string       `json:"refundMethod" binding:"required"`
	RefundAmount  *types.Money `json:"refundAmount"`
}

// ToInput maps the request onto the returns input.
func (r ProcessReturnRequest) ToInput() returns.ProcessInput {
	return returns.ProcessInput{
		ReturnToStock: r.ReturnToStock,
		RefundMethod:  r.RefundMethod,
		RefundAmount:  r.RefundAmount,
	}
}
